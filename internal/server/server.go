/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_tv/internal/api"
	"github.com/friendsincode/grimnir_tv/internal/cache"
	"github.com/friendsincode/grimnir_tv/internal/channels"
	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/config"
	"github.com/friendsincode/grimnir_tv/internal/db"
	"github.com/friendsincode/grimnir_tv/internal/eventbus"
	"github.com/friendsincode/grimnir_tv/internal/events"
	"github.com/friendsincode/grimnir_tv/internal/filler"
	"github.com/friendsincode/grimnir_tv/internal/lineup"
	"github.com/friendsincode/grimnir_tv/internal/resume"
	"github.com/friendsincode/grimnir_tv/internal/schedule"
	"github.com/friendsincode/grimnir_tv/internal/store"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
	"github.com/friendsincode/grimnir_tv/internal/throttle"
)

const connectionMetricsInterval = 15 * time.Second

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db       *gorm.DB
	cache    *cache.Cache
	resume   *resume.Cache
	channels *channels.Service
	resolver *lineup.Resolver
	api      *api.API
	bus      *events.Bus

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware(telemetry.DefaultServiceName))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		mux := chi.NewRouter()
		mux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database

	if s.cfg.RedisEnabled() {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.ChannelTTL = s.cfg.ChannelCacheTTL
		s.cache = cache.New(cacheCfg, s.logger)
		s.DeferClose(func() error { return s.cache.Close() })
	} else {
		s.cache = cache.Disabled(s.logger)
	}

	s.resume = resume.New()
	compiler := schedule.NewCompiler(classify.Default{}, s.logger)
	s.channels = channels.New(
		store.New(database, s.logger),
		s.cache,
		s.resume,
		s.bus,
		compiler,
		channels.Defaults{
			FillerRepeatCooldown: s.cfg.FillerRepeatCooldown,
			CompileMaxDays:       s.cfg.CompileMaxDays,
		},
		s.logger,
	)

	picker := filler.NewPicker(s.resume, s.logger)
	s.resolver = lineup.NewResolver(s.channels, s.channels, s.resume, picker, throttle.New(), s.logger)
	s.api = api.New(s.channels, s.resolver, s.logger)
	return nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the Prometheus listener, nil when metrics share the
// API listener.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Channels returns the channel service.
func (s *Server) Channels() *channels.Service {
	return s.channels
}

// Resolver returns the lineup resolver.
func (s *Server) Resolver() *lineup.Resolver {
	return s.resolver
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runConnectionMetrics(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runChangeListener(ctx)
	}()

	if client := s.cache.Client(); client != nil {
		relay := eventbus.NewRelay(client, s.bus, uuid.NewString(), s.channels.ApplyRemote, s.logger)
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			if err := relay.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("event relay exited")
			}
		}()
	}
}

// runConnectionMetrics samples the database pool on a fixed interval.
func (s *Server) runConnectionMetrics(ctx context.Context) {
	ticker := time.NewTicker(connectionMetricsInterval)
	defer ticker.Stop()

	db.UpdateConnectionMetrics(s.db)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.UpdateConnectionMetrics(s.db)
		}
	}
}

// runChangeListener logs channel and filler changes and re-warms the shared
// channel list after local saves and deletes. Remote changes are applied by
// the relay before they reach the bus.
func (s *Server) runChangeListener(ctx context.Context) {
	sub := s.bus.Subscribe(
		events.EventChannelSaved,
		events.EventChannelDeleted,
		events.EventScheduleCompiled,
		events.EventPlaybackCleared,
		events.EventFillerSaved,
	)
	defer s.bus.Unsubscribe(sub)

	s.logger.Info().Msg("change listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("change listener stopped")
			return

		case ev, ok := <-sub:
			if !ok {
				return
			}
			logEvent := s.logger.Info().Str("event", string(ev.Type)).Bool("remote", ev.Remote)
			if ev.Channel != 0 {
				logEvent = logEvent.Int("channel", ev.Channel)
			}
			if ev.Filler != "" {
				logEvent = logEvent.Str("filler_id", ev.Filler)
			}
			for k, v := range ev.Detail {
				logEvent = logEvent.Interface(k, v)
			}
			logEvent.Msg("change applied")

			switch ev.Type {
			case events.EventChannelSaved, events.EventChannelDeleted:
				if ev.Remote {
					continue
				}
				if _, err := s.channels.ChannelNumbers(ctx); err != nil {
					s.logger.Warn().Err(err).Msg("failed to re-warm channel list")
				}
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		body := `{"status":"ok","cache":%t}`
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			status = http.StatusServiceUnavailable
			body = `{"status":"degraded","cache":%t}`
		}
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, body, s.cache.IsAvailable())
	})

	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)
}
