/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule compiles declarative slot rules and a program pool into a
// cyclic channel program list.
package schedule

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
	"github.com/friendsincode/grimnir_tv/internal/weighted"
)

const tracerName = "grimnir_tv/schedule"

// Compiler expands slot schedules. Compiles are synchronous and yield to the
// Go scheduler once per iteration; they are not cancellable.
type Compiler struct {
	classifier classify.Classifier
	logger     zerolog.Logger
	now        func() time.Time
	random     weighted.Source
}

// NewCompiler constructs a compiler. A nil classifier uses classify.Default.
func NewCompiler(classifier classify.Classifier, logger zerolog.Logger) *Compiler {
	if classifier == nil {
		classifier = classify.Default{}
	}
	return &Compiler{
		classifier: classifier,
		logger:     logger.With().Str("component", "schedule").Logger(),
		now:        time.Now,
		random:     weighted.Default,
	}
}

func (c *Compiler) done(span trace.Span, variant string, started time.Time, res Result, err error) {
	telemetry.CompileDuration.WithLabelValues(variant).Observe(time.Since(started).Seconds())
	if err != nil {
		result := "error"
		var verr *ValidationError
		if errors.As(err, &verr) {
			result = "invalid"
		}
		telemetry.CompilesTotal.WithLabelValues(variant, result).Inc()
		telemetry.RecordError(span, err)
		c.logger.Warn().Err(err).Str("variant", variant).Msg("schedule compile failed")
		return
	}

	telemetry.CompilesTotal.WithLabelValues(variant, "ok").Inc()
	telemetry.CompiledPrograms.Observe(float64(len(res.Programs)))
	telemetry.AddSpanAttributes(span, map[string]any{
		"schedule.variant":  variant,
		"schedule.programs": len(res.Programs),
		"schedule.duration": res.Duration(),
	})
	c.logger.Info().
		Str("variant", variant).
		Int("programs", len(res.Programs)).
		Int64("duration_ms", res.Duration()).
		Time("start_time", res.StartTime).
		Dur("elapsed", time.Since(started)).
		Msg("schedule compiled")
}
