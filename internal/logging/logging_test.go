/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("production", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Int("channel", 4).Msg("lineup resolved")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "lineup resolved" || entry["service"] != "grimnir-tv" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["channel"] != float64(4) {
		t.Fatalf("unexpected channel field: %v", entry["channel"])
	}
}

func TestSetupDevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("development", &buf)
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("unexpected level: %s", logger.GetLevel())
	}
	logger.Debug().Msg("compile step")
	if !bytes.Contains(buf.Bytes(), []byte("compile step")) {
		t.Fatalf("debug message missing from %q", buf.String())
	}
}
