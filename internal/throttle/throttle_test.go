/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package throttle

import (
	"testing"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

func TestTooManyAttempts(t *testing.T) {
	pilot := models.LineupItem{Type: models.LineupProgram, Title: "Pilot", Key: "/1"}
	finale := models.LineupItem{Type: models.LineupProgram, Title: "Finale", Key: "/2"}
	offline := models.LineupItem{Type: models.LineupOffline, Title: "Channel Offline"}

	th := New()
	if th.TooManyAttempts("s1", 1000, pilot) {
		t.Error("first request throttled")
	}
	if !th.TooManyAttempts("s1", 1500, pilot) {
		t.Error("repeat inside the window not throttled")
	}
	if th.TooManyAttempts("s1", 2600, pilot) {
		t.Error("repeat after the window throttled")
	}
	if th.TooManyAttempts("s1", 2700, finale) {
		t.Error("different item throttled")
	}
	if th.TooManyAttempts("s2", 2700, finale) {
		t.Error("sessions are not independent")
	}
	th.TooManyAttempts("s3", 3000, offline)
	if th.TooManyAttempts("s3", 3100, offline) {
		t.Error("offline items should never be throttled")
	}
}

func TestPruneIdleSessions(t *testing.T) {
	th := New()
	item := models.LineupItem{Type: models.LineupProgram, Title: "Pilot"}
	th.TooManyAttempts("old", 0, item)
	th.TooManyAttempts("new", 10_000, item)
	if got := th.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}
