/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package classify

import (
	"testing"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

func TestDefaultClassify(t *testing.T) {
	tests := []struct {
		name      string
		program   models.Program
		wantShow  bool
		wantID    string
		wantOrder int64
	}{
		{"flex", models.NewFlex(1000), true, "flex.", 0},
		{"redirect", models.NewRedirect(7, 1000), true, "redirect.7", 7},
		{"custom", models.Program{Kind: models.ProgramMedia, CustomShowID: "abc", CustomOrder: 4}, true, "custom.abc", 4},
		{"movie", models.Program{Kind: models.ProgramMedia, Type: "movie"}, true, "movie.", 0},
		{"episode", models.Program{Kind: models.ProgramMedia, Type: "episode", ShowTitle: "Lost", Season: 2, Episode: 3}, true, "tv.Lost", 200003},
		{"episode without show", models.Program{Kind: models.ProgramMedia, Type: "episode"}, false, "", 0},
		{"track", models.Program{Kind: models.ProgramMedia, Type: "track"}, false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Default{}.Classify(tt.program)
			if info.HasShow != tt.wantShow {
				t.Fatalf("HasShow = %v, want %v", info.HasShow, tt.wantShow)
			}
			if info.ShowID != tt.wantID {
				t.Errorf("ShowID = %q, want %q", info.ShowID, tt.wantID)
			}
			if info.Order != tt.wantOrder {
				t.Errorf("Order = %d, want %d", info.Order, tt.wantOrder)
			}
		})
	}
}

func TestRedirectTarget(t *testing.T) {
	if n, ok := RedirectTarget("redirect.12"); !ok || n != 12 {
		t.Fatalf("RedirectTarget(redirect.12) = %d, %v", n, ok)
	}
	if _, ok := RedirectTarget("redirect.x"); ok {
		t.Fatal("expected malformed redirect id to fail")
	}
	if _, ok := RedirectTarget("tv.Lost"); ok {
		t.Fatal("expected non-redirect id to fail")
	}
	if RedirectID(3) != "redirect.3" {
		t.Fatalf("RedirectID(3) = %q", RedirectID(3))
	}
}
