/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package filler

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

// A clip played within the repeat cooldown is never picked again before the
// cooldown (less SLACK) has elapsed.
func TestProperty_RepeatCooldownHolds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("no clip repeats inside the cooldown", prop.ForAll(
		func(seed int64, clips int, cooldownMinutes int64, steps []int64) bool {
			h := newFakeHistory()
			p := newTestPicker(h, seed)
			cooldown := cooldownMinutes * models.MinuteMS
			ch := &models.Channel{Number: 9, FillerRepeatCooldown: &cooldown}

			var content []models.Program
			for i := 0; i < clips; i++ {
				content = append(content, clip(fmt.Sprintf("c%d", i), int64(10+i)*models.SecondMS))
			}
			fillers := []models.FillerCollection{{ID: "F", Weight: 1, Content: content}}

			ends := map[string]int64{}
			at := now
			for _, step := range steps {
				at += step * models.SecondMS
				pick, err := p.Pick(ch, fillers, 2*models.MinuteMS, at)
				if err != nil {
					continue
				}
				key := pick.Clip.PlaybackKey()
				if end, ok := ends[key]; ok && at-end < cooldown-models.SlackMS {
					t.Logf("%s repeated %dms after it ended", key, at-end)
					return false
				}
				end := at + pick.Clip.Duration
				ends[key] = end
				h.record(ch.Number, *pick.Clip, pick.FillerID, end)
				at = end
			}
			return true
		},
		gen.Int64Range(1, 1<<30),
		gen.IntRange(1, 8),
		gen.Int64Range(1, 60),
		gen.SliceOfN(60, gen.Int64Range(0, 600)),
	))

	properties.TestingRun(t)
}
