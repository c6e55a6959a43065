/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package weighted implements the running-weight sampling used for slot and
// filler selection.
package weighted

import "math/rand"

// Source returns a uniform float in [0, 1).
type Source func() float64

// Default draws from the process-wide generator. It is unseeded, so selection
// is not reproducible between runs.
var Default Source = rand.Float64

// Accept reports true with probability weight/total. Feeding it each
// candidate's weight with the running total of weights seen so far, and
// keeping the last accepted candidate, picks every candidate with probability
// proportional to its weight in a single pass.
func Accept(src Source, weight, total float64) bool {
	if total <= 0 || weight <= 0 {
		return false
	}
	if weight >= total {
		return true
	}
	return src()*total < weight
}
