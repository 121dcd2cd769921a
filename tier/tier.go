// Package tier derives a user's level from lifetime behavioral counters.
//
// Promotion is automatic and monotonic: a user climbs to the highest level
// whose thresholds — and those of every level in between — are satisfied,
// and never moves down. An explicit override path exists on the engine for
// operational corrections.
package tier

import (
	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/types"
)

// Level bounds.
const (
	MinLevel = 1
	MaxLevel = 5
)

// Threshold is the counter bar a user must clear to hold a level.
// All three conditions must hold simultaneously.
type Threshold struct {
	Volume        types.Principal `json:"volume"`
	EligibleLoans uint64          `json:"eligible_loans"`
	OnTimeRepays  uint64          `json:"on_time_repays"`
}

// Satisfied reports whether the counters clear this threshold.
func (t Threshold) Satisfied(c account.Counters) bool {
	return c.TotalVolume >= t.Volume &&
		c.EligibleLoans >= t.EligibleLoans &&
		c.OnTimeRepays >= t.OnTimeRepays
}

// Thresholds maps level -> entry bar. Level 1 has no bar.
type Thresholds map[int]Threshold

// DefaultThresholds returns the standard promotion ladder.
func DefaultThresholds() Thresholds {
	return Thresholds{
		2: {Volume: types.PrincipalUnits(5_000), EligibleLoans: 3, OnTimeRepays: 1},
		3: {Volume: types.PrincipalUnits(25_000), EligibleLoans: 10, OnTimeRepays: 5},
		4: {Volume: types.PrincipalUnits(100_000), EligibleLoans: 30, OnTimeRepays: 20},
		5: {Volume: types.PrincipalUnits(500_000), EligibleLoans: 100, OnTimeRepays: 75},
	}
}

// Multipliers maps level -> reward multiplier in basis points
// (10000 = 1.0x). Non-decreasing by convention, not enforced here.
type Multipliers map[int]uint32

// DefaultMultipliers returns the standard level multiplier table.
func DefaultMultipliers() Multipliers {
	return Multipliers{
		1: 10_000,
		2: 11_000,
		3: 12_500,
		4: 15_000,
		5: 20_000,
	}
}

// Bps returns the multiplier for a level, defaulting to 1.0x for levels
// missing from the table.
func (m Multipliers) Bps(level int) uint32 {
	if bps, ok := m[level]; ok {
		return bps
	}
	return 10_000
}

// Resolve returns the level the counters support, starting from current.
// Each level's threshold is evaluated independently; the climb stops at the
// first unsatisfied level, so the highest contiguously satisfied level wins
// in one pass. Resolve never returns less than current.
func Resolve(current int, c account.Counters, th Thresholds) int {
	if current < MinLevel {
		current = MinLevel
	}

	level := current
	for next := current + 1; next <= MaxLevel; next++ {
		bar, ok := th[next]
		if !ok || !bar.Satisfied(c) {
			break
		}
		level = next
	}
	return level
}
