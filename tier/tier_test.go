package tier

import (
	"testing"

	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/types"
)

func TestResolve(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name     string
		current  int
		counters account.Counters
		expected int
	}{
		{
			"New user stays at 1",
			1,
			account.Counters{},
			1,
		},
		{
			"Level 2 thresholds met",
			1,
			account.Counters{TotalVolume: types.PrincipalUnits(5_000), EligibleLoans: 3, OnTimeRepays: 1},
			2,
		},
		{
			"Exactly at threshold counts",
			1,
			account.Counters{TotalVolume: types.PrincipalUnits(5_000), EligibleLoans: 3, OnTimeRepays: 1},
			2,
		},
		{
			"One counter short blocks promotion",
			1,
			account.Counters{TotalVolume: types.PrincipalUnits(5_000), EligibleLoans: 3, OnTimeRepays: 0},
			1,
		},
		{
			"Contiguous multi-level climb",
			1,
			account.Counters{TotalVolume: types.PrincipalUnits(25_000), EligibleLoans: 10, OnTimeRepays: 5},
			3,
		},
		{
			"Level 2 user with level 4 counters climbs all satisfied levels",
			2,
			account.Counters{TotalVolume: types.PrincipalUnits(100_000), EligibleLoans: 30, OnTimeRepays: 20},
			4,
		},
		{
			"Never demotes",
			4,
			account.Counters{},
			4,
		},
		{
			"Max level is a ceiling",
			5,
			account.Counters{TotalVolume: types.PrincipalUnits(10_000_000), EligibleLoans: 1000, OnTimeRepays: 1000},
			5,
		},
		{
			"Current below minimum is clamped",
			0,
			account.Counters{},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.current, tt.counters, th); got != tt.expected {
				t.Errorf("Resolve: got %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestResolveGapInLadder(t *testing.T) {
	// A hole at level 3 stops the climb even when level 4 would be satisfied.
	th := Thresholds{
		2: {EligibleLoans: 1},
		4: {EligibleLoans: 2},
	}
	c := account.Counters{EligibleLoans: 10}

	if got := Resolve(1, c, th); got != 2 {
		t.Errorf("Resolve: got %d, want 2", got)
	}
}

func TestMultipliersBps(t *testing.T) {
	m := DefaultMultipliers()

	if got := m.Bps(1); got != 10_000 {
		t.Errorf("level 1: got %d, want 10000", got)
	}
	if got := m.Bps(5); got != 20_000 {
		t.Errorf("level 5: got %d, want 20000", got)
	}
	// Missing level falls back to 1.0x.
	if got := m.Bps(42); got != 10_000 {
		t.Errorf("unknown level: got %d, want 10000", got)
	}
}
