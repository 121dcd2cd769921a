// Package account defines the per-user ledger state owned by the engine.
package account

import (
	"time"

	"github.com/xraph/incentive/types"
)

// Counters are the lifetime behavioral counters driving tier promotion.
// They only ever grow.
type Counters struct {
	TotalLoans    uint64          `json:"total_loans"`
	EligibleLoans uint64          `json:"eligible_loans"`
	OnTimeRepays  uint64          `json:"on_time_repays"`
	TotalVolume   types.Principal `json:"total_volume"`
}

// Account is the cumulative per-user state. Accounts are created implicitly
// on the first loan event and never deleted.
type Account struct {
	types.Entity
	User string `json:"user"`

	// Level is the user's tier, 1..5. Drives the reward multiplier.
	Level int `json:"level"`

	// LockedPoints is the aggregate of points earned but not yet finalized
	// (aggregate variant; per-order locks are tracked separately).
	LockedPoints   types.Points `json:"locked_points"`
	LockedMaturity time.Time    `json:"locked_maturity"`

	// Debt accumulates penalties that could not be burned immediately.
	// It is offset against future releases before anything is minted.
	Debt types.Points `json:"debt"`

	LastActivity time.Time `json:"last_activity"`
	Counters
}

// New creates a fresh account at the base tier.
func New(user string) *Account {
	return &Account{
		Entity: types.NewEntity(),
		User:   user,
		Level:  1,
	}
}

type ListOpts struct {
	MinLevel int
	Limit    int
	Offset   int
}
