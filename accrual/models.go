// Package accrual defines the loan-event inputs and reward parameters for
// the accrual side of the engine.
package accrual

import (
	"time"

	"github.com/xraph/incentive/id"
	"github.com/xraph/incentive/types"
)

// Outcome is the repayment outcome flag delivered by the loan-event source.
type Outcome string

const (
	// OutcomeNone is used on borrow events, where no outcome exists yet.
	OutcomeNone Outcome = "none"
	// OutcomeOnTime means the loan was repaid in full within the on-time window.
	OutcomeOnTime Outcome = "on_time"
	// OutcomeMissed means the repayment was not on-time-and-full.
	OutcomeMissed Outcome = "missed"
)

// LoanEvent is a single loan lifecycle event in the aggregate (per-user)
// variant. Term > 0 is a borrow; Term == 0 is a repay carrying an Outcome.
type LoanEvent struct {
	User      string          `json:"user"`
	Principal types.Principal `json:"principal"`
	Term      time.Duration   `json:"term"`
	Outcome   Outcome         `json:"outcome"`
}

// IsBorrow reports whether the event originates a loan.
func (e LoanEvent) IsBorrow() bool { return e.Term > 0 }

// OrderLock is a live per-order reward lock. At most one live lock exists
// per order ID; it is consumed exactly once when the order settles.
type OrderLock struct {
	types.Entity
	ID       id.OrderLockID `json:"id"`
	OrderID  string         `json:"order_id"`
	Borrower string         `json:"borrower"`
	Points   types.Points   `json:"points"`
	Maturity time.Time      `json:"maturity"`
}

// NewOrderLock creates a live lock for an order.
func NewOrderLock(orderID, borrower string, points types.Points, maturity time.Time) *OrderLock {
	return &OrderLock{
		Entity:   types.NewEntity(),
		ID:       id.NewOrderLockID(),
		OrderID:  orderID,
		Borrower: borrower,
		Points:   points,
		Maturity: maturity,
	}
}

// Timing classifies when a repayment landed relative to the lock maturity.
type Timing int

const (
	TimingEarly Timing = iota
	TimingOnTime
	TimingLate
)

// ClassifyRepay buckets a repayment instant against maturity +/- window.
func ClassifyRepay(now, maturity time.Time, window time.Duration) Timing {
	switch {
	case now.Before(maturity.Add(-window)):
		return TimingEarly
	case now.After(maturity.Add(window)):
		return TimingLate
	default:
		return TimingOnTime
	}
}

// Params are the tunable accrual-side parameters. All are adjustable at
// runtime through the engine's authorization-gated setters.
type Params struct {
	// BaseReward is the fixed reward locked per eligible loan.
	BaseReward types.Points `json:"base_reward"`

	// PerDayBonus is an additional reward per full day of loan term.
	PerDayBonus types.Points `json:"per_day_bonus"`

	// BonusBps is a flat bonus applied on top of the computed reward
	// (0 = no bonus, 1000 = +10%).
	BonusBps uint32 `json:"bonus_bps"`

	// DynamicVolumeThreshold enables the dynamic reward multiplier once a
	// user's lifetime volume exceeds it. Zero disables the boost.
	DynamicVolumeThreshold types.Principal `json:"dynamic_volume_threshold"`
	DynamicMultiplierBps   uint32          `json:"dynamic_multiplier_bps"`

	// MinEligiblePrincipal is the principal floor below which a borrow
	// accrues nothing. Exactly at the floor is eligible.
	MinEligiblePrincipal types.Principal `json:"min_eligible_principal"`

	// OnTimeWindow bounds the on-time band around maturity.
	OnTimeWindow time.Duration `json:"on_time_window"`

	// EarlyPenaltyBps and LatePenaltyBps price the forfeiture penalty.
	// Current policy keeps the early knob at zero.
	EarlyPenaltyBps uint32 `json:"early_penalty_bps"`
	LatePenaltyBps  uint32 `json:"late_penalty_bps"`
}

// DefaultParams returns the current business-policy defaults.
func DefaultParams() Params {
	return Params{
		BaseReward:           types.Point(1),
		PerDayBonus:          0,
		BonusBps:             0,
		MinEligiblePrincipal: types.PrincipalUnits(1000),
		OnTimeWindow:         24 * time.Hour,
		EarlyPenaltyBps:      0,
		LatePenaltyBps:       500,
	}
}
