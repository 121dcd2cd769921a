package incentive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/authz"
	"github.com/xraph/incentive/tier"
	"github.com/xraph/incentive/types"
)

// LoanEvent is re-exported for callers of the root package.
type LoanEvent = accrual.LoanEvent

// AccrualResult reports what a single loan event did to a borrower's
// incentive state.
type AccrualResult struct {
	User        string       `json:"user"`
	Locked      types.Points `json:"locked,omitempty"`
	Minted      types.Points `json:"minted,omitempty"`
	Forfeited   types.Points `json:"forfeited,omitempty"`
	Penalty     types.Points `json:"penalty,omitempty"`
	DebtOffset  types.Points `json:"debt_offset,omitempty"`
	Debt        types.Points `json:"debt"`
	Level       int          `json:"level"`
	Eligible    bool         `json:"eligible"`
}

// BatchItemResult pairs one batch entry with its outcome.
type BatchItemResult struct {
	Index  int            `json:"index"`
	Result *AccrualResult `json:"result,omitempty"`
	Err    error          `json:"-"`
}

// OnLoanEvent processes one loan lifecycle event for a borrower.
//
// A borrow event locks a pending reward against the loan's maturity. A
// repay event settles the borrower's entire locked balance: on-time
// repayment mints it (net of any outstanding debt), a missed repayment
// forfeits it and may assess a penalty against the spendable balance.
func (e *Engine) OnLoanEvent(ctx context.Context, ev LoanEvent) (*AccrualResult, error) {
	if err := e.authz.Require(ctx, authz.ActionDeliverLoanEvent, authz.CallerFromContext(ctx)); err != nil {
		return nil, err
	}
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	return e.applyLoanEvent(ctx, ev)
}

// OnLoanEvents processes a batch of loan events. Items are independent:
// one failing item does not prevent the others from applying, and its
// error is reported in the corresponding result slot.
func (e *Engine) OnLoanEvents(ctx context.Context, evs []LoanEvent) ([]BatchItemResult, error) {
	if err := e.authz.Require(ctx, authz.ActionDeliverLoanEvent, authz.CallerFromContext(ctx)); err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, nil
	}
	if len(evs) > e.batchCap {
		return nil, fmt.Errorf("%w: %d items (cap %d)", ErrBatchTooLarge, len(evs), e.batchCap)
	}
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	results := make([]BatchItemResult, len(evs))
	for i, ev := range evs {
		res, err := e.applyLoanEvent(ctx, ev)
		results[i] = BatchItemResult{Index: i, Result: res, Err: err}
		if err != nil {
			e.logger.Warn("batch loan event failed",
				"index", i,
				"user", ev.User,
				"error", err,
			)
		}
	}
	return results, nil
}

// applyLoanEvent does the work for OnLoanEvent; caller holds opMu.
func (e *Engine) applyLoanEvent(ctx context.Context, ev LoanEvent) (*AccrualResult, error) {
	if ev.User == "" {
		return nil, fmt.Errorf("%w: empty user", ErrInvalidInput)
	}

	if ev.IsBorrow() {
		return e.applyBorrow(ctx, ev)
	}
	return e.applyRepay(ctx, ev)
}

func (e *Engine) applyBorrow(ctx context.Context, ev LoanEvent) (*AccrualResult, error) {
	if ev.Principal <= 0 {
		return nil, fmt.Errorf("%w: non-positive principal", ErrInvalidInput)
	}
	if ev.Term <= 0 {
		return nil, fmt.Errorf("%w: non-positive term", ErrInvalidInput)
	}

	acct, err := e.loadOrCreateAccount(ctx, ev.User)
	if err != nil {
		return nil, err
	}

	now := e.now()
	eligible := ev.Principal >= e.params.MinEligiblePrincipal

	acct.Counters.TotalLoans++
	acct.Counters.TotalVolume += ev.Principal
	acct.LastActivity = now

	res := &AccrualResult{User: ev.User, Eligible: eligible}

	if eligible {
		acct.Counters.EligibleLoans++

		reward := e.computeReward(ev, acct)
		acct.LockedPoints += reward
		acct.LockedMaturity = now.Add(ev.Term)

		res.Locked = reward
		e.recordStat(ev.User, StatRewardLocked, reward)
	}

	e.promote(ctx, acct)

	acct.Touch()
	if err := e.store.PutAccount(ctx, acct); err != nil {
		return nil, err
	}

	if res.Locked > 0 {
		e.plugins.EmitRewardLocked(ctx, ev.User, int64(res.Locked), acct.LockedMaturity)
	}
	res.Debt = acct.Debt
	res.Level = acct.Level

	e.logger.Debug("borrow processed",
		"user", ev.User,
		"principal", ev.Principal.String(),
		"eligible", eligible,
		"locked", res.Locked.String(),
	)
	return res, nil
}

func (e *Engine) applyRepay(ctx context.Context, ev LoanEvent) (*AccrualResult, error) {
	acct, err := e.store.GetAccount(ctx, ev.User)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, ev.User)
		}
		return nil, err
	}

	now := e.now()
	res := &AccrualResult{User: ev.User, Eligible: true}

	locked := acct.LockedPoints
	maturity := acct.LockedMaturity
	acct.LockedPoints = 0
	acct.LockedMaturity = time.Time{}
	acct.LastActivity = now

	switch ev.Outcome {
	case accrual.OutcomeOnTime:
		minted, offset := e.settleLocked(ctx, acct, locked)
		res.Minted = minted
		res.DebtOffset = offset

		acct.Counters.OnTimeRepays++

		if minted > 0 {
			e.plugins.EmitRewardReleased(ctx, ev.User, int64(minted))
			e.recordStat(ev.User, StatRewardReleased, minted)
		}

	case accrual.OutcomeMissed:
		res.Forfeited = locked
		if locked > 0 {
			e.plugins.EmitRewardForfeited(ctx, ev.User, int64(locked))
			e.recordStat(ev.User, StatRewardForfeited, locked)
		}
		if bps := e.forfeitPenaltyBps(now, maturity); bps > 0 && locked > 0 {
			res.Penalty = e.assessPenalty(ctx, acct, locked, bps)
		}

	default:
		return nil, fmt.Errorf("%w: repay event without outcome", ErrInvalidInput)
	}

	e.promote(ctx, acct)

	acct.Touch()
	if err := e.store.PutAccount(ctx, acct); err != nil {
		return nil, err
	}

	res.Debt = acct.Debt
	res.Level = acct.Level

	e.logger.Debug("repay processed",
		"user", ev.User,
		"outcome", string(ev.Outcome),
		"minted", res.Minted.String(),
		"forfeited", res.Forfeited.String(),
		"penalty", res.Penalty.String(),
		"debt", res.Debt.String(),
	)
	return res, nil
}

// forfeitPenaltyBps selects the penalty rate for a forfeited lock from
// where the settlement landed relative to the on-time band.
func (e *Engine) forfeitPenaltyBps(now time.Time, maturity time.Time) uint32 {
	if accrual.ClassifyRepay(now, maturity, e.params.OnTimeWindow) == accrual.TimingEarly {
		return e.params.EarlyPenaltyBps
	}
	return e.params.LatePenaltyBps
}

// settleLocked offsets outstanding debt against a locked amount before
// minting the remainder into the spendable balance. Returns the minted
// amount and the portion consumed by debt.
func (e *Engine) settleLocked(ctx context.Context, acct *account.Account, locked types.Points) (minted, offset types.Points) {
	if acct.Debt > 0 {
		if locked >= acct.Debt {
			offset = acct.Debt
			locked -= acct.Debt
			acct.Debt = 0
		} else {
			offset = locked
			acct.Debt -= locked
			locked = 0
		}
		e.plugins.EmitDebtChanged(ctx, acct.User, int64(acct.Debt))
	}

	if locked > 0 {
		if err := e.balance.Mint(ctx, acct.User, locked); err != nil {
			// The balance collaborator refused the mint. The points fall
			// back into debt so the amount owed is never lost.
			e.logger.Error("mint failed, crediting as debt",
				"user", acct.User,
				"points", locked.String(),
				"error", err,
			)
			acct.Debt += locked
			e.plugins.EmitDebtChanged(ctx, acct.User, int64(acct.Debt))
			return 0, offset
		}
	}
	return locked, offset
}

// assessPenalty burns a basis-point fraction of base from the spendable
// balance. A shortfall becomes debt instead of failing the settlement.
func (e *Engine) assessPenalty(ctx context.Context, acct *account.Account, base types.Points, bps uint32) types.Points {
	penalty := base.MulBps(bps)
	if penalty <= 0 {
		return 0
	}

	burned := penalty
	if err := e.balance.Burn(ctx, acct.User, penalty); err != nil {
		if !errors.Is(err, ErrInsufficientBalance) {
			e.logger.Error("penalty burn failed",
				"user", acct.User,
				"penalty", penalty.String(),
				"error", err,
			)
			return 0
		}
		// Burn what is there, owe the rest.
		burned = 0
		held, balErr := e.balance.BalanceOf(ctx, acct.User)
		if balErr == nil && held > 0 {
			if burnErr := e.balance.Burn(ctx, acct.User, held); burnErr == nil {
				burned = held
			}
		}
		acct.Debt += penalty - burned
		e.plugins.EmitDebtChanged(ctx, acct.User, int64(acct.Debt))
	}
	if burned > 0 {
		e.plugins.EmitPointsBurned(ctx, acct.User, int64(burned), "repay_penalty")
		e.recordStat(acct.User, StatPointsBurned, burned)
	}
	return penalty
}

// computeReward prices the pending reward for an eligible borrow.
func (e *Engine) computeReward(ev LoanEvent, acct *account.Account) types.Points {
	days := int64(ev.Term / (24 * time.Hour))
	base := e.params.BaseReward + types.Points(days)*e.params.PerDayBonus

	reward := base.MulBps(e.multipliers.Bps(acct.Level))

	if e.params.BonusBps > 0 {
		reward += base.MulBps(e.params.BonusBps)
	}

	if e.params.DynamicVolumeThreshold > 0 &&
		acct.Counters.TotalVolume >= e.params.DynamicVolumeThreshold &&
		e.params.DynamicMultiplierBps > 0 {
		reward = reward.MulBps(e.params.DynamicMultiplierBps)
	}
	return reward
}

// promote re-resolves the account's level and emits on change. Levels
// only ever move up.
func (e *Engine) promote(ctx context.Context, acct *account.Account) {
	next := tier.Resolve(acct.Level, acct.Counters, e.thresholds)
	if next > acct.Level {
		old := acct.Level
		acct.Level = next
		e.plugins.EmitLevelChanged(ctx, acct.User, old, next)
		e.logger.Info("level promoted", "user", acct.User, "from", old, "to", next)
	}
}

func (e *Engine) loadOrCreateAccount(ctx context.Context, user string) (*account.Account, error) {
	acct, err := e.store.GetAccount(ctx, user)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return account.New(user), nil
}

// ──────────────────────────────────────────────────
// Per-order locks
// ──────────────────────────────────────────────────

// OrderLock is re-exported for callers of the root package.
type OrderLock = accrual.OrderLock

// LockOrder records a pending reward against a single identified loan
// order. Locking an order that already holds a live lock is a no-op
// returning the existing lock, so at-least-once delivery is safe.
func (e *Engine) LockOrder(ctx context.Context, orderID, borrower string, principal types.Principal, term time.Duration) (*OrderLock, error) {
	if err := e.authz.Require(ctx, authz.ActionDeliverLoanEvent, authz.CallerFromContext(ctx)); err != nil {
		return nil, err
	}
	if orderID == "" || borrower == "" {
		return nil, fmt.Errorf("%w: empty order or borrower", ErrInvalidInput)
	}
	if principal <= 0 || term <= 0 {
		return nil, fmt.Errorf("%w: non-positive principal or term", ErrInvalidInput)
	}
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	if existing, err := e.store.GetOrderLock(ctx, orderID); err == nil {
		e.logger.Debug("order already locked, ignoring duplicate", "order", orderID)
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	acct, err := e.loadOrCreateAccount(ctx, borrower)
	if err != nil {
		return nil, err
	}

	now := e.now()
	acct.Counters.TotalLoans++
	acct.Counters.TotalVolume += principal
	acct.LastActivity = now

	var lock *accrual.OrderLock
	if principal >= e.params.MinEligiblePrincipal {
		acct.Counters.EligibleLoans++

		reward := e.computeReward(LoanEvent{User: borrower, Principal: principal, Term: term}, acct)
		lock = accrual.NewOrderLock(orderID, borrower, reward, now.Add(term))
		if err := e.store.CreateOrderLock(ctx, lock); err != nil {
			return nil, err
		}
		e.recordStat(borrower, StatRewardLocked, reward)
	} else {
		// Ineligible orders still count toward volume but lock nothing.
		lock = accrual.NewOrderLock(orderID, borrower, 0, now.Add(term))
		if err := e.store.CreateOrderLock(ctx, lock); err != nil {
			return nil, err
		}
	}

	e.promote(ctx, acct)
	acct.Touch()
	if err := e.store.PutAccount(ctx, acct); err != nil {
		return nil, err
	}

	if lock.Points > 0 {
		e.plugins.EmitRewardLocked(ctx, borrower, int64(lock.Points), lock.Maturity)
	}
	return lock, nil
}

// SettleOrder resolves one order lock. An unknown or already-settled
// order is a no-op; settlement is idempotent per order.
func (e *Engine) SettleOrder(ctx context.Context, orderID, borrower string, outcome accrual.Outcome) (*AccrualResult, error) {
	if err := e.authz.Require(ctx, authz.ActionDeliverLoanEvent, authz.CallerFromContext(ctx)); err != nil {
		return nil, err
	}
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	lock, err := e.store.GetOrderLock(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &AccrualResult{User: borrower}, nil
		}
		return nil, err
	}
	if lock.Borrower != borrower {
		return nil, fmt.Errorf("%w: borrower mismatch for order %s", ErrInvalidInput, orderID)
	}

	acct, err := e.loadOrCreateAccount(ctx, borrower)
	if err != nil {
		return nil, err
	}

	now := e.now()
	acct.LastActivity = now
	res := &AccrualResult{User: borrower, Eligible: lock.Points > 0}

	switch outcome {
	case accrual.OutcomeOnTime:
		minted, offset := e.settleLocked(ctx, acct, lock.Points)
		res.Minted = minted
		res.DebtOffset = offset
		acct.Counters.OnTimeRepays++

		if minted > 0 {
			e.plugins.EmitRewardReleased(ctx, borrower, int64(minted))
			e.recordStat(borrower, StatRewardReleased, minted)
		}

	case accrual.OutcomeMissed:
		res.Forfeited = lock.Points
		if lock.Points > 0 {
			e.plugins.EmitRewardForfeited(ctx, borrower, int64(lock.Points))
			e.recordStat(borrower, StatRewardForfeited, lock.Points)
		}
		if bps := e.forfeitPenaltyBps(now, lock.Maturity); bps > 0 && lock.Points > 0 {
			res.Penalty = e.assessPenalty(ctx, acct, lock.Points, bps)
		}

	default:
		return nil, fmt.Errorf("%w: settle outcome %q", ErrInvalidInput, outcome)
	}

	if err := e.store.DeleteOrderLock(ctx, orderID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	e.promote(ctx, acct)
	acct.Touch()
	if err := e.store.PutAccount(ctx, acct); err != nil {
		return nil, err
	}

	res.Debt = acct.Debt
	res.Level = acct.Level
	return res, nil
}

// ──────────────────────────────────────────────────
// Administrative deduction
// ──────────────────────────────────────────────────

// DeductPoints burns points from a user's spendable balance, booking any
// shortfall as debt. Used for clawbacks and dispute resolution.
func (e *Engine) DeductPoints(ctx context.Context, user string, amount types.Points, reason string) error {
	if err := e.authz.Require(ctx, authz.ActionDeductPoints, authz.CallerFromContext(ctx)); err != nil {
		return err
	}
	if user == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidInput)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount", ErrZeroPoints)
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	acct, err := e.loadOrCreateAccount(ctx, user)
	if err != nil {
		return err
	}

	if err := e.balance.Burn(ctx, user, amount); err != nil {
		if !errors.Is(err, ErrInsufficientBalance) {
			return err
		}
		held, balErr := e.balance.BalanceOf(ctx, user)
		if balErr != nil {
			return balErr
		}
		if held > 0 {
			if err := e.balance.Burn(ctx, user, held); err != nil {
				return err
			}
		}
		acct.Debt += amount - held
		e.plugins.EmitDebtChanged(ctx, user, int64(acct.Debt))
	}

	acct.LastActivity = e.now()
	acct.Touch()
	if err := e.store.PutAccount(ctx, acct); err != nil {
		return err
	}

	e.plugins.EmitPointsBurned(ctx, user, int64(amount), reason)
	e.recordStat(user, StatPointsBurned, amount)

	e.logger.Info("points deducted",
		"user", user,
		"amount", amount.String(),
		"reason", reason,
		"caller", authz.CallerFromContext(ctx),
	)
	return nil
}

// Re-export loan event outcomes for callers of the root package.
const (
	OutcomeNone   = accrual.OutcomeNone
	OutcomeOnTime = accrual.OutcomeOnTime
	OutcomeMissed = accrual.OutcomeMissed
)
