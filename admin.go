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

// Runtime parameter administration. Every setter is gated on the
// configured Authorizer and serialized with the mutating operations, so
// a parameter change never lands in the middle of a settlement.

func (e *Engine) adminBegin(ctx context.Context, action authz.Action) error {
	if err := e.authz.Require(ctx, action, authz.CallerFromContext(ctx)); err != nil {
		return err
	}
	return e.begin()
}

// Params returns a copy of the current accrual parameters.
func (e *Engine) Params() accrual.Params {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.params
}

// SetRewardParams replaces the base reward and per-day bonus.
func (e *Engine) SetRewardParams(ctx context.Context, base, perDay types.Points) error {
	if base < 0 || perDay < 0 {
		return fmt.Errorf("%w: negative reward parameter", ErrInvalidInput)
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.params.BaseReward = base
	e.params.PerDayBonus = perDay
	e.logParamChange(ctx, "reward", "base", base.String(), "per_day", perDay.String())
	return nil
}

// SetBonusBps replaces the flat reward bonus.
func (e *Engine) SetBonusBps(ctx context.Context, bps uint32) error {
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.params.BonusBps = bps
	e.logParamChange(ctx, "bonus", "bps", bps)
	return nil
}

// SetPenaltyBps replaces the early and late forfeiture penalties.
func (e *Engine) SetPenaltyBps(ctx context.Context, early, late uint32) error {
	if int64(early) > types.BpsDenominator || int64(late) > types.BpsDenominator {
		return fmt.Errorf("%w: penalty above 100%%", ErrInvalidInput)
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.params.EarlyPenaltyBps = early
	e.params.LatePenaltyBps = late
	e.logParamChange(ctx, "penalty", "early_bps", early, "late_bps", late)
	return nil
}

// SetOnTimeWindow replaces the on-time band around maturity.
func (e *Engine) SetOnTimeWindow(ctx context.Context, window time.Duration) error {
	if window < 0 {
		return fmt.Errorf("%w: negative window", ErrInvalidInput)
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.params.OnTimeWindow = window
	e.logParamChange(ctx, "on_time_window", "window", window)
	return nil
}

// SetMinEligiblePrincipal replaces the accrual eligibility floor.
func (e *Engine) SetMinEligiblePrincipal(ctx context.Context, floor types.Principal) error {
	if floor < 0 {
		return fmt.Errorf("%w: negative principal floor", ErrInvalidInput)
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.params.MinEligiblePrincipal = floor
	e.logParamChange(ctx, "min_eligible_principal", "floor", floor.String())
	return nil
}

// SetDynamicReward replaces the volume-gated reward multiplier. A zero
// threshold disables the boost.
func (e *Engine) SetDynamicReward(ctx context.Context, threshold types.Principal, multiplierBps uint32) error {
	if threshold < 0 {
		return fmt.Errorf("%w: negative threshold", ErrInvalidInput)
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.params.DynamicVolumeThreshold = threshold
	e.params.DynamicMultiplierBps = multiplierBps
	e.logParamChange(ctx, "dynamic_reward", "threshold", threshold.String(), "multiplier_bps", multiplierBps)
	return nil
}

// SetLevelMultipliers replaces the per-level reward multiplier table.
func (e *Engine) SetLevelMultipliers(ctx context.Context, m tier.Multipliers) error {
	for level := range m {
		if level < tier.MinLevel || level > tier.MaxLevel {
			return fmt.Errorf("%w: level %d out of range", ErrInvalidLevel, level)
		}
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.multipliers = m
	e.logParamChange(ctx, "level_multipliers", "levels", len(m))
	return nil
}

// SetTierThresholds replaces the promotion threshold table. Existing
// account levels are untouched; the new table applies on the next
// activity-driven promotion check.
func (e *Engine) SetTierThresholds(ctx context.Context, th tier.Thresholds) error {
	for level := range th {
		if level <= tier.MinLevel || level > tier.MaxLevel {
			return fmt.Errorf("%w: threshold for level %d out of range", ErrInvalidLevel, level)
		}
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.thresholds = th
	e.logParamChange(ctx, "tier_thresholds", "levels", len(th))
	return nil
}

// SetUpgradeMultiplierBps replaces the upgrade pricing factor applied to
// the target level's catalog cost.
func (e *Engine) SetUpgradeMultiplierBps(ctx context.Context, bps uint32) error {
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.upgradeBps = bps
	e.logParamChange(ctx, "upgrade_multiplier", "bps", bps)
	return nil
}

// SetStatsConfig replaces the stats flush batch size and interval. The
// running flush worker keeps its startup values; the change applies when
// the worker is next started.
func (e *Engine) SetStatsConfig(ctx context.Context, batchSize int, flushInterval time.Duration) error {
	if batchSize <= 0 || flushInterval <= 0 {
		return fmt.Errorf("%w: stats config must be positive", ErrInvalidInput)
	}
	if err := e.adminBegin(ctx, authz.ActionSetParams); err != nil {
		return err
	}
	defer e.end()

	e.statsBatchSize = batchSize
	e.statsFlushInterval = flushInterval
	e.logParamChange(ctx, "stats_config", "batch_size", batchSize, "flush_interval", flushInterval)
	return nil
}

// OverrideLevel force-sets a user's level, bypassing the threshold
// ladder. Subsequent activity can still promote the account upward but
// never below the override.
func (e *Engine) OverrideLevel(ctx context.Context, user string, level int) error {
	if level < tier.MinLevel || level > tier.MaxLevel {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if err := e.adminBegin(ctx, authz.ActionOverrideLevel); err != nil {
		return err
	}
	defer e.end()

	acct, err := e.loadOrCreateAccount(ctx, user)
	if err != nil {
		return err
	}

	old := acct.Level
	acct.Level = level
	acct.Touch()
	if err := e.store.PutAccount(ctx, acct); err != nil {
		return err
	}

	if old != level {
		e.plugins.EmitLevelChanged(ctx, user, old, level)
	}
	e.logger.Info("level overridden",
		"user", user,
		"from", old,
		"to", level,
		"caller", authz.CallerFromContext(ctx),
	)
	return nil
}

// Debt returns a user's outstanding forfeiture debt. A user with no
// account owes nothing.
func (e *Engine) Debt(ctx context.Context, user string) (types.Points, error) {
	acct, err := e.store.GetAccount(ctx, user)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return acct.Debt, nil
}

// ListAccounts pages through accounts, optionally filtered by level.
func (e *Engine) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	return e.store.ListAccounts(ctx, opts)
}

func (e *Engine) logParamChange(ctx context.Context, name string, kv ...any) {
	args := append([]any{"param", name, "caller", authz.CallerFromContext(ctx)}, kv...)
	e.logger.Info("parameter updated", args...)
}
