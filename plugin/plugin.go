// Package plugin provides an extensible plugin system for the incentive
// engine. Plugins can hook into various lifecycle events to extend
// functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Accrual hooks
// ──────────────────────────────────────────────────

// OnRewardLocked is called when a pending reward is locked against a loan.
type OnRewardLocked interface {
	Plugin
	OnRewardLocked(ctx context.Context, user string, points int64, maturity time.Time) error
}

// OnRewardReleased is called when a locked reward is minted to the
// spendable balance after an on-time repayment.
type OnRewardReleased interface {
	Plugin
	OnRewardReleased(ctx context.Context, user string, points int64) error
}

// OnRewardForfeited is called when a locked reward is forfeited after a
// missed repayment.
type OnRewardForfeited interface {
	Plugin
	OnRewardForfeited(ctx context.Context, user string, points int64) error
}

// OnPointsBurned is called when points are burned from a spendable
// balance, whether by penalty, deduction, or consumption.
type OnPointsBurned interface {
	Plugin
	OnPointsBurned(ctx context.Context, user string, points int64, reason string) error
}

// OnDebtChanged is called whenever a user's forfeiture debt moves.
type OnDebtChanged interface {
	Plugin
	OnDebtChanged(ctx context.Context, user string, debt int64) error
}

// OnLevelChanged is called when an account's tier level changes.
type OnLevelChanged interface {
	Plugin
	OnLevelChanged(ctx context.Context, user string, oldLevel, newLevel int) error
}

// ──────────────────────────────────────────────────
// Consumption hooks
// ──────────────────────────────────────────────────

// OnServiceConsumed is called when a privileged service is purchased.
type OnServiceConsumed interface {
	Plugin
	OnServiceConsumed(ctx context.Context, user, service string, level int, points int64) error
}

// OnServiceUpgraded is called when an active grant is upgraded.
type OnServiceUpgraded interface {
	Plugin
	OnServiceUpgraded(ctx context.Context, user, service string, level int, points int64) error
}

// OnPrivilegeChanged is called when a user's privilege set changes.
// packed is the recomputed bitmap of all active grants, so subscribers
// can mirror the full privilege state without a follow-up query.
type OnPrivilegeChanged interface {
	Plugin
	OnPrivilegeChanged(ctx context.Context, user, service string, level int, active bool, packed uint64) error
}

// ──────────────────────────────────────────────────
// Telemetry hooks
// ──────────────────────────────────────────────────

// OnStatsFlushed is called when the background worker pushes a batch of
// aggregate-stats events. The push is best-effort: a plugin returning an
// error is logged and skipped, never retried.
type OnStatsFlushed interface {
	Plugin
	OnStatsFlushed(ctx context.Context, events []interface{}, elapsed time.Duration) error
}

// OnPushFailed is called when another plugin's hook returned an error,
// giving monitoring plugins a view of dropped telemetry.
type OnPushFailed interface {
	Plugin
	OnPushFailed(ctx context.Context, plugin, hook string, err error) error
}
