// Package audithook bridges incentive lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that
// bridges to the concrete backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/incentive/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnRewardLocked     = (*Extension)(nil)
	_ plugin.OnRewardReleased   = (*Extension)(nil)
	_ plugin.OnRewardForfeited  = (*Extension)(nil)
	_ plugin.OnPointsBurned     = (*Extension)(nil)
	_ plugin.OnDebtChanged      = (*Extension)(nil)
	_ plugin.OnLevelChanged     = (*Extension)(nil)
	_ plugin.OnServiceConsumed  = (*Extension)(nil)
	_ plugin.OnServiceUpgraded  = (*Extension)(nil)
	_ plugin.OnPrivilegeChanged = (*Extension)(nil)
	_ plugin.OnPushFailed       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that this package does not import a concrete
// audit module — callers inject the backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges incentive lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Accrual hooks
// ──────────────────────────────────────────────────

// OnRewardLocked implements plugin.OnRewardLocked.
func (e *Extension) OnRewardLocked(ctx context.Context, user string, points int64, maturity time.Time) error {
	return e.record(ctx, ActionRewardLocked, SeverityInfo, OutcomeSuccess,
		ResourceReward, user, CategoryAccrual, nil,
		"user", user,
		"points", points,
		"maturity", maturity,
	)
}

// OnRewardReleased implements plugin.OnRewardReleased.
func (e *Extension) OnRewardReleased(ctx context.Context, user string, points int64) error {
	return e.record(ctx, ActionRewardReleased, SeverityInfo, OutcomeSuccess,
		ResourceReward, user, CategoryAccrual, nil,
		"user", user,
		"points", points,
	)
}

// OnRewardForfeited implements plugin.OnRewardForfeited.
func (e *Extension) OnRewardForfeited(ctx context.Context, user string, points int64) error {
	return e.record(ctx, ActionRewardForfeited, SeverityWarning, OutcomeSuccess,
		ResourceReward, user, CategoryAccrual, nil,
		"user", user,
		"points", points,
	)
}

// OnPointsBurned implements plugin.OnPointsBurned.
func (e *Extension) OnPointsBurned(ctx context.Context, user string, points int64, reason string) error {
	return e.record(ctx, ActionPointsBurned, SeverityInfo, OutcomeSuccess,
		ResourcePoints, user, CategoryAccrual, nil,
		"user", user,
		"points", points,
		"burn_reason", reason,
	)
}

// OnDebtChanged implements plugin.OnDebtChanged.
func (e *Extension) OnDebtChanged(ctx context.Context, user string, debt int64) error {
	severity := SeverityInfo
	if debt > 0 {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionDebtChanged, severity, OutcomeSuccess,
		ResourceDebt, user, CategoryAccrual, nil,
		"user", user,
		"debt", debt,
	)
}

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnLevelChanged implements plugin.OnLevelChanged.
func (e *Extension) OnLevelChanged(ctx context.Context, user string, oldLevel, newLevel int) error {
	return e.record(ctx, ActionLevelChanged, SeverityInfo, OutcomeSuccess,
		ResourceLevel, user, CategoryTier, nil,
		"user", user,
		"old_level", oldLevel,
		"new_level", newLevel,
	)
}

// ──────────────────────────────────────────────────
// Consumption hooks
// ──────────────────────────────────────────────────

// OnServiceConsumed implements plugin.OnServiceConsumed.
func (e *Extension) OnServiceConsumed(ctx context.Context, user, service string, level int, points int64) error {
	return e.record(ctx, ActionServiceConsumed, SeverityInfo, OutcomeSuccess,
		ResourceService, user, CategoryConsumption, nil,
		"user", user,
		"service", service,
		"level", level,
		"points", points,
	)
}

// OnServiceUpgraded implements plugin.OnServiceUpgraded.
func (e *Extension) OnServiceUpgraded(ctx context.Context, user, service string, level int, points int64) error {
	return e.record(ctx, ActionServiceUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceService, user, CategoryConsumption, nil,
		"user", user,
		"service", service,
		"level", level,
		"points", points,
	)
}

// OnPrivilegeChanged implements plugin.OnPrivilegeChanged.
func (e *Extension) OnPrivilegeChanged(ctx context.Context, user, service string, level int, active bool, packed uint64) error {
	return e.record(ctx, ActionPrivilegeChanged, SeverityInfo, OutcomeSuccess,
		ResourcePrivilege, user, CategoryConsumption, nil,
		"user", user,
		"service", service,
		"level", level,
		"active", active,
		"packed", packed,
	)
}

// ──────────────────────────────────────────────────
// Telemetry hooks
// ──────────────────────────────────────────────────

// OnPushFailed implements plugin.OnPushFailed.
func (e *Extension) OnPushFailed(ctx context.Context, pluginName, hook string, err error) error {
	return e.record(ctx, ActionPushFailed, SeverityError, OutcomeFailure,
		ResourceStats, pluginName, CategoryTelemetry, err,
		"plugin", pluginName,
		"hook", hook,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
