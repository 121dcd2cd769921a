// Package authz defines the capability check gating privileged engine
// entry points.
//
// The authorization backend itself is external; the engine only asks
// "may this caller perform this action?". Caller identity travels on the
// context so that transport adapters can stamp it once at the boundary.
package authz

import (
	"context"
	"fmt"
)

// Action names a privileged capability.
type Action string

const (
	// ActionDeliverLoanEvent gates the loan-event source entry points.
	ActionDeliverLoanEvent Action = "deliver_loan_event"
	// ActionDeductPoints gates the out-of-band penalty trigger.
	ActionDeductPoints Action = "deduct_points"
	// ActionSetParams gates every administrative parameter setter.
	ActionSetParams Action = "set_params"
	// ActionOverrideLevel gates the explicit tier override path.
	ActionOverrideLevel Action = "override_level"
)

// Authorizer is the capability check. Require fails the whole operation
// when the caller lacks the named capability.
type Authorizer interface {
	Require(ctx context.Context, action Action, caller string) error
}

// ──────────────────────────────────────────────────
// Caller context plumbing
// ──────────────────────────────────────────────────

type callerKey struct{}

// WithCaller stamps the caller identity onto the context.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext extracts the caller identity, or "" if absent.
func CallerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok {
		return v
	}
	return ""
}

// ──────────────────────────────────────────────────
// Implementations
// ──────────────────────────────────────────────────

// AllowAll grants every capability to every caller. Test/dev only.
type AllowAll struct{}

// Require implements Authorizer.
func (AllowAll) Require(context.Context, Action, string) error { return nil }

// Static is a fixed action -> allowed-callers table.
type Static map[Action][]string

// Require implements Authorizer.
func (s Static) Require(_ context.Context, action Action, caller string) error {
	for _, allowed := range s[action] {
		if allowed == caller {
			return nil
		}
	}
	return fmt.Errorf("authz: caller %q lacks capability %q", caller, action)
}
