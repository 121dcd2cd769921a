package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onRewardLocked     []OnRewardLocked
	onRewardReleased   []OnRewardReleased
	onRewardForfeited  []OnRewardForfeited
	onPointsBurned     []OnPointsBurned
	onDebtChanged      []OnDebtChanged
	onLevelChanged     []OnLevelChanged
	onServiceConsumed  []OnServiceConsumed
	onServiceUpgraded  []OnServiceUpgraded
	onPrivilegeChanged []OnPrivilegeChanged
	onStatsFlushed     []OnStatsFlushed
	onPushFailed       []OnPushFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnRewardLocked); ok {
		r.onRewardLocked = append(r.onRewardLocked, v)
	}
	if v, ok := p.(OnRewardReleased); ok {
		r.onRewardReleased = append(r.onRewardReleased, v)
	}
	if v, ok := p.(OnRewardForfeited); ok {
		r.onRewardForfeited = append(r.onRewardForfeited, v)
	}
	if v, ok := p.(OnPointsBurned); ok {
		r.onPointsBurned = append(r.onPointsBurned, v)
	}
	if v, ok := p.(OnDebtChanged); ok {
		r.onDebtChanged = append(r.onDebtChanged, v)
	}
	if v, ok := p.(OnLevelChanged); ok {
		r.onLevelChanged = append(r.onLevelChanged, v)
	}
	if v, ok := p.(OnServiceConsumed); ok {
		r.onServiceConsumed = append(r.onServiceConsumed, v)
	}
	if v, ok := p.(OnServiceUpgraded); ok {
		r.onServiceUpgraded = append(r.onServiceUpgraded, v)
	}
	if v, ok := p.(OnPrivilegeChanged); ok {
		r.onPrivilegeChanged = append(r.onPrivilegeChanged, v)
	}
	if v, ok := p.(OnStatsFlushed); ok {
		r.onStatsFlushed = append(r.onStatsFlushed, v)
	}
	if v, ok := p.(OnPushFailed); ok {
		r.onPushFailed = append(r.onPushFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnRewardLocked)(nil)).Elem(), "OnRewardLocked")
	checkInterface(reflect.TypeOf((*OnRewardReleased)(nil)).Elem(), "OnRewardReleased")
	checkInterface(reflect.TypeOf((*OnRewardForfeited)(nil)).Elem(), "OnRewardForfeited")
	checkInterface(reflect.TypeOf((*OnPointsBurned)(nil)).Elem(), "OnPointsBurned")
	checkInterface(reflect.TypeOf((*OnDebtChanged)(nil)).Elem(), "OnDebtChanged")
	checkInterface(reflect.TypeOf((*OnLevelChanged)(nil)).Elem(), "OnLevelChanged")
	checkInterface(reflect.TypeOf((*OnServiceConsumed)(nil)).Elem(), "OnServiceConsumed")
	checkInterface(reflect.TypeOf((*OnServiceUpgraded)(nil)).Elem(), "OnServiceUpgraded")
	checkInterface(reflect.TypeOf((*OnPrivilegeChanged)(nil)).Elem(), "OnPrivilegeChanged")
	checkInterface(reflect.TypeOf((*OnStatsFlushed)(nil)).Elem(), "OnStatsFlushed")
	checkInterface(reflect.TypeOf((*OnPushFailed)(nil)).Elem(), "OnPushFailed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnInit", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnShutdown", err)
		}
	}
}

// EmitRewardLocked emits a reward locked event.
func (r *Registry) EmitRewardLocked(ctx context.Context, user string, points int64, maturity time.Time) {
	r.mu.RLock()
	plugins := r.onRewardLocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardLocked(ctx, user, points, maturity)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnRewardLocked", err)
		}
	}
}

// EmitRewardReleased emits a reward released event.
func (r *Registry) EmitRewardReleased(ctx context.Context, user string, points int64) {
	r.mu.RLock()
	plugins := r.onRewardReleased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardReleased(ctx, user, points)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnRewardReleased", err)
		}
	}
}

// EmitRewardForfeited emits a reward forfeited event.
func (r *Registry) EmitRewardForfeited(ctx context.Context, user string, points int64) {
	r.mu.RLock()
	plugins := r.onRewardForfeited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardForfeited(ctx, user, points)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnRewardForfeited", err)
		}
	}
}

// EmitPointsBurned emits a points burned event.
func (r *Registry) EmitPointsBurned(ctx context.Context, user string, points int64, reason string) {
	r.mu.RLock()
	plugins := r.onPointsBurned
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPointsBurned(ctx, user, points, reason)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnPointsBurned", err)
		}
	}
}

// EmitDebtChanged emits a debt changed event.
func (r *Registry) EmitDebtChanged(ctx context.Context, user string, debt int64) {
	r.mu.RLock()
	plugins := r.onDebtChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDebtChanged(ctx, user, debt)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnDebtChanged", err)
		}
	}
}

// EmitLevelChanged emits a level changed event.
func (r *Registry) EmitLevelChanged(ctx context.Context, user string, oldLevel, newLevel int) {
	r.mu.RLock()
	plugins := r.onLevelChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLevelChanged(ctx, user, oldLevel, newLevel)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnLevelChanged", err)
		}
	}
}

// EmitServiceConsumed emits a service consumed event.
func (r *Registry) EmitServiceConsumed(ctx context.Context, user, service string, level int, points int64) {
	r.mu.RLock()
	plugins := r.onServiceConsumed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnServiceConsumed(ctx, user, service, level, points)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnServiceConsumed", err)
		}
	}
}

// EmitServiceUpgraded emits a service upgraded event.
func (r *Registry) EmitServiceUpgraded(ctx context.Context, user, service string, level int, points int64) {
	r.mu.RLock()
	plugins := r.onServiceUpgraded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnServiceUpgraded(ctx, user, service, level, points)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnServiceUpgraded", err)
		}
	}
}

// EmitPrivilegeChanged emits a privilege changed event.
func (r *Registry) EmitPrivilegeChanged(ctx context.Context, user, service string, level int, active bool, packed uint64) {
	r.mu.RLock()
	plugins := r.onPrivilegeChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPrivilegeChanged(ctx, user, service, level, active, packed)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnPrivilegeChanged", err)
		}
	}
}

// EmitStatsFlushed emits a stats flushed event.
func (r *Registry) EmitStatsFlushed(ctx context.Context, events []interface{}, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onStatsFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStatsFlushed(ctx, events, elapsed)
		}); err != nil {
			r.hookFailed(ctx, p.Name(), "OnStatsFlushed", err)
		}
	}
}

// hookFailed logs a failed hook and notifies OnPushFailed observers.
// Failures in the observers themselves are only logged.
func (r *Registry) hookFailed(ctx context.Context, plugin, hook string, err error) {
	r.logger.Warn("plugin hook failed",
		"plugin", plugin,
		"hook", hook,
		"error", err,
	)

	r.mu.RLock()
	observers := r.onPushFailed
	r.mu.RUnlock()

	for _, o := range observers {
		if o.Name() == plugin {
			continue
		}
		if obsErr := r.callWithTimeout(ctx, o.Name(), func() error {
			return o.OnPushFailed(ctx, plugin, hook, err)
		}); obsErr != nil {
			r.logger.Warn("plugin OnPushFailed failed",
				"plugin", o.Name(),
				"error", obsErr,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the accrual or consumption pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
