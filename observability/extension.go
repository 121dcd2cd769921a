// Package observability provides a metrics extension for the incentive
// engine that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/incentive/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnRewardLocked     = (*MetricsExtension)(nil)
	_ plugin.OnRewardReleased   = (*MetricsExtension)(nil)
	_ plugin.OnRewardForfeited  = (*MetricsExtension)(nil)
	_ plugin.OnPointsBurned     = (*MetricsExtension)(nil)
	_ plugin.OnDebtChanged      = (*MetricsExtension)(nil)
	_ plugin.OnLevelChanged     = (*MetricsExtension)(nil)
	_ plugin.OnServiceConsumed  = (*MetricsExtension)(nil)
	_ plugin.OnServiceUpgraded  = (*MetricsExtension)(nil)
	_ plugin.OnStatsFlushed     = (*MetricsExtension)(nil)
	_ plugin.OnPushFailed       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track incentive metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Accrual metrics
	RewardsLocked    Counter
	RewardsReleased  Counter
	RewardsForfeited Counter
	PointsBurned     Counter
	LockedVolume     Histogram
	ReleasedVolume   Histogram

	// Debt metrics
	DebtChanges Counter
	DebtLevel   Histogram

	// Tier metrics
	LevelPromotions Counter

	// Consumption metrics
	ServicesConsumed Counter
	ServicesUpgraded Counter
	ConsumedVolume   Histogram

	// Telemetry metrics
	StatsBatchSize    Histogram
	StatsFlushLatency Histogram
	PushFailures      Counter

	// Error metrics
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Accrual metrics
		RewardsLocked:    factory.Counter("incentive.reward.locked"),
		RewardsReleased:  factory.Counter("incentive.reward.released"),
		RewardsForfeited: factory.Counter("incentive.reward.forfeited"),
		PointsBurned:     factory.Counter("incentive.points.burned"),
		LockedVolume:     factory.Histogram("incentive.reward.locked_points"),
		ReleasedVolume:   factory.Histogram("incentive.reward.released_points"),

		// Debt metrics
		DebtChanges: factory.Counter("incentive.debt.changes"),
		DebtLevel:   factory.Histogram("incentive.debt.level"),

		// Tier metrics
		LevelPromotions: factory.Counter("incentive.level.promotions"),

		// Consumption metrics
		ServicesConsumed: factory.Counter("incentive.service.consumed"),
		ServicesUpgraded: factory.Counter("incentive.service.upgraded"),
		ConsumedVolume:   factory.Histogram("incentive.service.consumed_points"),

		// Telemetry metrics
		StatsBatchSize:    factory.Histogram("incentive.stats.batch.size"),
		StatsFlushLatency: factory.Histogram("incentive.stats.flush.latency_ms"),
		PushFailures:      factory.Counter("incentive.stats.push.failures"),

		// Error metrics
		PluginErrors: factory.Counter("incentive.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Accrual hooks
// ──────────────────────────────────────────────────

// OnRewardLocked implements plugin.OnRewardLocked.
func (m *MetricsExtension) OnRewardLocked(_ context.Context, _ string, points int64, _ time.Time) error {
	m.RewardsLocked.Inc()
	m.LockedVolume.Observe(float64(points))
	return nil
}

// OnRewardReleased implements plugin.OnRewardReleased.
func (m *MetricsExtension) OnRewardReleased(_ context.Context, _ string, points int64) error {
	m.RewardsReleased.Inc()
	m.ReleasedVolume.Observe(float64(points))
	return nil
}

// OnRewardForfeited implements plugin.OnRewardForfeited.
func (m *MetricsExtension) OnRewardForfeited(_ context.Context, _ string, _ int64) error {
	m.RewardsForfeited.Inc()
	return nil
}

// OnPointsBurned implements plugin.OnPointsBurned.
func (m *MetricsExtension) OnPointsBurned(_ context.Context, _ string, _ int64, _ string) error {
	m.PointsBurned.Inc()
	return nil
}

// OnDebtChanged implements plugin.OnDebtChanged.
func (m *MetricsExtension) OnDebtChanged(_ context.Context, _ string, debt int64) error {
	m.DebtChanges.Inc()
	m.DebtLevel.Observe(float64(debt))
	return nil
}

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnLevelChanged implements plugin.OnLevelChanged.
func (m *MetricsExtension) OnLevelChanged(_ context.Context, _ string, _, _ int) error {
	m.LevelPromotions.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Consumption hooks
// ──────────────────────────────────────────────────

// OnServiceConsumed implements plugin.OnServiceConsumed.
func (m *MetricsExtension) OnServiceConsumed(_ context.Context, _, _ string, _ int, points int64) error {
	m.ServicesConsumed.Inc()
	m.ConsumedVolume.Observe(float64(points))
	return nil
}

// OnServiceUpgraded implements plugin.OnServiceUpgraded.
func (m *MetricsExtension) OnServiceUpgraded(_ context.Context, _, _ string, _ int, points int64) error {
	m.ServicesUpgraded.Inc()
	m.ConsumedVolume.Observe(float64(points))
	return nil
}

// ──────────────────────────────────────────────────
// Telemetry hooks
// ──────────────────────────────────────────────────

// OnStatsFlushed implements plugin.OnStatsFlushed.
func (m *MetricsExtension) OnStatsFlushed(_ context.Context, events []interface{}, elapsed time.Duration) error {
	m.StatsBatchSize.Observe(float64(len(events)))
	m.StatsFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnPushFailed implements plugin.OnPushFailed.
func (m *MetricsExtension) OnPushFailed(_ context.Context, _, _ string, _ error) error {
	m.PushFailures.Inc()
	m.PluginErrors.Inc()
	return nil
}
