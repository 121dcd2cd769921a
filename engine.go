package incentive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/authz"
	"github.com/xraph/incentive/balance"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/id"
	"github.com/xraph/incentive/plugin"
	"github.com/xraph/incentive/store"
	"github.com/xraph/incentive/tier"
	"github.com/xraph/incentive/types"
)

// Engine is the points accrual/consumption engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// External collaborators
	balance  balance.Service
	catalog  catalog.Resolver
	authz    authz.Authorizer

	// opMu serializes every mutating entry point. Overlap — a concurrent
	// call or a collaborator calling back into the engine mid-operation —
	// is rejected with ErrReentrantCall rather than queued.
	opMu sync.Mutex

	// Tunable parameters, mutated only under opMu via the admin setters.
	params      accrual.Params
	thresholds  tier.Thresholds
	multipliers tier.Multipliers
	upgradeBps  uint32
	batchCap    int

	// now is swappable for tests.
	now func() time.Time

	// Background stats worker
	statsBuffer        chan *StatsEvent
	stopChan           chan struct{}
	wg                 sync.WaitGroup
	statsBatchSize     int
	statsFlushInterval time.Duration
}

// StatsEvent is one aggregate-stats datapoint pushed to the telemetry
// plugins by the background worker.
type StatsEvent struct {
	ID     id.StatsEventID `json:"id"`
	User   string          `json:"user"`
	Kind   string          `json:"kind"`
	Points types.Points    `json:"points"`
	At     time.Time       `json:"at"`
}

// Stats event kinds.
const (
	StatRewardLocked    = "reward_locked"
	StatRewardReleased  = "reward_released"
	StatRewardForfeited = "reward_forfeited"
	StatPointsBurned    = "points_burned"
	StatServiceConsumed = "service_consumed"
	StatServiceUpgraded = "service_upgraded"
)

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		plugins:            plugin.NewRegistry(),
		logger:             slog.Default(),
		balance:            balance.NewMemory(),
		catalog:            catalog.NewStatic(),
		authz:              authz.AllowAll{},
		params:             accrual.DefaultParams(),
		thresholds:         tier.DefaultThresholds(),
		multipliers:        tier.DefaultMultipliers(),
		upgradeBps:         8000,
		batchCap:           100,
		now:                time.Now,
		statsBuffer:        make(chan *StatsEvent, 10000),
		stopChan:           make(chan struct{}),
		statsBatchSize:     100,
		statsFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithBalance sets the points-balance collaborator.
func WithBalance(b balance.Service) Option {
	return func(e *Engine) {
		e.balance = b
	}
}

// WithCatalog sets the service catalog resolver.
func WithCatalog(r catalog.Resolver) Option {
	return func(e *Engine) {
		e.catalog = r
	}
}

// WithAuthorizer sets the capability check for privileged entry points.
func WithAuthorizer(a authz.Authorizer) Option {
	return func(e *Engine) {
		e.authz = a
	}
}

// WithParams sets the accrual parameters.
func WithParams(p accrual.Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithTierTable sets the promotion thresholds and level multipliers.
func WithTierTable(th tier.Thresholds, m tier.Multipliers) Option {
	return func(e *Engine) {
		e.thresholds = th
		e.multipliers = m
	}
}

// WithUpgradeMultiplierBps sets the tier-upgrade pricing factor.
func WithUpgradeMultiplierBps(bps uint32) Option {
	return func(e *Engine) {
		e.upgradeBps = bps
	}
}

// WithBatchCap bounds the number of items accepted per batch call.
func WithBatchCap(n int) Option {
	return func(e *Engine) {
		e.batchCap = n
	}
}

// WithStatsConfig configures the stats flush worker.
func WithStatsConfig(batchSize int, flushInterval time.Duration) Option {
	return func(e *Engine) {
		e.statsBatchSize = batchSize
		e.statsFlushInterval = flushInterval
	}
}

// WithClock overrides the engine's time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start stats flush worker
	e.wg.Add(1)
	go e.statsFlushWorker(ctx)

	e.logger.Info("incentive engine started",
		"stats_batch_size", e.statsBatchSize,
		"stats_flush_interval", e.statsFlushInterval,
		"batch_cap", e.batchCap,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the plugin registry for inspection.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// ──────────────────────────────────────────────────
// Operation guard
// ──────────────────────────────────────────────────

// begin takes the reentrancy lock for a mutating entry point.
func (e *Engine) begin() error {
	if !e.opMu.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

// end releases the reentrancy lock.
func (e *Engine) end() {
	e.opMu.Unlock()
}

// ──────────────────────────────────────────────────
// Stats worker
// ──────────────────────────────────────────────────

// recordStat queues an aggregate-stats event (non-blocking). A full buffer
// drops the event; stats are best-effort telemetry.
func (e *Engine) recordStat(user, kind string, points types.Points) {
	ev := &StatsEvent{
		ID:     id.NewStatsEventID(),
		User:   user,
		Kind:   kind,
		Points: points,
		At:     e.now(),
	}

	select {
	case e.statsBuffer <- ev:
	default:
		e.logger.Debug("stats buffer full, dropping event", "kind", kind)
	}
}

// statsFlushWorker flushes buffered stats events to the plugins.
func (e *Engine) statsFlushWorker(ctx context.Context) {
	defer e.wg.Done()

	// Snapshot the config so runtime changes only apply to the next worker.
	batchSize := e.statsBatchSize
	batch := make([]*StatsEvent, 0, batchSize)
	ticker := time.NewTicker(e.statsFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			// Final flush
			if len(batch) > 0 {
				e.flushStatsBatch(ctx, batch)
			}
			return

		case ev := <-e.statsBuffer:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				e.flushStatsBatch(ctx, batch)
				batch = make([]*StatsEvent, 0, batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				e.flushStatsBatch(ctx, batch)
				batch = make([]*StatsEvent, 0, batchSize)
			}
		}
	}
}

func (e *Engine) flushStatsBatch(ctx context.Context, batch []*StatsEvent) {
	start := time.Now()

	events := make([]interface{}, len(batch))
	for i, ev := range batch {
		events[i] = ev
	}
	e.plugins.EmitStatsFlushed(ctx, events, time.Since(start))

	e.logger.Debug("flushed stats batch",
		"batch_size", len(batch),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
