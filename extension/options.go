package extension

import (
	"time"

	"github.com/xraph/grove"

	incentive "github.com/xraph/incentive"
	"github.com/xraph/incentive/plugin"
	"github.com/xraph/incentive/store"
)

// Option configures the Incentive Forge extension.
type Option func(*Extension)

// WithStore sets the store for the incentive engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes an incentive.Option through to the underlying engine.
func WithEngineOption(opt incentive.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an incentive plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, incentive.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for incentive routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithStatsBatchSize sets the number of stats events to buffer before flushing.
func WithStatsBatchSize(size int) Option {
	return func(e *Extension) { e.config.StatsBatchSize = size }
}

// WithStatsFlushInterval sets how frequently the stats buffer is flushed.
func WithStatsFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.StatsFlushInterval = d }
}

// WithBatchCap sets the maximum number of items accepted by batch operations.
func WithBatchCap(n int) Option {
	return func(e *Extension) { e.config.BatchCap = n }
}

// WithGroveDB supplies a grove.DB for store construction. The store backend
// is selected by Config.StoreDriver ("postgres", "sqlite" or "mongo").
// An explicit WithStore takes precedence over the constructed store.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		if driver != "" {
			e.config.StoreDriver = driver
		}
	}
}
