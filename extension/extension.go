// Package extension provides the Forge extension adapter for Incentive.
//
// It implements the forge.Extension interface to integrate the incentive
// engine into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.incentive" or
// "incentive" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	incentive "github.com/xraph/incentive"
	"github.com/xraph/incentive/store"
	"github.com/xraph/incentive/store/memory"
	mongostore "github.com/xraph/incentive/store/mongo"
	"github.com/xraph/incentive/store/postgres"
	"github.com/xraph/incentive/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "incentive"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Points-based incentive engine for lending platforms"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the incentive engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *incentive.Engine
	store      store.Store
	groveDB    *grove.DB
	engineOpts []incentive.Option
}

// New creates a new Incentive Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying incentive engine.
// This is nil until Register is called.
func (e *Extension) Engine() *incentive.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the incentive engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// A grove.DB supplied programmatically takes precedence over the
	// memory fallback but never over an explicit store.
	if e.store == nil && e.groveDB != nil {
		s, err := e.buildGroveStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := incentive.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*incentive.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("incentive: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("incentive: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildGroveStore constructs the store backend named by Config.StoreDriver
// around the grove.DB supplied via WithGroveDB.
func (e *Extension) buildGroveStore() (store.Store, error) {
	switch e.config.StoreDriver {
	case "postgres", "pg":
		return postgres.New(e.groveDB), nil
	case "sqlite":
		return sqlite.New(e.groveDB), nil
	case "mongo", "mongodb":
		return mongostore.New(e.groveDB), nil
	case "":
		return nil, errors.New("incentive: store_driver is required when a grove database is supplied")
	default:
		return nil, fmt.Errorf("incentive: unknown store_driver %q", e.config.StoreDriver)
	}
}

// buildEngineOpts constructs incentive.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []incentive.Option {
	opts := make([]incentive.Option, 0, len(e.engineOpts)+2)

	// Apply config-derived options.
	if e.config.StatsBatchSize > 0 || e.config.StatsFlushInterval > 0 {
		batchSize := e.config.StatsBatchSize
		flushInterval := e.config.StatsFlushInterval
		defaults := DefaultConfig()
		if batchSize == 0 {
			batchSize = defaults.StatsBatchSize
		}
		if flushInterval == 0 {
			flushInterval = defaults.StatsFlushInterval
		}
		opts = append(opts, incentive.WithStatsConfig(batchSize, flushInterval))
	}

	if e.config.BatchCap > 0 {
		opts = append(opts, incentive.WithBatchCap(e.config.BatchCap))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("incentive: configuration is required but not found in config files; " +
				"ensure 'extensions.incentive' or 'incentive' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("incentive: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("stats_batch_size", e.config.StatsBatchSize),
		forge.F("stats_flush_interval", e.config.StatsFlushInterval),
		forge.F("batch_cap", e.config.BatchCap),
		forge.F("store_driver", e.config.StoreDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.incentive" first (namespaced pattern).
	if cm.IsSet("extensions.incentive") {
		if err := cm.Bind("extensions.incentive", &cfg); err == nil {
			e.Logger().Debug("incentive: loaded config from file",
				forge.F("key", "extensions.incentive"),
			)
			return cfg, true
		}
		e.Logger().Warn("incentive: failed to bind extensions.incentive config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "incentive" key.
	if cm.IsSet("incentive") {
		if err := cm.Bind("incentive", &cfg); err == nil {
			e.Logger().Debug("incentive: loaded config from file",
				forge.F("key", "incentive"),
			)
			return cfg, true
		}
		e.Logger().Warn("incentive: failed to bind incentive config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.StatsBatchSize == 0 {
		cfg.StatsBatchSize = defaults.StatsBatchSize
	}
	if cfg.StatsFlushInterval == 0 {
		cfg.StatsFlushInterval = defaults.StatsFlushInterval
	}
	if cfg.BatchCap == 0 {
		cfg.BatchCap = defaults.BatchCap
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.StoreDriver == "" && programmaticConfig.StoreDriver != "" {
		yamlConfig.StoreDriver = programmaticConfig.StoreDriver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.StatsBatchSize == 0 && programmaticConfig.StatsBatchSize != 0 {
		yamlConfig.StatsBatchSize = programmaticConfig.StatsBatchSize
	}
	if yamlConfig.StatsFlushInterval == 0 && programmaticConfig.StatsFlushInterval != 0 {
		yamlConfig.StatsFlushInterval = programmaticConfig.StatsFlushInterval
	}
	if yamlConfig.BatchCap == 0 && programmaticConfig.BatchCap != 0 {
		yamlConfig.BatchCap = programmaticConfig.BatchCap
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
