package extension

import "time"

// Config holds the Incentive extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.incentive" or "incentive" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for incentive routes (default: "/incentive").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// StatsBatchSize is the number of stats events to buffer before flushing
	// to registered telemetry plugins (default: 100).
	StatsBatchSize int `json:"stats_batch_size" mapstructure:"stats_batch_size" yaml:"stats_batch_size"`

	// StatsFlushInterval is how frequently the stats buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	StatsFlushInterval time.Duration `json:"stats_flush_interval" mapstructure:"stats_flush_interval" yaml:"stats_flush_interval"`

	// BatchCap is the maximum number of items accepted by batch operations
	// (default: 100).
	BatchCap int `json:"batch_cap" mapstructure:"batch_cap" yaml:"batch_cap"`

	// StoreDriver selects the store backend constructed from the grove.DB
	// supplied via WithGroveDB. One of "postgres", "sqlite", "mongo".
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StatsBatchSize:     100,
		StatsFlushInterval: 5 * time.Second,
		BatchCap:           100,
	}
}
