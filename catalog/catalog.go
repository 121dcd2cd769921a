// Package catalog defines the external service catalog collaborator.
//
// The catalog owns pricing, duration and availability for every
// (service type, service level) pair. It is read-only to the engine: the
// engine resolves a Provider per service type at call time and never
// mutates catalog state. A Static in-memory implementation is included for
// tests and simple deployments.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/incentive/types"
)

// ServiceType identifies one of the platform's tiered services.
type ServiceType uint8

const (
	ServiceCreditBoost ServiceType = iota
	ServiceRateDiscount
	ServiceFastTrack
	ServiceInsuranceWaiver
	ServiceAdvisory

	// NumServiceTypes bounds the valid ServiceType range.
	NumServiceTypes = 5
)

// MaxServiceLevel is the highest level a service can be offered at.
const MaxServiceLevel = 5

var serviceNames = map[ServiceType]string{
	ServiceCreditBoost:     "credit_boost",
	ServiceRateDiscount:    "rate_discount",
	ServiceFastTrack:       "fast_track",
	ServiceInsuranceWaiver: "insurance_waiver",
	ServiceAdvisory:        "advisory",
}

// String returns the canonical service name.
func (s ServiceType) String() string {
	if name, ok := serviceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("service_%d", uint8(s))
}

// Valid reports whether the service type is in range.
func (s ServiceType) Valid() bool { return s < NumServiceTypes }

// Config describes one (service type, level) offering.
type Config struct {
	Price       types.Points  `json:"price"`
	Duration    time.Duration `json:"duration"`
	Active      bool          `json:"active"`
	Level       int           `json:"level"`
	Description string        `json:"description"`
}

// Provider exposes the catalog entry for a single service type.
type Provider interface {
	// GetConfig returns the offering at the given level.
	GetConfig(ctx context.Context, level int) (Config, error)
	// Cooldown returns the minimum time between successive purchases of
	// this service type by the same user. Level-independent.
	Cooldown(ctx context.Context) (time.Duration, error)
}

// Resolver locates the Provider for a service type. Resolution failure
// means the action cannot be priced and must fail.
type Resolver interface {
	Resolve(ctx context.Context, service ServiceType) (Provider, error)
}

// ──────────────────────────────────────────────────
// Static implementation
// ──────────────────────────────────────────────────

// Static is an in-memory Resolver backed by fixed entries.
type Static struct {
	entries map[ServiceType]*StaticProvider
}

// NewStatic creates an empty static catalog.
func NewStatic() *Static {
	return &Static{entries: make(map[ServiceType]*StaticProvider)}
}

// Add registers a provider for a service type, replacing any previous one.
func (s *Static) Add(service ServiceType, p *StaticProvider) *Static {
	s.entries[service] = p
	return s
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, service ServiceType) (Provider, error) {
	p, ok := s.entries[service]
	if !ok {
		return nil, fmt.Errorf("catalog: no provider for %s", service)
	}
	return p, nil
}

// StaticProvider is a fixed per-service catalog entry set.
type StaticProvider struct {
	configs  map[int]Config
	cooldown time.Duration
}

// NewStaticProvider creates a provider with the given cooldown.
func NewStaticProvider(cooldown time.Duration) *StaticProvider {
	return &StaticProvider{
		configs:  make(map[int]Config),
		cooldown: cooldown,
	}
}

// SetLevel registers the offering at a level.
func (p *StaticProvider) SetLevel(level int, cfg Config) *StaticProvider {
	cfg.Level = level
	p.configs[level] = cfg
	return p
}

// GetConfig implements Provider.
func (p *StaticProvider) GetConfig(_ context.Context, level int) (Config, error) {
	cfg, ok := p.configs[level]
	if !ok {
		return Config{}, fmt.Errorf("catalog: no config for level %d", level)
	}
	return cfg, nil
}

// Cooldown implements Provider.
func (p *StaticProvider) Cooldown(_ context.Context) (time.Duration, error) {
	return p.cooldown, nil
}
