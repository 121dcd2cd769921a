package incentive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	"github.com/xraph/incentive/privilege"
	"github.com/xraph/incentive/types"
)

// ConsumeRequest is one service purchase or upgrade.
type ConsumeRequest struct {
	User    string              `json:"user"`
	Service catalog.ServiceType `json:"service"`
	Level   int                 `json:"level"`
}

// ConsumeService purchases one level of a privileged service for a user,
// burning its catalog price from the spendable balance and recording the
// grant. Repeat purchases of the same service type are rate-limited by
// the provider's cooldown regardless of level.
func (e *Engine) ConsumeService(ctx context.Context, req ConsumeRequest) (*consumption.Record, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	rec, err := e.applyConsume(ctx, req, consumption.KindPurchase)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpgradeService moves a user's active grant for a service to a higher
// level. The price is the target level's catalog cost scaled by the
// upgrade multiplier, so upgrading is never more expensive than buying
// the target level outright. The service cooldown applies the same as
// for a purchase.
func (e *Engine) UpgradeService(ctx context.Context, req ConsumeRequest) (*consumption.Record, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	current, err := e.activeLevel(ctx, req.User, req.Service)
	if err != nil {
		return nil, err
	}
	if current == 0 {
		return nil, fmt.Errorf("%w: no active grant for %s", ErrInvalidInput, req.Service)
	}
	if req.Level <= current {
		return nil, fmt.Errorf("%w: level %d is not above current %d", ErrInvalidLevel, req.Level, current)
	}

	rec, err := e.applyConsume(ctx, req, consumption.KindUpgrade)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ConsumeBatch applies several purchases atomically: every item is
// validated and priced first, and any failure rejects the whole batch
// before a single point is burned.
func (e *Engine) ConsumeBatch(ctx context.Context, reqs []ConsumeRequest) ([]*consumption.Record, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if len(reqs) > e.batchCap {
		return nil, fmt.Errorf("%w: %d items (cap %d)", ErrBatchTooLarge, len(reqs), e.batchCap)
	}
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	now := e.now()

	type staged struct {
		req      ConsumeRequest
		cfg      catalog.Config
		cooldown time.Duration
	}

	plan := make([]staged, 0, len(reqs))
	totals := make(map[string]types.Points, len(reqs))

	// Validation pass. Nothing is written until every item clears.
	for i, req := range reqs {
		cfg, cd, err := e.resolveService(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if err := e.checkCooldown(ctx, req.User, req.Service, cd, now); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		totals[req.User] += cfg.Price
		plan = append(plan, staged{req: req, cfg: cfg, cooldown: cd})
	}

	// Same service twice in one batch for one user would dodge the
	// cooldown check above; reject it outright.
	seen := make(map[string]struct{}, len(reqs))
	for i, s := range plan {
		key := s.req.User + "/" + s.req.Service.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("item %d: %w: duplicate service in batch", i, ErrCooldownActive)
		}
		seen[key] = struct{}{}
	}

	for user, total := range totals {
		held, err := e.balance.BalanceOf(ctx, user)
		if err != nil {
			return nil, err
		}
		if held < total {
			return nil, fmt.Errorf("user %s: %w: need %s, have %s",
				user, ErrInsufficientBalance, total.String(), held.String())
		}
	}

	// Apply pass.
	records := make([]*consumption.Record, 0, len(plan))
	for _, s := range plan {
		rec, err := e.commitConsume(ctx, s.req, consumption.KindPurchase, s.cfg, s.cooldown, now)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// applyConsume validates and commits one consumption; caller holds opMu.
func (e *Engine) applyConsume(ctx context.Context, req ConsumeRequest, kind consumption.Kind) (*consumption.Record, error) {
	now := e.now()

	cfg, cooldown, err := e.resolveService(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.checkCooldown(ctx, req.User, req.Service, cooldown, now); err != nil {
		return nil, err
	}

	if kind == consumption.KindUpgrade {
		// Upgrades pay the target level's price scaled by the upgrade
		// multiplier, not the level difference.
		cfg.Price = cfg.Price.MulBps(e.upgradeBps)
	}

	return e.commitConsume(ctx, req, kind, cfg, cooldown, now)
}

// commitConsume burns the price and persists the record. Validation has
// already passed; a burn failure here still aborts cleanly because the
// burn is the first write.
func (e *Engine) commitConsume(ctx context.Context, req ConsumeRequest, kind consumption.Kind, cfg catalog.Config, cooldown time.Duration, now time.Time) (*consumption.Record, error) {
	if cfg.Price > 0 {
		if err := e.balance.Burn(ctx, req.User, cfg.Price); err != nil {
			return nil, err
		}
	}

	rec := consumption.NewRecord(req.User, req.Service, req.Level, kind, cfg.Price, now.Add(cfg.Duration))
	if err := e.store.AppendConsumption(ctx, rec); err != nil {
		// Refund so the failure leaves no trace on the balance.
		if cfg.Price > 0 {
			if mintErr := e.balance.Mint(ctx, req.User, cfg.Price); mintErr != nil {
				e.logger.Error("refund after failed consumption write",
					"user", req.User,
					"points", cfg.Price.String(),
					"error", mintErr,
				)
			}
		}
		return nil, err
	}

	if cooldown > 0 {
		if err := e.store.SetCooldownStamp(ctx, req.User, req.Service, now); err != nil {
			e.logger.Warn("cooldown stamp write failed",
				"user", req.User,
				"service", req.Service.String(),
				"error", err,
			)
		}
	}

	switch kind {
	case consumption.KindUpgrade:
		e.plugins.EmitServiceUpgraded(ctx, req.User, req.Service.String(), req.Level, int64(cfg.Price))
		e.recordStat(req.User, StatServiceUpgraded, cfg.Price)
	default:
		e.plugins.EmitServiceConsumed(ctx, req.User, req.Service.String(), req.Level, int64(cfg.Price))
		e.recordStat(req.User, StatServiceConsumed, cfg.Price)
	}

	// Mirror the full privilege bitmap to subscribers. Best effort: a
	// recompute failure only degrades the event, never the consumption.
	var packed uint64
	if records, err := e.store.ActiveConsumptions(ctx, req.User, now); err == nil {
		packed = privilege.FromRecords(records, now).Pack()
	} else {
		e.logger.Warn("privilege recompute failed",
			"user", req.User,
			"error", err,
		)
	}
	e.plugins.EmitPrivilegeChanged(ctx, req.User, req.Service.String(), req.Level, true, packed)

	e.logger.Info("service consumed",
		"user", req.User,
		"service", req.Service.String(),
		"level", req.Level,
		"kind", string(kind),
		"price", cfg.Price.String(),
	)
	return rec, nil
}

// resolveService validates the request shape and looks up the catalog
// configuration and cooldown for the requested level.
func (e *Engine) resolveService(ctx context.Context, req ConsumeRequest) (catalog.Config, time.Duration, error) {
	if req.User == "" {
		return catalog.Config{}, 0, fmt.Errorf("%w: empty user", ErrInvalidInput)
	}
	if !req.Service.Valid() {
		return catalog.Config{}, 0, fmt.Errorf("%w: %d", ErrServiceNotFound, req.Service)
	}
	if req.Level < 1 || req.Level > catalog.MaxServiceLevel {
		return catalog.Config{}, 0, fmt.Errorf("%w: %d", ErrInvalidLevel, req.Level)
	}
	return e.resolveServiceLevel(ctx, req.Service, req.Level)
}

func (e *Engine) resolveServiceLevel(ctx context.Context, svc catalog.ServiceType, level int) (catalog.Config, time.Duration, error) {
	provider, err := e.catalog.Resolve(ctx, svc)
	if err != nil {
		return catalog.Config{}, 0, fmt.Errorf("%w: %s", ErrServiceNotFound, svc)
	}

	cfg, err := provider.GetConfig(ctx, level)
	if err != nil {
		// The catalog answered but could not produce a config; never
		// guess a price.
		return catalog.Config{}, 0, fmt.Errorf("%w: %s level %d: %v", ErrCatalogUnavailable, svc, level, err)
	}
	if !cfg.Active {
		return catalog.Config{}, 0, fmt.Errorf("%w: %s level %d", ErrServiceInactive, svc, level)
	}

	cooldown, err := provider.Cooldown(ctx)
	if err != nil {
		return catalog.Config{}, 0, fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, svc, err)
	}
	return cfg, cooldown, nil
}

// checkCooldown rejects a purchase inside the provider's cooldown window.
// The window is keyed per user and service type, independent of level.
func (e *Engine) checkCooldown(ctx context.Context, user string, svc catalog.ServiceType, cooldown time.Duration, now time.Time) error {
	if cooldown <= 0 {
		return nil
	}
	last, err := e.store.GetCooldownStamp(ctx, user, svc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if wait := cooldown - now.Sub(last); wait > 0 {
		return fmt.Errorf("%w: %s available in %s", ErrCooldownActive, svc, wait.Round(time.Second))
	}
	return nil
}

// activeLevel returns the highest currently-active grant level for a
// service, or 0 when none exists.
func (e *Engine) activeLevel(ctx context.Context, user string, svc catalog.ServiceType) (int, error) {
	records, err := e.store.ActiveConsumptions(ctx, user, e.now())
	if err != nil {
		return 0, err
	}
	level := 0
	for _, rec := range records {
		if rec.Service == svc && rec.Level > level {
			level = rec.Level
		}
	}
	return level, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Balance returns a user's spendable points balance.
func (e *Engine) Balance(ctx context.Context, user string) (types.Points, error) {
	return e.balance.BalanceOf(ctx, user)
}

// Privileges returns a snapshot of a user's active service grants.
func (e *Engine) Privileges(ctx context.Context, user string) (privilege.Summary, error) {
	records, err := e.store.ActiveConsumptions(ctx, user, e.now())
	if err != nil {
		return privilege.Summary{}, err
	}
	return privilege.FromRecords(records, e.now()), nil
}

// PackedPrivileges returns the compact bitmap form of a user's grants,
// suitable for embedding in tokens or cache entries.
func (e *Engine) PackedPrivileges(ctx context.Context, user string) (uint64, error) {
	sum, err := e.Privileges(ctx, user)
	if err != nil {
		return 0, err
	}
	return sum.Pack(), nil
}

// History lists a user's consumption records, newest first.
func (e *Engine) History(ctx context.Context, user string, opts consumption.ListOpts) ([]*consumption.Record, error) {
	return e.store.ListConsumptions(ctx, user, opts)
}

// AccountInfo is the externally visible view of an incentive account.
type AccountInfo struct {
	User           string          `json:"user"`
	Level          int             `json:"level"`
	Balance        types.Points    `json:"balance"`
	LockedPoints   types.Points    `json:"locked_points"`
	Debt           types.Points    `json:"debt"`
	TotalLoans     uint64          `json:"total_loans"`
	EligibleLoans  uint64          `json:"eligible_loans"`
	OnTimeRepays   uint64          `json:"on_time_repays"`
	TotalVolume    types.Principal `json:"total_volume"`
	LastActivity   time.Time       `json:"last_activity"`
}

// GetAccount returns the combined account view for a user.
func (e *Engine) GetAccount(ctx context.Context, user string) (*AccountInfo, error) {
	acct, err := e.store.GetAccount(ctx, user)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, user)
		}
		return nil, err
	}
	bal, err := e.balance.BalanceOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{
		User:          acct.User,
		Level:         acct.Level,
		Balance:       bal,
		LockedPoints:  acct.LockedPoints,
		Debt:          acct.Debt,
		TotalLoans:    acct.Counters.TotalLoans,
		EligibleLoans: acct.Counters.EligibleLoans,
		OnTimeRepays:  acct.Counters.OnTimeRepays,
		TotalVolume:   acct.Counters.TotalVolume,
		LastActivity:  acct.LastActivity,
	}, nil
}
