package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	incentive "github.com/xraph/incentive"
	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	incentivestore "github.com/xraph/incentive/store"
)

// compile-time interface check
var _ incentivestore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("incentive/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("incentive/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, user string) (*account.Account, error) {
	m := new(accountModel)
	err := s.pg.NewSelect(m).
		Where("user_id = ?", user).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, incentive.ErrNotFound
		}
		return nil, err
	}
	return fromAccountModel(m), nil
}

func (s *Store) PutAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(user_id) DO UPDATE").
		Set("level = EXCLUDED.level").
		Set("locked_points = EXCLUDED.locked_points").
		Set("locked_maturity = EXCLUDED.locked_maturity").
		Set("debt = EXCLUDED.debt").
		Set("total_loans = EXCLUDED.total_loans").
		Set("eligible_loans = EXCLUDED.eligible_loans").
		Set("on_time_repays = EXCLUDED.on_time_repays").
		Set("total_volume = EXCLUDED.total_volume").
		Set("last_activity = EXCLUDED.last_activity").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel
	q := s.pg.NewSelect(&models)

	if opts.MinLevel > 0 {
		q = q.Where("level >= ?", opts.MinLevel)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("user_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		result[i] = fromAccountModel(&models[i])
	}
	return result, nil
}

// ==================== Order lock Store ====================

func (s *Store) CreateOrderLock(ctx context.Context, l *accrual.OrderLock) error {
	m := toOrderLockModel(l)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetOrderLock(ctx context.Context, orderID string) (*accrual.OrderLock, error) {
	m := new(orderLockModel)
	err := s.pg.NewSelect(m).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, incentive.ErrNotFound
		}
		return nil, err
	}
	return fromOrderLockModel(m)
}

func (s *Store) DeleteOrderLock(ctx context.Context, orderID string) error {
	res, err := s.pg.NewDelete((*orderLockModel)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return incentive.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrderLocks(ctx context.Context, user string) ([]*accrual.OrderLock, error) {
	var models []orderLockModel
	err := s.pg.NewSelect(&models).
		Where("borrower = ?", user).
		OrderExpr("order_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*accrual.OrderLock, len(models))
	for i := range models {
		l, err := fromOrderLockModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Consumption Store ====================

func (s *Store) AppendConsumption(ctx context.Context, r *consumption.Record) error {
	m := toConsumptionModel(r)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListConsumptions(ctx context.Context, user string, opts consumption.ListOpts) ([]*consumption.Record, error) {
	var models []consumptionModel
	q := s.pg.NewSelect(&models).Where("user_id = ?", user)

	if opts.Service != nil {
		q = q.Where("service = ?", int(*opts.Service))
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if !opts.Start.IsZero() {
		q = q.Where("created_at >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("created_at < ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*consumption.Record, len(models))
	for i := range models {
		r, err := fromConsumptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) ActiveConsumptions(ctx context.Context, user string, at time.Time) ([]*consumption.Record, error) {
	var models []consumptionModel
	err := s.pg.NewSelect(&models).
		Where("user_id = ?", user).
		Where("expires_at > ?", at).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*consumption.Record, len(models))
	for i := range models {
		r, err := fromConsumptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) GetCooldownStamp(ctx context.Context, user string, service catalog.ServiceType) (time.Time, error) {
	m := new(cooldownModel)
	err := s.pg.NewSelect(m).
		Where("cooldown_key = ?", cooldownKey(user, service)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return time.Time{}, incentive.ErrNotFound
		}
		return time.Time{}, err
	}
	return m.StampedAt, nil
}

func (s *Store) SetCooldownStamp(ctx context.Context, user string, service catalog.ServiceType, at time.Time) error {
	m := &cooldownModel{
		Key:       cooldownKey(user, service),
		User:      user,
		Service:   int(service),
		StampedAt: at,
	}
	_, err := s.pg.NewInsert(m).
		OnConflict("(cooldown_key) DO UPDATE").
		Set("stamped_at = EXCLUDED.stamped_at").
		Exec(ctx)
	return err
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func cooldownKey(user string, service catalog.ServiceType) string {
	return fmt.Sprintf("%s:%d", user, service)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
