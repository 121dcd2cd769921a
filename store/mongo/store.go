package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	incentive "github.com/xraph/incentive"
	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	incentivestore "github.com/xraph/incentive/store"
)

// Collection name constants.
const (
	colAccounts     = "incentive_accounts"
	colOrderLocks   = "incentive_order_locks"
	colConsumptions = "incentive_consumptions"
	colCooldowns    = "incentive_cooldowns"
)

// compile-time interface check
var _ incentivestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all incentive collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("incentive/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": user}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, incentive.ErrNotFound
		}
		return nil, fmt.Errorf("incentive/mongo: get account: %w", err)
	}
	return fromAccountModel(&m), nil
}

func (s *Store) PutAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.User}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":             m.User,
			"level":           m.Level,
			"locked_points":   m.LockedPoints,
			"locked_maturity": m.LockedMaturity,
			"debt":            m.Debt,
			"total_loans":     m.TotalLoans,
			"eligible_loans":  m.EligibleLoans,
			"on_time_repays":  m.OnTimeRepays,
			"total_volume":    m.TotalVolume,
			"last_activity":   m.LastActivity,
			"created_at":      m.CreatedAt,
			"updated_at":      m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("incentive/mongo: put account: %w", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel

	filter := bson.M{}
	if opts.MinLevel > 0 {
		filter["level"] = bson.M{"$gte": opts.MinLevel}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("incentive/mongo: list accounts: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return incentive.ErrAlreadyExists
		}
		return fmt.Errorf("incentive/mongo: create order lock: %w", err)
	}
	return nil
}

func (s *Store) GetOrderLock(ctx context.Context, orderID string) (*accrual.OrderLock, error) {
	var m orderLockModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": orderID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, incentive.ErrNotFound
		}
		return nil, fmt.Errorf("incentive/mongo: get order lock: %w", err)
	}
	return fromOrderLockModel(&m)
}

func (s *Store) DeleteOrderLock(ctx context.Context, orderID string) error {
	res, err := s.mdb.NewDelete((*orderLockModel)(nil)).
		Filter(bson.M{"_id": orderID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("incentive/mongo: delete order lock: %w", err)
	}
	if res.DeletedCount() == 0 {
		return incentive.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrderLocks(ctx context.Context, user string) ([]*accrual.OrderLock, error) {
	var models []orderLockModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"borrower": user}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("incentive/mongo: list order locks: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("incentive/mongo: append consumption: %w", err)
	}
	return nil
}

func (s *Store) ListConsumptions(ctx context.Context, user string, opts consumption.ListOpts) ([]*consumption.Record, error) {
	var models []consumptionModel

	filter := bson.M{"user_id": user}
	if opts.Service != nil {
		filter["service"] = int(*opts.Service)
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	created := bson.M{}
	if !opts.Start.IsZero() {
		created["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		created["$lt"] = opts.End
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("incentive/mongo: list consumptions: %w", err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"user_id":    user,
			"expires_at": bson.M{"$gt": at},
		}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("incentive/mongo: active consumptions: %w", err)
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
	var m cooldownModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": cooldownKey(user, service)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return time.Time{}, incentive.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("incentive/mongo: get cooldown: %w", err)
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

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.Key,
			"user_id":    m.User,
			"service":    m.Service,
			"stamped_at": m.StampedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("incentive/mongo: set cooldown: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func cooldownKey(user string, service catalog.ServiceType) string {
	return fmt.Sprintf("%s:%d", user, service)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all incentive collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "level", Value: 1}}},
		},
		colOrderLocks: {
			{Keys: bson.D{{Key: "borrower", Value: 1}}},
			{Keys: bson.D{{Key: "maturity", Value: 1}}},
		},
		colConsumptions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		colCooldowns: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "service", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
