package store

import (
	"context"
	"time"

	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
)

// Store is the unified storage interface for all Incentive entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Account methods
	GetAccount(ctx context.Context, user string) (*account.Account, error)
	PutAccount(ctx context.Context, a *account.Account) error
	ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error)

	// Order lock methods
	CreateOrderLock(ctx context.Context, l *accrual.OrderLock) error
	GetOrderLock(ctx context.Context, orderID string) (*accrual.OrderLock, error)
	DeleteOrderLock(ctx context.Context, orderID string) error
	ListOrderLocks(ctx context.Context, user string) ([]*accrual.OrderLock, error)

	// Consumption methods
	AppendConsumption(ctx context.Context, r *consumption.Record) error
	ListConsumptions(ctx context.Context, user string, opts consumption.ListOpts) ([]*consumption.Record, error)
	ActiveConsumptions(ctx context.Context, user string, now time.Time) ([]*consumption.Record, error)
	GetCooldownStamp(ctx context.Context, user string, service catalog.ServiceType) (time.Time, error)
	SetCooldownStamp(ctx context.Context, user string, service catalog.ServiceType, at time.Time) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
