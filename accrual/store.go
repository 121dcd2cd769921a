package accrual

import "context"

type Store interface {
	CreateLock(ctx context.Context, l *OrderLock) error
	GetLock(ctx context.Context, orderID string) (*OrderLock, error)
	DeleteLock(ctx context.Context, orderID string) error
	ListLocks(ctx context.Context, user string) ([]*OrderLock, error)
}
