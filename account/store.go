package account

import "context"

type Store interface {
	Get(ctx context.Context, user string) (*Account, error)
	Put(ctx context.Context, a *Account) error
	List(ctx context.Context, opts ListOpts) ([]*Account, error)
}
