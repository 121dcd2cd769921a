package consumption

import (
	"context"
	"time"

	"github.com/xraph/incentive/catalog"
)

type Store interface {
	Append(ctx context.Context, r *Record) error
	List(ctx context.Context, user string, opts ListOpts) ([]*Record, error)
	Active(ctx context.Context, user string, now time.Time) ([]*Record, error)
	GetCooldownStamp(ctx context.Context, user string, service catalog.ServiceType) (time.Time, error)
	SetCooldownStamp(ctx context.Context, user string, service catalog.ServiceType, at time.Time) error
}
