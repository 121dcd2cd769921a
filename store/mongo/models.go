package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/incentive/account"
	"github.com/xraph/incentive/accrual"
	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	"github.com/xraph/incentive/id"
	"github.com/xraph/incentive/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:incentive_accounts"`

	User           string    `grove:"user_id,pk"      bson:"_id"`
	Level          int       `grove:"level"           bson:"level"`
	LockedPoints   int64     `grove:"locked_points"   bson:"locked_points"`
	LockedMaturity time.Time `grove:"locked_maturity" bson:"locked_maturity"`
	Debt           int64     `grove:"debt"            bson:"debt"`
	TotalLoans     int64     `grove:"total_loans"     bson:"total_loans"`
	EligibleLoans  int64     `grove:"eligible_loans"  bson:"eligible_loans"`
	OnTimeRepays   int64     `grove:"on_time_repays"  bson:"on_time_repays"`
	TotalVolume    int64     `grove:"total_volume"    bson:"total_volume"`
	LastActivity   time.Time `grove:"last_activity"   bson:"last_activity"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		User:           a.User,
		Level:          a.Level,
		LockedPoints:   int64(a.LockedPoints),
		LockedMaturity: a.LockedMaturity,
		Debt:           int64(a.Debt),
		TotalLoans:     int64(a.Counters.TotalLoans),
		EligibleLoans:  int64(a.Counters.EligibleLoans),
		OnTimeRepays:   int64(a.Counters.OnTimeRepays),
		TotalVolume:    int64(a.Counters.TotalVolume),
		LastActivity:   a.LastActivity,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) *account.Account {
	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		User:           m.User,
		Level:          m.Level,
		LockedPoints:   types.Points(m.LockedPoints),
		LockedMaturity: m.LockedMaturity,
		Debt:           types.Points(m.Debt),
		LastActivity:   m.LastActivity,
		Counters: account.Counters{
			TotalLoans:    uint64(m.TotalLoans),
			EligibleLoans: uint64(m.EligibleLoans),
			OnTimeRepays:  uint64(m.OnTimeRepays),
			TotalVolume:   types.Principal(m.TotalVolume),
		},
	}
}

// ==================== Order lock models ====================

type orderLockModel struct {
	grove.BaseModel `grove:"table:incentive_order_locks"`

	OrderID   string    `grove:"order_id,pk" bson:"_id"`
	ID        string    `grove:"id"          bson:"id"`
	Borrower  string    `grove:"borrower"    bson:"borrower"`
	Points    int64     `grove:"points"      bson:"points"`
	Maturity  time.Time `grove:"maturity"    bson:"maturity"`
	CreatedAt time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toOrderLockModel(l *accrual.OrderLock) *orderLockModel {
	return &orderLockModel{
		OrderID:   l.OrderID,
		ID:        l.ID.String(),
		Borrower:  l.Borrower,
		Points:    int64(l.Points),
		Maturity:  l.Maturity,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func fromOrderLockModel(m *orderLockModel) (*accrual.OrderLock, error) {
	lockID, err := id.ParseOrderLockID(m.ID)
	if err != nil {
		return nil, err
	}
	return &accrual.OrderLock{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       lockID,
		OrderID:  m.OrderID,
		Borrower: m.Borrower,
		Points:   types.Points(m.Points),
		Maturity: m.Maturity,
	}, nil
}

// ==================== Consumption models ====================

type consumptionModel struct {
	grove.BaseModel `grove:"table:incentive_consumptions"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	User      string    `grove:"user_id"    bson:"user_id"`
	Service   int       `grove:"service"    bson:"service"`
	Level     int       `grove:"level"      bson:"level"`
	Kind      string    `grove:"kind"       bson:"kind"`
	Points    int64     `grove:"points"     bson:"points"`
	ExpiresAt time.Time `grove:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toConsumptionModel(r *consumption.Record) *consumptionModel {
	return &consumptionModel{
		ID:        r.ID.String(),
		User:      r.User,
		Service:   int(r.Service),
		Level:     r.Level,
		Kind:      string(r.Kind),
		Points:    int64(r.Points),
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromConsumptionModel(m *consumptionModel) (*consumption.Record, error) {
	recID, err := id.ParseConsumptionID(m.ID)
	if err != nil {
		return nil, err
	}
	return &consumption.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        recID,
		User:      m.User,
		Service:   catalog.ServiceType(m.Service),
		Level:     m.Level,
		Kind:      consumption.Kind(m.Kind),
		Points:    types.Points(m.Points),
		ExpiresAt: m.ExpiresAt,
	}, nil
}

// ==================== Cooldown models ====================

type cooldownModel struct {
	grove.BaseModel `grove:"table:incentive_cooldowns"`

	Key       string    `grove:"cooldown_key,pk" bson:"_id"`
	User      string    `grove:"user_id"         bson:"user_id"`
	Service   int       `grove:"service"         bson:"service"`
	StampedAt time.Time `grove:"stamped_at"      bson:"stamped_at"`
}
