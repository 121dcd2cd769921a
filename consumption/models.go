// Package consumption defines the immutable purchase/upgrade receipts
// appended by the consumption side of the engine.
package consumption

import (
	"time"

	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/id"
	"github.com/xraph/incentive/types"
)

// Kind distinguishes the two ways a record can be produced.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindUpgrade  Kind = "upgrade"
)

// Record is an append-only consumption receipt. Records form each user's
// consumption history and are never mutated after the fact.
type Record struct {
	types.Entity
	ID      id.ConsumptionID    `json:"id"`
	User    string              `json:"user"`
	Service catalog.ServiceType `json:"service"`
	Level   int                 `json:"level"`
	Kind    Kind                `json:"kind"`
	Points  types.Points        `json:"points"`

	// ExpiresAt is when the purchased access lapses.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRecord creates a consumption receipt.
func NewRecord(user string, service catalog.ServiceType, level int, kind Kind, points types.Points, expiresAt time.Time) *Record {
	return &Record{
		Entity:    types.NewEntity(),
		ID:        id.NewConsumptionID(),
		User:      user,
		Service:   service,
		Level:     level,
		Kind:      kind,
		Points:    points,
		ExpiresAt: expiresAt,
	}
}

// ActiveAt reports whether the record still grants access at the instant.
func (r *Record) ActiveAt(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

type ListOpts struct {
	Service *catalog.ServiceType
	Kind    Kind
	Start   time.Time
	End     time.Time
	Limit   int
	Offset  int
}
