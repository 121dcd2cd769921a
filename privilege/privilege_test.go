package privilege

import (
	"testing"
	"time"

	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
	"github.com/xraph/incentive/types"
)

func record(service catalog.ServiceType, level int, expiresAt time.Time) *consumption.Record {
	return &consumption.Record{
		Entity:    types.NewEntity(),
		User:      "user_1",
		Service:   service,
		Level:     level,
		Kind:      consumption.KindPurchase,
		ExpiresAt: expiresAt,
	}
}

func TestFromRecords(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		records []*consumption.Record
		service catalog.ServiceType
		active  bool
		level   int
	}{
		{
			"No records",
			nil,
			catalog.ServiceCreditBoost,
			false, 0,
		},
		{
			"Active record grants access",
			[]*consumption.Record{record(catalog.ServiceFastTrack, 2, future)},
			catalog.ServiceFastTrack,
			true, 2,
		},
		{
			"Expired record grants nothing",
			[]*consumption.Record{record(catalog.ServiceFastTrack, 2, past)},
			catalog.ServiceFastTrack,
			false, 0,
		},
		{
			"Highest active level wins",
			[]*consumption.Record{
				record(catalog.ServiceAdvisory, 1, future),
				record(catalog.ServiceAdvisory, 3, future),
				record(catalog.ServiceAdvisory, 5, past),
			},
			catalog.ServiceAdvisory,
			true, 3,
		},
		{
			"Other services untouched",
			[]*consumption.Record{record(catalog.ServiceRateDiscount, 4, future)},
			catalog.ServiceCreditBoost,
			false, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromRecords(tt.records, now)
			g := s.Grant(tt.service)
			if g.Active != tt.active {
				t.Errorf("Active: got %v, want %v", g.Active, tt.active)
			}
			if g.Level != tt.level {
				t.Errorf("Level: got %d, want %d", g.Level, tt.level)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
	}{
		{"Empty", Summary{}},
		{
			"Single grant",
			Summary{Grants: [catalog.NumServiceTypes]Grant{
				{Active: true, Level: 3},
			}},
		},
		{
			"All services",
			Summary{Grants: [catalog.NumServiceTypes]Grant{
				{Active: true, Level: 1},
				{Active: true, Level: 2},
				{Active: true, Level: 3},
				{Active: true, Level: 4},
				{Active: true, Level: 5},
			}},
		},
		{
			"Sparse",
			Summary{Grants: [catalog.NumServiceTypes]Grant{
				1: {Active: true, Level: 5},
				4: {Active: true, Level: 2},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := tt.summary.Pack()
			restored := Unpack(packed)
			if restored != tt.summary {
				t.Errorf("round-trip mismatch: got %+v, want %+v", restored, tt.summary)
			}
		})
	}
}

func TestPackLayout(t *testing.T) {
	// Service 0 active at level 3: byte 0 = 0b0000_0111.
	s := Summary{Grants: [catalog.NumServiceTypes]Grant{{Active: true, Level: 3}}}
	if got := s.Pack(); got != 0x07 {
		t.Errorf("Pack: got %#x, want 0x07", got)
	}

	// Inactive grants pack to zero regardless of level.
	s = Summary{Grants: [catalog.NumServiceTypes]Grant{{Active: false, Level: 3}}}
	if got := s.Pack(); got != 0 {
		t.Errorf("Pack: got %#x, want 0", got)
	}
}

func TestHas(t *testing.T) {
	s := Summary{Grants: [catalog.NumServiceTypes]Grant{
		2: {Active: true, Level: 1},
	}}

	if !s.Has(catalog.ServiceFastTrack) {
		t.Error("expected access to fast_track")
	}
	if s.Has(catalog.ServiceAdvisory) {
		t.Error("unexpected access to advisory")
	}
	if s.Has(catalog.ServiceType(99)) {
		t.Error("out-of-range service type should never have access")
	}
}
