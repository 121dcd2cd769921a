// Package privilege derives a user's per-service access summary from their
// active consumption records.
//
// The canonical in-memory representation is unpacked. The packed integer
// form exists only for the telemetry boundary, where the external read
// model expects one word per user.
package privilege

import (
	"time"

	"github.com/xraph/incentive/catalog"
	"github.com/xraph/incentive/consumption"
)

// Grant is the access state for one service type.
type Grant struct {
	Active bool `json:"active"`
	Level  int  `json:"level"`
}

// Summary is the full per-user privilege state, one Grant per service type.
type Summary struct {
	Grants [catalog.NumServiceTypes]Grant `json:"grants"`
}

// Grant returns the entry for a service type. Out-of-range types yield a
// zero Grant.
func (s Summary) Grant(service catalog.ServiceType) Grant {
	if !service.Valid() {
		return Grant{}
	}
	return s.Grants[service]
}

// Has reports whether the user currently has access to the service type.
func (s Summary) Has(service catalog.ServiceType) bool {
	return s.Grant(service).Active
}

// FromRecords recomputes the summary from consumption records at an
// instant. Expired records grant nothing; for each service type the highest
// still-active level wins.
func FromRecords(records []*consumption.Record, now time.Time) Summary {
	var s Summary
	for _, r := range records {
		if !r.Service.Valid() || !r.ActiveAt(now) {
			continue
		}
		g := &s.Grants[r.Service]
		if !g.Active || r.Level > g.Level {
			g.Active = true
			g.Level = r.Level
		}
	}
	return s
}

// Packed layout: one byte per service type, ordered by ServiceType value
// from the least significant byte. Bit 0 is the access flag; bits 1..4
// carry the level.
const (
	bitsPerService = 8
	activeBit      = 0x01
	levelShift     = 1
	levelMask      = 0x0F
)

// Pack serializes the summary into a single integer for mirroring.
func (s Summary) Pack() uint64 {
	var packed uint64
	for i, g := range s.Grants {
		var b uint64
		if g.Active {
			b = activeBit | (uint64(g.Level)&levelMask)<<levelShift
		}
		packed |= b << (i * bitsPerService)
	}
	return packed
}

// Unpack rebuilds a summary from its packed form.
func Unpack(packed uint64) Summary {
	var s Summary
	for i := range s.Grants {
		b := (packed >> (i * bitsPerService)) & 0xFF
		if b&activeBit != 0 {
			s.Grants[i] = Grant{
				Active: true,
				Level:  int((b >> levelShift) & levelMask),
			}
		}
	}
	return s
}
