package incentive

import "github.com/xraph/incentive/types"

// Re-export common types for convenience so users don't have to import types package.

// Points is re-exported from types package.
type Points = types.Points

// Principal is re-exported from types package.
type Principal = types.Principal

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export fixed-point constructors
var (
	Point          = types.Point
	MicroPoints    = types.MicroPoints
	PrincipalUnits = types.PrincipalUnits
	ParsePoints    = types.ParsePoints
	ParsePrincipal = types.ParsePrincipal
)

// ZeroPoints is the additive identity for Points.
const ZeroPoints = types.ZeroPoints

// Re-export Entity constructor
var NewEntity = types.NewEntity
