// Package types provides common types used across Incentive.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Points represents a points amount in micro-points (6 decimal places).
// All arithmetic is integer-only — no floating point.
//
// Examples:
//   - Point(1) = 1.000000 points (1_000_000 micro-points)
//   - MicroPoints(500_000) = 0.500000 points
type Points int64

// PointsDecimals is the number of decimal places carried by Points.
const PointsDecimals = 6

// pointsScale is the number of micro-points in one whole point.
const pointsScale int64 = 1_000_000

// BpsDenominator is the basis-point denominator (10000 = 1.0x).
const BpsDenominator int64 = 10_000

// Point creates a Points value from whole points.
func Point(n int64) Points { return Points(n * pointsScale) }

// MicroPoints creates a Points value from micro-points.
func MicroPoints(n int64) Points { return Points(n) }

// ZeroPoints is the zero Points value.
const ZeroPoints Points = 0

// Micro returns the raw micro-point amount.
func (p Points) Micro() int64 { return int64(p) }

// MulBps scales the Points value by a basis-point factor, rounding toward
// zero. MulBps(10000) is the identity.
func (p Points) MulBps(bps uint32) Points {
	return Points(int64(p) * int64(bps) / BpsDenominator)
}

// IsZero returns true if the amount is zero.
func (p Points) IsZero() bool { return p == 0 }

// IsPositive returns true if the amount is greater than zero.
func (p Points) IsPositive() bool { return p > 0 }

// IsNegative returns true if the amount is less than zero.
func (p Points) IsNegative() bool { return p < 0 }

// Min returns the smaller of two Points values.
func (p Points) Min(other Points) Points {
	if p < other {
		return p
	}
	return other
}

// Max returns the larger of two Points values.
func (p Points) Max(other Points) Points {
	if p > other {
		return p
	}
	return other
}

// FormatMajor returns the whole-point string without a unit suffix,
// e.g. "1.500000" for MicroPoints(1_500_000).
func (p Points) FormatMajor() string {
	return formatFixed(int64(p), pointsScale, PointsDecimals)
}

// String returns a human-readable string, e.g. "1.500000 pts".
func (p Points) String() string {
	return p.FormatMajor() + " pts"
}

// ParsePoints parses a decimal string such as "1.5" or "0.250000" into
// Points. At most six decimal places are accepted.
func ParsePoints(s string) (Points, error) {
	n, err := parseFixed(s, PointsDecimals)
	if err != nil {
		return 0, fmt.Errorf("types: parse points %q: %w", s, err)
	}
	return Points(n), nil
}

// Principal represents a loan principal amount in micro-units of the
// platform's 6-decimal stable asset.
type Principal int64

// PrincipalDecimals is the number of decimal places carried by Principal.
const PrincipalDecimals = 6

// principalScale is the number of micro-units in one whole unit.
const principalScale int64 = 1_000_000

// PrincipalUnits creates a Principal from whole stable-asset units.
func PrincipalUnits(n int64) Principal { return Principal(n * principalScale) }

// Micro returns the raw micro-unit amount.
func (p Principal) Micro() int64 { return int64(p) }

// IsZero returns true if the amount is zero.
func (p Principal) IsZero() bool { return p == 0 }

// FormatMajor returns the whole-unit string, e.g. "2000.000000".
func (p Principal) FormatMajor() string {
	return formatFixed(int64(p), principalScale, PrincipalDecimals)
}

// String returns a human-readable string, e.g. "2000.000000 units".
func (p Principal) String() string {
	return p.FormatMajor() + " units"
}

// ParsePrincipal parses a decimal string into a Principal.
func ParsePrincipal(s string) (Principal, error) {
	n, err := parseFixed(s, PrincipalDecimals)
	if err != nil {
		return 0, fmt.Errorf("types: parse principal %q: %w", s, err)
	}
	return Principal(n), nil
}

// Helper functions

// formatFixed renders a scaled integer as a fixed-decimal string.
func formatFixed(amount, scale int64, decimals int) string {
	isNegative := amount < 0
	abs := amount
	if isNegative {
		abs = -abs
	}

	major := abs / scale
	minor := abs % scale

	format := fmt.Sprintf("%%d.%%0%dd", decimals)
	result := fmt.Sprintf(format, major, minor)

	if isNegative {
		return "-" + result
	}
	return result
}

// parseFixed parses a decimal string into a scaled integer with the given
// number of decimal places.
func parseFixed(s string, decimals int) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decimals {
		return 0, fmt.Errorf("more than %d decimal places", decimals)
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	major, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, err
	}

	minor := int64(0)
	if fracPart != "" {
		minor, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, err
		}
	}

	scale := int64(1)
	for i := 0; i < decimals; i++ {
		scale *= 10
	}

	n := major*scale + minor
	if negative {
		n = -n
	}
	return n, nil
}
