package types

import "testing"

func TestPointsConstructors(t *testing.T) {
	tests := []struct {
		name    string
		points  Points
		micro   int64
		display string
	}{
		{"One point", Point(1), 1_000_000, "1.000000 pts"},
		{"Half point", MicroPoints(500_000), 500_000, "0.500000 pts"},
		{"Many points", Point(250), 250_000_000, "250.000000 pts"},
		{"Zero", ZeroPoints, 0, "0.000000 pts"},
		{"Negative", MicroPoints(-1_500_000), -1_500_000, "-1.500000 pts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.points.Micro() != tt.micro {
				t.Errorf("Micro: got %d, want %d", tt.points.Micro(), tt.micro)
			}
			if tt.points.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.points.String(), tt.display)
			}
		})
	}
}

func TestPointsMulBps(t *testing.T) {
	tests := []struct {
		name     string
		points   Points
		bps      uint32
		expected Points
	}{
		{"Identity", Point(1), 10000, Point(1)},
		{"Half", Point(1), 5000, MicroPoints(500_000)},
		{"Five percent", Point(100), 500, Point(5)},
		{"Rounds toward zero", MicroPoints(3), 5000, MicroPoints(1)},
		{"Zero factor", Point(42), 0, ZeroPoints},
		{"Boost", Point(1), 12500, MicroPoints(1_250_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.points.MulBps(tt.bps); got != tt.expected {
				t.Errorf("Got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPointsMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Points
		min, max Points
	}{
		{"First smaller", Point(1), Point(2), Point(1), Point(2)},
		{"Second smaller", Point(2), Point(1), Point(1), Point(2)},
		{"Equal", Point(3), Point(3), Point(3), Point(3)},
		{"Negative", MicroPoints(-1), Point(1), MicroPoints(-1), Point(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Min(tt.b); got != tt.min {
				t.Errorf("Min: got %v, want %v", got, tt.min)
			}
			if got := tt.a.Max(tt.b); got != tt.max {
				t.Errorf("Max: got %v, want %v", got, tt.max)
			}
		})
	}
}

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Points
		wantErr  bool
	}{
		{"Whole", "1", Point(1), false},
		{"Fractional", "1.5", MicroPoints(1_500_000), false},
		{"Full precision", "0.250000", MicroPoints(250_000), false},
		{"Negative", "-2.5", MicroPoints(-2_500_000), false},
		{"Leading dot", ".5", MicroPoints(500_000), false},
		{"Too precise", "0.1234567", 0, true},
		{"Empty", "", 0, true},
		{"Garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePoints(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPrincipal(t *testing.T) {
	tests := []struct {
		name    string
		p       Principal
		display string
	}{
		{"Whole units", PrincipalUnits(2000), "2000.000000 units"},
		{"Zero", Principal(0), "0.000000 units"},
		{"Sub-unit", Principal(999_999), "0.999999 units"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.p.String(), tt.display)
			}
		})
	}

	parsed, err := ParsePrincipal("999.999999")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != Principal(999_999_999) {
		t.Errorf("Got %v, want %v", parsed, Principal(999_999_999))
	}
}
