package core

import "testing"

func TestHSLRGB(t *testing.T) {
	tests := []struct {
		in      HSL
		r, g, b uint8
	}{
		{HSL{H: 0, S: 100, L: 50}, 255, 0, 0},
		{HSL{H: 120, S: 100, L: 25}, 0, 128, 0},
		{HSL{H: 240, S: 100, L: 50}, 0, 0, 255},
		{HSL{H: 0, S: 0, L: 100}, 255, 255, 255},
		{HSL{H: 360, S: 100, L: 50}, 255, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := tt.in.RGB()
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("%s.RGB() = %d,%d,%d want %d,%d,%d", tt.in, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestHSLString(t *testing.T) {
	if got := (HSL{H: 44, S: 81.5, L: 49}).String(); got != "hsl(44, 81.5%, 49%)" {
		t.Fatalf("String() = %q", got)
	}
}
