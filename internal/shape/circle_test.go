package shape

import "testing"

func TestCircleRadius(t *testing.T) {
	tests := []struct {
		side       int
		wantRadius int
	}{
		{100, 50},
		{256, 128},
		{480, 240},
		{101, 50},
	}
	for _, tt := range tests {
		mask := Circle(tt.side)
		if got := mask.Radius(); got != tt.wantRadius {
			t.Errorf("Circle(%d).Radius() = %d, want %d", tt.side, got, tt.wantRadius)
		}
	}
}

func TestCircleGeometry(t *testing.T) {
	side := 100
	mask := Circle(side)
	center := side / 2

	tests := []struct {
		name       string
		x, y       int
		wantOpaque bool
	}{
		{"center", center, center, true},
		{"top edge of disc", center, 0, true},
		{"left edge of disc", 0, center, true},
		{"top-left corner", 0, 0, false},
		{"bottom-right corner", side - 1, side - 1, false},
		{"just inside diagonal", center + 35, center + 35, true},
		{"just outside diagonal", center + 36, center + 36, false},
		{"out of bounds", -1, center, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mask.Opaque(tt.x, tt.y); got != tt.wantOpaque {
				t.Errorf("Opaque(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.wantOpaque)
			}
		})
	}
}

func TestCircleTransparentOutsideOpaqueInside(t *testing.T) {
	side := 64
	mask := Circle(side)
	center := side / 2
	radius2 := center * center

	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx, dy := x-center, y-center
			inside := dx*dx+dy*dy <= radius2
			alpha := mask.Pix[(y*side+x)*4+3]
			if inside && alpha != 0xFF {
				t.Fatalf("pixel (%d,%d) inside disc has alpha %d", x, y, alpha)
			}
			if !inside && alpha != 0 {
				t.Fatalf("pixel (%d,%d) outside disc has alpha %d", x, y, alpha)
			}
		}
	}
}
