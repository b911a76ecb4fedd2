// Package shape generates the per-pixel alpha mask that gives the
// window its circular outline.
package shape

// Mask is a square RGBA alpha mask: opaque white interior disc,
// transparent exterior. Pix is row-major, 4 bytes per pixel (RGBA).
type Mask struct {
	Side int
	Pix  []byte
}

// Circle builds a mask of the given side length. The disc is inscribed:
// center and radius are side/2 in integer math, so a pixel is opaque
// iff dx*dx+dy*dy <= r*r.
func Circle(side int) *Mask {
	mask := &Mask{
		Side: side,
		Pix:  make([]byte, side*side*4),
	}

	center := side / 2
	radius2 := center * center
	for y := 0; y < side; y++ {
		dy := y - center
		dy2 := dy * dy
		row := y * side * 4
		for x := 0; x < side; x++ {
			dx := x - center
			if dx*dx+dy2 <= radius2 {
				i := row + x*4
				mask.Pix[i] = 0xFF
				mask.Pix[i+1] = 0xFF
				mask.Pix[i+2] = 0xFF
				mask.Pix[i+3] = 0xFF
			}
		}
	}
	return mask
}

// Opaque reports whether the pixel at (x, y) is inside the disc.
func (m *Mask) Opaque(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Side || y >= m.Side {
		return false
	}
	return m.Pix[(y*m.Side+x)*4+3] == 0xFF
}

// Radius returns the inscribed disc radius in pixels.
func (m *Mask) Radius() int {
	return m.Side / 2
}
