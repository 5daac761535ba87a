package document

import "fmt"

// TwipsPerPixel is the fixed subpixel scale of the movie container: all
// translations are stored in twips (1/20 px).
const TwipsPerPixel = 20

// Transform is a 2D affine transform in the container's matrix layout:
// scale / rotate-skew terms plus a translation in twips.
type Transform struct {
	ScaleX      float64
	RotateSkew0 float64
	RotateSkew1 float64
	ScaleY      float64
	TranslateX  int32 // twips
	TranslateY  int32 // twips
}

// IdentityTransform returns the transform that leaves placements unchanged.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// Translated returns a copy of the transform moved by dx, dy pixels.
func (t Transform) Translated(dxPixels, dyPixels float64) Transform {
	t.TranslateX += int32(dxPixels * TwipsPerPixel)
	t.TranslateY += int32(dyPixels * TwipsPerPixel)
	return t
}

// ColorTransform adjusts the color of an instance: each channel is
// multiplied then offset. The zero multiplier terms of the zero value are
// not usable; use IdentityColor for "no change".
type ColorTransform struct {
	MulR, MulG, MulB, MulA float64
	AddR, AddG, AddB, AddA int16
}

// IdentityColor returns the color transform that leaves colors unchanged.
func IdentityColor() ColorTransform {
	return ColorTransform{MulR: 1, MulG: 1, MulB: 1, MulA: 1}
}

// IsIdentity reports whether the color transform changes nothing.
func (c ColorTransform) IsIdentity() bool {
	return c == IdentityColor()
}

// The container stores color terms as signed 15-bit fields, multipliers
// in 8.8 fixed point.
const (
	minColorTerm = -16384
	maxColorTerm = 16383
)

// Validate rejects color transforms the movie container cannot store.
func (c ColorTransform) Validate() error {
	for _, m := range [4]float64{c.MulR, c.MulG, c.MulB, c.MulA} {
		if !(m*256 >= minColorTerm && m*256 <= maxColorTerm) {
			return fmt.Errorf("multiplier %g: %w", m, ErrColorOutOfRange)
		}
	}
	for _, a := range [4]int16{c.AddR, c.AddG, c.AddB, c.AddA} {
		if a < minColorTerm || a > maxColorTerm {
			return fmt.Errorf("offset %d: %w", a, ErrColorOutOfRange)
		}
	}
	return nil
}

// Color is an opaque RGB color, used for the movie background.
type Color struct {
	R, G, B uint8
}
