package swf

import (
	"math"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// rect is a bit-packed bounding box in twips.
type rect struct {
	xMin, xMax, yMin, yMax int32
}

func (rc rect) write(w *bitWriter) {
	n := sbBitsAll(rc.xMin, rc.xMax, rc.yMin, rc.yMax)
	w.writeUB(5, uint32(n))
	w.writeSB(n, rc.xMin)
	w.writeSB(n, rc.xMax)
	w.writeSB(n, rc.yMin)
	w.writeSB(n, rc.yMax)
}

func readRect(r *bitReader) rect {
	n := uint(r.readUB(5))
	return rect{
		xMin: r.readSB(n),
		xMax: r.readSB(n),
		yMin: r.readSB(n),
		yMax: r.readSB(n),
	}
}

// fixed16 converts a float to the container's 16.16 fixed point.
func fixed16(v float64) int32 {
	return int32(math.RoundToEven(v * 65536))
}

func fromFixed16(v int32) float64 {
	return float64(v) / 65536
}

// fixed8 converts a float to 8.8 fixed point (frame rate, color terms).
func fixed8(v float64) int16 {
	return int16(math.RoundToEven(v * 256))
}

func fromFixed8(v int16) float64 {
	return float64(v) / 256
}

// writeMatrix packs a document transform into the MATRIX record: optional
// scale and rotate-skew in 16.16 fixed, translation in twips.
func writeMatrix(w *bitWriter, t document.Transform) {
	hasScale := t.ScaleX != 1 || t.ScaleY != 1
	w.writeUB(1, boolBit(hasScale))
	if hasScale {
		sx, sy := fixed16(t.ScaleX), fixed16(t.ScaleY)
		n := sbBitsAll(sx, sy)
		w.writeUB(5, uint32(n))
		w.writeSB(n, sx)
		w.writeSB(n, sy)
	}
	hasRotate := t.RotateSkew0 != 0 || t.RotateSkew1 != 0
	w.writeUB(1, boolBit(hasRotate))
	if hasRotate {
		r0, r1 := fixed16(t.RotateSkew0), fixed16(t.RotateSkew1)
		n := sbBitsAll(r0, r1)
		w.writeUB(5, uint32(n))
		w.writeSB(n, r0)
		w.writeSB(n, r1)
	}
	n := sbBitsAll(t.TranslateX, t.TranslateY)
	w.writeUB(5, uint32(n))
	w.writeSB(n, t.TranslateX)
	w.writeSB(n, t.TranslateY)
}

func readMatrix(r *bitReader) document.Transform {
	t := document.IdentityTransform()
	if r.readUB(1) == 1 {
		n := uint(r.readUB(5))
		t.ScaleX = fromFixed16(r.readSB(n))
		t.ScaleY = fromFixed16(r.readSB(n))
	}
	if r.readUB(1) == 1 {
		n := uint(r.readUB(5))
		t.RotateSkew0 = fromFixed16(r.readSB(n))
		t.RotateSkew1 = fromFixed16(r.readSB(n))
	}
	n := uint(r.readUB(5))
	t.TranslateX = r.readSB(n)
	t.TranslateY = r.readSB(n)
	return t
}

// writeColorTransform packs the CXFORMWITHALPHA record: multiplicative
// terms in 8.8 fixed, additive terms as raw offsets.
func writeColorTransform(w *bitWriter, c document.ColorTransform) {
	hasAdd := c.AddR != 0 || c.AddG != 0 || c.AddB != 0 || c.AddA != 0
	hasMul := c.MulR != 1 || c.MulG != 1 || c.MulB != 1 || c.MulA != 1
	w.writeUB(1, boolBit(hasAdd))
	w.writeUB(1, boolBit(hasMul))
	mr, mg, mb, ma := fixed8(c.MulR), fixed8(c.MulG), fixed8(c.MulB), fixed8(c.MulA)
	var n uint
	if hasMul {
		n = sbBitsAll(int32(mr), int32(mg), int32(mb), int32(ma))
	}
	if hasAdd {
		if b := sbBitsAll(int32(c.AddR), int32(c.AddG), int32(c.AddB), int32(c.AddA)); b > n {
			n = b
		}
	}
	// The nbits field is 4 bits wide; ColorTransform.Validate keeps terms
	// inside 15 bits.
	if n > 15 {
		n = 15
	}
	w.writeUB(4, uint32(n))
	if hasMul {
		w.writeSB(n, int32(mr))
		w.writeSB(n, int32(mg))
		w.writeSB(n, int32(mb))
		w.writeSB(n, int32(ma))
	}
	if hasAdd {
		w.writeSB(n, int32(c.AddR))
		w.writeSB(n, int32(c.AddG))
		w.writeSB(n, int32(c.AddB))
		w.writeSB(n, int32(c.AddA))
	}
}

func readColorTransform(r *bitReader) document.ColorTransform {
	c := document.IdentityColor()
	hasAdd := r.readUB(1) == 1
	hasMul := r.readUB(1) == 1
	n := uint(r.readUB(4))
	if hasMul {
		c.MulR = fromFixed8(int16(r.readSB(n)))
		c.MulG = fromFixed8(int16(r.readSB(n)))
		c.MulB = fromFixed8(int16(r.readSB(n)))
		c.MulA = fromFixed8(int16(r.readSB(n)))
	}
	if hasAdd {
		c.AddR = int16(r.readSB(n))
		c.AddG = int16(r.readSB(n))
		c.AddB = int16(r.readSB(n))
		c.AddA = int16(r.readSB(n))
	}
	return c
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
