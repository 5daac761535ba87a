package swf

import (
	"bytes"
	"math/bits"
)

// bitWriter packs big-endian bit fields into a byte buffer, the layout the
// container uses for RECT, MATRIX, and CXFORM records.
type bitWriter struct {
	buf  bytes.Buffer
	cur  uint8
	nCur uint
}

func (w *bitWriter) writeUB(n uint, v uint32) {
	for i := int(n) - 1; i >= 0; i-- {
		w.cur <<= 1
		if v&(1<<uint(i)) != 0 {
			w.cur |= 1
		}
		w.nCur++
		if w.nCur == 8 {
			w.buf.WriteByte(w.cur)
			w.cur = 0
			w.nCur = 0
		}
	}
}

func (w *bitWriter) writeSB(n uint, v int32) {
	w.writeUB(n, uint32(v))
}

// align flushes a partial byte, zero-padded.
func (w *bitWriter) align() {
	if w.nCur > 0 {
		w.cur <<= 8 - w.nCur
		w.buf.WriteByte(w.cur)
		w.cur = 0
		w.nCur = 0
	}
}

func (w *bitWriter) bytes() []byte {
	w.align()
	return w.buf.Bytes()
}

// sbBits returns the minimum signed bit width holding v.
func sbBits(v int32) uint {
	if v == 0 {
		return 0
	}
	x := v
	if x < 0 {
		x = ^x
	}
	return uint(bits.Len32(uint32(x))) + 1
}

// sbBitsAll returns the width holding every value.
func sbBitsAll(vs ...int32) uint {
	var n uint
	for _, v := range vs {
		if b := sbBits(v); b > n {
			n = b
		}
	}
	return n
}

// bitReader unpacks big-endian bit fields from a byte slice.
type bitReader struct {
	data []byte
	pos  int  // byte position
	bit  uint // bits consumed of data[pos]
	err  bool
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) readUB(n uint) uint32 {
	var v uint32
	for i := uint(0); i < n; i++ {
		if r.pos >= len(r.data) {
			r.err = true
			return 0
		}
		v <<= 1
		if r.data[r.pos]&(0x80>>r.bit) != 0 {
			v |= 1
		}
		r.bit++
		if r.bit == 8 {
			r.bit = 0
			r.pos++
		}
	}
	return v
}

func (r *bitReader) readSB(n uint) int32 {
	v := r.readUB(n)
	if n > 0 && n < 32 && v&(1<<(n-1)) != 0 {
		v |= ^uint32(0) << n
	}
	return int32(v)
}

// align skips to the next byte boundary.
func (r *bitReader) align() {
	if r.bit > 0 {
		r.bit = 0
		r.pos++
	}
}

// consumed returns how many whole bytes have been read, after aligning.
func (r *bitReader) consumed() int {
	r.align()
	return r.pos
}
