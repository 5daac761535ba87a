package swf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// Encode serializes the document into the binary movie container.
// Encoding is deterministic: the same logical state always yields
// byte-identical output. Character ids are renumbered into the minimum
// contiguous range starting at 1, assigned in a dependency-first walk so
// every definition precedes its uses. Resources nothing references are
// swept: their payloads never reach the stream.
func Encode(doc *document.Document) ([]byte, error) {
	e := &encoder{
		doc:        doc,
		nextChar:   1,
		charOf:     make(map[document.SymbolID]uint16),
		bitmapChar: make(map[document.ResourceID]uint16),
	}

	bg := doc.Properties.Background
	e.writeTag(tagSetBackgroundColor, []byte{bg.R, bg.G, bg.B})

	for _, id := range SymbolOrder(doc) {
		if err := e.defineSymbol(id); err != nil {
			return nil, err
		}
	}

	if err := e.writeTimelineTags(doc.Root); err != nil {
		return nil, err
	}
	e.writeTag(tagEnd, nil)

	return e.assemble()
}

type encoder struct {
	doc  *document.Document
	body bytes.Buffer

	nextChar   uint16
	charOf     map[document.SymbolID]uint16
	bitmapChar map[document.ResourceID]uint16
}

func (e *encoder) allocChar() uint16 {
	id := e.nextChar
	e.nextChar++
	return id
}

// SymbolOrder returns every live symbol in emission order: children before
// the timelines placing them, ties broken by definition order. Decoding an
// encoded movie defines symbols in exactly this order, which is what lets
// per-symbol side-channel data survive a round trip.
func SymbolOrder(doc *document.Document) []document.SymbolID {
	var order []document.SymbolID
	visited := make(map[document.SymbolID]bool)
	var visit func(id document.SymbolID)
	visit = func(id document.SymbolID) {
		if visited[id] {
			return
		}
		visited[id] = true
		sym, err := doc.Symbol(id)
		if err != nil {
			return
		}
		if sym.Timeline != nil {
			for _, instID := range sym.Timeline.Instances {
				if inst, err := doc.Instance(instID); err == nil {
					visit(inst.Symbol)
				}
			}
		}
		order = append(order, id)
	}
	doc.EachSymbol(func(id document.SymbolID, _ *document.Symbol) {
		visit(id)
	})
	return order
}

func (e *encoder) defineSymbol(id document.SymbolID) error {
	sym, err := e.doc.Symbol(id)
	if err != nil {
		return err
	}
	switch sym.Kind {
	case document.KindBitmap:
		if err := e.defineBitmap(id, sym); err != nil {
			return err
		}
	case document.KindSound:
		if err := e.defineSound(id, sym); err != nil {
			return err
		}
	case document.KindFont:
		if err := e.defineFont(id, sym); err != nil {
			return err
		}
	default:
		if err := e.defineSprite(id, sym); err != nil {
			return err
		}
	}
	if sym.Name != "" {
		e.writeExportAssets(e.charOf[id], sym.Name)
	}
	if sym.ClassName != "" {
		e.writeTag(tagDoInitAction, registerClassActions(e.charOf[id], sym.Name, sym.ClassName))
	}
	return nil
}

// defineBitmap emits the lossless bitmap data plus a rectangular shape
// filled with it; the shape is the placeable character.
func (e *encoder) defineBitmap(id document.SymbolID, sym *document.Symbol) error {
	res, err := e.doc.Resources.Get(sym.Resource)
	if err != nil {
		return fmt.Errorf("bitmap %q: %w", sym.Name, err)
	}
	if res.Bitmap == nil {
		return fmt.Errorf("bitmap %q: resource %s has no bitmap metadata", sym.Name, res.Kind)
	}

	bitmapID, ok := e.bitmapChar[sym.Resource]
	if !ok {
		bitmapID = e.allocChar()
		e.bitmapChar[sym.Resource] = bitmapID

		// The container stores ARGB; the canonical payload is RGBA.
		argb := make([]byte, len(res.Payload))
		for i := 0; i+3 < len(res.Payload); i += 4 {
			argb[i] = res.Payload[i+3]
			argb[i+1] = res.Payload[i]
			argb[i+2] = res.Payload[i+1]
			argb[i+3] = res.Payload[i+2]
		}
		var compressed bytes.Buffer
		zw, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
		if err != nil {
			return err
		}
		if _, err := zw.Write(argb); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		var body bytes.Buffer
		writeU16(&body, bitmapID)
		body.WriteByte(bitmapFormat32)
		writeU16(&body, uint16(res.Bitmap.Width))
		writeU16(&body, uint16(res.Bitmap.Height))
		body.Write(compressed.Bytes())
		e.writeTag(tagDefineBitsLossless, body.Bytes())
	}

	shapeID := e.allocChar()
	e.charOf[id] = shapeID
	e.writeTag(tagDefineShape, bitmapShape(shapeID, bitmapID, res.Bitmap.Width, res.Bitmap.Height))
	return nil
}

// bitmapShape builds the DefineShape wrapper: a w x h rectangle with a
// clipped-bitmap fill, the bitmap fill matrix scaled to twips.
func bitmapShape(shapeID, bitmapID uint16, width, height int) []byte {
	var body bytes.Buffer
	writeU16(&body, shapeID)

	w := int32(width) * document.TwipsPerPixel
	h := int32(height) * document.TwipsPerPixel

	var bw bitWriter
	rect{xMin: 0, xMax: w, yMin: 0, yMax: h}.write(&bw)
	body.Write(bw.bytes())

	// Fill styles: one clipped bitmap fill.
	body.WriteByte(1)
	body.WriteByte(0x41)
	writeU16(&body, bitmapID)
	fillMatrix := document.Transform{ScaleX: document.TwipsPerPixel, ScaleY: document.TwipsPerPixel}
	var mw bitWriter
	writeMatrix(&mw, fillMatrix)
	body.Write(mw.bytes())
	// Line styles: none.
	body.WriteByte(0)

	var sw bitWriter
	sw.writeUB(4, 1) // fill index bits
	sw.writeUB(4, 0) // line index bits
	// Style change: move to (w, h), fill style 1 = the bitmap fill.
	sw.writeUB(1, 0)
	sw.writeUB(5, 0x05)
	n := sbBitsAll(w, h)
	sw.writeUB(5, uint32(n))
	sw.writeSB(n, w)
	sw.writeSB(n, h)
	sw.writeUB(1, 1)
	for _, d := range [][2]int32{{-w, 0}, {0, -h}, {w, 0}, {0, h}} {
		writeStraightEdge(&sw, d[0], d[1])
	}
	sw.writeUB(6, 0) // end of shape
	body.Write(sw.bytes())
	return body.Bytes()
}

func writeStraightEdge(w *bitWriter, dx, dy int32) {
	w.writeUB(1, 1) // edge record
	w.writeUB(1, 1) // straight
	n := sbBitsAll(dx, dy)
	if n < 2 {
		n = 2
	}
	w.writeUB(4, uint32(n-2))
	w.writeUB(1, 1) // general line
	w.writeSB(n, dx)
	w.writeSB(n, dy)
}

func (e *encoder) defineSound(id document.SymbolID, sym *document.Symbol) error {
	res, err := e.doc.Resources.Get(sym.Resource)
	if err != nil {
		return fmt.Errorf("sound %q: %w", sym.Name, err)
	}
	if res.Sound == nil {
		return fmt.Errorf("sound %q: resource %s has no sound metadata", sym.Name, res.Kind)
	}
	charID := e.allocChar()
	e.charOf[id] = charID

	var rate byte
	switch res.Sound.SampleRate {
	case 5512:
		rate = 0
	case 11025:
		rate = 1
	case 22050:
		rate = 2
	case 44100:
		rate = 3
	default:
		return fmt.Errorf("sound %q: unsupported sample rate %d", sym.Name, res.Sound.SampleRate)
	}
	format := byte(soundFormatUncompressed)
	if res.Sound.Codec == document.SoundMP3 {
		format = soundFormatMP3
	}
	flags := format<<4 | rate<<2
	if res.Sound.SixteenBit {
		flags |= 1 << 1
	}
	if res.Sound.Stereo {
		flags |= 1
	}

	var body bytes.Buffer
	writeU16(&body, charID)
	body.WriteByte(flags)
	writeU32(&body, res.Sound.SampleCount)
	body.Write(res.Payload)
	e.writeTag(tagDefineSound, body.Bytes())
	return nil
}

// defineFont re-emits a font payload produced by the external font
// converter, swapping in the compacted character id.
func (e *encoder) defineFont(id document.SymbolID, sym *document.Symbol) error {
	res, err := e.doc.Resources.Get(sym.Resource)
	if err != nil {
		return fmt.Errorf("font %q: %w", sym.Name, err)
	}
	if res.Font == nil {
		return fmt.Errorf("font %q: resource %s has no font metadata", sym.Name, res.Kind)
	}
	charID := e.allocChar()
	e.charOf[id] = charID

	var body bytes.Buffer
	writeU16(&body, charID)
	body.Write(res.Payload)
	e.writeTag(int(res.Font.TagCode), body.Bytes())
	return nil
}

// defineSprite emits the symbol's timeline as a sprite. Graphic and
// Button symbols use the same definition tag; the container has no
// separate characters for them, so their editor-side kind lives in the
// project side-channel.
func (e *encoder) defineSprite(id document.SymbolID, sym *document.Symbol) error {
	charID := e.allocChar()
	e.charOf[id] = charID

	inner := &encoder{
		doc:        e.doc,
		nextChar:   e.nextChar,
		charOf:     e.charOf,
		bitmapChar: e.bitmapChar,
	}
	if err := inner.writeTimelineTags(sym.Timeline); err != nil {
		return fmt.Errorf("sprite %q: %w", sym.Name, err)
	}
	inner.writeTag(tagEnd, nil)

	var body bytes.Buffer
	writeU16(&body, charID)
	writeU16(&body, uint16(sym.Timeline.FrameCount))
	body.Write(inner.body.Bytes())
	e.writeTag(tagDefineSprite, body.Bytes())
	return nil
}

// writeTimelineTags emits one ShowFrame per frame, placing spans when they
// begin and removing them when they end. Depths are shifted up by one:
// the container reserves depth 0.
func (e *encoder) writeTimelineTags(tl *document.Timeline) error {
	type spanEdge struct {
		id   document.InstanceID
		inst *document.Instance
	}
	starts := make(map[int][]spanEdge)
	ends := make(map[int][]spanEdge)
	for _, instID := range tl.Instances {
		inst, err := e.doc.Instance(instID)
		if err != nil {
			return err
		}
		starts[inst.StartFrame] = append(starts[inst.StartFrame], spanEdge{instID, inst})
		if inst.EndFrame() < tl.FrameCount {
			ends[inst.EndFrame()] = append(ends[inst.EndFrame()], spanEdge{instID, inst})
		}
	}

	for frame := 0; frame < tl.FrameCount; frame++ {
		edges := ends[frame]
		sort.Slice(edges, func(i, j int) bool { return edges[i].inst.Depth < edges[j].inst.Depth })
		for _, edge := range edges {
			var body bytes.Buffer
			writeU16(&body, uint16(edge.inst.Depth+1))
			e.writeTag(tagRemoveObject2, body.Bytes())
		}

		placed := starts[frame]
		sort.Slice(placed, func(i, j int) bool { return placed[i].inst.Depth < placed[j].inst.Depth })
		for _, edge := range placed {
			if err := e.writePlaceObject(edge.inst); err != nil {
				return err
			}
		}
		e.writeTag(tagShowFrame, nil)
	}
	return nil
}

func (e *encoder) writePlaceObject(inst *document.Instance) error {
	charID, ok := e.charOf[inst.Symbol]
	if !ok {
		return fmt.Errorf("no character id for symbol %d", inst.Symbol.Index)
	}

	flags := byte(placeFlagHasCharacter | placeFlagHasMatrix)
	if !inst.Color.IsIdentity() {
		flags |= placeFlagHasColor
	}
	if inst.Name != "" {
		flags |= placeFlagHasName
	}
	var script []byte
	if !inst.Script.IsNone() {
		res, err := e.doc.Resources.Get(inst.Script)
		if err != nil {
			return err
		}
		script = res.Payload
		flags |= placeFlagHasClipActions
	}

	var body bytes.Buffer
	body.WriteByte(flags)
	writeU16(&body, uint16(inst.Depth+1))
	writeU16(&body, charID)
	var mw bitWriter
	writeMatrix(&mw, inst.Transform)
	body.Write(mw.bytes())
	if flags&placeFlagHasColor != 0 {
		var cw bitWriter
		writeColorTransform(&cw, inst.Color)
		body.Write(cw.bytes())
	}
	if flags&placeFlagHasName != 0 {
		writeString(&body, inst.Name)
	}
	if flags&placeFlagHasClipActions != 0 {
		writeU16(&body, 0) // reserved
		writeU32(&body, clipEventLoad)
		writeU32(&body, clipEventLoad)
		writeU32(&body, uint32(len(script)))
		body.Write(script)
		writeU32(&body, 0) // end of clip action records
	}
	e.writeTag(tagPlaceObject2, body.Bytes())
	return nil
}

func (e *encoder) writeExportAssets(charID uint16, name string) {
	var body bytes.Buffer
	writeU16(&body, 1)
	writeU16(&body, charID)
	writeString(&body, name)
	e.writeTag(tagExportAssets, body.Bytes())
}

// writeTag emits the record header (short or long form) plus the body.
func (e *encoder) writeTag(code int, body []byte) {
	if len(body) < 0x3F {
		writeU16(&e.body, uint16(code<<6|len(body)))
	} else {
		writeU16(&e.body, uint16(code<<6|0x3F))
		writeU32(&e.body, uint32(len(body)))
	}
	e.body.Write(body)
}

// assemble prepends the movie header and compresses the body.
func (e *encoder) assemble() ([]byte, error) {
	props := e.doc.Properties

	var head bytes.Buffer
	var bw bitWriter
	rect{
		xMin: 0,
		xMax: int32(props.Width * document.TwipsPerPixel),
		yMin: 0,
		yMax: int32(props.Height * document.TwipsPerPixel),
	}.write(&bw)
	head.Write(bw.bytes())
	writeU16(&head, uint16(fixed8(props.FrameRate)))
	writeU16(&head, uint16(e.doc.Root.FrameCount))

	uncompressedLen := 8 + head.Len() + e.body.Len()

	var out bytes.Buffer
	out.WriteString("CWS")
	out.WriteByte(Version)
	writeU32(&out, uint32(uncompressedLen))
	zw, err := zlib.NewWriterLevel(&out, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(head.Bytes()); err != nil {
		return nil, err
	}
	if _, err := zw.Write(e.body.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}
