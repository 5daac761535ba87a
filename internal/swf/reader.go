package swf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// Decode parses a movie container back into a document. Characters the
// editor has no model for (shapes that are not bitmap wrappers, morphs,
// text) are skipped; placements that reference a skipped or undefined
// character fail with ErrDanglingReference. Timeline symbols come back as
// movie clips; the project side-channel restores finer kinds.
func Decode(data []byte) (*document.Document, error) {
	body, err := decompress(data)
	if err != nil {
		return nil, err
	}

	doc := document.New()
	d := &decoder{
		doc:      doc,
		symbolOf: make(map[uint16]document.SymbolID),
		skipped:  make(map[uint16]bool),
		bitmaps:  make(map[uint16]*pendingBitmap),
	}

	br := newBitReader(body)
	stage := readRect(br)
	off := br.consumed()
	if br.err {
		return nil, corruptf(0, "truncated stage rect")
	}
	if len(body) < off+4 {
		return nil, corruptf(off, "truncated movie header")
	}
	doc.Properties.Width = float64(stage.xMax-stage.xMin) / document.TwipsPerPixel
	doc.Properties.Height = float64(stage.yMax-stage.yMin) / document.TwipsPerPixel
	doc.Properties.FrameRate = fromFixed8(int16(binary.LittleEndian.Uint16(body[off:])))
	declaredFrames := int(binary.LittleEndian.Uint16(body[off+2:]))

	frames, err := d.readTimeline(body[off+4:], off+4, document.SymbolID{}, doc.Root)
	if err != nil {
		return nil, err
	}
	if frames != declaredFrames {
		return nil, corruptf(off+2, "header declares %d frames, stream has %d", declaredFrames, frames)
	}
	return doc, nil
}

// decompress validates the signature and version and returns the
// uncompressed movie body (everything after the 8-byte header).
func decompress(data []byte) ([]byte, error) {
	if len(data) < 8 {
		return nil, corruptf(0, "short file: %d bytes", len(data))
	}
	sig := string(data[:3])
	if sig != "CWS" && sig != "FWS" {
		return nil, corruptf(0, "bad signature %q", sig)
	}
	if v := data[3]; v > Version {
		return nil, fmt.Errorf("container version %d: %w", v, ErrUnsupportedVersion)
	}
	declared := binary.LittleEndian.Uint32(data[4:8])

	var body []byte
	if sig == "CWS" {
		zr, err := zlib.NewReader(bytes.NewReader(data[8:]))
		if err != nil {
			return nil, corruptf(8, "compressed body: %v", err)
		}
		defer zr.Close()
		body, err = io.ReadAll(zr)
		if err != nil {
			return nil, corruptf(8, "compressed body: %v", err)
		}
	} else {
		body = data[8:]
	}
	if got := uint32(len(body) + 8); got != declared {
		return nil, corruptf(4, "header declares %d bytes, body yields %d", declared, got)
	}
	return body, nil
}

type pendingBitmap struct {
	width, height int
	rgba          []byte
}

type decoder struct {
	doc      *document.Document
	symbolOf map[uint16]document.SymbolID
	skipped  map[uint16]bool
	bitmaps  map[uint16]*pendingBitmap
}

// openSpan is a placement whose end frame is not known yet.
type openSpan struct {
	inst document.Instance
}

// readTimeline runs the tag loop over data, building the timeline of owner
// (the zero id for the main stage). base is data's offset in the whole
// movie body, for error reporting. Returns the number of frames counted.
func (d *decoder) readTimeline(data []byte, base int, owner document.SymbolID, tl *document.Timeline) (int, error) {
	frame := 0
	open := make(map[uint16]*openSpan)
	var closed []document.Instance

	closeSpan := func(depth uint16) {
		span, ok := open[depth]
		if !ok {
			return
		}
		span.inst.Duration = frame - span.inst.StartFrame
		if span.inst.Duration > 0 {
			closed = append(closed, span.inst)
		}
		delete(open, depth)
	}

	pos := 0
	for {
		if len(data[pos:]) < 2 {
			return 0, corruptf(base+pos, "missing end tag")
		}
		tagOff := base + pos
		v := binary.LittleEndian.Uint16(data[pos:])
		pos += 2
		code := int(v >> 6)
		length := int(v & 0x3F)
		if length == 0x3F {
			if len(data[pos:]) < 4 {
				return 0, corruptf(tagOff, "truncated long tag header")
			}
			length = int(binary.LittleEndian.Uint32(data[pos:]))
			pos += 4
		}
		if len(data[pos:]) < length {
			return 0, corruptf(tagOff, "tag %d body overruns stream", code)
		}
		body := data[pos : pos+length]
		pos += length

		switch code {
		case tagEnd:
			for depth := range open {
				span := open[depth]
				span.inst.Duration = frame - span.inst.StartFrame
				if span.inst.Duration > 0 {
					closed = append(closed, span.inst)
				}
			}
			if frame > 0 {
				tl.FrameCount = frame
			}
			for _, inst := range closed {
				if _, err := d.doc.PlaceInstance(owner, inst); err != nil {
					return 0, fmt.Errorf("offset %d: restore placement: %w", tagOff, err)
				}
			}
			return frame, nil

		case tagShowFrame:
			frame++

		case tagSetBackgroundColor:
			if len(body) < 3 {
				return 0, corruptf(tagOff, "short background color")
			}
			d.doc.Properties.Background = document.Color{R: body[0], G: body[1], B: body[2]}

		case tagDefineBitsLossless:
			if err := d.readLossless(body, tagOff); err != nil {
				return 0, err
			}

		case tagDefineShape:
			if err := d.readShape(body, tagOff); err != nil {
				return 0, err
			}

		case tagDefineSound:
			if err := d.readSound(body, tagOff); err != nil {
				return 0, err
			}

		case tagDefineFont2, tagDefineFont3:
			if err := d.readFont(code, body, tagOff); err != nil {
				return 0, err
			}

		case tagDefineSprite:
			if err := d.readSprite(body, tagOff); err != nil {
				return 0, err
			}

		case tagPlaceObject2:
			if err := d.readPlaceObject(body, tagOff, frame, open, closeSpan); err != nil {
				return 0, err
			}

		case tagRemoveObject:
			if len(body) < 4 {
				return 0, corruptf(tagOff, "short remove")
			}
			closeSpan(binary.LittleEndian.Uint16(body[2:]))

		case tagRemoveObject2:
			if len(body) < 2 {
				return 0, corruptf(tagOff, "short remove")
			}
			closeSpan(binary.LittleEndian.Uint16(body))

		case tagExportAssets:
			if err := d.readExports(body, tagOff); err != nil {
				return 0, err
			}

		case tagDoInitAction:
			if charID, className, ok := parseRegisterClass(body); ok {
				if symID, defined := d.symbolOf[charID]; defined {
					sym, err := d.doc.Symbol(symID)
					if err != nil {
						return 0, err
					}
					sym.ClassName = className
				}
			}

		default:
			// Tags the editor has no model for are dropped. Definitions
			// among them must still reserve their character id so later
			// references fail cleanly instead of silently misbinding.
			if isDefinitionTag(code) && len(body) >= 2 {
				d.skipped[binary.LittleEndian.Uint16(body)] = true
			}
		}
	}
}

func isDefinitionTag(code int) bool {
	switch code {
	case 2, 6, 7, 10, 13, 14, 20, 21, 22, 32, 33, 34, 35, 36, 37, 39, 46, 48, 49, 75, 83, 84, 87, 90:
		return true
	}
	return false
}

func (d *decoder) readLossless(body []byte, off int) error {
	if len(body) < 7 {
		return corruptf(off, "short lossless bitmap")
	}
	charID := binary.LittleEndian.Uint16(body)
	if body[2] != bitmapFormat32 {
		d.skipped[charID] = true
		return nil
	}
	width := int(binary.LittleEndian.Uint16(body[3:]))
	height := int(binary.LittleEndian.Uint16(body[5:]))

	zr, err := zlib.NewReader(bytes.NewReader(body[7:]))
	if err != nil {
		return corruptf(off, "bitmap %d: %v", charID, err)
	}
	defer zr.Close()
	argb, err := io.ReadAll(zr)
	if err != nil {
		return corruptf(off, "bitmap %d: %v", charID, err)
	}
	if len(argb) != width*height*4 {
		return corruptf(off, "bitmap %d: %dx%d wants %d bytes, has %d", charID, width, height, width*height*4, len(argb))
	}
	rgba := make([]byte, len(argb))
	for i := 0; i+3 < len(argb); i += 4 {
		rgba[i] = argb[i+1]
		rgba[i+1] = argb[i+2]
		rgba[i+2] = argb[i+3]
		rgba[i+3] = argb[i]
	}
	d.bitmaps[charID] = &pendingBitmap{width: width, height: height, rgba: rgba}
	return nil
}

// readShape recognizes the one shape form the encoder writes, a rectangle
// with a single clipped-bitmap fill, and turns it back into a bitmap
// symbol. Anything else is a foreign shape and is skipped.
func (d *decoder) readShape(body []byte, off int) error {
	if len(body) < 2 {
		return corruptf(off, "short shape")
	}
	charID := binary.LittleEndian.Uint16(body)

	br := newBitReader(body[2:])
	readRect(br)
	if br.err {
		return corruptf(off, "truncated shape bounds")
	}
	rest := body[2+br.consumed():]
	if len(rest) < 4 || rest[0] != 1 || rest[1] != 0x41 {
		d.skipped[charID] = true
		return nil
	}
	bitmapID := binary.LittleEndian.Uint16(rest[2:])
	bm, ok := d.bitmaps[bitmapID]
	if !ok {
		return danglingf(off, bitmapID)
	}

	resID, _ := d.doc.Resources.Intern(document.Resource{
		Kind:        document.ResourceBitmap,
		Payload:     bm.rgba,
		Fingerprint: document.Fingerprint(bm.rgba),
		Bitmap:      &document.BitmapMeta{Width: bm.width, Height: bm.height},
	})
	symID, err := d.doc.DefineSymbol(document.Symbol{Kind: document.KindBitmap, Resource: resID})
	if err != nil {
		return fmt.Errorf("offset %d: bitmap symbol: %w", off, err)
	}
	d.symbolOf[charID] = symID
	return nil
}

func (d *decoder) readSound(body []byte, off int) error {
	if len(body) < 7 {
		return corruptf(off, "short sound")
	}
	charID := binary.LittleEndian.Uint16(body)
	flags := body[2]

	meta := document.SoundMeta{
		SampleCount: binary.LittleEndian.Uint32(body[3:]),
		SixteenBit:  flags&(1<<1) != 0,
		Stereo:      flags&1 != 0,
	}
	switch flags >> 4 {
	case soundFormatUncompressed:
		meta.Codec = document.SoundUncompressed
	case soundFormatMP3:
		meta.Codec = document.SoundMP3
	default:
		d.skipped[charID] = true
		return nil
	}
	meta.SampleRate = []int{5512, 11025, 22050, 44100}[flags>>2&0x03]

	payload := append([]byte(nil), body[7:]...)
	resID, _ := d.doc.Resources.Intern(document.Resource{
		Kind:        document.ResourceSound,
		Payload:     payload,
		Fingerprint: document.Fingerprint(payload),
		Sound:       &meta,
	})
	symID, err := d.doc.DefineSymbol(document.Symbol{Kind: document.KindSound, Resource: resID})
	if err != nil {
		return fmt.Errorf("offset %d: sound symbol: %w", off, err)
	}
	d.symbolOf[charID] = symID
	return nil
}

func (d *decoder) readFont(code int, body []byte, off int) error {
	if len(body) < 2 {
		return corruptf(off, "short font")
	}
	charID := binary.LittleEndian.Uint16(body)
	payload := append([]byte(nil), body[2:]...)
	resID, _ := d.doc.Resources.Intern(document.Resource{
		Kind:        document.ResourceFont,
		Payload:     payload,
		Fingerprint: document.Fingerprint(payload),
		Font:        &document.FontMeta{TagCode: uint16(code)},
	})
	symID, err := d.doc.DefineSymbol(document.Symbol{Kind: document.KindFont, Resource: resID})
	if err != nil {
		return fmt.Errorf("offset %d: font symbol: %w", off, err)
	}
	d.symbolOf[charID] = symID
	return nil
}

func (d *decoder) readSprite(body []byte, off int) error {
	if len(body) < 4 {
		return corruptf(off, "short sprite")
	}
	charID := binary.LittleEndian.Uint16(body)
	declaredFrames := int(binary.LittleEndian.Uint16(body[2:]))

	symID, err := d.doc.DefineSymbol(document.Symbol{Kind: document.KindMovieClip})
	if err != nil {
		return fmt.Errorf("offset %d: sprite symbol: %w", off, err)
	}
	d.symbolOf[charID] = symID
	sym, err := d.doc.Symbol(symID)
	if err != nil {
		return err
	}
	frames, err := d.readTimeline(body[4:], off+4, symID, sym.Timeline)
	if err != nil {
		return err
	}
	if frames != declaredFrames {
		return corruptf(off, "sprite %d declares %d frames, stream has %d", charID, declaredFrames, frames)
	}
	return nil
}

func (d *decoder) readPlaceObject(body []byte, off, frame int, open map[uint16]*openSpan, closeSpan func(uint16)) error {
	if len(body) < 3 {
		return corruptf(off, "short placement")
	}
	flags := body[0]
	depth := binary.LittleEndian.Uint16(body[1:])
	if depth == 0 {
		return corruptf(off, "placement at reserved depth 0")
	}
	pos := 3

	var inst document.Instance
	if flags&placeFlagMove != 0 {
		prev, ok := open[depth]
		if !ok {
			return corruptf(off, "move at empty depth %d", depth)
		}
		inst = prev.inst
	}

	if flags&placeFlagHasCharacter != 0 {
		if len(body[pos:]) < 2 {
			return corruptf(off, "truncated placement")
		}
		charID := binary.LittleEndian.Uint16(body[pos:])
		pos += 2
		symID, ok := d.symbolOf[charID]
		if !ok {
			return danglingf(off, charID)
		}
		inst.Symbol = symID
	} else if flags&placeFlagMove == 0 {
		return corruptf(off, "placement at depth %d has no character", depth)
	}

	if flags&placeFlagHasMatrix != 0 {
		br := newBitReader(body[pos:])
		inst.Transform = readMatrix(br)
		if br.err {
			return corruptf(off, "truncated placement matrix")
		}
		pos += br.consumed()
	} else if flags&placeFlagMove == 0 {
		inst.Transform = document.IdentityTransform()
	}
	if flags&placeFlagHasColor != 0 {
		br := newBitReader(body[pos:])
		inst.Color = readColorTransform(br)
		if br.err {
			return corruptf(off, "truncated color transform")
		}
		pos += br.consumed()
	} else if flags&placeFlagMove == 0 {
		inst.Color = document.IdentityColor()
	}
	if flags&placeFlagHasRatio != 0 {
		pos += 2
	}
	if flags&placeFlagHasName != 0 {
		end := bytes.IndexByte(body[pos:], 0)
		if end < 0 {
			return corruptf(off, "unterminated instance name")
		}
		inst.Name = string(body[pos : pos+end])
		pos += end + 1
	}
	if flags&placeFlagHasClipActions != 0 {
		script, err := readClipActions(body[pos:], off)
		if err != nil {
			return err
		}
		resID, _ := d.doc.Resources.Intern(document.Resource{
			Kind:        document.ResourceScript,
			Payload:     script,
			Fingerprint: document.Fingerprint(script),
		})
		inst.Script = resID
	}

	// A new placement at an occupied depth replaces the previous one; a
	// move restarts the span with the updated attributes.
	closeSpan(depth)
	inst.Depth = int(depth) - 1
	inst.StartFrame = frame
	open[depth] = &openSpan{inst: inst}
	return nil
}

// readClipActions pulls the first event handler's action bytes out of the
// clip actions block. The editor attaches one script per instance, fired
// on load, so one record is all there is to recover.
func readClipActions(data []byte, off int) ([]byte, error) {
	if len(data) < 10 {
		return nil, corruptf(off, "short clip actions")
	}
	// reserved u16, all-event flags u32, first record's event flags u32.
	pos := 10
	if len(data[pos:]) < 4 {
		return nil, corruptf(off, "truncated clip action record")
	}
	size := int(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4
	if len(data[pos:]) < size {
		return nil, corruptf(off, "clip action record overruns tag")
	}
	return append([]byte(nil), data[pos:pos+size]...), nil
}

func (d *decoder) readExports(body []byte, off int) error {
	if len(body) < 2 {
		return corruptf(off, "short export table")
	}
	count := int(binary.LittleEndian.Uint16(body))
	pos := 2
	for i := 0; i < count; i++ {
		if len(body[pos:]) < 3 {
			return corruptf(off, "truncated export table")
		}
		charID := binary.LittleEndian.Uint16(body[pos:])
		pos += 2
		end := bytes.IndexByte(body[pos:], 0)
		if end < 0 {
			return corruptf(off, "unterminated export name")
		}
		name := string(body[pos : pos+end])
		pos += end + 1

		symID, ok := d.symbolOf[charID]
		if !ok {
			if d.skipped[charID] {
				continue
			}
			return danglingf(off, charID)
		}
		sym, err := d.doc.Symbol(symID)
		if err != nil {
			return err
		}
		sym.Name = name
	}
	return nil
}
