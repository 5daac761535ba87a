package importer

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/history"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 50), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// wavBytes assembles a minimal RIFF/WAVE file around the given PCM data.
func wavBytes(format, channels, rate, bits int, pcm []byte) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(16))
	binary.Write(&body, binary.LittleEndian, uint16(format))
	binary.Write(&body, binary.LittleEndian, uint16(channels))
	binary.Write(&body, binary.LittleEndian, uint32(rate))
	binary.Write(&body, binary.LittleEndian, uint32(rate*channels*bits/8))
	binary.Write(&body, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&body, binary.LittleEndian, uint16(bits))
	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(len(pcm)))
	body.Write(pcm)

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// mp3Bytes is one 417-byte MPEG1 layer III frame: 128 kbit/s, 44100 Hz,
// stereo, no padding.
func mp3Bytes() []byte {
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
	return frame
}

func execute(t *testing.T, doc *document.Document, cmd history.Command) {
	t.Helper()
	require.NoError(t, history.NewStack().Execute(doc, cmd))
}

func TestImportBitmapBuildsFullTransaction(t *testing.T) {
	doc := document.New()
	im := New(Config{})

	tx, err := im.ImportAsset("art/player.png", pngBytes(t, 3, 2))
	require.NoError(t, err)
	execute(t, doc, tx)

	require.Equal(t, 1, doc.SymbolCount())
	var sym *document.Symbol
	doc.EachSymbol(func(_ document.SymbolID, s *document.Symbol) { sym = s })
	assert.Equal(t, "player", sym.Name)
	assert.Equal(t, document.KindBitmap, sym.Kind)

	res, err := doc.Resources.Get(sym.Resource)
	require.NoError(t, err)
	assert.Equal(t, document.ResourceBitmap, res.Kind)
	assert.Equal(t, &document.BitmapMeta{Width: 3, Height: 2}, res.Bitmap)
	assert.Len(t, res.Payload, 3*2*4)

	require.Len(t, doc.Root.Instances, 1)
	inst, err := doc.Instance(doc.Root.Instances[0])
	require.NoError(t, err)
	assert.Equal(t, 0, inst.Depth)
	assert.Equal(t, 0, inst.StartFrame)
	assert.Equal(t, 1, inst.Duration)
}

func TestImportSameBitmapTwiceSharesResource(t *testing.T) {
	doc := document.New()
	im := New(Config{})
	data := pngBytes(t, 2, 2)

	tx, err := im.ImportAsset("a.png", data)
	require.NoError(t, err)
	execute(t, doc, tx)
	tx, err = im.ImportAsset("b.png", data)
	require.NoError(t, err)
	execute(t, doc, tx)

	assert.Equal(t, 1, doc.Resources.Len())
	assert.Equal(t, 2, doc.SymbolCount())
	require.Len(t, doc.Root.Instances, 2)

	// The second placement lands on the next free depth.
	depths := map[int]bool{}
	for _, id := range doc.Root.Instances {
		inst, err := doc.Instance(id)
		require.NoError(t, err)
		depths[inst.Depth] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, depths)
}

func TestBatchedImportsResolveDepthsAtApply(t *testing.T) {
	doc := document.New()
	im := New(Config{})
	data := pngBytes(t, 2, 2)

	// Workers build every transaction before the main loop executes any,
	// so stage depths must be picked when the edit applies, not when it
	// is built.
	first, err := im.ImportAsset("a.png", data)
	require.NoError(t, err)
	second, err := im.ImportAsset("b.png", data)
	require.NoError(t, err)

	execute(t, doc, first)
	execute(t, doc, second)

	require.Len(t, doc.Root.Instances, 2)
	depths := map[int]bool{}
	for _, id := range doc.Root.Instances {
		inst, err := doc.Instance(id)
		require.NoError(t, err)
		depths[inst.Depth] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, depths)
}

func TestImportUndoRemovesEverything(t *testing.T) {
	doc := document.New()
	im := New(Config{})
	stack := history.NewStack()

	tx, err := im.ImportAsset("spark.png", pngBytes(t, 2, 2))
	require.NoError(t, err)
	require.NoError(t, stack.Execute(doc, tx))
	require.NoError(t, stack.Undo(doc))

	assert.Equal(t, 0, doc.SymbolCount())
	assert.Equal(t, 0, doc.Resources.Len())
	assert.Empty(t, doc.Root.Instances)
}

func TestImportSoundIsNotPlaced(t *testing.T) {
	doc := document.New()
	im := New(Config{})

	pcm := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	tx, err := im.ImportAsset("jump.wav", wavBytes(1, 2, 22050, 16, pcm))
	require.NoError(t, err)
	execute(t, doc, tx)

	require.Equal(t, 1, doc.SymbolCount())
	var sym *document.Symbol
	doc.EachSymbol(func(_ document.SymbolID, s *document.Symbol) { sym = s })
	assert.Equal(t, document.KindSound, sym.Kind)
	assert.Empty(t, doc.Root.Instances)

	res, err := doc.Resources.Get(sym.Resource)
	require.NoError(t, err)
	assert.Equal(t, pcm, res.Payload)
	assert.Equal(t, &document.SoundMeta{
		Codec: document.SoundUncompressed, SampleRate: 22050,
		Stereo: true, SixteenBit: true, SampleCount: 2,
	}, res.Sound)
}

func TestWAVRejectsUnsupportedFormats(t *testing.T) {
	pcm := make([]byte, 16)
	cases := map[string][]byte{
		"non-PCM":     wavBytes(3, 1, 22050, 16, pcm),
		"bad rate":    wavBytes(1, 1, 8000, 16, pcm),
		"3 channels":  wavBytes(1, 3, 22050, 16, pcm),
		"24-bit":      wavBytes(1, 1, 22050, 24, pcm),
		"not a WAVE":  []byte("RIFF\x04\x00\x00\x00JUNK"),
		"no data":     wavBytes(1, 1, 22050, 16, pcm)[:28],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeSound("bad.wav", data)
			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestWAVAcceptsLowRateMP3CannotCarry(t *testing.T) {
	res, err := decodeSound("low.wav", wavBytes(1, 1, 5512, 8, make([]byte, 10)))
	require.NoError(t, err)
	assert.Equal(t, 5512, res.Sound.SampleRate)
	assert.False(t, res.Sound.SixteenBit)
	assert.Equal(t, uint32(10), res.Sound.SampleCount)
}

func TestMP3SingleFrame(t *testing.T) {
	data := mp3Bytes()
	res, err := decodeSound("music.mp3", data)
	require.NoError(t, err)

	assert.Equal(t, document.SoundMP3, res.Sound.Codec)
	assert.Equal(t, 44100, res.Sound.SampleRate)
	assert.True(t, res.Sound.Stereo)
	assert.Equal(t, uint32(1152), res.Sound.SampleCount)

	// A two-byte seek-sample prefix precedes the stream verbatim.
	require.Len(t, res.Payload, 2+len(data))
	assert.Equal(t, []byte{0, 0}, res.Payload[:2])
	assert.Equal(t, data, res.Payload[2:])
}

func TestMP3SkipsID3Prelude(t *testing.T) {
	id3 := append([]byte("ID3\x04\x00\x00\x00\x00\x00\x06"), make([]byte, 6)...)
	res, err := decodeSound("tagged.mp3", append(id3, mp3Bytes()...))
	require.NoError(t, err)
	assert.Equal(t, uint32(1152), res.Sound.SampleCount)
	assert.Equal(t, mp3Bytes(), res.Payload[2:])
}

func TestMP3RejectsGarbage(t *testing.T) {
	_, err := decodeSound("noise.mp3", []byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestImportRejectsOversizedAsset(t *testing.T) {
	im := New(Config{MaxAssetSize: 16})

	_, err := im.ImportAsset("huge.png", pngBytes(t, 8, 8))
	assert.ErrorIs(t, err, ErrAssetTooLarge)
}

func TestDetect(t *testing.T) {
	kind, err := Detect("Sprite.PNG")
	require.NoError(t, err)
	assert.Equal(t, AssetBitmap, kind)

	kind, err = Detect("theme.mp3")
	require.NoError(t, err)
	assert.Equal(t, AssetSound, kind)

	_, err = Detect("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedAssetFormat)
}

func TestImportRejectsCorruptBitmap(t *testing.T) {
	im := New(Config{})

	_, err := im.ImportAsset("broken.png", []byte("not an image"))
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}
