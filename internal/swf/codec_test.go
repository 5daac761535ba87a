package swf

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// buildMovie assembles a document exercising every encodable feature:
// a bitmap wrapped by a clip, a named stage instance with a script, an
// exported sound, and a scripted class binding.
func buildMovie(t *testing.T) *document.Document {
	t.Helper()
	doc := document.New()
	doc.Properties = document.MovieProperties{
		Width: 320, Height: 240, FrameRate: 24,
		Background: document.Color{R: 0x10, G: 0x20, B: 0x30},
	}

	pixels := []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 128,
	}
	bitmapRes, _ := doc.Resources.Intern(document.Resource{
		Kind: document.ResourceBitmap, Payload: pixels,
		Bitmap: &document.BitmapMeta{Width: 2, Height: 2},
	})
	bitmap, err := doc.DefineSymbol(document.Symbol{Name: "img", Kind: document.KindBitmap, Resource: bitmapRes})
	require.NoError(t, err)

	clip, err := doc.DefineSymbol(document.Symbol{Name: "clip", Kind: document.KindMovieClip, ClassName: "game.Clip"})
	require.NoError(t, err)
	_, err = doc.PlaceInstance(clip, document.Instance{
		Symbol: bitmap, Depth: 0, Duration: 1,
		Transform: document.Transform{ScaleX: 2, ScaleY: 2, TranslateX: 100, TranslateY: -40},
		Color:     document.IdentityColor(),
	})
	require.NoError(t, err)

	soundData := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	soundRes, _ := doc.Resources.Intern(document.Resource{
		Kind: document.ResourceSound, Payload: soundData,
		Sound: &document.SoundMeta{Codec: document.SoundUncompressed, SampleRate: 22050, SixteenBit: true, SampleCount: 2},
	})
	_, err = doc.DefineSymbol(document.Symbol{Name: "beep", Kind: document.KindSound, Resource: soundRes})
	require.NoError(t, err)

	script := []byte{0x96, 0x02, 0x00, 0x08, 0x00, 0x1C, 0x17, 0x00}
	scriptRes, _ := doc.Resources.Intern(document.Resource{Kind: document.ResourceScript, Payload: script})

	require.NoError(t, doc.InsertFrame(document.SymbolID{}, 1))
	require.NoError(t, doc.InsertFrame(document.SymbolID{}, 2))
	_, err = doc.PlaceInstance(document.SymbolID{}, document.Instance{
		Symbol: clip, Depth: 1, StartFrame: 0, Duration: 3,
		Transform: document.IdentityTransform().Translated(16, 9),
		Color:     document.ColorTransform{MulR: 0.5, MulG: 1, MulB: 1, MulA: 1, AddB: 30},
		Name:      "hero",
		Script:    scriptRes,
	})
	require.NoError(t, err)
	_, err = doc.PlaceInstance(document.SymbolID{}, document.Instance{
		Symbol: clip, Depth: 0, StartFrame: 1, Duration: 1,
		Transform: document.IdentityTransform(),
		Color:     document.IdentityColor(),
	})
	require.NoError(t, err)

	return doc
}

func symbolByName(t *testing.T, doc *document.Document, name string) (document.SymbolID, *document.Symbol) {
	t.Helper()
	var foundID document.SymbolID
	var found *document.Symbol
	doc.EachSymbol(func(id document.SymbolID, sym *document.Symbol) {
		if sym.Name == name {
			foundID, found = id, sym
		}
	})
	require.NotNil(t, found, "symbol %q not in document", name)
	return foundID, found
}

func TestEncodeIsDeterministic(t *testing.T) {
	doc := buildMovie(t)

	first, err := Encode(doc)
	require.NoError(t, err)
	second, err := Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRoundTrip(t *testing.T) {
	doc := buildMovie(t)

	data, err := Encode(doc)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Properties, got.Properties)
	assert.Equal(t, 3, got.Root.FrameCount)
	assert.Equal(t, doc.SymbolCount(), got.SymbolCount())

	// Bitmap symbol: payload and dimensions survive.
	_, img := symbolByName(t, got, "img")
	assert.Equal(t, document.KindBitmap, img.Kind)
	res, err := got.Resources.Get(img.Resource)
	require.NoError(t, err)
	origRes, _ := doc.Resources.Get(mustSymbol(t, doc, "img").Resource)
	assert.Equal(t, origRes.Payload, res.Payload)
	assert.Equal(t, &document.BitmapMeta{Width: 2, Height: 2}, res.Bitmap)

	// Clip: kind flattens to movie clip, class binding survives, the
	// nested placement keeps its transform.
	clipID, clip := symbolByName(t, got, "clip")
	assert.Equal(t, document.KindMovieClip, clip.Kind)
	assert.Equal(t, "game.Clip", clip.ClassName)
	require.Len(t, clip.Timeline.Instances, 1)
	nested, err := got.Instance(clip.Timeline.Instances[0])
	require.NoError(t, err)
	assert.Equal(t, document.Transform{ScaleX: 2, ScaleY: 2, TranslateX: 100, TranslateY: -40}, nested.Transform)

	// Sound: exported by name, payload intact.
	_, beep := symbolByName(t, got, "beep")
	assert.Equal(t, document.KindSound, beep.Kind)
	sres, err := got.Resources.Get(beep.Resource)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, sres.Payload)
	assert.Equal(t, 22050, sres.Sound.SampleRate)
	assert.True(t, sres.Sound.SixteenBit)

	// Stage placements: spans, depths, names, color and script survive.
	require.Len(t, got.Root.Instances, 2)
	var hero, other *document.Instance
	for _, instID := range got.Root.Instances {
		inst, err := got.Instance(instID)
		require.NoError(t, err)
		if inst.Name == "hero" {
			hero = inst
		} else {
			other = inst
		}
	}
	require.NotNil(t, hero)
	require.NotNil(t, other)

	assert.Equal(t, clipID, hero.Symbol)
	assert.Equal(t, 1, hero.Depth)
	assert.Equal(t, 0, hero.StartFrame)
	assert.Equal(t, 3, hero.Duration)
	assert.Equal(t, document.IdentityTransform().Translated(16, 9), hero.Transform)
	assert.Equal(t, document.ColorTransform{MulR: 0.5, MulG: 1, MulB: 1, MulA: 1, AddB: 30}, hero.Color)
	scriptRes, err := got.Resources.Get(hero.Script)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x96, 0x02, 0x00, 0x08, 0x00, 0x1C, 0x17, 0x00}, scriptRes.Payload)

	assert.Equal(t, 0, other.Depth)
	assert.Equal(t, 1, other.StartFrame)
	assert.Equal(t, 1, other.Duration)
}

func mustSymbol(t *testing.T, doc *document.Document, name string) *document.Symbol {
	t.Helper()
	_, sym := symbolByName(t, doc, name)
	return sym
}

func TestReEncodeAfterRoundTripIsStable(t *testing.T) {
	doc := buildMovie(t)
	data, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	again, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestEncodeOmitsUnreferencedResources(t *testing.T) {
	doc := buildMovie(t)
	orphan := []byte("never referenced by anything")
	doc.Resources.Intern(document.Resource{Kind: document.ResourceScript, Payload: orphan})

	data, err := Encode(doc)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	got.Resources.Each(func(_ document.ResourceID, res *document.Resource, _ int) {
		assert.NotEqual(t, orphan, res.Payload)
	})
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	_, err := Decode([]byte("GIF89a notamovie"))
	assert.ErrorIs(t, err, ErrCorruptContainer)

	_, err = Decode([]byte("FW"))
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	_, err := Decode([]byte{'F', 'W', 'S', Version + 1, 8, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	_, err := Decode([]byte{'F', 'W', 'S', Version, 99, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

// rawMovie assembles an uncompressed movie around the given tag stream.
func rawMovie(frameCount uint16, tags []byte) []byte {
	body := []byte{0x00}                   // zero-size stage rect
	body = append(body, 0x00, 0x18)        // 24 fps in 8.8 fixed
	body = binary.LittleEndian.AppendUint16(body, frameCount)
	body = append(body, tags...)

	data := []byte{'F', 'W', 'S', Version}
	data = binary.LittleEndian.AppendUint32(data, uint32(8+len(body)))
	return append(data, body...)
}

func tag(code int, body []byte) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(code<<6|len(body)))
	return append(out, body...)
}

func TestDecodeDanglingReference(t *testing.T) {
	var tags []byte
	// Place character 5, which no tag defines.
	tags = append(tags, tag(tagPlaceObject2, []byte{placeFlagHasCharacter, 1, 0, 5, 0})...)
	tags = append(tags, tag(tagShowFrame, nil)...)
	tags = append(tags, tag(tagEnd, nil)...)

	_, err := Decode(rawMovie(1, tags))
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestDecodeRejectsReservedDepthZero(t *testing.T) {
	var tags []byte
	tags = append(tags, tag(tagPlaceObject2, []byte{placeFlagHasCharacter, 0, 0, 5, 0})...)
	tags = append(tags, tag(tagShowFrame, nil)...)
	tags = append(tags, tag(tagEnd, nil)...)

	_, err := Decode(rawMovie(1, tags))
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

func TestDecodeFrameCountMismatch(t *testing.T) {
	var tags []byte
	tags = append(tags, tag(tagShowFrame, nil)...)
	tags = append(tags, tag(tagEnd, nil)...)

	_, err := Decode(rawMovie(2, tags))
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

func TestDecodeMissingEndTag(t *testing.T) {
	_, err := Decode(rawMovie(1, tag(tagShowFrame, nil)))
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

func TestDecodeSkipsUnknownTags(t *testing.T) {
	var tags []byte
	tags = append(tags, tag(tagFrameLabel, []byte("intro\x00"))...)
	tags = append(tags, tag(tagShowFrame, nil)...)
	tags = append(tags, tag(tagEnd, nil)...)

	doc, err := Decode(rawMovie(1, tags))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Root.FrameCount)
}
