// Package swf encodes and decodes the binary movie container: a versioned
// tag stream whose layout is fixed by the playback ecosystem. The tag
// identifiers and bit-level records here match the published format and
// must not be redefined.
package swf

// Version is the container revision this codec targets. Hardcoded so the
// rest of the editor never has to reason about per-version features.
const Version = 43

// Tag codes.
const (
	tagEnd                = 0
	tagShowFrame          = 1
	tagDefineShape        = 2
	tagRemoveObject       = 5
	tagSetBackgroundColor = 9
	tagDoAction           = 12
	tagDefineSound        = 14
	tagPlaceObject2       = 26
	tagRemoveObject2      = 28
	tagDefineBitsLossless = 36 // version 2, 32-bit ARGB
	tagDefineSprite       = 39
	tagFrameLabel         = 43
	tagDefineFont2        = 48
	tagExportAssets       = 56
	tagDoInitAction       = 59
	tagDefineFont3        = 75
)

// PlaceObject2 flag bits.
const (
	placeFlagMove           = 0x01
	placeFlagHasCharacter   = 0x02
	placeFlagHasMatrix      = 0x04
	placeFlagHasColor       = 0x08
	placeFlagHasRatio       = 0x10
	placeFlagHasName        = 0x20
	placeFlagHasClipDepth   = 0x40
	placeFlagHasClipActions = 0x80
)

// Clip event flag for the load event, the slot instance scripts run from.
const clipEventLoad = 0x00000001

// bitmapFormat32 is the DefineBitsLossless2 format byte for 32-bit ARGB.
const bitmapFormat32 = 5

// Sound format codes inside DefineSound.
const (
	soundFormatUncompressed = 0
	soundFormatMP3          = 2
)
