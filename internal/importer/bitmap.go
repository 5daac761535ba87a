package importer

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// maxBitmapDim is the container's dimension limit: widths and heights are
// stored as 16-bit values.
const maxBitmapDim = 0xFFFF

// decodeBitmap turns PNG, JPEG, or BMP bytes into the canonical embedded
// form: raw RGBA, row major.
func decodeBitmap(filename string, data []byte) (document.Resource, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return document.Resource{}, &DecodeError{Filename: filename, Err: err}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxBitmapDim || height > maxBitmapDim {
		return document.Resource{}, fmt.Errorf("%s: %dx%d exceeds %d pixel limit: %w",
			filename, width, height, maxBitmapDim, ErrAssetTooLarge)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != width*4 {
		conv := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(conv, conv.Bounds(), img, bounds.Min, draw.Src)
		rgba = conv
	}

	return document.Resource{
		Kind:        document.ResourceBitmap,
		Payload:     rgba.Pix,
		Fingerprint: document.Fingerprint(rgba.Pix),
		Bitmap:      &document.BitmapMeta{Width: width, Height: height},
	}, nil
}
