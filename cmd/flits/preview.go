package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/render"
)

// Player implements ebiten.Game interface, looping the movie's root
// timeline at its declared frame rate.
type Player struct {
	doc    *document.Document
	frame  int
	paused bool

	screenW int
	screenH int

	// Decoded bitmap cache, keyed by resource payload identity.
	images map[*document.Resource]*ebiten.Image
}

// RunPlayer opens a window and plays the movie until it is closed.
func RunPlayer(doc *document.Document, scale float64) error {
	if scale <= 0 {
		scale = 1
	}
	p := &Player{
		doc:     doc,
		screenW: int(doc.Properties.Width),
		screenH: int(doc.Properties.Height),
		images:  make(map[*document.Resource]*ebiten.Image),
	}

	ebiten.SetWindowSize(int(doc.Properties.Width*scale), int(doc.Properties.Height*scale))
	ebiten.SetWindowTitle("flits preview")
	ebiten.SetTPS(int(doc.Properties.FrameRate))

	return ebiten.RunGame(p)
}

// Update advances the playhead
func (p *Player) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		p.paused = !p.paused
	}

	total := p.doc.Root.FrameCount
	if p.paused {
		// Frame stepping while paused
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
			p.frame = (p.frame + 1) % total
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
			p.frame = (p.frame + total - 1) % total
		}
		return nil
	}
	p.frame = (p.frame + 1) % total
	return nil
}

// Draw renders the current frame
func (p *Player) Draw(screen *ebiten.Image) {
	bg := p.doc.Properties.Background
	screen.Fill(rgb(bg))

	items, err := render.Snapshot(p.doc, document.SymbolID{}, p.frame)
	if err != nil {
		ebitenutil.DebugPrint(screen, err.Error())
		return
	}

	for _, item := range items {
		img := p.image(item.Resource, item.Width, item.Height)

		var op ebiten.DrawImageOptions
		op.GeoM.SetElement(0, 0, item.Transform[0][0])
		op.GeoM.SetElement(0, 1, item.Transform[0][1])
		op.GeoM.SetElement(0, 2, item.Transform[0][2])
		op.GeoM.SetElement(1, 0, item.Transform[1][0])
		op.GeoM.SetElement(1, 1, item.Transform[1][1])
		op.GeoM.SetElement(1, 2, item.Transform[1][2])
		op.ColorScale.Scale(
			float32(item.Color.MulR),
			float32(item.Color.MulG),
			float32(item.Color.MulB),
			float32(item.Color.MulA),
		)
		screen.DrawImage(img, &op)
	}

	if p.paused {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("paused: frame %d/%d", p.frame+1, p.doc.Root.FrameCount))
	}
}

// Layout returns the movie's screen dimensions
func (p *Player) Layout(outsideWidth, outsideHeight int) (int, int) {
	return p.screenW, p.screenH
}

func (p *Player) image(res *document.Resource, width, height int) *ebiten.Image {
	if img, ok := p.images[res]; ok {
		return img
	}
	src := &image.RGBA{
		Pix:    res.Payload,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	img := ebiten.NewImageFromImage(src)
	p.images[res] = img
	return img
}

func rgb(c document.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
