// Package render projects a document frame into a flat, ordered draw list.
// It is a pure read: building a snapshot never mutates the document.
package render

import (
	"fmt"
	"sort"

	mt "github.com/rustyoz/Mtransform"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// Item is one drawable leaf: a bitmap payload with its fully composed
// world transform (in pixels) and color transform. Items are ordered
// back to front.
type Item struct {
	// Instance is the top-level placement this leaf belongs to, for hit
	// testing and selection. Leaves inside nested timelines report the
	// instance on the snapshotted timeline, not the inner one.
	Instance document.InstanceID

	Symbol    document.SymbolID
	Resource  *document.Resource
	Width     int
	Height    int
	Transform mt.Transform
	Color     document.ColorTransform
}

// Snapshot resolves the timeline of owner (the zero id for the stage) at
// the given frame into a draw list. Nested timelines are resolved
// depth-first: graphics play in lockstep with their parent, movie clips
// and buttons show their first frame.
func Snapshot(doc *document.Document, owner document.SymbolID, frame int) ([]Item, error) {
	tl, err := doc.TimelineOf(owner)
	if err != nil {
		return nil, err
	}
	var items []Item
	err = walk(doc, tl, frame, mt.Identity(), document.IdentityColor(), document.InstanceID{}, &items)
	return items, err
}

func walk(doc *document.Document, tl *document.Timeline, frame int, parent mt.Transform, parentColor document.ColorTransform, top document.InstanceID, items *[]Item) error {
	type active struct {
		id   document.InstanceID
		inst *document.Instance
	}
	var actives []active
	for _, instID := range tl.Instances {
		inst, err := doc.Instance(instID)
		if err != nil {
			return err
		}
		if inst.ActiveAt(frame) {
			actives = append(actives, active{instID, inst})
		}
	}
	sort.SliceStable(actives, func(i, j int) bool { return actives[i].inst.Depth < actives[j].inst.Depth })

	for _, a := range actives {
		sym, err := doc.Symbol(a.inst.Symbol)
		if err != nil {
			return fmt.Errorf("instance at depth %d: %w", a.inst.Depth, err)
		}
		world := mt.MultiplyTransforms(parent, toMatrix(a.inst.Transform))
		color := composeColor(parentColor, a.inst.Color)
		topmost := top
		if topmost == (document.InstanceID{}) {
			topmost = a.id
		}

		switch {
		case sym.Kind == document.KindBitmap:
			res, err := doc.Resources.Get(sym.Resource)
			if err != nil {
				return fmt.Errorf("bitmap %q: %w", sym.Name, err)
			}
			*items = append(*items, Item{
				Instance:  topmost,
				Symbol:    a.inst.Symbol,
				Resource:  res,
				Width:     res.Bitmap.Width,
				Height:    res.Bitmap.Height,
				Transform: world,
				Color:     color,
			})
		case sym.Kind.HasTimeline():
			inner := 0
			if sym.Kind == document.KindGraphic && sym.Timeline.FrameCount > 0 {
				inner = (frame - a.inst.StartFrame) % sym.Timeline.FrameCount
			}
			if err := walk(doc, sym.Timeline, inner, world, color, topmost, items); err != nil {
				return err
			}
		}
	}
	return nil
}

// toMatrix converts a document transform into a drawing matrix, with
// translation in pixels.
func toMatrix(t document.Transform) mt.Transform {
	m := mt.Identity()
	m[0][0] = t.ScaleX
	m[0][1] = t.RotateSkew1
	m[0][2] = float64(t.TranslateX) / document.TwipsPerPixel
	m[1][0] = t.RotateSkew0
	m[1][1] = t.ScaleY
	m[1][2] = float64(t.TranslateY) / document.TwipsPerPixel
	return m
}

// composeColor concatenates a child's color transform onto its parent's.
func composeColor(p, c document.ColorTransform) document.ColorTransform {
	return document.ColorTransform{
		MulR: p.MulR * c.MulR,
		MulG: p.MulG * c.MulG,
		MulB: p.MulB * c.MulB,
		MulA: p.MulA * c.MulA,
		AddR: p.AddR + c.AddR,
		AddG: p.AddG + c.AddG,
		AddB: p.AddB + c.AddB,
		AddA: p.AddA + c.AddA,
	}
}
