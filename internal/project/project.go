// Package project persists an editing session. The movie file is the
// canonical artifact; editor-only state (camera, selection, the symbol
// kinds the container cannot express) rides in an optional JSON
// side-channel next to it. Deleting the side-channel loses editor
// conveniences, never movie content.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/swf"
)

// MetaSuffix is appended to the movie path to name the side-channel file.
const MetaSuffix = ".flits.json"

// Camera is the editor viewport.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Meta is the editor-only side-channel. Symbol entries are keyed by the
// symbol's position in the movie's emission order, which the codec keeps
// stable across a round trip.
type Meta struct {
	Camera Camera `json:"camera"`

	// EditingSymbol is the emission-order position of the symbol open in
	// the editor, or -1 for the stage.
	EditingSymbol int `json:"editingSymbol"`

	// SymbolKinds restores the kinds the container flattens to sprites:
	// emission-order position -> kind name.
	SymbolKinds map[int]string `json:"symbolKinds,omitempty"`
}

// Save writes the movie to path and the side-channel next to it.
func Save(path string, doc *document.Document, meta Meta) error {
	data, err := swf.Encode(doc)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	meta.SymbolKinds = kindOverrides(doc)
	metaData, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.WriteFile(path+MetaSuffix, metaData, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Load reads the movie at path and, when present, applies the
// side-channel. A missing side-channel yields default editor state.
func Load(path string) (*document.Document, Meta, error) {
	meta := Meta{EditingSymbol: -1, Camera: Camera{Zoom: 1}}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, meta, fmt.Errorf("load %s: %w", path, err)
	}
	doc, err := swf.Decode(data)
	if err != nil {
		return nil, meta, fmt.Errorf("load %s: %w", path, err)
	}

	metaData, err := os.ReadFile(path + MetaSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, meta, nil
	}
	if err != nil {
		return nil, meta, fmt.Errorf("load %s: %w", path, err)
	}
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, meta, fmt.Errorf("load %s%s: %w", path, MetaSuffix, err)
	}

	applyKindOverrides(doc, meta.SymbolKinds)
	return doc, meta, nil
}

// kindOverrides records every symbol whose kind the container cannot keep.
func kindOverrides(doc *document.Document) map[int]string {
	overrides := make(map[int]string)
	for pos, id := range swf.SymbolOrder(doc) {
		sym, err := doc.Symbol(id)
		if err != nil {
			continue
		}
		if sym.Kind == document.KindGraphic || sym.Kind == document.KindButton {
			overrides[pos] = sym.Kind.String()
		}
	}
	if len(overrides) == 0 {
		return nil
	}
	return overrides
}

func applyKindOverrides(doc *document.Document, overrides map[int]string) {
	if len(overrides) == 0 {
		return
	}
	order := swf.SymbolOrder(doc)
	for pos, name := range overrides {
		if pos < 0 || pos >= len(order) {
			continue
		}
		sym, err := doc.Symbol(order[pos])
		if err != nil || !sym.Kind.HasTimeline() {
			continue
		}
		switch name {
		case document.KindGraphic.String():
			sym.Kind = document.KindGraphic
		case document.KindButton.String():
			sym.Kind = document.KindButton
		}
	}
}
