// Package importer turns external asset files into document edits. Each
// import decodes the payload into its canonical embedded form, interns it,
// and yields one atomic transaction, so an import undoes as a single step.
package importer

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/thisisjonathan/flits-editor/internal/document"
	"github.com/thisisjonathan/flits-editor/internal/edit"
	"github.com/thisisjonathan/flits-editor/internal/history"
)

var (
	// ErrUnsupportedAssetFormat means the file extension or content is not
	// an importable asset type.
	ErrUnsupportedAssetFormat = errors.New("unsupported asset format")

	// ErrAssetTooLarge means the payload exceeds the size limit or the
	// container format's dimension bounds.
	ErrAssetTooLarge = errors.New("asset too large")
)

// DecodeError wraps a failure from an asset decoder with the source
// filename, so the user sees which file was bad.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AssetKind is the declared type of an imported file.
type AssetKind int

const (
	AssetBitmap AssetKind = iota
	AssetSound
)

func (k AssetKind) String() string {
	switch k {
	case AssetBitmap:
		return "bitmap"
	case AssetSound:
		return "sound"
	default:
		return "unknown"
	}
}

// Config configures the import pipeline.
type Config struct {
	// MaxAssetSize is the largest file accepted, in bytes (default: 64 MB).
	MaxAssetSize int64

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxAssetSize <= 0 {
		c.MaxAssetSize = 64 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Importer is the asset import pipeline.
type Importer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Importer with the given configuration.
func New(cfg Config) *Importer {
	cfg.defaults()
	return &Importer{cfg: cfg, logger: cfg.Logger}
}

// Detect returns the asset kind based on file extension.
func Detect(filename string) (AssetKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return AssetBitmap, nil
	case ".wav", ".mp3":
		return AssetSound, nil
	default:
		return 0, fmt.Errorf("%q: %w", filepath.Ext(filename), ErrUnsupportedAssetFormat)
	}
}

// ImportAsset decodes the file and returns one transaction that registers
// the resource, defines a symbol named after the file, and, for placeable
// kinds, places an initial instance on the stage's first frame. It never
// touches a document: decoding runs on background workers, and the
// returned transaction reads the document only when it applies.
func (im *Importer) ImportAsset(filename string, data []byte) (*history.Transaction, error) {
	kind, err := Detect(filename)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > im.cfg.MaxAssetSize {
		return nil, fmt.Errorf("%s: %d bytes (max %d): %w", filename, len(data), im.cfg.MaxAssetSize, ErrAssetTooLarge)
	}

	im.logger.Debug("importing asset", "file", filename, "kind", kind, "bytes", len(data))

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	switch kind {
	case AssetBitmap:
		res, err := decodeBitmap(filename, data)
		if err != nil {
			return nil, err
		}
		return bitmapTransaction(name, res), nil
	case AssetSound:
		res, err := decodeSound(filename, data)
		if err != nil {
			return nil, err
		}
		return soundTransaction(name, res), nil
	default:
		return nil, ErrUnsupportedAssetFormat
	}
}

// bitmapTransaction registers the bitmap and places it at the stage
// origin on frame one.
func bitmapTransaction(name string, res document.Resource) *history.Transaction {
	intern := edit.NewInternResource(res)
	define := edit.NewDefineSymbol(document.Symbol{Name: name, Kind: document.KindBitmap})
	place := edit.NewPlaceInstance(document.SymbolID{}, document.Instance{
		Duration:  1,
		Transform: document.IdentityTransform(),
		Color:     document.IdentityColor(),
	})

	tx := history.NewTransaction(fmt.Sprintf("Import bitmap %q", name))
	tx.Append(intern)
	tx.Append(&defineImported{DefineSymbol: define, intern: intern})
	tx.Append(&placeImported{PlaceInstance: place, define: define})
	return tx
}

// soundTransaction registers the sound. Sounds are not placeable; the
// symbol is all that is created.
func soundTransaction(name string, res document.Resource) *history.Transaction {
	intern := edit.NewInternResource(res)
	define := edit.NewDefineSymbol(document.Symbol{Name: name, Kind: document.KindSound})

	tx := history.NewTransaction(fmt.Sprintf("Import sound %q", name))
	tx.Append(intern)
	tx.Append(&defineImported{DefineSymbol: define, intern: intern})
	return tx
}

// nextDepth finds the lowest depth unused on the stage at the given frame.
func nextDepth(doc *document.Document, frame int) int {
	used := make(map[int]bool)
	for _, instID := range doc.Root.Instances {
		if inst, err := doc.Instance(instID); err == nil && inst.ActiveAt(frame) {
			used[inst.Depth] = true
		}
	}
	depth := 0
	for used[depth] {
		depth++
	}
	return depth
}

// defineImported is a DefineSymbol whose resource id comes from the intern
// sub-edit that runs just before it in the same transaction.
type defineImported struct {
	*edit.DefineSymbol
	intern *edit.InternResource
}

func (c *defineImported) Apply(doc *document.Document) error {
	c.Symbol.Resource = c.intern.ID()
	return c.DefineSymbol.Apply(doc)
}

// placeImported is a PlaceInstance whose symbol id comes from the define
// sub-edit that runs just before it in the same transaction. The stage
// depth is also resolved here: transactions are built on background
// workers, so the document may only be read when the edit applies.
type placeImported struct {
	*edit.PlaceInstance
	define *edit.DefineSymbol
}

func (c *placeImported) Apply(doc *document.Document) error {
	c.Instance.Symbol = c.define.ID()
	c.Instance.Depth = nextDepth(doc, c.Instance.StartFrame)
	return c.PlaceInstance.Apply(doc)
}
