// Package config loads editor configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thisisjonathan/flits-editor/internal/document"
)

// Loader loads editor configuration from YAML files using fs.FS interface
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a new config loader from filesystem path
func NewLoader(basePath string) *Loader {
	return &Loader{fsys: os.DirFS(basePath)}
}

// NewFSLoader creates a new config loader from fs.FS
func NewFSLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Load reads editor.yaml. A missing file yields the defaults; a present
// but malformed file is an error.
func (l *Loader) Load() (*EditorConfig, error) {
	data, err := fs.ReadFile(l.fsys, "editor.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read editor.yaml: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse editor.yaml: %w", err)
	}
	return cfg, nil
}

// MovieProperties converts the stage defaults into document properties.
func (c *EditorConfig) MovieProperties() (document.MovieProperties, error) {
	bg, err := parseColor(c.Stage.Background)
	if err != nil {
		return document.MovieProperties{}, fmt.Errorf("stage background: %w", err)
	}
	return document.MovieProperties{
		Width:      c.Stage.Width,
		Height:     c.Stage.Height,
		FrameRate:  c.Stage.FrameRate,
		Background: bg,
	}, nil
}

func parseColor(s string) (document.Color, error) {
	var c document.Color
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("want #RRGGBB, got %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("want #RRGGBB, got %q", s)
	}
	return c, nil
}
