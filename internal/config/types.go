package config

// EditorConfig is the root config for editor.yaml
type EditorConfig struct {
	Stage    StageConfig    `yaml:"stage"`
	Import   ImportConfig   `yaml:"import"`
	Compiler CompilerConfig `yaml:"compiler"`
	Preview  PreviewConfig  `yaml:"preview"`
}

// StageConfig holds the defaults for new movies
type StageConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	FrameRate  float64 `yaml:"frameRate"`
	Background string  `yaml:"background"` // #RRGGBB
}

// ImportConfig bounds the asset import pipeline
type ImportConfig struct {
	MaxAssetSizeMB int64 `yaml:"maxAssetSizeMB"`
	WorkerLimit    int   `yaml:"workerLimit"`
}

// CompilerConfig locates the external script compiler
type CompilerConfig struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
}

// PreviewConfig controls the preview window
type PreviewConfig struct {
	Scale float64 `yaml:"scale"`
}

// Default returns the configuration used when no editor.yaml exists
func Default() *EditorConfig {
	return &EditorConfig{
		Stage: StageConfig{
			Width:      640,
			Height:     360,
			FrameRate:  60,
			Background: "#FFFFFF",
		},
		Import: ImportConfig{
			MaxAssetSizeMB: 64,
			WorkerLimit:    4,
		},
		Preview: PreviewConfig{
			Scale: 1,
		},
	}
}
