package document

// SymbolKind is the closed set of symbol types. Timeline kinds own a
// Timeline; media kinds own a single resource.
type SymbolKind int

const (
	KindGraphic SymbolKind = iota
	KindMovieClip
	KindButton
	KindSound
	KindBitmap
	KindFont
)

// String returns the string representation of the symbol kind.
func (k SymbolKind) String() string {
	switch k {
	case KindGraphic:
		return "Graphic"
	case KindMovieClip:
		return "MovieClip"
	case KindButton:
		return "Button"
	case KindSound:
		return "Sound"
	case KindBitmap:
		return "Bitmap"
	case KindFont:
		return "Font"
	default:
		return "Unknown"
	}
}

// HasTimeline reports whether symbols of this kind own a timeline.
func (k SymbolKind) HasTimeline() bool {
	switch k {
	case KindGraphic, KindMovieClip, KindButton:
		return true
	default:
		return false
	}
}

// Symbol is a named, typed definition. Graphic/MovieClip/Button carry a
// Timeline; Sound/Bitmap/Font carry the resource holding their payload.
type Symbol struct {
	Name string
	Kind SymbolKind

	// ClassName links a MovieClip to a script class (registerClass on
	// export). Empty for everything else.
	ClassName string

	Timeline *Timeline  // timeline kinds only
	Resource ResourceID // media kinds only
}

// SymbolProperties is the user-editable part of a symbol, captured
// before/after by property edit commands.
type SymbolProperties struct {
	Name      string
	ClassName string
}

// Properties returns the editable properties of the symbol.
func (s *Symbol) Properties() SymbolProperties {
	return SymbolProperties{Name: s.Name, ClassName: s.ClassName}
}

// SetProperties applies editable properties to the symbol.
func (s *Symbol) SetProperties(p SymbolProperties) {
	s.Name = p.Name
	s.ClassName = p.ClassName
}

// MovieProperties are the document-wide settings of the movie.
type MovieProperties struct {
	// Stage size in pixels.
	Width  float64
	Height float64

	FrameRate  float64
	Background Color
}

// DefaultMovieProperties returns the stage settings for a new movie.
func DefaultMovieProperties() MovieProperties {
	return MovieProperties{
		Width:      640,
		Height:     360,
		FrameRate:  60,
		Background: Color{R: 255, G: 255, B: 255},
	}
}
