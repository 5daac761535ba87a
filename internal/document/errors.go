package document

import "errors"

// Structural errors shared by every store in the document. Commands check
// these before mutating; a command that would violate an invariant is never
// pushed to history.
var (
	// ErrNotFound means an id is stale (its slot was reused) or unknown.
	ErrNotFound = errors.New("entity not found")

	// ErrCycleDetected means a placement would make a symbol transitively
	// place itself.
	ErrCycleDetected = errors.New("placement would create a symbol cycle")

	// ErrReferencedEntity means a delete is blocked by live references.
	ErrReferencedEntity = errors.New("entity is still referenced")

	// ErrDepthOccupied means another instance already covers the same depth
	// on an overlapping frame range.
	ErrDepthOccupied = errors.New("depth already occupied on overlapping frames")

	// ErrFrameOutOfRange means a frame index is outside the timeline.
	ErrFrameOutOfRange = errors.New("frame index out of range")

	// ErrInvalidSpan means an instance span has zero duration or falls
	// outside the timeline.
	ErrInvalidSpan = errors.New("invalid instance span")

	// ErrNotPlaceable means the symbol kind cannot be placed on a
	// timeline. Sounds and fonts are embedded and exported by name; only
	// visual symbols become instances.
	ErrNotPlaceable = errors.New("symbol kind cannot be placed on a timeline")

	// ErrColorOutOfRange means a color transform term does not fit the
	// movie container's signed 15-bit color fields.
	ErrColorOutOfRange = errors.New("color transform term out of range")
)
