package document

// Instance is a placement of a symbol on a timeline. It is active over the
// frame span [StartFrame, StartFrame+Duration) and keeps its transform for
// the whole span; a span is one record, not per-frame data.
type Instance struct {
	Symbol SymbolID

	// Depth is the layer index. It must be unique among instances whose
	// spans overlap.
	Depth int

	StartFrame int
	Duration   int

	Transform Transform
	Color     ColorTransform

	// Name is the optional runtime instance name.
	Name string

	// Script is an optional compiled script blob attached to the instance.
	Script ResourceID
}

// EndFrame returns the first frame after the span.
func (in *Instance) EndFrame() int {
	return in.StartFrame + in.Duration
}

// ActiveAt reports whether the span covers the given frame.
func (in *Instance) ActiveAt(frame int) bool {
	return frame >= in.StartFrame && frame < in.StartFrame+in.Duration
}

// Timeline is an ordered sequence of frames owned by one symbol (or the
// root stage). Instances are kept ordered by depth, then start frame.
type Timeline struct {
	FrameCount int
	Instances  []InstanceID
}

// NewTimeline creates a timeline with a single empty frame.
func NewTimeline() *Timeline {
	return &Timeline{FrameCount: 1}
}

func (t *Timeline) removeID(id InstanceID) {
	for i, existing := range t.Instances {
		if existing == id {
			t.Instances = append(t.Instances[:i], t.Instances[i+1:]...)
			return
		}
	}
}

// RemovedInstance records an instance dropped by a frame removal, so the
// removal can be reverted exactly.
type RemovedInstance struct {
	ID       InstanceID
	Instance Instance
}

// SpanChange records the span of one instance before a frame edit.
type SpanChange struct {
	ID         InstanceID
	StartFrame int
	Duration   int
}

// SplitInstance records an instance created by splitting a span around a
// removed interior frame.
type SplitInstance struct {
	// Original is the instance whose span was cut short.
	Original InstanceID
	// Created is the new instance covering the tail part of the span.
	Created InstanceID
}

// FrameRemoval is the exact record of everything RemoveFrame changed, kept
// by the remove-frame command for revert.
type FrameRemoval struct {
	Removed  []RemovedInstance
	Adjusted []SpanChange
	Splits   []SplitInstance
}
