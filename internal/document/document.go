package document

import (
	"fmt"
	"sort"
)

type symbolSlot struct {
	gen  uint32
	live bool
	sym  Symbol
}

type instanceSlot struct {
	gen   uint32
	live  bool
	owner SymbolID // zero value = root stage
	inst  Instance
}

// Document is the whole editable state of one movie: the resource table,
// the symbol graph, and every timeline including the root stage. All
// mutation goes through the methods below, which commands wrap so every
// edit stays undoable. There is no locking: the document belongs to a
// single goroutine.
type Document struct {
	Properties MovieProperties

	Resources *ResourceTable

	// Root is the stage timeline, owned by no symbol.
	Root *Timeline

	symbols       []symbolSlot
	freeSymbols   []uint32
	instances     []instanceSlot
	freeInstances []uint32

	// reach caches, per symbol, the set of symbols reachable through
	// placement edges. Structural edits drop the whole cache; it is
	// rebuilt lazily by WouldCreateCycle.
	reach map[SymbolID]map[SymbolID]bool
}

// New creates an empty document with default movie properties and a
// one-frame stage.
func New() *Document {
	return &Document{
		Properties: DefaultMovieProperties(),
		Resources:  NewResourceTable(),
		Root:       NewTimeline(),
		symbols:    make([]symbolSlot, 1), // slot 0 reserved for the root
		instances:  make([]instanceSlot, 1),
	}
}

func (d *Document) invalidateReach() {
	d.reach = nil
}

// --- symbols ---

func (d *Document) symbolSlot(id SymbolID) (*symbolSlot, error) {
	if id.Index == 0 || int(id.Index) >= len(d.symbols) {
		return nil, fmt.Errorf("symbol %d: %w", id.Index, ErrNotFound)
	}
	s := &d.symbols[id.Index]
	if !s.live || s.gen != id.Gen {
		return nil, fmt.Errorf("symbol %d: %w", id.Index, ErrNotFound)
	}
	return s, nil
}

// Symbol returns the symbol for id, or ErrNotFound for stale/unknown ids.
func (d *Document) Symbol(id SymbolID) (*Symbol, error) {
	s, err := d.symbolSlot(id)
	if err != nil {
		return nil, err
	}
	return &s.sym, nil
}

// EachSymbol calls fn for every live symbol in slot order.
func (d *Document) EachSymbol(fn func(SymbolID, *Symbol)) {
	for i := 1; i < len(d.symbols); i++ {
		s := &d.symbols[i]
		if s.live {
			fn(SymbolID{Index: uint32(i), Gen: s.gen}, &s.sym)
		}
	}
}

// SymbolCount returns the number of live symbols.
func (d *Document) SymbolCount() int {
	n := 0
	for i := 1; i < len(d.symbols); i++ {
		if d.symbols[i].live {
			n++
		}
	}
	return n
}

// DefineSymbol adds a symbol definition. Timeline kinds get a fresh
// one-frame timeline when none is supplied; media kinds take a reference
// on their resource.
func (d *Document) DefineSymbol(sym Symbol) (SymbolID, error) {
	if sym.Kind.HasTimeline() {
		if sym.Timeline == nil {
			sym.Timeline = NewTimeline()
		}
	} else {
		if !sym.Resource.IsNone() {
			if err := d.Resources.AddRef(sym.Resource); err != nil {
				return SymbolID{}, fmt.Errorf("define symbol %q: %w", sym.Name, err)
			}
		}
	}

	var idx uint32
	if n := len(d.freeSymbols); n > 0 {
		idx = d.freeSymbols[n-1]
		d.freeSymbols = d.freeSymbols[:n-1]
	} else {
		d.symbols = append(d.symbols, symbolSlot{})
		idx = uint32(len(d.symbols) - 1)
	}
	slot := &d.symbols[idx]
	if slot.gen == 0 {
		slot.gen = 1
	}
	slot.live = true
	slot.sym = sym
	d.invalidateReach()
	return SymbolID{Index: idx, Gen: slot.gen}, nil
}

// DeletedSymbol is everything DeleteSymbol removed: the definition plus
// the instance records of its own timeline, so RestoreSymbol can rebuild
// the exact state.
type DeletedSymbol struct {
	Symbol    Symbol
	Instances []RemovedInstance
}

// ReferencesTo returns the ids of all instances (on any timeline) that
// place the given symbol.
func (d *Document) ReferencesTo(id SymbolID) []InstanceID {
	var refs []InstanceID
	for i := 1; i < len(d.instances); i++ {
		s := &d.instances[i]
		if s.live && s.inst.Symbol == id {
			refs = append(refs, InstanceID{Index: uint32(i), Gen: s.gen})
		}
	}
	return refs
}

// DeleteSymbol removes a symbol definition. It fails with
// ErrReferencedEntity while any instance still places the symbol; callers
// wanting a cascade remove those instances first (as separate undoable
// commands). The symbol's own placements are removed with it and returned
// for undo.
func (d *Document) DeleteSymbol(id SymbolID) (DeletedSymbol, error) {
	slot, err := d.symbolSlot(id)
	if err != nil {
		return DeletedSymbol{}, err
	}
	if refs := d.ReferencesTo(id); len(refs) > 0 {
		return DeletedSymbol{}, fmt.Errorf("symbol %q placed by %d instance(s): %w",
			slot.sym.Name, len(refs), ErrReferencedEntity)
	}

	deleted := DeletedSymbol{Symbol: slot.sym}
	if tl := slot.sym.Timeline; tl != nil {
		for _, instID := range tl.Instances {
			is := &d.instances[instID.Index]
			deleted.Instances = append(deleted.Instances, RemovedInstance{ID: instID, Instance: is.inst})
			d.releaseInstanceRefs(&is.inst)
			is.live = false
			is.inst = Instance{}
			is.gen++
			d.freeInstances = append(d.freeInstances, instID.Index)
		}
		// The timeline travels with the deleted symbol; RestoreSymbol
		// re-inserts every instance from the records above.
		tl.Instances = nil
	}
	if !slot.sym.Resource.IsNone() {
		// Best effort is not enough here: the ref was taken at define time.
		if err := d.Resources.Release(slot.sym.Resource); err != nil {
			return DeletedSymbol{}, fmt.Errorf("delete symbol %q: %w", slot.sym.Name, err)
		}
	}

	slot.live = false
	slot.sym = Symbol{}
	slot.gen++
	d.freeSymbols = append(d.freeSymbols, id.Index)
	d.invalidateReach()
	return deleted, nil
}

// RestoreSymbol re-occupies the slot of a deleted symbol under its old id,
// including the instances of its own timeline.
func (d *Document) RestoreSymbol(id SymbolID, deleted DeletedSymbol) error {
	if id.Index == 0 || int(id.Index) >= len(d.symbols) {
		return fmt.Errorf("symbol %d: %w", id.Index, ErrNotFound)
	}
	slot := &d.symbols[id.Index]
	if slot.live {
		return fmt.Errorf("symbol slot %d already occupied", id.Index)
	}
	for i, free := range d.freeSymbols {
		if free == id.Index {
			d.freeSymbols = append(d.freeSymbols[:i], d.freeSymbols[i+1:]...)
			break
		}
	}
	sym := deleted.Symbol
	if !sym.Resource.IsNone() {
		if err := d.Resources.AddRef(sym.Resource); err != nil {
			return fmt.Errorf("restore symbol %q: %w", sym.Name, err)
		}
	}
	slot.live = true
	slot.gen = id.Gen
	slot.sym = sym
	for _, rec := range deleted.Instances {
		if err := d.occupyInstanceSlot(rec.ID, id, rec.Instance); err != nil {
			return fmt.Errorf("restore symbol %q: %w", sym.Name, err)
		}
		d.addInstanceRefs(&rec.Instance)
	}
	d.invalidateReach()
	return nil
}

// --- timelines ---

// TimelineOf returns the timeline owned by the given symbol, or the root
// stage timeline for the zero id. Media symbols have no timeline.
func (d *Document) TimelineOf(owner SymbolID) (*Timeline, error) {
	if owner.IsRoot() {
		return d.Root, nil
	}
	sym, err := d.Symbol(owner)
	if err != nil {
		return nil, err
	}
	if sym.Timeline == nil {
		return nil, fmt.Errorf("symbol %q (%s) has no timeline: %w", sym.Name, sym.Kind, ErrNotFound)
	}
	return sym.Timeline, nil
}

// --- instances ---

func (d *Document) instanceSlot(id InstanceID) (*instanceSlot, error) {
	if id.Index == 0 || int(id.Index) >= len(d.instances) {
		return nil, fmt.Errorf("instance %d: %w", id.Index, ErrNotFound)
	}
	s := &d.instances[id.Index]
	if !s.live || s.gen != id.Gen {
		return nil, fmt.Errorf("instance %d: %w", id.Index, ErrNotFound)
	}
	return s, nil
}

// Instance returns the placement record for id.
func (d *Document) Instance(id InstanceID) (*Instance, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return nil, err
	}
	return &s.inst, nil
}

// InstanceOwner returns the symbol owning the timeline the instance is
// placed on (zero id for the root stage).
func (d *Document) InstanceOwner(id InstanceID) (SymbolID, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return SymbolID{}, err
	}
	return s.owner, nil
}

func (d *Document) addInstanceRefs(inst *Instance) {
	if !inst.Script.IsNone() {
		// The id was validated when the placement was first applied.
		_ = d.Resources.AddRef(inst.Script)
	}
}

func (d *Document) releaseInstanceRefs(inst *Instance) {
	if !inst.Script.IsNone() {
		_ = d.Resources.Release(inst.Script)
	}
}

// validatePlacement checks everything that must hold before an instance
// enters a timeline: resolvable symbol, no cycle, span inside the
// timeline, and a free depth over the span.
func (d *Document) validatePlacement(owner SymbolID, inst Instance, ignore InstanceID) error {
	sym, err := d.Symbol(inst.Symbol)
	if err != nil {
		return err
	}
	if !sym.Kind.HasTimeline() && sym.Kind != KindBitmap {
		return fmt.Errorf("%s symbol %q: %w", sym.Kind, sym.Name, ErrNotPlaceable)
	}
	if d.WouldCreateCycle(owner, inst.Symbol) {
		return fmt.Errorf("placing symbol %d inside %d: %w", inst.Symbol.Index, owner.Index, ErrCycleDetected)
	}
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return err
	}
	if inst.Duration < 1 || inst.StartFrame < 0 || inst.EndFrame() > tl.FrameCount {
		return fmt.Errorf("span [%d,%d) on %d-frame timeline: %w",
			inst.StartFrame, inst.EndFrame(), tl.FrameCount, ErrInvalidSpan)
	}
	for _, otherID := range tl.Instances {
		if otherID == ignore {
			continue
		}
		other := &d.instances[otherID.Index].inst
		if other.Depth == inst.Depth &&
			inst.StartFrame < other.EndFrame() && other.StartFrame < inst.EndFrame() {
			return fmt.Errorf("depth %d frames [%d,%d): %w",
				inst.Depth, other.StartFrame, other.EndFrame(), ErrDepthOccupied)
		}
	}
	if err := inst.Color.Validate(); err != nil {
		return err
	}
	if !inst.Script.IsNone() {
		if _, err := d.Resources.Get(inst.Script); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) insertOrdered(tl *Timeline, id InstanceID) {
	pos := sort.Search(len(tl.Instances), func(i int) bool {
		other := &d.instances[tl.Instances[i].Index].inst
		mine := &d.instances[id.Index].inst
		if other.Depth != mine.Depth {
			return other.Depth > mine.Depth
		}
		return other.StartFrame > mine.StartFrame
	})
	tl.Instances = append(tl.Instances, InstanceID{})
	copy(tl.Instances[pos+1:], tl.Instances[pos:])
	tl.Instances[pos] = id
}

// PlaceInstance places a symbol on the owner's timeline and returns the
// new instance id. The placement is rejected before any mutation if it
// would break an invariant.
func (d *Document) PlaceInstance(owner SymbolID, inst Instance) (InstanceID, error) {
	if err := d.validatePlacement(owner, inst, InstanceID{}); err != nil {
		return InstanceID{}, err
	}

	var idx uint32
	if n := len(d.freeInstances); n > 0 {
		idx = d.freeInstances[n-1]
		d.freeInstances = d.freeInstances[:n-1]
	} else {
		d.instances = append(d.instances, instanceSlot{})
		idx = uint32(len(d.instances) - 1)
	}
	slot := &d.instances[idx]
	if slot.gen == 0 {
		slot.gen = 1
	}
	slot.live = true
	slot.owner = owner
	slot.inst = inst
	id := InstanceID{Index: idx, Gen: slot.gen}

	tl, _ := d.TimelineOf(owner)
	d.insertOrdered(tl, id)
	d.addInstanceRefs(&slot.inst)
	d.invalidateReach()
	return id, nil
}

func (d *Document) occupyInstanceSlot(id InstanceID, owner SymbolID, inst Instance) error {
	if id.Index == 0 || int(id.Index) >= len(d.instances) {
		return fmt.Errorf("instance %d: %w", id.Index, ErrNotFound)
	}
	slot := &d.instances[id.Index]
	if slot.live {
		return fmt.Errorf("instance slot %d already occupied", id.Index)
	}
	for i, free := range d.freeInstances {
		if free == id.Index {
			d.freeInstances = append(d.freeInstances[:i], d.freeInstances[i+1:]...)
			break
		}
	}
	slot.live = true
	slot.gen = id.Gen
	slot.owner = owner
	slot.inst = inst
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return err
	}
	d.insertOrdered(tl, id)
	return nil
}

// RestoreInstance re-places a removed instance under its old id, for undo.
func (d *Document) RestoreInstance(id InstanceID, owner SymbolID, inst Instance) error {
	if err := d.validatePlacement(owner, inst, InstanceID{}); err != nil {
		return err
	}
	if err := d.occupyInstanceSlot(id, owner, inst); err != nil {
		return err
	}
	d.addInstanceRefs(&inst)
	d.invalidateReach()
	return nil
}

// RemoveInstance removes a placement and returns what was removed for undo.
func (d *Document) RemoveInstance(id InstanceID) (SymbolID, Instance, error) {
	slot, err := d.instanceSlot(id)
	if err != nil {
		return SymbolID{}, Instance{}, err
	}
	owner, inst := slot.owner, slot.inst
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return SymbolID{}, Instance{}, err
	}
	tl.removeID(id)
	d.releaseInstanceRefs(&slot.inst)
	slot.live = false
	slot.inst = Instance{}
	slot.gen++
	d.freeInstances = append(d.freeInstances, id.Index)
	d.invalidateReach()
	return owner, inst, nil
}

// SetInstanceTransform replaces the transform and returns the previous one.
func (d *Document) SetInstanceTransform(id InstanceID, t Transform) (Transform, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return Transform{}, err
	}
	old := s.inst.Transform
	s.inst.Transform = t
	return old, nil
}

// SetInstanceColor replaces the color transform and returns the previous one.
func (d *Document) SetInstanceColor(id InstanceID, c ColorTransform) (ColorTransform, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return ColorTransform{}, err
	}
	if err := c.Validate(); err != nil {
		return ColorTransform{}, err
	}
	old := s.inst.Color
	s.inst.Color = c
	return old, nil
}

// SetInstanceName replaces the instance name and returns the previous one.
func (d *Document) SetInstanceName(id InstanceID, name string) (string, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return "", err
	}
	old := s.inst.Name
	s.inst.Name = name
	return old, nil
}

// SetInstanceScript swaps the attached script blob, adjusting resource
// references, and returns the previous id.
func (d *Document) SetInstanceScript(id InstanceID, script ResourceID) (ResourceID, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return ResourceID{}, err
	}
	if !script.IsNone() {
		if err := d.Resources.AddRef(script); err != nil {
			return ResourceID{}, err
		}
	}
	old := s.inst.Script
	if !old.IsNone() {
		if err := d.Resources.Release(old); err != nil {
			return ResourceID{}, err
		}
	}
	s.inst.Script = script
	return old, nil
}

// SetInstanceSpan moves/resizes the frame span, validating range and depth
// uniqueness, and returns the previous span.
func (d *Document) SetInstanceSpan(id InstanceID, startFrame, duration int) (SpanChange, error) {
	s, err := d.instanceSlot(id)
	if err != nil {
		return SpanChange{}, err
	}
	updated := s.inst
	updated.StartFrame = startFrame
	updated.Duration = duration
	if err := d.validatePlacement(s.owner, updated, id); err != nil {
		return SpanChange{}, err
	}
	old := SpanChange{ID: id, StartFrame: s.inst.StartFrame, Duration: s.inst.Duration}
	s.inst.StartFrame = startFrame
	s.inst.Duration = duration
	// Keep the timeline's depth/start ordering.
	tl, _ := d.TimelineOf(s.owner)
	tl.removeID(id)
	d.insertOrdered(tl, id)
	return old, nil
}

// --- cycle detection ---

// WouldCreateCycle reports whether placing `placed` on the timeline of
// `placer` would let a symbol reach itself through placement edges. The
// root stage can never be part of a cycle. Runs over the symbol graph, not
// over frames: reach sets are cached per symbol and dropped on structural
// edits.
func (d *Document) WouldCreateCycle(placer, placed SymbolID) bool {
	if placer.IsRoot() {
		return false
	}
	if placer == placed {
		return true
	}
	return d.reachSet(placed)[placer]
}

// reachSet returns the full transitive closure of placement edges from a
// symbol, memoized until the next structural edit. Recursion terminates
// because the graph is kept acyclic.
func (d *Document) reachSet(from SymbolID) map[SymbolID]bool {
	if d.reach == nil {
		d.reach = make(map[SymbolID]map[SymbolID]bool)
	}
	if set, ok := d.reach[from]; ok {
		return set
	}
	set := make(map[SymbolID]bool)
	sym, err := d.Symbol(from)
	if err == nil && sym.Timeline != nil {
		for _, instID := range sym.Timeline.Instances {
			child := d.instances[instID.Index].inst.Symbol
			set[child] = true
			for k := range d.reachSet(child) {
				set[k] = true
			}
		}
	}
	d.reach[from] = set
	return set
}

// --- frame operations ---

// InsertFrame inserts an empty frame at index (0..FrameCount). Spans that
// start at or after the index shift right; spans crossing the index grow
// by one frame.
func (d *Document) InsertFrame(owner SymbolID, index int) error {
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return err
	}
	if index < 0 || index > tl.FrameCount {
		return fmt.Errorf("insert at %d of %d frames: %w", index, tl.FrameCount, ErrFrameOutOfRange)
	}
	for _, instID := range tl.Instances {
		inst := &d.instances[instID.Index].inst
		switch {
		case inst.StartFrame >= index:
			inst.StartFrame++
		case inst.EndFrame() > index:
			inst.Duration++
		}
	}
	tl.FrameCount++
	return nil
}

// UndoInsertFrame is the exact inverse of InsertFrame at the same index.
// It is not RemoveFrame: the generic removal policy splits interior spans,
// which would break apply/revert identity.
func (d *Document) UndoInsertFrame(owner SymbolID, index int) error {
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return err
	}
	if index < 0 || index >= tl.FrameCount || tl.FrameCount < 2 {
		return fmt.Errorf("undo insert at %d of %d frames: %w", index, tl.FrameCount, ErrFrameOutOfRange)
	}
	for _, instID := range tl.Instances {
		inst := &d.instances[instID.Index].inst
		switch {
		case inst.StartFrame > index:
			inst.StartFrame--
		case inst.EndFrame() > index:
			inst.Duration--
		}
	}
	tl.FrameCount--
	return nil
}

// RemoveFrame removes the frame at index and returns an exact record of
// every change for revert. Span policy, the most failure-prone rule of
// timeline editing:
//
//   - span entirely before the frame: untouched
//   - span starting after the frame: start shifts left by one
//   - one-frame span on the frame: the instance is removed
//   - span starting on the frame: duration shrinks by one, start stays
//   - span ending on the frame (tail): duration shrinks by one
//   - frame strictly inside the span: the span splits in two, covering
//     the original frames minus the removed one
//
// The last frame of a timeline cannot be removed.
func (d *Document) RemoveFrame(owner SymbolID, index int) (*FrameRemoval, error) {
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= tl.FrameCount {
		return nil, fmt.Errorf("remove frame %d of %d: %w", index, tl.FrameCount, ErrFrameOutOfRange)
	}
	if tl.FrameCount == 1 {
		return nil, fmt.Errorf("cannot remove the only frame: %w", ErrFrameOutOfRange)
	}

	removal := &FrameRemoval{}
	// Collect first: mutating while iterating over tl.Instances would skip
	// entries when instances are removed.
	ids := make([]InstanceID, len(tl.Instances))
	copy(ids, tl.Instances)

	for _, instID := range ids {
		inst := &d.instances[instID.Index].inst
		start, end := inst.StartFrame, inst.EndFrame()
		switch {
		case end <= index:
			// before the removed frame, untouched
		case start > index:
			removal.Adjusted = append(removal.Adjusted, SpanChange{ID: instID, StartFrame: start, Duration: inst.Duration})
			inst.StartFrame--
		case start == index && inst.Duration == 1:
			_, removed, err := d.RemoveInstance(instID)
			if err != nil {
				return nil, err
			}
			removal.Removed = append(removal.Removed, RemovedInstance{ID: instID, Instance: removed})
		case start == index:
			removal.Adjusted = append(removal.Adjusted, SpanChange{ID: instID, StartFrame: start, Duration: inst.Duration})
			inst.Duration--
		case end-1 == index:
			removal.Adjusted = append(removal.Adjusted, SpanChange{ID: instID, StartFrame: start, Duration: inst.Duration})
			inst.Duration--
		default:
			// interior: split into [start, index) and [index, end-1) after
			// the shift
			removal.Adjusted = append(removal.Adjusted, SpanChange{ID: instID, StartFrame: start, Duration: inst.Duration})
			tail := *inst
			tail.StartFrame = index
			tail.Duration = end - index - 1
			tail.Name = "" // runtime names stay with the head part
			inst.Duration = index - start
			created, err := d.PlaceInstance(d.instances[instID.Index].owner, tail)
			if err != nil {
				return nil, fmt.Errorf("splitting span at frame %d: %w", index, err)
			}
			removal.Splits = append(removal.Splits, SplitInstance{Original: instID, Created: created})
		}
	}
	tl.FrameCount--
	return removal, nil
}

// UndoRemoveFrame restores the exact state from before a RemoveFrame with
// the returned record.
func (d *Document) UndoRemoveFrame(owner SymbolID, index int, removal *FrameRemoval) error {
	tl, err := d.TimelineOf(owner)
	if err != nil {
		return err
	}
	tl.FrameCount++
	for _, split := range removal.Splits {
		if _, _, err := d.RemoveInstance(split.Created); err != nil {
			return err
		}
	}
	for _, change := range removal.Adjusted {
		s, err := d.instanceSlot(change.ID)
		if err != nil {
			return err
		}
		s.inst.StartFrame = change.StartFrame
		s.inst.Duration = change.Duration
		// Keep the timeline's depth/start ordering.
		tl.removeID(change.ID)
		d.insertOrdered(tl, change.ID)
	}
	for _, rec := range removal.Removed {
		if err := d.RestoreInstance(rec.ID, owner, rec.Instance); err != nil {
			return err
		}
	}
	return nil
}
