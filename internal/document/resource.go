package document

import (
	"crypto/sha256"
	"fmt"
)

// ResourceKind is the closed set of embeddable payload types.
type ResourceKind int

const (
	ResourceBitmap ResourceKind = iota
	ResourceSound
	ResourceScript
	ResourceFont
)

// String returns the string representation of the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case ResourceBitmap:
		return "Bitmap"
	case ResourceSound:
		return "Sound"
	case ResourceScript:
		return "Script"
	case ResourceFont:
		return "Font"
	default:
		return "Unknown"
	}
}

// SoundCodec is the compression of an embedded sound payload.
type SoundCodec int

const (
	SoundUncompressed SoundCodec = iota
	SoundMP3
)

// BitmapMeta describes a bitmap payload. The payload itself is raw RGBA,
// 4 bytes per pixel, row major.
type BitmapMeta struct {
	Width  int
	Height int
}

// SoundMeta describes a sound payload as the container needs it.
type SoundMeta struct {
	Codec       SoundCodec
	SampleRate  int // Hz
	Stereo      bool
	SixteenBit  bool
	SampleCount uint32
}

// FontMeta describes an embedded font payload: the font definition tag
// body with its leading character id stripped, produced by an external
// font conversion tool and re-emitted verbatim.
type FontMeta struct {
	TagCode uint16
}

// Resource is an embeddable asset: the canonical payload bytes plus the
// kind-specific metadata the codec needs to emit them.
type Resource struct {
	Kind        ResourceKind
	Payload     []byte
	Fingerprint [sha256.Size]byte

	Bitmap *BitmapMeta // ResourceBitmap only
	Sound  *SoundMeta  // ResourceSound only
	Font   *FontMeta   // ResourceFont only
}

type resourceSlot struct {
	gen  uint32
	live bool
	res  Resource
	refs int
}

// ResourceTable owns embeddable assets, content-addressed so that interning
// an identical payload twice yields the same id. Reference counts track
// attachment to symbols and instances; zero-ref entries stay in the table
// (redo may resurrect a reference) and are simply omitted at encode time.
type ResourceTable struct {
	slots []resourceSlot
	free  []uint32

	// fingerprint -> live slot index
	byContent map[[sha256.Size]byte]uint32
}

// NewResourceTable creates an empty table. Slot 0 is reserved so the zero
// ResourceID never resolves.
func NewResourceTable() *ResourceTable {
	return &ResourceTable{
		slots:     make([]resourceSlot, 1),
		byContent: make(map[[sha256.Size]byte]uint32),
	}
}

// Fingerprint computes the content fingerprint used for deduplication.
func Fingerprint(payload []byte) [sha256.Size]byte {
	return sha256.Sum256(payload)
}

// Intern adds a resource, or returns the id of an existing entry with the
// same payload. The second result reports whether a new entry was created.
// The Fingerprint field of res is computed here; callers supply kind,
// payload, and metadata.
func (rt *ResourceTable) Intern(res Resource) (ResourceID, bool) {
	res.Fingerprint = Fingerprint(res.Payload)
	if idx, ok := rt.byContent[res.Fingerprint]; ok {
		return ResourceID{Index: idx, Gen: rt.slots[idx].gen}, false
	}

	var idx uint32
	if n := len(rt.free); n > 0 {
		idx = rt.free[n-1]
		rt.free = rt.free[:n-1]
	} else {
		rt.slots = append(rt.slots, resourceSlot{})
		idx = uint32(len(rt.slots) - 1)
	}
	slot := &rt.slots[idx]
	if slot.gen == 0 {
		slot.gen = 1
	}
	slot.live = true
	slot.res = res
	slot.refs = 0
	rt.byContent[res.Fingerprint] = idx
	return ResourceID{Index: idx, Gen: slot.gen}, true
}

func (rt *ResourceTable) slot(id ResourceID) (*resourceSlot, error) {
	if id.Index == 0 || int(id.Index) >= len(rt.slots) {
		return nil, fmt.Errorf("resource %d: %w", id.Index, ErrNotFound)
	}
	s := &rt.slots[id.Index]
	if !s.live || s.gen != id.Gen {
		return nil, fmt.Errorf("resource %d: %w", id.Index, ErrNotFound)
	}
	return s, nil
}

// Get returns the resource for id, or ErrNotFound for stale/unknown ids.
func (rt *ResourceTable) Get(id ResourceID) (*Resource, error) {
	s, err := rt.slot(id)
	if err != nil {
		return nil, err
	}
	return &s.res, nil
}

// Refs returns the number of live references to the resource.
func (rt *ResourceTable) Refs(id ResourceID) (int, error) {
	s, err := rt.slot(id)
	if err != nil {
		return 0, err
	}
	return s.refs, nil
}

// AddRef records one more attachment to the resource.
func (rt *ResourceTable) AddRef(id ResourceID) error {
	s, err := rt.slot(id)
	if err != nil {
		return err
	}
	s.refs++
	return nil
}

// Release records one detachment. The entry is not evicted when the count
// reaches zero; eviction is the encoder's sweep.
func (rt *ResourceTable) Release(id ResourceID) error {
	s, err := rt.slot(id)
	if err != nil {
		return err
	}
	if s.refs == 0 {
		return fmt.Errorf("resource %d: release without reference", id.Index)
	}
	s.refs--
	return nil
}

// Delete removes an unreferenced resource from the table. It fails with
// ErrReferencedEntity while any symbol or instance still points at it.
func (rt *ResourceTable) Delete(id ResourceID) (Resource, error) {
	s, err := rt.slot(id)
	if err != nil {
		return Resource{}, err
	}
	if s.refs > 0 {
		return Resource{}, fmt.Errorf("resource %d has %d references: %w", id.Index, s.refs, ErrReferencedEntity)
	}
	res := s.res
	delete(rt.byContent, s.res.Fingerprint)
	s.live = false
	s.res = Resource{}
	s.gen++
	rt.free = append(rt.free, id.Index)
	return res, nil
}

// Restore re-occupies the slot of a previously deleted resource under its
// old id, for undo of a delete.
func (rt *ResourceTable) Restore(id ResourceID, res Resource) error {
	if id.Index == 0 || int(id.Index) >= len(rt.slots) {
		return fmt.Errorf("resource %d: %w", id.Index, ErrNotFound)
	}
	s := &rt.slots[id.Index]
	if s.live {
		return fmt.Errorf("resource slot %d already occupied", id.Index)
	}
	for i, free := range rt.free {
		if free == id.Index {
			rt.free = append(rt.free[:i], rt.free[i+1:]...)
			break
		}
	}
	res.Fingerprint = Fingerprint(res.Payload)
	s.live = true
	s.gen = id.Gen
	s.res = res
	s.refs = 0
	rt.byContent[res.Fingerprint] = id.Index
	return nil
}

// Each calls fn for every live entry, in slot order.
func (rt *ResourceTable) Each(fn func(ResourceID, *Resource, int)) {
	for i := 1; i < len(rt.slots); i++ {
		s := &rt.slots[i]
		if s.live {
			fn(ResourceID{Index: uint32(i), Gen: s.gen}, &s.res, s.refs)
		}
	}
}

// Len returns the number of live entries.
func (rt *ResourceTable) Len() int {
	n := 0
	for i := 1; i < len(rt.slots); i++ {
		if rt.slots[i].live {
			n++
		}
	}
	return n
}
