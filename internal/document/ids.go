package document

// Ids are generation-stamped indices into arena-style stores. Index 0 is
// reserved as the zero value, so an all-zero id never resolves. Reusing a
// slot bumps its generation, which makes lookups through a stale id fail
// with ErrNotFound instead of aliasing the new occupant.

// SymbolID identifies a symbol definition. The zero value names the root
// stage timeline where it is used as a placement owner.
type SymbolID struct {
	Index uint32
	Gen   uint32
}

// IsRoot reports whether the id is the zero value standing in for the root
// stage timeline.
func (id SymbolID) IsRoot() bool {
	return id == SymbolID{}
}

// ResourceID identifies a resource table entry. The zero value means "no
// resource".
type ResourceID struct {
	Index uint32
	Gen   uint32
}

// IsNone reports whether the id is the zero value.
func (id ResourceID) IsNone() bool {
	return id == ResourceID{}
}

// InstanceID identifies a placed instance on some timeline.
type InstanceID struct {
	Index uint32
	Gen   uint32
}
