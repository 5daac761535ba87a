package swf

import (
	"errors"
	"fmt"
)

// Decode-time errors. Every failure aborts the whole load; the caller's
// previously open document is never touched.
var (
	// ErrCorruptContainer means malformed headers, lengths, or tag bodies.
	ErrCorruptContainer = errors.New("corrupt movie container")

	// ErrUnsupportedVersion means a format revision this codec does not
	// handle.
	ErrUnsupportedVersion = errors.New("unsupported container version")

	// ErrDanglingReference means the stream places a character id that was
	// never defined. The decoder does not substitute a placeholder; the
	// caller decides whether to recover.
	ErrDanglingReference = errors.New("reference to undefined character")
)

// corruptf wraps ErrCorruptContainer with a byte offset and context.
func corruptf(offset int, format string, args ...any) error {
	return fmt.Errorf("offset %d: %s: %w", offset, fmt.Sprintf(format, args...), ErrCorruptContainer)
}

// danglingf wraps ErrDanglingReference with the offending character id.
func danglingf(offset int, characterID uint16) error {
	return fmt.Errorf("offset %d: character %d: %w", offset, characterID, ErrDanglingReference)
}
