package plist

import (
	"errors"
	"fmt"
)

// Errors reported while decoding a malformed or hostile property list.
// Reader errors are wrapped with positional context; use errors.Is to
// test for them.
var (
	// ErrBadMagic: the source does not begin with the bplist00 tag.
	ErrBadMagic = errors.New("invalid magic number")
	// ErrBadTrailer: the trailer is missing or carries invalid widths.
	ErrBadTrailer = errors.New("malformed trailer")
	// ErrBadObject: an object header has an invalid type or size tag.
	ErrBadObject = errors.New("malformed object")
	// ErrBadReference: an object reference lies outside the offset table.
	ErrBadReference = errors.New("object reference out of range")
	// ErrObjectCycle: the object graph reaches an object already being
	// traversed.
	ErrObjectCycle = errors.New("cycle in object references")
	// ErrObjectTooLarge: a declared length implies an allocation larger
	// than the source itself.
	ErrObjectTooLarge = errors.New("object length exceeds source size")
	// ErrBadString: a string object is not valid UTF-8 or UTF-16.
	ErrBadString = errors.New("invalid string encoding")
	// ErrBadInteger: a 16-byte integer lies outside [0, 2^64-1].
	ErrBadInteger = errors.New("integer out of range")
	// ErrBadDate: a date is NaN, infinite or out of range.
	ErrBadDate = errors.New("date out of range")

	// ErrUnexpectedEvent: the event stream violates the bracketing
	// grammar.
	ErrUnexpectedEvent = errors.New("unexpected event")
	// ErrUnsupportedKey: a dictionary key event is not a string.
	ErrUnsupportedKey = errors.New("dictionary keys must be strings")
)

// plistParseError carries the name of the format whose parser failed.
type plistParseError struct {
	format string
	err    error
}

func (e plistParseError) Error() string {
	return fmt.Sprintf("plist: error parsing %s property list: %v", e.format, e.err)
}

func (e plistParseError) Unwrap() error {
	return e.err
}
