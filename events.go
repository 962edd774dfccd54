package plist

import "time"

// An Event is one token in a property list event stream. The stream
// forms a bracketed sequence: every StartArray or StartDictionary is
// closed by exactly one EndCollection before its parent continues, and
// scalar events stand alone. XMLReader additionally frames the whole
// stream in StartPlist/EndPlist; binary streams carry no framing.
type Event interface {
	plistEvent()
}

// StartArray opens an array. Len is the declared element count, or
// negative when the producer does not know it ahead of time.
type StartArray struct {
	Len int64
}

// StartDictionary opens a dictionary. Len is the declared entry count,
// or negative when unknown.
type StartDictionary struct {
	Len int64
}

// EndCollection closes the innermost open array or dictionary. The
// consumer tracks which kind is open.
type EndCollection struct{}

// StartPlist and EndPlist delimit a document for producers that have a
// document framing of their own, such as the XML format.
type (
	StartPlist struct{}
	EndPlist   struct{}
)

type (
	// Boolean is a boolean scalar event.
	Boolean bool
	// Real is a floating point scalar event.
	Real float64
	// String is a string scalar event.
	String string
	// Data is a byte blob scalar event.
	Data []byte
	// Date is a timestamp scalar event.
	Date time.Time
)

// Integer is an integer scalar event. The binary format stores values
// covering the whole unsigned 64-bit range, so the value is held as a
// uint64 with a flag marking negative values stored in two's
// complement.
type Integer struct {
	value  uint64
	signed bool
}

// IntegerFromInt64 returns the Integer event for v.
func IntegerFromInt64(v int64) Integer {
	return Integer{value: uint64(v), signed: v < 0}
}

// IntegerFromUint64 returns the Integer event for v.
func IntegerFromUint64(v uint64) Integer {
	return Integer{value: v}
}

// Int64 returns the value as an int64. ok is false if the value does
// not fit.
func (i Integer) Int64() (v int64, ok bool) {
	if !i.signed && i.value > 1<<63-1 {
		return 0, false
	}
	return int64(i.value), true
}

// Uint64 returns the value as a uint64. ok is false for negative
// values.
func (i Integer) Uint64() (v uint64, ok bool) {
	if i.signed {
		return 0, false
	}
	return i.value, true
}

// native returns the value as int64 when negative, uint64 otherwise.
func (i Integer) native() interface{} {
	if i.signed {
		return int64(i.value)
	}
	return i.value
}

func (StartArray) plistEvent()      {}
func (StartDictionary) plistEvent() {}
func (EndCollection) plistEvent()   {}
func (StartPlist) plistEvent()      {}
func (EndPlist) plistEvent()        {}
func (Boolean) plistEvent()         {}
func (Integer) plistEvent()         {}
func (Real) plistEvent()            {}
func (String) plistEvent()          {}
func (Data) plistEvent()            {}
func (Date) plistEvent()            {}

// An EventReader produces a finite, forward-only event stream.
//
// NextEvent returns the next event, or io.EOF once the stream is
// exhausted. Any other error ends the stream permanently: the error is
// returned exactly once and every later call returns io.EOF. Readers
// hold mutable position state and must not be shared between
// goroutines without external locking.
type EventReader interface {
	NextEvent() (Event, error)
}
