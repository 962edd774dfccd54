// Package plist implements decoding of Apple property lists.
//
// Property lists are decoded in two stages. A reader (BinaryReader or
// XMLReader, usually obtained through NewEventReader) turns a byte
// source into a flat stream of events, and a Builder reassembles that
// stream into a value tree. Decoded values use native Go types:
//
//	string, bool, float64, []byte, time.Time
//	uint64 for non-negative integers, int64 for negative ones
//	[]interface{} for arrays
//	map[string]interface{} for dictionaries
//
// Most callers only need Unmarshal or Decoder.Decode, which run both
// stages and optionally map the result onto structs using "plist"
// field tags.
package plist

// unixToCocoa shifts Unix timestamps to the plist date epoch,
// 2001-01-01T00:00:00Z.
const (
	secondsPerMinute       = 60
	secondsPerHour         = 60 * secondsPerMinute
	secondsPerDay          = 24 * secondsPerHour
	unixToCocoa      int64 = (31*365 + 31/4 + 1) * secondsPerDay
)
