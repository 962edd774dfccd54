package plist

import (
	"io"
	"time"
)

// Declared lengths in an event stream are hints from an untrusted
// source; never pre-size a collection beyond this.
const maxSizeHint = 4096

// A Builder consumes an event stream and reassembles the single value
// tree it describes. It accepts any stream obeying the event grammar,
// whichever reader produced it.
type Builder struct {
	stream EventReader
	token  Event
}

// NewBuilder returns a Builder reading from stream.
func NewBuilder(stream EventReader) *Builder {
	return &Builder{stream: stream}
}

// Build consumes the whole stream and returns its value tree. The
// stream must contain exactly one value, optionally framed by
// StartPlist/EndPlist; any reader error or grammar violation fails the
// build with no partial result.
func (b *Builder) Build() (interface{}, error) {
	if err := b.bump(); err != nil {
		return nil, err
	}
	if _, ok := b.token.(StartPlist); ok {
		if err := b.bump(); err != nil {
			return nil, err
		}
	}
	value, err := b.buildValue()
	if err != nil {
		return nil, err
	}
	if err := b.bump(); err != nil {
		return nil, err
	}
	if _, ok := b.token.(EndPlist); ok {
		if err := b.bump(); err != nil {
			return nil, err
		}
	}
	if b.token != nil {
		return nil, ErrUnexpectedEvent
	}
	return value, nil
}

// bump pulls the next event into the lookahead slot. Exhaustion leaves
// the slot nil.
func (b *Builder) bump() error {
	event, err := b.stream.NextEvent()
	if err == io.EOF {
		b.token = nil
		return nil
	}
	if err != nil {
		return err
	}
	b.token = event
	return nil
}

func (b *Builder) buildValue() (interface{}, error) {
	switch token := b.token.(type) {
	case StartArray:
		return b.buildArray(token.Len)
	case StartDictionary:
		return b.buildDictionary(token.Len)
	case Boolean:
		return bool(token), nil
	case Integer:
		return token.native(), nil
	case Real:
		return float64(token), nil
	case String:
		return string(token), nil
	case Data:
		return []byte(token), nil
	case Date:
		return time.Time(token), nil
	case nil:
		return nil, io.ErrUnexpectedEOF
	}
	// EndCollection or a framing marker where a value belongs.
	return nil, ErrUnexpectedEvent
}

func sizeHint(n int64) int {
	if n < 0 {
		return 0
	}
	if n > maxSizeHint {
		return maxSizeHint
	}
	return int(n)
}

func (b *Builder) buildArray(n int64) ([]interface{}, error) {
	values := make([]interface{}, 0, sizeHint(n))
	for {
		if err := b.bump(); err != nil {
			return nil, err
		}
		if _, ok := b.token.(EndCollection); ok {
			return values, nil
		}
		value, err := b.buildValue()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
}

func (b *Builder) buildDictionary(n int64) (map[string]interface{}, error) {
	dict := make(map[string]interface{}, sizeHint(n))
	for {
		if err := b.bump(); err != nil {
			return nil, err
		}
		switch token := b.token.(type) {
		case EndCollection:
			return dict, nil
		case String:
			if err := b.bump(); err != nil {
				return nil, err
			}
			value, err := b.buildValue()
			if err != nil {
				return nil, err
			}
			// Later duplicates overwrite earlier entries.
			dict[string(token)] = value
		case nil:
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, ErrUnsupportedKey
		}
	}
}
