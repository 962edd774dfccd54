package plist

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sliceEventReader feeds the builder a hand-constructed stream,
// optionally failing after the events run out.
type sliceEventReader struct {
	events []Event
	err    error
	pos    int
	failed bool
}

func (r *sliceEventReader) NextEvent() (Event, error) {
	if r.failed {
		return nil, io.EOF
	}
	if r.pos < len(r.events) {
		event := r.events[r.pos]
		r.pos++
		return event, nil
	}
	if r.err != nil {
		r.failed = true
		return nil, r.err
	}
	return nil, io.EOF
}

func buildEvents(events ...Event) (interface{}, error) {
	return NewBuilder(&sliceEventReader{events: events}).Build()
}

func TestBuilder(t *testing.T) {
	got, err := buildEvents(
		StartPlist{},
		StartDictionary{Len: -1},
		String("Author"), String("William Shakespeare"),
		String("Lines"),
		StartArray{Len: -1},
		String("It is a tale told by an idiot,"),
		String("Full of sound and fury, signifying nothing."),
		EndCollection{},
		String("Birthdate"), IntegerFromInt64(1564),
		String("Height"), Real(1.60),
		EndCollection{},
		EndPlist{},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"Author": "William Shakespeare",
		"Lines": []interface{}{
			"It is a tale told by an idiot,",
			"Full of sound and fury, signifying nothing.",
		},
		"Birthdate": uint64(1564),
		"Height":    1.60,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderUnframedScalar(t *testing.T) {
	got, err := buildEvents(String("alone"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "alone" {
		t.Errorf("got %v", got)
	}
}

func TestBuilderEmptyCollections(t *testing.T) {
	got, err := buildEvents(
		StartDictionary{Len: 0},
		String("empty"), StartArray{Len: 0}, EndCollection{},
		EndCollection{},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{"empty": []interface{}{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderNegativeInteger(t *testing.T) {
	got, err := buildEvents(IntegerFromInt64(-42))
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(-42) {
		t.Errorf("got %T(%v), want int64(-42)", got, got)
	}
}

func TestBuilderDuplicateKeysOverwrite(t *testing.T) {
	got, err := buildEvents(
		StartDictionary{Len: 2},
		String("k"), String("first"),
		String("k"), String("second"),
		EndCollection{},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{"k": "second"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderUnsupportedDictionaryKey(t *testing.T) {
	_, err := buildEvents(
		StartDictionary{Len: 1},
		IntegerFromInt64(1), String("v"),
		EndCollection{},
	)
	if !errors.Is(err, ErrUnsupportedKey) {
		t.Errorf("got %v, want ErrUnsupportedKey", err)
	}
	if errors.Is(err, ErrUnexpectedEvent) {
		t.Error("unsupported key must be distinct from a grammar error")
	}
}

func TestBuilderGrammarViolations(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   error
	}{
		{"empty stream", nil, io.ErrUnexpectedEOF},
		{"leading end-collection", []Event{EndCollection{}}, ErrUnexpectedEvent},
		{"end-plist as value", []Event{EndPlist{}}, ErrUnexpectedEvent},
		{"trailing garbage", []Event{String("v"), String("extra")}, ErrUnexpectedEvent},
		{"events after end-plist", []Event{String("v"), EndPlist{}, String("x")}, ErrUnexpectedEvent},
		{"unterminated array", []Event{StartArray{Len: -1}, String("v")}, io.ErrUnexpectedEOF},
		{"unterminated dictionary", []Event{StartDictionary{Len: -1}, String("k"), String("v")}, io.ErrUnexpectedEOF},
		{"dictionary missing value", []Event{StartDictionary{Len: -1}, String("k"), EndCollection{}}, ErrUnexpectedEvent},
		{"nested start-plist", []Event{StartArray{Len: -1}, StartPlist{}, EndCollection{}}, ErrUnexpectedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildEvents(tt.events...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuilderPropagatesReaderError(t *testing.T) {
	readerErr := errors.New("source went away")
	_, err := NewBuilder(&sliceEventReader{
		events: []Event{StartArray{Len: -1}, String("v")},
		err:    readerErr,
	}).Build()
	if !errors.Is(err, readerErr) {
		t.Errorf("got %v, want the reader's error", err)
	}
}

func TestBuilderHostileSizeHint(t *testing.T) {
	// A declared length far beyond the events that follow must not
	// drive allocation.
	got, err := buildEvents(StartArray{Len: 1 << 40}, String("one"), EndCollection{})
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{"one"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}
