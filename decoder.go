package plist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
)

// NewEventReader inspects the first bytes of r and returns the
// matching reader: a BinaryReader when the bplist00 magic is present,
// an XMLReader otherwise. Sources too short to carry the magic fall
// through to the XML reader, which reports its own parse error.
func NewEventReader(r io.ReadSeeker) EventReader {
	var magic [8]byte
	if _, err := r.Seek(0, io.SeekStart); err == nil {
		if _, err := io.ReadFull(r, magic[:]); err == nil && magic == bplistMagic {
			return NewBinaryReader(r)
		}
	}
	r.Seek(0, io.SeekStart)
	return NewXMLReader(r)
}

// A Decoder reads a property list of either format from a seekable
// source and maps it onto Go values.
type Decoder struct {
	reader io.ReadSeeker
}

// NewDecoder returns a Decoder reading from r. The Decoder owns r
// until Decode returns.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{reader: r}
}

// Decode reads the property list and stores the result in v: a
// *interface{} receives the raw value tree, a Dictionary or
// map[string]interface{} is filled in place, and any other pointer is
// populated by reflection using "plist" field tags.
func (d *Decoder) Decode(v interface{}) error {
	root, err := NewBuilder(NewEventReader(d.reader)).Build()
	if err != nil {
		return err
	}
	switch dst := v.(type) {
	case *interface{}:
		*dst = root
		return nil
	case Dictionary:
		return fillMap(root, map[string]interface{}(dst))
	case map[string]interface{}:
		return fillMap(root, dst)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("plist: Decode target must be a non-nil pointer")
	}
	return unmarshalValue(root, rv)
}

func fillMap(root interface{}, dst map[string]interface{}) error {
	dict, ok := root.(map[string]interface{})
	if !ok {
		return fmt.Errorf("plist: root is %T, not a dictionary", root)
	}
	for k, v := range dict {
		dst[k] = v
	}
	return nil
}

// Unmarshal decodes the property list in data into v, as Decode does.
func Unmarshal(data []byte, v interface{}) error {
	return NewDecoder(bytes.NewReader(data)).Decode(v)
}
