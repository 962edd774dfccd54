package plist

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewEventReaderDispatch(t *testing.T) {
	if _, ok := NewEventReader(bytes.NewReader(shakespearePlist())).(*BinaryReader); !ok {
		t.Error("binary source did not select BinaryReader")
	}
	if _, ok := NewEventReader(strings.NewReader(xmlFixture)).(*XMLReader); !ok {
		t.Error("XML source did not select XMLReader")
	}
	// Too short to carry the magic: falls through to XML.
	if _, ok := NewEventReader(strings.NewReader("hi")).(*XMLReader); !ok {
		t.Error("short source did not fall back to XMLReader")
	}
}

func TestDecoderAgnosticToFormat(t *testing.T) {
	xmlDoc := `<plist version="1.0"><dict>` +
		`<key>Author</key><string>Shakespeare</string>` +
		`<key>Lines</key><array><string>a</string><string>b</string></array>` +
		`<key>Birthdate</key><integer>1564</integer>` +
		`<key>Height</key><real>1.6</real>` +
		`</dict></plist>`

	var fromBinary, fromXML interface{}
	if err := Unmarshal(shakespearePlist(), &fromBinary); err != nil {
		t.Fatal(err)
	}
	if err := Unmarshal([]byte(xmlDoc), &fromXML); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fromBinary, fromXML); diff != "" {
		t.Errorf("binary and XML decode differ (-binary +xml):\n%s", diff)
	}
}

func TestDecodeIntoDictionary(t *testing.T) {
	objdict := make(Dictionary)
	if err := NewDecoder(bytes.NewReader(shakespearePlist())).Decode(objdict); err != nil {
		t.Fatal(err)
	}
	if objdict["Author"] != "Shakespeare" {
		t.Errorf("Author = %v", objdict["Author"])
	}
	if objdict["Birthdate"] != uint64(1564) {
		t.Errorf("Birthdate = %v", objdict["Birthdate"])
	}
}

func TestDecodeIntoStruct(t *testing.T) {
	type bard struct {
		Author    string   `plist:"Author"`
		Lines     []string `plist:"Lines"`
		Birthdate int      `plist:"Birthdate"`
		Height    float64  `plist:"Height"`
		Ignored   string   `plist:"-"`
	}
	var b bard
	if err := Unmarshal(shakespearePlist(), &b); err != nil {
		t.Fatal(err)
	}
	want := bard{
		Author:    "Shakespeare",
		Lines:     []string{"a", "b"},
		Birthdate: 1564,
		Height:    1.60,
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("struct mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeIntoEmbeddedStruct(t *testing.T) {
	type header struct {
		Author string `plist:"Author"`
	}
	type doc struct {
		header
		Height float64 `plist:"Height"`
	}
	var d doc
	if err := Unmarshal(shakespearePlist(), &d); err != nil {
		t.Fatal(err)
	}
	if d.Author != "Shakespeare" || d.Height != 1.60 {
		t.Errorf("got %+v", d)
	}
}

func TestDecodeTargetErrors(t *testing.T) {
	var s string
	if err := Unmarshal(shakespearePlist(), s); err == nil {
		t.Error("non-pointer target accepted")
	}
	if err := Unmarshal(shakespearePlist(), &s); err == nil {
		t.Error("dictionary decoded into a string")
	}
}

func TestDictionaryUnmarshal(t *testing.T) {
	type size struct {
		Width  int `plist:"width"`
		Height int `plist:"height,omitempty"`
	}
	dict := Dictionary{"width": uint64(640), "height": uint64(480)}
	var s size
	if err := dict.Unmarshal(&s); err != nil {
		t.Fatal(err)
	}
	if s.Width != 640 || s.Height != 480 {
		t.Errorf("got %+v", s)
	}
}

func TestConvertToJSON(t *testing.T) {
	out, err := ConvertToJSON(shakespearePlist())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["Author"] != "Shakespeare" {
		t.Errorf("Author = %v", decoded["Author"])
	}
	if decoded["Birthdate"] != float64(1564) {
		t.Errorf("Birthdate = %v", decoded["Birthdate"])
	}
}

func TestMarshalXMLRoundTrip(t *testing.T) {
	var want interface{}
	if err := Unmarshal(shakespearePlist(), &want); err != nil {
		t.Fatal(err)
	}
	out, err := MarshalXML(want)
	if err != nil {
		t.Fatal(err)
	}
	var got interface{}
	if err := Unmarshal(out, &got); err != nil {
		t.Fatalf("%v\ngenerated document:\n%s", err, out)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalXMLEscaping(t *testing.T) {
	out, err := MarshalXML(map[string]interface{}{"x": "<&>"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("&lt;&amp;&gt;")) {
		t.Errorf("unescaped output:\n%s", out)
	}
	var got interface{}
	if err := Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"x": "<&>"}, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
