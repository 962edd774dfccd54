package plist

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// XMLReader reads an XML property list as an event stream. The
// document's <plist> element becomes StartPlist/EndPlist framing;
// containers report unknown declared lengths since XML carries none.
type XMLReader struct {
	d                  *xml.Decoder
	whitespaceReplacer *strings.Replacer
	stack              []string
	err                error
}

// NewXMLReader returns a reader for the XML property list in r.
func NewXMLReader(r io.Reader) *XMLReader {
	return &XMLReader{
		d:                  xml.NewDecoder(r),
		whitespaceReplacer: strings.NewReplacer("\t", "", "\n", "", " ", "", "\r", ""),
	}
}

// NextEvent implements EventReader, with the same single-error
// contract as BinaryReader.
func (p *XMLReader) NextEvent() (Event, error) {
	if p.err != nil {
		return nil, io.EOF
	}
	event, err := p.next()
	if err != nil {
		p.err = err
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return event, nil
}

func (p *XMLReader) next() (Event, error) {
	for {
		token, err := p.d.Token()
		if err == io.EOF {
			if len(p.stack) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, plistParseError{"XML", err}
		}
		switch t := token.(type) {
		case xml.StartElement:
			return p.startElement(t)
		case xml.EndElement:
			switch t.Name.Local {
			case "plist":
				p.stack = p.stack[:len(p.stack)-1]
				return EndPlist{}, nil
			case "array", "dict":
				p.stack = p.stack[:len(p.stack)-1]
				return EndCollection{}, nil
			}
			return nil, plistParseError{"XML", fmt.Errorf("unexpected </%s>", t.Name.Local)}
		default:
			// Character data, comments and directives between elements.
		}
	}
}

func (p *XMLReader) startElement(element xml.StartElement) (Event, error) {
	switch element.Name.Local {
	case "plist":
		p.stack = append(p.stack, "plist")
		return StartPlist{}, nil
	case "array":
		p.stack = append(p.stack, "array")
		return StartArray{Len: -1}, nil
	case "dict":
		p.stack = append(p.stack, "dict")
		return StartDictionary{Len: -1}, nil
	case "key", "string":
		s, err := p.charData(element)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case "integer":
		s, err := p.charData(element)
		if err != nil {
			return nil, err
		}
		return p.parseInteger(s)
	case "real":
		s, err := p.charData(element)
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			return Real(0), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, plistParseError{"XML", err}
		}
		return Real(f), nil
	case "true", "false":
		if err := p.d.Skip(); err != nil {
			return nil, plistParseError{"XML", err}
		}
		return Boolean(element.Name.Local == "true"), nil
	case "date":
		s, err := p.charData(element)
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			return Date(time.Time{}), nil
		}
		t, err := time.ParseInLocation(time.RFC3339, s, time.UTC)
		if err != nil {
			return nil, plistParseError{"XML", err}
		}
		return Date(t), nil
	case "data":
		s, err := p.charData(element)
		if err != nil {
			return nil, err
		}
		raw, err := base64.StdEncoding.DecodeString(p.whitespaceReplacer.Replace(s))
		if err != nil {
			return nil, plistParseError{"XML", err}
		}
		return Data(raw), nil
	}
	return nil, plistParseError{"XML", fmt.Errorf("encountered unknown element %s", element.Name.Local)}
}

func (p *XMLReader) charData(element xml.StartElement) (string, error) {
	var s string
	if err := p.d.DecodeElement(&s, &element); err != nil {
		return "", plistParseError{"XML", err}
	}
	return s, nil
}

func (p *XMLReader) parseInteger(s string) (Event, error) {
	if len(s) == 0 {
		return IntegerFromUint64(0), nil
	}
	if s[0] == '-' {
		digits, base := unsignedGetBase(s[1:])
		n, err := strconv.ParseInt("-"+digits, base, 64)
		if err != nil {
			return nil, plistParseError{"XML", err}
		}
		return IntegerFromInt64(n), nil
	}
	digits, base := unsignedGetBase(s)
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return nil, plistParseError{"XML", err}
	}
	return IntegerFromUint64(n), nil
}

func unsignedGetBase(s string) (string, int) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:], 16
	}
	return s, 10
}
