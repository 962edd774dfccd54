package plist

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

const (
	xmlHeader  = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	xmlDoctype = `<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n"
)

func formatXMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// xmlPlistGenerator writes a decoded value tree back out as an XML
// property list.
type xmlPlistGenerator struct {
	*bufio.Writer

	indent string
	depth  int
}

func newXMLPlistGenerator(w io.Writer) *xmlPlistGenerator {
	return &xmlPlistGenerator{Writer: bufio.NewWriter(w), indent: "\t"}
}

func (p *xmlPlistGenerator) writeIndent() {
	for i := 0; i < p.depth; i++ {
		p.WriteString(p.indent)
	}
}

func (p *xmlPlistGenerator) generateDocument(root interface{}) error {
	p.WriteString(xmlHeader)
	p.WriteString(xmlDoctype)
	p.WriteString("<plist version=\"1.0\">\n")
	if err := p.writeValue(root); err != nil {
		return err
	}
	p.WriteString("</plist>\n")
	return p.Flush()
}

func (p *xmlPlistGenerator) element(tag string, value string) error {
	p.writeIndent()
	if len(value) == 0 {
		p.WriteString(fmt.Sprintf("<%s/>\n", tag))
		return nil
	}
	p.WriteString("<" + tag + ">")
	if err := xml.EscapeText(p.Writer, []byte(value)); err != nil {
		return err
	}
	p.WriteString("</" + tag + ">\n")
	return nil
}

func (p *xmlPlistGenerator) writeDictionary(dict map[string]interface{}) error {
	if len(dict) == 0 {
		p.writeIndent()
		p.WriteString("<dict/>\n")
		return nil
	}
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p.writeIndent()
	p.WriteString("<dict>\n")
	p.depth++
	for _, k := range keys {
		if err := p.element("key", k); err != nil {
			return err
		}
		if err := p.writeValue(dict[k]); err != nil {
			return err
		}
	}
	p.depth--
	p.writeIndent()
	p.WriteString("</dict>\n")
	return nil
}

func (p *xmlPlistGenerator) writeArray(values []interface{}) error {
	if len(values) == 0 {
		p.writeIndent()
		p.WriteString("<array/>\n")
		return nil
	}
	p.writeIndent()
	p.WriteString("<array>\n")
	p.depth++
	for _, v := range values {
		if err := p.writeValue(v); err != nil {
			return err
		}
	}
	p.depth--
	p.writeIndent()
	p.WriteString("</array>\n")
	return nil
}

func (p *xmlPlistGenerator) writeData(data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) <= 68 {
		return p.element("data", encoded)
	}
	p.writeIndent()
	p.WriteString("<data>\n")
	for i := 0; i < len(encoded); i += 68 {
		end := i + 68
		if end > len(encoded) {
			end = len(encoded)
		}
		p.writeIndent()
		p.WriteString(encoded[i:end])
		p.WriteString("\n")
	}
	p.writeIndent()
	p.WriteString("</data>\n")
	return nil
}

func (p *xmlPlistGenerator) writeValue(v interface{}) error {
	switch pval := v.(type) {
	case string:
		return p.element("string", pval)
	case int:
		return p.element("integer", strconv.Itoa(pval))
	case int64:
		return p.element("integer", strconv.FormatInt(pval, 10))
	case uint64:
		return p.element("integer", strconv.FormatUint(pval, 10))
	case float64:
		return p.element("real", formatXMLFloat(pval))
	case bool:
		if pval {
			return p.element("true", "")
		}
		return p.element("false", "")
	case []byte:
		return p.writeData(pval)
	case time.Time:
		return p.element("date", pval.In(time.UTC).Format(time.RFC3339))
	case []interface{}:
		return p.writeArray(pval)
	case map[string]interface{}:
		return p.writeDictionary(pval)
	case Dictionary:
		return p.writeDictionary(map[string]interface{}(pval))
	}
	return fmt.Errorf("plist: cannot generate XML for %T", v)
}

// MarshalXML encodes a decoded value tree as an XML property list.
func MarshalXML(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := newXMLPlistGenerator(buf).generateDocument(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
