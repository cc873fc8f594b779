package rite

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ── Variable substitution ──────────────────────────────────
// Supported forms: $NAME, ${NAME}, ${NAME:default}. A backslash escapes
// the next character. Defaults may contain variables themselves.

var errNoName = errors.New("missing variable name")

// Substitute replaces every variable in text using lookup. An unknown
// variable without a default is an error.
func Substitute(text string, lookup Lookup) (string, error) {
	if lookup == nil {
		lookup = MapLookup(nil)
	}
	var b strings.Builder
	rest, err := substituteUntil(&b, text, lookup, false)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return "", fmt.Errorf("unexpected %q", rest[:1])
	}
	return b.String(), nil
}

// SubstituteOrKeep is Substitute returning text unchanged on any error.
func SubstituteOrKeep(text string, lookup Lookup) string {
	out, err := Substitute(text, lookup)
	if err != nil {
		return text
	}
	return out
}

// substituteUntil writes the expansion of s to b. Inside a default value
// it stops at the closing brace and returns the remainder starting there.
func substituteUntil(b *strings.Builder, s string, lookup Lookup, inDefault bool) (string, error) {
	for len(s) > 0 {
		c := s[0]
		switch {
		case c == '\\':
			if len(s) < 2 {
				return "", errors.New("trailing backslash")
			}
			b.WriteByte(s[1])
			s = s[2:]
		case c == '}' && inDefault:
			return s, nil
		case c == '$':
			var err error
			s, err = expand(b, s[1:], lookup)
			if err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			s = s[1:]
		}
	}
	if inDefault {
		return "", errors.New("unterminated ${")
	}
	return "", nil
}

// expand handles the text right after a '$'.
func expand(b *strings.Builder, s string, lookup Lookup) (string, error) {
	if strings.HasPrefix(s, "{") {
		s = s[1:]
		n := nameLen(s)
		if n == 0 {
			return "", errNoName
		}
		name := s[:n]
		s = s[n:]
		switch {
		case strings.HasPrefix(s, "}"):
			v, ok := lookup(name)
			if !ok {
				return "", fmt.Errorf("no such variable: %s", name)
			}
			b.WriteString(v)
			return s[1:], nil
		case strings.HasPrefix(s, ":"):
			var def strings.Builder
			rest, err := substituteUntil(&def, s[1:], lookup, true)
			if err != nil {
				return "", err
			}
			if v, ok := lookup(name); ok {
				b.WriteString(v)
			} else {
				b.WriteString(def.String())
			}
			return rest[1:], nil
		default:
			return "", fmt.Errorf("invalid character after ${%s", name)
		}
	}

	n := nameLen(s)
	if n == 0 {
		return "", errNoName
	}
	v, ok := lookup(s[:n])
	if !ok {
		return "", fmt.Errorf("no such variable: %s", s[:n])
	}
	b.WriteString(v)
	return s[n:], nil
}

func nameLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			continue
		}
		return i
	}
	return len(s)
}

// SubstituteXML rewrites an XML document, expanding variables in text
// nodes and attribute values. Text that fails to expand is kept as is.
func SubstituteXML(data []byte, lookup Lookup) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out bytes.Buffer
	enc := xml.NewEncoder(&out)

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			tok = xml.CharData(SubstituteOrKeep(string(t), lookup))
		case xml.StartElement:
			attrs := make([]xml.Attr, len(t.Attr))
			for i, a := range t.Attr {
				attrs[i] = xml.Attr{Name: a.Name, Value: SubstituteOrKeep(a.Value, lookup)}
			}
			t.Attr = attrs
			tok = t
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
