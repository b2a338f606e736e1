package fileinput

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode/utf32"
)

var (
	// ErrIllegalCharsetName is returned for names that are not well-formed charset identifiers.
	ErrIllegalCharsetName = errors.New("illegal charset name")

	// ErrUnsupportedCharset is returned for well-formed names no encoding implementation provides.
	ErrUnsupportedCharset = errors.New("unsupported charset")
)

// utf32Charsets covers the UTF-32 family, which ianaindex lists without an implementation.
// Keys are upper case.
var utf32Charsets = map[string]encoding.Encoding{
	"UTF-32":     utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
	"UTF_32":     utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
	"UTF32":      utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
	"UTF-32BE":   utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"UTF_32BE":   utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"X-UTF-32BE": utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"UTF-32LE":   utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"UTF_32LE":   utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"X-UTF-32LE": utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
}

// ResolveCharset maps a charset name to its encoding.
// IANA names and aliases are tried first, then WHATWG labels, then the UTF-32 family.
func ResolveCharset(name string) (encoding.Encoding, error) {
	if !isLegalCharsetName(name) {
		return nil, fmt.Errorf("%w: %q", ErrIllegalCharsetName, name)
	}

	// ianaindex knows names it has no implementation for and returns a nil encoding.
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}

	// The replacement encoding decodes everything to U+FFFD, never usable for reading logs.
	if enc, err := htmlindex.Get(name); err == nil && enc != encoding.Replacement {
		return enc, nil
	}

	if enc, ok := utf32Charsets[strings.ToUpper(name)]; ok {
		return enc, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCharset, name)
}

// isLegalCharsetName checks the IANA charset name grammar: a letter or digit
// followed by letters, digits and any of "-+:_.".
func isLegalCharsetName(name string) bool {
	if name == "" {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case i > 0 && (c == '-' || c == '+' || c == ':' || c == '_' || c == '.'):
		default:
			return false
		}
	}
	return true
}
