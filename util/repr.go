package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Digits of hex strings.
var hexDigits = "0123456789abcdef"

// Repr returns a quoted representation of a pattern or subject.
// The `isString` parameter determines whether the value is decoded as UTF-8 text or treated as raw bytes.
// Bytes that are not part of a valid UTF-8 sequence are always written as `\xhh`, so the result
// never hides or transcodes the original content.
func Repr(s string, isString bool) string {
	var b strings.Builder
	b.Grow(len(s) + 3)

	var quote byte
	if strings.IndexByte(s, '\'') < 0 || strings.IndexByte(s, '"') >= 0 {
		quote = '\''
	} else {
		quote = '"'
	}

	if !isString {
		b.WriteByte('b')
	}

	b.WriteByte(quote)

	var ch rune
	for size := 0; len(s) > 0; s = s[size:] {
		if isString {
			ch, size = utf8.DecodeRuneInString(s)
		} else {
			ch = rune(s[0])
			size = 1
		}

		if ch == utf8.RuneError && size <= 1 {
			hexEscape(&b, rune(s[0]))
			size = 1
			continue
		}

		// Escape quotes and backslashes
		if ch == rune(quote) || ch == '\\' {
			b.WriteByte('\\')
			b.WriteByte(byte(ch))
			continue
		}

		switch {
		case ch == '\t':
			b.WriteString(`\t`)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch < ' ' || ch == unicode.MaxASCII:
			hexEscape(&b, ch)
		case !unicode.IsPrint(ch) || (!isString && ch > unicode.MaxASCII):
			hexEscape(&b, ch)
		default:
			b.WriteRune(ch)
		}
	}

	b.WriteByte(quote)

	return b.String()
}

// hexEscape writes the character as `\xhh`, `\uhhhh` or `\Uhhhhhhhh`, depending on its size.
// Non-printable characters above U+FFFF, like unassigned or tag characters, need the long form.
func hexEscape(w *strings.Builder, ch rune) {
	prefix, digits := byte('x'), 2
	switch {
	case ch > 0xffff:
		prefix, digits = 'U', 8
	case ch > 0xff:
		prefix, digits = 'u', 4
	}

	w.WriteByte('\\')
	w.WriteByte(prefix)
	for shift := 4 * (digits - 1); shift >= 0; shift -= 4 {
		w.WriteByte(hexDigits[(ch>>shift)&0xf])
	}
}
