package regex

import (
	"strings"

	"github.com/magnetde/highlight-re/util"
)

// Source is the uncompiled definition of a regex: the pattern bytes and the case sensitivity.
// The pattern is an opaque byte sequence; it does not need to be valid UTF-8 and is only
// interpreted as UTF-8 text when it is compiled.
//
// A Source is immutable and may be copied and shared between goroutines freely.
// Two sources are equal, if both the pattern bytes and the case sensitivity are equal,
// so Source values may be compared with `==` and used as map keys.
type Source struct {
	pattern       string // never exposed as text, see Pattern
	caseSensitive bool
}

// NewSource creates a new source. The pattern is copied.
func NewSource(pattern []byte, caseSensitive bool) Source {
	return Source{
		pattern:       string(pattern),
		caseSensitive: caseSensitive,
	}
}

// SourceString creates a new source from a pattern string.
func SourceString(pattern string, caseSensitive bool) Source {
	return Source{
		pattern:       pattern,
		caseSensitive: caseSensitive,
	}
}

// Pattern returns a copy of the pattern bytes.
func (s Source) Pattern() []byte {
	return []byte(s.pattern)
}

// CaseSensitive reports whether the regex matches case-sensitively.
func (s Source) CaseSensitive() bool {
	return s.caseSensitive
}

// Len returns the length of the pattern in bytes.
func (s Source) Len() int {
	return len(s.pattern)
}

// Equal reports whether both sources have the same pattern bytes and case sensitivity.
func (s Source) Equal(o Source) bool {
	return s == o
}

// Compare orders sources by their pattern bytes first and then by the case sensitivity,
// where case-insensitive sources come first.
// The result is -1, 0 or +1.
func (s Source) Compare(o Source) int {
	if c := strings.Compare(s.pattern, o.pattern); c != 0 {
		return c
	}

	switch {
	case s.caseSensitive == o.caseSensitive:
		return 0
	case !s.caseSensitive:
		return -1
	default:
		return +1
	}
}

// String returns a readable representation of the source.
// Bytes that are not valid UTF-8 are escaped.
func (s Source) String() string {
	var b strings.Builder
	b.WriteString("regex(")
	b.WriteString(util.Repr(s.pattern, true))
	if !s.caseSensitive {
		b.WriteString(", ignorecase")
	}
	b.WriteByte(')')
	return b.String()
}
