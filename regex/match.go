package regex

import (
	"slices"
	"unicode/utf8"

	"github.com/magnetde/highlight-re/util"
)

// Match is the result of a successful match.
//
// Entry 0 is the whole match, the following entries are the capture groups in the order of
// their opening parentheses. A name used by more than one group is reported once, at its first use.
//
// A group that did not participate in the match has the span (-1, -1) and its bytes are nil.
// A group that matched the empty string has a non-nil, empty slice.
type Match struct {
	subject []byte
	spans   []int // start and end offset of every entry
}

// Len returns the number of entries, which is one more than the number of capture groups.
func (m *Match) Len() int {
	return len(m.spans) / 2
}

// Span returns the byte offsets of entry i in the subject.
// For groups that did not participate, (-1, -1) is returned.
func (m *Match) Span(i int) (int, int) {
	return m.spans[2*i], m.spans[2*i+1]
}

// Group returns the bytes of entry i.
// The result is a subslice of the subject or nil, if the group did not participate.
func (m *Match) Group(i int) []byte {
	start, end := m.Span(i)
	if start < 0 {
		return nil
	}

	return m.subject[start:end:end]
}

// Groups returns the bytes of all entries.
func (m *Match) Groups() [][]byte {
	groups := make([][]byte, m.Len())
	for i := range groups {
		groups[i] = m.Group(i)
	}

	return groups
}

// Start returns the start offset of the whole match.
func (m *Match) Start() int {
	return m.spans[0]
}

// End returns the end offset of the whole match.
func (m *Match) End() int {
	return m.spans[1]
}

// input is the subject converted into the runes, the engine operates on.
type input struct {
	runes   []rune
	offsets []int // byte offset of each rune, followed by the length of the subject; nil for ASCII subjects
}

// newInput decodes the subject.
// Bytes that are not part of a valid UTF-8 sequence become the code point with the same value,
// so every byte of the subject can be matched and every rune maps back to exactly one byte range.
func newInput(b []byte) *input {
	if util.IsASCII(b) { // if the subject has only ASCII characters, offsets are not necessary
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}

		return &input{runes: runes}
	}

	runes := make([]rune, 0, len(b))
	offsets := make([]int, 0, len(b)+1)

	for i := 0; i < len(b); {
		ch, size := utf8.DecodeRune(b[i:])
		if ch == utf8.RuneError && size == 1 {
			ch = rune(b[i])
		}

		runes = append(runes, ch)
		offsets = append(offsets, i)

		i += size // if the rune is not valid, the size returned is 1
	}

	// append a last offset, that corresponds to `len(b)`
	offsets = append(offsets, len(b))

	return &input{
		runes:   runes,
		offsets: offsets,
	}
}

// byteOffset converts a rune index into a byte offset.
func (in *input) byteOffset(i int) int {
	if in.offsets == nil {
		return i
	}
	return in.offsets[i]
}

// runeIndex converts a byte offset into the index of the first rune, that starts at or after it.
func (in *input) runeIndex(pos int) int {
	if in.offsets == nil {
		return pos
	}

	i, _ := slices.BinarySearch(in.offsets, pos)
	return i
}
