package regex

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Option configures the compilation of a regex.
type Option func(*config)

type config struct {
	timeout    time.Duration
	allowEmpty bool
}

// WithMatchTimeout limits the duration of a single match.
// If the limit is exceeded, the match fails with an *ExecError.
// By default, matches are not limited.
func WithMatchTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithAllowEmpty disables the suppression of empty matches.
func WithAllowEmpty() Option {
	return func(c *config) {
		c.allowEmpty = true
	}
}

// Regex is a compiled regex.
//
// A Regex is safe for concurrent use by multiple goroutines.
type Regex struct {
	src       Source
	re        *regexp2.Regexp
	numSubexp int
	order     []int // engine numbers of the capture groups in declaration order

	guarded    bool // the program contains the empty-match guard
	allowEmpty bool
}

// Compile compiles the source into a regex.
//
// Before compiling, the pattern is normalized (see Normalize) and decoded as UTF-8;
// invalid bytes of the pattern match the same bytes in a subject.
// If the source is not case-sensitive, the regex ignores case.
// Unless WithAllowEmpty is set, the regex never produces an empty match.
//
// If the engine rejects the pattern, a *CompileError is returned.
func Compile(src Source, opts ...Option) (*Regex, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	pattern := decodePattern(Normalize([]byte(src.pattern)))

	options := regexp2.None | regexp2.RE2
	if !src.caseSensitive {
		options |= regexp2.IgnoreCase
	}

	// Compile the pattern on its own first, so that every error refers to the pattern as written.
	raw, err := compileEngine(pattern, options)
	if err != nil {
		return nil, &CompileError{
			Pattern: src.pattern,
			Offset:  -1, // regexp2 does not report error positions
			Message: engineMessage(err),
			Err:     err,
		}
	}

	r := &Regex{
		src:        src,
		re:         raw,
		numSubexp:  len(raw.GetGroupNumbers()) - 1,
		allowEmpty: cfg.allowEmpty,
	}

	r.order = groupOrder(pattern, raw, r.numSubexp)

	// The guard cannot be added to every valid pattern, e.g. if the pattern ends with a comment in
	// verbose mode. In this case, empty matches are skipped while matching instead.
	if !cfg.allowEmpty {
		if guarded, err := compileEngine(guardPattern(pattern, guardNumber(raw)), options); err == nil {
			r.re = guarded
			r.guarded = true
		}
	}

	if cfg.timeout > 0 {
		r.re.MatchTimeout = cfg.timeout
	}

	return r, nil
}

// MustCompile is like Compile but panics if the source cannot be compiled.
func MustCompile(src Source, opts ...Option) *Regex {
	r, err := Compile(src, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// decodePattern converts the pattern into the text passed to the engine.
// Valid UTF-8 is kept. Bytes that are not part of a valid UTF-8 sequence become the code point
// with the same value, the same way subjects are decoded, so such a byte in the pattern matches
// the same byte in the subject.
func decodePattern(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 4)

	for len(b) > 0 {
		ch, size := utf8.DecodeRune(b)
		if ch == utf8.RuneError && size == 1 {
			ch = rune(b[0])
		}

		sb.WriteRune(ch)
		b = b[size:]
	}

	return sb.String()
}

// guardNumber returns a group number above all groups of the pattern.
// A group with this explicit number keeps the numbers of all other groups unchanged.
func guardNumber(re *regexp2.Regexp) int {
	n := 0
	for _, num := range re.GetGroupNumbers() {
		n = max(n, num)
	}
	return n + 1
}

// guardPattern wraps the pattern, so that it is not able to match the empty string.
// The lookahead captures the remaining input at the start of the match. At the end of the match,
// the remaining input only equals the captured input, if nothing was consumed; in this case the
// negative lookahead fails and the engine backtracks into the pattern to find a longer alternative.
func guardPattern(pattern string, num int) string {
	g := strconv.Itoa(num)
	return `(?=(?<` + g + `>[\s\S]*))(?:` + pattern + `)(?!\k<` + g + `>)`
}

// compileEngine calls the engine and converts panics into errors.
func compileEngine(pattern string, options regexp2.RegexOptions) (re *regexp2.Regexp, err error) {
	defer func() {
		if p := recover(); p != nil {
			re = nil
			err = fmt.Errorf("engine panic: %v", p)
		}
	}()

	return regexp2.Compile(pattern, options)
}

// Source returns the source, the regex was compiled from.
func (r *Regex) Source() Source {
	return r.src
}

// NumSubexp returns the number of capture groups.
func (r *Regex) NumSubexp() int {
	return r.numSubexp
}

// String returns the representation of the source.
func (r *Regex) String() string {
	return r.src.String()
}

// Match returns the first match in the subject.
// If the regex does not match, nil is returned without an error.
func (r *Regex) Match(subject []byte) (*Match, error) {
	return r.MatchAt(subject, 0)
}

// MatchAt returns the first match in the subject, which starts at or after the byte offset pos.
// The offset is clamped to the length of the subject. Lookbehinds still see the bytes in front of pos.
// All positions of the result are relative to the start of the subject.
func (r *Regex) MatchAt(subject []byte, pos int) (m *Match, err error) {
	pos = clamp(pos, len(subject))
	in := newInput(subject)

	defer func() {
		if p := recover(); p != nil {
			m = nil
			err = &ExecError{Message: fmt.Sprintf("engine panic: %v", p)}
		}
	}()

	rm, err := r.re.FindRunesMatchStartingAt(in.runes, in.runeIndex(pos))
	if err != nil {
		return nil, &ExecError{Message: err.Error(), Err: err}
	}

	if !r.guarded && !r.allowEmpty {
		for rm != nil && rm.Length == 0 {
			rm, err = r.re.FindNextMatch(rm)
			if err != nil {
				return nil, &ExecError{Message: err.Error(), Err: err}
			}
		}
	}

	if rm == nil {
		return nil, nil
	}

	spans := make([]int, 0, 2*(1+len(r.order)))
	spans = appendSpan(spans, in, rm.GroupByNumber(0))

	for _, num := range r.order {
		spans = appendSpan(spans, in, rm.GroupByNumber(num))
	}

	return &Match{subject: subject, spans: spans}, nil
}

// appendSpan appends the byte offsets of the group.
func appendSpan(spans []int, in *input, g *regexp2.Group) []int {
	if g == nil || len(g.Captures) == 0 { // group did not participate
		return append(spans, -1, -1)
	}

	return append(spans, in.byteOffset(g.Index), in.byteOffset(g.Index+g.Length))
}

// clamp clamps `pos` between 0 and `length`.
func clamp(pos, length int) int {
	return min(max(pos, 0), length)
}
