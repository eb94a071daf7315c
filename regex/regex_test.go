package regex

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatch(t *testing.T, src Source, subject string) *Match {
	t.Helper()

	r, err := Compile(src)
	require.NoError(t, err)

	m, err := r.Match([]byte(subject))
	require.NoError(t, err)

	return m
}

func groupStrings(m *Match) []string {
	var res []string
	for _, g := range m.Groups() {
		res = append(res, string(g))
	}
	return res
}

func TestCompileMatch(t *testing.T) {
	m := mustMatch(t, SourceString(`ab+c`, true), "xxabbbcxx")
	require.NotNil(t, m)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "abbbc", string(m.Group(0)))

	start, end := m.Span(0)
	assert.Equal(t, 2, start)
	assert.Equal(t, 7, end)
	assert.Equal(t, 2, m.Start())
	assert.Equal(t, 7, m.End())
}

func TestCaseSensitivity(t *testing.T) {
	m := mustMatch(t, SourceString(`ABC`, false), "xabcx")
	require.NotNil(t, m)
	assert.Equal(t, "abc", string(m.Group(0)))

	m = mustMatch(t, SourceString(`ABC`, true), "xabcx")
	assert.Nil(t, m)
}

func TestNoMatch(t *testing.T) {
	r, err := Compile(SourceString(`foo`, true))
	require.NoError(t, err)

	m, err := r.Match([]byte("bar baz"))
	assert.NoError(t, err)
	assert.Nil(t, m)

	m, err = r.Match(nil)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestCompileError(t *testing.T) {
	for _, pattern := range []string{`(ab`, `ab)`, `a)(b`, `[a-`, `\`, `a{2,1}`} {
		_, err := Compile(SourceString(pattern, true))
		require.Error(t, err, pattern)

		var cerr *CompileError
		require.True(t, errors.As(err, &cerr), "%s: %v", pattern, err)

		assert.Equal(t, pattern, cerr.Pattern)
		assert.Equal(t, -1, cerr.Offset)
		assert.NotEmpty(t, cerr.Message)
		assert.NotContains(t, cerr.Message, "error parsing regexp")
		assert.Contains(t, err.Error(), "cannot compile regex")
	}
}

func TestCompileErrorKeepsOriginalPattern(t *testing.T) {
	_, err := Compile(NewSource([]byte("\\o{17}(\xff"), true))

	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))

	assert.Equal(t, "\\o{17}(\xff", cerr.Pattern)
	assert.Contains(t, cerr.Error(), `\xff`)
}

func TestMustCompile(t *testing.T) {
	assert.NotPanics(t, func() { MustCompile(SourceString(`a`, true)) })
	assert.Panics(t, func() { MustCompile(SourceString(`(`, true)) })
}

func TestCaptureOrder(t *testing.T) {
	r, err := Compile(SourceString(`(a+)(b+)`, true))
	require.NoError(t, err)
	assert.Equal(t, 2, r.NumSubexp())

	m, err := r.Match([]byte("xaabbbx"))
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"aabbb", "aa", "bbb"}, groupStrings(m))
}

func TestCaptureOrderNamed(t *testing.T) {
	m := mustMatch(t, SourceString(`(?<first>a)(b)(?P<third>c)(d)`, true), "abcd")
	require.NotNil(t, m)
	assert.Equal(t, []string{"abcd", "a", "b", "c", "d"}, groupStrings(m))
}

func TestNonParticipatingGroup(t *testing.T) {
	m := mustMatch(t, SourceString(`(a)|(b)`, true), "b")
	require.NotNil(t, m)
	require.Equal(t, 3, m.Len())

	assert.Nil(t, m.Group(1))
	start, end := m.Span(1)
	assert.Equal(t, -1, start)
	assert.Equal(t, -1, end)

	assert.Equal(t, "b", string(m.Group(2)))
}

func TestEmptyGroup(t *testing.T) {
	m := mustMatch(t, SourceString(`a(x*)b`, true), "ab")
	require.NotNil(t, m)

	g := m.Group(1)
	assert.NotNil(t, g)
	assert.Empty(t, g)

	start, end := m.Span(1)
	assert.Equal(t, 1, start)
	assert.Equal(t, 1, end)
}

func TestEmptyMatchSuppressed(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    string
		start   int
	}{
		{`a*`, "bbb", "", -1},
		{`a*?`, "aa", "a", 0},
		{`x*`, "bxx", "xx", 1},
		{`(?=b)`, "abc", "", -1},
		{`^`, "abc", "", -1},
		{`$`, "abc", "", -1},
		{`\b`, "a b", "", -1},
		{`|a`, "a", "a", 0},
		{`(a|)b?`, "cab", "ab", 1},
	}

	for _, test := range tests {
		m := mustMatch(t, SourceString(test.pattern, true), test.subject)

		if test.start < 0 {
			assert.Nil(t, m, "%s on %q", test.pattern, test.subject)
			continue
		}

		require.NotNil(t, m, "%s on %q", test.pattern, test.subject)
		assert.Equal(t, test.want, string(m.Group(0)), "%s on %q", test.pattern, test.subject)
		assert.Equal(t, test.start, m.Start(), "%s on %q", test.pattern, test.subject)
	}
}

func TestAllowEmpty(t *testing.T) {
	r, err := Compile(SourceString(`a*`, true), WithAllowEmpty())
	require.NoError(t, err)

	m, err := r.Match([]byte("bbb"))
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, 0, m.Start())
	assert.Equal(t, 0, m.End())
	assert.NotNil(t, m.Group(0))
}

func TestGuardFallback(t *testing.T) {
	// a pattern, that cannot be wrapped into a group
	r, err := Compile(SourceString("(?x)a* # comment", true))
	require.NoError(t, err)
	assert.False(t, r.guarded)

	m, err := r.Match([]byte("ba"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "a", string(m.Group(0)))
}

func TestGuardKeepsGroupNumbers(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    []string
	}{
		{`(?<q>['"])x\1`, `"x"`, []string{`"x"`, `"`}},
		{`(?<q>a)\1`, "aa", []string{"aa", "a"}},
		{`(a)(?<n>b)\2`, "xabb", []string{"abb", "a", "b"}},
		{`(?<n>b)(a)\1\2`, "xbaab", []string{"baab", "b", "a"}},
		{`(?<hlreGuard>a*)`, "bab", []string{"a", "a"}},
	}

	for _, test := range tests {
		r, err := Compile(SourceString(test.pattern, true))
		require.NoError(t, err, test.pattern)
		assert.True(t, r.guarded, test.pattern)

		m, err := r.Match([]byte(test.subject))
		require.NoError(t, err, test.pattern)
		require.NotNil(t, m, test.pattern)
		assert.Equal(t, test.want, groupStrings(m), test.pattern)
	}
}

func TestGuardHidesGroup(t *testing.T) {
	r, err := Compile(SourceString(`(a)(?<name>b)`, true))
	require.NoError(t, err)
	assert.True(t, r.guarded)
	assert.Equal(t, 2, r.NumSubexp())

	m, err := r.Match([]byte("xab"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, []string{"ab", "a", "b"}, groupStrings(m))
}

func TestOctalEscape(t *testing.T) {
	m := mustMatch(t, SourceString(`\o{101}+`, true), "xAAx")
	require.NotNil(t, m)
	assert.Equal(t, "AA", string(m.Group(0)))
}

func TestByteOffsets(t *testing.T) {
	// multi-byte characters in front of the match
	m := mustMatch(t, SourceString(`b(c)`, true), "äöbc")
	require.NotNil(t, m)

	start, end := m.Span(0)
	assert.Equal(t, 4, start)
	assert.Equal(t, 6, end)
	assert.Equal(t, "c", string(m.Group(1)))

	// a match containing multi-byte characters
	m = mustMatch(t, SourceString(`ö+`, true), "aööb")
	require.NotNil(t, m)
	assert.Equal(t, "öö", string(m.Group(0)))

	// invalid UTF-8 in the subject
	m = mustMatch(t, SourceString(`a`, true), "\xff\xfea")
	require.NotNil(t, m)
	start, end = m.Span(0)
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, end)

	// invalid bytes are matched by the code point with the same value
	m = mustMatch(t, SourceString(`\xff`, true), "a\xffb")
	require.NotNil(t, m)
	assert.Equal(t, "\xff", string(m.Group(0)))

	// invalid bytes of the pattern match the same bytes
	m = mustMatch(t, NewSource([]byte("\xfe(a)"), true), "a\xfea")
	require.NotNil(t, m)
	assert.Equal(t, []string{"\xfea", "a"}, groupStrings(m))
	assert.Equal(t, 1, m.Start())
}

func TestMatchAt(t *testing.T) {
	r, err := Compile(SourceString(`a`, true))
	require.NoError(t, err)

	subject := []byte("aba")

	m, err := r.MatchAt(subject, 1)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Start())

	m, err = r.MatchAt(subject, 3)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = r.MatchAt(subject, 100)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = r.MatchAt(subject, -5)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Start())
}

func TestMatchAtLookbehind(t *testing.T) {
	r, err := Compile(SourceString(`(?<=b)a`, true))
	require.NoError(t, err)

	m, err := r.MatchAt([]byte("xba"), 2)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Start())
}

func TestMatchAtMultiByte(t *testing.T) {
	r, err := Compile(SourceString(`.`, true))
	require.NoError(t, err)

	// offset 1 points into the middle of "ä", so the match starts at the next character
	m, err := r.MatchAt([]byte("äb"), 1)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "b", string(m.Group(0)))
	assert.Equal(t, 2, m.Start())
}

func TestMatchTimeout(t *testing.T) {
	r, err := Compile(SourceString(`(a+)+$`, true), WithMatchTimeout(10*time.Millisecond))
	require.NoError(t, err)

	subject := []byte(strings.Repeat("a", 40) + "!")

	m, err := r.Match(subject)
	assert.Nil(t, m)
	require.Error(t, err)

	var eerr *ExecError
	require.True(t, errors.As(err, &eerr))
	assert.False(t, eerr.HasCode)
	assert.NotEmpty(t, eerr.Message)
	assert.Contains(t, err.Error(), "regex execution failed")
}

func TestConcurrentMatch(t *testing.T) {
	r, err := Compile(SourceString(`(\w+)@(\w+)`, true))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				m, err := r.Match([]byte("mail: user@host"))
				if assert.NoError(t, err) && assert.NotNil(t, m) {
					assert.Equal(t, "user", string(m.Group(1)))
					assert.Equal(t, "host", string(m.Group(2)))
				}
			}
		}()
	}
	wg.Wait()
}

func TestRegexSource(t *testing.T) {
	src := SourceString(`ab`, false)

	r, err := Compile(src)
	require.NoError(t, err)

	assert.Equal(t, src, r.Source())
	assert.Equal(t, src.String(), r.String())
}

func TestGuardNumber(t *testing.T) {
	r, err := Compile(SourceString(`(a)(?<n>b)(c)`, true))
	require.NoError(t, err)
	assert.Equal(t, 4, guardNumber(r.re))
}
