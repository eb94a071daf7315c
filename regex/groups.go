package regex

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// groupOrder returns the engine numbers of the `n` capture groups of the pattern, ordered by the
// position of their opening parenthesis.
// regexp2 numbers unnamed groups first, followed by named groups, so the numbers of mixed patterns
// must be reordered. The pattern is only scanned for group openings; if the scan does not agree
// with the engine (e.g. parentheses in comments), the engine order is used instead.
func groupOrder(pattern string, re *regexp2.Regexp, n int) []int {
	if order, ok := scanGroups(pattern, re, n); ok {
		return order
	}

	order := make([]int, 0, n)
	for _, num := range re.GetGroupNumbers() {
		if num != 0 {
			order = append(order, num)
		}
	}

	return order
}

func scanGroups(pattern string, re *regexp2.Regexp, n int) ([]int, bool) {
	order := make([]int, 0, n)
	seen := make(map[int]bool, n)

	unnamed := 0
	inClass := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch {
		case c == '\\':
			i++ // skip the escaped character
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true

			// a closing bracket at the start of a class is a literal
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case c == '(':
			name, capture := groupName(pattern[i+1:])
			if !capture {
				continue
			}

			var num int
			if name == "" {
				unnamed++
				num = unnamed
			} else {
				num = re.GroupNumberFromName(name)
				if num <= 0 {
					return nil, false
				}
				if seen[num] && re.GroupNameFromNumber(num) == name { // reused name
					continue
				}
			}

			if seen[num] {
				return nil, false
			}

			seen[num] = true
			order = append(order, num)
		}
	}

	return order, len(order) == n
}

// groupName reports, whether the parenthesis in front of `rest` opens a capture group,
// and returns the name of the group, if it is named.
func groupName(rest string) (string, bool) {
	if rest == "" {
		return "", false
	}
	if rest[0] != '?' {
		return "", true
	}

	var term byte
	switch {
	case strings.HasPrefix(rest, "?P<"):
		rest, term = rest[3:], '>'
	case strings.HasPrefix(rest, "?<") && !strings.HasPrefix(rest, "?<=") && !strings.HasPrefix(rest, "?<!"):
		rest, term = rest[2:], '>'
	case strings.HasPrefix(rest, "?'"):
		rest, term = rest[2:], '\''
	default: // non-capturing group, lookaround, inline flags or comment
		return "", false
	}

	end := strings.IndexByte(rest, term)
	if end <= 0 {
		return "", false
	}

	return rest[:end], true
}
