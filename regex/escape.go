package regex

import (
	"bytes"
	"math/big"
	"strconv"

	"github.com/magnetde/highlight-re/util"
)

// Normalize rewrites the octal escape `\o{...}` into the hexadecimal escape `\x{...}`,
// which is understood by the regex engine.
//
// The pattern is scanned once from left to right. At every backslash, the first of
// the following forms that applies consumes the input:
//
//   - `\0ddd`: copied unchanged
//   - `\ddd`: copied unchanged
//   - `\o{ddd...}`: replaced by `\x{hhh...}` with the same value in lowercase hex
//
// If `\o{` is not followed by a non-empty run of octal digits and a closing brace,
// the three characters are copied and scanning continues behind them.
// All other bytes are copied as they are, so Normalize never fails.
func Normalize(pattern []byte) []byte {
	// fast path: nothing to rewrite
	if !bytes.Contains(pattern, []byte(`\o{`)) {
		return bytes.Clone(pattern)
	}

	out := make([]byte, 0, len(pattern))

	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '\\' {
			out = append(out, c)
			i++
			continue
		}

		rest := pattern[i+1:]

		switch {
		case len(rest) >= 4 && rest[0] == '0' && util.IsOctString(rest[1:4]):
			out = append(out, pattern[i:i+5]...)
			i += 5
		case len(rest) >= 3 && util.IsOctString(rest[:3]):
			out = append(out, pattern[i:i+4]...)
			i += 4
		case len(rest) >= 2 && rest[0] == 'o' && rest[1] == '{':
			digits, ok := octalRun(rest[2:])
			if !ok {
				out = append(out, `\o{`...)
				i += 3
				break
			}

			out = append(out, `\x{`...)
			out = appendHex(out, digits)
			out = append(out, '}')
			i += 3 + len(digits) + 1 // `\o{` + digits + `}`
		default:
			out = append(out, c)
			i++
		}
	}

	return out
}

// NormalizeString is equivalent to Normalize for string patterns.
func NormalizeString(pattern string) string {
	return string(Normalize([]byte(pattern)))
}

// octalRun returns the digits in front of the next closing brace.
// The second return value is false, if there is no closing brace, or the digits are empty
// or contain any non-octal character.
func octalRun(b []byte) ([]byte, bool) {
	end := bytes.IndexByte(b, '}')
	if end < 0 {
		return nil, false
	}

	digits := b[:end]
	if !util.IsOctString(digits) {
		return nil, false
	}

	return digits, true
}

// appendHex appends the octal number `digits` in hexadecimal notation without leading zeros.
func appendHex(dst, digits []byte) []byte {
	if v, err := strconv.ParseUint(string(digits), 8, 64); err == nil {
		return strconv.AppendUint(dst, v, 16)
	}

	// too large for 64 bits
	var n big.Int
	n.SetString(string(digits), 8)
	return n.Append(dst, 16)
}
