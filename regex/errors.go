package regex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magnetde/highlight-re/util"
)

// ErrInvalidEncoding is matched by every *EncodingError when using `errors.Is`.
var ErrInvalidEncoding = errors.New("invalid regex encoding")

// CompileError is returned, if the engine rejects a pattern.
// A broken pattern is a configuration error, so it is always reported and never recovered.
type CompileError struct {
	Pattern string // original pattern, before normalization
	Offset  int    // byte offset of the error; -1 if the engine does not report one
	Message string // message of the engine
	Err     error  // original engine error; may be nil
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("cannot compile regex ")
	b.WriteString(util.Repr(e.Pattern, true))
	b.WriteString(": ")
	b.WriteString(e.Message)

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at position %d", e.Offset)
	}

	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }

// ExecError is returned, if the engine fails while matching.
// This is different from finding no match, which is not an error.
type ExecError struct {
	Code    int64 // numeric engine code; only valid if HasCode is true
	HasCode bool
	Message string
	Err     error
}

func (e *ExecError) Error() string {
	if e.HasCode {
		return fmt.Sprintf("regex execution failed (code %d): %s", e.Code, e.Message)
	}
	return "regex execution failed: " + e.Message
}

func (e *ExecError) Unwrap() error { return e.Err }

// EncodingError is returned, if a serialized source could not be decoded.
type EncodingError struct {
	Format  string // "json", "yaml" or "binary"
	Message string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s regex encoding: %s: %v", e.Format, e.Message, e.Err)
	}
	return fmt.Sprintf("invalid %s regex encoding: %s", e.Format, e.Message)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Is makes every EncodingError match ErrInvalidEncoding.
func (e *EncodingError) Is(target error) bool { return target == ErrInvalidEncoding }

// engineMessage strips the decoration of a regexp2 error, leaving only its description.
func engineMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "error parsing regexp: ")

	// regexp2 appends the whole expression, which is already part of CompileError.
	if i := strings.LastIndex(msg, " in `"); i >= 0 && strings.HasSuffix(msg, "`") {
		msg = msg[:i]
	}

	return msg
}
