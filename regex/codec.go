package regex

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Check, if the type satisfies the interfaces.
var (
	_ json.Marshaler             = Source{}
	_ json.Unmarshaler           = (*Source)(nil)
	_ yaml.Marshaler             = Source{}
	_ yaml.Unmarshaler           = (*Source)(nil)
	_ encoding.BinaryMarshaler   = Source{}
	_ encoding.BinaryUnmarshaler = (*Source)(nil)
)

// document is the layout of a source in JSON and YAML documents.
// The field names are shared with saved theme and grammar files and must not change.
// The pattern is stored in base64.
type document struct {
	Pattern       *string `json:"reString" yaml:"reString"`
	CaseSensitive *bool   `json:"reCaseSensitive" yaml:"reCaseSensitive"`
}

func (s Source) document() document {
	p := base64.StdEncoding.EncodeToString([]byte(s.pattern))
	cs := s.caseSensitive

	return document{
		Pattern:       &p,
		CaseSensitive: &cs,
	}
}

// source converts the document back into a source.
func (d *document) source(format string) (Source, error) {
	if d.Pattern == nil {
		return Source{}, &EncodingError{Format: format, Message: "missing field reString"}
	}
	if d.CaseSensitive == nil {
		return Source{}, &EncodingError{Format: format, Message: "missing field reCaseSensitive"}
	}

	p, err := base64.StdEncoding.DecodeString(*d.Pattern)
	if err != nil {
		return Source{}, &EncodingError{Format: format, Message: "reString is not valid base64", Err: err}
	}

	return NewSource(p, *d.CaseSensitive), nil
}

// MarshalJSON encodes the source as `{"reString": "<base64>", "reCaseSensitive": <bool>}`.
func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.document())
}

// UnmarshalJSON decodes a source, that was encoded by MarshalJSON.
func (s *Source) UnmarshalJSON(data []byte) error {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return &EncodingError{Format: "json", Message: "malformed document", Err: err}
	}

	src, err := d.source("json")
	if err != nil {
		return err
	}

	*s = src
	return nil
}

// MarshalYAML encodes the source with the same fields as MarshalJSON.
func (s Source) MarshalYAML() (interface{}, error) {
	return s.document(), nil
}

// UnmarshalYAML decodes a source, that was encoded by MarshalYAML.
func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	var d document
	if err := value.Decode(&d); err != nil {
		return &EncodingError{Format: "yaml", Message: "malformed document", Err: err}
	}

	src, err := d.source("yaml")
	if err != nil {
		return err
	}

	*s = src
	return nil
}

// Layout of the binary encoding:
//
//	uint64 (big endian)  length n of the pattern
//	n bytes              pattern
//	1 byte               case sensitivity; 0 or 1
const lengthSize = 8

// MarshalBinary encodes the source into its binary form.
func (s Source) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, lengthSize+len(s.pattern)+1)), nil
}

// AppendBinary appends the binary form of the source to b.
func (s Source) AppendBinary(b []byte) []byte {
	b = binary.BigEndian.AppendUint64(b, uint64(len(s.pattern)))
	b = append(b, s.pattern...)
	if s.caseSensitive {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return b
}

// UnmarshalBinary decodes the binary form of a source.
// The data must contain exactly one encoded source.
func (s *Source) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	src, err := ReadBinary(r)
	if err == io.EOF {
		return &EncodingError{Format: "binary", Message: "empty input"}
	} else if err != nil {
		return err
	}
	if r.Len() > 0 {
		return &EncodingError{Format: "binary", Message: fmt.Sprintf("%d trailing bytes", r.Len())}
	}

	*s = src
	return nil
}

// WriteBinary writes the binary form of the source to w.
// Because the encoding is self-delimiting, multiple sources may be written one after another.
func (s Source) WriteBinary(w io.Writer) error {
	_, err := w.Write(s.AppendBinary(nil))
	return err
}

// ReadBinary reads the binary form of one source from r.
// If r is at its end before the first byte, io.EOF is returned.
func ReadBinary(r io.Reader) (Source, error) {
	var hdr [lengthSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Source{}, io.EOF
		}
		return Source{}, &EncodingError{Format: "binary", Message: "truncated length", Err: err}
	}

	n := binary.BigEndian.Uint64(hdr[:])
	if n > math.MaxInt32 {
		return Source{}, &EncodingError{Format: "binary", Message: fmt.Sprintf("pattern length %d out of range", n)}
	}

	var pattern bytes.Buffer
	if m, err := io.CopyN(&pattern, r, int64(n)); err != nil {
		return Source{}, &EncodingError{Format: "binary", Message: fmt.Sprintf("truncated pattern: got %d of %d bytes", m, n), Err: err}
	}

	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return Source{}, &EncodingError{Format: "binary", Message: "missing case sensitivity", Err: err}
	}
	if flag[0] > 1 {
		return Source{}, &EncodingError{Format: "binary", Message: fmt.Sprintf("invalid boolean byte %#x", flag[0])}
	}

	return Source{
		pattern:       pattern.String(),
		caseSensitive: flag[0] == 1,
	}, nil
}
