package re

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"

	"github.com/magnetde/highlight-re/regex"
)

// Module is a module type used for the regex module.
// A new type is implemented instead of using the previous `starlarkstruct.Module` type,
// since the module contains a cache for compiled regexes.
type Module struct {
	members starlark.StringDict
	cache   *regex.Cache
}

// NewModule creates a new regex module.
// The options configure the cache, that is shared by all calls to `compile`.
func NewModule(opts ...regex.CacheOption) *Module {
	members := starlark.StringDict{
		"compile":   starlark.NewBuiltin("compile", reCompile),
		"source":    starlark.NewBuiltin("source", reSource),
		"normalize": starlark.NewBuiltin("normalize", reNormalize),
		"purge":     starlark.NewBuiltin("purge", rePurge),

		"encode_json":   starlark.NewBuiltin("encode_json", reEncodeJSON),
		"decode_json":   starlark.NewBuiltin("decode_json", reDecodeJSON),
		"encode_yaml":   starlark.NewBuiltin("encode_yaml", reEncodeYAML),
		"decode_yaml":   starlark.NewBuiltin("decode_yaml", reDecodeYAML),
		"encode_binary": starlark.NewBuiltin("encode_binary", reEncodeBinary),
		"decode_binary": starlark.NewBuiltin("decode_binary", reDecodeBinary),
	}

	return &Module{
		members: members,
		cache:   regex.NewCache(0, opts...),
	}
}

// Check, if the type satisfies the interfaces.
var (
	_ starlark.Value    = (*Module)(nil)
	_ starlark.HasAttrs = (*Module)(nil)
)

func (m *Module) Freeze()               { m.members.Freeze() }
func (m *Module) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", m.Type()) }
func (m *Module) String() string        { return "<module regex>" }
func (m *Module) Truth() starlark.Bool  { return true }
func (m *Module) Type() string          { return "module" }

func (m *Module) Attr(name string) (starlark.Value, error) {
	if v, ok := m.members[name]; ok {
		if b, ok := v.(*starlark.Builtin); ok {
			return b.BindReceiver(m), nil
		}

		return v, nil
	}

	return nil, nil
}

func (m *Module) AttrNames() []string { return m.members.Keys() }

// strOrBytes is a Starlark parameter, that is either a string or a bytes object.
type strOrBytes struct {
	value    string
	isString bool
}

// sourceParam is a Starlark parameter, that accepts a source or a compiled regex.
type sourceParam struct {
	src regex.Source
}

// patternParam is a Starlark parameter, that accepts a string, a bytes object or a source.
type patternParam struct {
	raw strOrBytes
	src *regex.Source
}

var (
	_ starlark.Unpacker = (*strOrBytes)(nil)
	_ starlark.Unpacker = (*sourceParam)(nil)
	_ starlark.Unpacker = (*patternParam)(nil)
)

func (s *strOrBytes) Unpack(v starlark.Value) error {
	switch t := v.(type) {
	case starlark.String:
		s.value = string(t)
		s.isString = true
	case starlark.Bytes:
		s.value = string(t)
		s.isString = false
	default:
		return fmt.Errorf("got %s, want str or bytes", v.Type())
	}

	return nil
}

// asType returns `v` as a Starlark value of the same type as `s`.
func (s *strOrBytes) asType(v string) starlark.Value {
	if s.isString {
		return starlark.String(v)
	}

	return starlark.Bytes(v)
}

func (p *sourceParam) Unpack(v starlark.Value) error {
	switch t := v.(type) {
	case *Source:
		p.src = t.src
	case *Regex:
		p.src = t.re.Source()
	default:
		return fmt.Errorf("got %s, want source or regex", v.Type())
	}

	return nil
}

func (p *patternParam) Unpack(v starlark.Value) error {
	if s, ok := v.(*Source); ok {
		p.src = &s.src
		return nil
	}

	if err := p.raw.Unpack(v); err != nil {
		return errors.New("first argument must be str, bytes or source")
	}

	return nil
}

// reCompile compiles a pattern into a regex.
// Compiled regexes are cached by the module.
func reCompile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		pattern       patternParam
		caseSensitive = true
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "case_sensitive?", &caseSensitive); err != nil {
		return nil, err
	}

	var src regex.Source
	if pattern.src != nil {
		if !caseSensitive {
			return nil, errors.New("cannot process case_sensitive argument with a source")
		}

		src = *pattern.src
	} else {
		src = regex.SourceString(pattern.raw.value, caseSensitive)
	}

	return b.Receiver().(*Module).compile(src)
}

// compile compiles the source using the regex cache.
func (m *Module) compile(src regex.Source) (*Regex, error) {
	re, err := m.cache.Get(src)
	if err != nil {
		return nil, err
	}

	return &Regex{re: re, module: m}, nil
}

// reSource creates an uncompiled source.
func reSource(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		pattern       strOrBytes
		caseSensitive = true
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "case_sensitive?", &caseSensitive); err != nil {
		return nil, err
	}

	return &Source{
		src:    regex.SourceString(pattern.value, caseSensitive),
		module: b.Receiver().(*Module),
	}, nil
}

// reNormalize rewrites the octal escapes `\o{...}` of a pattern into hexadecimal escapes.
func reNormalize(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern strOrBytes
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern); err != nil {
		return nil, err
	}

	return pattern.asType(regex.NormalizeString(pattern.value)), nil
}

// rePurge clears the regex cache.
func rePurge(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}

	b.Receiver().(*Module).cache.Purge()

	return starlark.None, nil
}

func reEncodeJSON(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var p sourceParam
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &p); err != nil {
		return nil, err
	}

	data, err := json.Marshal(p.src)
	if err != nil {
		return nil, err
	}

	return starlark.String(data), nil
}

func reDecodeJSON(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data strOrBytes
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}

	var src regex.Source
	if err := json.Unmarshal([]byte(data.value), &src); err != nil {
		return nil, err
	}

	return &Source{src: src, module: b.Receiver().(*Module)}, nil
}

func reEncodeYAML(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var p sourceParam
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &p); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(p.src)
	if err != nil {
		return nil, err
	}

	return starlark.String(data), nil
}

func reDecodeYAML(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data strOrBytes
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}

	var src regex.Source
	if err := yaml.Unmarshal([]byte(data.value), &src); err != nil {
		return nil, err
	}

	return &Source{src: src, module: b.Receiver().(*Module)}, nil
}

func reEncodeBinary(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var p sourceParam
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &p); err != nil {
		return nil, err
	}

	data, err := p.src.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return starlark.Bytes(data), nil
}

func reDecodeBinary(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data strOrBytes
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}

	var src regex.Source
	if err := src.UnmarshalBinary([]byte(data.value)); err != nil {
		return nil, err
	}

	return &Source{src: src, module: b.Receiver().(*Module)}, nil
}
