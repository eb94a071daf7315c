package re

import (
	"fmt"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/magnetde/highlight-re/regex"
	"github.com/magnetde/highlight-re/util"
)

// Source is a Starlark representation of an uncompiled regex.
type Source struct {
	src    regex.Source
	module *Module
}

// Check, if the type satisfies the interfaces.
var (
	_ starlark.Value      = (*Source)(nil)
	_ starlark.HasAttrs   = (*Source)(nil)
	_ starlark.Comparable = (*Source)(nil)
)

func (s *Source) String() string {
	return fmt.Sprintf("regex.source(%s, case_sensitive=%s)",
		util.Repr(string(s.src.Pattern()), false), starlark.Bool(s.src.CaseSensitive()),
	)
}

func (s *Source) Type() string         { return "source" }
func (s *Source) Freeze()              {}
func (s *Source) Truth() starlark.Bool { return s.src.Len() > 0 }

func (s *Source) Hash() (uint32, error) {
	h, _ := starlark.Bytes(s.src.Pattern()).Hash() // bytes type; no error possible
	if s.src.CaseSensitive() {
		h ^= 1
	}
	return h, nil
}

// sourceMembers contains members of the source object.
var sourceMembers = map[string]func(s *Source) starlark.Value{
	"pattern":        func(s *Source) starlark.Value { return starlark.Bytes(s.src.Pattern()) },
	"case_sensitive": func(s *Source) starlark.Value { return starlark.Bool(s.src.CaseSensitive()) },
}

// sourceMethods contains methods of the source object.
var sourceMethods = map[string]*starlark.Builtin{
	"compile": starlark.NewBuiltin("compile", sourceCompile),
}

// Attr gets a value for a string attribute.
func (s *Source) Attr(name string) (starlark.Value, error) {
	if o, ok := sourceMethods[name]; ok {
		return o.BindReceiver(s), nil
	}

	if o, ok := sourceMembers[name]; ok {
		return o(s), nil
	}

	return nil, nil
}

// AttrNames lists available dot expression strings.
func (s *Source) AttrNames() []string {
	names := make([]string, 0, len(sourceMethods)+len(sourceMembers))

	for name := range sourceMethods {
		names = append(names, name)
	}
	for name := range sourceMembers {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func (s *Source) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	o := y.(*Source)
	return compareInt(op, s.src.Compare(o.src)), nil
}

// sourceCompile compiles the source.
func sourceCompile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}

	s := b.Receiver().(*Source)
	return s.module.compile(s.src)
}

// Regex is a Starlark representation of a compiled regex.
type Regex struct {
	re     *regex.Regex
	module *Module
}

// Check, if the type satisfies the interfaces.
var (
	_ starlark.Value      = (*Regex)(nil)
	_ starlark.HasAttrs   = (*Regex)(nil)
	_ starlark.Comparable = (*Regex)(nil)
)

func (r *Regex) String() string {
	src := r.re.Source()

	return fmt.Sprintf("regex.compile(%s, case_sensitive=%s)",
		util.Repr(string(src.Pattern()), false), starlark.Bool(src.CaseSensitive()),
	)
}

func (r *Regex) Type() string         { return "regex" }
func (r *Regex) Freeze()              {}
func (r *Regex) Truth() starlark.Bool { return true }

func (r *Regex) Hash() (uint32, error) {
	return (&Source{src: r.re.Source()}).Hash()
}

// regexMembers contains members of the regex object.
var regexMembers = map[string]func(r *Regex) starlark.Value{
	"pattern":        func(r *Regex) starlark.Value { return starlark.Bytes(r.re.Source().Pattern()) },
	"case_sensitive": func(r *Regex) starlark.Value { return starlark.Bool(r.re.Source().CaseSensitive()) },
	"groups":         func(r *Regex) starlark.Value { return starlark.MakeInt(r.re.NumSubexp()) },
	"source":         func(r *Regex) starlark.Value { return &Source{src: r.re.Source(), module: r.module} },
}

// regexMethods contains methods of the regex object.
var regexMethods = map[string]*starlark.Builtin{
	"match": starlark.NewBuiltin("match", regexMatch),
}

// Attr gets a value for a string attribute.
func (r *Regex) Attr(name string) (starlark.Value, error) {
	if o, ok := regexMethods[name]; ok {
		return o.BindReceiver(r), nil
	}

	if o, ok := regexMembers[name]; ok {
		return o(r), nil
	}

	return nil, nil
}

// AttrNames lists available dot expression strings.
func (r *Regex) AttrNames() []string {
	names := make([]string, 0, len(regexMethods)+len(regexMembers))

	for name := range regexMethods {
		names = append(names, name)
	}
	for name := range regexMembers {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func (r *Regex) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	o := y.(*Regex)

	switch op {
	case syntax.EQL:
		return r.re.Source() == o.re.Source(), nil
	case syntax.NEQ:
		return r.re.Source() != o.re.Source(), nil
	default:
		return false, fmt.Errorf("%s %s %s not implemented", r.Type(), op, o.Type())
	}
}

// regexMatch returns the first match in the subject as a tuple, whose first element is the whole match,
// followed by the capture groups. Groups, that did not participate, are `None`.
// If the regex does not match, `None` is returned.
func regexMatch(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		subject strOrBytes
		pos     int
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "subject", &subject, "pos?", &pos); err != nil {
		return nil, err
	}

	r := b.Receiver().(*Regex)

	m, err := r.re.MatchAt([]byte(subject.value), pos)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return starlark.None, nil
	}

	t := make(starlark.Tuple, m.Len())
	for i := range t {
		if start, end := m.Span(i); start >= 0 {
			t[i] = subject.asType(subject.value[start:end])
		} else {
			t[i] = starlark.None
		}
	}

	return t, nil
}

// compareInt converts the result of a three-way comparison into the result of the operator.
func compareInt(op syntax.Token, c int) bool {
	switch op {
	case syntax.EQL:
		return c == 0
	case syntax.NEQ:
		return c != 0
	case syntax.LT:
		return c < 0
	case syntax.LE:
		return c <= 0
	case syntax.GT:
		return c > 0
	default: // syntax.GE
		return c >= 0
	}
}
