package re

import (
	"bytes"
	_ "embed"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/magnetde/highlight-re/regex"
)

//go:embed re_test.star
var reScript string

func TestRe(t *testing.T) {
	predeclared := starlark.StringDict{
		"regex":    NewModule(),
		"trycatch": starlark.NewBuiltin("trycatch", tryCatchFunc),
	}

	opts := syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}

	_, prog, err := starlark.SourceProgramOptions(&opts, "re_test.star", reScript, predeclared.Has)
	if err != nil {
		t.Fatal(err)
	}

	thread := &starlark.Thread{
		Name: "test regex",
		Print: func(thread *starlark.Thread, msg string) {
			fmt.Println(msg)
		},
	}

	_, err = prog.Init(thread, predeclared)
	if err != nil {
		if e, ok := err.(*starlark.EvalError); ok {
			t.Fatal(e.Backtrace())
		}
		t.Fatal(err)
	}
}

// tryCatchFunc calls the function given as first argument with the remaining arguments.
// It returns a tuple of the result and the error message, one of them being `None`.
func tryCatchFunc(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: got %d arguments, want at least 1", b.Name(), len(args))
	}

	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("got %s, want callable", args[0].Type())
	}

	res, err := starlark.Call(thread, fn, args[1:], kwargs)
	if err != nil {
		return starlark.Tuple{starlark.None, starlark.String(err.Error())}, nil
	}

	return starlark.Tuple{res, starlark.None}, nil
}

func eval(t *testing.T, m *Module, expr string) starlark.Value {
	t.Helper()

	thread := &starlark.Thread{Name: "eval"}
	env := starlark.StringDict{"regex": m}

	v, err := starlark.Eval(thread, "eval", expr, env)
	require.NoError(t, err, expr)

	return v
}

func TestModuleAttrs(t *testing.T) {
	m := NewModule()

	assert.Equal(t, "module", m.Type())
	assert.Equal(t, "<module regex>", m.String())
	assert.ElementsMatch(t, []string{
		"compile", "source", "normalize", "purge",
		"encode_json", "decode_json", "encode_yaml", "decode_yaml", "encode_binary", "decode_binary",
	}, m.AttrNames())

	v, err := m.Attr("missing")
	assert.NoError(t, err)
	assert.Nil(t, v)

	_, err = m.Hash()
	assert.Error(t, err)
}

func TestValueAttrs(t *testing.T) {
	m := NewModule()

	src := eval(t, m, `regex.source("a(b)")`)
	require.IsType(t, &Source{}, src)
	assert.Equal(t, []string{"case_sensitive", "compile", "pattern"}, src.(*Source).AttrNames())

	r := eval(t, m, `regex.compile("a(b)", case_sensitive=False)`)
	require.IsType(t, &Regex{}, r)
	assert.Equal(t, []string{"case_sensitive", "groups", "match", "pattern", "source"}, r.(*Regex).AttrNames())
	assert.Equal(t, `regex.compile(b'a(b)', case_sensitive=False)`, r.String())

	groups, err := starlark.AsInt32(eval(t, m, `regex.compile("a(b)").groups`))
	require.NoError(t, err)
	assert.Equal(t, 1, groups)
}

func TestCompileError(t *testing.T) {
	m := NewModule()

	thread := &starlark.Thread{Name: "eval"}
	_, err := starlark.Eval(thread, "eval", `regex.compile("(ab")`, starlark.StringDict{"regex": m})
	require.Error(t, err)

	var cerr *regex.CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "(ab", cerr.Pattern)
}

func TestModuleCache(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	m := NewModule(regex.WithLogger(logger))

	a := eval(t, m, `regex.compile("x+")`).(*Regex)
	b := eval(t, m, `regex.compile(regex.source("x+"))`).(*Regex)
	assert.Same(t, a.re, b.re)

	assert.Contains(t, buf.String(), "regex cache hit")

	eval(t, m, `regex.purge()`)
	c := eval(t, m, `regex.compile("x+")`).(*Regex)
	assert.NotSame(t, a.re, c.re)
}
