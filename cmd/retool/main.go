package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	getopt "github.com/pborman/getopt/v2"
	"github.com/pborman/options"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/magnetde/highlight-re/regex"
	"github.com/magnetde/highlight-re/util"
)

const (
	fmtJSON   = "json"
	fmtYAML   = "yaml"
	fmtBinary = "binary"
)

// errUsage is returned, if the command line is invalid; the usage was already printed.
var errUsage = errors.New("invalid usage")

type config struct {
	optSet *getopt.Set

	Help       bool   `getopt:"-h --help          Display this help"`
	IgnoreCase bool   `getopt:"-i --ignore-case   Match case-insensitively"`
	Normalize  bool   `getopt:"--normalize        Print the normalized pattern and exit"`
	AllowEmpty bool   `getopt:"--allow-empty      Report empty matches"`
	Encode     string `getopt:"--encode=format    Write the encoded source to stdOUT and exit, one of: json, yaml, binary"`
	Decode     string `getopt:"--decode=format    Read an encoded source from stdIN instead of PATTERN, one of: json, yaml, binary"`
	Timeout    string `getopt:"--timeout=duration Limit the duration of a single match, e.g. 100ms"`
	Verbose    bool   `getopt:"-v --verbose       Log debug messages to stdERR"`

	timeout time.Duration
}

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	e := env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}

	if err := run(os.Args, e); err != nil {
		if !errors.Is(err, errUsage) {
			logger := newLogger(e.stderr, false)
			logger.Error().Err(err).Msg("retool failed")
		}
		os.Exit(1)
	}
}

func run(argv []string, e env) error {
	cfg, err := parseArgs(argv, e.stderr)
	if err != nil {
		return err
	}
	if cfg.Help {
		cfg.optSet.PrintUsage(e.stdout)
		return nil
	}

	logger := newLogger(e.stderr, cfg.Verbose)

	src, err := cfg.source(e.stdin)
	if err != nil {
		return err
	}

	logger.Debug().Str("source", src.String()).Msg("source loaded")

	switch {
	case cfg.Normalize:
		_, err = fmt.Fprintln(e.stdout, regex.NormalizeString(string(src.Pattern())))
		return err
	case cfg.Encode != "":
		return encode(e.stdout, src, cfg.Encode)
	case cfg.Decode != "":
		_, err = fmt.Fprintln(e.stdout, src.String())
		return err
	}

	opts := []regex.Option{}
	if cfg.timeout > 0 {
		opts = append(opts, regex.WithMatchTimeout(cfg.timeout))
	}
	if cfg.AllowEmpty {
		opts = append(opts, regex.WithAllowEmpty())
	}

	cache := regex.NewCache(1, regex.WithLogger(logger), regex.WithCompileOptions(opts...))

	re, err := cache.Get(src)
	if err != nil {
		return err
	}

	return matchLines(re, e.stdin, e.stdout, logger)
}

func parseArgs(argv []string, stderr io.Writer) (*config, error) {
	cfg := &config{}

	o := getopt.New()
	if err := options.RegisterSet("", cfg, o); err != nil {
		return nil, fmt.Errorf("option set registration failed: %w", err)
	}
	o.SetParameters("PATTERN")
	cfg.optSet = o

	if err := o.Getopt(argv, nil); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		o.PrintUsage(stderr)
		return nil, errUsage
	}

	if cfg.Help {
		return cfg, nil
	}

	var argErrs []string

	for _, f := range []struct{ name, value string }{{"encode", cfg.Encode}, {"decode", cfg.Decode}} {
		switch f.value {
		case "", fmtJSON, fmtYAML, fmtBinary:
		default:
			argErrs = append(argErrs, fmt.Sprintf("invalid format '%s' for --%s", f.value, f.name))
		}
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil || d <= 0 {
			argErrs = append(argErrs, fmt.Sprintf("invalid duration '%s' for --timeout", cfg.Timeout))
		}
		cfg.timeout = d
	}

	nargs := o.NArgs()
	switch {
	case cfg.Decode != "" && nargs != 0:
		argErrs = append(argErrs, "no PATTERN allowed with --decode")
	case cfg.Decode != "" && cfg.IgnoreCase:
		argErrs = append(argErrs, "--ignore-case cannot be used with --decode")
	case cfg.Decode == "" && nargs != 1:
		argErrs = append(argErrs, "exactly one PATTERN required")
	}

	if len(argErrs) > 0 {
		fmt.Fprintf(stderr, "%s\n", strings.Join(argErrs, "\n"))
		o.PrintUsage(stderr)
		return nil, errUsage
	}

	return cfg, nil
}

// source returns the source given on the command line, or decodes it from `r`.
func (cfg *config) source(r io.Reader) (regex.Source, error) {
	if cfg.Decode == "" {
		return regex.SourceString(cfg.optSet.Arg(0), !cfg.IgnoreCase), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return regex.Source{}, err
	}

	var src regex.Source
	switch cfg.Decode {
	case fmtJSON:
		err = json.Unmarshal(data, &src)
	case fmtYAML:
		err = yaml.Unmarshal(data, &src)
	default:
		err = src.UnmarshalBinary(data)
	}

	return src, err
}

func encode(w io.Writer, src regex.Source, format string) error {
	switch format {
	case fmtJSON:
		data, err := json.Marshal(src)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case fmtYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(src); err != nil {
			return err
		}
		return enc.Close()
	default:
		return src.WriteBinary(w)
	}
}

// matchLines matches every line of `r` and writes the groups of each match to `w`.
// Lines without a match are skipped.
func matchLines(re *regex.Regex, r io.Reader, w io.Writer, logger zerolog.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	bw := bufio.NewWriter(w)

	var lines, matched int
	for sc.Scan() {
		lines++

		m, err := re.Match(sc.Bytes())
		if err != nil {
			return fmt.Errorf("line %d: %w", lines, err)
		}
		if m == nil {
			continue
		}
		matched++

		fmt.Fprintf(bw, "%d:", lines)
		for i := 0; i < m.Len(); i++ {
			if g := m.Group(i); g != nil {
				fmt.Fprintf(bw, " %s", util.Repr(string(g), true))
			} else {
				bw.WriteString(" None")
			}
		}
		bw.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}

	logger.Debug().Int("lines", lines).Int("matched", matched).Msg("input processed")

	return bw.Flush()
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
}
