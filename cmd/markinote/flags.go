package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/markinote/markinote/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config   string
	logLevel string
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common commonFlags
	addr   string
	root   string
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common commonFlags
	output string
	stats  bool
	page   bool
}

// exportFlags holds flags for the export command.
type exportFlags struct {
	common  commonFlags
	output  string
	root    string
	timeout string
}

// cssFlags holds flags for the css command.
type cssFlags struct {
	common commonFlags
	style  string
	list   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// apply copies the common flags that were set into cfg.
func (f *commonFlags) apply(cfg *config.Config) {
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
}

// newFlagSet creates a FlagSet that reports parse errors through the
// returned error and prints usage to w.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { usage(w) }
	return fs
}

// parse runs fs over args and wraps failures as usage errors, printing
// usage first. flag.ErrHelp is returned unwrapped; pflag already printed
// usage for it.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		fs.Usage()
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, w io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", w, printServeUsage)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (e.g., :5000)")
	fs.StringVarP(&f.root, "root", "r", "", "library root directory")

	rest, err := parse(fs, args)
	return f, rest, err
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, w io.Writer) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := newFlagSet("render", w, printRenderUsage)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "output HTML file (default: stdout)")
	fs.BoolVar(&f.stats, "stats", false, "print placeholder counts to stderr")
	fs.BoolVar(&f.page, "page", false, "write a standalone HTML page with styles")

	rest, err := parse(fs, args)
	return f, rest, err
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, w io.Writer) (*exportFlags, []string, error) {
	f := &exportFlags{}
	fs := newFlagSet("export", w, printExportUsage)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "output PDF file")
	fs.StringVarP(&f.root, "root", "r", "", "resolve the note inside this library root")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "PDF generation timeout (e.g., 30s, 2m)")

	rest, err := parse(fs, args)
	return f, rest, err
}

// parseCSSFlags parses css command flags and returns positional args.
func parseCSSFlags(args []string, w io.Writer) (*cssFlags, []string, error) {
	f := &cssFlags{}
	fs := newFlagSet("css", w, printCSSUsage)
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.style, "style", "s", "", "chroma style name")
	fs.BoolVar(&f.list, "list", false, "list available styles")

	rest, err := parse(fs, args)
	return f, rest, err
}
