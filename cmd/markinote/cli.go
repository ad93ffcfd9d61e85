package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/markinote/markinote"
	"github.com/markinote/markinote/internal/config"
	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage            = errors.New("invalid usage")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrReadNote         = errors.New("failed to read note")
	ErrWriteOutput      = errors.New("failed to write output")
	ErrInvalidExtension = errors.New("note must have a .md, .markdown or .txt extension")
	ErrInvalidTimeout   = errors.New("invalid timeout")
)

// commands lists the subcommand names.
var commands = []string{"serve", "render", "export", "css", "version", "help"}

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
)

// isCommand reports whether name is a subcommand.
func isCommand(name string) bool {
	return slices.Contains(commands, name)
}

// runMain dispatches args[1] and returns the process exit code.
func runMain(args []string, env *Environment) int {
	warnUnknownEnvVars(env.Stderr)

	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	err := run(ctx, args[1], args[2:], env)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		printError(env.Stderr, err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// run executes one subcommand.
func run(ctx context.Context, cmd string, args []string, env *Environment) error {
	switch cmd {
	case "serve":
		return runServe(ctx, args, env)
	case "render":
		return runRender(ctx, args, env)
	case "export":
		return runExport(ctx, args, env)
	case "css":
		return runCSS(args, env)
	case "version":
		fmt.Fprintf(env.Stdout, "markinote %s\n", Version)
		return nil
	case "help", "-h", "--help":
		return runHelp(args, env)
	default:
		// "markinote note.md" is shorthand for "markinote render note.md".
		if !isCommand(cmd) && looksLikeNote(cmd) {
			return runRender(ctx, append([]string{cmd}, args...), env)
		}
		printUsage(env.Stderr)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

// printError prints err with an actionable hint when one applies.
func printError(w io.Writer, err error) {
	_, _ = errorLabel.Fprint(w, "error:")
	fmt.Fprintf(w, " %v%s\n", err, hintFor(err))
}

// printWarning prints a warning line.
func printWarning(w io.Writer, msg string) {
	_, _ = warningLabel.Fprint(w, "warning:")
	fmt.Fprintf(w, " %s\n", msg)
}

// hintFor returns the hint for errors whose fix does not depend on the
// command. Commands attach context-specific hints themselves.
func hintFor(err error) string {
	switch {
	case errors.Is(err, export.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths(config.AppName))
	case errors.Is(err, markinote.ErrUnknownStyle):
		return hints.ForStyleNotFound(markinote.HighlightStyles())
	default:
		return ""
	}
}
