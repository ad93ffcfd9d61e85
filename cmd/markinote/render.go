package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/markinote/markinote"
)

// runRender renders one note to HTML.
func runRender(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		printRenderUsage(env.Stderr)
		return fmt.Errorf("%w: render takes one note (or - for stdin)", ErrUsage)
	}

	cfg, logger, err := prepare(&flags.common, env, nil)
	if err != nil {
		return err
	}

	note, err := readNote(rest[0], env)
	if err != nil {
		return err
	}

	comps, err := newComponents(cfg, env, logger)
	if err != nil {
		return err
	}
	defer func() { _ = comps.Close() }()

	result, err := comps.renderer.Render(ctx, note.Markdown)
	if err != nil {
		return err
	}
	out := result.HTML
	if flags.page {
		if out, err = comps.exporter.HTML(ctx, note); err != nil {
			return err
		}
	}

	if flags.stats {
		printStats(env.Stderr, result.Stats)
	}
	if misses := result.Stats.Misses(); misses > 0 {
		printWarning(env.Stderr, fmt.Sprintf("%d placeholder(s) left unresolved", misses))
	}

	if err := writeOutput(flags.output, []byte(out), env.Stdout); err != nil {
		return err
	}
	if flags.output != "" && flags.output != stdinArg {
		fmt.Fprintf(env.Stderr, "Created %s\n", flags.output)
	}
	return nil
}

// printStats prints one line per placeholder kind that occurred.
func printStats(w io.Writer, stats markinote.Stats) {
	for _, kind := range slices.Sorted(maps.Keys(stats)) {
		ks := stats[kind]
		if ks.Extracted == 0 && ks.Missed == 0 {
			continue
		}
		fmt.Fprintf(w, "%-14s extracted=%d resolved=%d missed=%d\n", kind, ks.Extracted, ks.Resolved, ks.Missed)
	}
}
