package main

import (
	"fmt"

	"github.com/markinote/markinote"
	"github.com/markinote/markinote/internal/config"
)

// runCSS prints the highlight stylesheet, or the style names with --list.
func runCSS(args []string, env *Environment) error {
	flags, rest, err := parseCSSFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: css takes no arguments, got %q", ErrUsage, rest[0])
	}

	if flags.list {
		for _, name := range markinote.HighlightStyles() {
			fmt.Fprintln(env.Stdout, name)
		}
		return nil
	}

	cfg, _, err := prepare(&flags.common, env, func(cfg *config.Config) {
		if flags.style != "" {
			cfg.Render.HighlightStyle = flags.style
		}
	})
	if err != nil {
		return err
	}

	css, err := markinote.HighlightCSS(cfg.Render.HighlightStyle)
	if err != nil {
		return err
	}
	fmt.Fprint(env.Stdout, css)
	return nil
}
