package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/markinote/markinote/internal/config"
	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/library"
)

// runExport prints one note to PDF.
func runExport(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseExportFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		printExportUsage(env.Stderr)
		return fmt.Errorf("%w: export takes one note", ErrUsage)
	}
	arg := rest[0]

	timeout, err := parseTimeout(flags.timeout)
	if err != nil {
		return err
	}
	cfg, logger, err := prepare(&flags.common, env, func(cfg *config.Config) {
		if flags.root != "" {
			cfg.Library.Root = flags.root
		}
		if timeout > 0 {
			cfg.Export.Timeout = config.Duration(timeout)
		}
	})
	if err != nil {
		return err
	}

	var note export.Note
	if flags.root != "" {
		store, err := library.Open(cfg.Library.Root, library.Options{
			AllowedExtensions: cfg.Library.AllowedExtensions,
			Logger:            logger,
		})
		if err != nil {
			return fmt.Errorf("opening library: %w", err)
		}
		note, err = readLibraryNote(store, arg)
		if err != nil {
			return err
		}
	} else {
		note, err = readNote(arg, env)
		if err != nil {
			return err
		}
	}

	output, err := resolveExportOutput(flags.output, note)
	if err != nil {
		return err
	}

	comps, err := newComponents(cfg, env, logger)
	if err != nil {
		return err
	}
	defer func() { _ = comps.Close() }()

	logger.Debug("exporting note", "title", note.Title, "output", output, "timeout", cfg.Export.Timeout.Std())
	pdf, err := comps.exporter.PDF(ctx, note)
	if err != nil {
		return err
	}
	if err := writeOutput(output, pdf, env.Stdout); err != nil {
		return err
	}
	if output != stdinArg {
		fmt.Fprintf(env.Stderr, "Created %s\n", output)
	}
	return nil
}

// resolveExportOutput defaults the PDF next to the note, with the note's
// stem. Notes read from stdin need an explicit output.
func resolveExportOutput(flagOutput string, note export.Note) (string, error) {
	if flagOutput != "" {
		return flagOutput, nil
	}
	if note.SourceDir == "" {
		return "", fmt.Errorf("%w: --output is required when reading from stdin", ErrUsage)
	}
	return filepath.Join(note.SourceDir, note.Title+".pdf"), nil
}

// parseTimeout parses the --timeout flag. Empty means unset.
func parseTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q (use format like 30s, 2m, 1m30s)", ErrInvalidTimeout, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, value)
	}
	return d, nil
}
