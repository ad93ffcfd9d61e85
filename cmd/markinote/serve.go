package main

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/markinote/markinote/internal/config"
	"github.com/markinote/markinote/internal/hints"
	"github.com/markinote/markinote/internal/library"
	"github.com/markinote/markinote/internal/server"
)

// runServe serves the library until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: serve takes no arguments, got %q", ErrUsage, rest[0])
	}

	cfg, logger, err := prepare(&flags.common, env, func(cfg *config.Config) {
		if flags.addr != "" {
			cfg.Server.Addr = flags.addr
		}
		if flags.root != "" {
			cfg.Library.Root = flags.root
		}
	})
	if err != nil {
		return err
	}

	store, err := library.Open(cfg.Library.Root, library.Options{
		AllowedExtensions: cfg.Library.AllowedExtensions,
		MaxUploadSize:     cfg.Library.MaxUploadSize,
		Now:               env.Now,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("opening library: %w%s", err, hints.ForLibraryRoot(cfg.Library.Root))
	}

	comps, err := newComponents(cfg, env, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := comps.Close(); cerr != nil {
			logger.Warn("closing browser", "error", cerr)
		}
	}()

	srv, err := server.New(server.Options{
		Store:          store,
		Renderer:       comps.renderer,
		Exporter:       comps.exporter,
		Assets:         comps.assets,
		HighlightStyle: cfg.Render.HighlightStyle,
		Version:        Version,
		Logger:         logger,
		ReadTimeout:    cfg.Server.ReadTimeout.Std(),
		WriteTimeout:   cfg.Server.WriteTimeout.Std(),
	})
	if err != nil {
		return err
	}

	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w%s", err, hints.ForAddressInUse(cfg.Server.Addr))
		}
		return err
	}
	return nil
}
