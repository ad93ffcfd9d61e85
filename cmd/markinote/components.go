package main

import (
	"fmt"
	"log/slog"

	"github.com/markinote/markinote"
	"github.com/markinote/markinote/internal/assets"
	"github.com/markinote/markinote/internal/config"
	"github.com/markinote/markinote/internal/export"
)

// components bundles the renderer, assets and exporter built from config.
type components struct {
	renderer *markinote.Renderer
	assets   assets.AssetLoader
	exporter *export.Exporter
}

// newComponents wires the rendering stack. The exporter starts no browser
// until the first PDF is printed.
func newComponents(cfg *config.Config, env *Environment, logger *slog.Logger) (*components, error) {
	loader, err := assets.NewAssetResolver(cfg.Render.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	if loader.HasCustomLoader() {
		logger.Debug("using custom assets", "dir", cfg.Render.AssetsDir)
	}

	renderer := markinote.NewRenderer(
		markinote.WithLogger(logger),
		markinote.WithDiagramLanguage(cfg.Render.DiagramLanguage),
		markinote.WithHighlightStyle(cfg.Render.HighlightStyle),
	)

	exporter, err := export.New(export.Options{
		Renderer:       renderer,
		Assets:         loader,
		HighlightStyle: cfg.Render.HighlightStyle,
		Printer:        env.Printer,
		Timeout:        cfg.Export.Timeout.Std(),
	})
	if err != nil {
		return nil, err
	}

	return &components{renderer: renderer, assets: loader, exporter: exporter}, nil
}

// Close releases the exporter's browser.
func (c *components) Close() error {
	return c.exporter.Close()
}

// prepare loads the config, applies the common flags, validates, and builds
// the logger every command shares.
func prepare(common *commonFlags, env *Environment, override func(*config.Config)) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(common.config, loadEnvSettings())
	if err != nil {
		return nil, nil, err
	}
	common.apply(cfg)
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Log.NewLogger(env.Stderr), nil
}
