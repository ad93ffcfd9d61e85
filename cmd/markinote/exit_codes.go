package main

import (
	"errors"
	"os"

	"github.com/markinote/markinote"
	"github.com/markinote/markinote/internal/assets"
	"github.com/markinote/markinote/internal/config"
	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/library"
)

// Exit codes for the markinote CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Command completed
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // Note not found, permission denied, output not writable
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, export.ErrBrowserConnect) ||
		errors.Is(err, export.ErrPageCreate) ||
		errors.Is(err, export.ErrPageLoad) ||
		errors.Is(err, export.ErrPDFGeneration) {
		return ExitBrowser
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, markinote.ErrUnknownStyle) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadNote) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, library.ErrNotFound) ||
		errors.Is(err, library.ErrPathTraversal) ||
		errors.Is(err, library.ErrNotAFile) ||
		errors.Is(err, library.ErrNotAFolder) {
		return ExitIO
	}

	return ExitGeneral
}
