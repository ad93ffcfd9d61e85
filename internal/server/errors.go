package server

import (
	"errors"
	"net/http"

	"github.com/markinote/markinote/internal/library"
)

// Sentinel errors for request handling.
var (
	// ErrBadRequest indicates a malformed request body or missing field.
	ErrBadRequest = errors.New("bad request")

	// ErrExportUnavailable indicates the server was started without a PDF exporter.
	ErrExportUnavailable = errors.New("pdf export is not configured")
)

// statusFor maps an error to the HTTP status returned to the client.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, library.ErrPathTraversal):
		return http.StatusForbidden
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, library.ErrExists),
		errors.Is(err, library.ErrInvalidPath),
		errors.Is(err, library.ErrInvalidName),
		errors.Is(err, library.ErrUnsupportedType),
		errors.Is(err, library.ErrNotAFile),
		errors.Is(err, library.ErrNotAFolder),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrExportUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
