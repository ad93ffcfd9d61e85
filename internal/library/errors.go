package library

import "errors"

// Sentinel errors for library operations.
var (
	// ErrPathTraversal indicates a path that resolves outside the library root.
	ErrPathTraversal = errors.New("path escapes library root")

	// ErrNotFound indicates the file or folder does not exist.
	ErrNotFound = errors.New("file or folder not found")

	// ErrExists indicates the target name is already taken.
	ErrExists = errors.New("file or folder already exists")

	// ErrInvalidPath indicates an empty path or an operation on the root itself.
	ErrInvalidPath = errors.New("invalid library path")

	// ErrInvalidName indicates an empty file or folder name.
	ErrInvalidName = errors.New("invalid name")

	// ErrUnsupportedType indicates a file extension the library does not accept.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNotAFile indicates a folder where a file was expected.
	ErrNotAFile = errors.New("path is not a file")

	// ErrNotAFolder indicates a file where a folder was expected.
	ErrNotAFolder = errors.New("path is not a folder")

	// ErrTooLarge indicates an upload over the configured size limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)
