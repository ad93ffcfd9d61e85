package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/fileutil"
	"github.com/markinote/markinote/internal/hints"
	"github.com/markinote/markinote/internal/library"
)

// stdinArg names standard input as the note source.
const stdinArg = "-"

// stdinTitle titles notes read from standard input.
const stdinTitle = "note"

// outputPerm is the mode of written HTML and PDF files.
const outputPerm = 0o644

// looksLikeNote reports whether arg has a note file extension.
func looksLikeNote(arg string) bool {
	return strings.Contains(arg, ".") && slices.Contains(library.NoteExtensions, fileutil.Extension(arg))
}

// readNote loads a note from a file path or standard input.
func readNote(arg string, env *Environment) (export.Note, error) {
	if arg == stdinArg {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return export.Note{}, fmt.Errorf("%w: stdin: %v", ErrReadNote, err)
		}
		return export.Note{Title: stdinTitle, Markdown: string(data)}, nil
	}

	if !looksLikeNote(arg) {
		return export.Note{}, fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(arg))
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return export.Note{}, fmt.Errorf("%w: %v", ErrReadNote, err)
	}
	data, err := os.ReadFile(abs) // #nosec G304 -- the user names the note to read
	if err != nil {
		return export.Note{}, fmt.Errorf("%w: %v", ErrReadNote, err)
	}
	return export.Note{
		Title:     fileutil.Stem(abs),
		Markdown:  string(data),
		SourceDir: filepath.Dir(abs),
	}, nil
}

// readLibraryNote loads a note through a library store, so the path stays
// inside the library root.
func readLibraryNote(store *library.Store, rel string) (export.Note, error) {
	content, err := store.Read(rel)
	if err != nil {
		return export.Note{}, err
	}
	abs, err := store.Path(rel)
	if err != nil {
		return export.Note{}, err
	}
	return export.Note{
		Title:     fileutil.Stem(abs),
		Markdown:  content,
		SourceDir: filepath.Dir(abs),
	}, nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(path string, data []byte, w io.Writer) error {
	if path == "" || path == stdinArg {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		return nil
	}
	if err := fileutil.WriteFileAtomic(path, data, outputPerm); err != nil {
		return fmt.Errorf("%w: %v%s", ErrWriteOutput, err, hints.ForOutputDirectory())
	}
	return nil
}
