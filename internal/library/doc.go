// Package library manages the folder of notes served by MarkiNote.
//
// A Store is rooted at one directory. Every caller-supplied path is a
// slash-separated path relative to that root; the store joins it under the
// root, resolves symlinks, and rejects anything that lands outside with
// ErrPathTraversal.
//
// Only files whose extension is in the allowed set are listed or searched.
// Folders are always listed.
//
// Mutating operations are serialized by the store so that collision checks
// and the following create or rename see the same directory state.
package library
