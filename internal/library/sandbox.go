package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// resolve maps a library-relative path to an absolute path under the root.
// Missing trailing components are allowed so the result can name a file
// that is about to be created; the existing prefix is resolved through
// symlinks before the containment check.
func (s *Store) resolve(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}
	joined := filepath.Join(s.root, filepath.FromSlash(rel))

	real, err := resolveExisting(joined)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve %q", ErrPathTraversal, rel)
	}
	if !s.contains(real) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}
	return real, nil
}

// contains reports whether abs is the root or lies below it.
// Separator suffix rejects sibling prefixes such as /base/pathevil.
func (s *Store) contains(abs string) bool {
	return abs == s.root || strings.HasPrefix(abs, s.root+string(filepath.Separator))
}

// relPath converts an absolute path under the root to the slash form
// returned to callers.
func (s *Store) relPath(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the components that do not exist yet.
func resolveExisting(path string) (string, error) {
	var missing []string
	current := path
	for {
		real, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				real = filepath.Join(real, missing[i])
			}
			return real, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

// statPath resolves rel and stats it, mapping a missing target to ErrNotFound.
func (s *Store) statPath(rel string) (string, os.FileInfo, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return "", nil, err
	}
	return abs, info, nil
}
