package library

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/sahilm/fuzzy"
)

// DefaultSearchLimit caps Search when limit is not positive.
const DefaultSearchLimit = 50

// SearchResult is one fuzzy match.
type SearchResult struct {
	Path           string `json:"path"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	MatchedIndexes []int  `json:"matched_indexes,omitempty"`
}

// Search fuzzy-matches query against the paths of every allowed file and
// returns up to limit results, best first. An empty query lists files in
// path order.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	candidates, err := s.files(ctx)
	if err != nil {
		return nil, err
	}

	if query == "" {
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		out := make([]SearchResult, len(candidates))
		for i, c := range candidates {
			out[i] = SearchResult{Path: c, Name: path.Base(c)}
		}
		return out, nil
	}

	matches := fuzzy.Find(query, candidates)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]SearchResult, len(matches))
	for i, m := range matches {
		out[i] = SearchResult{
			Path:           m.Str,
			Name:           path.Base(m.Str),
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return out, nil
}

// files walks the root and returns the slash paths of all allowed files,
// sorted. Symlinks are not followed.
func (s *Store) files(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Warn("walking library failed", "path", s.relPath(p), "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.Allowed(d.Name()) {
			out = append(out, s.relPath(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
