package server

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"

	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/fileutil"
)

// indexData feeds the index template.
type indexData struct {
	Title   string
	Root    string
	Version string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := indexData{Title: "MarkiNote", Root: s.store.Root(), Version: s.version}
	if err := s.index.Execute(&buf, data); err != nil {
		s.writeError(w, r, fmt.Errorf("rendering index: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}

func (s *Server) handleCSS(content func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(content()))
	}
}

type pathRequest struct {
	Path string `json:"path"`
}

// handlePreview renders a stored note.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	content, err := s.store.Read(req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.renderer.Process(r.Context(), content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"html":         result.HTML,
		"raw_markdown": content,
		"filename":     path.Base(req.Path),
		"stats":        result.Stats,
	}))
}

type renderRequest struct {
	Markdown string `json:"markdown"`
}

// handleRender renders Markdown posted in the body.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.renderer.Process(r.Context(), req.Markdown)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"html":  result.HTML,
		"stats": result.Stats,
	}))
}

// handleExportPDF prints a stored note and returns it as an attachment.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.writeError(w, r, ErrExportUnavailable)
		return
	}
	rel := r.URL.Query().Get("path")
	content, err := s.store.Read(rel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	abs, err := s.store.Path(rel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stem := fileutil.Stem(abs)
	pdf, err := s.exporter.PDF(r.Context(), export.Note{
		Title:     stem,
		Markdown:  content,
		SourceDir: filepath.Dir(abs),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": stem + ".pdf",
	}))
	_, _ = w.Write(pdf)
}
