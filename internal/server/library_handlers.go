package server

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
)

// Multipart framing allowance on top of the upload size limit.
const multipartOverhead = 1 << 20

// In-memory part of a parsed multipart form; the rest spills to temp files.
const multipartMemory = 8 << 20

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	items, err := s.store.List(r.Context(), rel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"items":        items,
		"current_path": rel,
	}))
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.Folders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{"folders": folders}))
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	content, err := s.store.Read(rel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"content":  content,
		"filename": path.Base(rel),
	}))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", ErrBadRequest))
			return
		}
		limit = n
	}
	results, err := s.store.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"query":   q.Get("q"),
		"results": results,
	}))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeError(w, r, err)
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: no file uploaded", ErrBadRequest))
		return
	}
	defer func() { _ = file.Close() }()

	res, err := s.store.Upload(r.FormValue("path"), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"message":  "file uploaded",
		"filename": res.Filename,
		"path":     res.Path,
	}))
}

type createRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rel, err := s.store.CreateFolder(req.Path, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"message":     "folder created",
		"folder_name": path.Base(rel),
		"path":        rel,
	}))
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rel, err := s.store.CreateFile(req.Path, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"message":   "file created",
		"file_name": path.Base(rel),
		"path":      rel,
	}))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(req.Path); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{"message": "deleted"}))
}

type moveRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	newPath, err := s.store.Move(req.Source, req.Target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"message":  "moved",
		"new_path": newPath,
	}))
}

type renameRequest struct {
	OldPath string `json:"old_path"`
	NewName string `json:"new_name"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	newPath, newName, err := s.store.Rename(req.OldPath, req.NewName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{
		"message":  "renamed",
		"new_path": newPath,
		"new_name": newName,
	}))
}

type saveRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Save(req.Path, req.Content); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, success(map[string]any{"message": "saved"}))
}
