package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/library"
	"github.com/markinote/markinote/internal/pipeline"
)

// stubExporter records the note it was asked to print.
type stubExporter struct {
	got export.Note
	err error
}

func (s *stubExporter) PDF(_ context.Context, note export.Note) ([]byte, error) {
	s.got = note
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

// failingRenderer always errors.
type failingRenderer struct{}

func (failingRenderer) Process(context.Context, string) (*pipeline.Result, error) {
	return nil, fmt.Errorf("%w: boom", pipeline.ErrHTMLConversion)
}

func newTestServer(t *testing.T, files map[string]string, mutate func(*Options)) (*Server, *library.Store) {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := library.Open(root, library.Options{MaxUploadSize: 1024})
	if err != nil {
		t.Fatalf("library.Open() error = %v", err)
	}
	opts := Options{Store: store, Version: "test"}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, store
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestNew_RequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Error("New() without store succeeded")
	}
}

func TestNew_UnknownHighlightStyle(t *testing.T) {
	t.Parallel()

	store, err := library.Open(t.TempDir(), library.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{Store: store, HighlightStyle: "no-such-style"}); !errors.Is(err, pipeline.ErrUnknownStyle) {
		t.Errorf("New() error = %v, want ErrUnknownStyle", err)
	}
}

func TestStaticRoutes(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil, nil)

	tests := []struct {
		name        string
		target      string
		status      int
		contentType string
		contains    string
	}{
		{"index", "/", http.StatusOK, "text/html", "Version test"},
		{"health", "/healthz", http.StatusOK, "application/json", `"status":"ok"`},
		{"note css", "/static/note.css", http.StatusOK, "text/css", ".math-block"},
		{"highlight css", "/static/highlight.css", http.StatusOK, "text/css", ".chroma"},
		{"unknown", "/nope", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, s, http.MethodGet, tt.target, nil)
			if rec.Code != tt.status {
				t.Fatalf("GET %s = %d, want %d", tt.target, rec.Code, tt.status)
			}
			if tt.contentType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Content-Type = %q, want %s", rec.Header().Get("Content-Type"), tt.contentType)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil, nil)
	if rec := do(t, s, http.MethodGet, "/api/render", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/render = %d, want 405", rec.Code)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/render", map[string]string{
		"markdown": "# Title\n\n$$E = mc^2$$\n\n```mermaid\ngraph TD; A-->B;\n```",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	html, _ := body["html"].(string)
	for _, want := range []string{`<h1 id="title">Title</h1>`, "$$E = mc^2$$", `class="language-mermaid"`} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q: %s", want, html)
		}
	}
	stats, _ := body["stats"].(map[string]any)
	diagram, _ := stats["diagram"].(map[string]any)
	if diagram["resolved"] != float64(1) {
		t.Errorf("diagram stats = %v", stats["diagram"])
	}
}

func TestRender_BadBodies(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty", "", http.StatusBadRequest},
		{"not json", "{markdown", http.StatusBadRequest},
		{"too large", `{"markdown":"` + strings.Repeat("x", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if _, ok := decode(t, rec)["error"]; !ok {
				t.Error("error body missing error field")
			}
		})
	}
}

func TestRender_RendererFailureHidesDetail(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil, func(o *Options) { o.Renderer = failingRenderer{} })

	rec := do(t, s, http.MethodPost, "/api/render", map[string]string{"markdown": "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("internal error detail leaked: %s", rec.Body.String())
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, map[string]string{"notes/a.md": "~~old~~ new"}, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "notes/a.md", http.StatusOK},
		{"missing", "notes/b.md", http.StatusNotFound},
		{"traversal", "../../etc/passwd", http.StatusForbidden},
		{"empty", "", http.StatusBadRequest},
		{"folder", "notes", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, s, http.MethodPost, "/api/preview", map[string]string{"path": tt.path})
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			body := decode(t, rec)
			if body["filename"] != "a.md" || body["raw_markdown"] != "~~old~~ new" {
				t.Errorf("body = %v", body)
			}
			if !strings.Contains(body["html"].(string), "<del>old</del>") {
				t.Errorf("html = %v", body["html"])
			}
		})
	}
}

func TestLibraryRoutes(t *testing.T) {
	t.Parallel()

	s, store := newTestServer(t, map[string]string{
		"a.md":     "# A",
		"dir/b.md": "# B",
		"skip.png": "png",
		"other/":   "",
	}, nil)

	t.Run("list", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/library/list?path=", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		items := decode(t, rec)["items"].([]any)
		if len(items) != 3 {
			t.Fatalf("items = %v", items)
		}
		first := items[0].(map[string]any)
		if first["type"] != "folder" {
			t.Errorf("first item = %v, want folder", first)
		}
	})

	t.Run("list missing", func(t *testing.T) {
		if rec := do(t, s, http.MethodGet, "/api/library/list?path=ghost", nil); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("folders", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/library/folders", nil)
		folders := decode(t, rec)["folders"].([]any)
		if len(folders) != 3 {
			t.Errorf("folders = %v", folders)
		}
	})

	t.Run("read", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/library/read?path=dir/b.md", nil)
		body := decode(t, rec)
		if body["content"] != "# B" || body["filename"] != "b.md" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("search", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/library/search?q=b", nil)
		results := decode(t, rec)["results"].([]any)
		if len(results) == 0 || results[0].(map[string]any)["path"] != "dir/b.md" {
			t.Errorf("results = %v", results)
		}
		if rec := do(t, s, http.MethodGet, "/api/library/search?q=b&limit=x", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("bad limit status = %d", rec.Code)
		}
	})

	t.Run("create folder and file", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/library/create-folder", map[string]string{"name": "new", "path": ""})
		if rec.Code != http.StatusOK || decode(t, rec)["folder_name"] != "new" {
			t.Fatalf("create-folder = %d %s", rec.Code, rec.Body.String())
		}
		rec = do(t, s, http.MethodPost, "/api/library/create-folder", map[string]string{"name": "new"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("duplicate folder status = %d", rec.Code)
		}

		rec = do(t, s, http.MethodPost, "/api/library/create-file", map[string]string{"name": "c.md", "path": "new"})
		if rec.Code != http.StatusOK || decode(t, rec)["file_name"] != "c.md" {
			t.Fatalf("create-file = %d %s", rec.Code, rec.Body.String())
		}
		if content, _ := store.Read("new/c.md"); content != "# c\n\n" {
			t.Errorf("created content = %q", content)
		}
		rec = do(t, s, http.MethodPost, "/api/library/create-file", map[string]string{"name": "c.exe"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("bad extension status = %d", rec.Code)
		}
	})

	t.Run("save", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/library/save", map[string]string{"path": "a.md", "content": "# A2"})
		if rec.Code != http.StatusOK {
			t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
		}
		if content, _ := store.Read("a.md"); content != "# A2" {
			t.Errorf("saved content = %q", content)
		}
		rec = do(t, s, http.MethodPost, "/api/library/save", map[string]string{"path": "ghost.md", "content": "x"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("save missing = %d", rec.Code)
		}
	})

	t.Run("rename move delete", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/library/rename", map[string]string{"old_path": "a.md", "new_name": "z.md"})
		body := decode(t, rec)
		if rec.Code != http.StatusOK || body["new_path"] != "z.md" || body["new_name"] != "z.md" {
			t.Fatalf("rename = %d %v", rec.Code, body)
		}

		rec = do(t, s, http.MethodPost, "/api/library/move", map[string]string{"source": "z.md", "target": "other"})
		if rec.Code != http.StatusOK || decode(t, rec)["new_path"] != "other/z.md" {
			t.Fatalf("move = %d %s", rec.Code, rec.Body.String())
		}
		rec = do(t, s, http.MethodPost, "/api/library/move", map[string]string{"source": "other/z.md", "target": "../.."})
		if rec.Code != http.StatusForbidden {
			t.Errorf("move outside = %d", rec.Code)
		}

		rec = do(t, s, http.MethodPost, "/api/library/delete", map[string]string{"path": "other"})
		if rec.Code != http.StatusOK {
			t.Fatalf("delete = %d %s", rec.Code, rec.Body.String())
		}
		rec = do(t, s, http.MethodPost, "/api/library/delete", map[string]string{"path": ""})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("delete root = %d", rec.Code)
		}
	})
}

func multipartBody(t *testing.T, field, filename, content, folder string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if folder != "" {
		if err := mw.WriteField("path", folder); err != nil {
			t.Fatal(err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		field    string
		filename string
		content  string
		folder   string
		status   int
		wantPath string
	}{
		{"root", "file", "up.md", "# up", "", http.StatusOK, "up.md"},
		{"into folder", "file", "up.md", "# up", "sub", http.StatusOK, "sub/up.md"},
		{"bad type", "file", "up.exe", "x", "", http.StatusBadRequest, ""},
		{"no file", "", "", "", "", http.StatusBadRequest, ""},
		{"over limit", "file", "big.md", strings.Repeat("x", 2048), "", http.StatusRequestEntityTooLarge, ""},
		{"traversal", "file", "up.md", "x", "../..", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, store := newTestServer(t, nil, nil)
			body, contentType := multipartBody(t, tt.field, tt.filename, tt.content, tt.folder)
			req := httptest.NewRequest(http.MethodPost, "/api/library/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.wantPath == "" {
				return
			}
			if got := decode(t, rec)["path"]; got != tt.wantPath {
				t.Errorf("path = %v, want %s", got, tt.wantPath)
			}
			if content, err := store.Read(tt.wantPath); err != nil || content != tt.content {
				t.Errorf("stored = %q, %v", content, err)
			}
		})
	}
}

func TestExportPDF(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t, map[string]string{"a.md": "# A"}, nil)
		if rec := do(t, s, http.MethodGet, "/api/export/pdf?path=a.md", nil); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("exports note", func(t *testing.T) {
		t.Parallel()

		exp := &stubExporter{}
		s, store := newTestServer(t, map[string]string{"notes/Physics.md": "# P"}, func(o *Options) { o.Exporter = exp })

		rec := do(t, s, http.MethodGet, "/api/export/pdf?path=notes/Physics.md", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "application/pdf" {
			t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Physics.pdf") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		if exp.got.Title != "Physics" || exp.got.Markdown != "# P" {
			t.Errorf("exported note = %+v", exp.got)
		}
		if exp.got.SourceDir != filepath.Join(store.Root(), "notes") {
			t.Errorf("SourceDir = %q", exp.got.SourceDir)
		}
	})

	t.Run("missing note", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t, nil, func(o *Options) { o.Exporter = &stubExporter{} })
		if rec := do(t, s, http.MethodGet, "/api/export/pdf?path=ghost.md", nil); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("browser failure", func(t *testing.T) {
		t.Parallel()

		exp := &stubExporter{err: export.ErrBrowserConnect}
		s, _ := newTestServer(t, map[string]string{"a.md": "# A"}, func(o *Options) { o.Exporter = exp })
		if rec := do(t, s, http.MethodGet, "/api/export/pdf?path=a.md", nil); rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{library.ErrPathTraversal, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", library.ErrNotFound), http.StatusNotFound},
		{library.ErrExists, http.StatusBadRequest},
		{library.ErrUnsupportedType, http.StatusBadRequest},
		{library.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{ErrBadRequest, http.StatusBadRequest},
		{ErrExportUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil, func(o *Options) { o.ShutdownTimeout = time.Second })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestListenAndServe_AddressInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	s, _ := newTestServer(t, nil, nil)
	err = s.ListenAndServe(context.Background(), ln.Addr().String())
	if err == nil || !strings.Contains(err.Error(), "listening on") {
		t.Errorf("ListenAndServe() = %v, want listen error", err)
	}
}
