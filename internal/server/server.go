package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markinote/markinote/internal/assets"
	"github.com/markinote/markinote/internal/export"
	"github.com/markinote/markinote/internal/library"
	"github.com/markinote/markinote/internal/pipeline"
)

// Timeouts applied when Options leaves them zero.
const (
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

// Renderer renders Markdown to an HTML fragment.
type Renderer interface {
	Process(ctx context.Context, content string) (*pipeline.Result, error)
}

// PDFExporter prints a note to PDF.
type PDFExporter interface {
	PDF(ctx context.Context, note export.Note) ([]byte, error)
}

// Compile-time interface checks.
var (
	_ Renderer    = (*pipeline.Processor)(nil)
	_ PDFExporter = (*export.Exporter)(nil)
)

// Options configures a Server.
type Options struct {
	Store    *library.Store
	Renderer Renderer
	// Exporter serves /api/export/pdf. Nil answers 503.
	Exporter PDFExporter
	// Assets supplies the index template and note stylesheet.
	// Defaults to the embedded assets.
	Assets         assets.AssetLoader
	HighlightStyle string
	Version        string
	Logger         *slog.Logger

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end. Create it with New.
type Server struct {
	store    *library.Store
	renderer Renderer
	exporter PDFExporter
	logger   *slog.Logger
	version  string
	maxBody  int64

	index        *template.Template
	noteCSS      string
	highlightCSS string

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	handler http.Handler
}

// New builds a Server and its routes, loading static assets up front.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: nil library store")
	}
	if opts.Renderer == nil {
		opts.Renderer = pipeline.NewProcessor(pipeline.Options{Logger: opts.Logger})
	}
	if opts.Assets == nil {
		opts.Assets = assets.NewEmbeddedLoader()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	indexSrc, err := opts.Assets.LoadTemplate(assets.IndexTemplate)
	if err != nil {
		return nil, err
	}
	index, err := template.New(assets.IndexTemplate).Parse(indexSrc)
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	noteCSS, err := opts.Assets.LoadStyle(assets.NoteStyle)
	if err != nil {
		return nil, err
	}
	highlightCSS, err := pipeline.HighlightCSS(opts.HighlightStyle)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:           opts.Store,
		renderer:        opts.Renderer,
		exporter:        opts.Exporter,
		logger:          opts.Logger,
		version:         opts.Version,
		maxBody:         opts.Store.MaxUploadSize(),
		index:           index,
		noteCSS:         noteCSS,
		highlightCSS:    highlightCSS,
		readTimeout:     orDefault(opts.ReadTimeout, DefaultReadTimeout),
		writeTimeout:    orDefault(opts.WriteTimeout, DefaultWriteTimeout),
		shutdownTimeout: orDefault(opts.ShutdownTimeout, DefaultShutdownTimeout),
	}
	s.handler = s.routes()
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Handler returns the root handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /static/note.css", s.handleCSS(func() string { return s.noteCSS }))
	mux.HandleFunc("GET /static/highlight.css", s.handleCSS(func() string { return s.highlightCSS }))

	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("GET /api/export/pdf", s.handleExportPDF)

	mux.HandleFunc("GET /api/library/list", s.handleList)
	mux.HandleFunc("GET /api/library/folders", s.handleFolders)
	mux.HandleFunc("GET /api/library/read", s.handleRead)
	mux.HandleFunc("GET /api/library/search", s.handleSearch)
	mux.HandleFunc("POST /api/library/upload", s.handleUpload)
	mux.HandleFunc("POST /api/library/create-folder", s.handleCreateFolder)
	mux.HandleFunc("POST /api/library/create-file", s.handleCreateFile)
	mux.HandleFunc("POST /api/library/delete", s.handleDelete)
	mux.HandleFunc("POST /api/library/move", s.handleMove)
	mux.HandleFunc("POST /api/library/rename", s.handleRename)
	mux.HandleFunc("POST /api/library/save", s.handleSave)

	return s.recoverPanics(s.logRequests(mux))
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully, waiting up to the shutdown timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      s.writeTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "root", s.store.Root())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})

	return g.Wait()
}
