package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/markinote/markinote/internal/export"
)

// stubPrinter records the pages it was asked to print.
type stubPrinter struct {
	mu     sync.Mutex
	pages  []string
	err    error
	closed bool
}

func (p *stubPrinter) PrintPDF(_ context.Context, html string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append(p.pages, html)
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

func (p *stubPrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

var _ export.Printer = (*stubPrinter)(nil)

// testEnv returns an environment writing to buffers.
func testEnv(stdin string, printer export.Printer) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Environment{
		Now:     func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) },
		Stdin:   strings.NewReader(stdin),
		Stdout:  &stdout,
		Stderr:  &stderr,
		Printer: printer,
	}, &stdout, &stderr
}

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestIsCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"serve", true},
		{"render", true},
		{"export", true},
		{"css", true},
		{"version", true},
		{"help", true},
		{"Serve", false}, // case sensitive
		{"note.md", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := isCommand(tt.input); got != tt.want {
				t.Errorf("isCommand(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLooksLikeNote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"note.md", true},
		{"NOTE.MD", true},
		{"dir/a.markdown", true},
		{"todo.txt", true},
		{"image.png", false},
		{"md", false},
		{"serve", false},
	}
	for _, tt := range tests {
		if got := looksLikeNote(tt.input); got != tt.want {
			t.Errorf("looksLikeNote(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRunMain_Basics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", []string{"markinote"}, ExitUsage, "", "Usage: markinote"},
		{"version", []string{"markinote", "version"}, ExitSuccess, "markinote " + Version, ""},
		{"help", []string{"markinote", "help"}, ExitSuccess, "Commands:", ""},
		{"help flag", []string{"markinote", "--help"}, ExitSuccess, "Commands:", ""},
		{"help for command", []string{"markinote", "help", "export"}, ExitSuccess, "--timeout", ""},
		{"help unknown", []string{"markinote", "help", "nope"}, ExitUsage, "", "unknown command: nope"},
		{"unknown command", []string{"markinote", "frobnicate"}, ExitUsage, "", "unknown command: frobnicate"},
		{"unknown flag", []string{"markinote", "render", "--bogus", "a.md"}, ExitUsage, "", "invalid usage"},
		{"command help flag", []string{"markinote", "render", "-h"}, ExitSuccess, "", "Usage: markinote render"},
		{"render without note", []string{"markinote", "render"}, ExitUsage, "", "render takes one note"},
		{"render bad extension", []string{"markinote", "render", "image.png"}, ExitUsage, "", ".md, .markdown or .txt"},
		{"render missing file", []string{"markinote", "render", "/nonexistent/note.md"}, ExitIO, "", "failed to read note"},
		{"serve with args", []string{"markinote", "serve", "extra"}, ExitUsage, "", "serve takes no arguments"},
		{"missing config", []string{"markinote", "css", "-c", "/nonexistent/markinote.yaml"}, ExitUsage, "", "config file not found"},
		{"bad log level", []string{"markinote", "css", "--log-level", "loud"}, ExitUsage, "", "invalid config value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv("", &stubPrinter{})
			code := runMain(tt.args, env)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout missing %q\ngot: %s", tt.wantStdout, stdout.String())
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr missing %q\ngot: %s", tt.wantStderr, stderr.String())
			}
		})
	}
}

func TestRunMain_Render(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	note := writeNote(t, dir, "Physics.md", "# Hello\n\n$$E = mc^2$$\n\n```mermaid\nA-->B\n```\n")

	t.Run("stdout", func(t *testing.T) {
		t.Parallel()

		env, stdout, stderr := testEnv("", nil)
		if code := runMain([]string{"markinote", "render", note}, env); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		for _, want := range []string{
			`<h1 id="hello">Hello</h1>`,
			`<div class="math-block">$$E = mc^2$$</div>`,
			`<pre><code class="language-mermaid">A--&gt;B</code></pre>`,
		} {
			if !strings.Contains(stdout.String(), want) {
				t.Errorf("stdout missing %q\ngot: %s", want, stdout.String())
			}
		}
	})

	t.Run("shorthand", func(t *testing.T) {
		t.Parallel()

		env, stdout, _ := testEnv("", nil)
		if code := runMain([]string{"markinote", note}, env); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		if !strings.Contains(stdout.String(), "<h1") {
			t.Errorf("shorthand did not render: %s", stdout.String())
		}
	})

	t.Run("stdin with stats", func(t *testing.T) {
		t.Parallel()

		env, stdout, stderr := testEnv("~~old~~ and $x$", nil)
		if code := runMain([]string{"markinote", "render", "-", "--stats"}, env); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		if !strings.Contains(stdout.String(), "<del>old</del>") {
			t.Errorf("stdout = %s", stdout.String())
		}
		for _, want := range []string{"strikethrough", "math_inline", "resolved=1"} {
			if !strings.Contains(stderr.String(), want) {
				t.Errorf("stats missing %q\ngot: %s", want, stderr.String())
			}
		}
		if strings.Contains(stderr.String(), "diagram") {
			t.Errorf("stats list kinds that did not occur: %s", stderr.String())
		}
	})

	t.Run("page to file", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "physics.html")
		env, stdout, stderr := testEnv("", nil)
		if code := runMain([]string{"markinote", "render", note, "--page", "-o", out}, env); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout should be empty when writing a file, got %q", stdout.String())
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		page := string(data)
		for _, want := range []string{"<!DOCTYPE html>", "<title>Physics</title>", "<style>", ".chroma"} {
			if !strings.Contains(page, want) {
				t.Errorf("page missing %q", want)
			}
		}
		if !strings.Contains(stderr.String(), "Created "+out) {
			t.Errorf("stderr = %s", stderr.String())
		}
	})

	t.Run("unwritable output", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "missing", "dir", "out.html")
		env, _, stderr := testEnv("", nil)
		if code := runMain([]string{"markinote", "render", note, "-o", out}, env); code != ExitIO {
			t.Errorf("exit code = %d, want %d", code, ExitIO)
		}
		if !strings.Contains(stderr.String(), "hint:") {
			t.Errorf("missing output directory hint: %s", stderr.String())
		}
	})
}

func TestRunMain_Export(t *testing.T) {
	t.Parallel()

	t.Run("next to note", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		note := writeNote(t, dir, "Physics.md", "# Physics\n\n![fig](img/fig.png)")
		printer := &stubPrinter{}
		env, _, stderr := testEnv("", printer)

		if code := runMain([]string{"markinote", "export", note}, env); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		data, err := os.ReadFile(filepath.Join(dir, "Physics.pdf"))
		if err != nil {
			t.Fatalf("PDF not written: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Errorf("output = %q", data)
		}
		if len(printer.pages) != 1 {
			t.Fatalf("printed %d pages, want 1", len(printer.pages))
		}
		if !strings.Contains(printer.pages[0], "file://"+filepath.ToSlash(filepath.Join(dir, "img", "fig.png"))) {
			t.Errorf("relative image not rewritten: %s", printer.pages[0])
		}
		if !printer.closed {
			t.Error("printer not closed")
		}
	})

	t.Run("library note", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeNote(t, root, "notes/a.md", "# A")
		out := filepath.Join(t.TempDir(), "a.pdf")
		env, _, stderr := testEnv("", &stubPrinter{})

		code := runMain([]string{"markinote", "export", "--root", root, "notes/a.md", "-o", out, "--timeout", "5s"}, env)
		if code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		if _, err := os.Stat(out); err != nil {
			t.Errorf("PDF not written: %v", err)
		}
	})

	tests := []struct {
		name     string
		args     func(root string) []string
		stdin    string
		printErr error
		wantCode int
	}{
		{
			name:     "library traversal",
			args:     func(root string) []string { return []string{"export", "--root", root, "../../etc/passwd.md", "-o", "-"} },
			wantCode: ExitIO,
		},
		{
			name:     "library missing",
			args:     func(root string) []string { return []string{"export", "--root", root, "ghost.md", "-o", "-"} },
			wantCode: ExitIO,
		},
		{
			name:     "stdin needs output",
			args:     func(string) []string { return []string{"export", "-"} },
			stdin:    "# x",
			wantCode: ExitUsage,
		},
		{
			name:     "invalid timeout",
			args:     func(string) []string { return []string{"export", "-", "-o", "-", "--timeout", "soon"} },
			wantCode: ExitUsage,
		},
		{
			name:     "browser failure",
			args:     func(string) []string { return []string{"export", "-", "-o", "-"} },
			stdin:    "# x",
			printErr: fmt.Errorf("%w: no chrome", export.ErrBrowserConnect),
			wantCode: ExitBrowser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, stderr := testEnv(tt.stdin, &stubPrinter{err: tt.printErr})
			args := append([]string{"markinote"}, tt.args(t.TempDir())...)
			if code := runMain(args, env); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
		})
	}

	t.Run("stdout", func(t *testing.T) {
		t.Parallel()

		env, stdout, stderr := testEnv("# x", &stubPrinter{})
		if code := runMain([]string{"markinote", "export", "-", "-o", "-"}, env); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		if !strings.HasPrefix(stdout.String(), "%PDF") {
			t.Errorf("stdout = %q", stdout.String())
		}
	})
}

func TestRunMain_CSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"default style", []string{"css"}, ExitSuccess, ".chroma", ""},
		{"named style", []string{"css", "--style", "monokai"}, ExitSuccess, ".chroma", ""},
		{"list", []string{"css", "--list"}, ExitSuccess, "monokai", ""},
		{"unknown style", []string{"css", "-s", "no-such-style"}, ExitUsage, "", "hint: available:"},
		{"extra args", []string{"css", "extra"}, ExitUsage, "", "css takes no arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv("", nil)
			code := runMain(append([]string{"markinote"}, tt.args...), env)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstderr: %s", code, tt.wantCode, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout missing %q", tt.wantStdout)
			}
			if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr missing %q\ngot: %s", tt.wantStderr, stderr.String())
			}
		})
	}
}

func TestRunServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	env, _, stderr := testEnv("", &stubPrinter{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	err := runServe(ctx, []string{"--addr", "127.0.0.1:0", "--root", root, "--log-level", "debug"}, env)
	if err != nil {
		t.Fatalf("runServe() error = %v", err)
	}
	for _, want := range []string{"server listening", "server shutting down"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("log missing %q\ngot: %s", want, stderr.String())
		}
	}
}

func TestRunServe_AddressInUse(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("EADDRINUSE is reported differently on Windows")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	env, _, stderr := testEnv("", &stubPrinter{})
	code := runMain([]string{"markinote", "serve", "--addr", ln.Addr().String(), "--root", t.TempDir()}, env)
	if code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}
	if !strings.Contains(stderr.String(), "--addr") {
		t.Errorf("missing address hint: %s", stderr.String())
	}
}

func TestRunServe_BadRoot(t *testing.T) {
	t.Parallel()

	file := writeNote(t, t.TempDir(), "file.md", "x")
	env, _, stderr := testEnv("", &stubPrinter{})

	if code := runMain([]string{"markinote", "serve", "--root", file}, env); code == ExitSuccess {
		t.Error("serving a regular file as root succeeded")
	}
	if !strings.Contains(stderr.String(), "--root") {
		t.Errorf("missing root hint: %s", stderr.String())
	}
}
