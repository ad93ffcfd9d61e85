package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/markinote/markinote/internal/fileutil"
	"github.com/markinote/markinote/internal/process"
)

// DefaultTimeout bounds page load and printing when the context has no deadline.
const DefaultTimeout = 30 * time.Second

// PDF page dimensions in inches (US Letter format).
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
	marginInches      = 0.5
)

// Printer prints a standalone HTML page to PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, htmlContent string) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ Printer = (*ChromePrinter)(nil)

// ChromePrinter prints pages with headless Chrome via go-rod. The browser is
// launched on first use and shared by concurrent prints.
//
// ROD_BROWSER_BIN selects a pre-installed browser; sandboxing is disabled
// when it is set, when CI=true, or when ROD_NO_SANDBOX is 1 or true.
type ChromePrinter struct {
	timeout time.Duration

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewChromePrinter creates a ChromePrinter. A zero timeout uses DefaultTimeout.
func NewChromePrinter(timeout time.Duration) *ChromePrinter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChromePrinter{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (c *ChromePrinter) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New()
	bin := os.Getenv("ROD_BROWSER_BIN")
	if bin != "" {
		l = l.Bin(bin)
	}
	noSandbox := os.Getenv("ROD_NO_SANDBOX")
	if bin != "" || os.Getenv("CI") == "true" || noSandbox == "1" || noSandbox == "true" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		c.kill(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	c.launcher = l
	c.browser = browser
	return browser, nil
}

// kill terminates the browser process tree and removes its profile directory.
func (c *ChromePrinter) kill(l *launcher.Launcher) {
	if pid := l.PID(); pid > 0 {
		// launcher.Kill below still stops the main process
		_ = process.KillTree(pid)
	}
	l.Kill()
	l.Cleanup()
}

// Close shuts the browser down. It is safe to call more than once.
func (c *ChromePrinter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.kill(c.launcher)
	c.browser = nil
	c.launcher = nil
	return err
}

// PrintPDF writes htmlContent to a temporary file, loads it and prints it.
// US Letter with half-inch margins and backgrounds enabled.
func (c *ChromePrinter) PrintPDF(ctx context.Context, htmlContent string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pathToFileURL(tmpPath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Context(ctx).Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.PDF(pdfOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// pdfOptions returns the fixed print settings.
func pdfOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
