// Package capture renders the /calendar page to a PNG with headless
// Chromium.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "eventcal/internal/log"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 960
	DefaultTimeout = 30 * time.Second
)

// readySelector matches the calendar root once the grid is rendered.
const readySelector = `[data-ready="true"]`

// Options defines one snapshot.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?date=2024-05-01".
	URL string
	// OutputPath receives the PNG.
	OutputPath string

	// Width and Height are the viewport in pixels. Zero means the default.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeout.
	Timeout time.Duration

	// Username and Password are sent as HTTP Basic Auth when Username is set.
	Username string
	Password string

	// ExecPath overrides the Chromium binary chromedp would look up.
	ExecPath string
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return o, errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// CaptureCalendarPNG navigates a headless Chromium to opts.URL, waits for
// the grid to report data-ready="true" and writes a full-page screenshot to
// opts.OutputPath.
func CaptureCalendarPNG(parentCtx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.NoSandbox,
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height))}
	if opts.Username != "" {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": basicAuth(opts.Username, opts.Password)}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)

	appLog.Debug("capture start", "url", opts.URL, "width", opts.Width, "height", opts.Height)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("capture done", "path", opts.OutputPath, "bytes", len(png))
	return nil
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
