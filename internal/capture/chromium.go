// Package capture renders agenda pages to PNG with headless Chromium, for
// printed handouts and wall displays.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "confagenda/internal/log"
)

// Default capture parameters. The width fits the print layout of the day page.
const (
	DefaultWidth      = 1240
	DefaultHeight     = 1754
	DefaultTimeoutSec = 30
)

// readySelector is set on the day page once it has rendered.
const readySelector = `[data-ready="true"]`

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/delivery-circle-1/friday?print=1".
	URL string

	// OutputPath is where the PNG screenshot is written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. Zero uses
	// DefaultWidth / DefaultHeight.
	Width  int
	Height int

	// Timeout bounds one capture. Zero uses DefaultTimeoutSec.
	Timeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
}

// Target is one group/day page to snapshot.
type Target struct {
	Group string
	Day   string
}

// Targets lists every group/day pair. days returns the merged day keys for
// a group.
func Targets(groups []string, days func(group string) []string) []Target {
	var out []Target
	for _, g := range groups {
		for _, d := range days(g) {
			out = append(out, Target{Group: g, Day: d})
		}
	}
	return out
}

// PageURL is the print-mode URL of t under baseURL.
func PageURL(baseURL string, t Target) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(t.Group) + "/" +
		url.PathEscape(t.Day) + "?print=1"
}

// FileName is the PNG name for t: "{group}-{day}.png".
func FileName(t Target) string {
	return sanitize(t.Group) + "-" + sanitize(t.Day) + ".png"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

// PagePNG navigates a Chromium tab under parentCtx to opts.URL, waits until
// the page marks itself ready and writes a full-page PNG to opts.OutputPath.
//
// parentCtx may already carry a chromedp browser (see All); otherwise a new
// one is started.
func PagePNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	opts.applyDefaults()

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let web fonts finish painting.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

// All snapshots every target from baseURL into dir, sharing one browser.
// It stops at the first failure and returns the files written so far.
func All(ctx context.Context, baseURL, dir string, targets []Target, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create output dir: %w", err)
	}

	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	// Start the browser up front so every tab reuses it.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("capture: start browser: %w", err)
	}

	var written []string
	for _, t := range targets {
		o := opts
		o.URL = PageURL(baseURL, t)
		o.OutputPath = filepath.Join(dir, FileName(t))
		start := time.Now()
		if err := PagePNG(browserCtx, o); err != nil {
			return written, fmt.Errorf("%s/%s: %w", t.Group, t.Day, err)
		}
		appLog.Info("page captured", "group", t.Group, "day", t.Day,
			"path", o.OutputPath, "elapsed", time.Since(start))
		written = append(written, o.OutputPath)
	}
	return written, nil
}
