package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/chromedp/chromedp"
)

// SnapshotOptions configures a headless browser screenshot.
type SnapshotOptions struct {
	Timeout time.Duration
	// ExecPath overrides the Chrome binary; empty uses the default lookup.
	ExecPath string
}

// Document renders scene as a standalone HTML page.
func Document(ctx context.Context, scene Scene, opts ViewOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>credential preview</title>` +
		`<style>html,body{margin:0;padding:0;background:#0f172a}</style></head><body>`)
	if err := SceneView(scene, opts).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render scene: %w", err)
	}
	buf.WriteString(`</body></html>`)
	return buf.Bytes(), nil
}

// Snapshot screenshots the projected scene in headless Chrome and returns
// PNG bytes. Image sources in opts must be self-contained (data URIs).
func Snapshot(ctx context.Context, scene Scene, view ViewOptions, opts SnapshotOptions) ([]byte, error) {
	doc, err := Document(ctx, scene, view)
	if err != nil {
		return nil, err
	}
	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(doc)

	w := int(math.Ceil(scene.DisplayWidth()))
	h := int(math.Ceil(scene.DisplayHeight()))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("snapshot: empty scene %dx%d", w, h)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.WindowSize(w, h),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var shot []byte
	start := time.Now()
	tasks := chromedp.Tasks{
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible(`#credential`, chromedp.ByQuery),
		chromedp.Screenshot(`#credential`, &shot, chromedp.ByQuery),
	}
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return nil, fmt.Errorf("snapshot: chromedp: %w", err)
	}
	if len(shot) == 0 {
		return nil, fmt.Errorf("snapshot: empty screenshot")
	}

	slog.Debug("preview snapshot taken",
		"width", w,
		"height", h,
		"bytes", len(shot),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return shot, nil
}

// DataURI encodes image bytes for use as an img src.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
