// Package batch renders one credential per dataset row.
//
// Generate validates the snapshot, copies everything it reads, and fans the
// rows out over a bounded worker group. Output order always equals dataset
// order regardless of which worker finishes first. By default the first
// failing row cancels the batch; in partial mode failures are collected and
// the remaining rows still render.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/logging"
	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Credential is one rendered row.
type Credential struct {
	Image    []byte // PNG
	Filename string
	Row      int // index into Dataset.Rows
}

// FailedRow describes a row that did not render in partial mode.
type FailedRow struct {
	Row        int    `json:"row"`
	LineNumber int    `json:"lineNumber"`
	Reason     string `json:"reason"`
	Err        error  `json:"-"`
}

// Result is the output of one Generate call.
type Result struct {
	BatchID     string
	Credentials []Credential
	FailedRows  []FailedRow
	Duration    time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	// Workers bounds concurrent row renders. Zero uses GOMAXPROCS.
	Workers int
	// Partial keeps rendering after a row fails.
	Partial bool
	// Timeout bounds a whole batch. Zero means no limit.
	Timeout time.Duration
	// Progress, when set, receives phase and counter updates.
	Progress ProgressFunc
}

// Orchestrator runs batches with one render engine.
type Orchestrator struct {
	engine *render.Engine
	opts   Options
}

// New creates an Orchestrator.
func New(engine *render.Engine, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Orchestrator{engine: engine, opts: opts}
}

// Generate renders every row of snap. It refuses with a
// *core.ConfigurationError when snap does not validate. A dataset without
// data rows yields an empty result.
func (o *Orchestrator) Generate(ctx context.Context, snap core.Snapshot) (*Result, error) {
	res, rep, err := o.run(ctx, snap)
	if err != nil {
		return nil, err
	}
	rep.phase(PhaseComplete)
	return res, nil
}

// Export renders snap and writes the credentials into dir.
func (o *Orchestrator) Export(ctx context.Context, snap core.Snapshot, dir string) (*Result, []string, error) {
	res, rep, err := o.run(ctx, snap)
	if err != nil {
		return nil, nil, err
	}

	rep.phase(PhaseWriting)
	paths, err := WriteDir(dir, res.Credentials, func(written int) {
		rep.update(func(p *Progress) { p.Written = written })
	})
	if err != nil {
		rep.fail(err)
		return nil, nil, err
	}
	rep.phase(PhaseComplete)
	return res, paths, nil
}

func (o *Orchestrator) run(ctx context.Context, snap core.Snapshot) (*Result, *reporter, error) {
	if err := core.Validate(snap).Err(); err != nil {
		return nil, nil, err
	}
	// Nothing below reads the caller's snapshot after this point.
	tmpl := snap.Template
	layout := snap.Layout.Clone()
	photos := snap.Photos.Clone()
	headers := append([]string(nil), snap.Dataset.Headers...)
	rows := make([][]string, len(snap.Dataset.Rows))
	for i, r := range snap.Dataset.Rows {
		rows[i] = append([]string(nil), r...)
	}

	id := uuid.New().String()
	logger := logging.WithFields(ctx, "batch_id", id)
	rep := newReporter(id, len(rows), o.opts.Progress)

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("batch started", "rows", len(rows), "workers", o.opts.Workers, "partial", o.opts.Partial)
	rep.phase(PhaseStarting)
	rep.phase(PhaseRendering)

	creds := make([]*Credential, len(rows))
	failures := make([]*FailedRow, len(rows))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cred, err := o.renderRow(gctx, tmpl, layout, photos, headers, row, i)
			if err != nil {
				if o.opts.Partial && !isCancellation(err) {
					failures[i] = &FailedRow{Row: i, LineNumber: core.RowLineNumber(i), Reason: err.Error(), Err: err}
					failed.Add(1)
					rep.update(func(p *Progress) { p.Failed++ })
					logger.Warn("row failed", "row", i, "error", err)
					return nil
				}
				return fmt.Errorf("row %d: %w", core.RowLineNumber(i), err)
			}
			creds[i] = cred
			rep.update(func(p *Progress) { p.Rendered++ })
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		rep.fail(err)
		logger.Error("batch failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, nil, err
	}

	res := &Result{BatchID: id, Credentials: make([]Credential, 0, len(rows)-int(failed.Load()))}
	for i := range rows {
		switch {
		case creds[i] != nil:
			res.Credentials = append(res.Credentials, *creds[i])
		case failures[i] != nil:
			res.FailedRows = append(res.FailedRows, *failures[i])
		}
	}
	res.Duration = time.Since(start)

	logger.Info("batch rendered",
		"credentials", len(res.Credentials),
		"failed", len(res.FailedRows),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, rep, nil
}

func (o *Orchestrator) renderRow(ctx context.Context, tmpl image.Image, layout core.Layout, photos *core.PhotoLibrary, headers, row []string, i int) (*Credential, error) {
	img, err := o.engine.RenderRow(ctx, tmpl, layout, photos, headers, row)
	if err != nil {
		return nil, err
	}
	data, err := render.PNGBytes(img)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	return &Credential{
		Image:    data,
		Filename: Filename(layout.FilenamePattern, headers, row, i),
		Row:      i,
	}, nil
}

// Filename resolves pattern for the row at index i. An empty result falls
// back to credencial-<i+1>.png.
func Filename(pattern string, headers, row []string, i int) string {
	name := core.Resolve(pattern, headers, row)
	if name == "" {
		return "credencial-" + strconv.Itoa(i+1) + ".png"
	}
	return name
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
