package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/credgen/internal/batch"
	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/JonMunkholm/credgen/internal/preview"
	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/JonMunkholm/credgen/internal/web"
	"github.com/JonMunkholm/credgen/internal/workspace"
)

// inputFlags name the files a session is built from.
type inputFlags struct {
	template   string
	data       string
	photos     string
	layoutFile string
}

func (in *inputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&in.template, "template", "", "template image (PNG, JPEG, GIF, BMP, TIFF or WebP)")
	fs.StringVar(&in.data, "data", "", "data table (.csv, .txt or .xlsx)")
	fs.StringVar(&in.photos, "photos", "", "directory of photos named after the link column values")
	fs.StringVar(&in.layoutFile, "layout", "", "layout document to use instead of the saved layout")
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("credgen "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse parses args; -h prints the flags and ends the command quietly.
func parse(fs *flag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, errUsage
	}
	return false, nil
}

// loadSession builds a session from the saved (or given) layout and the
// input files. Edits made through the session are saved to the store.
func (a *app) loadSession(ctx context.Context, in inputFlags) (*workspace.Session, error) {
	var sess *workspace.Session
	if in.layoutFile != "" {
		data, err := os.ReadFile(in.layoutFile)
		if err != nil {
			return nil, &core.IOError{Op: "read layout", Path: in.layoutFile, Err: err}
		}
		l, err := layout.Import(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.layoutFile, err)
		}
		sess = workspace.New(l, a.store)
	} else {
		var err error
		if sess, err = workspace.Open(ctx, a.store); err != nil {
			return nil, err
		}
	}

	if in.template != "" {
		if err := loadFile(in.template, sess.LoadTemplate); err != nil {
			return nil, err
		}
	}
	if in.data != "" {
		if err := loadFile(in.data, sess.LoadData); err != nil {
			return nil, err
		}
	}
	if in.photos != "" {
		report, err := sess.LoadPhotoDir(in.photos)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(a.stderr, "photos:", report.String())
	}
	return sess, nil
}

func loadFile(path string, load func(r io.Reader, name string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &core.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	return load(f, filepath.Base(path))
}

func (a *app) validate(ctx context.Context, args []string) error {
	fs := a.flagSet("validate")
	var in inputFlags
	in.register(fs)
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	sess, err := a.loadSession(ctx, in)
	if err != nil {
		return err
	}
	if err := sess.Validate().Err(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "ok: %d rows ready\n", sess.Status().Rows)
	return nil
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs := a.flagSet("generate")
	var in inputFlags
	in.register(fs)
	out := fs.String("out", a.cfg.Batch.OutputDir, "output directory")
	partial := fs.Bool("partial", a.cfg.Batch.Partial, "keep going when a row fails and report it")
	workers := fs.Int("workers", a.cfg.Batch.Workers, "rows rendered at once (0 = one per CPU)")
	timeout := fs.Duration("timeout", a.cfg.Batch.Timeout, "limit for the whole batch (0 = none)")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	sess, err := a.loadSession(ctx, in)
	if err != nil {
		return err
	}

	var last batch.Phase
	orch := batch.New(a.engine, batch.Options{
		Workers: *workers,
		Partial: *partial,
		Timeout: *timeout,
		Progress: func(p batch.Progress) {
			if p.Phase == last {
				return
			}
			last = p.Phase
			fmt.Fprintf(a.stderr, "%s: %d/%d rows\n", p.Phase, p.Rendered+p.Failed, p.TotalRows)
		},
	})

	res, files, err := orch.Export(ctx, sess.Snapshot(), *out)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "wrote %d credentials to %s in %s\n", len(files), *out, res.Duration.Round(time.Millisecond))
	if len(res.FailedRows) > 0 {
		fmt.Fprintf(a.stdout, "%d rows failed:\n", len(res.FailedRows))
		for _, fr := range res.FailedRows {
			fmt.Fprintf(a.stdout, "  line %d: %s\n", fr.LineNumber, fr.Reason)
		}
	}
	return nil
}

// rowIndex converts a 1-based row flag into an index into rows.
func rowIndex(row, rows int) (int, error) {
	if rows == 0 {
		return 0, core.ErrNoRows
	}
	if row < 1 || row > rows {
		return 0, fmt.Errorf("row %d is outside 1-%d", row, rows)
	}
	return row - 1, nil
}

func (a *app) render(ctx context.Context, args []string) error {
	fs := a.flagSet("render")
	var in inputFlags
	in.register(fs)
	row := fs.Int("row", 1, "data row to render (1-based)")
	out := fs.String("out", "", "output file (default: the row's credential filename)")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	sess, err := a.loadSession(ctx, in)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	if snap.Template == nil {
		return &core.ResourceError{Resource: "template", Err: errors.New("no template given")}
	}
	i, err := rowIndex(*row, len(snap.Dataset.Rows))
	if err != nil {
		return err
	}
	if errs := core.Validate(snap); !errs.Empty() {
		fmt.Fprintln(a.stderr, "warning: the layout has problems; the batch would refuse it")
		printIssues(a.stderr, errs)
	}

	img, err := a.engine.RenderRow(ctx, snap.Template, snap.Layout, snap.Photos, snap.Dataset.Headers, snap.Dataset.Rows[i])
	if err != nil {
		return err
	}
	data, err := render.PNGBytes(img)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = batch.SanitizeFilename(batch.Filename(snap.Layout.FilenamePattern, snap.Dataset.Headers, snap.Dataset.Rows[i], i))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &core.IOError{Op: "write credential", Path: path, Err: err}
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}

func (a *app) preview(ctx context.Context, args []string) error {
	fs := a.flagSet("preview")
	var in inputFlags
	in.register(fs)
	row := fs.Int("row", 1, "data row to show (1-based)")
	width := fs.Int("width", a.cfg.Server.DisplayWidth, "display width in CSS pixels")
	grid := fs.Bool("grid", false, "draw the alignment grid")
	out := fs.String("out", "preview.png", "output file")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	sess, err := a.loadSession(ctx, in)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	scene, ok := preview.ProjectRow(snap, *row-1, float64(*width))
	if !ok {
		return &core.ResourceError{Resource: "template", Err: errors.New("no template given")}
	}

	tmplData, tmplType := sess.Template()
	view := preview.ViewOptions{
		TemplateSrc: preview.DataURI(tmplType, tmplData),
		PhotoSrc: func(key string) string {
			data, contentType, ok := sess.Photo(key)
			if !ok {
				return ""
			}
			return preview.DataURI(contentType, data)
		},
		Grid: *grid,
	}
	shot, err := preview.Snapshot(ctx, scene, view, preview.SnapshotOptions{
		Timeout:  a.cfg.Snapshot.Timeout,
		ExecPath: a.cfg.Snapshot.ChromePath,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, shot, 0o644); err != nil {
		return &core.IOError{Op: "write preview", Path: *out, Err: err}
	}
	fmt.Fprintln(a.stdout, *out)
	return nil
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := a.flagSet("serve")
	var in inputFlags
	in.register(fs)
	addr := fs.String("addr", a.cfg.Server.Addr(), "listen address")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	sess, err := a.loadSession(ctx, in)
	if err != nil {
		return err
	}

	server := web.NewServer(web.Deps{
		Session: sess,
		Engine:  a.engine,
		Limiter: batch.NewLimiter(batch.DefaultMaxConcurrentBatches, a.cfg.Batch.MaxWaitTime),
		Batch: batch.Options{
			Workers: a.cfg.Batch.Workers,
			Partial: a.cfg.Batch.Partial,
			Timeout: a.cfg.Batch.Timeout,
		},
		OutputDir: a.cfg.Batch.OutputDir,
		Snapshot: preview.SnapshotOptions{
			Timeout:  a.cfg.Snapshot.Timeout,
			ExecPath: a.cfg.Snapshot.ChromePath,
		},
		Config: a.cfg.Server,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(*addr) }()
	fmt.Fprintf(a.stdout, "preview editor at http://%s/\n", *addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(a.stderr, "shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
