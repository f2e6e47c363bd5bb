package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/JonMunkholm/credgen/internal/wizard"
	"github.com/JonMunkholm/credgen/internal/workspace"
)

// prompter is replaced in tests.
var prompter wizard.Prompter = wizard.SurveyPrompter{}

func (a *app) layout(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "usage: credgen layout export [-out FILE] | import FILE | init [-force] | edit [-data FILE] | list")
		return errUsage
	}

	switch args[0] {
	case "export":
		return a.layoutExport(ctx, args[1:])
	case "import":
		return a.layoutImport(ctx, args[1:])
	case "init":
		return a.layoutInit(ctx, args[1:])
	case "edit":
		return a.layoutEdit(ctx, args[1:])
	case "list":
		return a.layoutList(ctx)
	default:
		fmt.Fprintf(a.stderr, "unknown layout command %q\n", args[0])
		return errUsage
	}
}

func (a *app) layoutExport(ctx context.Context, args []string) error {
	fs := a.flagSet("layout export")
	out := fs.String("out", "", "output file (default: stdout)")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	l, err := layout.LoadOrDefault(ctx, a.store)
	if err != nil {
		return err
	}
	data, err := layout.Export(l)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err := a.stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return &core.IOError{Op: "write layout", Path: *out, Err: err}
	}
	fmt.Fprintln(a.stdout, *out)
	return nil
}

func (a *app) layoutImport(ctx context.Context, args []string) error {
	fs := a.flagSet("layout import")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: credgen layout import FILE")
		return errUsage
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return &core.IOError{Op: "read layout", Path: path, Err: err}
	}
	l, err := layout.Import(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := a.store.Save(ctx, l); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d text and %d image fields\n", len(l.TextFields), len(l.ImageFields))
	return nil
}

func (a *app) layoutInit(ctx context.Context, args []string) error {
	fs := a.flagSet("layout init")
	force := fs.Bool("force", false, "replace an existing layout")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	_, err := a.store.Load(ctx)
	switch {
	case err == nil && !*force:
		return errors.New("a layout is already saved; use -force to replace it")
	case err != nil && !errors.Is(err, layout.ErrNotFound) && !*force:
		return err
	}

	if err := a.store.Save(ctx, layout.Default()); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "saved the default layout")
	return nil
}

// layoutEdit runs the interactive wizard over the saved layout. With -data
// the columns of that table are offered for links and placeholders.
func (a *app) layoutEdit(ctx context.Context, args []string) error {
	fs := a.flagSet("layout edit")
	data := fs.String("data", "", "data table whose columns the layout uses")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	l, err := layout.LoadOrDefault(ctx, a.store)
	if err != nil {
		return err
	}

	var headers []string
	if *data != "" {
		sess := workspace.New(l, nil)
		if err := loadFile(*data, sess.LoadData); err != nil {
			return err
		}
		headers = sess.Status().Headers
	}

	edited, err := wizard.New(prompter, headers).Run(ctx, l)
	if errors.Is(err, wizard.ErrDiscarded) || errors.Is(err, wizard.ErrAborted) {
		fmt.Fprintln(a.stdout, "layout unchanged")
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.store.Save(ctx, edited); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "saved %d text and %d image fields\n", len(edited.TextFields), len(edited.ImageFields))
	return nil
}

func (a *app) layoutList(ctx context.Context) error {
	pg, ok := a.store.(*layout.PGStore)
	if !ok {
		if fsStore, ok := a.store.(*layout.FileStore); ok {
			fmt.Fprintln(a.stdout, fsStore.Path)
		}
		return nil
	}

	stored, err := pg.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range stored {
		marker := " "
		if s.Name == pg.Name {
			marker = "*"
		}
		fmt.Fprintf(a.stdout, "%s %-20s %s  %s\n", marker, s.Name, s.UpdatedAt.Format(time.RFC3339), s.ID)
	}
	return nil
}
