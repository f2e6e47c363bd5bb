// Command credgen renders ID credentials from a template image, a data
// table and a folder of photos.
//
//	credgen validate  -template T -data D [-photos DIR]
//	credgen generate  -template T -data D [-photos DIR] [-out DIR] [-partial] [-workers N]
//	credgen render    -template T -data D [-photos DIR] [-row N] [-out FILE]
//	credgen preview   -template T -data D [-photos DIR] [-row N] [-grid] [-out FILE]
//	credgen serve     [-addr HOST:PORT] [-template T] [-data D] [-photos DIR]
//	credgen layout    export [-out FILE] | import FILE | init | edit [-data D] | list
//
// Configuration comes from the environment (and a .env file); see
// internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/credgen/internal/config"
	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/JonMunkholm/credgen/internal/logging"
	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/joho/godotenv"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// errUsage marks command line mistakes; the usage text has been printed.
var errUsage = errors.New("usage")

func main() {
	// Overload lets the .env file win over the inherited environment
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	store  layout.Store
	engine *render.Engine
	stdout io.Writer
	stderr io.Writer
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitFailure
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		printError(stderr, err)
		return exitFailure
	}
	defer closeStore()

	a := &app{
		cfg:    cfg,
		store:  store,
		engine: render.NewEngine(render.Options{Interpolation: cfg.Render.Interpolation}),
		stdout: stdout,
		stderr: stderr,
	}

	var cmd func(context.Context, []string) error
	switch args[0] {
	case "validate":
		cmd = a.validate
	case "generate":
		cmd = a.generate
	case "render":
		cmd = a.render
	case "preview":
		cmd = a.preview
	case "serve":
		cmd = a.serve
	case "layout":
		cmd = a.layout
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	switch err := cmd(ctx, args[1:]); {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		printError(stderr, err)
		return exitFailure
	}
}

// printError shows the user-facing message of err, with the validation
// entries of a refused batch.
func printError(w io.Writer, err error) {
	slog.Debug("command failed", "error", err)
	fmt.Fprintln(w, "error:", core.FormatUserError(err))

	var cfgErr *core.ConfigurationError
	if errors.As(err, &cfgErr) {
		printIssues(w, cfgErr.Errors)
	}
}

func printIssues(w io.Writer, errs core.ValidationErrorSet) {
	for _, key := range errs.Keys() {
		e := errs[key]
		fmt.Fprintf(w, "  %s: %s\n", key, e.Message)
		if e.Suggestion != "" {
			fmt.Fprintf(w, "    %s\n", e.Suggestion)
		}
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: credgen <command> [flags]

commands:
  validate   check the template, data, photos and layout
  generate   render every row and write the credentials to a directory
  render     render one row to a PNG file
  preview    screenshot the on-screen preview of one row (needs Chrome)
  serve      start the preview editor
  layout     export | import FILE | init | edit | list

run "credgen <command> -h" for the flags of a command
`)
}
