package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/insertwatch/internal/app"
)

// debugfetch resolves license numbers against the registry and prints what
// the monitor would store for each, without reading or writing any state.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	_ = app.LoadEnvFiles(".env")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := app.DefaultConfig()
	app.ApplyEnvOverrides(&cfg)
	cfg.CacheDir = ""

	fs := flag.NewFlagSet("debugfetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	raw := fs.Bool("raw", false, "Also print the text before normalization")
	fs.StringVar(&cfg.BaseURL, "base", cfg.BaseURL, "Registry base URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: debugfetch [-raw] [-base URL] LICENSE...")
		return 2
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "init:", err)
		return 1
	}
	defer a.Close()

	for _, id := range fs.Args() {
		res := a.Inspect(ctx, id)
		fmt.Fprintf(stdout, "== %s\n%s\nreason: %s (%d chars)\n", id, res.URL, res.Normalized.Reason, len([]rune(res.Normalized.Text)))
		if *raw {
			fmt.Fprintf(stdout, "-- raw\n%s\n", res.Raw.Text)
		}
		fmt.Fprintf(stdout, "-- stored\n%s\n\n", res.Normalized.Text)
	}
	return 0
}
