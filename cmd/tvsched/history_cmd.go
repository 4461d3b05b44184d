// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/history"
	"github.com/ManuGH/tvsched/internal/report"
	"github.com/ManuGH/tvsched/internal/version"
)

// runHistoryCLI prints the most recent refresh runs from the history store.
func runHistoryCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	limit := fs.Int("limit", 20, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.NewLoader(common.configPath, version.Version, config.WithEnvFile(common.envFile)).Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	path := cfg.HistoryPath()
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "History is disabled (history.path is empty)")
		return 1
	}

	ctx := context.Background()
	store, err := history.Open(ctx, path, cfg.History.Keep)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Cannot open history: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, *limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Cannot read history: %v\n", err)
		return 1
	}
	if err := report.Runs(stdout, runs); err != nil {
		return 1
	}
	return 0
}
