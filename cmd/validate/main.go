// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// validate is a CLI tool to validate tvsched YAML configuration files and,
// optionally, the integrity of the refresh history database.
//
// Usage:
//
//	validate -f config.yaml
//	validate -f config.yaml -history
//
// Exit codes:
//   - 0: Configuration is valid
//   - 1: Configuration is invalid (parse or validation error) or the history database is damaged
//   - 2: Usage error (missing required flag)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/persistence/sqlite"
	"github.com/ManuGH/tvsched/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var file string
	var showVersion, checkHistory, full bool

	fl := flag.NewFlagSet("validate", flag.ContinueOnError)
	fl.SetOutput(stderr)
	fl.StringVar(&file, "file", "", "path to YAML configuration file")
	fl.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fl.BoolVar(&checkHistory, "history", false, "also verify the history database")
	fl.BoolVar(&full, "full", false, "run a full integrity_check instead of quick_check")
	fl.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fl.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}

	if file == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --file is required")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Usage:")
		_, _ = fmt.Fprintln(stderr, "  validate -f config.yaml")
		_, _ = fmt.Fprintln(stderr, "  validate -f config.yaml -history")
		return 2
	}

	// env overrides are not applied: the file is checked as written
	cfg, err := config.LoadFile(file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error in %s:\n", file)
		_, _ = fmt.Fprintf(stderr, "  %v\n", err)
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "Validation error in %s:\n", file)
		_, _ = fmt.Fprintf(stderr, "  %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s is valid\n", file)

	if !checkHistory {
		return 0
	}
	path := cfg.HistoryPath()
	if path == "" {
		_, _ = fmt.Fprintln(stdout, "- history disabled, nothing to verify")
		return 0
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(stdout, "- %s does not exist yet\n", path)
		return 0
	}

	problems, err := sqlite.VerifyIntegrity(context.Background(), path, full)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "History check failed for %s:\n  %v\n", path, err)
		return 1
	}
	if len(problems) > 0 {
		_, _ = fmt.Fprintf(stderr, "History database %s is damaged:\n", path)
		for _, p := range problems {
			_, _ = fmt.Fprintf(stderr, "  %s\n", p)
		}
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s passed integrity check\n", path)
	return 0
}
