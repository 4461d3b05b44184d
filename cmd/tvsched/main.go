// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command tvsched scrapes a broadcaster schedule page and publishes an XMLTV
// guide, either once or as a daemon serving the guide over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/tvsched/internal/daemon"
	xglog "github.com/ManuGH/tvsched/internal/log"
	"github.com/ManuGH/tvsched/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches subcommands and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "refresh":
			return runRefreshCLI(args[1:], stdout, stderr)
		case "healthcheck":
			return runHealthcheckCLI(args[1:], stdout, stderr)
		case "history":
			return runHistoryCLI(args[1:], stdout, stderr)
		}
	}
	return runDaemon(args, stdout, stderr)
}

type commonFlags struct {
	configPath string
	envFile    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
}

func (c *commonFlags) options() daemon.Options {
	return daemon.Options{
		Version:    version.Version,
		ConfigPath: strings.TrimSpace(c.configPath),
		EnvFile:    c.envFile,
	}
}

func runDaemon(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tvsched", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	showVersion := fs.Bool("version", false, "print version and exit")
	listen := fs.String("listen", "", "override api.listen_addr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}

	// safe defaults until the configuration is loaded
	xglog.Configure(xglog.Config{Level: "info", Service: "tvsched", Version: version.Version})
	logger := xglog.WithComponent("main")

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	opts := common.options()
	opts.ListenAddr = *listen
	rt, err := daemon.Build(ctx, opts)
	if err != nil {
		logger.Error().Err(err).
			Str("event", "config.load_failed").
			Str("config_path", opts.ConfigPath).
			Msg("failed to start")
		return 1
	}

	app, err := rt.NewApp()
	if err != nil {
		_ = rt.Close(context.Background())
		logger.Error().Err(err).Str("event", "startup.failed").Msg("failed to build daemon")
		return 1
	}

	logger.Info().
		Str("event", "daemon.start").
		Str("version", version.Version).
		Str("listen", rt.Holder.Get().API.ListenAddr).
		Msg("starting tvsched daemon")

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	return 0
}
