// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/ManuGH/tvsched/internal/daemon"
	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/ManuGH/tvsched/internal/report"
)

// runRefreshCLI performs a single refresh and optionally prints the result.
func runRefreshCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	dryRun := fs.Bool("dry-run", false, "build the guide without writing it")
	printTable := fs.Bool("print", false, "print a timetable of the result")
	channel := fs.String("channel", "", "limit -print to one channel id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	opts := common.options()
	opts.DryRun = *dryRun
	rt, err := daemon.Build(ctx, opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	defer func() { _ = rt.Close(context.Background()) }()

	res, err := rt.Runner.Run(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Refresh failed (stage %s): %v\n", stageName(err), err)
		return 1
	}

	if *printTable {
		cfg := rt.Holder.Get()
		loc, err := cfg.Timeline.Location()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Configuration error: %v\n", err)
			return 1
		}
		if err := report.Timetable(stdout, cfg.ScheduleChannels(), res.Programmes, report.Options{
			Location: loc,
			Channel:  *channel,
		}); err != nil {
			return 1
		}
	}

	target := res.Status.GuidePath
	if *dryRun || target == "" {
		target = "(dry run, not written)"
	}
	_, _ = fmt.Fprintf(stdout, "%d programmes on %d channels -> %s\n",
		res.Status.Programmes, len(res.Status.Channels), target)
	return 0
}

func stageName(err error) string {
	if s := jobs.StageOf(err); s != "" {
		return s
	}
	return "unknown"
}
