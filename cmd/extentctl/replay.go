package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/subcommands"
	"github.com/henderiw/extenttree/pkg/config"
	"github.com/henderiw/extenttree/pkg/extent"
	"github.com/henderiw/extenttree/pkg/trace"
	"golang.org/x/sync/errgroup"
)

// Replay implements subcommands.Command for the "replay" command.
type Replay struct {
	configPath string
	workers    int
	hold       time.Duration
}

// Name implements subcommands.Command.
func (*Replay) Name() string {
	return "replay"
}

// Synopsis implements subcommands.Command.
func (*Replay) Synopsis() string {
	return "replays a trace concurrently through an extent"
}

// Usage implements subcommands.Command.
func (*Replay) Usage() string {
	return `replay [flags] <trace> - submits every operation of the trace in order and
runs up to -workers of them at once. Conflicting operations wait for each other.
`
}

// SetFlags implements subcommands.Command.
func (r *Replay) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.configPath, "config", "", "path to the extent config file.")
	f.IntVar(&r.workers, "workers", 8, "number of operations in flight.")
	f.DurationVar(&r.hold, "hold", time.Millisecond, "time every admitted operation holds its sectors.")
}

// Execute implements subcommands.Command.Execute.
func (r *Replay) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if r.workers <= 0 {
		return fatalf("error: -workers must be positive, got %d", r.workers)
	}
	cfg, ops, err := load(r.configPath, f.Arg(0))
	if err != nil {
		return fatalf("error: %v", err)
	}
	if err := runReplay(ctx, cfg, ops, r.workers, r.hold, os.Stdout); err != nil {
		return fatalf("error: %v", err)
	}
	return subcommands.ExitSuccess
}

type replaySummary struct {
	ops     int
	delayed int
	waits   int
	elapsed time.Duration
}

func runReplay(ctx context.Context, cfg *config.Config, ops []trace.Op, workers int, hold time.Duration, out io.Writer) error {
	log := logr.FromContextOrDiscard(ctx)
	e, err := extent.New(cfg, log)
	if err != nil {
		return err
	}

	reqs := make([]*extent.Request, len(ops))
	for i, op := range ops {
		reqs[i] = extent.NewRequest(op.Start, op.Length, op.Labels())
	}

	begin := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, int(cfg.MaxInFlight)))
	for i, req := range reqs {
		req := req
		line := ops[i].Line
		g.Go(func() error {
			if err := e.Begin(ctx, req); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			defer e.End(req)

			select {
			case <-time.After(hold):
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s := replaySummary{ops: len(reqs), elapsed: time.Since(begin)}
	for _, req := range reqs {
		if req.Waits() > 0 {
			s.delayed++
			s.waits += req.Waits()
		}
	}
	log.Info("replay done", "extent", cfg.Name, "ops", s.ops, "delayed", s.delayed, "elapsed", s.elapsed)
	_, err = fmt.Fprintf(out, "ops: %d\ndelayed: %d\nwaits: %d\n", s.ops, s.delayed, s.waits)
	return err
}
