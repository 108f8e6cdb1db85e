package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/henderiw/extenttree/pkg/config"
	"github.com/henderiw/extenttree/pkg/interval"
	"github.com/henderiw/extenttree/pkg/trace"
)

// Overlaps implements subcommands.Command for the "overlaps" command.
type Overlaps struct {
	configPath string
}

// Name implements subcommands.Command.
func (*Overlaps) Name() string {
	return "overlaps"
}

// Synopsis implements subcommands.Command.
func (*Overlaps) Synopsis() string {
	return "lists the overlapping operations of a trace"
}

// Usage implements subcommands.Command.
func (*Overlaps) Usage() string {
	return `overlaps [flags] <trace> - prints for every operation the operations it overlaps
and the merged sector regions in which operations conflict.
`
}

// SetFlags implements subcommands.Command.
func (o *Overlaps) SetFlags(f *flag.FlagSet) {
	f.StringVar(&o.configPath, "config", "", "path to the extent config file.")
}

// Execute implements subcommands.Command.Execute.
func (o *Overlaps) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, ops, err := load(o.configPath, f.Arg(0))
	if err != nil {
		return fatalf("error: %v", err)
	}
	if err := runOverlaps(cfg, ops, os.Stdout); err != nil {
		return fatalf("error: %v", err)
	}
	return subcommands.ExitSuccess
}

func runOverlaps(cfg *config.Config, ops []trace.Op, out io.Writer) error {
	tree := interval.New(cfg.Name, cfg.SectorSize)
	ivs := make([]*interval.Interval, len(ops))
	byID := make(map[interval.ID]trace.Op, len(ops))
	for i, op := range ops {
		if op.Length == 0 || op.Length%cfg.SectorSize != 0 {
			return fmt.Errorf("line %d: %w: length %d, sector size %d", op.Line, interval.ErrMisaligned, op.Length, cfg.SectorSize)
		}
		ivs[i] = interval.NewInterval(op.Start, op.Length)
		tree.Insert(ivs[i])
		byID[ivs[i].ID()] = op
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "LINE\tOP\tSECTORS\tOVERLAPS\n")

	var regions []interval.Range
	for i, op := range ops {
		var lines []string
		iter := tree.Overlaps(op.Start, op.Length)
		for iter.Next() {
			iv := iter.Interval()
			if iv == ivs[i] {
				continue
			}
			other := byID[iv.ID()]
			lines = append(lines, fmt.Sprint(other.Line))
			if conflicts(cfg.Policy, op, other) {
				regions = append(regions, ivs[i].Range().Intersect(iv.Range()))
			}
		}
		overlaps := "-"
		if len(lines) > 0 {
			overlaps = strings.Join(lines, ",")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", op.Line, op.Kind, ivs[i].Range(), overlaps)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	merged, ok := interval.MergeRanges(regions)
	if !ok {
		panic("conflict region without sectors - should be impossible!")
	}
	strs := make([]string, 0, len(merged))
	for _, r := range merged {
		strs = append(strs, r.String())
	}
	if len(strs) == 0 {
		strs = append(strs, "none")
	}
	_, err := fmt.Fprintf(out, "conflict regions (%s): %s\n", cfg.Policy, strings.Join(strs, " "))
	return err
}

func conflicts(policy config.Policy, a, b trace.Op) bool {
	if policy == config.PolicySharedReads {
		return a.Kind == trace.Write || b.Kind == trace.Write
	}
	return true
}
