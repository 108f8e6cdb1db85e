// Binary extentctl inspects and replays I/O traces against an extent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/google/subcommands"
	"github.com/henderiw/extenttree/pkg/config"
	"github.com/henderiw/extenttree/pkg/trace"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(Overlaps), "")
	subcommands.Register(new(Replay), "")

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	ctx := logr.NewContext(context.Background(), klog.NewKlogr())
	code := subcommands.Execute(ctx)
	klog.Flush()
	os.Exit(int(code))
}

// load reads the config at configPath, or the defaults when it is empty, and
// the trace at tracePath.
func load(configPath, tracePath string) (*config.Config, []trace.Op, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, nil, err
		}
	}

	f, err := os.Open(tracePath)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening trace: %w", err)
	}
	defer f.Close()

	ops, err := trace.Parse(f)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing trace %s: %w", tracePath, err)
	}
	return cfg, ops, nil
}

func fatalf(s string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, s+"\n", args...)
	return subcommands.ExitFailure
}
