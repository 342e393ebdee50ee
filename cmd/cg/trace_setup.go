package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xizheyin/callgraph4rs/internal/trace"
)

// traceConfig reads the persistent trace flags of the root command.
// --trace without an explicit --trace-level means phase-level events.
func traceConfig(root *cobra.Command) (trace.Config, error) {
	pf := root.PersistentFlags()
	var (
		cfg                 trace.Config
		level, mode, format string
		err                 error
	)
	for name, dst := range map[string]*string{
		"trace":        &cfg.OutputPath,
		"trace-level":  &level,
		"trace-mode":   &mode,
		"trace-format": &format,
	} {
		if *dst, err = pf.GetString(name); err != nil {
			return cfg, fmt.Errorf("failed to read --%s: %w", name, err)
		}
	}
	if cfg.RingSize, err = pf.GetInt("trace-ring-size"); err != nil {
		return cfg, fmt.Errorf("failed to read --trace-ring-size: %w", err)
	}

	if cfg.Level, err = trace.ParseLevel(level); err != nil {
		return cfg, err
	}
	if cfg.Level == trace.LevelOff && cfg.OutputPath != "" && !pf.Changed("trace-level") {
		cfg.Level = trace.LevelPhase
	}
	if cfg.Level == trace.LevelOff {
		return cfg, nil
	}
	if cfg.Mode, err = trace.ParseMode(mode); err != nil {
		return cfg, err
	}
	if cfg.Format, err = trace.ParseFormat(format); err != nil {
		return cfg, err
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "-"
	}
	return cfg, nil
}

// setupTracing attaches the configured tracer to the command context.
// The returned cleanup must be deferred: on panic it dumps the ring
// buffer to stderr and re-panics.
func setupTracing(cmd *cobra.Command) (func(), error) {
	cfg, err := traceConfig(cmd.Root())
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	return func() {
		if r := recover(); r != nil {
			if ring, ok := trace.Ring(tracer); ok {
				fmt.Fprintln(os.Stderr, "trace: last events before panic:")
				_ = ring.Dump(os.Stderr, trace.FormatText)
			}
			_ = tracer.Close()
			panic(r)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
	}, nil
}
