package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xizheyin/callgraph4rs/internal/config"
)

// addAnalysisFlags registers the flags shared by every command that
// builds a graph. Defaults mirror config.Default.
func addAnalysisFlags(cmd *cobra.Command) {
	def := config.Default()
	f := cmd.Flags()
	f.StringP("output-dir", "o", def.Output.Dir, "directory for reports")
	f.Bool("json", def.Output.JSON, "also write JSON reports")
	f.Bool("dedup", def.Analysis.Dedup, "keep only the least constrained edge per caller/callee pair")
	f.Bool("without-args", def.Analysis.WithoutArgs, "omit generic arguments from function names")
	f.Int("jobs", def.Analysis.Jobs, "parallel workers for constraint analysis")
	f.String("indirect-calls", def.Analysis.IndirectCalls, "indirect call candidates (functions|closures|all)")
	f.String("entry-point", def.Analysis.EntryPoint, "start from functions with this name instead of main")
	f.String("timeout", def.Analysis.Timeout, "abort analysis after this duration (e.g. 5m)")
	f.Int("max-instances", def.Analysis.MaxInstances, "stop expanding after this many instances (0 = unlimited)")
	f.StringArray("find-callers", nil, "list callers of functions matching this path (repeatable)")
	f.String("find-callers-by-hash", "", "list callers of the function with this stable hash")
	f.Bool("emit-ir", def.Debug.EmitIR, "dump the IR of every reached function")
	f.Bool("show-all-funcs", def.Debug.ShowAllFuncs, "print every function in the graph")
	f.Bool("timings", def.Debug.Timings, "write phase timings to the output directory")
	f.String("config", "", "path to "+config.FileName+" (default: search upwards)")
}

// loadBuildConfig reads cg.toml and lets explicitly set flags win.
func loadBuildConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := overlayFlags(cmd, &cfg); err != nil {
		return config.Config{}, err
	}
	if _, err := targetFromConfig(&cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func overlayFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetBool(name)
		}
	}
	list := func(name string, dst *[]string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetStringArray(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}

	str("output-dir", &cfg.Output.Dir)
	boolean("json", &cfg.Output.JSON)
	boolean("dedup", &cfg.Analysis.Dedup)
	boolean("without-args", &cfg.Analysis.WithoutArgs)
	integer("jobs", &cfg.Analysis.Jobs)
	str("indirect-calls", &cfg.Analysis.IndirectCalls)
	str("entry-point", &cfg.Analysis.EntryPoint)
	str("timeout", &cfg.Analysis.Timeout)
	integer("max-instances", &cfg.Analysis.MaxInstances)
	list("find-callers", &cfg.Query.FindCallers)
	str("find-callers-by-hash", &cfg.Query.FindCallersByHash)
	boolean("emit-ir", &cfg.Debug.EmitIR)
	boolean("show-all-funcs", &cfg.Debug.ShowAllFuncs)
	boolean("timings", &cfg.Debug.Timings)
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	if cfg.Output.Dir == "" {
		return fmt.Errorf("--output-dir must not be empty")
	}
	return nil
}
