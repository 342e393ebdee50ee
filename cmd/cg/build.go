package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/config"
	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/gossa"
	"github.com/xizheyin/callgraph4rs/internal/ir"
	"github.com/xizheyin/callgraph4rs/internal/observ"
	"github.com/xizheyin/callgraph4rs/internal/prof"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/query"
	"github.com/xizheyin/callgraph4rs/internal/report"
	"github.com/xizheyin/callgraph4rs/internal/snapshot"
	"github.com/xizheyin/callgraph4rs/internal/trace"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [packages...]",
	Short: "Build the call graph of Go packages",
	Long: `Load the given package patterns (default "."), build the instance call graph
from the program roots and write reports to the output directory.
Settings come from the nearest cg.toml; explicitly set flags override it.`,
	RunE: buildExecution,
}

func init() {
	addAnalysisFlags(buildCmd)
	buildCmd.Flags().Bool("tests", false, "include test packages and their functions")
	buildCmd.Flags().Bool("save-graph", false, "save a graph snapshot for later `cg callers` queries")
	buildCmd.Flags().Int("max-diagnostics", 20, "maximum number of warnings to print")
	buildCmd.Flags().String("cpu-profile", "", "write a CPU profile to this file")
	buildCmd.Flags().String("mem-profile", "", "write a heap profile to this file")
	buildCmd.Flags().String("exec-trace", "", "write a runtime execution trace to this file")
}

type buildResult struct {
	runID       string
	graph       *callgraph.CallGraph
	namer       program.Namer
	bag         *diag.Bag
	written     []string
	callers     []report.CallerSection
	timer       *observ.Timer
	withArgs    bool
	showTimings bool
}

func buildExecution(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	profiles, err := startProfiles(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := profiles.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}()

	cfg, err := loadBuildConfig(cmd)
	if err != nil {
		return err
	}
	targets, err := targetFromConfig(&cfg)
	if err != nil {
		return err
	}
	tests, err := cmd.Flags().GetBool("tests")
	if err != nil {
		return err
	}
	saveGraph, err := cmd.Flags().GetBool("save-graph")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := runBuild(ctx, cfg, targets, args, tests, saveGraph)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Debug.ShowAllFuncs {
		printFunctions(out, res.graph, res.namer, res.withArgs)
	}
	if quietFlag(cmd) {
		return nil
	}
	printDiagnostics(cmd.ErrOrStderr(), res.bag, maxDiagnostics)
	if len(res.callers) > 0 {
		if err := report.WriteCallerSectionsText(out, res.callers, res.namer, report.Options{WithArgs: res.withArgs, Color: !color.NoColor}); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	printBuildSummary(out, res)
	return nil
}

func startProfiles(cmd *cobra.Command) (*prof.Session, error) {
	var paths prof.Paths
	var err error
	if paths.CPU, err = cmd.Flags().GetString("cpu-profile"); err != nil {
		return nil, err
	}
	if paths.Mem, err = cmd.Flags().GetString("mem-profile"); err != nil {
		return nil, err
	}
	if paths.Trace, err = cmd.Flags().GetString("exec-trace"); err != nil {
		return nil, err
	}
	return prof.Start(paths)
}

// targetFromConfig returns the caller targets of the request; none
// when no query was asked for.
func targetFromConfig(cfg *config.Config) ([]query.Target, error) {
	if len(cfg.Query.FindCallers) == 0 && cfg.Query.FindCallersByHash == "" {
		return nil, nil
	}
	return query.NewTargets(cfg.Query.FindCallers, cfg.Query.FindCallersByHash)
}

// findCallers runs one query per target.
func findCallers(g *callgraph.CallGraph, namer program.Namer, targets []query.Target) []report.CallerSection {
	sections := make([]report.CallerSection, 0, len(targets))
	for _, t := range targets {
		infos, ok := query.FindCallers(g, namer, t)
		sections = append(sections, report.CallerSection{Target: t, Callers: infos, Found: ok})
	}
	return sections
}

func runBuild(ctx context.Context, cfg config.Config, targets []query.Target, patterns []string, tests, saveGraph bool) (*buildResult, error) {
	tracer := trace.FromContext(ctx)
	runID := uuid.NewString()
	root := trace.Begin(tracer, trace.ScopeDriver, "cg build", 0).WithExtra("run", runID)
	defer root.End("")

	timer := observ.NewTimer()
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	idx := timer.Begin("load")
	prog, err := gossa.Load(ctx, ".", patterns, gossa.Options{Tests: tests, EntryPoint: cfg.Analysis.EntryPoint})
	if err != nil {
		timer.End(idx, "failed")
		return nil, err
	}
	timer.End(idx, fmt.Sprintf("%d roots", len(prog.Roots())))
	if len(prog.Roots()) == 0 {
		return nil, fmt.Errorf("no root functions found (entry point %q)", cfg.Analysis.EntryPoint)
	}

	bag := diag.NewBag(0)
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	idx = timer.Begin("build")
	g, err := callgraph.Build(trace.WithSpan(ctx, root), prog, callgraph.Options{
		Dedup:        cfg.Analysis.Dedup,
		Jobs:         cfg.Analysis.Jobs,
		MaxInstances: cfg.Analysis.MaxInstances,
		Policy:       policy,
		Reporter:     reporter,
		Tracer:       tracer,
	})
	if err != nil {
		timer.End(idx, "aborted")
		return nil, fmt.Errorf("call graph construction aborted: %w", err)
	}
	st := g.Stats()
	timer.End(idx, fmt.Sprintf("%d nodes, %d edges", st.Nodes, st.Edges))

	res := &buildResult{
		runID:       runID,
		graph:       g,
		namer:       prog,
		bag:         bag,
		timer:       timer,
		withArgs:    !cfg.Analysis.WithoutArgs,
		showTimings: cfg.Debug.Timings,
	}

	w := &report.Writer{Dir: cfg.Output.Dir, Reporter: reporter, Tracer: tracer, Timer: timer}
	opts := report.Options{WithArgs: res.withArgs}
	written := func(path string, ok bool) {
		if ok {
			res.written = append(res.written, path)
		}
	}

	idx = timer.Begin("report")
	written(w.Write(report.GraphText, func(out io.Writer) error {
		return report.WriteGraphText(out, g, prog, opts)
	}))
	if cfg.Output.JSON {
		written(w.Write(report.GraphJSON, func(out io.Writer) error {
			return report.WriteGraphJSON(out, g, prog, opts)
		}))
	}
	if len(targets) > 0 {
		qs := root.Child(trace.ScopePass, "query").WithExtra("targets", fmt.Sprint(len(targets)))
		res.callers = findCallers(g, prog, targets)
		qs.End("")
		writeCallers(w, res.callers, prog, opts, cfg.Output.JSON, written)
	}
	if cfg.Debug.EmitIR {
		emitIR(w, g, prog, written)
	}
	if saveGraph {
		path := filepath.Join(cfg.Output.Dir, report.SnapshotFile)
		if err := snapshot.FromGraph(g, prog, runID).Save(path); err != nil {
			w.Fail(diag.CGSnapshotWrite, path, err)
		} else {
			written(path, true)
		}
	}
	timer.End(idx, fmt.Sprintf("%d files", len(res.written)))

	if cfg.Debug.Timings {
		path := filepath.Join(cfg.Output.Dir, report.TimingFile)
		if err := timer.WriteFile(path, runID); err != nil {
			w.Fail(diag.CGReportWrite, path, err)
		} else {
			written(path, true)
		}
	}
	return res, nil
}

// writeCallers emits the caller report under the file names of the
// query mode. Hash requests carry a single target.
func writeCallers(w *report.Writer, sections []report.CallerSection, namer program.Namer, opts report.Options, withJSON bool, written func(string, bool)) {
	textName, jsonName := report.CallersText, report.CallersJSON
	if sections[0].Target.Kind == query.ByHash {
		textName, jsonName = report.CallersHashText, report.CallersHashJSON
	}
	written(w.Write(textName, func(out io.Writer) error {
		return report.WriteCallerSectionsText(out, sections, namer, opts)
	}))
	if withJSON {
		written(w.Write(jsonName, func(out io.Writer) error {
			return report.WriteCallerSectionsJSON(out, sections, namer, opts)
		}))
	}
}

func emitIR(w *report.Writer, g *callgraph.CallGraph, prog *gossa.Program, written func(string, bool)) {
	for _, n := range g.Nodes() {
		body, ok := prog.Body(n)
		if !ok {
			continue
		}
		written(w.WriteIR(prog.DisplayName(n, true), func(out io.Writer) error {
			return ir.Dump(out, body, prog.Types(), prog.DefPath)
		}))
	}
}
