package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xizheyin/callgraph4rs/internal/query"
	"github.com/xizheyin/callgraph4rs/internal/report"
	"github.com/xizheyin/callgraph4rs/internal/snapshot"
	"github.com/xizheyin/callgraph4rs/internal/trace"
)

var callersCmd = newCallersCmd()

// newCallersCmd builds the callers command with its own flag set.
func newCallersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callers --graph <file> (--find-callers PATH... | --find-callers-by-hash HASH)",
		Short: "Query callers in a saved graph snapshot",
		Long: `Load a snapshot written by "cg build --save-graph" and list every function
that can reach each target, with the least accumulated constraint count.`,
		Args: cobra.NoArgs,
		RunE: callersExecution,
	}
	f := cmd.Flags()
	f.String("graph", "", "snapshot file (e.g. target/"+report.SnapshotFile+")")
	f.StringArray("find-callers", nil, "list callers of functions matching this path (repeatable)")
	f.String("find-callers-by-hash", "", "list callers of the function with this stable hash")
	f.Bool("json", false, "print JSON instead of text")
	f.Bool("without-args", false, "omit generic arguments from function names")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

func callersExecution(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	graphPath, err := cmd.Flags().GetString("graph")
	if err != nil {
		return err
	}
	paths, err := cmd.Flags().GetStringArray("find-callers")
	if err != nil {
		return err
	}
	hash, err := cmd.Flags().GetString("find-callers-by-hash")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	withoutArgs, err := cmd.Flags().GetBool("without-args")
	if err != nil {
		return err
	}

	targets, err := query.NewTargets(paths, hash)
	if err != nil {
		return err
	}

	tracer := trace.FromContext(cmd.Context())
	span := trace.Begin(tracer, trace.ScopeDriver, "cg callers", 0).WithExtra("targets", fmt.Sprint(len(targets)))
	defer span.End("")

	snap, err := snapshot.Load(graphPath)
	if err != nil {
		if errors.Is(err, snapshot.ErrSchema) {
			return fmt.Errorf("%s: rebuild the snapshot with this cg version: %w", graphPath, err)
		}
		return err
	}
	g, namer, err := snap.Graph()
	if err != nil {
		return fmt.Errorf("%s: %w", graphPath, err)
	}
	trace.Point(tracer, trace.ScopePass, "snapshot", graphPath, "run", snap.RunID)

	sections := findCallers(g, namer, targets)

	opts := report.Options{WithArgs: !withoutArgs}
	if asJSON {
		return report.WriteCallerSectionsJSON(cmd.OutOrStdout(), sections, namer, opts)
	}
	opts.Color = !color.NoColor
	return report.WriteCallerSectionsText(cmd.OutOrStdout(), sections, namer, opts)
}
