package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/program"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func render(style lipgloss.Style, s string) string {
	if color.NoColor {
		return s
	}
	return style.Render(s)
}

func printBuildSummary(out io.Writer, res *buildResult) {
	st := res.graph.Stats()
	status := render(okStyle, "done")
	switch {
	case res.bag.HasErrors():
		status = render(errStyle, "done with errors")
	case res.bag.HasWarnings():
		status = render(warnStyle, "done with warnings")
	}
	fmt.Fprintf(out, "%s %s\n", render(titleStyle, "cg build"), status)

	row := func(label, value string) {
		fmt.Fprintf(out, "  %s %s\n", render(labelStyle, fmt.Sprintf("%-12s", label)), value)
	}
	row("run", res.runID)
	row("roots", fmt.Sprint(st.Roots))
	row("instances", fmt.Sprintf("%d (%d expanded, %d without body, %d unresolved)", st.Nodes, st.Expanded, st.MissingBodies, st.Unresolved))
	row("call sites", fmt.Sprintf("%d (%d unreachable)", st.CallSites, st.UnreachableCalls))
	if st.EdgesBeforeDedup != st.Edges {
		row("edges", fmt.Sprintf("%d (%d before dedup)", st.Edges, st.EdgesBeforeDedup))
	} else {
		row("edges", fmt.Sprint(st.Edges))
	}
	row("batches", fmt.Sprint(st.Batches))
	for _, sec := range res.callers {
		if sec.Found {
			row("callers", fmt.Sprintf("%s: %d", sec.Target.Label(), len(sec.Callers)))
		} else {
			row("callers", sec.Target.Label()+": "+render(warnStyle, "no matching function"))
		}
	}
	if res.bag.Len() > 0 {
		row("diagnostics", countsByCode(res.bag))
	}
	for _, path := range res.written {
		row("wrote", path)
	}
	if res.showTimings {
		fmt.Fprint(out, res.timer.Summary())
	}
}

func countsByCode(bag *diag.Bag) string {
	counts := bag.CountByCode()
	codes := make([]diag.Code, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, fmt.Sprintf("%s x%d", c.ID(), counts[c]))
	}
	return strings.Join(parts, ", ")
}

// printDiagnostics writes warnings and errors; info diagnostics only
// show up in the summary counts.
func printDiagnostics(out io.Writer, bag *diag.Bag, limit int) {
	shown := bag.AtLeast(diag.SevWarning)
	if len(shown) == 0 {
		return
	}
	extra := 0
	if limit > 0 && len(shown) > limit {
		extra = len(shown) - limit
		shown = shown[:limit]
	}
	fmt.Fprintln(out, diag.FormatShort(shown, true))
	if extra > 0 {
		fmt.Fprintf(out, "... %d more\n", extra)
	}
}

// printFunctions lists every instance in the graph with its module.
func printFunctions(out io.Writer, g *callgraph.CallGraph, namer program.Namer, withArgs bool) {
	type row struct{ module, name string }
	rows := make([]row, 0, len(g.Nodes()))
	for _, n := range g.Nodes() {
		rows = append(rows, row{module: namer.Module(n.Def), name: namer.DisplayName(n, withArgs)})
	}
	slices.SortFunc(rows, func(a, b row) int {
		if c := strings.Compare(a.module, b.module); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	for _, r := range rows {
		fmt.Fprintf(out, "Module Name: %s, Function Name: %s\n", color.YellowString(r.module), r.name)
	}
}
