// Package report renders call graphs and caller query results as text
// and JSON.
package report

import (
	"bufio"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/program"
)

// Options controls naming and styling shared by all renderers.
type Options struct {
	// WithArgs appends generic arguments to instance names.
	WithArgs bool
	// Color styles text output with ANSI escapes. JSON is never colored.
	Color bool
}

type palette struct {
	caller *color.Color
	callee *color.Color
	depth  *color.Color
	header *color.Color
}

func newPalette(on bool) palette {
	p := palette{
		caller: color.New(color.Bold),
		callee: color.New(color.FgCyan),
		depth:  color.New(color.FgYellow),
		header: color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.caller, p.callee, p.depth, p.header} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

type group struct {
	caller instance.FunctionInstance
	name   string
	edges  []callgraph.Edge
}

// groups collects edges per caller, callers sorted by report name and
// edges by (callee name, depth).
func groups(g *callgraph.CallGraph, namer program.Namer, opts Options) []group {
	names := make(map[instance.FunctionInstance]string)
	name := func(fi instance.FunctionInstance) string {
		if s, ok := names[fi]; ok {
			return s
		}
		s := program.ReportName(namer, fi, opts.WithArgs)
		names[fi] = s
		return s
	}

	index := make(map[instance.FunctionInstance]int)
	var out []group
	for _, e := range g.Edges() {
		i, ok := index[e.Caller]
		if !ok {
			i = len(out)
			index[e.Caller] = i
			out = append(out, group{caller: e.Caller, name: name(e.Caller)})
		}
		out[i].edges = append(out[i].edges, e)
	}
	slices.SortStableFunc(out, func(a, b group) int {
		if c := cmp.Compare(a.name, b.name); c != 0 {
			return c
		}
		return a.caller.Compare(b.caller)
	})
	for i := range out {
		slices.SortStableFunc(out[i].edges, func(a, b callgraph.Edge) int {
			if c := cmp.Compare(name(a.Callee), name(b.Callee)); c != 0 {
				return c
			}
			return cmp.Compare(a.ConstraintDepth, b.ConstraintDepth)
		})
	}
	return out
}

// WriteGraphText writes the grouped caller listing.
func WriteGraphText(w io.Writer, g *callgraph.CallGraph, namer program.Namer, opts Options) error {
	bw := bufio.NewWriter(w)
	pal := newPalette(opts.Color)
	pal.header.Fprint(bw, "Call Graph:\n===========\n\n")
	for _, grp := range groups(g, namer, opts) {
		fmt.Fprintf(bw, "Function: %s\n", pal.caller.Sprint(grp.name))
		for _, e := range grp.edges {
			fmt.Fprintf(bw, "  -> %s [constraint: %s]\n",
				pal.callee.Sprint(program.ReportName(namer, e.Callee, opts.WithArgs)),
				pal.depth.Sprint(e.ConstraintDepth))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

type fnRecord struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Path            string `json:"path"`
	ConstraintDepth int    `json:"constraint_depth"`
	PathHash        string `json:"path_hash"`
}

type graphEntry struct {
	Caller fnRecord   `json:"caller"`
	Callee []fnRecord `json:"callee"`
}

func record(namer program.Namer, fi instance.FunctionInstance, opts Options, depth int) fnRecord {
	return fnRecord{
		Name:            program.ReportName(namer, fi, opts.WithArgs),
		Version:         namer.Version(fi.Def),
		Path:            namer.DefPath(fi.Def),
		ConstraintDepth: depth,
		PathHash:        namer.StableHash(fi.Def),
	}
}

// WriteGraphJSON writes one entry per caller. The caller's
// constraint_depth is the maximum over its edges.
func WriteGraphJSON(w io.Writer, g *callgraph.CallGraph, namer program.Namer, opts Options) error {
	grps := groups(g, namer, opts)
	entries := make([]graphEntry, 0, len(grps))
	for _, grp := range grps {
		maxDepth := 0
		callees := make([]fnRecord, 0, len(grp.edges))
		for _, e := range grp.edges {
			maxDepth = max(maxDepth, e.ConstraintDepth)
			callees = append(callees, record(namer, e.Callee, opts, e.ConstraintDepth))
		}
		entries = append(entries, graphEntry{
			Caller: record(namer, grp.caller, opts, maxDepth),
			Callee: callees,
		})
	}
	return writeJSON(w, entries)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
