package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/query"
)

// WriteCallersText writes the caller listing for target. infos must be
// in query output order.
func WriteCallersText(w io.Writer, target query.Target, infos []query.PathInfo, namer program.Namer, opts Options) error {
	bw := bufio.NewWriter(w)
	pal := newPalette(opts.Color)
	pal.header.Fprintf(bw, "Callers of functions matching '%s':\n", target.Label())
	pal.header.Fprint(bw, strings.Repeat("=", 34)+"\n\n")
	for _, p := range infos {
		fmt.Fprintf(bw, "- %s [constraint: %s, crossings: %d]\n",
			pal.caller.Sprint(program.ReportName(namer, p.Caller, opts.WithArgs)),
			pal.depth.Sprint(p.Constraints), p.Crossings)
	}
	fmt.Fprintf(bw, "\nTotal: %d callers found\n", len(infos))
	return bw.Flush()
}

type callerRecord struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Path            string `json:"path"`
	PathHash        string `json:"path_hash"`
	ConstraintDepth int    `json:"constraint_depth"`
	ModuleCrossings int    `json:"module_crossings"`
}

type callersDoc struct {
	Target       string         `json:"target"`
	TotalCallers int            `json:"total_callers"`
	Callers      []callerRecord `json:"callers"`
}

// WriteCallersJSON writes the caller listing as a single JSON object.
func WriteCallersJSON(w io.Writer, target query.Target, infos []query.PathInfo, namer program.Namer, opts Options) error {
	return writeJSON(w, newCallersDoc(target, infos, namer, opts))
}

func newCallersDoc(target query.Target, infos []query.PathInfo, namer program.Namer, opts Options) callersDoc {
	doc := callersDoc{
		Target:       target.Label(),
		TotalCallers: len(infos),
		Callers:      make([]callerRecord, 0, len(infos)),
	}
	for _, p := range infos {
		doc.Callers = append(doc.Callers, callerRecord{
			Name:            program.ReportName(namer, p.Caller, opts.WithArgs),
			Version:         namer.Version(p.Caller.Def),
			Path:            namer.DefPath(p.Caller.Def),
			PathHash:        namer.StableHash(p.Caller.Def),
			ConstraintDepth: p.Constraints,
			ModuleCrossings: p.Crossings,
		})
	}
	return doc
}

// CallerSection is the result of one target of a caller request.
type CallerSection struct {
	Target  query.Target
	Callers []query.PathInfo
	Found   bool // some instance matched Target
}

// WriteCallerSectionsText writes one caller listing per section,
// separated by a blank line.
func WriteCallerSectionsText(w io.Writer, sections []CallerSection, namer program.Namer, opts Options) error {
	for i, sec := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := WriteCallersText(w, sec.Target, sec.Callers, namer, opts); err != nil {
			return err
		}
	}
	return nil
}

// WriteCallerSectionsJSON writes the object of WriteCallersJSON for a
// single section and an array of such objects for several.
func WriteCallerSectionsJSON(w io.Writer, sections []CallerSection, namer program.Namer, opts Options) error {
	if len(sections) == 1 {
		return WriteCallersJSON(w, sections[0].Target, sections[0].Callers, namer, opts)
	}
	docs := make([]callersDoc, 0, len(sections))
	for _, sec := range sections {
		docs = append(docs, newCallersDoc(sec.Target, sec.Callers, namer, opts))
	}
	return writeJSON(w, docs)
}
