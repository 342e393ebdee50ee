package report_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/observ"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/query"
	"github.com/xizheyin/callgraph4rs/internal/report"
)

type fixture struct {
	prog      *program.Program
	main, zed instance.FunctionInstance
	idInt     instance.FunctionInstance
	g         *callgraph.CallGraph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := program.NewBuilder()
	tys := b.Types()
	mainDef := b.Fn("app", "app.main", 0)
	zedDef := b.Fn("app", "app.zed", 0)
	idDef := b.Fn("lib-1.2.0", "lib.identity", 1)
	f := &fixture{
		main:  b.Instance(mainDef),
		zed:   b.Instance(zedDef),
		idInt: b.Instance(idDef, tys.Builtins().Int),
	}
	p, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f.prog = p
	f.g = callgraph.FromParts(nil, []callgraph.Edge{
		{Caller: f.zed, Callee: f.main, ConstraintDepth: 0, SameModule: true},
		{Caller: f.main, Callee: f.zed, ConstraintDepth: 2, SameModule: true},
		{Caller: f.main, Callee: f.idInt, ConstraintDepth: 1},
		{Caller: f.main, Callee: f.zed, ConstraintDepth: 1, SameModule: true},
	})
	return f
}

func (f *fixture) hash(fi instance.FunctionInstance) string {
	return f.prog.StableHash(fi.Def)
}

func TestGraphText(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	if err := report.WriteGraphText(&buf, f.g, f.prog, report.Options{WithArgs: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "Call Graph:\n===========\n\n" +
		"Function: app.main [" + f.hash(f.main) + "]\n" +
		"  -> app.zed [" + f.hash(f.zed) + "] [constraint: 1]\n" +
		"  -> app.zed [" + f.hash(f.zed) + "] [constraint: 2]\n" +
		"  -> lib.identity[int] [" + f.hash(f.idInt) + "] [constraint: 1]\n" +
		"\n" +
		"Function: app.zed [" + f.hash(f.zed) + "]\n" +
		"  -> app.main [" + f.hash(f.main) + "] [constraint: 0]\n" +
		"\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected text report:\n%s\nwant:\n%s", got, want)
	}
}

func TestGraphTextWithoutArgs(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	if err := report.WriteGraphText(&buf, f.g, f.prog, report.Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.Contains(buf.String(), "[int]") {
		t.Fatalf("generic args leaked: %s", buf.String())
	}
}

func TestGraphTextColor(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	if err := report.WriteGraphText(&buf, f.g, f.prog, report.Options{Color: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes in colored output")
	}
}

func TestGraphJSON(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	if err := report.WriteGraphJSON(&buf, f.g, f.prog, report.Options{WithArgs: true, Color: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var entries []struct {
		Caller struct {
			Name            string `json:"name"`
			Version         string `json:"version"`
			Path            string `json:"path"`
			ConstraintDepth int    `json:"constraint_depth"`
			PathHash        string `json:"path_hash"`
		} `json:"caller"`
		Callee []struct {
			Name            string `json:"name"`
			Version         string `json:"version"`
			ConstraintDepth int    `json:"constraint_depth"`
		} `json:"callee"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	mainEntry := entries[0]
	if mainEntry.Caller.Path != "app.main" || mainEntry.Caller.ConstraintDepth != 2 || mainEntry.Caller.PathHash != f.hash(f.main) {
		t.Fatalf("unexpected caller record %+v", mainEntry.Caller)
	}
	if len(mainEntry.Callee) != 3 || mainEntry.Callee[2].Version != "1.2.0" {
		t.Fatalf("unexpected callees %+v", mainEntry.Callee)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("json must not be colored")
	}
}

func TestCallersText(t *testing.T) {
	f := newFixture(t)
	infos := []query.PathInfo{
		{Caller: f.main, Name: "app.main", Constraints: 1, Crossings: 1},
		{Caller: f.zed, Name: "app.zed", Constraints: 2},
	}
	var buf bytes.Buffer
	target := query.Target{Kind: query.ByPath, Value: "identity"}
	if err := report.WriteCallersText(&buf, target, infos, f.prog, report.Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "Callers of functions matching 'identity':\n" +
		"==================================\n\n" +
		"- app.main [" + f.hash(f.main) + "] [constraint: 1, crossings: 1]\n" +
		"- app.zed [" + f.hash(f.zed) + "] [constraint: 2, crossings: 0]\n" +
		"\nTotal: 2 callers found\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected callers report:\n%s\nwant:\n%s", got, want)
	}
}

func TestCallersJSONByHash(t *testing.T) {
	f := newFixture(t)
	infos := []query.PathInfo{{Caller: f.main, Name: "app.main", Constraints: 3, Crossings: 2}}
	var buf bytes.Buffer
	target := query.Target{Kind: query.ByHash, Value: "abc"}
	if err := report.WriteCallersJSON(&buf, target, infos, f.prog, report.Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var doc struct {
		Target       string `json:"target"`
		TotalCallers int    `json:"total_callers"`
		Callers      []struct {
			Path            string `json:"path"`
			ConstraintDepth int    `json:"constraint_depth"`
			ModuleCrossings int    `json:"module_crossings"`
		} `json:"callers"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Target != "function with hash: abc" || doc.TotalCallers != 1 {
		t.Fatalf("unexpected header %+v", doc)
	}
	if c := doc.Callers[0]; c.Path != "app.main" || c.ConstraintDepth != 3 || c.ModuleCrossings != 2 {
		t.Fatalf("unexpected caller %+v", c)
	}
}

func TestCallerSections(t *testing.T) {
	f := newFixture(t)
	sections := []report.CallerSection{
		{Target: query.Target{Value: "identity"}, Callers: []query.PathInfo{{Caller: f.main, Name: "app.main"}}, Found: true},
		{Target: query.Target{Value: "missing"}},
	}

	var text bytes.Buffer
	if err := report.WriteCallerSectionsText(&text, sections, f.prog, report.Options{}); err != nil {
		t.Fatalf("write text: %v", err)
	}
	got := text.String()
	first := strings.Index(got, "Callers of functions matching 'identity':")
	second := strings.Index(got, "\nCallers of functions matching 'missing':")
	if first != 0 || second < 0 || !strings.Contains(got, "Total: 0 callers found\n") {
		t.Fatalf("unexpected sections:\n%s", got)
	}

	var js bytes.Buffer
	if err := report.WriteCallerSectionsJSON(&js, sections, f.prog, report.Options{}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	var docs []struct {
		Target       string `json:"target"`
		TotalCallers int    `json:"total_callers"`
	}
	if err := json.Unmarshal(js.Bytes(), &docs); err != nil {
		t.Fatalf("decode: %v\n%s", err, js.String())
	}
	if len(docs) != 2 || docs[0].Target != "identity" || docs[0].TotalCallers != 1 || docs[1].Target != "missing" {
		t.Fatalf("unexpected docs %+v", docs)
	}

	js.Reset()
	if err := report.WriteCallerSectionsJSON(&js, sections[:1], f.prog, report.Options{}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.HasPrefix(js.String(), "{") {
		t.Fatalf("single section should be an object: %s", js.String())
	}
}

func TestEmptyCallersJSONHasArray(t *testing.T) {
	var buf bytes.Buffer
	p, err := program.NewBuilder().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := report.WriteCallersJSON(&buf, query.Target{Value: "x"}, nil, p, report.Options{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `"callers": []`) {
		t.Fatalf("expected empty array, got %s", buf.String())
	}
}

func TestWriterCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	bag := diag.NewBag(0)
	timer := observ.NewTimer()
	w := &report.Writer{Dir: filepath.Join(dir, "out"), Reporter: diag.BagReporter{Bag: bag}, Timer: timer}
	path, ok := w.Write(report.GraphText, func(out io.Writer) error {
		_, err := io.WriteString(out, "hello\n")
		return err
	})
	if !ok {
		t.Fatalf("write failed: %s", diag.FormatShort(bag.Items(), false))
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello\n" {
		t.Fatalf("unexpected file content %q (%v)", data, err)
	}
	irPath, ok := w.WriteIR("(*pkg.T).M[int]", func(out io.Writer) error { return nil })
	if !ok || filepath.Base(irPath) != "_pkg.T.M_int_.ir" {
		t.Fatalf("unexpected ir path %s", irPath)
	}
	phases := timer.Report().Phases
	if len(phases) != 2 || phases[0].Name != "write" || phases[1].Name != "write-ir" {
		t.Fatalf("unexpected write phases: %+v", phases)
	}
}

func TestWriterFailureIsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(0)
	w := &report.Writer{Dir: blocker, Reporter: diag.BagReporter{Bag: bag}}
	if _, ok := w.Write(report.GraphJSON, func(io.Writer) error { return nil }); ok {
		t.Fatalf("expected failure when output dir is a file")
	}
	if bag.CountByCode()[diag.CGReportWrite] != 1 {
		t.Fatalf("expected report-write diagnostic, got %s", diag.FormatShort(bag.Items(), false))
	}
	if bag.HasErrors() {
		t.Fatalf("write failures must not be errors")
	}
}

func TestSafeFileNameKeepsReceiverKind(t *testing.T) {
	ptr := report.SafeFileName("(*pkg.T).M")
	val := report.SafeFileName("(pkg.T).M")
	if ptr == val {
		t.Fatalf("pointer and value receivers share file name %q", ptr)
	}
	if ptr != "_pkg.T.M" || val != "pkg.T.M" {
		t.Fatalf("unexpected names %q, %q", ptr, val)
	}
}
