package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xizheyin/callgraph4rs/internal/diag"
	"github.com/xizheyin/callgraph4rs/internal/observ"
	"github.com/xizheyin/callgraph4rs/internal/source"
	"github.com/xizheyin/callgraph4rs/internal/trace"
)

// Output file names under the output directory.
const (
	GraphText       = "callgraph.txt"
	GraphJSON       = "callgraph.json"
	CallersText     = "callers.txt"
	CallersJSON     = "callers.json"
	CallersHashText = "callers_by_hash.txt"
	CallersHashJSON = "callers_by_hash.json"
	TimingFile      = "cg_timing.txt"
	SnapshotFile    = "callgraph.mp"
	IRDir           = "ir"
)

// Writer places report files under Dir. Failures are reported as
// diagnostics and never returned. Time spent writing is folded into
// the "write" and "write-ir" phases of Timer.
type Writer struct {
	Dir      string
	Reporter diag.Reporter
	Tracer   trace.Tracer
	Timer    *observ.Timer
}

// Write renders into Dir/name and returns the full path and whether
// the file was written completely.
func (w *Writer) Write(name string, render func(io.Writer) error) (string, bool) {
	return w.write(diag.CGReportWrite, "write", name, render)
}

func (w *Writer) write(code diag.Code, phase, name string, render func(io.Writer) error) (string, bool) {
	path := filepath.Join(w.Dir, name)
	started := time.Now()
	err := writeFile(path, render)
	w.Timer.Record(phase, time.Since(started))
	if err != nil {
		w.fail(code, path, err)
		return path, false
	}
	trace.Point(w.tracer(), trace.ScopeDriver, "write", path)
	return path, true
}

// Fail records an externally produced write failure for path.
func (w *Writer) Fail(code diag.Code, path string, err error) {
	w.fail(code, path, err)
}

func (w *Writer) fail(code diag.Code, path string, err error) {
	if w.Reporter != nil {
		diag.ReportWarning(w.Reporter, code, source.Span{File: path}, fmt.Sprintf("write %s: %v", path, err)).Emit()
	}
	trace.Point(w.tracer(), trace.ScopeDriver, "write-failed", path, "error", err.Error())
}

func (w *Writer) tracer() trace.Tracer {
	if w.Tracer == nil {
		return trace.Nop
	}
	return w.Tracer
}

// WriteIR writes a debug dump for one function under Dir/ir.
func (w *Writer) WriteIR(fnName string, render func(io.Writer) error) (string, bool) {
	return w.write(diag.CGIRDumpWrite, "write-ir", filepath.Join(IRDir, SafeFileName(fnName)+".ir"), render)
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := render(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// SafeFileName replaces characters that are awkward in file names.
func SafeFileName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "*", "_", "(", "", ")", "", " ", "_", "[", "_", "]", "_", ",", "_", ":", "_")
	out := r.Replace(name)
	if out == "" {
		return "_"
	}
	return out
}
