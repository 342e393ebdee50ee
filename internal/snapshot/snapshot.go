// Package snapshot persists a built call graph so queries can run
// without rebuilding it.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/xizheyin/callgraph4rs/internal/callgraph"
	"github.com/xizheyin/callgraph4rs/internal/instance"
	"github.com/xizheyin/callgraph4rs/internal/program"
	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

// Current schema version - increment when the Snapshot layout changes.
const SchemaVersion uint16 = 1

// ErrSchema is returned by Load for files written by another layout.
var ErrSchema = errors.New("snapshot: schema version mismatch")

// Def is one definition; its position in Snapshot.Defs plus one is its ID.
type Def struct {
	Path    string
	Module  string
	Version string
	Hash    string
}

// Inst is one function instance. Args numbers distinct argument lists
// within the snapshot; 0 means none.
type Inst struct {
	Def        uint32
	Args       uint32
	Unresolved bool
	Name       string // display name with generic arguments
	BaseName   string // display name without them
}

// Edge references instances by index into Snapshot.Insts.
type Edge struct {
	Caller     uint32
	Callee     uint32
	Depth      int
	SameModule bool
	Block      int32
	File       string
	Line       uint32
	Col        uint32
	Seq        int
}

type Snapshot struct {
	Schema  uint16
	RunID   string
	Created int64 // unix seconds
	Defs    []Def
	Insts   []Inst
	Nodes   []uint32
	Edges   []Edge
}

type encoder struct {
	snap  *Snapshot
	namer program.Namer
	defs  map[symbols.DefID]uint32
	args  map[types.ArgsID]uint32
	insts map[instance.FunctionInstance]uint32
}

func index(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("snapshot: index overflow: %w", err))
	}
	return v
}

func (e *encoder) def(id symbols.DefID) uint32 {
	if i, ok := e.defs[id]; ok {
		return i
	}
	e.snap.Defs = append(e.snap.Defs, Def{
		Path:    e.namer.DefPath(id),
		Module:  e.namer.Module(id),
		Version: e.namer.Version(id),
		Hash:    e.namer.StableHash(id),
	})
	i := index(len(e.snap.Defs))
	e.defs[id] = i
	return i
}

func (e *encoder) argsOf(a types.ArgsID) uint32 {
	if a == types.NoArgs {
		return 0
	}
	if i, ok := e.args[a]; ok {
		return i
	}
	i := index(len(e.args) + 1)
	e.args[a] = i
	return i
}

func (e *encoder) inst(fi instance.FunctionInstance) uint32 {
	if i, ok := e.insts[fi]; ok {
		return i
	}
	i := index(len(e.snap.Insts))
	e.snap.Insts = append(e.snap.Insts, Inst{
		Def:        e.def(fi.Def),
		Args:       e.argsOf(fi.Args),
		Unresolved: fi.IsUnresolved(),
		Name:       e.namer.DisplayName(fi, true),
		BaseName:   e.namer.DisplayName(fi, false),
	})
	e.insts[fi] = i
	return i
}

// FromGraph captures g with names resolved through namer. An empty
// runID gets a fresh UUID.
func FromGraph(g *callgraph.CallGraph, namer program.Namer, runID string) *Snapshot {
	if runID == "" {
		runID = uuid.NewString()
	}
	e := &encoder{
		snap: &Snapshot{
			Schema:  SchemaVersion,
			RunID:   runID,
			Created: time.Now().Unix(),
		},
		namer: namer,
		defs:  make(map[symbols.DefID]uint32),
		args:  make(map[types.ArgsID]uint32),
		insts: make(map[instance.FunctionInstance]uint32),
	}
	for _, n := range g.Nodes() {
		e.snap.Nodes = append(e.snap.Nodes, e.inst(n))
	}
	for _, edge := range g.Edges() {
		e.snap.Edges = append(e.snap.Edges, Edge{
			Caller:     e.inst(edge.Caller),
			Callee:     e.inst(edge.Callee),
			Depth:      edge.ConstraintDepth,
			SameModule: edge.SameModule,
			Block:      int32(edge.Block),
			File:       edge.Span.File,
			Line:       edge.Span.Line,
			Col:        edge.Span.Col,
			Seq:        edge.Seq,
		})
	}
	return e.snap
}

// Save writes s to path through a temporary file and an atomic rename.
func (s *Snapshot) Save(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*.mp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()
	if err = msgpack.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, path)
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var s Snapshot
	if err := msgpack.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if s.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: %s has %d, want %d", ErrSchema, path, s.Schema, SchemaVersion)
	}
	return &s, nil
}
