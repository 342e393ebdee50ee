package instance

import (
	"testing"

	"github.com/xizheyin/callgraph4rs/internal/symbols"
	"github.com/xizheyin/callgraph4rs/internal/types"
)

func TestInstanceEqualityIsStructural(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	a1 := in.InternArgs([]types.TypeID{b.Int})
	a2 := in.InternArgs([]types.TypeID{b.Int})
	a3 := in.InternArgs([]types.TypeID{b.String})

	x := Concrete(symbols.DefID(7), a1)
	y := Concrete(symbols.DefID(7), a2)
	z := Concrete(symbols.DefID(7), a3)
	if x != y {
		t.Fatalf("same instantiation must collapse to one value")
	}
	if x == z {
		t.Fatalf("different args must produce different instances")
	}

	seen := map[FunctionInstance]struct{}{x: {}}
	if _, ok := seen[y]; !ok {
		t.Fatalf("instance must be usable as a map key")
	}
}

func TestConcreteAndUnresolvedDiffer(t *testing.T) {
	c := Concrete(symbols.DefID(1), types.NoArgs)
	u := Unresolved(symbols.DefID(1))
	if c == u {
		t.Fatalf("concrete and unresolved variants must differ")
	}
	if !c.IsConcrete() || c.IsUnresolved() {
		t.Fatalf("bad concrete predicates")
	}
	if !u.IsUnresolved() || u.IsConcrete() {
		t.Fatalf("bad unresolved predicates")
	}
	if c.Compare(u) >= 0 {
		t.Fatalf("concrete should sort before unresolved for the same def")
	}
}

func TestZeroInstanceIsInvalid(t *testing.T) {
	var fi FunctionInstance
	if fi.IsValid() {
		t.Fatalf("zero instance must be invalid")
	}
	if fi.String() != "invalid" {
		t.Fatalf("unexpected String(): %q", fi.String())
	}
}
