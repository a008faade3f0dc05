package symbol_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"computeduck/internal/symbol"
)

func mustDefine(t *testing.T, tbl *symbol.Table, name string) symbol.Symbol {
	t.Helper()
	sym, err := tbl.Define(name, false)
	if err != nil {
		t.Fatalf("define %s: %v", name, err)
	}
	return sym
}

func TestDefineGlobalAndLocal(t *testing.T) {
	global := symbol.NewTable()
	a := mustDefine(t, global, "a")
	b := mustDefine(t, global, "b")

	fn := symbol.NewFunctionTable(global)
	c := mustDefine(t, fn, "c")

	want := []symbol.Symbol{
		{Name: "a", Scope: symbol.Global, Index: 0},
		{Name: "b", Scope: symbol.Global, Index: 1},
		{Name: "c", Scope: symbol.Local, Index: 0, Depth: 1},
	}
	if diff := cmp.Diff(want, []symbol.Symbol{a, b, c}); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateDefinition(t *testing.T) {
	global := symbol.NewTable()
	mustDefine(t, global, "x")
	if _, err := global.Define("x", false); !errors.Is(err, symbol.ErrDuplicate) {
		t.Fatalf("expected duplicate definition error, got %v", err)
	}

	// shadowing in an inner scope is fine
	block := symbol.NewBlockTable(global)
	if _, err := block.Define("x", false); err != nil {
		t.Fatalf("unexpected error shadowing x: %v", err)
	}
}

func TestDefineBuiltinIsIdempotent(t *testing.T) {
	global := symbol.NewTable()
	first := global.DefineBuiltin("println")
	second := global.DefineBuiltin("println")
	if first != second {
		t.Fatalf("expected identical symbols, got %+v and %+v", first, second)
	}
	if first.Scope != symbol.Builtin {
		t.Errorf("expected builtin scope, got %v", first.Scope)
	}
	if global.NumGlobals() != 0 {
		t.Errorf("builtins must not take global slots")
	}
}

func TestResolveMarksUpvalues(t *testing.T) {
	global := symbol.NewTable()
	mustDefine(t, global, "g")

	outer := symbol.NewFunctionTable(global)
	mustDefine(t, outer, "x")

	middle := symbol.NewFunctionTable(outer)
	inner := symbol.NewFunctionTable(middle)

	sym, ok := inner.Resolve("x")
	if !ok {
		t.Fatalf("x not resolved")
	}
	want := symbol.Symbol{Name: "x", Scope: symbol.Local, Index: 0, Depth: 1, IsUpvalue: true}
	if diff := cmp.Diff(want, sym); diff != "" {
		t.Errorf("upvalue mismatch (-want +got):\n%s", diff)
	}

	// globals come back untouched
	g, ok := inner.Resolve("g")
	if !ok || g.IsUpvalue || g.Scope != symbol.Global {
		t.Errorf("unexpected global resolution %+v", g)
	}

	// the memoized copy shadows a later definition attempt
	if _, err := inner.Define("x", false); !errors.Is(err, symbol.ErrDuplicate) {
		t.Errorf("expected memoized upvalue to count as defined, got %v", err)
	}

	if _, ok := inner.Resolve("missing"); ok {
		t.Errorf("expected missing name to fail")
	}
}

func TestBlockSlotsReuseAndHighWater(t *testing.T) {
	global := symbol.NewTable()
	fn := symbol.NewFunctionTable(global)
	mustDefine(t, fn, "p")

	b1 := symbol.NewBlockTable(fn)
	x := mustDefine(t, b1, "x")
	mustDefine(t, b1, "y")
	base, count := b1.Close()
	if base != 1 || count != 2 {
		t.Fatalf("first block: base=%d count=%d", base, count)
	}

	b2 := symbol.NewBlockTable(fn)
	z := mustDefine(t, b2, "z")
	if z.Index != x.Index {
		t.Errorf("expected sibling block to reuse slot %d, got %d", x.Index, z.Index)
	}
	if z.Depth != 1 {
		t.Errorf("block locals keep the function depth, got %d", z.Depth)
	}
	b2.Close()

	if got := fn.NumSlots(); got != 3 {
		t.Errorf("expected high-water of 3 slots, got %d", got)
	}
}

func TestTopLevelBlocksUseMainFrame(t *testing.T) {
	global := symbol.NewTable()
	block := symbol.NewBlockTable(global)
	sym := mustDefine(t, block, "tmp")
	if sym.Scope != symbol.Local || sym.Depth != 0 {
		t.Fatalf("unexpected top-level block symbol %+v", sym)
	}
	block.Close()
	if global.NumSlots() != 1 {
		t.Errorf("expected main frame to reserve 1 slot, got %d", global.NumSlots())
	}
}

func TestTooManySymbols(t *testing.T) {
	global := symbol.NewTableWithLimit(4)
	for i := 0; i < 4; i++ {
		mustDefine(t, global, fmt.Sprintf("g%d", i))
	}
	if _, err := global.Define("overflow", false); !errors.Is(err, symbol.ErrTooManySymbols) {
		t.Fatalf("expected too many globals, got %v", err)
	}

	fn := symbol.NewFunctionTable(global)
	for i := 0; i < symbol.MaxLocals; i++ {
		mustDefine(t, fn, fmt.Sprintf("l%d", i))
	}
	if _, err := fn.Define("overflow", false); !errors.Is(err, symbol.ErrTooManySymbols) {
		t.Fatalf("expected too many locals, got %v", err)
	}
}
