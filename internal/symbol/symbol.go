// Package symbol maps source names to storage during compilation.
package symbol

import (
	"errors"
	"fmt"
)

type Scope int

const (
	Global Scope = iota
	Local
	Builtin
)

func (s Scope) String() string {
	switch s {
	case Global:
		return "global"
	case Local:
		return "local"
	case Builtin:
		return "builtin"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

const (
	MaxLocals  = 256
	MaxGlobals = 1024
)

var (
	ErrDuplicate      = errors.New("duplicate definition")
	ErrTooManySymbols = errors.New("too many symbols")
)

// Symbol is a resolved name.
type Symbol struct {
	Name                string
	Scope               Scope
	Index               int
	Depth               int
	IsUpvalue           bool
	IsStructConstructor bool
}

// frame is the slot counter shared by a function scope and its blocks.
// Blocks hand their slots back on Close so siblings reuse them; max is the
// high-water mark the frame has to reserve.
type frame struct {
	next int
	max  int
}

// Table is one lexical scope.
type Table struct {
	Outer *Table

	store      map[string]Symbol
	depth      int
	frame      *frame // nil for the global scope
	base       int    // frame.next when a block scope was opened
	globals    int
	maxGlobals int
	main       *frame // locals of top-level blocks
}

// NewTable returns a global scope.
func NewTable() *Table {
	return NewTableWithLimit(MaxGlobals)
}

// NewTableWithLimit returns a global scope holding at most max globals.
func NewTableWithLimit(max int) *Table {
	if max <= 0 {
		max = MaxGlobals
	}
	return &Table{
		store:      make(map[string]Symbol),
		maxGlobals: max,
		main:       &frame{},
	}
}

// NewFunctionTable opens a function scope one level deeper than outer.
func NewFunctionTable(outer *Table) *Table {
	return &Table{
		Outer: outer,
		store: make(map[string]Symbol),
		depth: outer.depth + 1,
		frame: &frame{},
	}
}

// NewBlockTable opens a block scope inside the function owning outer.
// Top-level blocks allocate from the main frame.
func NewBlockTable(outer *Table) *Table {
	f := outer.frame
	if f == nil {
		f = outer.global().main
	}
	return &Table{
		Outer: outer,
		store: make(map[string]Symbol),
		depth: outer.depth,
		frame: f,
		base:  f.next,
	}
}

func (t *Table) global() *Table {
	for t.Outer != nil {
		t = t.Outer
	}
	return t
}

// Depth is the function nesting level of this scope.
func (t *Table) Depth() int {
	return t.depth
}

// IsGlobal reports whether t is the outermost scope.
func (t *Table) IsGlobal() bool {
	return t.Outer == nil
}

// Define adds name to this scope.
func (t *Table) Define(name string, isStructConstructor bool) (Symbol, error) {
	if _, ok := t.store[name]; ok {
		return Symbol{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	sym := Symbol{
		Name:                name,
		Depth:               t.depth,
		IsStructConstructor: isStructConstructor,
	}
	if t.Outer == nil {
		if t.globals >= t.maxGlobals {
			return Symbol{}, fmt.Errorf("%w: more than %d globals", ErrTooManySymbols, t.maxGlobals)
		}
		sym.Scope = Global
		sym.Index = t.globals
		t.globals++
	} else {
		if t.frame.next >= MaxLocals {
			return Symbol{}, fmt.Errorf("%w: more than %d locals", ErrTooManySymbols, MaxLocals)
		}
		sym.Scope = Local
		sym.Index = t.frame.next
		t.frame.next++
		if t.frame.next > t.frame.max {
			t.frame.max = t.frame.next
		}
	}
	t.store[name] = sym
	return sym, nil
}

// DefineBuiltin records name as a builtin in this scope. Defining the same
// builtin twice returns the existing symbol.
func (t *Table) DefineBuiltin(name string) Symbol {
	if sym, ok := t.store[name]; ok && sym.Scope == Builtin {
		return sym
	}
	sym := Symbol{Name: name, Scope: Builtin, Index: -1, Depth: t.depth}
	t.store[name] = sym
	return sym
}

// Resolve looks name up in this scope and then outward. Locals found in an
// enclosing scope are memoized here marked as upvalues.
func (t *Table) Resolve(name string) (Symbol, bool) {
	if sym, ok := t.store[name]; ok {
		return sym, true
	}
	if t.Outer == nil {
		return Symbol{}, false
	}
	sym, ok := t.Outer.Resolve(name)
	if !ok {
		return sym, false
	}
	if sym.Scope == Global || sym.Scope == Builtin {
		return sym, true
	}
	sym.IsUpvalue = true
	t.store[name] = sym
	return sym, true
}

// NumSlots is the high-water slot count of the frame owning this scope.
func (t *Table) NumSlots() int {
	if t.frame == nil {
		return t.main.max
	}
	return t.frame.max
}

// NumGlobals is the number of globals defined so far.
func (t *Table) NumGlobals() int {
	return t.global().globals
}

// Close ends a block scope and returns its first slot and the number of
// slots it defined itself. The slots become free for sibling blocks.
func (t *Table) Close() (base, count int) {
	if t.frame == nil {
		return 0, 0
	}
	count = 0
	for _, sym := range t.store {
		if sym.Scope == Local && !sym.IsUpvalue {
			count++
		}
	}
	t.frame.next = t.base
	return t.base, count
}
