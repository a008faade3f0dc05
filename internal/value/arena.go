package value

import "errors"

// ErrDangling is returned when a handle outlived the storage it named.
var ErrDangling = errors.New("dangling reference")

// Handle names one arena cell. Gen must match the cell's generation.
// Element handles carry their array and need no cell: they name
// Array.Elems[Index] and live exactly as long as the array does.
type Handle struct {
	Index int
	Gen   uint32
	Array *Array
}

// LocKind says which storage a cell points into.
type LocKind int

const (
	LocGlobal LocKind = iota
	LocStack
	LocElem
)

// Location is a storage slot: a global index, an absolute stack slot or an
// element of a specific array.
type Location struct {
	Kind  LocKind
	Slot  int
	Array *Array
}

type cell struct {
	loc  Location
	gen  uint32
	live bool
}

// Arena owns the cells referenced by stack and global Ref values. Each slot
// has at most one live cell, so repeated refs of the same slot share a
// handle. Cells are indexed by slot; releasing a stack range only visits
// that range.
type Arena struct {
	cells  []cell
	free   []int
	stack  []int // stack slot -> cell index + 1, 0 when none
	global []int // global slot -> cell index + 1
	live   int
}

func NewArena() *Arena {
	return &Arena{}
}

// Reset drops every cell. Handles issued before are invalid afterwards
// because generations keep counting.
func (a *Arena) Reset() {
	a.releaseSlots(a.stack, 0, len(a.stack))
	a.releaseSlots(a.global, 0, len(a.global))
}

// Handle returns the handle for loc, creating a cell on first use.
func (a *Arena) Handle(loc Location) Handle {
	if loc.Kind == LocElem {
		return Handle{Index: loc.Slot, Array: loc.Array}
	}
	slot := a.slot(loc)
	if *slot != 0 {
		i := *slot - 1
		return Handle{Index: i, Gen: a.cells[i].gen}
	}
	var i int
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.cells = append(a.cells, cell{})
		i = len(a.cells) - 1
	}
	a.cells[i].loc = loc
	a.cells[i].live = true
	*slot = i + 1
	a.live++
	return Handle{Index: i, Gen: a.cells[i].gen}
}

// slot returns the index entry for a stack or global location, growing the
// index as needed.
func (a *Arena) slot(loc Location) *int {
	idx := &a.stack
	if loc.Kind == LocGlobal {
		idx = &a.global
	}
	if loc.Slot >= len(*idx) {
		grown := make([]int, loc.Slot+1, 2*(loc.Slot+1))
		copy(grown, *idx)
		*idx = grown
	}
	return &(*idx)[loc.Slot]
}

// Resolve returns the location named by h.
func (a *Arena) Resolve(h Handle) (Location, error) {
	if h.Array != nil {
		return Location{Kind: LocElem, Slot: h.Index, Array: h.Array}, nil
	}
	if h.Index < 0 || h.Index >= len(a.cells) {
		return Location{}, ErrDangling
	}
	c := a.cells[h.Index]
	if !c.live || c.gen != h.Gen {
		return Location{}, ErrDangling
	}
	return c.loc, nil
}

// ReleaseStack frees every cell that names a stack slot at or above from.
func (a *Arena) ReleaseStack(from int) {
	a.ReleaseStackRange(from, len(a.stack))
}

// ReleaseStackRange frees cells naming stack slots in [from, to).
func (a *Arena) ReleaseStackRange(from, to int) {
	a.releaseSlots(a.stack, from, to)
}

// Live reports the number of live cells. Element handles are not counted.
func (a *Arena) Live() int {
	return a.live
}

func (a *Arena) releaseSlots(idx []int, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(idx) {
		to = len(idx)
	}
	for s := from; s < to; s++ {
		if idx[s] == 0 {
			continue
		}
		a.release(idx[s] - 1)
		idx[s] = 0
	}
}

func (a *Arena) release(i int) {
	c := &a.cells[i]
	c.live = false
	c.gen++
	c.loc = Location{}
	a.free = append(a.free, i)
	a.live--
}
