package value_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"computeduck/internal/value"
)

func stackLoc(slot int) value.Location {
	return value.Location{Kind: value.LocStack, Slot: slot}
}

func globalLoc(slot int) value.Location {
	return value.Location{Kind: value.LocGlobal, Slot: slot}
}

func TestHandleReuse(t *testing.T) {
	a := value.NewArena()
	first := a.Handle(stackLoc(3))
	second := a.Handle(stackLoc(3))
	if first != second {
		t.Errorf("same slot gave handles %+v and %+v", first, second)
	}
	if other := a.Handle(globalLoc(3)); other == first {
		t.Errorf("global slot 3 shares the handle of stack slot 3")
	}
	if n := a.Live(); n != 2 {
		t.Errorf("Live = %d, want 2", n)
	}
}

func TestReleaseBumpsGeneration(t *testing.T) {
	a := value.NewArena()
	old := a.Handle(stackLoc(5))
	a.ReleaseStack(0)

	if _, err := a.Resolve(old); !errors.Is(err, value.ErrDangling) {
		t.Fatalf("Resolve after release: %v, want ErrDangling", err)
	}
	fresh := a.Handle(stackLoc(5))
	if fresh.Index != old.Index {
		t.Errorf("freed cell %d not reused, got %d", old.Index, fresh.Index)
	}
	if fresh.Gen == old.Gen {
		t.Errorf("generation not bumped: %d", fresh.Gen)
	}
	if _, err := a.Resolve(old); !errors.Is(err, value.ErrDangling) {
		t.Errorf("stale handle resolves after its cell was reused")
	}
	loc, err := a.Resolve(fresh)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(stackLoc(5), loc); diff != "" {
		t.Errorf("location mismatch (-want +got):\n%s", diff)
	}
}

func TestReleaseStackRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		dangling []int
	}{
		{"middle slot", 4, 5, []int{4}},
		{"empty range", 4, 4, nil},
		{"tail", 4, 100, []int{4, 5}},
		{"everything, clamped", -1, 1 << 20, []int{3, 4, 5}},
		{"past the index", 10, 20, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := value.NewArena()
			handles := map[int]value.Handle{}
			for _, s := range []int{3, 4, 5} {
				handles[s] = a.Handle(stackLoc(s))
			}
			g := a.Handle(globalLoc(4))

			a.ReleaseStackRange(tt.from, tt.to)

			var got []int
			for _, s := range []int{3, 4, 5} {
				if _, err := a.Resolve(handles[s]); err != nil {
					got = append(got, s)
				}
			}
			if diff := cmp.Diff(tt.dangling, got); diff != "" {
				t.Errorf("dangling slots mismatch (-want +got):\n%s", diff)
			}
			if _, err := a.Resolve(g); err != nil {
				t.Errorf("global cell released by a stack release: %v", err)
			}
			if want := 4 - len(tt.dangling); a.Live() != want {
				t.Errorf("Live = %d, want %d", a.Live(), want)
			}
		})
	}
}

func TestElementHandlesNeedNoCell(t *testing.T) {
	a := value.NewArena()
	arr := value.NewArray([]value.Value{value.Number(1), value.Number(2)})
	loc := value.Location{Kind: value.LocElem, Slot: 1, Array: arr.Arr}

	h := a.Handle(loc)
	if h != a.Handle(loc) {
		t.Errorf("element handles for the same slot differ")
	}
	if n := a.Live(); n != 0 {
		t.Errorf("Live = %d, want 0 for element handles", n)
	}
	a.Reset()
	got, err := a.Resolve(h)
	if err != nil {
		t.Fatalf("element handle dangles after Reset: %v", err)
	}
	if got.Array != arr.Arr || got.Slot != 1 {
		t.Errorf("Resolve = %+v", got)
	}
}

func TestResetInvalidatesCells(t *testing.T) {
	a := value.NewArena()
	s := a.Handle(stackLoc(1))
	g := a.Handle(globalLoc(0))
	a.Reset()
	for _, h := range []value.Handle{s, g} {
		if _, err := a.Resolve(h); !errors.Is(err, value.ErrDangling) {
			t.Errorf("Resolve(%+v) after Reset: %v", h, err)
		}
	}
	if n := a.Live(); n != 0 {
		t.Errorf("Live = %d after Reset", n)
	}
	if _, err := a.Resolve(value.Handle{Index: 99}); !errors.Is(err, value.ErrDangling) {
		t.Errorf("unknown cell resolves: %v", err)
	}
}
