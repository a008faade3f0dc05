package vm

import (
	"computeduck/internal/value"
)

// maxRefHops bounds reference chains; longer chains are cycles.
const maxRefHops = 64

func (vm *VM) load(loc value.Location) (value.Value, error) {
	switch loc.Kind {
	case value.LocGlobal:
		return vm.globals[loc.Slot], nil
	case value.LocStack:
		if loc.Slot >= vm.sp {
			return value.Value{}, errorf(DanglingReference, "stack slot %d is no longer live", loc.Slot)
		}
		return vm.stack[loc.Slot], nil
	default:
		if loc.Slot >= len(loc.Array.Elems) {
			return value.Value{}, errorf(DanglingReference, "array element %d no longer exists", loc.Slot)
		}
		return loc.Array.Elems[loc.Slot], nil
	}
}

func (vm *VM) store(loc value.Location, v value.Value) error {
	switch loc.Kind {
	case value.LocGlobal:
		vm.globals[loc.Slot] = v
	case value.LocStack:
		if loc.Slot >= vm.sp {
			return errorf(DanglingReference, "stack slot %d is no longer live", loc.Slot)
		}
		vm.stack[loc.Slot] = v
	default:
		if loc.Slot >= len(loc.Array.Elems) {
			return errorf(DanglingReference, "array element %d no longer exists", loc.Slot)
		}
		loc.Array.Elems[loc.Slot] = v
	}
	return nil
}

// target follows a reference to the location holding a plain value.
func (vm *VM) target(r value.Value) (value.Location, error) {
	h := r.Ref
	for i := 0; i < maxRefHops; i++ {
		loc, err := vm.arena.Resolve(h)
		if err != nil {
			return value.Location{}, errorf(DanglingReference, "reference #%d outlived its storage", h.Index)
		}
		cur, err := vm.load(loc)
		if err != nil {
			return value.Location{}, err
		}
		if cur.Kind != value.KindRef {
			return loc, nil
		}
		h = cur.Ref
	}
	return value.Location{}, errorf(DanglingReference, "reference cycle")
}

// Deref returns the value a reference ultimately names. Other values are
// returned unchanged.
func (vm *VM) Deref(v value.Value) (value.Value, error) {
	if v.Kind != value.KindRef {
		return v, nil
	}
	loc, err := vm.target(v)
	if err != nil {
		return value.Value{}, err
	}
	return vm.load(loc)
}

// assign writes v into loc. When loc holds a reference and v is a plain
// value the write goes to the referenced location instead.
func (vm *VM) assign(loc value.Location, v value.Value) error {
	cur, err := vm.load(loc)
	if err != nil {
		return err
	}
	if cur.Kind == value.KindRef && v.Kind != value.KindRef {
		dst, err := vm.target(cur)
		if err != nil {
			return err
		}
		return vm.store(dst, v)
	}
	return vm.store(loc, v)
}

// refTo makes a reference to loc. A location already holding a reference
// yields that reference so chains never form.
func (vm *VM) refTo(loc value.Location) (value.Value, error) {
	cur, err := vm.load(loc)
	if err != nil {
		return value.Value{}, err
	}
	if cur.Kind == value.KindRef {
		return cur, nil
	}
	return value.NewRef(vm.arena.Handle(loc)), nil
}

// releaseSlots retires stack slots [from, to): references into them dangle
// and the slots are cleared.
func (vm *VM) releaseSlots(from, to int) {
	vm.arena.ReleaseStackRange(from, to)
	for i := from; i < to && i < len(vm.stack); i++ {
		vm.stack[i] = value.Value{}
	}
}
