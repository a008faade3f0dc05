package vm

import (
	"math"

	"computeduck/internal/ir"
	"computeduck/internal/value"
)

func binaryOp(op ir.OpCode, left, right value.Value) (value.Value, error) {
	switch op {
	case ir.OpEqual:
		return value.Bool(value.Equal(left, right)), nil
	case ir.OpGreater, ir.OpLess:
		// ordering is only defined on numbers; anything else compares false
		if left.Kind != value.KindNumber || right.Kind != value.KindNumber {
			return value.Bool(false), nil
		}
		if op == ir.OpGreater {
			return value.Bool(left.Num > right.Num), nil
		}
		return value.Bool(left.Num < right.Num), nil
	case ir.OpAnd, ir.OpOr:
		l, lok := left.Truthy()
		r, rok := right.Truthy()
		if !lok || !rok {
			return value.Value{}, errorf(TypeMismatch, "%s needs bool operands, got %s and %s", opSymbol(op), left.Kind, right.Kind)
		}
		if op == ir.OpAnd {
			return value.Bool(l && r), nil
		}
		return value.Bool(l || r), nil
	case ir.OpAdd:
		return add(left, right)
	}

	if left.Kind != value.KindNumber || right.Kind != value.KindNumber {
		return value.Value{}, errorf(TypeMismatch, "unsupported operand types for %s: %s and %s", opSymbol(op), left.Kind, right.Kind)
	}
	a, b := left.Num, right.Num
	switch op {
	case ir.OpSub:
		return value.Number(a - b), nil
	case ir.OpMul:
		return value.Number(a * b), nil
	case ir.OpDiv:
		return value.Number(a / b), nil
	case ir.OpBitAnd:
		return value.Number(float64(toBits(a) & toBits(b))), nil
	case ir.OpBitOr:
		return value.Number(float64(toBits(a) | toBits(b))), nil
	case ir.OpBitXor:
		return value.Number(float64(toBits(a) ^ toBits(b))), nil
	}
	return value.Value{}, errorf(TypeMismatch, "unknown binary opcode %s", op)
}

func add(left, right value.Value) (value.Value, error) {
	switch {
	case left.Kind == value.KindNumber && right.Kind == value.KindNumber:
		return value.Number(left.Num + right.Num), nil
	case left.Kind == value.KindString && right.Kind == value.KindString:
		return value.Str(left.Str.S + right.Str.S), nil
	case left.Kind == value.KindArray && right.Kind == value.KindArray:
		elems := make([]value.Value, 0, len(left.Arr.Elems)+len(right.Arr.Elems))
		elems = append(elems, left.Arr.Elems...)
		elems = append(elems, right.Arr.Elems...)
		return value.NewArray(elems), nil
	}
	return value.Value{}, errorf(TypeMismatch, "unsupported operand types for +: %s and %s", left.Kind, right.Kind)
}

func unaryOp(op ir.OpCode, v value.Value) (value.Value, error) {
	switch op {
	case ir.OpNot:
		b, ok := v.Truthy()
		if !ok {
			return value.Value{}, errorf(TypeMismatch, "not needs a bool, got %s", v.Kind)
		}
		return value.Bool(!b), nil
	case ir.OpMinus:
		if v.Kind != value.KindNumber {
			return value.Value{}, errorf(TypeMismatch, "unary - needs a number, got %s", v.Kind)
		}
		return value.Number(-v.Num), nil
	default:
		if v.Kind != value.KindNumber {
			return value.Value{}, errorf(TypeMismatch, "~ needs a number, got %s", v.Kind)
		}
		return value.Number(float64(^toBits(v.Num))), nil
	}
}

// toBits truncates toward zero. Bit operators work on 64-bit two's
// complement integers, so ~0 is -1.
func toBits(f float64) int64 {
	if f >= math.MaxInt64 || f <= math.MinInt64 || math.IsNaN(f) {
		return 0
	}
	return int64(f)
}

func opSymbol(op ir.OpCode) string {
	switch op {
	case ir.OpSub:
		return "-"
	case ir.OpMul:
		return "*"
	case ir.OpDiv:
		return "/"
	case ir.OpAnd:
		return "and"
	case ir.OpOr:
		return "or"
	case ir.OpBitAnd:
		return "&"
	case ir.OpBitOr:
		return "|"
	case ir.OpBitXor:
		return "^"
	}
	return op.String()
}

// index validates an index operand against length n.
func index(idx value.Value, n int) (int, bool, error) {
	if idx.Kind != value.KindNumber {
		return 0, false, errorf(TypeMismatch, "index must be a number, got %s", idx.Kind)
	}
	if idx.Num != math.Trunc(idx.Num) || idx.Num < 0 || idx.Num >= float64(n) {
		return 0, false, nil
	}
	return int(idx.Num), true, nil
}

func (vm *VM) makeArray(n int) error {
	if n < 0 || n > vm.sp {
		return errorf(StackUnderflow, "array of %d elements on short stack", n)
	}
	elems := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		elems[i] = v
	}
	return vm.push(value.NewArray(elems))
}

func (vm *VM) getIndex() error {
	idx, err := vm.popValue()
	if err != nil {
		return err
	}
	container, err := vm.popValue()
	if err != nil {
		return err
	}

	switch container.Kind {
	case value.KindArray:
		i, ok, err := index(idx, len(container.Arr.Elems))
		if err != nil {
			return err
		}
		if !ok {
			return vm.push(value.Nil())
		}
		return vm.push(container.Arr.Elems[i])
	case value.KindString:
		s := container.Str.S
		i, ok, err := index(idx, len(s))
		if err != nil {
			return err
		}
		if !ok {
			return vm.push(value.Nil())
		}
		return vm.push(value.Str(s[i : i+1]))
	default:
		return errorf(TypeMismatch, "cannot index %s", container.Kind)
	}
}

func (vm *VM) setIndex() error {
	idx, err := vm.popValue()
	if err != nil {
		return err
	}
	container, err := vm.popValue()
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}

	switch container.Kind {
	case value.KindArray:
		i, ok, err := index(idx, len(container.Arr.Elems))
		if err != nil {
			return err
		}
		if !ok {
			return errorf(IndexOutOfRange, "index %s out of range [0, %d)", value.FormatNumber(idx.Num), len(container.Arr.Elems))
		}
		return vm.assign(value.Location{Kind: value.LocElem, Slot: i, Array: container.Arr}, v)
	case value.KindString:
		s := container.Str.S
		i, ok, err := index(idx, len(s))
		if err != nil {
			return err
		}
		if !ok {
			return errorf(IndexOutOfRange, "index %s out of range [0, %d)", value.FormatNumber(idx.Num), len(s))
		}
		v, err = vm.Deref(v)
		if err != nil {
			return err
		}
		if v.Kind != value.KindString {
			return errorf(TypeMismatch, "cannot store %s in a string", v.Kind)
		}
		container.Str.S = s[:i] + v.Str.S + s[i+1:]
		return nil
	default:
		return errorf(TypeMismatch, "cannot index %s", container.Kind)
	}
}

// makeStruct pops n (value, name) pairs, name on top, and keeps the
// declaration order of the members.
func (vm *VM) makeStruct(n int) error {
	if n < 0 || 2*n > vm.sp {
		return errorf(StackUnderflow, "struct of %d members on short stack", n)
	}
	names := make([]string, n)
	vals := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		name, err := vm.popName()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		names[i] = name
		vals[i] = v
	}
	return vm.push(value.NewStruct(names, vals))
}

func (vm *VM) popStruct() (*value.Struct, string, error) {
	name, err := vm.popName()
	if err != nil {
		return nil, "", err
	}
	sv, err := vm.popValue()
	if err != nil {
		return nil, "", err
	}
	if sv.Kind != value.KindStruct {
		return nil, "", errorf(TypeMismatch, "cannot access member %q of %s", name, sv.Kind)
	}
	if _, ok := sv.Struct.Members[name]; !ok {
		return nil, "", errorf(UndefinedStructMember, "struct has no member %q", name)
	}
	return sv.Struct, name, nil
}

func (vm *VM) getMember() error {
	s, name, err := vm.popStruct()
	if err != nil {
		return err
	}
	return vm.push(s.Members[name])
}

func (vm *VM) setMember() error {
	s, name, err := vm.popStruct()
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	cur := s.Members[name]
	if cur.Kind == value.KindRef && v.Kind != value.KindRef {
		dst, err := vm.target(cur)
		if err != nil {
			return err
		}
		return vm.store(dst, v)
	}
	s.Members[name] = v
	return nil
}

func (vm *VM) pushRef(loc value.Location) error {
	r, err := vm.refTo(loc)
	if err != nil {
		return err
	}
	return vm.push(r)
}

// refIndex pops an index and references that element of the array held
// in loc.
func (vm *VM) refIndex(loc value.Location) error {
	idx, err := vm.popValue()
	if err != nil {
		return err
	}
	raw, err := vm.load(loc)
	if err != nil {
		return err
	}
	container, err := vm.Deref(raw)
	if err != nil {
		return err
	}
	if container.Kind != value.KindArray {
		return errorf(TypeMismatch, "cannot reference an element of %s", container.Kind)
	}
	i, ok, err := index(idx, len(container.Arr.Elems))
	if err != nil {
		return err
	}
	if !ok {
		return errorf(IndexOutOfRange, "index %s out of range [0, %d)", value.FormatNumber(idx.Num), len(container.Arr.Elems))
	}
	return vm.pushRef(value.Location{Kind: value.LocElem, Slot: i, Array: container.Arr})
}
