package value

// Equal compares two dereferenced values. Different kinds are never equal.
// Containers that hold themselves compare equal when their shapes match.
func Equal(a, b Value) bool {
	return equal(a, b, nil)
}

// visit is a pair of containers already being compared further up.
type visit struct {
	a, b interface{}
}

func equal(a, b Value, seen map[visit]bool) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindNumber:
		return a.Num == b.Num
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str || a.Str.S == b.Str.S
	case KindArray:
		if a.Arr == b.Arr {
			return true
		}
		if len(a.Arr.Elems) != len(b.Arr.Elems) {
			return false
		}
		k := visit{a.Arr, b.Arr}
		if seen[k] {
			return true
		}
		seen = mark(seen, k)
		for i := range a.Arr.Elems {
			if !equal(a.Arr.Elems[i], b.Arr.Elems[i], seen) {
				return false
			}
		}
		return true
	case KindStruct:
		return structEqual(a.Struct, b.Struct, seen)
	case KindFunction:
		return a.Fn == b.Fn || (a.Fn != nil && b.Fn != nil && a.Fn.Fn == b.Fn.Fn && a.Fn.Env == b.Fn.Env)
	case KindRef:
		return a.Ref == b.Ref
	case KindBuiltin:
		return a.Builtin == b.Builtin
	}
	return false
}

// structEqual checks members in both directions.
func structEqual(a, b *Struct, seen map[visit]bool) bool {
	if a == b {
		return true
	}
	if len(a.Members) != len(b.Members) {
		return false
	}
	k := visit{a, b}
	if seen[k] {
		return true
	}
	seen = mark(seen, k)
	for name, av := range a.Members {
		bv, ok := b.Members[name]
		if !ok || !equal(av, bv, seen) {
			return false
		}
	}
	for name := range b.Members {
		if _, ok := a.Members[name]; !ok {
			return false
		}
	}
	return true
}

func mark(seen map[visit]bool, k visit) map[visit]bool {
	if seen == nil {
		seen = make(map[visit]bool)
	}
	seen[k] = true
	return seen
}
