package collections

import (
	"fmt"
	"math"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "insert",
			Arity:      3,
			ParamNames: []string{"target", "index", "value"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			target, element := args[0], args[2]
			switch target.Kind {
			case value.KindArray:
				index, err := checkIndex("insert", args[1], len(target.Arr.Elems))
				if err != nil {
					return false, value.Value{}, err
				}
				elems := target.Arr.Elems
				elems = append(elems, value.Value{})
				copy(elems[index+1:], elems[index:])
				elems[index] = element
				target.Arr.Elems = elems
				return false, value.Value{}, nil

			case value.KindString:
				index, err := checkIndex("insert", args[1], len(target.Str.S))
				if err != nil {
					return false, value.Value{}, err
				}
				if element.Kind != value.KindString {
					return false, value.Value{}, fmt.Errorf("insert: inserting into a string needs a string, got %v", element.Kind)
				}
				s := target.Str.S
				target.Str.S = s[:index] + element.Str.S + s[index:]
				return false, value.Value{}, nil
			}
			return false, value.Value{}, fmt.Errorf("insert expects array or string, got %v", target.Kind)
		},
	})
}

// checkIndex validates an index into a sequence of length n.
func checkIndex(name string, idx value.Value, n int) (int, error) {
	if idx.Kind != value.KindNumber {
		return 0, fmt.Errorf("%s: index must be a number, got %v", name, idx.Kind)
	}
	if idx.Num != math.Trunc(idx.Num) || idx.Num < 0 || idx.Num >= float64(n) {
		return 0, fmt.Errorf("%s: index %s out of range [0, %d)", name, value.FormatNumber(idx.Num), n)
	}
	return int(idx.Num), nil
}
