package collections

import (
	"fmt"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "erase",
			Arity:      2,
			ParamNames: []string{"target", "index"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			target := args[0]
			switch target.Kind {
			case value.KindArray:
				index, err := checkIndex("erase", args[1], len(target.Arr.Elems))
				if err != nil {
					return false, value.Value{}, err
				}
				target.Arr.Elems = append(target.Arr.Elems[:index], target.Arr.Elems[index+1:]...)
				return false, value.Value{}, nil

			case value.KindString:
				index, err := checkIndex("erase", args[1], len(target.Str.S))
				if err != nil {
					return false, value.Value{}, err
				}
				s := target.Str.S
				target.Str.S = s[:index] + s[index+1:]
				return false, value.Value{}, nil
			}
			return false, value.Value{}, fmt.Errorf("erase expects array or string, got %v", target.Kind)
		},
	})
}
