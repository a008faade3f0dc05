package collections

import (
	"fmt"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "sizeof",
			Arity:      1,
			ParamNames: []string{"value"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			arg := args[0]
			switch arg.Kind {
			case value.KindArray:
				return true, value.Number(float64(len(arg.Arr.Elems))), nil
			case value.KindString:
				return true, value.Number(float64(len(arg.Str.S))), nil
			}
			return false, value.Value{}, fmt.Errorf("sizeof expects array or string, got %v", arg.Kind)
		},
	})
}
