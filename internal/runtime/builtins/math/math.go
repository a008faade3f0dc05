package math

import (
	"fmt"
	stdmath "math"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

// Module is the dllimport name of this package.
const Module = "math"

func init() {
	registerUnary("sqrt", stdmath.Sqrt)
	registerUnary("floor", stdmath.Floor)
	registerUnary("abs", stdmath.Abs)

	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "pow",
			Module:     Module,
			Arity:      2,
			ParamNames: []string{"x", "y"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if args[0].Kind != value.KindNumber || args[1].Kind != value.KindNumber {
				return false, value.Value{}, fmt.Errorf("pow expects numbers, got %v and %v", args[0].Kind, args[1].Kind)
			}
			return true, value.Number(stdmath.Pow(args[0].Num, args[1].Num)), nil
		},
	})

	pi := value.Number(stdmath.Pi)
	builtins.Register(builtins.Builtin{
		Meta:  builtins.Meta{Name: "PI", Module: Module},
		Const: &pi,
	})
}

func registerUnary(name string, fn func(float64) float64) {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       name,
			Module:     Module,
			Arity:      1,
			ParamNames: []string{"x"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if args[0].Kind != value.KindNumber {
				return false, value.Value{}, fmt.Errorf("%s expects a number, got %v", name, args[0].Kind)
			}
			return true, value.Number(fn(args[0].Num)), nil
		},
	})
}
