package meta

import (
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "typeof",
			Module:     "meta",
			Arity:      1,
			ParamNames: []string{"value"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			return true, value.Str(args[0].Kind.String()), nil
		},
	})
}
