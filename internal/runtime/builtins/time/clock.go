package time

import (
	"fmt"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "clock",
			Arity:      0,
			ParamNames: []string{},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if env == nil {
				return false, value.Value{}, fmt.Errorf("clock: runtime env is nil")
			}
			return true, value.Number(env.Elapsed()), nil
		},
	})
}
