package io

import (
	"fmt"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "input",
			Arity:      0,
			ParamNames: []string{},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if env == nil || env.IO() == nil {
				return false, value.Value{}, fmt.Errorf("runtime env IO is nil")
			}
			line, err := env.IO().ReadLine()
			if err != nil {
				return false, value.Value{}, fmt.Errorf("input failed: %w", err)
			}
			return true, value.Str(line), nil
		},
	})
}
