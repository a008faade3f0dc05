package io

import (
	"fmt"
	"strings"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func init() {
	registerPrint("print", func(out builtins.IO, s string) { out.Print(s) })
	registerPrint("println", func(out builtins.IO, s string) { out.Println(s) })
}

func registerPrint(name string, write func(builtins.IO, string)) {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:  name,
			Arity: builtins.Variadic,
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if env == nil || env.IO() == nil {
				return false, value.Value{}, fmt.Errorf("runtime env IO is nil")
			}
			write(env.IO(), Format(args))
			return false, value.Value{}, nil
		},
	})
}

// Format joins the printed form of args with single spaces.
func Format(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}
