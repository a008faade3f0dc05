package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

// Module is the dllimport name of this package.
const Module = "uuid"

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "uuid_new",
			Module:     Module,
			Arity:      0,
			ParamNames: []string{},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return false, value.Value{}, fmt.Errorf("uuid_new: %w", err)
			}
			return true, value.Str(id.String()), nil
		},
	})

	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "uuid_valid",
			Module:     Module,
			Arity:      1,
			ParamNames: []string{"s"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if args[0].Kind != value.KindString {
				return true, value.Bool(false), nil
			}
			return true, value.Bool(uuid.Validate(args[0].Str.S) == nil), nil
		},
	})
}
