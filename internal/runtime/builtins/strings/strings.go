package strings

import (
	"fmt"
	stdstrings "strings"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

// Module is the dllimport name of this package.
const Module = "strings"

func init() {
	registerUnary("upper", stdstrings.ToUpper)
	registerUnary("lower", stdstrings.ToLower)
	registerUnary("trim", stdstrings.TrimSpace)
	registerSplit()
	registerContains()
	registerIndexOf()
	registerReplace()
}

func stringArg(name string, args []value.Value, i int) (string, error) {
	if args[i].Kind != value.KindString {
		return "", fmt.Errorf("%s: argument %d must be a string, got %v", name, i+1, args[i].Kind)
	}
	return args[i].Str.S, nil
}

func registerUnary(name string, fn func(string) string) {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       name,
			Module:     Module,
			Arity:      1,
			ParamNames: []string{"s"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			s, err := stringArg(name, args, 0)
			if err != nil {
				return false, value.Value{}, err
			}
			return true, value.Str(fn(s)), nil
		},
	})
}

func registerSplit() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "split",
			Module:     Module,
			Arity:      2,
			ParamNames: []string{"s", "sep"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			s, err := stringArg("split", args, 0)
			if err != nil {
				return false, value.Value{}, err
			}
			sep, err := stringArg("split", args, 1)
			if err != nil {
				return false, value.Value{}, err
			}
			parts := stdstrings.Split(s, sep)
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.Str(p)
			}
			return true, value.NewArray(elems), nil
		},
	})
}

func registerContains() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "contains",
			Module:     Module,
			Arity:      2,
			ParamNames: []string{"s", "substr"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			s, err := stringArg("contains", args, 0)
			if err != nil {
				return false, value.Value{}, err
			}
			sub, err := stringArg("contains", args, 1)
			if err != nil {
				return false, value.Value{}, err
			}
			return true, value.Bool(stdstrings.Contains(s, sub)), nil
		},
	})
}

func registerIndexOf() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "index_of",
			Module:     Module,
			Arity:      2,
			ParamNames: []string{"s", "substr"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			s, err := stringArg("index_of", args, 0)
			if err != nil {
				return false, value.Value{}, err
			}
			sub, err := stringArg("index_of", args, 1)
			if err != nil {
				return false, value.Value{}, err
			}
			return true, value.Number(float64(stdstrings.Index(s, sub))), nil
		},
	})
}

func registerReplace() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "replace",
			Module:     Module,
			Arity:      3,
			ParamNames: []string{"s", "old", "new"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			var parts [3]string
			for i := range parts {
				s, err := stringArg("replace", args, i)
				if err != nil {
					return false, value.Value{}, err
				}
				parts[i] = s
			}
			return true, value.Str(stdstrings.ReplaceAll(parts[0], parts[1], parts[2])), nil
		},
	})
}
