package hash

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

// Module is the dllimport name of this package.
const Module = "hash"

func init() {
	registerDigest("blake2b", func(b []byte) []byte {
		sum := blake2b.Sum256(b)
		return sum[:]
	})
	registerDigest("sha3", func(b []byte) []byte {
		sum := sha3.Sum256(b)
		return sum[:]
	})
}

// registerDigest exposes a 256-bit digest returning lowercase hex.
func registerDigest(name string, sum func([]byte) []byte) {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       name,
			Module:     Module,
			Arity:      1,
			ParamNames: []string{"data"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			if args[0].Kind != value.KindString {
				return false, value.Value{}, fmt.Errorf("%s expects a string, got %v", name, args[0].Kind)
			}
			return true, value.Str(hex.EncodeToString(sum([]byte(args[0].Str.S)))), nil
		},
	})
}
