package hash_test

import (
	"testing"

	"computeduck/internal/runtime"
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func TestDigests(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"blake2b", "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
		{"sha3", "", "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := builtins.LookupByName(tt.name)
			if b == nil {
				t.Fatalf("builtin %q not found", tt.name)
			}
			_, got, err := b.Call(runtime.DefaultEnv(), []value.Value{value.Str(tt.in)})
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got.Str.S != tt.want {
				t.Errorf("%s(%q) = %s, want %s", tt.name, tt.in, got.Str.S, tt.want)
			}
		})
	}
}

func TestDigestRejectsNonString(t *testing.T) {
	b := builtins.LookupByName("sha3")
	if _, _, err := b.Call(runtime.DefaultEnv(), []value.Value{value.Number(1)}); err == nil {
		t.Error("expected an error for a number argument")
	}
}
