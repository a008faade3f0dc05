package uuid_test

import (
	"testing"

	"computeduck/internal/runtime"
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func call(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	b := builtins.LookupByName(name)
	if b == nil {
		t.Fatalf("builtin %q not found", name)
	}
	_, v, err := b.Call(runtime.DefaultEnv(), args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestNewIsValidAndUnique(t *testing.T) {
	a := call(t, "uuid_new")
	b := call(t, "uuid_new")
	if a.Str.S == b.Str.S {
		t.Errorf("two calls returned the same id %s", a.Str.S)
	}
	if v := call(t, "uuid_valid", a); !v.Bool {
		t.Errorf("uuid_valid(%s) = false", a.Str.S)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   value.Value
		want bool
	}{
		{value.Str("f47ac10b-58cc-4372-a567-0e02b2c3d479"), true},
		{value.Str("not-a-uuid"), false},
		{value.Number(3), false},
	}
	for _, tt := range tests {
		if got := call(t, "uuid_valid", tt.in); got.Bool != tt.want {
			t.Errorf("uuid_valid(%v) = %v, want %v", tt.in, got.Bool, tt.want)
		}
	}
}
