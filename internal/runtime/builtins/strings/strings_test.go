package strings_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"computeduck/internal/runtime"
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func call(t *testing.T, name string, args ...string) (value.Value, error) {
	t.Helper()
	b := builtins.LookupByName(name)
	if b == nil {
		t.Fatalf("builtin %q not found", name)
	}
	vals := make([]value.Value, len(args))
	for i, a := range args {
		vals[i] = value.Str(a)
	}
	_, v, err := b.Call(runtime.DefaultEnv(), vals)
	return v, err
}

func TestStringBuiltins(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"upper", []string{"duck"}, "DUCK"},
		{"lower", []string{"DuCk"}, "duck"},
		{"trim", []string{"  quack \n"}, "quack"},
		{"contains", []string{"mallard", "lla"}, "true"},
		{"contains", []string{"mallard", "goose"}, "false"},
		{"index_of", []string{"mallard", "l"}, "2"},
		{"index_of", []string{"mallard", "z"}, "-1"},
		{"replace", []string{"a-b-c", "-", "+"}, "a+b+c"},
	}
	for _, tt := range tests {
		got, err := call(t, tt.name, tt.args...)
		if err != nil {
			t.Errorf("%s%q: %v", tt.name, tt.args, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("%s%q = %s, want %s", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	got, err := call(t, "split", "a,b,,c", ",")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	var parts []string
	for _, el := range got.Arr.Elems {
		parts = append(parts, el.Str.S)
	}
	if diff := cmp.Diff([]string{"a", "b", "", "c"}, parts); diff != "" {
		t.Errorf("split mismatch (-want +got):\n%s", diff)
	}
}

func TestRejectsNonString(t *testing.T) {
	b := builtins.LookupByName("upper")
	if _, _, err := b.Call(runtime.DefaultEnv(), []value.Value{value.Number(1)}); err == nil {
		t.Error("expected an error for a number argument")
	}
}
