package builtins_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"computeduck/internal/runtime"
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

func TestNewRegistryLoadsCore(t *testing.T) {
	reg := runtime.NewRegistry()
	if diff := cmp.Diff([]string{builtins.CoreModule}, reg.Loaded()); diff != "" {
		t.Errorf("loaded modules mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"print", "println", "input", "insert", "erase", "sizeof", "clock"} {
		if !reg.Has(name) {
			t.Errorf("core builtin %q not visible", name)
		}
	}
	if reg.Has("upper") {
		t.Error("strings module visible before dllimport")
	}
}

func TestImport(t *testing.T) {
	reg := runtime.NewRegistry()
	if err := reg.Import("strings"); err != nil {
		t.Fatalf("Import(strings): %v", err)
	}
	if !reg.Has("upper") {
		t.Error("upper not visible after import")
	}
	// second import is a no-op
	if err := reg.Import("strings"); err != nil {
		t.Fatalf("second Import(strings): %v", err)
	}
	if diff := cmp.Diff([]string{"core", "strings"}, reg.Loaded()); diff != "" {
		t.Errorf("loaded modules mismatch (-want +got):\n%s", diff)
	}
	if err := reg.Import("nosuch"); err == nil {
		t.Error("expected an error for an unknown module")
	}
}

func TestModules(t *testing.T) {
	runtime.NewRegistry()
	want := []string{"core", "hash", "json", "math", "meta", "strings", "uuid"}
	if diff := cmp.Diff(want, builtins.Modules()); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}
}

func TestArityChecked(t *testing.T) {
	reg := runtime.NewRegistry()
	b, ok := reg.Lookup("sizeof")
	if !ok {
		t.Fatal("sizeof not found")
	}
	if _, _, err := b.Fn(runtime.DefaultEnv(), nil); err == nil {
		t.Error("expected an arity error")
	}
}

func TestRegisterHostFunction(t *testing.T) {
	reg := runtime.NewRegistry()
	reg.Register("answer", func(host interface{}, args []value.Value) (bool, value.Value, error) {
		return true, value.Number(42), nil
	})
	reg.RegisterConst("limit", value.Number(7))

	b, ok := reg.Lookup("answer")
	if !ok {
		t.Fatal("answer not found")
	}
	_, v, err := b.Fn(nil, nil)
	if err != nil || v.Num != 42 {
		t.Errorf("answer() = %v, %v", v, err)
	}
	c, ok := reg.Lookup("limit")
	if !ok || !c.IsConst || c.Const.Num != 7 {
		t.Errorf("limit = %+v", c)
	}
}
