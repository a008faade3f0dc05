package ir_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"computeduck/internal/ir"
	"computeduck/internal/parser"
)

type fakeBuiltins struct {
	names   map[string]bool
	modules map[string][]string
}

func newFakeBuiltins() *fakeBuiltins {
	return &fakeBuiltins{
		names: map[string]bool{"println": true, "print": true, "sizeof": true},
		modules: map[string][]string{
			"strings": {"upper", "lower"},
		},
	}
}

func (f *fakeBuiltins) Has(name string) bool { return f.names[name] }

func (f *fakeBuiltins) Import(module string) error {
	names, ok := f.modules[module]
	if !ok {
		return fmt.Errorf("unknown module %q", module)
	}
	for _, n := range names {
		f.names[n] = true
	}
	return nil
}

func compileWith(t *testing.T, c *ir.Compiler, src string) (*ir.Unit, error) {
	t.Helper()
	prog, errs := parser.ParseSource("test.cd", src)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return c.Compile(prog)
}

func compileOK(t *testing.T, src string) *ir.Unit {
	t.Helper()
	u, err := compileWith(t, ir.NewCompiler(newFakeBuiltins()), src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return u
}

func ops(fn *ir.Function) []string {
	out := make([]string, len(fn.Chunk.Code))
	for i, in := range fn.Chunk.Code {
		out[i] = in.Op.String()
	}
	return out
}

func findFunc(t *testing.T, fn *ir.Function, name string) *ir.Function {
	t.Helper()
	for _, c := range fn.Chunk.Consts {
		if c.Kind != ir.ConstFunction {
			continue
		}
		if c.Func.Name == name {
			return c.Func
		}
	}
	t.Fatalf("function %q not found in %s", name, fn.Name)
	return nil
}

func TestCompileBinaryPushesRightOperandFirst(t *testing.T) {
	u := compileOK(t, "1 - 2;")
	want := []string{"OP_CONSTANT", "OP_CONSTANT", "OP_SUB", "OP_POP"}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	code := u.Main.Chunk.Code
	if got := u.Main.Chunk.Consts[code[0].A].Number; got != 2 {
		t.Errorf("expected right operand 2 first, got %v", got)
	}
}

func TestCompileComparisonRewrites(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"a = 1 != 2;", []string{"OP_CONSTANT", "OP_CONSTANT", "OP_EQUAL", "OP_NOT", "OP_DEF_GLOBAL"}},
		{"a = 1 >= 2;", []string{"OP_CONSTANT", "OP_CONSTANT", "OP_LESS", "OP_NOT", "OP_DEF_GLOBAL"}},
		{"a = 1 <= 2;", []string{"OP_CONSTANT", "OP_CONSTANT", "OP_GREATER", "OP_NOT", "OP_DEF_GLOBAL"}},
	}
	for _, tt := range tests {
		u := compileOK(t, tt.src)
		if diff := cmp.Diff(tt.want, ops(u.Main)); diff != "" {
			t.Errorf("%s: ops mismatch (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestCompileIfFalseJumpTargets(t *testing.T) {
	u := compileOK(t, "if (false) { x = 1; } y = 2;")
	want := []string{
		"OP_CONSTANT", "OP_JUMP_IF_FALSE",
		"OP_SP_OFFSET", "OP_CONSTANT", "OP_DEF_LOCAL", "OP_SP_OFFSET",
		"OP_JUMP",
		"OP_CONSTANT", "OP_DEF_GLOBAL",
	}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	code := u.Main.Chunk.Code
	if code[1].A != 7 {
		t.Errorf("JUMP_IF_FALSE should skip to 7, got %d", code[1].A)
	}
	if code[6].A != 7 {
		t.Errorf("JUMP should land on 7, got %d", code[6].A)
	}
	if code[2].A != 1 || code[5].A != -1 {
		t.Errorf("expected SP_OFFSET pair 1/-1, got %d/%d", code[2].A, code[5].A)
	}
	if u.Main.NumLocals != 1 {
		t.Errorf("main should reserve 1 block slot, got %d", u.Main.NumLocals)
	}
}

func TestCompileWhileDropsEmptyBlockOffsets(t *testing.T) {
	u := compileOK(t, "a = 0; while (a < 3) { a = a + 1; }")
	want := []string{
		"OP_CONSTANT", "OP_DEF_GLOBAL",
		"OP_CONSTANT", "OP_GET_GLOBAL", "OP_LESS", "OP_JUMP_IF_FALSE",
		"OP_CONSTANT", "OP_GET_GLOBAL", "OP_ADD", "OP_SET_GLOBAL",
		"OP_JUMP",
	}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	code := u.Main.Chunk.Code
	if code[5].A != 11 {
		t.Errorf("loop exit should be 11, got %d", code[5].A)
	}
	if code[10].A != 2 {
		t.Errorf("back jump should target the loop head 2, got %d", code[10].A)
	}
}

func TestChunkRemoveRetargetsJumps(t *testing.T) {
	var ch ir.Chunk
	ch.Emit(1, ir.OpJump, 3, 0, 0)
	ch.Emit(1, ir.OpSpOffset, 0, 0, 0)
	ch.Emit(1, ir.OpPop, 0, 0, 0)
	ch.Emit(1, ir.OpJumpIfFalse, 0, 0, 0)
	ch.Remove(1)
	if len(ch.Code) != 3 || len(ch.Lines) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(ch.Code))
	}
	if ch.Code[0].A != 2 {
		t.Errorf("jump past the removed slot should move to 2, got %d", ch.Code[0].A)
	}
	if ch.Code[2].A != 0 {
		t.Errorf("jump before the removed slot should stay at 0, got %d", ch.Code[2].A)
	}
}

func TestCompileFunctionsAndReturn(t *testing.T) {
	u := compileOK(t, `
fn fact(n) {
    if (n <= 1) { return 1; }
    return n * fact(n - 1);
}
println(fact(5));
`)
	fact := findFunc(t, u.Main, "fact")
	if fact.NumParams != 1 || fact.Depth != 1 {
		t.Fatalf("unexpected fact prototype %+v", fact)
	}
	code := fact.Chunk.Code
	if last := code[len(code)-1]; last.Op != ir.OpReturn || last.A != 1 {
		t.Errorf("fact should end with RETURN 1, got %s %d", last.Op, last.A)
	}

	want := []string{
		"OP_CONSTANT", "OP_DEF_GLOBAL",
		"OP_CONSTANT", "OP_GET_BUILTIN",
		"OP_GET_GLOBAL", "OP_CONSTANT", "OP_FUNCTION_CALL",
		"OP_FUNCTION_CALL", "OP_POP",
	}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Fatalf("main ops mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAppendsImplicitReturn(t *testing.T) {
	u := compileOK(t, `
f = fn(x) { if (x) { return 1; } else { return 2; } };
g = fn() { };
`)
	for _, name := range []string{"f", "g"} {
		fn := findFunc(t, u.Main, name)
		code := fn.Chunk.Code
		last := code[len(code)-1]
		if last.Op != ir.OpReturn || last.A != 0 {
			t.Errorf("%s: expected trailing RETURN 0, got %s %d", name, last.Op, last.A)
		}
		for _, in := range code {
			if (in.Op == ir.OpJump || in.Op == ir.OpJumpIfFalse) && in.A >= len(code) {
				t.Errorf("%s: jump to %d runs off the end", name, in.A)
			}
		}
	}
}

func TestCompileUpvaluesTripleNesting(t *testing.T) {
	u := compileOK(t, `
fn outer() {
    var x = 1;
    fn middle() {
        fn inner() {
            x = x + 1;
            return x;
        }
        return inner();
    }
    return middle();
}
`)
	outer := findFunc(t, u.Main, "outer")
	middle := findFunc(t, outer, "middle")
	inner := findFunc(t, middle, "inner")

	if outer.Depth != 1 || middle.Depth != 2 || inner.Depth != 3 {
		t.Fatalf("unexpected depths %d/%d/%d", outer.Depth, middle.Depth, inner.Depth)
	}

	var sawGet, sawSet bool
	for _, in := range inner.Chunk.Code {
		switch in.Op {
		case ir.OpGetLocal:
			sawGet = true
			if in.A != 0 || in.B != 1 || in.C != 1 {
				t.Errorf("GET_LOCAL should address slot 0 at depth 1 as upvalue, got %+v", in)
			}
		case ir.OpSetLocal:
			sawSet = true
			if in.A != 0 || in.B != 1 || in.C != 1 {
				t.Errorf("SET_LOCAL should address slot 0 at depth 1 as upvalue, got %+v", in)
			}
		}
	}
	if !sawGet || !sawSet {
		t.Errorf("expected both upvalue read and write in inner")
	}
}

func TestCompileStructs(t *testing.T) {
	u := compileOK(t, `
struct Point { x: 1, y: 2 }
p = Point;
q = { a: 1 };
`)
	ctor := findFunc(t, u.Main, "Point")
	if !ctor.IsStructConstructor || ctor.NumParams != 0 {
		t.Fatalf("unexpected constructor %+v", ctor)
	}
	wantCtor := []string{
		"OP_CONSTANT", "OP_CONSTANT", "OP_CONSTANT", "OP_CONSTANT", "OP_STRUCT", "OP_RETURN",
	}
	if diff := cmp.Diff(wantCtor, ops(ctor)); diff != "" {
		t.Errorf("constructor ops mismatch (-want +got):\n%s", diff)
	}

	want := []string{
		"OP_CONSTANT", "OP_DEF_GLOBAL",
		"OP_GET_GLOBAL", "OP_FUNCTION_CALL", "OP_DEF_GLOBAL",
		"OP_CONSTANT", "OP_CONSTANT", "OP_STRUCT", "OP_DEF_GLOBAL",
	}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Errorf("main ops mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileReferences(t *testing.T) {
	u := compileOK(t, `
a = [1, 2, 3];
r = ref a;
s = ref a[1];
f = fn() { var b = 1; var c = ref b; };
`)
	want := []string{
		"OP_CONSTANT", "OP_CONSTANT", "OP_CONSTANT", "OP_ARRAY", "OP_DEF_GLOBAL",
		"OP_REF_GLOBAL", "OP_DEF_GLOBAL",
		"OP_CONSTANT", "OP_REF_INDEX_GLOBAL", "OP_DEF_GLOBAL",
		"OP_CONSTANT", "OP_DEF_GLOBAL",
	}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	f := findFunc(t, u.Main, "f")
	found := false
	for _, in := range f.Chunk.Code {
		if in.Op == ir.OpRefLocal {
			found = true
			if in.A != 0 || in.C != 0 {
				t.Errorf("unexpected REF_LOCAL operands %+v", in)
			}
		}
	}
	if !found {
		t.Errorf("expected REF_LOCAL in f")
	}
}

func TestCompileDllImportMakesNamesVisible(t *testing.T) {
	u := compileOK(t, `dllimport("strings"); s = upper("x");`)
	want := []string{
		"OP_CONSTANT", "OP_DLL_IMPORT", "OP_POP",
		"OP_CONSTANT", "OP_GET_BUILTIN", "OP_CONSTANT", "OP_FUNCTION_CALL", "OP_DEF_GLOBAL",
	}
	if diff := cmp.Diff(want, ops(u.Main)); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ir.ErrorKind
	}{
		{"duplicate var", "var a = 1; var a = 2;", ir.DuplicateDefinition},
		{"duplicate param", "f = fn(a, a) { };", ir.DuplicateDefinition},
		{"undefined", "b = a + 1;", ir.UndefinedVariable},
		{"assign to call", "f = fn(x) { }; f(1) = 2;", ir.AssignToCallExpression},
		{"ref of literal", "r = ref 1;", ir.InvalidReferenceTarget},
		{"ref of call", "f = fn() { }; r = ref f();", ir.InvalidReferenceTarget},
		{"ref of builtin", "r = ref println;", ir.InvalidReferenceTarget},
		{"unknown module", `dllimport("nope");`, ir.ImportFailed},
		{"assign to literal", "1 = 2;", ir.InvalidAssignTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := compileWith(t, ir.NewCompiler(newFakeBuiltins()), tt.src)
			if u != nil {
				t.Errorf("expected no unit on error")
			}
			var ce *ir.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ir.CompileError, got %v", err)
			}
			if ce.Kind != tt.kind {
				t.Errorf("expected %s, got %s (%v)", tt.kind, ce.Kind, ce)
			}
		})
	}
}

func TestCompileTooManyGlobals(t *testing.T) {
	c := ir.NewCompiler(newFakeBuiltins(), ir.WithMaxGlobals(2))
	_, err := compileWith(t, c, "a = 1; b = 2; c = 3;")
	var ce *ir.CompileError
	if !errors.As(err, &ce) || ce.Kind != ir.TooManySymbols {
		t.Fatalf("expected TooManySymbols, got %v", err)
	}
}

func TestCompilerKeepsGlobalsUntilReset(t *testing.T) {
	c := ir.NewCompiler(newFakeBuiltins())
	if _, err := compileWith(t, c, "a = 1;"); err != nil {
		t.Fatal(err)
	}
	u, err := compileWith(t, c, "b = a;")
	if err != nil {
		t.Fatalf("second line should see a: %v", err)
	}
	code := u.Main.Chunk.Code
	if code[0].Op != ir.OpGetGlobal || code[0].A != 0 || code[1].Op != ir.OpDefGlobal || code[1].A != 1 {
		t.Errorf("unexpected code %+v", code)
	}

	c.Reset()
	if _, err := compileWith(t, c, "b = a;"); err == nil {
		t.Fatalf("expected a to be gone after Reset")
	}
}

func TestDisassemble(t *testing.T) {
	u := compileOK(t, "f = fn(x) { return x; }; println(f(1));")
	var buf bytes.Buffer
	ir.Disassemble(&buf, u.Main)
	out := buf.String()
	for _, want := range []string{
		"== main (params=0 locals=0 depth=0) ==",
		"== f (params=1 locals=1 depth=1) ==",
		`OP_CONSTANT          0 (<fn f>)`,
		"OP_GET_LOCAL         0 depth=1",
		"OP_GET_BUILTIN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}
