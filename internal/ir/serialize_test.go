package ir_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"computeduck/internal/ir"
)

func listing(u *ir.Unit) string {
	var buf bytes.Buffer
	ir.Disassemble(&buf, u.Main)
	return buf.String()
}

func TestMarshalRoundTrip(t *testing.T) {
	u := compileOK(t, `
struct P { x: 1 }
fn add(a, b) { return a + b; }
a = [1, "two", true, nil];
r = ref a;
{ var t = add(1, 2); }
`)
	data, err := ir.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("CDK1")) {
		t.Fatalf("missing magic header")
	}

	got, err := ir.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != u.ID || got.Source != u.Source {
		t.Errorf("header mismatch: %q/%q vs %q/%q", got.ID, got.Source, u.ID, u.Source)
	}
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Errorf("unit id %q is not a uuid: %v", got.ID, err)
	}
	if diff := cmp.Diff(listing(u), listing(got)); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	u := compileOK(t, "a = 1; b = a + 2;")
	first, err := ir.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ir.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("encoding differs between runs")
	}
}

func TestUnmarshalRejectsCorruption(t *testing.T) {
	u := compileOK(t, "a = 1;")
	data, err := ir.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xff
	if _, err := ir.Unmarshal(flipped); !errors.Is(err, ir.ErrBadChecksum) {
		t.Errorf("expected checksum error, got %v", err)
	}

	if _, err := ir.Unmarshal([]byte("nope")); !errors.Is(err, ir.ErrBadMagic) {
		t.Errorf("expected bad magic, got %v", err)
	}
}

func TestUnitFiles(t *testing.T) {
	u := compileOK(t, "println(1 + 2);")
	path := filepath.Join(t.TempDir(), "prog.cdc")
	if err := ir.WriteUnitToFile(path, u); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ir.ReadUnitFromFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(listing(u), listing(got)); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalRejectsBadOperands(t *testing.T) {
	single := func(op ir.OpCode, a, b, c int) *ir.Function {
		fn := &ir.Function{Name: "main"}
		fn.Chunk.Emit(1, op, a, b, c)
		return fn
	}
	nested := &ir.Function{Name: "main"}
	nested.Chunk.Emit(1, ir.OpConstant, nested.Chunk.AddConstFunction(single(ir.OpConstant, 3, 0, 0)), 0, 0)

	tests := []struct {
		name string
		fn   *ir.Function
	}{
		{"constant outside pool", single(ir.OpConstant, 7, 0, 0)},
		{"jump past end", single(ir.OpJump, 5, 0, 0)},
		{"negative jump", single(ir.OpJumpIfFalse, -1, 0, 0)},
		{"negative local slot", single(ir.OpGetLocal, -1, 0, 0)},
		{"bad upvalue flag", single(ir.OpSetLocal, 0, 0, 2)},
		{"negative call count", single(ir.OpFunctionCall, -3, 0, 0)},
		{"bad return flag", single(ir.OpReturn, 2, 0, 0)},
		{"unknown opcode", single(ir.OpCode(200), 0, 0, 0)},
		{"nested function", nested},
		{"locals below params", &ir.Function{Name: "main", NumParams: 2, NumLocals: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ir.Marshal(&ir.Unit{ID: uuid.NewString(), Source: "bad.cd", Main: tt.fn})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if _, err := ir.Unmarshal(data); err == nil {
				t.Error("expected an error for invalid operands")
			}
		})
	}
}
