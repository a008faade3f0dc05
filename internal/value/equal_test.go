package value_test

import (
	"testing"

	"computeduck/internal/value"
)

func selfArray() value.Value {
	a := value.NewArray([]value.Value{value.Nil()})
	a.Arr.Elems[0] = a
	return a
}

func TestEqual(t *testing.T) {
	twoStruct := func(x float64) value.Value {
		return value.NewStruct([]string{"a", "b"}, []value.Value{value.Number(x), value.Str("s")})
	}
	tests := []struct {
		name string
		a, b value.Value
		want bool
	}{
		{"numbers", value.Number(1), value.Number(1), true},
		{"kinds differ", value.Number(1), value.Str("1"), false},
		{"strings by content", value.Str("duck"), value.Str("duck"), true},
		{"arrays element-wise", value.NewArray([]value.Value{value.Number(1)}), value.NewArray([]value.Value{value.Number(1)}), true},
		{"arrays of different length", value.NewArray(nil), value.NewArray([]value.Value{value.Nil()}), false},
		{"structs member-wise", twoStruct(1), twoStruct(1), true},
		{"structs differ", twoStruct(1), twoStruct(2), false},
		{"struct against array", twoStruct(1), value.NewArray(nil), false},
		{"self containing arrays", selfArray(), selfArray(), true},
		{"cycle against plain", selfArray(), value.NewArray([]value.Value{value.Number(1)}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := value.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestStringOfCycles(t *testing.T) {
	s := value.NewStruct([]string{"me"}, []value.Value{value.Nil()})
	s.Struct.Members["me"] = s

	tests := []struct {
		v    value.Value
		want string
	}{
		{selfArray(), "[[...]]"},
		{s, "{me:{...}}"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
