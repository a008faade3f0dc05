package value

import (
	"fmt"
	"strconv"
	"strings"

	"computeduck/internal/ir"
)

// Kind is the type of a value at runtime.
type Kind int

const (
	KindNil Kind = iota
	KindNumber
	KindBool
	KindString
	KindArray
	KindStruct
	KindFunction
	KindRef
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	case KindRef:
		return "ref"
	case KindBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// String is shared, mutable text.
type String struct {
	S string
}

// Array is a shared, mutable sequence.
type Array struct {
	Elems []Value
}

// Struct is a member snapshot taken when the instance was built.
type Struct struct {
	Members map[string]Value
	Order   []string
}

// Activation is the storage window of one live call. Locals of the call
// start at Base on the operand stack. Parent is the activation the callee
// was created in, so Depth decreases by one along the chain.
type Activation struct {
	Base   int
	Depth  int
	Parent *Activation
	Live   bool
}

// Closure is a function bound to the activation it was created in.
type Closure struct {
	Fn  *ir.Function
	Env *Activation
}

// NativeFn is a host callable. host is passed through from the VM untouched.
// When hasReturn is false the VM pushes nothing.
type NativeFn func(host interface{}, args []Value) (hasReturn bool, result Value, err error)

// Builtin is either a host callable or a named constant.
type Builtin struct {
	Name    string
	Fn      NativeFn
	Const   Value
	IsConst bool
}

// Value is a universal value for the VM/runtime.
type Value struct {
	Kind    Kind
	Num     float64
	Bool    bool
	Str     *String
	Arr     *Array
	Struct  *Struct
	Fn      *Closure
	Ref     Handle
	Builtin *Builtin
}

func (v Value) String() string {
	var b strings.Builder
	v.format(&b, nil)
	return b.String()
}

// format writes v. Containers already being printed further up show as
// [...] or {...}.
func (v Value) format(b *strings.Builder, path map[interface{}]bool) {
	switch v.Kind {
	case KindNil:
		b.WriteString("nil")
	case KindNumber:
		b.WriteString(FormatNumber(v.Num))
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindString:
		b.WriteString(v.Str.S)
	case KindArray:
		if path[v.Arr] {
			b.WriteString("[...]")
			return
		}
		path = enter(path, v.Arr)
		b.WriteByte('[')
		for i, el := range v.Arr.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			el.format(b, path)
		}
		b.WriteByte(']')
		delete(path, v.Arr)
	case KindStruct:
		if path[v.Struct] {
			b.WriteString("{...}")
			return
		}
		path = enter(path, v.Struct)
		b.WriteByte('{')
		for i, name := range v.Struct.Order {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(name)
			b.WriteByte(':')
			v.Struct.Members[name].format(b, path)
		}
		b.WriteByte('}')
		delete(path, v.Struct)
	case KindFunction:
		if v.Fn != nil && v.Fn.Fn != nil {
			fmt.Fprintf(b, "<fn %s>", v.Fn.Fn.Name)
			return
		}
		b.WriteString("<fn>")
	case KindRef:
		fmt.Fprintf(b, "<ref #%d>", v.Ref.Index)
	case KindBuiltin:
		fmt.Fprintf(b, "<builtin %s>", v.Builtin.Name)
	default:
		b.WriteString("<invalid>")
	}
}

func enter(path map[interface{}]bool, c interface{}) map[interface{}]bool {
	if path == nil {
		path = make(map[interface{}]bool)
	}
	path[c] = true
	return path
}

// FormatNumber prints integral numbers without a fraction.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Truthy reports whether v is a bool holding true.
func (v Value) Truthy() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// Helpers

func Nil() Value {
	return Value{Kind: KindNil}
}

func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func Str(s string) Value {
	return Value{Kind: KindString, Str: &String{S: s}}
}

// NewArray wraps elems without copying.
func NewArray(elems []Value) Value {
	return Value{Kind: KindArray, Arr: &Array{Elems: elems}}
}

// NewStruct builds a struct from parallel name/value slices. A repeated
// name keeps the last value and its first position.
func NewStruct(names []string, vals []Value) Value {
	s := &Struct{Members: make(map[string]Value, len(names))}
	for i, name := range names {
		if _, seen := s.Members[name]; !seen {
			s.Order = append(s.Order, name)
		}
		s.Members[name] = vals[i]
	}
	return Value{Kind: KindStruct, Struct: s}
}

func NewClosure(fn *ir.Function, env *Activation) Value {
	return Value{Kind: KindFunction, Fn: &Closure{Fn: fn, Env: env}}
}

func NewRef(h Handle) Value {
	return Value{Kind: KindRef, Ref: h}
}

func NewBuiltin(b *Builtin) Value {
	return Value{Kind: KindBuiltin, Builtin: b}
}

// FromConstant materializes a constant pool entry. Function constants are
// returned unbound; the VM binds them to the current activation.
func FromConstant(c ir.Constant) Value {
	switch c.Kind {
	case ir.ConstNumber:
		return Number(c.Number)
	case ir.ConstString:
		return Str(c.String)
	case ir.ConstBool:
		return Bool(c.Bool)
	case ir.ConstFunction:
		return NewClosure(c.Func, nil)
	default:
		return Nil()
	}
}
