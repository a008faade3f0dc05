package ir

import (
	"fmt"
	"io"
	"strconv"
)

// Disassemble writes a listing of fn and every function nested in its
// constant table.
func Disassemble(w io.Writer, fn *Function) {
	seen := make(map[*Function]bool)
	disassemble(w, fn, seen)
}

func disassemble(w io.Writer, fn *Function, seen map[*Function]bool) {
	if fn == nil || seen[fn] {
		return
	}
	seen[fn] = true

	fmt.Fprintf(w, "== %s (params=%d locals=%d depth=%d) ==\n", fn.Name, fn.NumParams, fn.NumLocals, fn.Depth)
	for ip, in := range fn.Chunk.Code {
		fmt.Fprintf(w, "%04d %4d %s\n", ip, fn.Chunk.Line(ip), FormatInstruction(&fn.Chunk, in))
	}
	for _, c := range fn.Chunk.Consts {
		if c.Kind == ConstFunction {
			fmt.Fprintln(w)
			disassemble(w, c.Func, seen)
		}
	}
}

// FormatInstruction renders one instruction with its operands.
func FormatInstruction(ch *Chunk, in Instruction) string {
	name := in.Op.String()
	switch in.Op {
	case OpConstant:
		return fmt.Sprintf("%-20s %d (%s)", name, in.A, formatConst(ch, in.A))
	case OpJump, OpJumpIfFalse, OpDefGlobal, OpSetGlobal, OpGetGlobal, OpRefGlobal,
		OpRefIndexGlobal, OpArray, OpStruct, OpFunctionCall, OpReturn:
		return fmt.Sprintf("%-20s %d", name, in.A)
	case OpDefLocal, OpSetLocal, OpGetLocal, OpRefLocal, OpRefIndexLocal:
		s := fmt.Sprintf("%-20s %d depth=%d", name, in.A, in.B)
		if in.C != 0 {
			s += " upvalue"
		}
		return s
	case OpSpOffset:
		return fmt.Sprintf("%-20s %d base=%d", name, in.A, in.B)
	default:
		return name
	}
}

func formatConst(ch *Chunk, idx int) string {
	if idx < 0 || idx >= len(ch.Consts) {
		return "?"
	}
	c := ch.Consts[idx]
	switch c.Kind {
	case ConstNumber:
		return strconv.FormatFloat(c.Number, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.String)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstNil:
		return "nil"
	case ConstFunction:
		return "<fn " + c.Func.Name + ">"
	}
	return "?"
}
