package ir

// OpCode is an opcode for ComputeDuck VM bytecode
type OpCode byte

const (
	OpConstant OpCode = iota // A = constant index

	// Math
	OpAdd
	OpSub
	OpMul
	OpDiv

	// Compare / logic
	OpEqual
	OpGreater
	OpLess
	OpNot
	OpMinus
	OpAnd
	OpOr

	// Bits
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot

	// Thread managment
	OpJump        // A = absolute ip
	OpJumpIfFalse // A = absolute ip, pop cond

	// Variables. For locals B = depth of the defining function, C = 1 when
	// the symbol was resolved from an enclosing function.
	OpDefGlobal // A = global index; pop value
	OpSetGlobal
	OpGetGlobal
	OpDefLocal // A = slot
	OpSetLocal
	OpGetLocal

	// Aggregates
	OpArray     // A = number of elements
	OpGetIndex  // pop index, pop container
	OpSetIndex  // pop index, pop container, pop value
	OpStruct    // A = number of members; pairs of (value, name)
	OpGetStruct // pop name, pop struct
	OpSetStruct // pop name, pop struct, pop value

	// References
	OpRefGlobal      // A = global index
	OpRefLocal       // A = slot, B = depth, C = upvalue
	OpRefIndexGlobal // A = global index; pop index
	OpRefIndexLocal  // A = slot, B = depth, C = upvalue; pop index

	// Calls / returns
	OpFunctionCall // A = number of arguments, callee below them
	OpReturn       // A = 0 (without result) or 1 (with result returning)
	OpGetBuiltin   // pop name constant

	OpSpOffset  // A = signed slot count, B = first slot of the block
	OpDllImport // pop module name
	OpPop       // drop temporaries down to the frame's locals
)

var opNames = [...]string{
	OpConstant:       "OP_CONSTANT",
	OpAdd:            "OP_ADD",
	OpSub:            "OP_SUB",
	OpMul:            "OP_MUL",
	OpDiv:            "OP_DIV",
	OpEqual:          "OP_EQUAL",
	OpGreater:        "OP_GREATER",
	OpLess:           "OP_LESS",
	OpNot:            "OP_NOT",
	OpMinus:          "OP_MINUS",
	OpAnd:            "OP_AND",
	OpOr:             "OP_OR",
	OpBitAnd:         "OP_BIT_AND",
	OpBitOr:          "OP_BIT_OR",
	OpBitXor:         "OP_BIT_XOR",
	OpBitNot:         "OP_BIT_NOT",
	OpJump:           "OP_JUMP",
	OpJumpIfFalse:    "OP_JUMP_IF_FALSE",
	OpDefGlobal:      "OP_DEF_GLOBAL",
	OpSetGlobal:      "OP_SET_GLOBAL",
	OpGetGlobal:      "OP_GET_GLOBAL",
	OpDefLocal:       "OP_DEF_LOCAL",
	OpSetLocal:       "OP_SET_LOCAL",
	OpGetLocal:       "OP_GET_LOCAL",
	OpArray:          "OP_ARRAY",
	OpGetIndex:       "OP_GET_INDEX",
	OpSetIndex:       "OP_SET_INDEX",
	OpStruct:         "OP_STRUCT",
	OpGetStruct:      "OP_GET_STRUCT",
	OpSetStruct:      "OP_SET_STRUCT",
	OpRefGlobal:      "OP_REF_GLOBAL",
	OpRefLocal:       "OP_REF_LOCAL",
	OpRefIndexGlobal: "OP_REF_INDEX_GLOBAL",
	OpRefIndexLocal:  "OP_REF_INDEX_LOCAL",
	OpFunctionCall:   "OP_FUNCTION_CALL",
	OpReturn:         "OP_RETURN",
	OpGetBuiltin:     "OP_GET_BUILTIN",
	OpSpOffset:       "OP_SP_OFFSET",
	OpDllImport:      "OP_DLL_IMPORT",
	OpPop:            "OP_POP",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "OP_UNKNOWN"
}

// Instruction is one bytecode instruction
// A, B and C are operands (semantics depend on Op)
type Instruction struct {
	Op OpCode
	A  int
	B  int
	C  int
}

type ConstKind int

const (
	ConstNumber ConstKind = iota
	ConstString
	ConstBool
	ConstNil
	ConstFunction
)

// Constant is written to the chunk's constant table
type Constant struct {
	Kind   ConstKind
	Number float64
	String string
	Bool   bool
	Func   *Function
}

// Chunk is a sequence of instructions plus a constant table
type Chunk struct {
	Code   []Instruction
	Consts []Constant
	Lines  []int // source line per instruction
}

// Function is a compiled function prototype. Depth is its lexical
// nesting level; the top-level function has depth 0.
type Function struct {
	Name                string
	NumParams           int
	NumLocals           int // Number of local slots, including parameters and block locals
	Depth               int
	Chunk               Chunk
	IsStructConstructor bool
}

// Unit is one compiled program.
type Unit struct {
	ID     string
	Source string
	Main   *Function
}

// AddConstNumber adds a number constant and returns its index.
func (c *Chunk) AddConstNumber(v float64) int {
	c.Consts = append(c.Consts, Constant{
		Kind:   ConstNumber,
		Number: v,
	})
	return len(c.Consts) - 1
}

// AddConstString adds a string constant and returns its index.
func (c *Chunk) AddConstString(s string) int {
	c.Consts = append(c.Consts, Constant{
		Kind:   ConstString,
		String: s,
	})
	return len(c.Consts) - 1
}

// AddConstBool adds a boolean constant and returns its index.
func (c *Chunk) AddConstBool(b bool) int {
	c.Consts = append(c.Consts, Constant{
		Kind: ConstBool,
		Bool: b,
	})
	return len(c.Consts) - 1
}

// AddConstNil adds a nil constant and returns its index.
func (c *Chunk) AddConstNil() int {
	c.Consts = append(c.Consts, Constant{
		Kind: ConstNil,
	})
	return len(c.Consts) - 1
}

// AddConstFunction adds a function prototype and returns its index.
func (c *Chunk) AddConstFunction(fn *Function) int {
	c.Consts = append(c.Consts, Constant{
		Kind: ConstFunction,
		Func: fn,
	})
	return len(c.Consts) - 1
}

// Emit appends an instruction to the end of the chunk.
func (c *Chunk) Emit(line int, op OpCode, a, b, cc int) int {
	c.Code = append(c.Code, Instruction{
		Op: op,
		A:  a,
		B:  b,
		C:  cc,
	})
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// Remove deletes the instruction at idx and retargets jumps past it.
func (c *Chunk) Remove(idx int) {
	c.Code = append(c.Code[:idx], c.Code[idx+1:]...)
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	for i := range c.Code {
		in := &c.Code[i]
		if (in.Op == OpJump || in.Op == OpJumpIfFalse) && in.A > idx {
			in.A--
		}
	}
}

// Line returns the source line of instruction ip, or 0.
func (c *Chunk) Line(ip int) int {
	if ip >= 0 && ip < len(c.Lines) {
		return c.Lines[ip]
	}
	return 0
}
