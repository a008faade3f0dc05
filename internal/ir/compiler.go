package ir

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"computeduck/internal/ast"
	"computeduck/internal/symbol"
	"computeduck/internal/token"
)

// Builtins is the part of the builtin registry the compiler needs.
// It is implemented by builtins.Registry.
type Builtins interface {
	Has(name string) bool
	Import(module string) error
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxGlobals bounds the number of global slots.
func WithMaxGlobals(n int) Option {
	return func(c *Compiler) {
		c.maxGlobals = n
	}
}

// WithLogger replaces the default compiler logger.
func WithLogger(log commonlog.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// Compiler compiles programs into units. The global scope survives between
// Compile calls so a REPL can refer to earlier definitions.
type Compiler struct {
	builtins   Builtins
	globals    *symbol.Table
	maxGlobals int
	log        commonlog.Logger

	err *CompileError
}

func NewCompiler(b Builtins, opts ...Option) *Compiler {
	c := &Compiler{
		builtins:   b,
		maxGlobals: symbol.MaxGlobals,
		log:        commonlog.GetLogger("computeduck.compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset forgets every global definition.
func (c *Compiler) Reset() {
	c.globals = symbol.NewTableWithLimit(c.maxGlobals)
}

// NumGlobals is the number of global slots defined so far.
func (c *Compiler) NumGlobals() int {
	return c.globals.NumGlobals()
}

// Compile compiles prog as the body of an implicit zero-parameter function.
// On error no unit is returned.
func (c *Compiler) Compile(prog *ast.Program) (*Unit, error) {
	if prog == nil {
		return nil, fmt.Errorf("nil program")
	}
	c.err = nil

	main := &Function{Name: "main"}
	fc := &funcCompiler{
		c:     c,
		fn:    main,
		chunk: &main.Chunk,
		table: c.globals,
	}
	for _, st := range prog.Stmts {
		fc.compileStmt(st)
		if c.err != nil {
			return nil, c.err
		}
	}
	main.NumLocals = c.globals.NumSlots()

	c.log.Debugf("compiled %s: %d instructions, %d globals", prog.File, len(main.Chunk.Code), c.globals.NumGlobals())
	return &Unit{
		ID:     uuid.NewString(),
		Source: prog.File,
		Main:   main,
	}, nil
}

func (c *Compiler) addError(pos token.Position, kind ErrorKind, format string, args ...interface{}) {
	if c.err != nil {
		return
	}
	c.err = &CompileError{
		Kind:   kind,
		Line:   pos.Line,
		Column: pos.Column,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// ---------- funcCompiler ----------

type funcCompiler struct {
	c     *Compiler
	fn    *Function
	chunk *Chunk
	table *symbol.Table
}

func (fc *funcCompiler) failed() bool {
	return fc.c.err != nil
}

func (fc *funcCompiler) addError(node ast.Node, kind ErrorKind, format string, args ...interface{}) {
	fc.c.addError(node.Pos(), kind, format, args...)
}

func (fc *funcCompiler) emit(node ast.Node, op OpCode, a, b, cc int) int {
	return fc.chunk.Emit(node.Pos().Line, op, a, b, cc)
}

func (fc *funcCompiler) emitConst(node ast.Node, idx int) int {
	return fc.emit(node, OpConstant, idx, 0, 0)
}

// define adds name to the current scope and reports symbol errors.
func (fc *funcCompiler) define(node ast.Node, name string, isStructConstructor bool) (symbol.Symbol, bool) {
	sym, err := fc.table.Define(name, isStructConstructor)
	switch {
	case err == nil:
		return sym, true
	case errors.Is(err, symbol.ErrDuplicate):
		fc.addError(node, DuplicateDefinition, "%q is already defined in this scope", name)
	case errors.Is(err, symbol.ErrTooManySymbols):
		fc.addError(node, TooManySymbols, "%v", err)
	default:
		fc.addError(node, DuplicateDefinition, "%v", err)
	}
	return sym, false
}

// emitDef stores the top of the stack into a freshly defined symbol.
func (fc *funcCompiler) emitDef(node ast.Node, sym symbol.Symbol) {
	if sym.Scope == symbol.Global {
		fc.emit(node, OpDefGlobal, sym.Index, 0, 0)
		return
	}
	fc.emit(node, OpDefLocal, sym.Index, sym.Depth, 0)
}

func (fc *funcCompiler) emitSet(node ast.Node, sym symbol.Symbol) {
	if sym.Scope == symbol.Global {
		fc.emit(node, OpSetGlobal, sym.Index, 0, 0)
		return
	}
	fc.emit(node, OpSetLocal, sym.Index, sym.Depth, boolOperand(sym.IsUpvalue))
}

func (fc *funcCompiler) emitGet(node ast.Node, sym symbol.Symbol) {
	switch sym.Scope {
	case symbol.Global:
		fc.emit(node, OpGetGlobal, sym.Index, 0, 0)
	case symbol.Local:
		fc.emit(node, OpGetLocal, sym.Index, sym.Depth, boolOperand(sym.IsUpvalue))
	case symbol.Builtin:
		fc.emitConst(node, fc.chunk.AddConstString(sym.Name))
		fc.emit(node, OpGetBuiltin, 0, 0, 0)
		return
	}
	if sym.IsStructConstructor {
		fc.emit(node, OpFunctionCall, 0, 0, 0)
	}
}

func boolOperand(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---------- Statements ----------

func (fc *funcCompiler) compileStmt(s ast.Stmt) {
	if fc.failed() {
		return
	}
	switch st := s.(type) {
	case *ast.BlockStmt:
		fc.compileBlock(st)

	case *ast.ExprStmt:
		if as, ok := st.X.(*ast.AssignExpr); ok {
			fc.compileAssign(as, false)
			return
		}
		fc.compileExpr(st.X)
		fc.emit(st, OpPop, 0, 0, 0)

	case *ast.VarStmt:
		fc.compileVar(st)

	case *ast.FnStmt:
		fc.compileNamedFunction(st, st.Name, st.Func)

	case *ast.ReturnStmt:
		if st.Result != nil {
			fc.compileExpr(st.Result)
			fc.emit(st, OpReturn, 1, 0, 0)
		} else {
			fc.emit(st, OpReturn, 0, 0, 0)
		}

	case *ast.IfStmt:
		fc.compileIf(st)

	case *ast.WhileStmt:
		fc.compileWhile(st)

	case *ast.StructStmt:
		fc.compileStructStmt(st)

	case *ast.ImportStmt:
		fc.addError(st, ImportFailed, "import(%q) was not expanded", st.Path)

	default:
		fc.addError(s, InvalidAssignTarget, "unsupported statement %T", s)
	}
}

// compileBlock opens a block scope. The SP_OFFSET pair is patched with the
// number of slots the block defined, or dropped when there are none.
func (fc *funcCompiler) compileBlock(b *ast.BlockStmt) {
	prev := fc.table
	fc.table = symbol.NewBlockTable(prev)
	open := fc.emit(b, OpSpOffset, 0, 0, 0)

	for _, st := range b.Stmts {
		fc.compileStmt(st)
	}

	base, count := fc.table.Close()
	fc.table = prev
	if fc.failed() {
		return
	}
	if count == 0 {
		fc.chunk.Remove(open)
		return
	}
	fc.chunk.Code[open].A = count
	fc.chunk.Code[open].B = base
	fc.chunk.Emit(b.RBrace.Line, OpSpOffset, -count, base, 0)
}

func (fc *funcCompiler) compileVar(st *ast.VarStmt) {
	// a function literal sees its own name
	if lit, ok := st.Value.(*ast.FuncLit); ok {
		sym, ok := fc.define(st, st.Name, false)
		if !ok {
			return
		}
		fc.compileFuncLit(lit, st.Name)
		fc.emitDef(st, sym)
		return
	}

	if st.Value != nil {
		fc.compileExpr(st.Value)
	} else {
		fc.emitConst(st, fc.chunk.AddConstNil())
	}
	sym, ok := fc.define(st, st.Name, false)
	if !ok {
		return
	}
	fc.emitDef(st, sym)
}

func (fc *funcCompiler) compileNamedFunction(node ast.Node, name string, lit *ast.FuncLit) {
	sym, found := fc.table.Resolve(name)
	if found && sym.Scope == symbol.Builtin {
		found = false
	}
	if !found {
		var ok bool
		if sym, ok = fc.define(node, name, false); !ok {
			return
		}
	}
	fc.compileFuncLit(lit, name)
	if found {
		fc.emitSet(node, sym)
	} else {
		fc.emitDef(node, sym)
	}
}

func (fc *funcCompiler) compileIf(s *ast.IfStmt) {
	fc.compileExpr(s.Cond)
	jumpIfFalseIdx := fc.emit(s, OpJumpIfFalse, 0, 0, 0)

	fc.compileStmt(s.Then)

	jumpEndIdx := fc.emit(s, OpJump, 0, 0, 0)
	fc.chunk.Code[jumpIfFalseIdx].A = len(fc.chunk.Code)

	if s.Else != nil {
		fc.compileStmt(s.Else)
	}
	fc.chunk.Code[jumpEndIdx].A = len(fc.chunk.Code)
}

func (fc *funcCompiler) compileWhile(s *ast.WhileStmt) {
	loopStart := len(fc.chunk.Code)

	fc.compileExpr(s.Cond)
	jumpIfFalseIdx := fc.emit(s, OpJumpIfFalse, 0, 0, 0)

	fc.compileStmt(s.Body)

	fc.emit(s, OpJump, loopStart, 0, 0)
	fc.chunk.Code[jumpIfFalseIdx].A = len(fc.chunk.Code)
}

// compileStructStmt turns a struct declaration into a zero-parameter
// constructor. Reading the name later calls it.
func (fc *funcCompiler) compileStructStmt(st *ast.StructStmt) {
	sym, ok := fc.define(st, st.Name, true)
	if !ok {
		return
	}
	fn := fc.compileFunction(st.Name, nil, func(sub *funcCompiler) {
		sub.compileStructLit(st.Body)
		sub.emit(st, OpReturn, 1, 0, 0)
	})
	fn.IsStructConstructor = true
	fc.emitConst(st, fc.chunk.AddConstFunction(fn))
	fc.emitDef(st, sym)
}

// ---------- Functions ----------

func (fc *funcCompiler) compileFuncLit(lit *ast.FuncLit, name string) {
	if name == "" {
		name = "<anonymous>"
	}
	fn := fc.compileFunction(name, lit.Params, func(sub *funcCompiler) {
		for _, st := range lit.Body.Stmts {
			sub.compileStmt(st)
		}
	})
	fc.emitConst(lit, fc.chunk.AddConstFunction(fn))
}

// compileFunction compiles a nested function with params in a fresh scope.
func (fc *funcCompiler) compileFunction(name string, params []*ast.IdentExpr, body func(sub *funcCompiler)) *Function {
	table := symbol.NewFunctionTable(fc.table)
	fn := &Function{
		Name:      name,
		NumParams: len(params),
		Depth:     table.Depth(),
	}
	sub := &funcCompiler{
		c:     fc.c,
		fn:    fn,
		chunk: &fn.Chunk,
		table: table,
	}
	for _, p := range params {
		if _, ok := sub.define(p, p.Name, false); !ok {
			return fn
		}
	}
	body(sub)
	sub.finish()
	fn.NumLocals = table.NumSlots()
	return fn
}

// finish appends RETURN 0 unless the body already ends in a return that no
// jump skips past.
func (fc *funcCompiler) finish() {
	code := fc.chunk.Code
	end := len(code)
	needsReturn := end == 0 || code[end-1].Op != OpReturn
	for _, in := range code {
		if (in.Op == OpJump || in.Op == OpJumpIfFalse) && in.A == end {
			needsReturn = true
		}
	}
	if needsReturn {
		line := 0
		if end > 0 {
			line = fc.chunk.Lines[end-1]
		}
		fc.chunk.Emit(line, OpReturn, 0, 0, 0)
	}
}

// ---------- Expressions ----------

func (fc *funcCompiler) compileExpr(e ast.Expr) {
	if fc.failed() {
		return
	}
	switch ex := e.(type) {
	case *ast.NumberLit:
		fc.emitConst(ex, fc.chunk.AddConstNumber(ex.Value))

	case *ast.StringLit:
		fc.emitConst(ex, fc.chunk.AddConstString(ex.Value))

	case *ast.BoolLit:
		fc.emitConst(ex, fc.chunk.AddConstBool(ex.Value))

	case *ast.NilLit:
		fc.emitConst(ex, fc.chunk.AddConstNil())

	case *ast.GroupExpr:
		fc.compileExpr(ex.X)

	case *ast.IdentExpr:
		sym, ok := fc.resolve(ex)
		if !ok {
			return
		}
		fc.emitGet(ex, sym)

	case *ast.ArrayLit:
		for _, el := range ex.Elements {
			fc.compileExpr(el)
		}
		fc.emit(ex, OpArray, len(ex.Elements), 0, 0)

	case *ast.StructLit:
		fc.compileStructLit(ex)

	case *ast.PrefixExpr:
		fc.compileExpr(ex.X)
		switch ex.Op {
		case token.Minus:
			fc.emit(ex, OpMinus, 0, 0, 0)
		case token.Not:
			fc.emit(ex, OpNot, 0, 0, 0)
		case token.Tilde:
			fc.emit(ex, OpBitNot, 0, 0, 0)
		default:
			fc.addError(ex, InvalidAssignTarget, "unsupported prefix operator %s", ex.Op)
		}

	case *ast.InfixExpr:
		fc.compileInfix(ex)

	case *ast.AssignExpr:
		fc.compileAssign(ex, true)

	case *ast.IndexExpr:
		fc.compileExpr(ex.X)
		fc.compileExpr(ex.Index)
		fc.emit(ex, OpGetIndex, 0, 0, 0)

	case *ast.MemberExpr:
		fc.compileExpr(ex.X)
		fc.emitConst(ex, fc.chunk.AddConstString(ex.Member))
		fc.emit(ex, OpGetStruct, 0, 0, 0)

	case *ast.CallExpr:
		fc.compileExpr(ex.Callee)
		for _, arg := range ex.Args {
			fc.compileExpr(arg)
		}
		fc.emit(ex, OpFunctionCall, len(ex.Args), 0, 0)

	case *ast.RefExpr:
		fc.compileRef(ex)

	case *ast.FuncLit:
		fc.compileFuncLit(ex, "")

	case *ast.DllImportExpr:
		if err := fc.c.builtins.Import(ex.Module); err != nil {
			fc.addError(ex, ImportFailed, "dllimport(%q): %v", ex.Module, err)
			return
		}
		fc.c.log.Debugf("dllimport %s", ex.Module)
		fc.emitConst(ex, fc.chunk.AddConstString(ex.Module))
		fc.emit(ex, OpDllImport, 0, 0, 0)

	default:
		fc.addError(e, InvalidAssignTarget, "unsupported expression of type %T", e)
	}
}

// resolve finds a name in scope or among the registry's builtins.
func (fc *funcCompiler) resolve(id *ast.IdentExpr) (symbol.Symbol, bool) {
	if sym, ok := fc.table.Resolve(id.Name); ok {
		return sym, true
	}
	if fc.c.builtins != nil && fc.c.builtins.Has(id.Name) {
		return fc.table.DefineBuiltin(id.Name), true
	}
	fc.addError(id, UndefinedVariable, "undefined variable %q", id.Name)
	return symbol.Symbol{}, false
}

// compileInfix pushes the right operand before the left one.
func (fc *funcCompiler) compileInfix(ex *ast.InfixExpr) {
	fc.compileExpr(ex.Right)
	fc.compileExpr(ex.Left)

	switch ex.Op {
	case token.Plus:
		fc.emit(ex, OpAdd, 0, 0, 0)
	case token.Minus:
		fc.emit(ex, OpSub, 0, 0, 0)
	case token.Star:
		fc.emit(ex, OpMul, 0, 0, 0)
	case token.Slash:
		fc.emit(ex, OpDiv, 0, 0, 0)
	case token.Eq:
		fc.emit(ex, OpEqual, 0, 0, 0)
	case token.NotEq:
		fc.emit(ex, OpEqual, 0, 0, 0)
		fc.emit(ex, OpNot, 0, 0, 0)
	case token.Gt:
		fc.emit(ex, OpGreater, 0, 0, 0)
	case token.Lt:
		fc.emit(ex, OpLess, 0, 0, 0)
	case token.GtEq:
		fc.emit(ex, OpLess, 0, 0, 0)
		fc.emit(ex, OpNot, 0, 0, 0)
	case token.LtEq:
		fc.emit(ex, OpGreater, 0, 0, 0)
		fc.emit(ex, OpNot, 0, 0, 0)
	case token.And:
		fc.emit(ex, OpAnd, 0, 0, 0)
	case token.Or:
		fc.emit(ex, OpOr, 0, 0, 0)
	case token.Amp:
		fc.emit(ex, OpBitAnd, 0, 0, 0)
	case token.Pipe:
		fc.emit(ex, OpBitOr, 0, 0, 0)
	case token.Caret:
		fc.emit(ex, OpBitXor, 0, 0, 0)
	default:
		fc.addError(ex, InvalidAssignTarget, "unsupported binary operator %s", ex.Op)
	}
}

func (fc *funcCompiler) compileStructLit(lit *ast.StructLit) {
	for _, m := range lit.Members {
		fc.compileExpr(m.Value)
		fc.emitConst(lit, fc.chunk.AddConstString(m.Name))
	}
	fc.emit(lit, OpStruct, len(lit.Members), 0, 0)
}

// compileAssign evaluates the value, then stores it into the target. With
// wantValue the target is read back so the assignment can nest.
func (fc *funcCompiler) compileAssign(as *ast.AssignExpr, wantValue bool) {
	switch target := as.Target.(type) {
	case *ast.IdentExpr:
		sym, found := fc.table.Resolve(target.Name)
		if found && sym.Scope == symbol.Builtin {
			fc.addError(target, InvalidAssignTarget, "cannot assign to builtin %q", target.Name)
			return
		}
		if found {
			fc.compileExpr(as.Value)
			fc.emitSet(as, sym)
			break
		}
		if lit, ok := as.Value.(*ast.FuncLit); ok {
			if sym, ok = fc.define(target, target.Name, false); !ok {
				return
			}
			fc.compileFuncLit(lit, target.Name)
		} else {
			fc.compileExpr(as.Value)
			if sym, ok = fc.define(target, target.Name, false); !ok {
				return
			}
		}
		fc.emitDef(as, sym)

	case *ast.IndexExpr:
		fc.compileExpr(as.Value)
		fc.compileExpr(target.X)
		fc.compileExpr(target.Index)
		fc.emit(as, OpSetIndex, 0, 0, 0)

	case *ast.MemberExpr:
		fc.compileExpr(as.Value)
		fc.compileExpr(target.X)
		fc.emitConst(target, fc.chunk.AddConstString(target.Member))
		fc.emit(as, OpSetStruct, 0, 0, 0)

	case *ast.CallExpr:
		fc.addError(as, AssignToCallExpression, "cannot assign to call expression %s", ast.ExprString(target))
		return

	default:
		fc.addError(as, InvalidAssignTarget, "cannot assign to %s", ast.ExprString(as.Target))
		return
	}

	if wantValue && !fc.failed() {
		fc.compileExpr(as.Target)
	}
}

// compileRef handles ref x and ref a[i].
func (fc *funcCompiler) compileRef(ex *ast.RefExpr) {
	switch target := ex.Target.(type) {
	case *ast.IdentExpr:
		sym, ok := fc.refSymbol(ex, target)
		if !ok {
			return
		}
		if sym.Scope == symbol.Global {
			fc.emit(ex, OpRefGlobal, sym.Index, 0, 0)
		} else {
			fc.emit(ex, OpRefLocal, sym.Index, sym.Depth, boolOperand(sym.IsUpvalue))
		}

	case *ast.IndexExpr:
		id, ok := target.X.(*ast.IdentExpr)
		if !ok {
			fc.addError(ex, InvalidReferenceTarget, "cannot take a reference to %s", ast.ExprString(target))
			return
		}
		sym, ok := fc.refSymbol(ex, id)
		if !ok {
			return
		}
		fc.compileExpr(target.Index)
		if sym.Scope == symbol.Global {
			fc.emit(ex, OpRefIndexGlobal, sym.Index, 0, 0)
		} else {
			fc.emit(ex, OpRefIndexLocal, sym.Index, sym.Depth, boolOperand(sym.IsUpvalue))
		}

	default:
		fc.addError(ex, InvalidReferenceTarget, "cannot take a reference to %s", ast.ExprString(ex.Target))
	}
}

func (fc *funcCompiler) refSymbol(ex *ast.RefExpr, id *ast.IdentExpr) (symbol.Symbol, bool) {
	sym, ok := fc.table.Resolve(id.Name)
	if !ok && fc.c.builtins != nil && fc.c.builtins.Has(id.Name) {
		sym, ok = symbol.Symbol{Name: id.Name, Scope: symbol.Builtin}, true
	}
	if !ok {
		fc.addError(id, UndefinedVariable, "undefined variable %q", id.Name)
		return sym, false
	}
	if sym.Scope == symbol.Builtin {
		fc.addError(ex, InvalidReferenceTarget, "cannot take a reference to builtin %q", id.Name)
		return sym, false
	}
	return sym, true
}
