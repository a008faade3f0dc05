package vm

import (
	"github.com/tliron/commonlog"

	"computeduck/internal/config"
	"computeduck/internal/ir"
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

// Frame represents a function call frame.
//
// Stack layout for a call with n arguments:
//
//	[callee][arg0 .. argN-1][locals ..][temporaries ..]
//	        ^Act.Base                  ^Top
type Frame struct {
	Fn  *ir.Function
	IP  int // Instruction pointer: index into Fn.Chunk.Code
	Top int // First temporary slot; OP_POP truncates the stack here
	Act *value.Activation
}

// VM is a stack-based virtual machine executing compiled units.
type VM struct {
	reg *builtins.Registry
	env builtins.Env
	cfg config.VM
	log commonlog.Logger

	stack   []value.Value
	sp      int // Stack pointer: next free index
	frames  []Frame
	globals []value.Value
	arena   *value.Arena

	keepGlobals bool
	lastPopped  value.Value
}

type Option func(*VM)

// WithKeepGlobals makes globals survive between runs, as the REPL needs.
func WithKeepGlobals() Option {
	return func(vm *VM) { vm.keepGlobals = true }
}

func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) { vm.log = log }
}

func New(reg *builtins.Registry, env builtins.Env, cfg config.VM, opts ...Option) *VM {
	if cfg.StackSize <= 0 {
		cfg.StackSize = config.DefaultStackSize
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = config.DefaultMaxFrames
	}
	if cfg.MaxGlobals <= 0 {
		cfg.MaxGlobals = config.DefaultMaxGlobals
	}
	vm := &VM{
		reg:     reg,
		env:     env,
		cfg:     cfg,
		log:     commonlog.GetLogger("computeduck.vm"),
		stack:   make([]value.Value, cfg.StackSize),
		frames:  make([]Frame, 0, cfg.MaxFrames),
		globals: make([]value.Value, cfg.MaxGlobals),
		arena:   value.NewArena(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Run executes the unit's main function.
func (vm *VM) Run(u *ir.Unit) error {
	vm.log.Debugf("running unit %s (%s)", u.ID, u.Source)
	return vm.RunFunction(u.Main)
}

// RunFunction executes fn as the outermost frame.
func (vm *VM) RunFunction(fn *ir.Function) error {
	vm.reset()

	// slot 0 holds the main closure, like a callee below its arguments
	act := &value.Activation{Base: 1, Depth: fn.Depth, Live: true}
	vm.stack[0] = value.NewClosure(fn, nil)
	vm.sp = 1
	if err := vm.reserve(fn.NumLocals); err != nil {
		return err
	}
	vm.frames = append(vm.frames, Frame{Fn: fn, Top: vm.sp, Act: act})

	err := vm.loop()
	act.Live = false
	if err != nil {
		vm.log.Debugf("run failed: %s", err)
	}
	return err
}

func (vm *VM) reset() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = value.Value{}
	}
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.lastPopped = value.Value{}
	if vm.keepGlobals {
		vm.arena.ReleaseStack(0)
		return
	}
	vm.arena.Reset()
	for i := range vm.globals {
		vm.globals[i] = value.Value{}
	}
}

// Reset clears globals and invalidates every outstanding reference.
func (vm *VM) Reset() {
	keep := vm.keepGlobals
	vm.keepGlobals = false
	vm.reset()
	vm.keepGlobals = keep
}

// Global returns the raw content of global slot i.
func (vm *VM) Global(i int) value.Value {
	if i < 0 || i >= len(vm.globals) {
		return value.Nil()
	}
	return vm.globals[i]
}

// StackTop returns the value most recently discarded by an expression
// statement.
func (vm *VM) StackTop() value.Value {
	return vm.lastPopped
}

// LiveRefs reports how many references still name live storage.
func (vm *VM) LiveRefs() int {
	return vm.arena.Live()
}

func (vm *VM) loop() error {
	for len(vm.frames) > 0 {
		fr := &vm.frames[len(vm.frames)-1]
		code := fr.Fn.Chunk.Code
		if fr.IP >= len(code) {
			if len(vm.frames) == 1 {
				return nil
			}
			if err := vm.doReturn(false); err != nil {
				return vm.located(err, fr, fr.IP-1)
			}
			continue
		}

		ip := fr.IP
		inst := code[ip]
		fr.IP++
		if vm.cfg.Trace {
			vm.log.Debugf("%s %04d %s sp=%d", fr.Fn.Name, ip, ir.FormatInstruction(&fr.Fn.Chunk, inst), vm.sp)
		}
		if err := vm.exec(fr, inst); err != nil {
			return vm.located(err, fr, ip)
		}
	}
	return nil
}

func (vm *VM) located(err error, fr *Frame, ip int) error {
	rerr, ok := err.(*RuntimeError)
	if !ok {
		rerr = &RuntimeError{Kind: BuiltinFailed, Msg: err.Error(), Err: err}
	}
	if rerr.Line == 0 {
		rerr.Func = fr.Fn.Name
		rerr.Line = fr.Fn.Chunk.Line(ip)
	}
	return rerr
}

func (vm *VM) exec(fr *Frame, inst ir.Instruction) error {
	switch inst.Op {
	case ir.OpConstant:
		c := fr.Fn.Chunk.Consts[inst.A]
		if c.Kind == ir.ConstFunction {
			return vm.push(value.NewClosure(c.Func, fr.Act))
		}
		return vm.push(value.FromConstant(c))

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv,
		ir.OpEqual, ir.OpGreater, ir.OpLess, ir.OpAnd, ir.OpOr,
		ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor:
		left, err := vm.popValue()
		if err != nil {
			return err
		}
		right, err := vm.popValue()
		if err != nil {
			return err
		}
		res, err := binaryOp(inst.Op, left, right)
		if err != nil {
			return err
		}
		return vm.push(res)

	case ir.OpNot, ir.OpMinus, ir.OpBitNot:
		v, err := vm.popValue()
		if err != nil {
			return err
		}
		res, err := unaryOp(inst.Op, v)
		if err != nil {
			return err
		}
		return vm.push(res)

	case ir.OpJump:
		fr.IP = inst.A
		return nil

	case ir.OpJumpIfFalse:
		cond, err := vm.popValue()
		if err != nil {
			return err
		}
		b, ok := cond.Truthy()
		if !ok {
			return errorf(TypeMismatch, "condition must be bool, got %s", cond.Kind)
		}
		if !b {
			fr.IP = inst.A
		}
		return nil

	case ir.OpDefGlobal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.checkGlobal(inst.A); err != nil {
			return err
		}
		vm.globals[inst.A] = v
		return nil

	case ir.OpSetGlobal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.checkGlobal(inst.A); err != nil {
			return err
		}
		return vm.assign(value.Location{Kind: value.LocGlobal, Slot: inst.A}, v)

	case ir.OpGetGlobal:
		if err := vm.checkGlobal(inst.A); err != nil {
			return err
		}
		return vm.push(vm.globals[inst.A])

	case ir.OpDefLocal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		slot, err := vm.localSlot(fr, inst)
		if err != nil {
			return err
		}
		vm.stack[slot] = v
		return nil

	case ir.OpSetLocal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		slot, err := vm.localSlot(fr, inst)
		if err != nil {
			return err
		}
		return vm.assign(value.Location{Kind: value.LocStack, Slot: slot}, v)

	case ir.OpGetLocal:
		slot, err := vm.localSlot(fr, inst)
		if err != nil {
			return err
		}
		return vm.push(vm.stack[slot])

	case ir.OpArray:
		return vm.makeArray(inst.A)

	case ir.OpGetIndex:
		return vm.getIndex()

	case ir.OpSetIndex:
		return vm.setIndex()

	case ir.OpStruct:
		return vm.makeStruct(inst.A)

	case ir.OpGetStruct:
		return vm.getMember()

	case ir.OpSetStruct:
		return vm.setMember()

	case ir.OpRefGlobal:
		if err := vm.checkGlobal(inst.A); err != nil {
			return err
		}
		return vm.pushRef(value.Location{Kind: value.LocGlobal, Slot: inst.A})

	case ir.OpRefLocal:
		slot, err := vm.localSlot(fr, inst)
		if err != nil {
			return err
		}
		return vm.pushRef(value.Location{Kind: value.LocStack, Slot: slot})

	case ir.OpRefIndexGlobal:
		if err := vm.checkGlobal(inst.A); err != nil {
			return err
		}
		return vm.refIndex(value.Location{Kind: value.LocGlobal, Slot: inst.A})

	case ir.OpRefIndexLocal:
		slot, err := vm.localSlot(fr, inst)
		if err != nil {
			return err
		}
		return vm.refIndex(value.Location{Kind: value.LocStack, Slot: slot})

	case ir.OpFunctionCall:
		return vm.call(inst.A)

	case ir.OpReturn:
		return vm.doReturn(inst.A == 1)

	case ir.OpGetBuiltin:
		name, err := vm.popName()
		if err != nil {
			return err
		}
		b, ok := vm.reg.Lookup(name)
		if !ok {
			return errorf(UnknownBuiltin, "unknown builtin %q", name)
		}
		if b.IsConst {
			return vm.push(b.Const)
		}
		return vm.push(value.NewBuiltin(b))

	case ir.OpSpOffset:
		base := fr.Act.Base + inst.B
		n := inst.A
		if n < 0 {
			n = -n
		}
		vm.releaseSlots(base, base+n)
		return nil

	case ir.OpDllImport:
		name, err := vm.popName()
		if err != nil {
			return err
		}
		if err := vm.reg.Import(name); err != nil {
			return errorf(UnknownBuiltin, "dllimport: %s", err)
		}
		return nil

	case ir.OpPop:
		if vm.sp > fr.Top {
			vm.lastPopped = vm.stack[vm.sp-1]
		}
		for i := fr.Top; i < vm.sp; i++ {
			vm.stack[i] = value.Value{}
		}
		vm.sp = fr.Top
		return nil

	default:
		return errorf(TypeMismatch, "unknown opcode %d", inst.Op)
	}
}

func (vm *VM) checkGlobal(i int) error {
	if i < 0 || i >= len(vm.globals) {
		return errorf(GlobalOverflow, "global slot %d exceeds limit %d", i, len(vm.globals))
	}
	return nil
}

// localSlot maps a local operand triple to an absolute stack slot. A is
// the index within the owning activation, B its depth and C marks an
// upvalue that lives in an enclosing activation.
func (vm *VM) localSlot(fr *Frame, inst ir.Instruction) (int, error) {
	if inst.A < 0 {
		return 0, errorf(StackUnderflow, "negative local slot %d", inst.A)
	}
	act := fr.Act
	if inst.C == 1 {
		for act != nil && act.Depth != inst.B {
			act = act.Parent
		}
		if act == nil || !act.Live {
			return 0, errorf(DanglingReference, "captured variable of depth %d is no longer live", inst.B)
		}
	}
	slot := act.Base + inst.A
	if slot >= vm.sp {
		return 0, errorf(StackUnderflow, "local slot %d outside live stack", slot)
	}
	return slot, nil
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= len(vm.stack) {
		return errorf(StackOverflow, "stack overflow (limit %d)", len(vm.stack))
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

// pop removes the top temporary. It never reaches into the frame's locals.
func (vm *VM) pop() (value.Value, error) {
	floor := 0
	if n := len(vm.frames); n > 0 {
		floor = vm.frames[n-1].Top
	}
	if vm.sp <= floor {
		return value.Value{}, errorf(StackUnderflow, "expression produced no value")
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = value.Value{}
	return v, nil
}

// popValue pops and dereferences.
func (vm *VM) popValue() (value.Value, error) {
	v, err := vm.pop()
	if err != nil {
		return value.Value{}, err
	}
	return vm.Deref(v)
}

func (vm *VM) popName() (string, error) {
	v, err := vm.popValue()
	if err != nil {
		return "", err
	}
	if v.Kind != value.KindString {
		return "", errorf(TypeMismatch, "expected name, got %s", v.Kind)
	}
	return v.Str.S, nil
}

// reserve pushes n nil slots.
func (vm *VM) reserve(n int) error {
	if vm.sp+n > len(vm.stack) {
		return errorf(StackOverflow, "stack overflow (limit %d)", len(vm.stack))
	}
	for i := 0; i < n; i++ {
		vm.stack[vm.sp] = value.Value{}
		vm.sp++
	}
	return nil
}

func (vm *VM) call(argc int) error {
	calleeIdx := vm.sp - argc - 1
	if calleeIdx < 0 {
		return errorf(StackUnderflow, "call with %d arguments on short stack", argc)
	}
	callee, err := vm.Deref(vm.stack[calleeIdx])
	if err != nil {
		return err
	}

	switch callee.Kind {
	case value.KindFunction:
		return vm.callClosure(callee.Fn, argc)
	case value.KindBuiltin:
		return vm.callBuiltin(callee.Builtin, argc)
	default:
		return errorf(NotCallable, "cannot call %s", callee.Kind)
	}
}

func (vm *VM) callClosure(clo *value.Closure, argc int) error {
	fn := clo.Fn
	if argc != fn.NumParams {
		return errorf(ArityMismatch, "%s expects %d arguments, got %d", fn.Name, fn.NumParams, argc)
	}
	if len(vm.frames) >= vm.cfg.MaxFrames {
		return errorf(FrameOverflow, "call depth exceeds %d", vm.cfg.MaxFrames)
	}
	base := vm.sp - argc
	if err := vm.reserve(fn.NumLocals - fn.NumParams); err != nil {
		return err
	}
	act := &value.Activation{Base: base, Depth: fn.Depth, Parent: clo.Env, Live: true}
	vm.frames = append(vm.frames, Frame{Fn: fn, Top: vm.sp, Act: act})
	return nil
}

func (vm *VM) callBuiltin(b *value.Builtin, argc int) error {
	if b.IsConst {
		return errorf(NotCallable, "%s is a constant", b.Name)
	}
	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		v, err := vm.Deref(vm.stack[vm.sp-argc+i])
		if err != nil {
			return err
		}
		args[i] = v
	}
	for i := vm.sp - argc - 1; i < vm.sp; i++ {
		vm.stack[i] = value.Value{}
	}
	vm.sp -= argc + 1

	hasReturn, result, err := b.Fn(vm.env, args)
	if err != nil {
		return &RuntimeError{Kind: BuiltinFailed, Msg: err.Error(), Err: err}
	}
	if hasReturn {
		return vm.push(result)
	}
	return nil
}

func (vm *VM) doReturn(hasValue bool) error {
	var ret value.Value
	if hasValue {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		ret = v
	}

	fr := vm.frames[len(vm.frames)-1]
	base := fr.Act.Base
	fr.Act.Live = false
	vm.releaseSlots(base, vm.sp)
	vm.frames = vm.frames[:len(vm.frames)-1]

	// drop the callee below the arguments
	vm.sp = base - 1
	vm.stack[vm.sp] = value.Value{}
	if hasValue {
		return vm.push(ret)
	}
	return nil
}
