// Package driver wires the pipeline: preprocess, parse, fold, compile and
// run.
package driver

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"computeduck/internal/ast"
	"computeduck/internal/config"
	"computeduck/internal/fold"
	"computeduck/internal/ir"
	"computeduck/internal/parser"
	"computeduck/internal/preprocess"
	"computeduck/internal/runtime"
	"computeduck/internal/runtime/builtins"
	"computeduck/internal/vm"
)

// SyntaxError collects the lexer, parser and import errors of one source.
type SyntaxError struct {
	File string
	Msgs []string
}

func (e *SyntaxError) Error() string {
	if len(e.Msgs) == 1 {
		return e.Msgs[0]
	}
	return fmt.Sprintf("%d syntax errors:\n  %s", len(e.Msgs), strings.Join(e.Msgs, "\n  "))
}

// Driver owns one registry, compiler and VM. Globals persist across
// compiles until Reset.
type Driver struct {
	cfg      config.Config
	reg      *builtins.Registry
	compiler *ir.Compiler
	machine  *vm.VM
	loader   *preprocess.Loader
	noFold   bool
	log      commonlog.Logger
}

type Option func(*driverOptions)

type driverOptions struct {
	vmOpts []vm.Option
	noFold bool
	loader *preprocess.Loader
}

// WithKeepGlobals keeps VM globals across runs, for the REPL.
func WithKeepGlobals() Option {
	return func(o *driverOptions) { o.vmOpts = append(o.vmOpts, vm.WithKeepGlobals()) }
}

// WithoutFolding skips the constant folding pass.
func WithoutFolding() Option {
	return func(o *driverOptions) { o.noFold = true }
}

func WithLoader(l *preprocess.Loader) Option {
	return func(o *driverOptions) { o.loader = l }
}

func New(cfg config.Config, env builtins.Env, opts ...Option) *Driver {
	var o driverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		o.loader = preprocess.New()
	}
	reg := runtime.NewRegistry()
	return &Driver{
		cfg:      cfg,
		reg:      reg,
		compiler: ir.NewCompiler(reg, ir.WithMaxGlobals(cfg.VM.MaxGlobals)),
		machine:  vm.New(reg, env, cfg.VM, o.vmOpts...),
		loader:   o.loader,
		noFold:   o.noFold,
		log:      commonlog.GetLogger("computeduck.driver"),
	}
}

// Registry exposes the builtins shared by compiler and VM.
func (d *Driver) Registry() *builtins.Registry {
	return d.reg
}

func (d *Driver) VM() *vm.VM {
	return d.machine
}

// Reset forgets every global known to the compiler and VM. Imported
// builtin modules stay loaded.
func (d *Driver) Reset() {
	d.compiler.Reset()
	d.machine.Reset()
}

// CompileFile loads path with its imports and compiles it.
func (d *Driver) CompileFile(path string) (*ir.Unit, error) {
	prog, errs := d.loader.LoadFile(path)
	if len(errs) > 0 {
		return nil, syntaxError(path, errs)
	}
	return d.compile(prog)
}

// CompileSource compiles src as if read from file name.
func (d *Driver) CompileSource(name, src string) (*ir.Unit, error) {
	prog, perrs := parser.ParseSource(name, src)
	if len(perrs) > 0 {
		return nil, &SyntaxError{File: name, Msgs: perrs}
	}
	prog, errs := d.loader.Expand(prog)
	if len(errs) > 0 {
		return nil, syntaxError(name, errs)
	}
	return d.compile(prog)
}

func (d *Driver) compile(prog *ast.Program) (*ir.Unit, error) {
	if !d.noFold {
		if n := fold.Program(prog); n > 0 {
			d.log.Debugf("folded %d constant expressions in %s", n, prog.File)
		}
	}
	return d.compiler.Compile(prog)
}

// Exec runs a compiled unit.
func (d *Driver) Exec(u *ir.Unit) error {
	return d.machine.Run(u)
}

func (d *Driver) RunFile(path string) error {
	u, err := d.CompileFile(path)
	if err != nil {
		return err
	}
	return d.Exec(u)
}

func (d *Driver) RunSource(name, src string) error {
	u, err := d.CompileSource(name, src)
	if err != nil {
		return err
	}
	return d.Exec(u)
}

func syntaxError(file string, errs []error) *SyntaxError {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return &SyntaxError{File: file, Msgs: msgs}
}
