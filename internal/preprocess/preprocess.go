// Package preprocess expands import("path"); statements by splicing in the
// statements of the imported file.
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"computeduck/internal/ast"
	"computeduck/internal/parser"
)

// Loader expands imports. Paths are relative to the importing file.
type Loader struct {
	readFile func(string) ([]byte, error)
	log      commonlog.Logger
}

type Option func(*Loader)

// WithReadFile replaces os.ReadFile, mostly for tests.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(l *Loader) { l.readFile = fn }
}

func New(opts ...Option) *Loader {
	l := &Loader{
		readFile: os.ReadFile,
		log:      commonlog.GetLogger("computeduck.preprocess"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// state tracks one expansion. visiting holds the current import chain for
// cycle detection; done holds files already spliced in.
type state struct {
	visiting []string
	done     map[string]bool
	errs     []error
}

// LoadFile reads and parses path and expands its imports.
func (l *Loader) LoadFile(path string) (*ast.Program, []error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, []error{fmt.Errorf("cannot resolve path %s: %v", path, err)}
	}
	prog, errs := l.parse(abs)
	if len(errs) > 0 {
		return nil, errs
	}
	return l.expandFrom(prog, abs)
}

// Expand resolves the imports of an already parsed program. Relative paths
// are taken from the directory of prog.File, or the working directory when
// the program has no file.
func (l *Loader) Expand(prog *ast.Program) (*ast.Program, []error) {
	abs := prog.File
	if abs == "" || strings.HasPrefix(abs, "<") {
		wd, err := os.Getwd()
		if err != nil {
			return nil, []error{err}
		}
		abs = filepath.Join(wd, "<input>")
	} else if a, err := filepath.Abs(abs); err == nil {
		abs = a
	}
	return l.expandFrom(prog, abs)
}

func (l *Loader) expandFrom(prog *ast.Program, abs string) (*ast.Program, []error) {
	st := &state{done: make(map[string]bool)}
	stmts := l.expand(prog, abs, st)
	if len(st.errs) > 0 {
		return nil, st.errs
	}
	return &ast.Program{File: prog.File, Stmts: stmts}, nil
}

func (l *Loader) parse(abs string) (*ast.Program, []error) {
	content, err := l.readFile(abs)
	if err != nil {
		return nil, []error{fmt.Errorf("cannot read file %s: %v", abs, err)}
	}
	prog, perrs := parser.ParseSource(abs, string(content))
	if len(perrs) > 0 {
		errs := make([]error, len(perrs))
		for i, e := range perrs {
			errs[i] = fmt.Errorf("%s: %s", abs, e)
		}
		return nil, errs
	}
	return prog, nil
}

func (l *Loader) expand(prog *ast.Program, abs string, st *state) []ast.Stmt {
	st.visiting = append(st.visiting, abs)
	defer func() {
		st.visiting = st.visiting[:len(st.visiting)-1]
		st.done[abs] = true
	}()

	var out []ast.Stmt
	for _, s := range prog.Stmts {
		imp, ok := s.(*ast.ImportStmt)
		if !ok {
			if nested := findNested(s); nested != nil {
				st.errs = append(st.errs, fmt.Errorf("%s:%d:%d: import must appear at top level",
					abs, nested.ImportPos.Line, nested.ImportPos.Column))
			}
			out = append(out, s)
			continue
		}

		target := imp.Path
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(abs), target)
		}
		target = filepath.Clean(target)

		if i := indexOf(st.visiting, target); i >= 0 {
			chain := append(append([]string{}, st.visiting[i:]...), target)
			st.errs = append(st.errs, fmt.Errorf("%s:%d:%d: import cycle detected: %s",
				abs, imp.ImportPos.Line, imp.ImportPos.Column, strings.Join(chain, " -> ")))
			continue
		}
		if st.done[target] {
			l.log.Debugf("import %s already included", target)
			continue
		}

		l.log.Debugf("import %s from %s", target, abs)
		sub, errs := l.parse(target)
		if len(errs) > 0 {
			for _, e := range errs {
				st.errs = append(st.errs, fmt.Errorf("%s:%d:%d: %v", abs, imp.ImportPos.Line, imp.ImportPos.Column, e))
			}
			continue
		}
		out = append(out, l.expand(sub, target, st)...)
	}
	return out
}

// findNested reports an import statement hidden inside a block.
func findNested(s ast.Stmt) *ast.ImportStmt {
	switch st := s.(type) {
	case *ast.ImportStmt:
		return st
	case *ast.BlockStmt:
		for _, inner := range st.Stmts {
			if imp := findNested(inner); imp != nil {
				return imp
			}
		}
	case *ast.IfStmt:
		if imp := findNested(st.Then); imp != nil {
			return imp
		}
		if st.Else != nil {
			return findNested(st.Else)
		}
	case *ast.WhileStmt:
		return findNested(st.Body)
	case *ast.FnStmt:
		return findNested(st.Func.Body)
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
