// Package fold evaluates literal-only expressions before code generation.
package fold

import (
	"computeduck/internal/ast"
	"computeduck/internal/token"
)

// Program folds every statement of p in place and returns the number of
// expressions replaced.
func Program(p *ast.Program) int {
	f := &folder{}
	out := p.Stmts[:0]
	for _, s := range p.Stmts {
		if s = f.stmt(s); s != nil {
			out = append(out, s)
		}
	}
	p.Stmts = out
	return f.folded
}

// Expr folds a single expression.
func Expr(e ast.Expr) ast.Expr {
	f := &folder{}
	return f.expr(e)
}

type folder struct {
	folded int
}

// stmt returns nil when the statement folds away entirely.
func (f *folder) stmt(s ast.Stmt) ast.Stmt {
	switch st := s.(type) {
	case *ast.ExprStmt:
		st.X = f.expr(st.X)
	case *ast.VarStmt:
		if st.Value != nil {
			st.Value = f.expr(st.Value)
		}
	case *ast.FnStmt:
		f.block(st.Func.Body)
	case *ast.ReturnStmt:
		if st.Result != nil {
			st.Result = f.expr(st.Result)
		}
	case *ast.IfStmt:
		return f.ifStmt(st)
	case *ast.WhileStmt:
		st.Cond = f.expr(st.Cond)
		st.Body = f.stmtOrEmpty(st.Body, st.WhilePos)
	case *ast.BlockStmt:
		f.block(st)
	case *ast.StructStmt:
		f.structLit(st.Body)
	}
	return s
}

func (f *folder) stmtOrEmpty(s ast.Stmt, pos token.Position) ast.Stmt {
	if s = f.stmt(s); s == nil {
		return &ast.BlockStmt{LBrace: pos, RBrace: pos}
	}
	return s
}

func (f *folder) block(b *ast.BlockStmt) {
	out := b.Stmts[:0]
	for _, s := range b.Stmts {
		if s = f.stmt(s); s != nil {
			out = append(out, s)
		}
	}
	b.Stmts = out
}

// ifStmt drops the dead branch of an if whose condition is a literal.
func (f *folder) ifStmt(st *ast.IfStmt) ast.Stmt {
	st.Cond = f.expr(st.Cond)
	st.Then = f.stmtOrEmpty(st.Then, st.IfPos)
	if st.Else != nil {
		st.Else = f.stmt(st.Else)
	}

	cond, ok := st.Cond.(*ast.BoolLit)
	if !ok {
		return st
	}
	f.folded++
	if cond.Value {
		return st.Then
	}
	return st.Else
}

func (f *folder) structLit(lit *ast.StructLit) {
	for _, m := range lit.Members {
		m.Value = f.expr(m.Value)
	}
}

func (f *folder) expr(e ast.Expr) ast.Expr {
	switch ex := e.(type) {
	case *ast.GroupExpr:
		return f.expr(ex.X)
	case *ast.ArrayLit:
		for i, el := range ex.Elements {
			ex.Elements[i] = f.expr(el)
		}
	case *ast.StructLit:
		f.structLit(ex)
	case *ast.IndexExpr:
		ex.X = f.expr(ex.X)
		ex.Index = f.expr(ex.Index)
	case *ast.MemberExpr:
		ex.X = f.expr(ex.X)
	case *ast.CallExpr:
		ex.Callee = f.expr(ex.Callee)
		for i, a := range ex.Args {
			ex.Args[i] = f.expr(a)
		}
	case *ast.AssignExpr:
		ex.Target = f.expr(ex.Target)
		ex.Value = f.expr(ex.Value)
	case *ast.RefExpr:
		// the target stays a place; only index operands fold
		if idx, ok := ex.Target.(*ast.IndexExpr); ok {
			idx.Index = f.expr(idx.Index)
		}
	case *ast.FuncLit:
		f.block(ex.Body)
	case *ast.PrefixExpr:
		ex.X = f.expr(ex.X)
		if out := foldPrefix(ex); out != nil {
			f.folded++
			return out
		}
	case *ast.InfixExpr:
		ex.Left = f.expr(ex.Left)
		ex.Right = f.expr(ex.Right)
		if out := foldInfix(ex); out != nil {
			f.folded++
			return out
		}
	}
	return e
}

func foldPrefix(ex *ast.PrefixExpr) ast.Expr {
	switch x := ex.X.(type) {
	case *ast.NumberLit:
		if ex.Op == token.Minus {
			return number(-x.Value, ex.OpPos)
		}
	case *ast.BoolLit:
		if ex.Op == token.Not {
			return &ast.BoolLit{Value: !x.Value, LitPos: ex.OpPos}
		}
	}
	return nil
}

func foldInfix(ex *ast.InfixExpr) ast.Expr {
	pos := ex.Left.Pos()
	switch l := ex.Left.(type) {
	case *ast.NumberLit:
		r, ok := ex.Right.(*ast.NumberLit)
		if !ok {
			return nil
		}
		a, b := l.Value, r.Value
		switch ex.Op {
		case token.Plus:
			return number(a+b, pos)
		case token.Minus:
			return number(a-b, pos)
		case token.Star:
			return number(a*b, pos)
		case token.Slash:
			return number(a/b, pos)
		case token.Eq:
			return boolean(a == b, pos)
		case token.NotEq:
			return boolean(a != b, pos)
		case token.Gt:
			return boolean(a > b, pos)
		case token.GtEq:
			return boolean(a >= b, pos)
		case token.Lt:
			return boolean(a < b, pos)
		case token.LtEq:
			return boolean(a <= b, pos)
		}
	case *ast.StringLit:
		r, ok := ex.Right.(*ast.StringLit)
		if !ok {
			return nil
		}
		switch ex.Op {
		case token.Plus:
			return &ast.StringLit{Value: l.Value + r.Value, LitPos: pos}
		case token.Eq:
			return boolean(l.Value == r.Value, pos)
		case token.NotEq:
			return boolean(l.Value != r.Value, pos)
		}
	case *ast.BoolLit:
		r, ok := ex.Right.(*ast.BoolLit)
		if !ok {
			return nil
		}
		switch ex.Op {
		case token.And:
			return boolean(l.Value && r.Value, pos)
		case token.Or:
			return boolean(l.Value || r.Value, pos)
		case token.Eq:
			return boolean(l.Value == r.Value, pos)
		case token.NotEq:
			return boolean(l.Value != r.Value, pos)
		}
	}
	return nil
}

func number(v float64, pos token.Position) *ast.NumberLit {
	return &ast.NumberLit{Value: v, LitPos: pos}
}

func boolean(v bool, pos token.Position) *ast.BoolLit {
	return &ast.BoolLit{Value: v, LitPos: pos}
}
