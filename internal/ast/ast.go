package ast

import "computeduck/internal/token"

// Basic interfaces

type Node interface {
	Pos() token.Position
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

// Program is a flat list of top-level statements.
type Program struct {
	File  string
	Stmts []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return token.Position{}
}

// ---------- Statements ----------

type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }
func (*ExprStmt) stmtNode()             {}

// VarStmt: var name [= value];
type VarStmt struct {
	VarPos  token.Position
	Name    string
	NamePos token.Position
	Value   Expr // nil means nil
}

func (s *VarStmt) Pos() token.Position { return s.VarPos }
func (*VarStmt) stmtNode()             {}

// FnStmt: fn name(params) { body }
type FnStmt struct {
	FnPos token.Position
	Name  string
	Func  *FuncLit
}

func (s *FnStmt) Pos() token.Position { return s.FnPos }
func (*FnStmt) stmtNode()             {}

type ReturnStmt struct {
	ReturnPos token.Position
	Result    Expr // may be nil
}

func (s *ReturnStmt) Pos() token.Position { return s.ReturnPos }
func (*ReturnStmt) stmtNode()             {}

type IfStmt struct {
	IfPos token.Position
	Cond  Expr
	Then  Stmt
	Else  Stmt // may be nil
}

func (s *IfStmt) Pos() token.Position { return s.IfPos }
func (*IfStmt) stmtNode()             {}

type WhileStmt struct {
	WhilePos token.Position
	Cond     Expr
	Body     Stmt
}

func (s *WhileStmt) Pos() token.Position { return s.WhilePos }
func (*WhileStmt) stmtNode()             {}

type BlockStmt struct {
	LBrace token.Position
	Stmts  []Stmt
	RBrace token.Position
}

func (b *BlockStmt) Pos() token.Position { return b.LBrace }
func (*BlockStmt) stmtNode()             {}

// StructStmt declares a struct template: struct Name { a: 1, b }
type StructStmt struct {
	StructPos token.Position
	Name      string
	Body      *StructLit
}

func (s *StructStmt) Pos() token.Position { return s.StructPos }
func (*StructStmt) stmtNode()             {}

// ImportStmt is import("path"); it is replaced by the preprocessor.
type ImportStmt struct {
	ImportPos token.Position
	Path      string
}

func (s *ImportStmt) Pos() token.Position { return s.ImportPos }
func (*ImportStmt) stmtNode()             {}

// ---------- Expressions ----------

type IdentExpr struct {
	Name    string
	NamePos token.Position
}

func (e *IdentExpr) Pos() token.Position { return e.NamePos }
func (*IdentExpr) exprNode()             {}

type NumberLit struct {
	Value  float64
	Raw    string
	LitPos token.Position
}

func (e *NumberLit) Pos() token.Position { return e.LitPos }
func (*NumberLit) exprNode()             {}

type StringLit struct {
	Value  string
	LitPos token.Position
}

func (e *StringLit) Pos() token.Position { return e.LitPos }
func (*StringLit) exprNode()             {}

type BoolLit struct {
	Value  bool
	LitPos token.Position
}

func (e *BoolLit) Pos() token.Position { return e.LitPos }
func (*BoolLit) exprNode()             {}

type NilLit struct {
	LitPos token.Position
}

func (e *NilLit) Pos() token.Position { return e.LitPos }
func (*NilLit) exprNode()             {}

type GroupExpr struct {
	LParen token.Position
	X      Expr
}

func (e *GroupExpr) Pos() token.Position { return e.LParen }
func (*GroupExpr) exprNode()             {}

type ArrayLit struct {
	LBrack   token.Position
	Elements []Expr
}

func (e *ArrayLit) Pos() token.Position { return e.LBrack }
func (*ArrayLit) exprNode()             {}

type StructMember struct {
	Name    string
	NamePos token.Position
	Value   Expr
}

// StructLit is an anonymous struct literal: { a: 1, b: 2 }
type StructLit struct {
	LBrace  token.Position
	Members []*StructMember
}

func (e *StructLit) Pos() token.Position { return e.LBrace }
func (*StructLit) exprNode()             {}

type PrefixExpr struct {
	OpPos token.Position
	Op    token.Kind // Minus, Not, Tilde
	X     Expr
}

func (e *PrefixExpr) Pos() token.Position { return e.OpPos }
func (*PrefixExpr) exprNode()             {}

type InfixExpr struct {
	OpPos token.Position
	Op    token.Kind
	Left  Expr
	Right Expr
}

func (e *InfixExpr) Pos() token.Position { return e.OpPos }
func (*InfixExpr) exprNode()             {}

// AssignExpr: target = value
type AssignExpr struct {
	OpPos  token.Position
	Target Expr
	Value  Expr
}

func (e *AssignExpr) Pos() token.Position { return e.OpPos }
func (*AssignExpr) exprNode()             {}

type IndexExpr struct {
	LBrack token.Position
	X      Expr
	Index  Expr
}

func (e *IndexExpr) Pos() token.Position { return e.LBrack }
func (*IndexExpr) exprNode()             {}

type CallExpr struct {
	Callee Expr
	LParen token.Position
	Args   []Expr
}

func (e *CallExpr) Pos() token.Position { return e.LParen }
func (*CallExpr) exprNode()             {}

// MemberExpr: X.Member
type MemberExpr struct {
	X         Expr
	Dot       token.Position
	Member    string
	MemberPos token.Position
}

func (e *MemberExpr) Pos() token.Position { return e.Dot }
func (*MemberExpr) exprNode()             {}

type RefExpr struct {
	RefPos token.Position
	Target Expr
}

func (e *RefExpr) Pos() token.Position { return e.RefPos }
func (*RefExpr) exprNode()             {}

type FuncLit struct {
	FnPos  token.Position
	Params []*IdentExpr
	Body   *BlockStmt
}

func (e *FuncLit) Pos() token.Position { return e.FnPos }
func (*FuncLit) exprNode()             {}

// DllImportExpr: dllimport("module")
type DllImportExpr struct {
	ImportPos token.Position
	Module    string
}

func (e *DllImportExpr) Pos() token.Position { return e.ImportPos }
func (*DllImportExpr) exprNode()             {}
