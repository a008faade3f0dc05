package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"computeduck/internal/token"
)

// Dump returns a human-readable representation of the AST.
func Dump(node Node) string {
	var sb strings.Builder
	fprintNode(&sb, node, 0)
	return sb.String()
}

func fprintNode(w io.Writer, n Node, indent int) {
	if n == nil {
		return
	}

	ind := strings.Repeat("  ", indent)

	switch n := n.(type) {
	case *Program:
		fmt.Fprintf(w, "%sProgram\n", ind)
		for _, s := range n.Stmts {
			fprintNode(w, s, indent+1)
		}

	case *BlockStmt:
		fmt.Fprintf(w, "%sBlockStmt\n", ind)
		for _, s := range n.Stmts {
			fprintNode(w, s, indent+1)
		}

	case *VarStmt:
		fmt.Fprintf(w, "%sVarStmt name=%s\n", ind, n.Name)
		if n.Value != nil {
			fprintNode(w, n.Value, indent+1)
		}

	case *FnStmt:
		fmt.Fprintf(w, "%sFnStmt name=%s\n", ind, n.Name)
		fprintNode(w, n.Func, indent+1)

	case *ExprStmt:
		fmt.Fprintf(w, "%sExprStmt\n", ind)
		fprintNode(w, n.X, indent+1)

	case *IfStmt:
		fmt.Fprintf(w, "%sIfStmt\n", ind)
		fmt.Fprintf(w, "%s  Cond:\n", ind)
		fprintNode(w, n.Cond, indent+2)
		fmt.Fprintf(w, "%s  Then:\n", ind)
		fprintNode(w, n.Then, indent+2)
		if n.Else != nil {
			fmt.Fprintf(w, "%s  Else:\n", ind)
			fprintNode(w, n.Else, indent+2)
		}

	case *ReturnStmt:
		fmt.Fprintf(w, "%sReturnStmt\n", ind)
		if n.Result != nil {
			fprintNode(w, n.Result, indent+1)
		}

	case *WhileStmt:
		fmt.Fprintf(w, "%sWhileStmt\n", ind)
		fmt.Fprintf(w, "%s  Cond:\n", ind)
		fprintNode(w, n.Cond, indent+2)
		fmt.Fprintf(w, "%s  Body:\n", ind)
		fprintNode(w, n.Body, indent+2)

	case *StructStmt:
		fmt.Fprintf(w, "%sStructStmt name=%s\n", ind, n.Name)
		fprintNode(w, n.Body, indent+1)

	case *ImportStmt:
		fmt.Fprintf(w, "%sImportStmt %q\n", ind, n.Path)

	case *IdentExpr:
		fmt.Fprintf(w, "%sIdent %s\n", ind, n.Name)

	case *NumberLit:
		fmt.Fprintf(w, "%sNumberLit %s\n", ind, n.Raw)

	case *StringLit:
		fmt.Fprintf(w, "%sStringLit %q\n", ind, n.Value)

	case *BoolLit:
		fmt.Fprintf(w, "%sBoolLit %v\n", ind, n.Value)

	case *NilLit:
		fmt.Fprintf(w, "%sNilLit\n", ind)

	case *GroupExpr:
		fmt.Fprintf(w, "%sGroupExpr\n", ind)
		fprintNode(w, n.X, indent+1)

	case *ArrayLit:
		fmt.Fprintf(w, "%sArrayLit\n", ind)
		for _, el := range n.Elements {
			fprintNode(w, el, indent+1)
		}

	case *StructLit:
		fmt.Fprintf(w, "%sStructLit\n", ind)
		for _, m := range n.Members {
			fmt.Fprintf(w, "%s  Member %s:\n", ind, m.Name)
			fprintNode(w, m.Value, indent+2)
		}

	case *PrefixExpr:
		fmt.Fprintf(w, "%sPrefixExpr op=%v\n", ind, n.Op)
		fprintNode(w, n.X, indent+1)

	case *InfixExpr:
		fmt.Fprintf(w, "%sInfixExpr op=%v\n", ind, n.Op)
		fmt.Fprintf(w, "%s  Left:\n", ind)
		fprintNode(w, n.Left, indent+2)
		fmt.Fprintf(w, "%s  Right:\n", ind)
		fprintNode(w, n.Right, indent+2)

	case *AssignExpr:
		fmt.Fprintf(w, "%sAssignExpr\n", ind)
		fmt.Fprintf(w, "%s  Target:\n", ind)
		fprintNode(w, n.Target, indent+2)
		fmt.Fprintf(w, "%s  Value:\n", ind)
		fprintNode(w, n.Value, indent+2)

	case *IndexExpr:
		fmt.Fprintf(w, "%sIndexExpr\n", ind)
		fmt.Fprintf(w, "%s  X:\n", ind)
		fprintNode(w, n.X, indent+2)
		fmt.Fprintf(w, "%s  Index:\n", ind)
		fprintNode(w, n.Index, indent+2)

	case *CallExpr:
		fmt.Fprintf(w, "%sCallExpr\n", ind)
		fmt.Fprintf(w, "%s  Callee:\n", ind)
		fprintNode(w, n.Callee, indent+2)
		if len(n.Args) > 0 {
			fmt.Fprintf(w, "%s  Args:\n", ind)
			for _, a := range n.Args {
				fprintNode(w, a, indent+2)
			}
		}

	case *MemberExpr:
		fmt.Fprintf(w, "%sMemberExpr name=%s\n", ind, n.Member)
		fprintNode(w, n.X, indent+1)

	case *RefExpr:
		fmt.Fprintf(w, "%sRefExpr\n", ind)
		fprintNode(w, n.Target, indent+1)

	case *FuncLit:
		names := make([]string, len(n.Params))
		for i, p := range n.Params {
			names[i] = p.Name
		}
		fmt.Fprintf(w, "%sFuncLit params=(%s)\n", ind, strings.Join(names, ","))
		fprintNode(w, n.Body, indent+1)

	case *DllImportExpr:
		fmt.Fprintf(w, "%sDllImportExpr %q\n", ind, n.Module)

	default:
		fmt.Fprintf(w, "%s<unknown node %T>\n", ind, n)
	}
}

// ExprString renders an expression back to source form for diagnostics.
func ExprString(e Expr) string {
	switch e := e.(type) {
	case nil:
		return ""
	case *IdentExpr:
		return e.Name
	case *NumberLit:
		if e.Raw != "" {
			return e.Raw
		}
		return strconv.FormatFloat(e.Value, 'g', -1, 64)
	case *StringLit:
		return strconv.Quote(e.Value)
	case *BoolLit:
		return strconv.FormatBool(e.Value)
	case *NilLit:
		return "nil"
	case *GroupExpr:
		return "(" + ExprString(e.X) + ")"
	case *ArrayLit:
		return "[" + joinExprs(e.Elements) + "]"
	case *StructLit:
		parts := make([]string, len(e.Members))
		for i, m := range e.Members {
			parts[i] = m.Name + ":" + ExprString(m.Value)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case *PrefixExpr:
		return OpString(e.Op) + ExprString(e.X)
	case *InfixExpr:
		return ExprString(e.Left) + OpString(e.Op) + ExprString(e.Right)
	case *AssignExpr:
		return ExprString(e.Target) + "=" + ExprString(e.Value)
	case *IndexExpr:
		return ExprString(e.X) + "[" + ExprString(e.Index) + "]"
	case *CallExpr:
		return ExprString(e.Callee) + "(" + joinExprs(e.Args) + ")"
	case *MemberExpr:
		return ExprString(e.X) + "." + e.Member
	case *RefExpr:
		return "ref " + ExprString(e.Target)
	case *FuncLit:
		names := make([]string, len(e.Params))
		for i, p := range e.Params {
			names[i] = p.Name
		}
		return "fn(" + strings.Join(names, ",") + "){...}"
	case *DllImportExpr:
		return "dllimport(" + strconv.Quote(e.Module) + ")"
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, x := range es {
		parts[i] = ExprString(x)
	}
	return strings.Join(parts, ",")
}

// OpString maps an operator token kind to its source spelling.
func OpString(k token.Kind) string {
	switch k {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.Slash:
		return "/"
	case token.Eq:
		return "=="
	case token.NotEq:
		return "!="
	case token.Lt:
		return "<"
	case token.LtEq:
		return "<="
	case token.Gt:
		return ">"
	case token.GtEq:
		return ">="
	case token.Amp:
		return "&"
	case token.Pipe:
		return "|"
	case token.Caret:
		return "^"
	case token.Tilde:
		return "~"
	case token.And:
		return " and "
	case token.Or:
		return " or "
	case token.Not:
		return "not "
	default:
		return k.String()
	}
}
