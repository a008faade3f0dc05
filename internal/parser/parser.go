package parser

import (
	"fmt"
	"strconv"

	"computeduck/internal/ast"
	"computeduck/internal/lexer"
	"computeduck/internal/token"
)

type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	// function literal nesting, return is only legal inside one
	fnDepth int

	errors []string
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// init cur/peek
	p.nextToken()
	p.nextToken()
	return p
}

// ParseSource lexes and parses src, merging lexer and parser errors.
func ParseSource(file, src string) (*ast.Program, []string) {
	l := lexer.New(src)
	p := New(l)
	prog := p.ParseProgram()
	prog.File = file
	errs := append([]string{}, l.Errors()...)
	errs = append(errs, p.Errors()...)
	return prog, errs
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	msg := fmt.Sprintf("%d:%d: ", pos.Line, pos.Column) + fmt.Sprintf(format, args...)
	p.errors = append(p.errors, msg)
}

func (p *Parser) expect(kind token.Kind) token.Token {
	if p.cur.Kind != kind {
		p.errorf(p.cur.Pos, "expected %s, got %s (%q)", kind, p.cur.Kind, p.cur.Lexeme)
	}
	tok := p.cur
	p.nextToken()
	return tok
}

// ---------- Top-level ----------

func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}

	for p.cur.Kind != token.EOF {
		before := p.cur
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
		// no progress: skip the offending token so we can't spin
		if p.cur == before {
			p.nextToken()
		}
	}

	return prog
}

// ---------- Statements ----------

func (p *Parser) parseBlock() *ast.BlockStmt {
	lbrace := p.expect(token.LBrace)

	block := &ast.BlockStmt{
		LBrace: lbrace.Pos,
	}

	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		before := p.cur
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		if p.cur == before {
			p.nextToken()
		}
	}

	if p.cur.Kind == token.RBrace {
		block.RBrace = p.cur.Pos
		p.nextToken()
	} else {
		p.errorf(p.cur.Pos, "expected '}' to close block")
	}

	return block
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Kind {
	case token.Var:
		return p.parseVarStmt()
	case token.If:
		return p.parseIfStmt()
	case token.While:
		return p.parseWhileStmt()
	case token.Return:
		return p.parseReturnStmt()
	case token.LBrace:
		return p.parseBlock()
	case token.Struct:
		return p.parseStructStmt()
	case token.Import:
		return p.parseImportStmt()
	case token.Fn:
		if p.peek.Kind == token.Ident {
			return p.parseFnStmt()
		}
	case token.Semicolon:
		p.nextToken()
		return nil
	}

	expr := p.parseExpr()
	p.expect(token.Semicolon)
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{X: expr}
}

func (p *Parser) parseVarStmt() ast.Stmt {
	varTok := p.cur
	p.nextToken()

	if p.cur.Kind != token.Ident {
		p.errorf(p.cur.Pos, "expected variable name after 'var'")
		return nil
	}
	nameTok := p.cur
	p.nextToken()

	stmt := &ast.VarStmt{
		VarPos:  varTok.Pos,
		Name:    nameTok.Lexeme,
		NamePos: nameTok.Pos,
	}
	if p.cur.Kind == token.Assign {
		p.nextToken()
		stmt.Value = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return stmt
}

func (p *Parser) parseFnStmt() ast.Stmt {
	fnTok := p.cur
	p.nextToken() // consume fn
	nameTok := p.cur
	p.nextToken()

	lit := p.parseFuncRest(fnTok.Pos)
	if lit == nil {
		return nil
	}
	return &ast.FnStmt{
		FnPos: fnTok.Pos,
		Name:  nameTok.Lexeme,
		Func:  lit,
	}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	retTok := p.cur
	if p.fnDepth == 0 {
		p.errorf(retTok.Pos, "return statement is only allowed inside a function")
	}
	p.nextToken()

	stmt := &ast.ReturnStmt{ReturnPos: retTok.Pos}
	if p.cur.Kind != token.Semicolon {
		stmt.Result = p.parseExpr()
	}
	p.expect(token.Semicolon)
	return stmt
}

func (p *Parser) parseIfStmt() ast.Stmt {
	ifTok := p.cur
	p.nextToken()

	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)

	stmt := &ast.IfStmt{
		IfPos: ifTok.Pos,
		Cond:  cond,
		Then:  p.parseStatement(),
	}

	if p.cur.Kind == token.Else {
		p.nextToken()
		stmt.Else = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	whileTok := p.cur
	p.nextToken()

	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)

	return &ast.WhileStmt{
		WhilePos: whileTok.Pos,
		Cond:     cond,
		Body:     p.parseStatement(),
	}
}

func (p *Parser) parseStructStmt() ast.Stmt {
	structTok := p.cur
	p.nextToken()

	if p.cur.Kind != token.Ident {
		p.errorf(p.cur.Pos, "expected struct name after 'struct'")
		return nil
	}
	nameTok := p.cur
	p.nextToken()

	if p.cur.Kind != token.LBrace {
		p.errorf(p.cur.Pos, "expected '{' after struct name")
		return nil
	}
	body := p.parseStructLiteral(true)
	if p.cur.Kind == token.Semicolon {
		p.nextToken()
	}
	return &ast.StructStmt{
		StructPos: structTok.Pos,
		Name:      nameTok.Lexeme,
		Body:      body,
	}
}

func (p *Parser) parseImportStmt() ast.Stmt {
	importTok := p.cur
	p.nextToken()

	p.expect(token.LParen)
	pathTok := p.expect(token.String)
	p.expect(token.RParen)
	p.expect(token.Semicolon)

	return &ast.ImportStmt{
		ImportPos: importTok.Pos,
		Path:      pathTok.Lexeme,
	}
}

// ---------- Expressions ----------

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

// Assignment is right associative.
func (p *Parser) parseAssign() ast.Expr {
	left := p.parseOr()
	if p.cur.Kind == token.Assign {
		opTok := p.cur
		p.nextToken()
		right := p.parseAssign()
		return &ast.AssignExpr{
			OpPos:  opTok.Pos,
			Target: left,
			Value:  right,
		}
	}
	return left
}

func (p *Parser) parseOr() ast.Expr {
	return p.parseBinary(p.parseAnd, token.Or)
}

func (p *Parser) parseAnd() ast.Expr {
	return p.parseBinary(p.parseBitOr, token.And)
}

func (p *Parser) parseBitOr() ast.Expr {
	return p.parseBinary(p.parseBitXor, token.Pipe)
}

func (p *Parser) parseBitXor() ast.Expr {
	return p.parseBinary(p.parseBitAnd, token.Caret)
}

func (p *Parser) parseBitAnd() ast.Expr {
	return p.parseBinary(p.parseEquality, token.Amp)
}

func (p *Parser) parseEquality() ast.Expr {
	return p.parseBinary(p.parseRelational, token.Eq, token.NotEq)
}

func (p *Parser) parseRelational() ast.Expr {
	return p.parseBinary(p.parseAdditive, token.Lt, token.LtEq, token.Gt, token.GtEq)
}

func (p *Parser) parseAdditive() ast.Expr {
	return p.parseBinary(p.parseMultiplicative, token.Plus, token.Minus)
}

func (p *Parser) parseMultiplicative() ast.Expr {
	return p.parseBinary(p.parseUnary, token.Star, token.Slash)
}

// parseBinary parses a left-associative chain of the given operators.
func (p *Parser) parseBinary(next func() ast.Expr, ops ...token.Kind) ast.Expr {
	left := next()
	for isOneOf(p.cur.Kind, ops) {
		opTok := p.cur
		p.nextToken()
		right := next()
		left = &ast.InfixExpr{
			OpPos: opTok.Pos,
			Op:    opTok.Kind,
			Left:  left,
			Right: right,
		}
	}
	return left
}

func isOneOf(k token.Kind, kinds []token.Kind) bool {
	for _, c := range kinds {
		if k == c {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Kind {
	case token.Not, token.Minus, token.Tilde:
		opTok := p.cur
		p.nextToken()
		x := p.parseUnary()
		return &ast.PrefixExpr{
			OpPos: opTok.Pos,
			Op:    opTok.Kind,
			X:     x,
		}
	case token.Ref:
		refTok := p.cur
		p.nextToken()
		return &ast.RefExpr{
			RefPos: refTok.Pos,
			Target: p.parseUnary(),
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	for {
		switch p.cur.Kind {
		case token.Dot:
			// Member access: expr.name
			dot := p.cur
			p.nextToken()
			if p.cur.Kind != token.Ident {
				p.errorf(p.cur.Pos, "expected identifier after '.'")
				return expr
			}
			nameTok := p.cur
			p.nextToken()
			expr = &ast.MemberExpr{
				X:         expr,
				Dot:       dot.Pos,
				Member:    nameTok.Lexeme,
				MemberPos: nameTok.Pos,
			}
		case token.LParen:
			lparen := p.cur
			p.nextToken()
			args := p.parseExprList(token.RParen)
			expr = &ast.CallExpr{
				Callee: expr,
				LParen: lparen.Pos,
				Args:   args,
			}
		case token.LBracket:
			lbr := p.cur
			p.nextToken()
			indexExpr := p.parseExpr()
			p.expect(token.RBracket)
			expr = &ast.IndexExpr{
				X:      expr,
				LBrack: lbr.Pos,
				Index:  indexExpr,
			}
		default:
			return expr
		}
	}
}

// parseExprList parses comma separated expressions up to and including end.
func (p *Parser) parseExprList(end token.Kind) []ast.Expr {
	var list []ast.Expr
	if p.cur.Kind == end {
		p.nextToken()
		return list
	}
	for {
		list = append(list, p.parseExpr())
		if p.cur.Kind == token.Comma {
			p.nextToken()
			continue
		}
		break
	}
	p.expect(end)
	return list
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur
	switch tok.Kind {
	case token.Number:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid number literal %q", tok.Lexeme)
		}
		return &ast.NumberLit{Value: v, Raw: tok.Lexeme, LitPos: tok.Pos}
	case token.String:
		p.nextToken()
		return &ast.StringLit{Value: tok.Lexeme, LitPos: tok.Pos}
	case token.True, token.False:
		p.nextToken()
		return &ast.BoolLit{Value: tok.Kind == token.True, LitPos: tok.Pos}
	case token.Nil:
		p.nextToken()
		return &ast.NilLit{LitPos: tok.Pos}
	case token.Ident:
		p.nextToken()
		return &ast.IdentExpr{Name: tok.Lexeme, NamePos: tok.Pos}
	case token.LParen:
		p.nextToken()
		x := p.parseExpr()
		p.expect(token.RParen)
		return &ast.GroupExpr{LParen: tok.Pos, X: x}
	case token.LBracket:
		p.nextToken()
		return &ast.ArrayLit{LBrack: tok.Pos, Elements: p.parseExprList(token.RBracket)}
	case token.LBrace:
		return p.parseStructLiteral(false)
	case token.Fn:
		p.nextToken()
		return p.parseFuncRest(tok.Pos)
	case token.DllImport:
		p.nextToken()
		p.expect(token.LParen)
		nameTok := p.expect(token.String)
		p.expect(token.RParen)
		return &ast.DllImportExpr{ImportPos: tok.Pos, Module: nameTok.Lexeme}
	default:
		p.errorf(tok.Pos, "unexpected token %s (%q) in expression", tok.Kind, tok.Lexeme)
		return nil
	}
}

// parseFuncRest parses "(params) { body }" after the fn keyword (and name).
func (p *Parser) parseFuncRest(fnPos token.Position) *ast.FuncLit {
	if p.cur.Kind != token.LParen {
		p.errorf(p.cur.Pos, "expected '(' after 'fn'")
		return nil
	}
	p.nextToken()

	lit := &ast.FuncLit{FnPos: fnPos}
	if p.cur.Kind != token.RParen {
		for {
			if p.cur.Kind != token.Ident {
				p.errorf(p.cur.Pos, "expected parameter name, got %s", p.cur.Kind)
				return nil
			}
			lit.Params = append(lit.Params, &ast.IdentExpr{Name: p.cur.Lexeme, NamePos: p.cur.Pos})
			p.nextToken()
			if p.cur.Kind == token.Comma {
				p.nextToken()
				continue
			}
			break
		}
	}
	p.expect(token.RParen)

	p.fnDepth++
	lit.Body = p.parseBlock()
	p.fnDepth--
	return lit
}

// parseStructLiteral parses "{ name: expr, ... }". Members without a value
// default to nil only in struct statements.
func (p *Parser) parseStructLiteral(allowBare bool) *ast.StructLit {
	lbrace := p.expect(token.LBrace)
	lit := &ast.StructLit{LBrace: lbrace.Pos}

	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		if p.cur.Kind != token.Ident {
			p.errorf(p.cur.Pos, "expected member name, got %s", p.cur.Kind)
			p.nextToken()
			continue
		}
		nameTok := p.cur
		p.nextToken()

		member := &ast.StructMember{Name: nameTok.Lexeme, NamePos: nameTok.Pos}
		if p.cur.Kind == token.Colon {
			p.nextToken()
			member.Value = p.parseExpr()
		} else if allowBare {
			member.Value = &ast.NilLit{LitPos: nameTok.Pos}
		} else {
			p.errorf(p.cur.Pos, "expected ':' after member %q", nameTok.Lexeme)
		}
		lit.Members = append(lit.Members, member)

		if p.cur.Kind == token.Comma {
			p.nextToken()
		}
	}
	p.expect(token.RBrace)
	return lit
}
