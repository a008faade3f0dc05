package lexer_test

import (
	"testing"

	"computeduck/internal/lexer"
	"computeduck/internal/token"
)

func TestNextToken_BasicProgram(t *testing.T) {
	input := `# factorial
fn fact(n) {
    if (n <= 1) { return 1; }
    return n * fact(n - 1);
}
var r = ref a[1];
x = "hi\n" != nil and not true;
`

	tests := []struct {
		kind token.Kind
		lit  string
	}{
		{token.Fn, "fn"},
		{token.Ident, "fact"},
		{token.LParen, "("},
		{token.Ident, "n"},
		{token.RParen, ")"},
		{token.LBrace, "{"},

		{token.If, "if"},
		{token.LParen, "("},
		{token.Ident, "n"},
		{token.LtEq, "<="},
		{token.Number, "1"},
		{token.RParen, ")"},
		{token.LBrace, "{"},
		{token.Return, "return"},
		{token.Number, "1"},
		{token.Semicolon, ";"},
		{token.RBrace, "}"},

		{token.Return, "return"},
		{token.Ident, "n"},
		{token.Star, "*"},
		{token.Ident, "fact"},
		{token.LParen, "("},
		{token.Ident, "n"},
		{token.Minus, "-"},
		{token.Number, "1"},
		{token.RParen, ")"},
		{token.Semicolon, ";"},
		{token.RBrace, "}"},

		{token.Var, "var"},
		{token.Ident, "r"},
		{token.Assign, "="},
		{token.Ref, "ref"},
		{token.Ident, "a"},
		{token.LBracket, "["},
		{token.Number, "1"},
		{token.RBracket, "]"},
		{token.Semicolon, ";"},

		{token.Ident, "x"},
		{token.Assign, "="},
		{token.String, "hi\n"},
		{token.NotEq, "!="},
		{token.Nil, "nil"},
		{token.And, "and"},
		{token.Not, "not"},
		{token.True, "true"},
		{token.Semicolon, ";"},

		{token.EOF, ""},
	}

	l := lexer.New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Kind != tt.kind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s (lexeme=%q, pos=%+v)",
				i, tt.kind, tok.Kind, tok.Lexeme, tok.Pos)
		}

		if tok.Lexeme != tt.lit {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q",
				i, tt.lit, tok.Lexeme)
		}
	}

	if errs := l.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lexer errors: %v", errs)
	}
}

func TestNextToken_Operators(t *testing.T) {
	toks, errs := lexer.Tokenize("& | ^ ~ == = < > >= . : , // trailing comment")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []token.Kind{
		token.Amp, token.Pipe, token.Caret, token.Tilde, token.Eq, token.Assign,
		token.Lt, token.Gt, token.GtEq, token.Dot, token.Colon, token.Comma, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: expected %s, got %s", i, k, toks[i].Kind)
		}
	}
}

func TestNextToken_IdentifierAtEOF(t *testing.T) {
	toks, _ := lexer.Tokenize("abc 12.5")
	if toks[0].Lexeme != "abc" {
		t.Errorf("expected 'abc', got %q", toks[0].Lexeme)
	}
	if toks[1].Kind != token.Number || toks[1].Lexeme != "12.5" {
		t.Errorf("expected number 12.5, got %s %q", toks[1].Kind, toks[1].Lexeme)
	}
}

func TestNextToken_Positions(t *testing.T) {
	l := lexer.New("a\n  b")
	first := l.NextToken()
	second := l.NextToken()
	if first.Pos.Line != 1 || first.Pos.Column != 1 {
		t.Errorf("first token position: got %+v", first.Pos)
	}
	if second.Pos.Line != 2 || second.Pos.Column != 3 {
		t.Errorf("second token position: got %+v", second.Pos)
	}
}

func TestNextToken_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"bad escape", `"\q"`},
		{"bang", `!x`},
		{"stray char", `@`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := lexer.Tokenize(tt.input)
			if len(errs) == 0 {
				t.Fatalf("expected an error for %q", tt.input)
			}
		})
	}
}
