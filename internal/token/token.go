package token

import "fmt"

type Kind int

const (
	Illegal Kind = iota
	EOF

	Ident  // Identifier
	Number // Number literal
	String // String literal

	// Keywords
	Var
	If
	Else
	True
	False
	Nil
	While
	Fn
	Return
	And
	Or
	Not
	Struct
	Ref
	DllImport
	Import

	// Operators
	Assign // =

	Plus  // +
	Minus // -
	Star  // *
	Slash // /

	Eq    // ==
	NotEq // !=
	Lt    // <
	LtEq  // <=
	Gt    // >
	GtEq  // >=

	Amp   // &
	Pipe  // |
	Caret // ^
	Tilde // ~

	// Symbols
	Comma     // ,
	Semicolon // ;
	Dot       // .
	Colon     // :

	LParen   // (
	RParen   // )
	LBrace   // {
	RBrace   // }
	LBracket // [
	RBracket // ]
)

type Position struct {
	Line   int
	Column int
}

type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Position
}

var names = map[Kind]string{
	Illegal:   "Illegal",
	EOF:       "EOF",
	Ident:     "Ident",
	Number:    "Number",
	String:    "String",
	Var:       "Var",
	If:        "If",
	Else:      "Else",
	True:      "True",
	False:     "False",
	Nil:       "Nil",
	While:     "While",
	Fn:        "Fn",
	Return:    "Return",
	And:       "And",
	Or:        "Or",
	Not:       "Not",
	Struct:    "Struct",
	Ref:       "Ref",
	DllImport: "DllImport",
	Import:    "Import",
	Assign:    "Assign",
	Plus:      "Plus",
	Minus:     "Minus",
	Star:      "Star",
	Slash:     "Slash",
	Eq:        "Eq",
	NotEq:     "NotEq",
	Lt:        "Lt",
	LtEq:      "LtEq",
	Gt:        "Gt",
	GtEq:      "GtEq",
	Amp:       "Amp",
	Pipe:      "Pipe",
	Caret:     "Caret",
	Tilde:     "Tilde",
	Comma:     "Comma",
	Semicolon: "Semicolon",
	Dot:       "Dot",
	Colon:     "Colon",
	LParen:    "LParen",
	RParen:    "RParen",
	LBrace:    "LBrace",
	RBrace:    "RBrace",
	LBracket:  "LBracket",
	RBracket:  "RBracket",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"var":       Var,
	"if":        If,
	"else":      Else,
	"true":      True,
	"false":     False,
	"nil":       Nil,
	"while":     While,
	"fn":        Fn,
	"return":    Return,
	"and":       And,
	"or":        Or,
	"not":       Not,
	"struct":    Struct,
	"ref":       Ref,
	"dllimport": DllImport,
	"import":    Import,
}

func LookupIdent(lit string) Kind {
	if kind, ok := keywords[lit]; ok {
		return kind
	}
	return Ident
}
