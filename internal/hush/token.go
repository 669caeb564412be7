package hush

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// Pos is a location in a source file.
type Pos = lexer.Position

type TokenKind int

const (
	EOF TokenKind = iota

	IDENT
	INT
	FLOAT
	CHAR
	STRING

	// keywords
	LET
	IF
	THEN
	ELSEIF
	ELSE
	END
	FOR
	IN
	DO
	WHILE
	FUNCTION
	RETURN
	BREAK
	SELF
	NIL
	TRUE
	FALSE
	AND
	OR
	NOT

	// operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	CONCAT
	EQ
	NEQ
	LT
	LE
	GT
	GE
	ASSIGN

	// punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	DICT_OPEN
	COMMA
	SEMICOLON
	COLON
	DOT
	QUESTION

	// command blocks
	BLOCK_OPEN
	CAPTURE_OPEN
	ASYNC_OPEN
	BLOCK_CLOSE
	ARGUMENT
	PIPE
	REDIRECT_OUT
	REDIRECT_APPEND
	REDIRECT_IN
	REDIRECT_LITERAL
)

var tokenNames = map[TokenKind]string{
	EOF:              "end of file",
	IDENT:            "identifier",
	INT:              "int",
	FLOAT:            "float",
	CHAR:             "char",
	STRING:           "string",
	LET:              "let",
	IF:               "if",
	THEN:             "then",
	ELSEIF:           "elseif",
	ELSE:             "else",
	END:              "end",
	FOR:              "for",
	IN:               "in",
	DO:               "do",
	WHILE:            "while",
	FUNCTION:         "function",
	RETURN:           "return",
	BREAK:            "break",
	SELF:             "self",
	NIL:              "nil",
	TRUE:             "true",
	FALSE:            "false",
	AND:              "and",
	OR:               "or",
	NOT:              "not",
	PLUS:             "+",
	MINUS:            "-",
	STAR:             "*",
	SLASH:            "/",
	PERCENT:          "%",
	CONCAT:           "++",
	EQ:               "==",
	NEQ:              "!=",
	LT:               "<",
	LE:               "<=",
	GT:               ">",
	GE:               ">=",
	ASSIGN:           "=",
	LPAREN:           "(",
	RPAREN:           ")",
	LBRACKET:         "[",
	RBRACKET:         "]",
	DICT_OPEN:        "@[",
	COMMA:            ",",
	SEMICOLON:        ";",
	COLON:            ":",
	DOT:              ".",
	QUESTION:         "?",
	BLOCK_OPEN:       "{",
	CAPTURE_OPEN:     "${",
	ASYNC_OPEN:       "&{",
	BLOCK_CLOSE:      "}",
	ARGUMENT:         "argument",
	PIPE:             "|",
	REDIRECT_OUT:     ">",
	REDIRECT_APPEND:  ">>",
	REDIRECT_IN:      "<",
	REDIRECT_LITERAL: "<<",
}

func (tk TokenKind) String() string {
	if name, ok := tokenNames[tk]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(tk))
}

var keywords = map[string]TokenKind{
	"let":      LET,
	"if":       IF,
	"then":     THEN,
	"elseif":   ELSEIF,
	"else":     ELSE,
	"end":      END,
	"for":      FOR,
	"in":       IN,
	"do":       DO,
	"while":    WHILE,
	"function": FUNCTION,
	"return":   RETURN,
	"break":    BREAK,
	"self":     SELF,
	"nil":      NIL,
	"true":     TRUE,
	"false":    FALSE,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
}

// ArgPartKind tells how a piece of a command argument is produced.
type ArgPartKind int

const (
	// ArgText is literal text. Unquoted text may contain glob wildcards.
	ArgText ArgPartKind = iota
	// ArgVar is a $name or ${name} substitution.
	ArgVar
	// ArgHome is a leading ~ expanded to $HOME.
	ArgHome
)

type ArgPart struct {
	Kind   ArgPartKind
	Text   string // literal text, or the variable name for ArgVar
	Quoted bool   // text came from quotes or an escape and is never a pattern
	Pos    Pos
}

// Token is immutable once produced by the lexer.
type Token struct {
	Kind  TokenKind
	Value string
	Parts []ArgPart // only for ARGUMENT
	Pos   Pos
	End   int // byte offset just past the token
}

func (t Token) String() string {
	switch t.Kind {
	case IDENT, INT, FLOAT, STRING, CHAR, ARGUMENT:
		return fmt.Sprintf("%s %q", t.Kind, t.Value)
	default:
		return fmt.Sprintf("'%s'", t.Kind)
	}
}
