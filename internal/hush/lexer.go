package hush

import (
	"fmt"
	"strings"
)

// Lexer produces tokens lazily. It has two modes: the expression mode used
// for the host language, and the command mode entered after `{`, `${` or
// `&{` and left at the matching `}`.
type Lexer struct {
	input    string
	filename string
	pos      int
	line     int
	column   int
	current  byte
	command  bool
}

func NewLexer(input, filename string) *Lexer {
	l := &Lexer{
		input:    input,
		filename: filename,
		line:     1,
		column:   1,
	}
	if len(input) > 0 {
		l.current = input[0]
	}
	return l
}

// Tokenize lexes the whole input, stopping at the first error.
func Tokenize(input, filename string) ([]Token, error) {
	l := NewLexer(input, filename)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) advance() {
	if l.eof() {
		return
	}
	if l.current == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	l.pos++
	if l.pos >= len(l.input) {
		l.current = 0
		return
	}

	l.current = l.input[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) position() Pos {
	return Pos{Filename: l.filename, Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) errorf(pos Pos, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: LexError, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (l *Lexer) token(kind TokenKind, start Pos) Token {
	return Token{Kind: kind, Value: l.input[start.Offset:l.pos], Pos: start, End: l.pos}
}

func (l *Lexer) skipWhitespace() {
	for !l.eof() {
		switch {
		case isSpace(l.current):
			l.advance()
		case l.current == '#':
			for !l.eof() && l.current != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) NextToken() (Token, error) {
	if l.command {
		return l.nextCommandToken()
	}

	l.skipWhitespace()
	start := l.position()

	if l.eof() {
		return Token{Kind: EOF, Pos: start, End: l.pos}, nil
	}

	c := l.current
	switch {
	case isIdentStart(c):
		for !l.eof() && isIdentChar(l.current) {
			l.advance()
		}
		tok := l.token(IDENT, start)
		if kw, ok := keywords[tok.Value]; ok {
			tok.Kind = kw
		}
		return tok, nil
	case isDigit(c):
		return l.readNumber(start), nil
	case c == '"':
		return l.readString(start)
	case c == '\'':
		return l.readChar(start)
	}

	l.advance()
	single := func(kind TokenKind) (Token, error) {
		return l.token(kind, start), nil
	}
	double := func(next byte, two, one TokenKind) (Token, error) {
		if l.current == next && !l.eof() {
			l.advance()
			return l.token(two, start), nil
		}
		return l.token(one, start), nil
	}

	switch c {
	case '+':
		return double('+', CONCAT, PLUS)
	case '-':
		return single(MINUS)
	case '*':
		return single(STAR)
	case '/':
		return single(SLASH)
	case '%':
		return single(PERCENT)
	case '=':
		return double('=', EQ, ASSIGN)
	case '<':
		return double('=', LE, LT)
	case '>':
		return double('=', GE, GT)
	case '!':
		if l.current == '=' && !l.eof() {
			l.advance()
			return l.token(NEQ, start), nil
		}
	case '(':
		return single(LPAREN)
	case ')':
		return single(RPAREN)
	case '[':
		return single(LBRACKET)
	case ']':
		return single(RBRACKET)
	case ',':
		return single(COMMA)
	case ';':
		return single(SEMICOLON)
	case ':':
		return single(COLON)
	case '.':
		return single(DOT)
	case '?':
		return single(QUESTION)
	case '@':
		if l.current == '[' && !l.eof() {
			l.advance()
			return l.token(DICT_OPEN, start), nil
		}
	case '{':
		l.command = true
		return single(BLOCK_OPEN)
	case '$':
		if l.current == '{' && !l.eof() {
			l.advance()
			l.command = true
			return l.token(CAPTURE_OPEN, start), nil
		}
	case '&':
		if l.current == '{' && !l.eof() {
			l.advance()
			l.command = true
			return l.token(ASYNC_OPEN, start), nil
		}
	case '}':
		return single(BLOCK_CLOSE)
	}

	return Token{}, l.errorf(start, "unexpected character %s", quoteChar(c))
}

func (l *Lexer) readNumber(start Pos) Token {
	kind := INT
	for !l.eof() && isDigit(l.current) {
		l.advance()
	}
	if l.current == '.' && isDigit(l.peek()) {
		kind = FLOAT
		l.advance()
		for !l.eof() && isDigit(l.current) {
			l.advance()
		}
	}
	if l.current == 'e' || l.current == 'E' {
		next := l.peek()
		signed := (next == '+' || next == '-') && l.pos+2 < len(l.input) && isDigit(l.input[l.pos+2])
		if isDigit(next) || signed {
			kind = FLOAT
			l.advance()
			if signed {
				l.advance()
			}
			for !l.eof() && isDigit(l.current) {
				l.advance()
			}
		}
	}
	return l.token(kind, start)
}

// readEscape consumes the character after a backslash in a string or char
// literal.
func (l *Lexer) readEscape() (byte, bool) {
	c := l.current
	l.advance()
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return c, true
	}
	return c, false
}

func (l *Lexer) readString(start Pos) (Token, error) {
	l.advance() // skip opening "
	var result strings.Builder

	for {
		if l.eof() {
			return Token{}, l.errorf(start, "unterminated string literal")
		}
		switch l.current {
		case '"':
			l.advance()
			tok := l.token(STRING, start)
			tok.Value = result.String()
			return tok, nil
		case '\\':
			escPos := l.position()
			l.advance()
			if l.eof() {
				return Token{}, l.errorf(start, "unterminated string literal")
			}
			c, ok := l.readEscape()
			if !ok {
				return Token{}, l.errorf(escPos, "invalid escape sequence '\\%c'", c)
			}
			result.WriteByte(c)
		default:
			result.WriteByte(l.current)
			l.advance()
		}
	}
}

func (l *Lexer) readChar(start Pos) (Token, error) {
	l.advance() // skip opening '
	if l.eof() || l.current == '\'' {
		return Token{}, l.errorf(start, "invalid char literal")
	}

	var value byte
	if l.current == '\\' {
		escPos := l.position()
		l.advance()
		c, ok := l.readEscape()
		if !ok {
			return Token{}, l.errorf(escPos, "invalid escape sequence '\\%c'", c)
		}
		value = c
	} else {
		value = l.current
		l.advance()
	}

	if l.current != '\'' || l.eof() {
		return Token{}, l.errorf(start, "invalid char literal")
	}
	l.advance()

	tok := l.token(CHAR, start)
	tok.Value = string([]byte{value})
	return tok, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func quoteChar(c byte) string {
	if c >= 0x20 && c < 0x7f {
		return "'" + string(c) + "'"
	}
	return fmt.Sprintf("0x%02x", c)
}
