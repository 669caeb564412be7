package hush

import "strings"

func (l *Lexer) nextCommandToken() (Token, error) {
	l.skipWhitespace()
	start := l.position()

	if l.eof() {
		// Leave command mode so a caller that keeps pulling tokens terminates.
		l.command = false
		return Token{}, l.errorf(start, "unterminated command block")
	}

	c := l.current
	switch c {
	case '}':
		l.advance()
		l.command = false
		return l.token(BLOCK_CLOSE, start), nil
	case ';':
		l.advance()
		return l.token(SEMICOLON, start), nil
	case '|':
		l.advance()
		return l.token(PIPE, start), nil
	case '?':
		l.advance()
		return l.token(QUESTION, start), nil
	case '>':
		l.advance()
		if l.current == '>' && !l.eof() {
			l.advance()
			return l.token(REDIRECT_APPEND, start), nil
		}
		return l.token(REDIRECT_OUT, start), nil
	case '<':
		l.advance()
		if l.current == '<' && !l.eof() {
			l.advance()
			return l.token(REDIRECT_LITERAL, start), nil
		}
		return l.token(REDIRECT_IN, start), nil
	}

	return l.readArgument(start)
}

func isArgTerminator(c byte) bool {
	return isSpace(c) || strings.IndexByte(";|?><}#", c) >= 0
}

// argBuilder merges adjacent text of the same quoting into one part.
type argBuilder struct {
	parts []ArgPart
}

func (b *argBuilder) text(s string, quoted bool, pos Pos) {
	if n := len(b.parts); n > 0 {
		last := &b.parts[n-1]
		if last.Kind == ArgText && last.Quoted == quoted {
			last.Text += s
			return
		}
	}
	b.parts = append(b.parts, ArgPart{Kind: ArgText, Text: s, Quoted: quoted, Pos: pos})
}

func (b *argBuilder) variable(name string, pos Pos) {
	b.parts = append(b.parts, ArgPart{Kind: ArgVar, Text: name, Pos: pos})
}

func (l *Lexer) readArgument(start Pos) (Token, error) {
	var b argBuilder

	if l.current == '~' {
		next := l.peek()
		if next == '/' || l.pos+1 >= len(l.input) || isArgTerminator(next) {
			b.parts = append(b.parts, ArgPart{Kind: ArgHome, Text: "~", Pos: start})
			l.advance()
		}
	}

	for !l.eof() && !isArgTerminator(l.current) {
		pos := l.position()
		switch l.current {
		case '\'':
			text, err := l.readSingleQuoted()
			if err != nil {
				return Token{}, err
			}
			b.text(text, true, pos)
		case '"':
			if err := l.readDoubleQuoted(&b); err != nil {
				return Token{}, err
			}
		case '$':
			name, err := l.readVariable()
			if err != nil {
				return Token{}, err
			}
			b.variable(name, pos)
		case '\\':
			l.advance()
			if l.eof() {
				return Token{}, l.errorf(pos, "unterminated escape sequence")
			}
			c := l.current
			l.advance()
			switch c {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case '0':
				c = 0
			case '#', '\'', '"', '>', '<', '?', ';', '|', '$', '{', '}', '\\', ' ', '\t', '\n',
				'*', '%', '[', ']', '~':
			default:
				return Token{}, l.errorf(pos, "invalid escape sequence '\\%c'", c)
			}
			b.text(string([]byte{c}), true, pos)
		default:
			b.text(string([]byte{l.current}), false, pos)
			l.advance()
		}
	}

	tok := l.token(ARGUMENT, start)
	tok.Parts = b.parts
	return tok, nil
}

func (l *Lexer) readSingleQuoted() (string, error) {
	start := l.position()
	l.advance() // skip opening '
	var result strings.Builder
	for {
		if l.eof() {
			return "", l.errorf(start, "unterminated single-quoted string")
		}
		switch l.current {
		case '\'':
			l.advance()
			return result.String(), nil
		case '\\':
			if next := l.peek(); next == '\'' || next == '\\' {
				l.advance()
			}
		}
		result.WriteByte(l.current)
		l.advance()
	}
}

func (l *Lexer) readDoubleQuoted(b *argBuilder) error {
	start := l.position()
	l.advance() // skip opening "
	for {
		if l.eof() {
			return l.errorf(start, "unterminated double-quoted string")
		}
		pos := l.position()
		switch l.current {
		case '"':
			l.advance()
			if len(b.parts) == 0 {
				b.text("", true, start)
			}
			return nil
		case '$':
			name, err := l.readVariable()
			if err != nil {
				return err
			}
			b.variable(name, pos)
		case '\\':
			l.advance()
			if l.eof() {
				return l.errorf(start, "unterminated double-quoted string")
			}
			c := l.current
			l.advance()
			switch c {
			case 'n':
				b.text("\n", true, pos)
			case 't':
				b.text("\t", true, pos)
			case 'r':
				b.text("\r", true, pos)
			case '0':
				b.text("\x00", true, pos)
			case '"', '\\', '$':
				b.text(string([]byte{c}), true, pos)
			default:
				b.text(string([]byte{'\\', c}), true, pos)
			}
		default:
			b.text(string([]byte{l.current}), true, pos)
			l.advance()
		}
	}
}

// readVariable reads $name or ${name}.
func (l *Lexer) readVariable() (string, error) {
	start := l.position()
	l.advance() // skip $

	braced := l.current == '{' && !l.eof()
	if braced {
		l.advance()
	}

	nameStart := l.pos
	if l.eof() || !isIdentStart(l.current) {
		return "", l.errorf(start, "invalid variable reference")
	}
	for !l.eof() && isIdentChar(l.current) {
		l.advance()
	}
	name := l.input[nameStart:l.pos]

	if braced {
		if l.current != '}' || l.eof() {
			return "", l.errorf(start, "unterminated variable reference")
		}
		l.advance()
	}
	return name, nil
}
