package hush

import (
	"fmt"
	"strconv"
)

// Parser is a recursive-descent parser. It stops at the first error.
type Parser struct {
	lexer   *Lexer
	current Token
	peeked  *Token
}

func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// Parse parses a whole source file into a program. Names are not resolved.
func Parse(source, filename string) (*Program, error) {
	return NewParser(NewLexer(source, filename)).Parse()
}

func (p *Parser) advance() error {
	if p.peeked != nil {
		p.current = *p.peeked
		p.peeked = nil
		return nil
	}
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *Parser) peek() (Token, error) {
	if p.peeked == nil {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		p.peeked = &tok
	}
	return *p.peeked, nil
}

func (p *Parser) errorf(pos Pos, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: ParseError, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (p *Parser) unexpected(expected string) *Diagnostic {
	return p.errorf(p.current.Pos, "expected %s, got %s", expected, p.current)
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	tok := p.current
	if tok.Kind != kind {
		return tok, p.unexpected(fmt.Sprintf("'%s'", kind))
	}
	return tok, p.advance()
}

func (p *Parser) Parse() (*Program, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(EOF)
	if err != nil {
		return nil, err
	}
	return &Program{Filename: p.lexer.filename, Body: body}, nil
}

// parseBlock parses statements until one of the terminators, which is left
// as the current token.
func (p *Parser) parseBlock(terminators ...TokenKind) (*Block, error) {
	block := &Block{node: node{p.current.Pos}}
	for {
		for p.current.Kind == SEMICOLON {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		for _, t := range terminators {
			if p.current.Kind == t {
				return block, nil
			}
		}
		if p.current.Kind == EOF {
			return nil, p.unexpected(fmt.Sprintf("'%s'", terminators[0]))
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
}

func (p *Parser) parseStatement() (Stmt, error) {
	start := p.current.Pos
	switch p.current.Kind {
	case LET:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		stmt := &LetStmt{node: node{start}, Name: name}
		if p.current.Kind == ASSIGN {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if stmt.Value, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
		return stmt, nil

	case FUNCTION:
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.Kind != IDENT {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		fn, err := p.parseFunctionRest(start, name.Name)
		if err != nil {
			return nil, err
		}
		return &LetStmt{node: node{start}, Name: name, Value: fn, Recursive: true}, nil

	case RETURN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		stmt := &ReturnStmt{node: node{start}}
		switch p.current.Kind {
		case END, ELSE, ELSEIF, SEMICOLON, EOF:
			return stmt, nil
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
		return stmt, nil

	case BREAK:
		return &BreakStmt{node: node{start}}, p.advance()

	case WHILE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(DO); err != nil {
			return nil, err
		}
		body, err := p.parseBlock(END)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(END); err != nil {
			return nil, err
		}
		return &WhileStmt{node: node{start}, Cond: cond, Body: body}, nil

	case FOR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(IN); err != nil {
			return nil, err
		}
		iter, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(DO); err != nil {
			return nil, err
		}
		body, err := p.parseBlock(END)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(END); err != nil {
			return nil, err
		}
		return &ForStmt{node: node{start}, Var: v, Iter: iter, Body: body}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.current.Kind != ASSIGN {
		return &ExprStmt{X: expr}, nil
	}

	switch expr.(type) {
	case *Ident, *IndexExpr:
	default:
		return nil, p.errorf(p.current.Pos, "invalid assignment target")
	}
	assignPos := p.current.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &AssignStmt{node: node{assignPos}, Target: expr, Value: value}, nil
}

func (p *Parser) parseIdent() (*Ident, error) {
	tok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	return &Ident{node: node{tok.Pos}, Name: tok.Value}, nil
}

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseBinary(0)
}

// Binary operator precedence, lowest first.
var precedence = [][]TokenKind{
	{OR},
	{AND},
	{EQ, NEQ},
	{LT, LE, GT, GE},
	{CONCAT},
	{PLUS, MINUS},
	{STAR, SLASH, PERCENT},
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(precedence[level])
		if !ok {
			return left, nil
		}
		pos := p.current.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{node: node{pos}, Op: op, X: left, Y: right}
	}
}

func (p *Parser) matchOperator(ops []TokenKind) (TokenKind, bool) {
	for _, op := range ops {
		if p.current.Kind == op {
			return op, true
		}
	}
	return 0, false
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.current.Kind == NOT || p.current.Kind == MINUS {
		op := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		if lit, ok, err := p.negativeInt(op); ok || err != nil {
			return lit, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{node: node{op.Pos}, Op: op.Kind, X: x}, nil
	}
	return p.parsePostfix()
}

// negativeInt folds a minus into the integer literal that follows it, so
// the smallest int can be written. A literal with a postfix operator is
// left to the general path.
func (p *Parser) negativeInt(op Token) (Expr, bool, error) {
	if op.Kind != MINUS || p.current.Kind != INT {
		return nil, false, nil
	}
	next, err := p.peek()
	if err != nil {
		return nil, false, err
	}
	switch next.Kind {
	case LPAREN, LBRACKET, DOT, QUESTION:
		return nil, false, nil
	}
	tok := p.current
	n, err := strconv.ParseInt("-"+tok.Value, 10, 64)
	if err != nil {
		return nil, false, p.errorf(tok.Pos, "integer literal -%s out of range", tok.Value)
	}
	return &Literal{node: node{op.Pos}, Value: Int(n)}, true, p.advance()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.current.Pos
		switch p.current.Kind {
		case LPAREN:
			if err := p.advance(); err != nil {
				return nil, err
			}
			args, err := p.parseList(RPAREN)
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{node: node{pos}, Fun: expr, Args: args}
		case LBRACKET:
			if err := p.advance(); err != nil {
				return nil, err
			}
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			expr = &IndexExpr{node: node{pos}, X: expr, Index: index}
		case DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			field, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			key := &Literal{node: node{field.Pos}, Value: String(field.Value)}
			expr = &IndexExpr{node: node{pos}, X: expr, Index: key, Dot: true}
		case QUESTION:
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &TryExpr{node: node{pos}, X: expr}
		default:
			return expr, nil
		}
	}
}

// parseList parses comma separated expressions up to the closing token,
// allowing a trailing comma.
func (p *Parser) parseList(closing TokenKind) ([]Expr, error) {
	var items []Expr
	for p.current.Kind != closing {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.current.Kind != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current
	literal := func(v Value) (Expr, error) {
		return &Literal{node: node{tok.Pos}, Value: v}, p.advance()
	}

	switch tok.Kind {
	case NIL:
		return literal(Nil{})
	case TRUE:
		return literal(Bool(true))
	case FALSE:
		return literal(Bool(false))
	case INT:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "integer literal %s out of range", tok.Value)
		}
		return literal(Int(n))
	case FLOAT:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid float literal %s", tok.Value)
		}
		return literal(Float(f))
	case CHAR:
		return literal(Char(tok.Value[0]))
	case STRING:
		return literal(String(tok.Value))
	case IDENT:
		return &Ident{node: node{tok.Pos}, Name: tok.Value}, p.advance()
	case SELF:
		return &SelfExpr{node: node{tok.Pos}}, p.advance()

	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case LBRACKET:
		if err := p.advance(); err != nil {
			return nil, err
		}
		items, err := p.parseList(RBRACKET)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{node: node{tok.Pos}, Items: items}, nil

	case DICT_OPEN:
		return p.parseDict()

	case FUNCTION:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseFunctionRest(tok.Pos, "")

	case IF:
		return p.parseIf()

	case BLOCK_OPEN:
		return p.parseCommandBlock(SyncBlock)
	case CAPTURE_OPEN:
		return p.parseCommandBlock(CaptureBlock)
	case ASYNC_OPEN:
		return p.parseCommandBlock(AsyncBlock)
	}

	return nil, p.unexpected("expression")
}

func (p *Parser) parseDict() (Expr, error) {
	dict := &DictLit{node: node{p.current.Pos}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for p.current.Kind != RBRACKET {
		key, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if seen[key.Value] {
			return nil, p.errorf(key.Pos, "duplicate key '%s' in dict literal", key.Value)
		}
		seen[key.Value] = true
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		dict.Entries = append(dict.Entries, DictEntry{Key: key.Value, Value: value})
		if p.current.Kind != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return dict, nil
}

// parseFunctionRest parses the parameter list and body after `function` and
// the optional name.
func (p *Parser) parseFunctionRest(pos Pos, name string) (*FuncLit, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	fn := &FuncLit{node: node{pos}, Name: name}
	for p.current.Kind != RPAREN {
		param, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
		if p.current.Kind != COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(END)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	if _, err := p.expect(END); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseIf() (Expr, error) {
	pos := p.current.Pos
	if err := p.advance(); err != nil { // if or elseif
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(THEN); err != nil {
		return nil, err
	}
	then, err := p.parseBlock(END, ELSE, ELSEIF)
	if err != nil {
		return nil, err
	}
	expr := &IfExpr{node: node{pos}, Cond: cond, Then: then}

	switch p.current.Kind {
	case ELSEIF:
		elsePos := p.current.Pos
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		expr.Else = &Block{node: node{elsePos}, Stmts: []Stmt{&ExprStmt{X: nested}}}
		return expr, nil
	case ELSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if expr.Else, err = p.parseBlock(END); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(END); err != nil {
		return nil, err
	}
	return expr, nil
}
