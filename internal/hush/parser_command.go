package hush

func isRedirect(kind TokenKind) bool {
	switch kind {
	case REDIRECT_OUT, REDIRECT_APPEND, REDIRECT_IN, REDIRECT_LITERAL:
		return true
	}
	return false
}

// fdNumber returns the descriptor an argument token spells, if it is a
// plain unquoted number.
func fdNumber(tok Token) (int, bool) {
	if tok.Kind != ARGUMENT || len(tok.Parts) != 1 {
		return 0, false
	}
	part := tok.Parts[0]
	if part.Kind != ArgText || part.Quoted || part.Text == "" || len(part.Text) > 3 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(part.Text); i++ {
		if !isDigit(part.Text[i]) {
			return 0, false
		}
		n = n*10 + int(part.Text[i]-'0')
	}
	return n, true
}

// isFdPrefix reports whether the current token is a descriptor number glued
// to a following redirection operator, as in `2>file`.
func (p *Parser) isFdPrefix() (bool, error) {
	if _, ok := fdNumber(p.current); !ok {
		return false, nil
	}
	next, err := p.peek()
	if err != nil {
		return false, err
	}
	return isRedirect(next.Kind) && next.Pos.Offset == p.current.End, nil
}

func (p *Parser) parseCommandBlock(kind BlockKind) (Expr, error) {
	block := &CommandBlock{node: node{p.current.Pos}, Kind: kind}
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.current.Kind != BLOCK_CLOSE {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		block.Commands = append(block.Commands, cmd)

		if p.current.Kind == BLOCK_CLOSE {
			break
		}
		if p.current.Kind != SEMICOLON {
			return nil, p.unexpected("';' or '}'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if len(block.Commands) == 0 {
		return nil, p.errorf(block.Pos(), "empty command block")
	}
	return block, p.advance()
}

func (p *Parser) parseCommand() (*Command, error) {
	cmd := &Command{node: node{p.current.Pos}}
	for {
		stage, err := p.parseBasicCommand()
		if err != nil {
			return nil, err
		}
		cmd.Stages = append(cmd.Stages, stage)
		if p.current.Kind != PIPE {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	head := cmd.Stages[0].Program
	if len(head.Units) == 1 && head.Units[0].Kind == ArgText && !head.Units[0].Quoted &&
		builtinCommands[head.Units[0].Text] {
		cmd.Builtin = head.Units[0].Text
	}
	return cmd, nil
}

func (p *Parser) parseBasicCommand() (*BasicCommand, error) {
	if p.current.Kind != ARGUMENT {
		return nil, p.unexpected("command")
	}
	if fd, err := p.isFdPrefix(); err != nil {
		return nil, err
	} else if fd {
		return nil, p.errorf(p.current.Pos, "expected command before redirection")
	}

	cmd := &BasicCommand{node: node{p.current.Pos}, Program: p.argument(p.current)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.current.Kind == ARGUMENT {
		fd, err := p.isFdPrefix()
		if err != nil {
			return nil, err
		}
		if fd {
			break
		}
		cmd.Args = append(cmd.Args, p.argument(p.current))
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	for {
		fd, err := p.isFdPrefix()
		if err != nil {
			return nil, err
		}
		if !fd && !isRedirect(p.current.Kind) {
			break
		}
		redirect, err := p.parseRedirect()
		if err != nil {
			return nil, err
		}
		cmd.Redirects = append(cmd.Redirects, redirect)
	}

	if p.current.Kind == ARGUMENT {
		return nil, p.errorf(p.current.Pos, "arguments must come before redirections")
	}

	if p.current.Kind == QUESTION {
		cmd.AllowFail = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func (p *Parser) parseRedirect() (*Redirect, error) {
	redirect := &Redirect{node: node{p.current.Pos}, Fd: -1, TargetFd: -1}
	if n, ok := fdNumber(p.current); ok {
		redirect.Fd = n
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	op := p.current
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case REDIRECT_OUT, REDIRECT_APPEND:
		if op.Kind == REDIRECT_OUT {
			redirect.Kind = RedirectOutput
		} else {
			redirect.Kind = RedirectAppend
		}
		if redirect.Fd == -1 {
			redirect.Fd = 1
		}
		if redirect.Fd != 1 && redirect.Fd != 2 {
			return nil, p.errorf(redirect.Pos(), "invalid output file descriptor %d", redirect.Fd)
		}
		if n, ok := fdNumber(p.current); ok && op.Kind == REDIRECT_OUT && p.current.Pos.Offset == op.End {
			if n != 1 && n != 2 {
				return nil, p.errorf(p.current.Pos, "invalid output file descriptor %d", n)
			}
			redirect.TargetFd = n
			return redirect, p.advance()
		}
	case REDIRECT_IN, REDIRECT_LITERAL:
		if op.Kind == REDIRECT_IN {
			redirect.Kind = RedirectInput
		} else {
			redirect.Kind = RedirectLiteral
		}
		if redirect.Fd == -1 {
			redirect.Fd = 0
		}
		if redirect.Fd != 0 {
			return nil, p.errorf(redirect.Pos(), "invalid input file descriptor %d", redirect.Fd)
		}
	}

	if p.current.Kind != ARGUMENT {
		return nil, p.unexpected("redirection target")
	}
	redirect.Target = p.argument(p.current)
	return redirect, p.advance()
}

func (p *Parser) argument(tok Token) *Argument {
	arg := &Argument{node: node{tok.Pos}}
	for _, part := range tok.Parts {
		unit := ArgUnit{Kind: part.Kind, Text: part.Text, Quoted: part.Quoted, Pos: part.Pos}
		if part.Kind == ArgVar && part.Text != "self" {
			unit.Var = &Ident{node: node{part.Pos}, Name: part.Text}
		}
		arg.Units = append(arg.Units, unit)
	}
	return arg
}
