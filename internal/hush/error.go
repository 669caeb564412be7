package hush

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// FormatPos renders a position the way diagnostics and command errors show it.
func FormatPos(pos Pos) string {
	return fmt.Sprintf("%s (line %d, column %d)", pos.Filename, pos.Line, pos.Column)
}

type DiagnosticKind int

const (
	LexError DiagnosticKind = iota
	ParseError
	SemanticError
)

func (k DiagnosticKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case SemanticError:
		return "semantic error"
	default:
		return "error"
	}
}

// Diagnostic is a static error found before the program runs.
type Diagnostic struct {
	Kind DiagnosticKind
	Msg  string
	Pos  Pos
}

var _ participle.Error = (*Diagnostic)(nil)

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s - %s", FormatPos(d.Pos), d.Msg)
}

func (d *Diagnostic) Message() string { return d.Msg }

func (d *Diagnostic) Position() lexer.Position { return d.Pos }

// Diagnostics is every static error of a compilation unit, in source order.
type Diagnostics []*Diagnostic

func (ds Diagnostics) Error() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.Error()
	}
	return strings.Join(lines, "\n")
}

// Panic is an irrecoverable runtime failure. It unwinds to the top level or
// to the nearest std.catch.
type Panic struct {
	Msg string
	Pos Pos
}

func (p *Panic) Error() string {
	return fmt.Sprintf("Panic in %s: %s", FormatPos(p.Pos), p.Msg)
}

func panicf(pos Pos, format string, args ...interface{}) *Panic {
	return &Panic{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// ExitError is raised by std.exit and carries the requested status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// returnSignal carries a return value up to the enclosing call.
type returnSignal struct {
	value Value
}

func (*returnSignal) Error() string { return "return outside function" }

// breakSignal unwinds to the enclosing loop.
type breakSignal struct{}

func (*breakSignal) Error() string { return "break outside loop" }

func errDivisionByZero(pos Pos) *Panic {
	return panicf(pos, "division by zero")
}

func errIndexOutOfBounds(index Value, pos Pos) *Panic {
	return panicf(pos, "index (%s) out of bounds", Inspect(index))
}

func errKeyNotFound(key Value, pos Pos) *Panic {
	return panicf(pos, "key (%s) not found", Inspect(key))
}

func errInvalidCall(fn Value, pos Pos) *Panic {
	return panicf(pos, "attempt to call (%s), which is not a function", Inspect(fn))
}

func errArity(expected, got int, pos Pos) *Panic {
	return panicf(pos, "arity mismatch: expected %d arguments, got %d", expected, got)
}

func errCondition(v Value, pos Pos) *Panic {
	return panicf(pos, "condition (%s) is not a boolean", Inspect(v))
}

func errOperand(v Value, pos Pos) *Panic {
	return panicf(pos, "operand (%s) has an invalid type", Inspect(v))
}

func errOperands(op string, a, b Value, pos Pos) *Panic {
	return panicf(pos, "invalid operands (%s: %s) and (%s: %s) for '%s'",
		Inspect(a), TypeOf(a), Inspect(b), TypeOf(b), op)
}

func errOverflow(pos Pos) *Panic {
	return panicf(pos, "integer overflow")
}

func errType(v Value, expected string, pos Pos) *Panic {
	return panicf(pos, "type error: expected %s, got (%s: %s)", expected, Inspect(v), TypeOf(v))
}
