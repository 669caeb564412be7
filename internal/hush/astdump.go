package hush

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

func (b Binding) String() string {
	if b.Kind == Unresolved {
		return "unresolved"
	}
	return fmt.Sprintf("%s %d", b.Kind, b.Index)
}

type dumper struct {
	w   io.Writer
	err error
}

// Dump writes an indented rendering of prog, including resolved bindings.
func Dump(w io.Writer, prog *Program) error {
	d := &dumper{w: w}
	d.line(0, "program %q slots=%d", prog.Filename, prog.NumSlots)
	d.block(1, prog.Body)
	return d.err
}

func (d *dumper) line(depth int, format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (d *dumper) block(depth int, b *Block) {
	if b == nil {
		return
	}
	for _, stmt := range b.Stmts {
		d.stmt(depth, stmt)
	}
}

func (d *dumper) stmt(depth int, stmt Stmt) {
	switch s := stmt.(type) {
	case *LetStmt:
		if s.Recursive {
			d.line(depth, "let %s (%s) recursive", s.Name.Name, s.Name.Binding)
		} else {
			d.line(depth, "let %s (%s)", s.Name.Name, s.Name.Binding)
		}
		if s.Value != nil {
			d.expr(depth+1, s.Value)
		}
	case *AssignStmt:
		d.line(depth, "assign")
		d.expr(depth+1, s.Target)
		d.expr(depth+1, s.Value)
	case *ReturnStmt:
		d.line(depth, "return")
		if s.Value != nil {
			d.expr(depth+1, s.Value)
		}
	case *BreakStmt:
		d.line(depth, "break")
	case *WhileStmt:
		d.line(depth, "while")
		d.expr(depth+1, s.Cond)
		d.line(depth+1, "do")
		d.block(depth+2, s.Body)
	case *ForStmt:
		d.line(depth, "for %s (%s)", s.Var.Name, s.Var.Binding)
		d.expr(depth+1, s.Iter)
		d.line(depth+1, "do")
		d.block(depth+2, s.Body)
	case *ExprStmt:
		d.expr(depth, s.X)
	}
}

func (d *dumper) expr(depth int, expr Expr) {
	switch x := expr.(type) {
	case *Literal:
		d.line(depth, "literal %s", Inspect(x.Value))
	case *Ident:
		d.line(depth, "ident %s (%s)", x.Name, x.Binding)
	case *SelfExpr:
		d.line(depth, "self")
	case *ArrayLit:
		d.line(depth, "array")
		for _, item := range x.Items {
			d.expr(depth+1, item)
		}
	case *DictLit:
		d.line(depth, "dict")
		for _, entry := range x.Entries {
			d.line(depth+1, "key %s", entry.Key)
			d.expr(depth+2, entry.Value)
		}
	case *FuncLit:
		params := make([]string, len(x.Params))
		for i, p := range x.Params {
			params[i] = fmt.Sprintf("%s (%s)", p.Name, p.Binding)
		}
		d.line(depth, "function %s(%s) slots=%d", x.Name, strings.Join(params, ", "), x.NumSlots)
		for _, c := range x.Captures {
			from := "upvalue"
			if c.FromLocal {
				from = "local"
			}
			d.line(depth+1, "capture %s (%s %d)", c.Name, from, c.Index)
		}
		d.line(depth+1, "body")
		d.block(depth+2, x.Body)
	case *UnaryExpr:
		d.line(depth, "unary %s", x.Op)
		d.expr(depth+1, x.X)
	case *BinaryExpr:
		d.line(depth, "binary %s", x.Op)
		d.expr(depth+1, x.X)
		d.expr(depth+1, x.Y)
	case *IfExpr:
		d.line(depth, "if")
		d.expr(depth+1, x.Cond)
		d.line(depth+1, "then")
		d.block(depth+2, x.Then)
		if x.Else != nil {
			d.line(depth+1, "else")
			d.block(depth+2, x.Else)
		}
	case *IndexExpr:
		if x.Dot {
			d.line(depth, "field")
		} else {
			d.line(depth, "index")
		}
		d.expr(depth+1, x.X)
		d.expr(depth+1, x.Index)
	case *CallExpr:
		d.line(depth, "call")
		d.expr(depth+1, x.Fun)
		for _, arg := range x.Args {
			d.expr(depth+1, arg)
		}
	case *TryExpr:
		d.line(depth, "try")
		d.expr(depth+1, x.X)
	case *CommandBlock:
		d.line(depth, "command-block %s", x.Kind)
		for _, cmd := range x.Commands {
			d.command(depth+1, cmd)
		}
	}
}

func (d *dumper) command(depth int, cmd *Command) {
	if cmd.Builtin != "" {
		d.line(depth, "builtin %s", cmd.Builtin)
	} else {
		d.line(depth, "pipeline")
	}
	for _, stage := range cmd.Stages {
		flag := ""
		if stage.AllowFail {
			flag = " ?"
		}
		d.line(depth+1, "command %s%s", renderArgument(stage.Program), flag)
		for _, arg := range stage.Args {
			d.line(depth+2, "arg %s", renderArgument(arg))
		}
		for _, r := range stage.Redirects {
			if r.TargetFd >= 0 {
				d.line(depth+2, "redirect %d%s%d", r.Fd, r.Kind, r.TargetFd)
			} else {
				d.line(depth+2, "redirect %d%s %s", r.Fd, r.Kind, renderArgument(r.Target))
			}
		}
	}
}

func renderArgument(arg *Argument) string {
	var b strings.Builder
	for _, u := range arg.Units {
		switch u.Kind {
		case ArgText:
			if u.Quoted {
				b.WriteString(strconv.Quote(u.Text))
			} else {
				b.WriteString(u.Text)
			}
		case ArgHome:
			b.WriteString("~")
		case ArgVar:
			if u.Var == nil {
				b.WriteString("${self}")
			} else {
				fmt.Fprintf(&b, "${%s (%s)}", u.Var.Name, u.Var.Binding)
			}
		}
	}
	return b.String()
}
