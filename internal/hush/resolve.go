package hush

import "fmt"

// funcScope tracks the lexical blocks of one function body. The top level
// of a program is a funcScope without parent.
type funcScope struct {
	parent   *funcScope
	isFunc   bool
	blocks   []map[string]int
	numSlots int
	captures []Capture
	captured map[captureKey]int
	loops    int
}

type captureKey struct {
	fromLocal bool
	index     int
}

func newFuncScope(parent *funcScope, isFunc bool) *funcScope {
	return &funcScope{
		parent:   parent,
		isFunc:   isFunc,
		blocks:   []map[string]int{{}},
		captured: make(map[captureKey]int),
	}
}

func (fs *funcScope) declare(name string) int {
	slot := fs.numSlots
	fs.numSlots++
	fs.blocks[len(fs.blocks)-1][name] = slot
	return slot
}

func (fs *funcScope) capture(b Binding, name string) int {
	key := captureKey{fromLocal: b.Kind == Local, index: b.Index}
	if idx, ok := fs.captured[key]; ok {
		return idx
	}
	idx := len(fs.captures)
	fs.captures = append(fs.captures, Capture{FromLocal: key.fromLocal, Index: b.Index, Name: name})
	fs.captured[key] = idx
	return idx
}

// Resolver binds every identifier to a frame slot, an upvalue or a global.
// Top-level declarations persist across calls to Resolve, so successive
// inputs can share one root frame.
type Resolver struct {
	globals map[string]int
	root    *funcScope
	fn      *funcScope
	diags   Diagnostics
}

// NewResolver creates a resolver whose predeclared names are globals, in
// index order.
func NewResolver(globals []string) *Resolver {
	r := &Resolver{
		globals: make(map[string]int, len(globals)),
		root:    newFuncScope(nil, false),
	}
	for i, name := range globals {
		r.globals[name] = i
	}
	return r
}

// Resolve annotates prog in place. It reports every problem found, as
// Diagnostics. On failure the resolver's top-level state is left unchanged.
func (r *Resolver) Resolve(prog *Program) error {
	saved := make(map[string]int, len(r.root.blocks[0]))
	for k, v := range r.root.blocks[0] {
		saved[k] = v
	}
	savedSlots := r.root.numSlots

	r.fn = r.root
	r.diags = nil
	for _, stmt := range prog.Body.Stmts {
		r.stmt(stmt)
	}
	prog.NumSlots = r.root.numSlots

	if len(r.diags) > 0 {
		r.root.blocks[0] = saved
		r.root.numSlots = savedSlots
		return r.diags
	}
	return nil
}

func (r *Resolver) errorf(pos Pos, format string, args ...interface{}) {
	r.diags = append(r.diags, &Diagnostic{Kind: SemanticError, Msg: fmt.Sprintf(format, args...), Pos: pos})
}

func (r *Resolver) pushBlock() {
	r.fn.blocks = append(r.fn.blocks, map[string]int{})
}

func (r *Resolver) popBlock() {
	r.fn.blocks = r.fn.blocks[:len(r.fn.blocks)-1]
}

func (r *Resolver) lookup(fs *funcScope, name string) (Binding, bool) {
	for i := len(fs.blocks) - 1; i >= 0; i-- {
		if slot, ok := fs.blocks[i][name]; ok {
			return Binding{Kind: Local, Index: slot}, true
		}
	}
	if fs.parent == nil {
		if idx, ok := r.globals[name]; ok {
			return Binding{Kind: Global, Index: idx}, true
		}
		return Binding{}, false
	}
	outer, ok := r.lookup(fs.parent, name)
	if !ok || outer.Kind == Global {
		return outer, ok
	}
	return Binding{Kind: Upvalue, Index: fs.capture(outer, name)}, true
}

func (r *Resolver) use(id *Ident) {
	b, ok := r.lookup(r.fn, id.Name)
	if !ok {
		r.errorf(id.Pos(), "undeclared variable '%s'", id.Name)
		return
	}
	id.Binding = b
}

func (r *Resolver) declare(id *Ident) {
	id.Binding = Binding{Kind: Local, Index: r.fn.declare(id.Name)}
}

func (r *Resolver) block(b *Block) {
	if b == nil {
		return
	}
	r.pushBlock()
	for _, stmt := range b.Stmts {
		r.stmt(stmt)
	}
	r.popBlock()
}

func (r *Resolver) stmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *LetStmt:
		if s.Recursive {
			r.declare(s.Name)
			r.expr(s.Value)
		} else {
			r.expr(s.Value)
			r.declare(s.Name)
		}

	case *AssignStmt:
		switch target := s.Target.(type) {
		case *Ident:
			r.use(target)
			if target.Binding.Kind == Global {
				r.errorf(target.Pos(), "cannot assign to '%s'", target.Name)
			}
		default:
			r.expr(target)
		}
		r.expr(s.Value)

	case *ReturnStmt:
		if !r.fn.isFunc {
			r.errorf(s.Pos(), "return outside function")
		}
		r.expr(s.Value)

	case *BreakStmt:
		if r.fn.loops == 0 {
			r.errorf(s.Pos(), "break outside loop")
		}

	case *WhileStmt:
		r.expr(s.Cond)
		r.fn.loops++
		r.block(s.Body)
		r.fn.loops--

	case *ForStmt:
		r.expr(s.Iter)
		r.pushBlock()
		r.declare(s.Var)
		r.fn.loops++
		r.block(s.Body)
		r.fn.loops--
		r.popBlock()

	case *ExprStmt:
		r.expr(s.X)
	}
}

func (r *Resolver) expr(expr Expr) {
	switch e := expr.(type) {
	case nil, *Literal, *SelfExpr:

	case *Ident:
		r.use(e)

	case *ArrayLit:
		for _, item := range e.Items {
			r.expr(item)
		}

	case *DictLit:
		for _, entry := range e.Entries {
			r.expr(entry.Value)
		}

	case *FuncLit:
		r.function(e)

	case *UnaryExpr:
		r.expr(e.X)

	case *BinaryExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *IfExpr:
		r.expr(e.Cond)
		r.block(e.Then)
		r.block(e.Else)

	case *IndexExpr:
		r.expr(e.X)
		r.expr(e.Index)

	case *CallExpr:
		r.expr(e.Fun)
		for _, arg := range e.Args {
			r.expr(arg)
		}

	case *TryExpr:
		if !r.fn.isFunc {
			r.errorf(e.Pos(), "try operator outside function")
		}
		r.expr(e.X)

	case *CommandBlock:
		r.commandBlock(e)
	}
}

func (r *Resolver) function(lit *FuncLit) {
	fs := newFuncScope(r.fn, true)
	r.fn = fs

	seen := make(map[string]bool, len(lit.Params))
	for _, param := range lit.Params {
		if seen[param.Name] {
			r.errorf(param.Pos(), "duplicate parameter '%s'", param.Name)
		}
		seen[param.Name] = true
		r.declare(param)
	}
	for _, stmt := range lit.Body.Stmts {
		r.stmt(stmt)
	}

	lit.NumSlots = fs.numSlots
	lit.Captures = fs.captures
	r.fn = fs.parent
}

func isBuiltinProgram(arg *Argument) (string, bool) {
	if len(arg.Units) != 1 {
		return "", false
	}
	u := arg.Units[0]
	if u.Kind != ArgText || u.Quoted || !builtinCommands[u.Text] {
		return "", false
	}
	return u.Text, true
}

func (r *Resolver) commandBlock(block *CommandBlock) {
	for _, cmd := range block.Commands {
		for _, stage := range cmd.Stages {
			if name, ok := isBuiltinProgram(stage.Program); ok {
				switch {
				case block.Kind != SyncBlock:
					r.errorf(stage.Pos(), "built-in command '%s' cannot be used in %s block", name, block.Kind)
				case len(cmd.Stages) > 1:
					r.errorf(stage.Pos(), "built-in command '%s' cannot be used in a pipeline", name)
				case len(stage.Redirects) > 0:
					r.errorf(stage.Pos(), "built-in command '%s' does not support redirections", name)
				}
			}

			r.argument(stage.Program)
			for _, arg := range stage.Args {
				r.argument(arg)
			}
			for _, redirect := range stage.Redirects {
				if redirect.Target != nil {
					r.argument(redirect.Target)
				}
			}
		}
	}
}

func (r *Resolver) argument(arg *Argument) {
	for _, unit := range arg.Units {
		if unit.Var != nil {
			r.use(unit.Var)
		}
	}
}
