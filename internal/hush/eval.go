package hush

import (
	"bufio"
	"io"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const DefaultMaxCallDepth = 2048

// globalNames are the predeclared globals, in slot order.
var globalNames = []string{"std"}

// frame is the storage of one function activation. Slots hold cells so that
// closures created in the activation can share them.
type frame struct {
	locals   []*Cell
	upvalues []*Cell
	self     Value
}

func (f *frame) local(i int) *Cell {
	c := f.locals[i]
	if c == nil {
		c = &Cell{Value: Nil{}}
		f.locals[i] = c
	}
	return c
}

func (f *frame) grow(n int) {
	for len(f.locals) < n {
		f.locals = append(f.locals, nil)
	}
}

type Evaluator struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	fs       afero.Fs
	log      *log.Logger
	args     []string
	maxDepth int

	depth    int
	globals  []Value
	resolver *Resolver
	root     *frame
	imports  map[string]Value
	input    *bufio.Reader
	rand     *rand.Rand
}

type Option func(*Evaluator)

// WithStdio sets the streams used by print functions and inherited by
// commands. A nil stdin gives commands an empty input.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Evaluator) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithArgs sets the values returned by std.args.
func WithArgs(args []string) Option {
	return func(e *Evaluator) { e.args = args }
}

// WithFs sets the filesystem used for globbing, redirections and imports.
func WithFs(fs afero.Fs) Option {
	return func(e *Evaluator) { e.fs = fs }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

func WithMaxCallDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		fs:       afero.NewOsFs(),
		log:      log.New(io.Discard, "[hush] ", 0),
		maxDepth: DefaultMaxCallDepth,
		resolver: NewResolver(globalNames),
		root:     &frame{self: Nil{}},
		imports:  make(map[string]Value),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	// Commands write concurrently with the evaluator; only real files are
	// safe to share without a lock.
	e.stdout = syncWriter(e.stdout)
	e.stderr = syncWriter(e.stderr)
	e.globals = []Value{newStd()}
	return e
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func syncWriter(w io.Writer) io.Writer {
	switch w.(type) {
	case *os.File, *lockedWriter:
		return w
	case nil:
		return io.Discard
	}
	return &lockedWriter{w: w}
}

// Compile parses and resolves source against the evaluator's top level, so
// declarations from earlier compilations stay visible.
func (e *Evaluator) Compile(source, filename string) (*Program, error) {
	prog, err := Parse(source, filename)
	if err != nil {
		return nil, err
	}
	if err := e.resolver.Resolve(prog); err != nil {
		return nil, err
	}
	e.log.Printf("compiled %s: %d top-level slots", filename, prog.NumSlots)
	return prog, nil
}

// Run evaluates a compiled program in the top-level frame and returns the
// value of its last statement. Errors are *Panic or *ExitError.
func (e *Evaluator) Run(prog *Program) (Value, error) {
	e.root.grow(prog.NumSlots)
	e.depth = 0
	v, err := e.evalBlock(e.root, prog.Body)
	if err != nil {
		switch err.(type) {
		case *returnSignal, *breakSignal:
			return nil, panicf(prog.Body.Pos(), "%s", err.Error())
		}
		return nil, err
	}
	return v, nil
}

func (e *Evaluator) evalBlock(f *frame, b *Block) (Value, error) {
	var result Value = Nil{}
	for _, stmt := range b.Stmts {
		v, err := e.exec(f, stmt)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) exec(f *frame, stmt Stmt) (Value, error) {
	switch s := stmt.(type) {
	case *LetStmt:
		slot := s.Name.Binding.Index
		if s.Recursive {
			cell := &Cell{Value: Nil{}}
			f.locals[slot] = cell
			v, err := e.eval(f, s.Value)
			if err != nil {
				return nil, err
			}
			cell.Value = v
			return Nil{}, nil
		}
		var v Value = Nil{}
		if s.Value != nil {
			var err error
			if v, err = e.eval(f, s.Value); err != nil {
				return nil, err
			}
		}
		f.locals[slot] = &Cell{Value: v}
		return Nil{}, nil

	case *AssignStmt:
		return Nil{}, e.assign(f, s)

	case *ReturnStmt:
		var v Value = Nil{}
		if s.Value != nil {
			var err error
			if v, err = e.eval(f, s.Value); err != nil {
				return nil, err
			}
		}
		return nil, &returnSignal{value: v}

	case *BreakStmt:
		return nil, &breakSignal{}

	case *WhileStmt:
		for {
			ok, err := e.condition(f, s.Cond)
			if err != nil {
				return nil, err
			}
			if !ok {
				return Nil{}, nil
			}
			if _, err := e.evalBlock(f, s.Body); err != nil {
				if _, brk := err.(*breakSignal); brk {
					return Nil{}, nil
				}
				return nil, err
			}
		}

	case *ForStmt:
		return Nil{}, e.forLoop(f, s)

	case *ExprStmt:
		return e.eval(f, s.X)
	}
	return nil, panicf(stmt.Pos(), "unknown statement %T", stmt)
}

func (e *Evaluator) condition(f *frame, expr Expr) (bool, error) {
	v, err := e.eval(f, expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, errCondition(v, expr.Pos())
	}
	return bool(b), nil
}

func (e *Evaluator) forLoop(f *frame, s *ForStmt) error {
	it, err := e.eval(f, s.Iter)
	if err != nil {
		return err
	}
	if _, ok := it.(*Function); !ok {
		return errType(it, "iterator function", s.Iter.Pos())
	}
	for {
		step, err := e.call(it, Nil{}, nil, s.Iter.Pos())
		if err != nil {
			return err
		}
		dict, ok := step.(*Dict)
		if !ok {
			return panicf(s.Iter.Pos(), "iterator returned (%s), expected @[finished, value]", Inspect(step))
		}
		finished, ok := dict.Get(String("finished"))
		done, isBool := finished.(Bool)
		if !ok || !isBool {
			return panicf(s.Iter.Pos(), "iterator returned (%s), expected @[finished, value]", Inspect(step))
		}
		if done {
			return nil
		}
		value, ok := dict.Get(String("value"))
		if !ok {
			value = Nil{}
		}
		f.locals[s.Var.Binding.Index] = &Cell{Value: value}
		if _, err := e.evalBlock(f, s.Body); err != nil {
			if _, brk := err.(*breakSignal); brk {
				return nil
			}
			return err
		}
	}
}

func (e *Evaluator) assign(f *frame, s *AssignStmt) error {
	switch target := s.Target.(type) {
	case *Ident:
		v, err := e.eval(f, s.Value)
		if err != nil {
			return err
		}
		switch target.Binding.Kind {
		case Local:
			f.local(target.Binding.Index).Value = v
		case Upvalue:
			f.upvalues[target.Binding.Index].Value = v
		default:
			return panicf(target.Pos(), "cannot assign to '%s'", target.Name)
		}
		return nil

	case *IndexExpr:
		container, err := e.eval(f, target.X)
		if err != nil {
			return err
		}
		key, err := e.eval(f, target.Index)
		if err != nil {
			return err
		}
		v, err := e.eval(f, s.Value)
		if err != nil {
			return err
		}
		return setIndex(container, key, v, target.Pos())
	}
	return panicf(s.Pos(), "invalid assignment target")
}

func setIndex(container, key, v Value, pos Pos) error {
	switch c := container.(type) {
	case *Array:
		i, ok := key.(Int)
		if !ok {
			return errType(key, "int", pos)
		}
		if i < 0 || int64(i) >= int64(len(c.Items)) {
			return errIndexOutOfBounds(key, pos)
		}
		c.Items[i] = v
		return nil
	case *Dict:
		if !ValidKey(key) {
			return panicf(pos, "invalid dict key (%s)", Inspect(key))
		}
		if !c.Set(key, v) {
			return panicf(pos, "cannot modify read-only dict")
		}
		return nil
	case *Error:
		return panicf(pos, "cannot assign to error field (%s)", Inspect(key))
	case String:
		return panicf(pos, "cannot assign to string index, strings are immutable")
	}
	return errOperand(container, pos)
}

func getIndex(container, key Value, dot bool, pos Pos) (Value, error) {
	switch c := container.(type) {
	case *Array:
		if dot {
			return nil, errOperand(container, pos)
		}
		i, ok := key.(Int)
		if !ok {
			return nil, errType(key, "int", pos)
		}
		if i < 0 || int64(i) >= int64(len(c.Items)) {
			return nil, errIndexOutOfBounds(key, pos)
		}
		return c.Items[i], nil
	case String:
		if dot {
			return nil, errOperand(container, pos)
		}
		i, ok := key.(Int)
		if !ok {
			return nil, errType(key, "int", pos)
		}
		if i < 0 || int64(i) >= int64(len(c)) {
			return nil, errIndexOutOfBounds(key, pos)
		}
		return Char(c[i]), nil
	case *Dict:
		v, ok := c.Get(key)
		if !ok {
			return nil, errKeyNotFound(key, pos)
		}
		return v, nil
	case *Error:
		switch key {
		case String("description"):
			return String(c.Description), nil
		case String("context"):
			return c.Context, nil
		}
		return nil, errKeyNotFound(key, pos)
	}
	return nil, errOperand(container, pos)
}

func (e *Evaluator) eval(f *frame, expr Expr) (Value, error) {
	switch x := expr.(type) {
	case *Literal:
		return x.Value, nil

	case *Ident:
		switch x.Binding.Kind {
		case Local:
			return f.local(x.Binding.Index).Value, nil
		case Upvalue:
			return f.upvalues[x.Binding.Index].Value, nil
		case Global:
			return e.globals[x.Binding.Index], nil
		}
		return nil, panicf(x.Pos(), "undeclared variable '%s'", x.Name)

	case *SelfExpr:
		if f.self == nil {
			return Nil{}, nil
		}
		return f.self, nil

	case *ArrayLit:
		items := make([]Value, len(x.Items))
		for i, item := range x.Items {
			v, err := e.eval(f, item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return NewArray(items...), nil

	case *DictLit:
		dict := NewDict()
		for _, entry := range x.Entries {
			v, err := e.eval(f, entry.Value)
			if err != nil {
				return nil, err
			}
			dict.Set(String(entry.Key), v)
		}
		return dict, nil

	case *FuncLit:
		upvalues := make([]*Cell, len(x.Captures))
		for i, c := range x.Captures {
			if c.FromLocal {
				upvalues[i] = f.local(c.Index)
			} else {
				upvalues[i] = f.upvalues[c.Index]
			}
		}
		return &Function{Name: x.Name, Arity: len(x.Params), lit: x, upvalues: upvalues}, nil

	case *UnaryExpr:
		v, err := e.eval(f, x.X)
		if err != nil {
			return nil, err
		}
		return unary(x.Op, v, x.Pos())

	case *BinaryExpr:
		return e.binary(f, x)

	case *IfExpr:
		ok, err := e.condition(f, x.Cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.evalBlock(f, x.Then)
		}
		if x.Else != nil {
			return e.evalBlock(f, x.Else)
		}
		return Nil{}, nil

	case *IndexExpr:
		container, err := e.eval(f, x.X)
		if err != nil {
			return nil, err
		}
		key, err := e.eval(f, x.Index)
		if err != nil {
			return nil, err
		}
		return getIndex(container, key, x.Dot, x.Pos())

	case *CallExpr:
		return e.callExpr(f, x)

	case *TryExpr:
		v, err := e.eval(f, x.X)
		if err != nil {
			return nil, err
		}
		if _, isErr := v.(*Error); isErr {
			return nil, &returnSignal{value: v}
		}
		return v, nil

	case *CommandBlock:
		return e.evalCommandBlock(f, x)
	}
	return nil, panicf(expr.Pos(), "unknown expression %T", expr)
}

func (e *Evaluator) binary(f *frame, x *BinaryExpr) (Value, error) {
	left, err := e.eval(f, x.X)
	if err != nil {
		return nil, err
	}

	if x.Op == AND || x.Op == OR {
		l, ok := left.(Bool)
		if !ok {
			return nil, errOperand(left, x.X.Pos())
		}
		if (x.Op == AND && !bool(l)) || (x.Op == OR && bool(l)) {
			return l, nil
		}
		right, err := e.eval(f, x.Y)
		if err != nil {
			return nil, err
		}
		r, ok := right.(Bool)
		if !ok {
			return nil, errOperand(right, x.Y.Pos())
		}
		return r, nil
	}

	right, err := e.eval(f, x.Y)
	if err != nil {
		return nil, err
	}
	return binary(x.Op, left, right, x.Pos())
}

func (e *Evaluator) callExpr(f *frame, x *CallExpr) (Value, error) {
	var (
		callee Value
		self   Value = Nil{}
		err    error
	)
	if index, ok := x.Fun.(*IndexExpr); ok {
		obj, err := e.eval(f, index.X)
		if err != nil {
			return nil, err
		}
		key, err := e.eval(f, index.Index)
		if err != nil {
			return nil, err
		}
		if callee, err = getIndex(obj, key, index.Dot, index.Pos()); err != nil {
			return nil, err
		}
		if _, isDict := obj.(*Dict); isDict {
			self = obj
		}
	} else if callee, err = e.eval(f, x.Fun); err != nil {
		return nil, err
	}

	args := make([]Value, len(x.Args))
	for i, arg := range x.Args {
		if args[i], err = e.eval(f, arg); err != nil {
			return nil, err
		}
	}
	return e.call(callee, self, args, x.Pos())
}

// call invokes a function value. Return signals stop here.
func (e *Evaluator) call(callee, self Value, args []Value, pos Pos) (Value, error) {
	fn, ok := callee.(*Function)
	if !ok {
		return nil, errInvalidCall(callee, pos)
	}
	if len(args) != fn.Arity {
		return nil, errArity(fn.Arity, len(args), pos)
	}
	if e.depth >= e.maxDepth {
		return nil, panicf(pos, "stack overflow")
	}
	e.depth++
	defer func() { e.depth-- }()

	if fn.native != nil {
		return fn.native(&Call{e: e, Fn: fn, Args: args, Self: self, Pos: pos})
	}

	fr := &frame{
		locals:   make([]*Cell, fn.lit.NumSlots),
		upvalues: fn.upvalues,
		self:     self,
	}
	for i, param := range fn.lit.Params {
		fr.locals[param.Binding.Index] = &Cell{Value: args[i]}
	}

	v, err := e.evalBlock(fr, fn.lit.Body)
	if err != nil {
		if ret, ok := err.(*returnSignal); ok {
			return ret.value, nil
		}
		return nil, err
	}
	return v, nil
}
