package hush

// Node is any syntax tree node. Parents own their children.
type Node interface {
	Pos() Pos
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

type node struct {
	pos Pos
}

func (n node) Pos() Pos { return n.pos }

// Program is a compiled source unit. The top level behaves like the body of
// an implicit function whose frame has NumSlots locals.
type Program struct {
	Filename string
	Body     *Block
	NumSlots int
}

type Block struct {
	node
	Stmts []Stmt
}

// BindingKind tells where a resolved identifier lives at runtime.
type BindingKind int

const (
	Unresolved BindingKind = iota
	Local                  // slot in the current frame
	Upvalue                // cell captured by the current closure
	Global                 // predeclared, such as std
)

func (k BindingKind) String() string {
	switch k {
	case Local:
		return "local"
	case Upvalue:
		return "upvalue"
	case Global:
		return "global"
	default:
		return "unresolved"
	}
}

type Binding struct {
	Kind  BindingKind
	Index int
}

// Capture describes where a closure takes one of its upvalues from when it
// is created: a local slot of the enclosing frame, or one of the enclosing
// closure's own upvalues.
type Capture struct {
	FromLocal bool
	Index     int
	Name      string
}

// Statements

type LetStmt struct {
	node
	Name  *Ident
	Value Expr // nil binds nil
	// Recursive declarations bind the name before evaluating the value.
	Recursive bool
}

type AssignStmt struct {
	node
	Target Expr // *Ident or *IndexExpr
	Value  Expr
}

type ReturnStmt struct {
	node
	Value Expr // nil for a bare return
}

type BreakStmt struct {
	node
}

type WhileStmt struct {
	node
	Cond Expr
	Body *Block
}

type ForStmt struct {
	node
	Var  *Ident
	Iter Expr
	Body *Block
}

type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) Pos() Pos { return s.X.Pos() }

func (*LetStmt) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*ReturnStmt) stmtNode() {}
func (*BreakStmt) stmtNode()  {}
func (*WhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()    {}
func (*ExprStmt) stmtNode()   {}

// Expressions

type Literal struct {
	node
	Value Value
}

type ArrayLit struct {
	node
	Items []Expr
}

type DictEntry struct {
	Key   string
	Value Expr
}

type DictLit struct {
	node
	Entries []DictEntry
}

type FuncLit struct {
	node
	Name     string
	Params   []*Ident
	Body     *Block
	NumSlots int
	Captures []Capture
}

type Ident struct {
	node
	Name    string
	Binding Binding
}

type SelfExpr struct {
	node
}

type UnaryExpr struct {
	node
	Op TokenKind
	X  Expr
}

type BinaryExpr struct {
	node
	Op TokenKind
	X  Expr
	Y  Expr
}

type IfExpr struct {
	node
	Cond Expr
	Then *Block
	Else *Block // nil when absent; elseif chains nest here
}

type IndexExpr struct {
	node
	X     Expr
	Index Expr
	Dot   bool
}

type CallExpr struct {
	node
	Fun  Expr
	Args []Expr
}

type TryExpr struct {
	node
	X Expr
}

func (*Literal) exprNode()      {}
func (*ArrayLit) exprNode()     {}
func (*DictLit) exprNode()      {}
func (*FuncLit) exprNode()      {}
func (*Ident) exprNode()        {}
func (*SelfExpr) exprNode()     {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*IfExpr) exprNode()       {}
func (*IndexExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*TryExpr) exprNode()      {}
func (*CommandBlock) exprNode() {}

// Command blocks

type BlockKind int

const (
	SyncBlock BlockKind = iota
	CaptureBlock
	AsyncBlock
)

func (k BlockKind) String() string {
	switch k {
	case CaptureBlock:
		return "capture"
	case AsyncBlock:
		return "async"
	default:
		return "sync"
	}
}

type CommandBlock struct {
	node
	Kind     BlockKind
	Commands []*Command
}

// Command is a pipeline of one or more stages, or a single builtin.
type Command struct {
	node
	Builtin string
	Stages  []*BasicCommand
}

type BasicCommand struct {
	node
	Program   *Argument
	Args      []*Argument
	Redirects []*Redirect
	AllowFail bool
}

type ArgUnit struct {
	Kind   ArgPartKind
	Text   string
	Quoted bool
	Var    *Ident // for ArgVar, nil for $self
	Pos    Pos
}

type Argument struct {
	node
	Units []ArgUnit
}

type RedirectKind int

const (
	RedirectOutput RedirectKind = iota
	RedirectAppend
	RedirectInput
	RedirectLiteral
)

func (k RedirectKind) String() string {
	switch k {
	case RedirectAppend:
		return ">>"
	case RedirectInput:
		return "<"
	case RedirectLiteral:
		return "<<"
	default:
		return ">"
	}
}

type Redirect struct {
	node
	Kind     RedirectKind
	Fd       int
	TargetFd int // -1 when Target names a file or literal
	Target   *Argument
}

var builtinCommands = map[string]bool{
	"cd": true,
}
