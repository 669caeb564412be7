package hush

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	e      *Evaluator
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newSession(opts ...Option) *session {
	s := &session{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	opts = append([]Option{WithStdio(strings.NewReader(""), s.stdout, s.stderr)}, opts...)
	s.e = NewEvaluator(opts...)
	return s
}

func (s *session) run(t *testing.T, source string) (Value, error) {
	t.Helper()
	return s.e.Execute(source, "test.hsh")
}

func eval(t *testing.T, source string) Value {
	t.Helper()
	v, err := newSession().run(t, source)
	require.NoError(t, err)
	return v
}

func evalPanic(t *testing.T, source string) *Panic {
	t.Helper()
	_, err := newSession().run(t, source)
	require.Error(t, err)
	var p *Panic
	require.ErrorAs(t, err, &p)
	return p
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected Value
	}{
		{"arithmetic", "1 + 2 * 3 - 4 / 2", Int(5)},
		{"float arithmetic", "1.5 * 2.0", Float(3)},
		{"modulo", "-7 % 3", Int(-1)},
		{"concat", `"ab" ++ "cd"`, String("abcd")},
		{"comparison", "1 < 2 and 2.5 >= 2.5 and 'a' < 'b' and \"a\" != \"b\"", Bool(true)},
		{"short circuit and", "let f = nil\nfalse and f()", Bool(false)},
		{"short circuit or", "true or 1", Bool(true)},
		{"negation", "-(3) + --2", Int(-1)},
		{"structural equality", "[1, @[a: 2]] == [1, @[a: 2]]", Bool(true)},
		{"if value", "if 1 > 2 then \"a\" elseif 2 > 1 then \"b\" else \"c\" end", String("b")},
		{"if without else", "if false then 1 end", Nil{}},
		{"string index", `"hush"[1]`, Char('u')},
		{"dict field", "let d = @[a: @[b: 3]]\nd.a.b", Int(3)},
		{"dict index by value", "let d = @[]\nd[1] = \"one\"\nd[1]", String("one")},
		{"array assignment", "let a = [1, 2]\na[1] = 5\na", NewArray(Int(1), Int(5))},
		{"error fields", "let e = std.error(\"boom\", 42)\ne.context", Int(42)},
		{"let yields nil", "let x = 1", Nil{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := eval(t, tt.source)
			assert.True(t, Equal(tt.expected, v), "expected %s, got %s", Inspect(tt.expected), Inspect(v))
		})
	}
}

func TestEvalClosures(t *testing.T) {
	v := eval(t, `
let adder = function(x)
	return function(y) return x + y + 1 end
end
adder(1)(2)`)
	assert.Equal(t, Int(4), v)

	v = eval(t, `
function counter()
	let n = 0
	return function()
		n = n + 1
		return n
	end
end
let next = counter()
next()
next()
next()`)
	assert.Equal(t, Int(3), v)
}

func TestEvalClosuresShareCells(t *testing.T) {
	v := eval(t, `
let value = 1
let get = function() return value end
let set = function(v) value = v end
set(10)
get() + value`)
	assert.Equal(t, Int(20), v)
}

func TestEvalLoopsCaptureFreshVariables(t *testing.T) {
	v := eval(t, `
let fns = []
for i in std.range(0, 3, 1) do
	std.push(fns, function() return i end)
end
[fns[0](), fns[1](), fns[2]()]`)
	assert.True(t, Equal(NewArray(Int(0), Int(1), Int(2)), v), Inspect(v))
}

func TestEvalLoops(t *testing.T) {
	v := eval(t, `
let total = 0
let i = 0
while true do
	i = i + 1
	if i > 10 then break end
	if i % 2 == 0 then total = total + i end
end
total`)
	assert.Equal(t, Int(30), v)

	v = eval(t, `
let keys = ""
for entry in std.iter(@[a: 1, b: 2]) do
	keys = keys ++ entry.key
end
keys`)
	assert.Equal(t, String("ab"), v)
}

func TestEvalRecursion(t *testing.T) {
	v := eval(t, `
function fib(n)
	if n < 2 then
		return n
	end
	return fib(n - 1) + fib(n - 2)
end
fib(15)`)
	assert.Equal(t, Int(610), v)
}

func TestEvalSelf(t *testing.T) {
	v := eval(t, `
let counter = @[
	count: 0,
	incr: function()
		self.count = self.count + 1
		return self
	end,
]
counter.incr()
counter["incr"]()
counter.count`)
	assert.Equal(t, Int(2), v)

	v = eval(t, "let f = function() return self end\nf()")
	assert.Equal(t, Nil{}, v)
}

func TestEvalTryOperator(t *testing.T) {
	v := eval(t, `
function parse(s)
	let n = std.int(s)?
	return n * 2
end
[parse("21"), std.type(parse("x"))]`)
	assert.True(t, Equal(NewArray(Int(42), String("error")), v), Inspect(v))

	v = eval(t, "let f = function() return 1? end\nf()")
	assert.Equal(t, Int(1), v)
}

func TestEvalPanics(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"division by zero", "1 / 0", "division by zero"},
		{"modulo by zero", "1 % 0", "division by zero"},
		{"overflow", "9223372036854775807 + 1", "integer overflow"},
		{"negation overflow", "let m = -9223372036854775807 - 1\nlet n = -m", "integer overflow"},
		{"mixed arithmetic", "1 + 1.0", "invalid operands (1: int) and (1.0: float) for '+'"},
		{"condition type", "if 1 then 2 end", "condition (1) is not a boolean"},
		{"operand type", "not 1", "operand (1) has an invalid type"},
		{"index out of bounds", "[1][1]", "index (1) out of bounds"},
		{"key not found", "@[a: 1].b", `key ("b") not found`},
		{"call non function", "let x = 1\nx()", "attempt to call (1), which is not a function"},
		{"arity", "let f = function(a) end\nf()", "arity mismatch: expected 1 arguments, got 0"},
		{"frozen std", "std.len = nil", "cannot modify read-only dict"},
		{"error fields", "let e = std.error(\"x\", nil)\ne.description = \"y\"", `cannot assign to error field ("description")`},
		{"string immutable", "let s = \"ab\"\ns[0] = 'c'", "cannot assign to string index, strings are immutable"},
		{"explicit panic", "std.panic(\"boom\")", "boom"},
		{"assert", "std.assert(1 == 2)", "assertion failed"},
		{"non iterator", "for x in 1 do end", "type error: expected iterator function, got (1: int)"},
		{"nan dict key", "let d = @[]\nd[0.0 / 0.0] = 1", "invalid dict key (NaN)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := evalPanic(t, tt.source)
			assert.Equal(t, tt.message, p.Msg)
			assert.Equal(t, "test.hsh", p.Pos.Filename)
		})
	}
}

func TestEvalPanicPosition(t *testing.T) {
	p := evalPanic(t, "let x = 1\nlet y = x / 0")
	assert.Equal(t, 2, p.Pos.Line)
	assert.Equal(t, 11, p.Pos.Column)
	assert.Equal(t, "Panic in test.hsh (line 2, column 11): division by zero", p.Error())
}

func TestEvalStackOverflow(t *testing.T) {
	s := newSession(WithMaxCallDepth(50))
	_, err := s.run(t, "function loop(n) return loop(n + 1) end\nloop(0)")
	var p *Panic
	require.ErrorAs(t, err, &p)
	assert.Equal(t, "stack overflow", p.Msg)

	v, err := s.run(t, "function depth(n) if n == 0 then 0 else 1 + depth(n - 1) end end\ndepth(40)")
	require.NoError(t, err)
	assert.Equal(t, Int(40), v)
}

func TestEvalCatch(t *testing.T) {
	v := eval(t, `
let result = std.catch(function() return 1 / 0 end)
let fields = [std.type(result), result.description, result.context.message]
fields`)
	assert.True(t, Equal(NewArray(String("error"), String("caught panic: division by zero"), String("division by zero")), v), Inspect(v))

	v = eval(t, "std.catch(function() return 7 end)")
	assert.Equal(t, Int(7), v)
}

func TestEvalExit(t *testing.T) {
	s := newSession()
	_, err := s.run(t, "std.println(\"before\")\nstd.catch(function() std.exit(3) end)\nstd.println(\"after\")")
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 3, exit.Code)
	assert.Equal(t, "before\n", s.stdout.String())
}

func TestEvalSessionKeepsDeclarations(t *testing.T) {
	s := newSession()
	_, err := s.run(t, "let total = 40")
	require.NoError(t, err)

	_, err = s.run(t, "undeclared")
	require.Error(t, err)
	assert.NotNil(t, AsDiagnostics(err))

	v, err := s.run(t, "total + 2")
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)
}

func TestEvalStaticErrorsStopExecution(t *testing.T) {
	s := newSession()
	_, err := s.run(t, "std.println(\"never\")\nlet x = y")
	require.Error(t, err)
	assert.Empty(t, s.stdout.String())
}

func TestEvalSelfReferentialValues(t *testing.T) {
	v := eval(t, "let a = @[]\nlet b = @[]\na.x = a\nb.x = b\na == b")
	assert.Equal(t, Bool(true), v)

	v = eval(t, "let a = @[]\na.x = a\na.y = a\nstd.to_string(a)")
	assert.Equal(t, String("@[x: ..., y: ...]"), v)
}

func TestEvalSmallestInt(t *testing.T) {
	assert.Equal(t, Int(-9223372036854775808), eval(t, "-9223372036854775808"))
	assert.Equal(t, Int(5), eval(t, "-3 + 8"))
	assert.Equal(t, Int(-9), eval(t, "-3 * 3"))

	_, err := newSession().run(t, "-9223372036854775809")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer literal -9223372036854775809 out of range")
}
