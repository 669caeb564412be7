package hush

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	errA := NewError("a", nil)
	fn := NewNative("f", 0, nil)

	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"ints", Int(1), Int(1), true},
		{"int and float never equal", Int(1), Float(1), false},
		{"char and string", Char('a'), String("a"), false},
		{"nil", Nil{}, nil, true},
		{"arrays by content", NewArray(Int(1), String("x")), NewArray(Int(1), String("x")), true},
		{"arrays of different length", NewArray(Int(1)), NewArray(Int(1), Int(2)), false},
		{"dicts by content", NewDict().SetString("a", Int(1)), NewDict().SetString("a", Int(1)), true},
		{"dicts ignore order", NewDict().SetString("a", Int(1)).SetString("b", Int(2)), NewDict().SetString("b", Int(2)).SetString("a", Int(1)), true},
		{"dicts with different values", NewDict().SetString("a", Int(1)), NewDict().SetString("a", Int(2)), false},
		{"same error", errA, errA, true},
		{"errors by identity", NewError("a", nil), NewError("a", nil), false},
		{"same function", fn, fn, true},
		{"functions by identity", NewNative("f", 0, nil), NewNative("f", 0, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equal(tt.a, tt.b))
			assert.Equal(t, tt.equal, Equal(tt.b, tt.a))
		})
	}
}

func TestCompare(t *testing.T) {
	c, ok := Compare(Int(1), Int(2))
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare(String("b"), String("a"))
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	_, ok = Compare(Int(1), Float(2))
	assert.False(t, ok)

	_, ok = Compare(Bool(true), Bool(false))
	assert.False(t, ok)
}

func TestInspect(t *testing.T) {
	tests := []struct {
		value    Value
		expected string
	}{
		{Nil{}, "nil"},
		{Bool(true), "true"},
		{Int(-3), "-3"},
		{Float(1), "1.0"},
		{Float(0.25), "0.25"},
		{Float(1e21), "1000000000000000000000.0"},
		{Float(math.NaN()), "NaN"},
		{Float(math.Inf(-1)), "-inf"},
		{Char('a'), "'a'"},
		{Char('\n'), `'\n'`},
		{String("a\"b"), `"a\"b"`},
		{NewArray(Int(1), String("x"), NewArray()), `[1, "x", []]`},
		{NewDict().SetString("key", Int(1)).SetString("two words", Nil{}), `@[key: 1, "two words": nil]`},
		{NewDict().SetString("if", Int(1)), `@["if": 1]`},
		{NewError("bad thing", Int(1)), "error: bad thing"},
		{NewNative("std.len", 1, nil), "std.len"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Inspect(tt.value))
		})
	}
}

func TestInspectCycle(t *testing.T) {
	arr := NewArray()
	arr.Items = append(arr.Items, arr)
	assert.Contains(t, Inspect(arr), "...")
}

func TestInspectSharedCycle(t *testing.T) {
	d := NewDict()
	d.SetString("x", d)
	d.SetString("y", d)
	assert.Equal(t, "@[x: ..., y: ...]", Inspect(d))

	shared := NewArray(Int(1))
	assert.Equal(t, "[[1], [1]]", Inspect(NewArray(shared, shared)))
}

func TestEqualCyclic(t *testing.T) {
	a, b := NewDict(), NewDict()
	a.SetString("x", a)
	b.SetString("x", b)
	assert.True(t, Equal(a, b))

	c := NewDict()
	c.SetString("x", c)
	c.SetString("y", Int(1))
	assert.False(t, Equal(a, c))

	xs, ys := NewArray(Int(1)), NewArray(Int(1))
	xs.Items = append(xs.Items, ys)
	ys.Items = append(ys.Items, xs)
	assert.True(t, Equal(xs, ys))
	assert.False(t, Equal(xs, NewArray(Int(1), NewArray(Int(2), xs))))
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey(Float(1.5)))
	assert.True(t, ValidKey(String("nan")))
	assert.False(t, ValidKey(Float(math.NaN())))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "plain", ToString(String("plain")))
	assert.Equal(t, "c", ToString(Char('c')))
	assert.Equal(t, "2.5", ToString(Float(2.5)))
	assert.Equal(t, `["a"]`, ToString(NewArray(String("a"))))
}

func TestDictOrderAndFreeze(t *testing.T) {
	d := NewDict()
	d.Set(String("b"), Int(1))
	d.Set(String("a"), Int(2))
	d.Set(String("b"), Int(3))

	assert.Equal(t, []Value{String("b"), String("a")}, d.Keys())
	v, ok := d.Get(String("b"))
	assert.True(t, ok)
	assert.Equal(t, Int(3), v)

	d.Freeze()
	assert.True(t, d.Frozen())
	assert.False(t, d.Set(String("c"), Int(4)))
	assert.Equal(t, 2, d.Len())
}

func TestTypeNames(t *testing.T) {
	for _, name := range []string{"nil", "bool", "int", "float", "char", "string", "array", "dict", "function", "error"} {
		typ, ok := TypeByName(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, typ.String())
	}
	_, ok := TypeByName("number")
	assert.False(t, ok)
	assert.Equal(t, NilType, TypeOf(nil))
}
