package hush

import "math"

type Type int

const (
	NilType Type = iota
	BoolType
	IntType
	FloatType
	CharType
	StringType
	ArrayType
	DictType
	FunctionType
	ErrorType
)

var typeNames = [...]string{
	NilType:      "nil",
	BoolType:     "bool",
	IntType:      "int",
	FloatType:    "float",
	CharType:     "char",
	StringType:   "string",
	ArrayType:    "array",
	DictType:     "dict",
	FunctionType: "function",
	ErrorType:    "error",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// TypeByName is the inverse of Type.String.
func TypeByName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), true
		}
	}
	return 0, false
}

// Value is a runtime value. Scalars are Go value types; arrays, dicts,
// functions and errors are pointers and therefore shared by reference.
// Every implementation is comparable so values can key a Dict.
type Value interface {
	Type() Type
}

type (
	Nil    struct{}
	Bool   bool
	Int    int64
	Float  float64
	Char   byte
	String string
)

func (Nil) Type() Type    { return NilType }
func (Bool) Type() Type   { return BoolType }
func (Int) Type() Type    { return IntType }
func (Float) Type() Type  { return FloatType }
func (Char) Type() Type   { return CharType }
func (String) Type() Type { return StringType }

func TypeOf(v Value) Type {
	if v == nil {
		return NilType
	}
	return v.Type()
}

type Array struct {
	Items []Value
}

func NewArray(items ...Value) *Array {
	if items == nil {
		items = []Value{}
	}
	return &Array{Items: items}
}

func (*Array) Type() Type { return ArrayType }

// Dict is an insertion-ordered map.
type Dict struct {
	keys    []Value
	entries map[Value]Value
	frozen  bool
}

func NewDict() *Dict {
	return &Dict{entries: make(map[Value]Value)}
}

func (*Dict) Type() Type { return DictType }

func (d *Dict) Get(key Value) (Value, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Set stores a value. It reports false when the dict is frozen.
func (d *Dict) Set(key, value Value) bool {
	if d.frozen {
		return false
	}
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = value
	return true
}

// ValidKey reports whether v can key a dict. NaN never equals itself, so it
// could be stored but never found again.
func ValidKey(v Value) bool {
	f, ok := v.(Float)
	return !ok || !math.IsNaN(float64(f))
}

// SetString is Set with a string key, for building dicts from Go code.
func (d *Dict) SetString(key string, value Value) *Dict {
	d.Set(String(key), value)
	return d
}

func (d *Dict) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	keys := make([]Value, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// Freeze makes the dict read-only.
func (d *Dict) Freeze() {
	d.frozen = true
}

func (d *Dict) Frozen() bool {
	return d.frozen
}

// Cell is a variable's storage. Closures share cells with the frame that
// declared the variable.
type Cell struct {
	Value Value
}

// NativeFunc implements a function in Go.
type NativeFunc func(c *Call) (Value, error)

type Function struct {
	Name  string
	Arity int

	lit      *FuncLit
	upvalues []*Cell
	native   NativeFunc
}

func (*Function) Type() Type { return FunctionType }

// NewNative wraps a Go function with a fixed arity.
func NewNative(name string, arity int, fn NativeFunc) *Function {
	return &Function{Name: name, Arity: arity, native: fn}
}

// Error is an ordinary value describing a recoverable failure. Its fields
// cannot be changed from scripts.
type Error struct {
	Description string
	Context     Value
}

func NewError(description string, context Value) *Error {
	if context == nil {
		context = Nil{}
	}
	return &Error{Description: description, Context: context}
}

func (*Error) Type() Type { return ErrorType }

// Equal reports whether two values are equal. Values of different types are
// never equal. Arrays and dicts compare structurally; functions and errors
// compare by identity. A pair of containers met again while still being
// compared counts as equal, so cyclic values terminate.
func Equal(a, b Value) bool {
	return equal(a, b, nil)
}

type containerPair struct {
	a, b Value
}

func equal(a, b Value, active map[containerPair]bool) bool {
	if a == nil {
		a = Nil{}
	}
	if b == nil {
		b = Nil{}
	}
	switch x := a.(type) {
	case *Array:
		y, ok := b.(*Array)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if len(x.Items) != len(y.Items) {
			return false
		}
		pair := containerPair{x, y}
		if active[pair] {
			return true
		}
		if active == nil {
			active = make(map[containerPair]bool)
		}
		active[pair] = true
		defer delete(active, pair)
		for i := range x.Items {
			if !equal(x.Items[i], y.Items[i], active) {
				return false
			}
		}
		return true
	case *Dict:
		y, ok := b.(*Dict)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if x.Len() != y.Len() {
			return false
		}
		pair := containerPair{x, y}
		if active[pair] {
			return true
		}
		if active == nil {
			active = make(map[containerPair]bool)
		}
		active[pair] = true
		defer delete(active, pair)
		for _, k := range x.keys {
			yv, ok := y.Get(k)
			if !ok || !equal(x.entries[k], yv, active) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Compare orders two values of the same comparable type.
func Compare(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			return cmp(x, y), true
		}
	case Float:
		if y, ok := b.(Float); ok {
			return cmp(x, y), true
		}
	case Char:
		if y, ok := b.(Char); ok {
			return cmp(x, y), true
		}
	case String:
		if y, ok := b.(String); ok {
			return cmp(x, y), true
		}
	}
	return 0, false
}

func cmp[T Int | Float | Char | String](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
