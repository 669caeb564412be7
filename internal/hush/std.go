package hush

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

type stdFunc struct {
	name  string
	arity int
	fn    NativeFunc
}

// newStd builds the read-only `std` global.
func newStd() *Dict {
	std := NewDict()
	for _, group := range [][]stdFunc{coreFuncs(), stringFuncs(), ioFuncs()} {
		register(std, "std", group)
	}
	std.SetString("hex", namespace("std.hex", hexFuncs()))
	std.SetString("json", namespace("std.json", jsonFuncs()))
	std.SetString("yaml", namespace("std.yaml", yamlFuncs()))
	std.SetString("gzip", namespace("std.gzip", gzipFuncs()))
	std.Freeze()
	return std
}

func register(d *Dict, prefix string, funcs []stdFunc) {
	for _, f := range funcs {
		d.SetString(f.name, NewNative(prefix+"."+f.name, f.arity, f.fn))
	}
}

func namespace(prefix string, funcs []stdFunc) *Dict {
	d := NewDict()
	register(d, prefix, funcs)
	d.Freeze()
	return d
}

func coreFuncs() []stdFunc {
	return []stdFunc{
		{"type", 1, stdType},
		{"typecheck", 2, stdTypecheck},
		{"try_typecheck", 2, stdTryTypecheck},
		{"to_string", 1, stdToString},
		{"int", 1, stdInt},
		{"float", 1, stdFloat},
		{"len", 1, stdLen},
		{"is_empty", 1, stdIsEmpty},
		{"contains", 2, stdContains},
		{"push", 2, stdPush},
		{"pop", 1, stdPop},
		{"sort", 1, stdSort},
		{"iter", 1, stdIter},
		{"range", 3, stdRange},
		{"bind", 2, stdBind},
		{"error", 2, stdError},
		{"has_error", 1, stdHasError},
		{"catch", 1, stdCatch},
		{"panic", 1, stdPanic},
		{"assert", 1, stdAssert},
		{"exit", 1, stdExit},
	}
}

func stdType(c *Call) (Value, error) {
	return String(TypeOf(c.Args[0]).String()), nil
}

func checkType(c *Call) (bool, Type, error) {
	name, err := c.String(1)
	if err != nil {
		return false, 0, err
	}
	t, ok := TypeByName(name)
	if !ok {
		return false, 0, c.Panicf("invalid type name (%s)", Inspect(c.Args[1]))
	}
	return TypeOf(c.Args[0]) == t, t, nil
}

func stdTypecheck(c *Call) (Value, error) {
	ok, t, err := checkType(c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errType(c.Args[0], t.String(), c.Pos)
	}
	return c.Args[0], nil
}

func stdTryTypecheck(c *Call) (Value, error) {
	ok, t, err := checkType(c)
	if err != nil {
		return nil, err
	}
	if !ok {
		ctx := NewDict().
			SetString("value", c.Args[0]).
			SetString("expected", String(t.String()))
		return NewError("type error", ctx), nil
	}
	return c.Args[0], nil
}

func stdToString(c *Call) (Value, error) {
	return String(ToString(c.Args[0])), nil
}

func stdInt(c *Call) (Value, error) {
	switch x := c.Args[0].(type) {
	case Int:
		return x, nil
	case Char:
		return Int(x), nil
	case Float:
		f := float64(x)
		if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return nil, c.Panicf("float (%s) is out of int range", Inspect(x))
		}
		return Int(int64(f)), nil
	case String:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return NewError("invalid int", x), nil
		}
		return Int(n), nil
	}
	return nil, c.typeError(0, "int, float, char or string")
}

func stdFloat(c *Call) (Value, error) {
	switch x := c.Args[0].(type) {
	case Float:
		return x, nil
	case Int:
		return Float(x), nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return NewError("invalid float", x), nil
		}
		return Float(f), nil
	}
	return nil, c.typeError(0, "int, float or string")
}

func stdLen(c *Call) (Value, error) {
	switch x := c.Args[0].(type) {
	case *Array:
		return Int(len(x.Items)), nil
	case *Dict:
		return Int(x.Len()), nil
	case String:
		return Int(len(x)), nil
	}
	return nil, c.typeError(0, "string, array or dict")
}

func stdIsEmpty(c *Call) (Value, error) {
	n, err := stdLen(c)
	if err != nil {
		return nil, err
	}
	return Bool(n.(Int) == 0), nil
}

func stdContains(c *Call) (Value, error) {
	switch x := c.Args[0].(type) {
	case *Array:
		for _, item := range x.Items {
			if Equal(item, c.Args[1]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case *Dict:
		_, ok := x.Get(c.Args[1])
		return Bool(ok), nil
	case String:
		switch needle := c.Args[1].(type) {
		case Char:
			return Bool(strings.IndexByte(string(x), byte(needle)) >= 0), nil
		case String:
			return Bool(strings.Contains(string(x), string(needle))), nil
		}
		return nil, c.typeError(1, "char or string")
	}
	return nil, c.typeError(0, "string, array or dict")
}

func stdPush(c *Call) (Value, error) {
	a, err := c.Array(0)
	if err != nil {
		return nil, err
	}
	a.Items = append(a.Items, c.Args[1])
	return Nil{}, nil
}

func stdPop(c *Call) (Value, error) {
	a, err := c.Array(0)
	if err != nil {
		return nil, err
	}
	if len(a.Items) == 0 {
		return nil, c.Panicf("empty collection")
	}
	last := a.Items[len(a.Items)-1]
	a.Items = a.Items[:len(a.Items)-1]
	return last, nil
}

// sortLess orders values of different types by type, then by value.
func sortLess(a, b Value) bool {
	ta, tb := TypeOf(a), TypeOf(b)
	if ta != tb {
		return ta < tb
	}
	if r, ok := Compare(a, b); ok {
		return r < 0
	}
	if x, ok := a.(Bool); ok {
		return !bool(x) && bool(b.(Bool))
	}
	return false
}

func stdSort(c *Call) (Value, error) {
	a, err := c.Array(0)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(a.Items, func(i, j int) bool {
		return sortLess(a.Items[i], a.Items[j])
	})
	return Nil{}, nil
}

func iteration(v Value, finished bool) *Dict {
	d := NewDict().SetString("finished", Bool(finished))
	if !finished {
		d.SetString("value", v)
	}
	return d
}

func iterator(next func() (Value, bool)) *Function {
	return NewNative("iterator", 0, func(*Call) (Value, error) {
		v, ok := next()
		return iteration(v, !ok), nil
	})
}

// stdIter walks a snapshot of a dict's keys, but live array contents.
func stdIter(c *Call) (Value, error) {
	switch x := c.Args[0].(type) {
	case *Array:
		i := 0
		return iterator(func() (Value, bool) {
			if i >= len(x.Items) {
				return nil, false
			}
			i++
			return x.Items[i-1], true
		}), nil
	case String:
		i := 0
		return iterator(func() (Value, bool) {
			if i >= len(x) {
				return nil, false
			}
			i++
			return Char(x[i-1]), true
		}), nil
	case *Dict:
		keys := x.Keys()
		i := 0
		return iterator(func() (Value, bool) {
			for i < len(keys) {
				k := keys[i]
				i++
				if v, ok := x.Get(k); ok {
					return NewDict().SetString("key", k).SetString("value", v), true
				}
			}
			return nil, false
		}), nil
	}
	return nil, c.typeError(0, "array, dict or string")
}

// stdRange counts from `from` up to, but excluding, `to`.
func stdRange(c *Call) (Value, error) {
	switch from := c.Args[0].(type) {
	case Int:
		to, err := c.Int(1)
		if err != nil {
			return nil, err
		}
		step, err := c.Int(2)
		if err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, c.Panicf("step must not be zero")
		}
		cur, done := int64(from), false
		return iterator(func() (Value, bool) {
			if done || (step > 0 && cur >= to) || (step < 0 && cur <= to) {
				return nil, false
			}
			v := cur
			next := cur + step
			done = (step > 0) != (next > cur)
			cur = next
			return Int(v), true
		}), nil

	case Float:
		to, ok := c.Args[1].(Float)
		if !ok {
			return nil, c.typeError(1, "float")
		}
		step, ok := c.Args[2].(Float)
		if !ok {
			return nil, c.typeError(2, "float")
		}
		if step == 0 || math.IsNaN(float64(step)) {
			return nil, c.Panicf("step must not be zero")
		}
		cur := from
		return iterator(func() (Value, bool) {
			if (step > 0 && cur >= to) || (step < 0 && cur <= to) {
				return nil, false
			}
			v := cur
			cur += step
			return v, true
		}), nil
	}
	return nil, c.typeError(0, "int or float")
}

func stdBind(c *Call) (Value, error) {
	fn, err := c.Function(1)
	if err != nil {
		return nil, err
	}
	obj := c.Args[0]
	return NewNative("bound "+functionName(fn), fn.Arity, func(inner *Call) (Value, error) {
		return inner.Invoke(fn, obj, inner.Args...)
	}), nil
}

func functionName(fn *Function) string {
	if fn.Name == "" {
		return "function"
	}
	return fn.Name
}

func stdError(c *Call) (Value, error) {
	desc, err := c.String(0)
	if err != nil {
		return nil, err
	}
	return NewError(desc, c.Args[1]), nil
}

func stdHasError(c *Call) (Value, error) {
	return Bool(hasError(c.Args[0], make(map[Value]bool))), nil
}

func hasError(v Value, seen map[Value]bool) bool {
	switch x := v.(type) {
	case *Error:
		return true
	case *Array:
		if seen[x] {
			return false
		}
		seen[x] = true
		for _, item := range x.Items {
			if hasError(item, seen) {
				return true
			}
		}
	case *Dict:
		if seen[x] {
			return false
		}
		seen[x] = true
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			if hasError(k, seen) || hasError(item, seen) {
				return true
			}
		}
	}
	return false
}

// stdCatch turns a panic raised by f into an error value. Exits still
// propagate.
func stdCatch(c *Call) (Value, error) {
	fn, err := c.Function(0)
	if err != nil {
		return nil, err
	}
	v, err := c.Invoke(fn, Nil{})
	var p *Panic
	if errors.As(err, &p) {
		c.Evaluator().log.Printf("caught panic: %v", p)
		ctx := NewDict().
			SetString("message", String(p.Msg)).
			SetString("pos", String(FormatPos(p.Pos)))
		return NewError("caught panic: "+p.Msg, ctx), nil
	}
	return v, err
}

func stdPanic(c *Call) (Value, error) {
	return nil, panicf(c.Pos, "%s", ToString(c.Args[0]))
}

func stdAssert(c *Call) (Value, error) {
	ok, err := c.Bool(0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, panicf(c.Pos, "assertion failed")
	}
	return Nil{}, nil
}

func stdExit(c *Call) (Value, error) {
	code, err := c.Int(0)
	if err != nil {
		return nil, err
	}
	if code < 0 || code > 255 {
		return nil, c.Panicf("invalid exit code (%d)", code)
	}
	return nil, &ExitError{Code: int(code)}
}
