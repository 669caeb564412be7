package hush

import "fmt"

// Call is what a native function receives.
type Call struct {
	e    *Evaluator
	Fn   *Function
	Args []Value
	Self Value
	Pos  Pos
}

func (c *Call) Evaluator() *Evaluator {
	return c.e
}

// Invoke calls a script or native function from native code.
func (c *Call) Invoke(fn, self Value, args ...Value) (Value, error) {
	return c.e.call(fn, self, args, c.Pos)
}

func (c *Call) Panicf(format string, args ...interface{}) *Panic {
	return panicf(c.Pos, "%s: %s", c.Fn.Name, fmt.Sprintf(format, args...))
}

func (c *Call) typeError(i int, expected string) *Panic {
	v := c.Args[i]
	return c.Panicf("argument %d: expected %s, got (%s: %s)", i+1, expected, Inspect(v), TypeOf(v))
}

func (c *Call) String(i int) (string, error) {
	if s, ok := c.Args[i].(String); ok {
		return string(s), nil
	}
	return "", c.typeError(i, "string")
}

func (c *Call) Int(i int) (int64, error) {
	if n, ok := c.Args[i].(Int); ok {
		return int64(n), nil
	}
	return 0, c.typeError(i, "int")
}

func (c *Call) Bool(i int) (bool, error) {
	if b, ok := c.Args[i].(Bool); ok {
		return bool(b), nil
	}
	return false, c.typeError(i, "bool")
}

func (c *Call) Array(i int) (*Array, error) {
	if a, ok := c.Args[i].(*Array); ok {
		return a, nil
	}
	return nil, c.typeError(i, "array")
}

func (c *Call) Function(i int) (*Function, error) {
	if f, ok := c.Args[i].(*Function); ok {
		return f, nil
	}
	return nil, c.typeError(i, "function")
}
