package hush

import (
	"regexp"
	"strings"
)

func stringFuncs() []stdFunc {
	return []stdFunc{
		{"bytes", 1, stdBytes},
		{"split", 2, stdSplit},
		{"replace", 3, stdReplace},
		{"substr", 3, stdSubstr},
		{"trim", 1, stdTrim},
		{"regex", 1, stdRegex},
	}
}

func stdBytes(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	items := make([]Value, len(s))
	for i := 0; i < len(s); i++ {
		items[i] = Char(s[i])
	}
	return NewArray(items...), nil
}

func stringArray(parts []string) *Array {
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = String(p)
	}
	return NewArray(items...)
}

func stdSplit(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	sep, err := c.String(1)
	if err != nil {
		return nil, err
	}
	return stringArray(strings.Split(s, sep)), nil
}

func stdReplace(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	old, err := c.String(1)
	if err != nil {
		return nil, err
	}
	repl, err := c.String(2)
	if err != nil {
		return nil, err
	}
	return String(strings.ReplaceAll(s, old, repl)), nil
}

// stdSubstr returns an error value, not a panic, for a range outside s.
func stdSubstr(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	start, err := c.Int(1)
	if err != nil {
		return nil, err
	}
	n, err := c.Int(2)
	if err != nil {
		return nil, err
	}
	if start < 0 || n < 0 || start > int64(len(s)) || n > int64(len(s))-start {
		ctx := NewDict().
			SetString("start", Int(start)).
			SetString("len", Int(n))
		return NewError("index out of bounds", ctx), nil
	}
	return String(s[start : start+n]), nil
}

func stdTrim(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	return String(strings.TrimSpace(s)), nil
}

// stdRegex compiles a pattern into @[match, split, replace].
func stdRegex(c *Call) (Value, error) {
	pattern, err := c.String(0)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return NewError("invalid regex", String(err.Error())), nil
	}

	obj := NewDict()
	obj.SetString("match", NewNative("regex.match", 1, func(c *Call) (Value, error) {
		s, err := c.String(0)
		if err != nil {
			return nil, err
		}
		return Bool(re.MatchString(s)), nil
	}))
	obj.SetString("split", NewNative("regex.split", 1, func(c *Call) (Value, error) {
		s, err := c.String(0)
		if err != nil {
			return nil, err
		}
		return stringArray(re.Split(s, -1)), nil
	}))
	obj.SetString("replace", NewNative("regex.replace", 2, func(c *Call) (Value, error) {
		s, err := c.String(0)
		if err != nil {
			return nil, err
		}
		repl, err := c.String(1)
		if err != nil {
			return nil, err
		}
		return String(re.ReplaceAllString(s, repl)), nil
	}))
	obj.Freeze()
	return obj, nil
}
