package hush

import (
	"math"
	"strconv"
	"strings"
)

// ToString is the display form: strings and chars are written raw.
func ToString(v Value) string {
	switch x := v.(type) {
	case String:
		return string(x)
	case Char:
		return string([]byte{byte(x)})
	default:
		return Inspect(v)
	}
}

// Inspect is the literal-like form used inside containers and diagnostics.
// A container that holds itself is written as `...` where it recurs.
func Inspect(v Value) string {
	var b strings.Builder
	inspect(&b, v, 0, make(map[Value]bool))
	return b.String()
}

const maxInspectDepth = 32

func inspect(b *strings.Builder, v Value, depth int, active map[Value]bool) {
	if depth > maxInspectDepth {
		b.WriteString("...")
		return
	}
	switch v.(type) {
	case *Array, *Dict:
		if active[v] {
			b.WriteString("...")
			return
		}
		active[v] = true
		defer delete(active, v)
	}
	switch x := v.(type) {
	case nil, Nil:
		b.WriteString("nil")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case Int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		b.WriteString(formatFloat(float64(x)))
	case Char:
		b.WriteString(quoteByte(byte(x)))
	case String:
		b.WriteString(strconv.Quote(string(x)))
	case *Array:
		b.WriteByte('[')
		for i, item := range x.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			inspect(b, item, depth+1, active)
		}
		b.WriteByte(']')
	case *Dict:
		b.WriteString("@[")
		for i, k := range x.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if s, ok := k.(String); ok && isIdentifier(string(s)) {
				b.WriteString(string(s))
			} else {
				inspect(b, k, depth+1, active)
			}
			b.WriteString(": ")
			inspect(b, x.entries[k], depth+1, active)
		}
		b.WriteByte(']')
	case *Function:
		if x.lit != nil {
			b.WriteString("function<")
			b.WriteString(FormatPos(x.lit.Pos()))
			b.WriteByte('>')
		} else {
			b.WriteString(x.Name)
		}
	case *Error:
		b.WriteString("error: ")
		b.WriteString(x.Description)
	}
}

// formatFloat always keeps a fractional part so floats never read as ints.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func quoteByte(c byte) string {
	switch c {
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	case 0:
		return `'\0'`
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	}
	return "'" + string([]byte{c}) + "'"
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	_, keyword := keywords[s]
	return !keyword
}
