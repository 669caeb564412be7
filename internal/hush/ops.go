package hush

import "math"

func unary(op TokenKind, v Value, pos Pos) (Value, error) {
	switch op {
	case NOT:
		if b, ok := v.(Bool); ok {
			return !b, nil
		}
	case MINUS:
		switch x := v.(type) {
		case Int:
			if x == math.MinInt64 {
				return nil, errOverflow(pos)
			}
			return -x, nil
		case Float:
			return -x, nil
		}
	}
	return nil, errOperand(v, pos)
}

func binary(op TokenKind, a, b Value, pos Pos) (Value, error) {
	switch op {
	case EQ:
		return Bool(Equal(a, b)), nil
	case NEQ:
		return Bool(!Equal(a, b)), nil
	case LT, LE, GT, GE:
		c, ok := Compare(a, b)
		if !ok {
			return nil, errOperands(op.String(), a, b, pos)
		}
		switch op {
		case LT:
			return Bool(c < 0), nil
		case LE:
			return Bool(c <= 0), nil
		case GT:
			return Bool(c > 0), nil
		default:
			return Bool(c >= 0), nil
		}
	case CONCAT:
		x, ok1 := a.(String)
		y, ok2 := b.(String)
		if !ok1 || !ok2 {
			return nil, errOperands(op.String(), a, b, pos)
		}
		return x + y, nil
	case PLUS, MINUS, STAR, SLASH, PERCENT:
		return arith(op, a, b, pos)
	}
	return nil, panicf(pos, "unknown operator '%s'", op)
}

// arith never promotes between int and float.
func arith(op TokenKind, a, b Value, pos Pos) (Value, error) {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		if !ok {
			break
		}
		return intArith(op, x, y, pos)
	case Float:
		y, ok := b.(Float)
		if !ok {
			break
		}
		switch op {
		case PLUS:
			return x + y, nil
		case MINUS:
			return x - y, nil
		case STAR:
			return x * y, nil
		case SLASH:
			return x / y, nil
		}
	}
	return nil, errOperands(op.String(), a, b, pos)
}

func intArith(op TokenKind, x, y Int, pos Pos) (Value, error) {
	switch op {
	case PLUS:
		r := x + y
		if (y > 0 && r < x) || (y < 0 && r > x) {
			return nil, errOverflow(pos)
		}
		return r, nil
	case MINUS:
		r := x - y
		if (y > 0 && r > x) || (y < 0 && r < x) {
			return nil, errOverflow(pos)
		}
		return r, nil
	case STAR:
		if x == 0 || y == 0 {
			return Int(0), nil
		}
		r := x * y
		if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return nil, errOverflow(pos)
		}
		return r, nil
	case SLASH:
		if y == 0 {
			return nil, errDivisionByZero(pos)
		}
		if x == math.MinInt64 && y == -1 {
			return nil, errOverflow(pos)
		}
		return x / y, nil
	case PERCENT:
		if y == 0 {
			return nil, errDivisionByZero(pos)
		}
		if y == -1 {
			return Int(0), nil
		}
		return x % y, nil
	}
	return nil, errOperands(op.String(), x, y, pos)
}
