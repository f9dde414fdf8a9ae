package lispy

import (
	"fmt"
	"math"
)

const (
	errOverflow = "Integer overflow"
	errDivZero  = "Division by zero"
)

func builtinAdd(env *Env, args *Value) *Value { return arith(args, "+") }
func builtinSub(env *Env, args *Value) *Value { return arith(args, "-") }
func builtinMul(env *Env, args *Value) *Value { return arith(args, "*") }
func builtinDiv(env *Env, args *Value) *Value { return arith(args, "/") }
func builtinMod(env *Env, args *Value) *Value { return arith(args, "%") }
func builtinPow(env *Env, args *Value) *Value { return arith(args, "^") }
func builtinMin(env *Env, args *Value) *Value { return arith(args, "min") }
func builtinMax(env *Env, args *Value) *Value { return arith(args, "max") }

// arith folds op left to right over Number arguments.
func arith(args *Value, op string) *Value {
	if err := checkAllType(op, args, ValNum); err != nil {
		return err
	}
	if args.Len() == 0 {
		return checkCount(op, args, 1)
	}

	acc := args.Cells[0].Num
	if op == "-" && args.Len() == 1 {
		if acc == math.MinInt64 {
			return ErrVal(errOverflow)
		}
		return NumVal(-acc)
	}

	for _, c := range args.Cells[1:] {
		y := c.Num
		var ok bool
		switch op {
		case "+":
			acc, ok = addInt(acc, y)
		case "-":
			acc, ok = subInt(acc, y)
		case "*":
			acc, ok = mulInt(acc, y)
		case "/":
			if y == 0 {
				return ErrVal(errDivZero)
			}
			if acc == math.MinInt64 && y == -1 {
				return ErrVal(errOverflow)
			}
			acc, ok = acc/y, true
		case "%":
			if y == 0 {
				return ErrVal(errDivZero)
			}
			acc, ok = acc%y, true
		case "^":
			if y < 0 {
				return ErrVal(fmt.Sprintf("Negative exponent (%d) not supported", y))
			}
			acc, ok = powInt(acc, y)
		case "min":
			acc, ok = min(acc, y), true
		case "max":
			acc, ok = max(acc, y), true
		}
		if !ok {
			return ErrVal(errOverflow)
		}
	}
	return NumVal(acc)
}

func addInt(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func subInt(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

// powInt computes base^exp for exp >= 0 by repeated multiplication.
func powInt(base, exp int64) (int64, bool) {
	switch {
	case exp == 0:
		return 1, true
	case base == 0:
		return 0, true
	case base == 1:
		return 1, true
	case base == -1:
		if exp%2 == 0 {
			return 1, true
		}
		return -1, true
	}
	r := int64(1)
	for i := int64(0); i < exp; i++ {
		var ok bool
		if r, ok = mulInt(r, base); !ok {
			return 0, false
		}
	}
	return r, true
}
