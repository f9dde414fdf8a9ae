package lispy

import (
	"strconv"
	"strings"
)

type ValueKind int

const (
	ValNum ValueKind = iota
	ValErr
	ValSym
	ValFn
	ValSexpr
	ValQexpr
)

// Builtin is a native operation. It owns args and returns exactly one Value.
type Builtin func(env *Env, args *Value) *Value

// Primitive identifies a registered builtin. Two builtin values are equal only
// when they point at the same Primitive.
type Primitive struct {
	Name string
	Call Builtin
}

// FnValue is either a builtin (Prim set) or a closure (Formals, Body, Env set).
type FnValue struct {
	Prim    *Primitive
	Formals *Value
	Body    *Value
	Env     *Env
}

func (f *FnValue) IsBuiltin() bool { return f.Prim != nil }

type Value struct {
	Kind  ValueKind
	Num   int64
	Err   string
	Sym   string
	Fn    *FnValue
	Cells []*Value
}

func NumVal(n int64) *Value     { return &Value{Kind: ValNum, Num: n} }
func ErrVal(msg string) *Value  { return &Value{Kind: ValErr, Err: msg} }
func SymVal(name string) *Value { return &Value{Kind: ValSym, Sym: name} }
func SexprVal(cells ...*Value) *Value {
	return &Value{Kind: ValSexpr, Cells: cells}
}
func QexprVal(cells ...*Value) *Value {
	return &Value{Kind: ValQexpr, Cells: cells}
}
func BuiltinVal(p *Primitive) *Value { return &Value{Kind: ValFn, Fn: &FnValue{Prim: p}} }

// LambdaVal builds a closure with a fresh, parentless environment.
func LambdaVal(formals, body *Value) *Value {
	return &Value{Kind: ValFn, Fn: &FnValue{Formals: formals, Body: body, Env: NewEnv()}}
}

func (v *Value) Len() int { return len(v.Cells) }

// Add appends x and returns v.
func (v *Value) Add(x *Value) *Value {
	v.Cells = append(v.Cells, x)
	return v
}

// Pop removes and returns the element at i.
func (v *Value) Pop(i int) *Value {
	x := v.Cells[i]
	copy(v.Cells[i:], v.Cells[i+1:])
	v.Cells[len(v.Cells)-1] = nil
	v.Cells = v.Cells[:len(v.Cells)-1]
	return x
}

// Take removes the element at i and drops the rest of v.
func (v *Value) Take(i int) *Value {
	x := v.Cells[i]
	v.Cells = nil
	return x
}

// Insert places x at index i.
func (v *Value) Insert(i int, x *Value) *Value {
	v.Cells = append(v.Cells, nil)
	copy(v.Cells[i+1:], v.Cells[i:])
	v.Cells[i] = x
	return v
}

// Join moves every element of next onto the end of v.
func (v *Value) Join(next *Value) *Value {
	v.Cells = append(v.Cells, next.Cells...)
	next.Cells = nil
	return v
}

// Copy returns a deep copy. Closure copies fork their environment.
func (v *Value) Copy() *Value {
	c := &Value{Kind: v.Kind}
	switch v.Kind {
	case ValNum:
		c.Num = v.Num
	case ValErr:
		c.Err = v.Err
	case ValSym:
		c.Sym = v.Sym
	case ValFn:
		if v.Fn.IsBuiltin() {
			c.Fn = &FnValue{Prim: v.Fn.Prim}
		} else {
			c.Fn = &FnValue{
				Formals: v.Fn.Formals.Copy(),
				Body:    v.Fn.Body.Copy(),
				Env:     v.Fn.Env.Fork(),
			}
		}
	case ValSexpr, ValQexpr:
		c.Cells = make([]*Value, len(v.Cells))
		for i, cell := range v.Cells {
			c.Cells[i] = cell.Copy()
		}
	}
	return c
}

func (v *Value) String() string {
	switch v.Kind {
	case ValNum:
		return strconv.FormatInt(v.Num, 10)
	case ValErr:
		return "Error: " + v.Err
	case ValSym:
		return v.Sym
	case ValFn:
		if v.Fn.IsBuiltin() {
			return "<builtin>"
		}
		return "(\\ " + v.Fn.Formals.String() + " " + v.Fn.Body.String() + ")"
	case ValSexpr:
		return exprString(v.Cells, "(", ")")
	case ValQexpr:
		return exprString(v.Cells, "{", "}")
	default:
		return "<unknown>"
	}
}

func exprString(cells []*Value, open, close string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return open + strings.Join(parts, " ") + close
}

func (v *Value) KindName() string { return v.Kind.String() }

func (k ValueKind) String() string {
	switch k {
	case ValNum:
		return "Number"
	case ValErr:
		return "Error"
	case ValSym:
		return "Symbol"
	case ValFn:
		return "Function"
	case ValSexpr:
		return "S-expression"
	case ValQexpr:
		return "Q-expression"
	default:
		return "Unknown"
	}
}

// ValuesEqual compares two Values for deep equality. Closures compare by
// formals and body only.
func ValuesEqual(a, b *Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValNum:
		return a.Num == b.Num
	case ValErr:
		return a.Err == b.Err
	case ValSym:
		return a.Sym == b.Sym
	case ValFn:
		if a.Fn.IsBuiltin() || b.Fn.IsBuiltin() {
			return a.Fn.Prim == b.Fn.Prim
		}
		return ValuesEqual(a.Fn.Formals, b.Fn.Formals) && ValuesEqual(a.Fn.Body, b.Fn.Body)
	case ValSexpr, ValQexpr:
		if len(a.Cells) != len(b.Cells) {
			return false
		}
		for i := range a.Cells {
			if !ValuesEqual(a.Cells[i], b.Cells[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ValueToGo converts a Value to a native Go value for JSON serialization.
func ValueToGo(v *Value) any {
	switch v.Kind {
	case ValNum:
		return v.Num
	case ValErr:
		return map[string]any{"error": v.Err}
	case ValSym:
		return v.Sym
	case ValFn:
		return v.String()
	case ValSexpr, ValQexpr:
		arr := make([]any, len(v.Cells))
		for i, c := range v.Cells {
			arr[i] = ValueToGo(c)
		}
		return arr
	default:
		return nil
	}
}
