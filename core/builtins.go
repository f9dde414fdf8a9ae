package lispy

import "fmt"

// NewRootEnv returns a parentless environment with every builtin registered.
func NewRootEnv() *Env {
	env := NewEnv()
	for name, fn := range Builtins() {
		env.addBuiltin(name, fn)
	}
	return env
}

// Builtins returns the native operations keyed by the symbol they bind to.
func Builtins() map[string]Builtin {
	return map[string]Builtin{
		// List
		"list": builtinList,
		"head": builtinHead,
		"tail": builtinTail,
		"eval": builtinEval,
		"join": builtinJoin,
		"cons": builtinCons,
		"len":  builtinLen,
		"init": builtinInit,
		// Binding
		"def": builtinDef,
		"=":   builtinPut,
		"put": builtinPutAlias,
		"\\":  builtinLambda,
		// Arithmetic
		"+":   builtinAdd,
		"-":   builtinSub,
		"*":   builtinMul,
		"/":   builtinDiv,
		"%":   builtinMod,
		"^":   builtinPow,
		"min": builtinMin,
		"max": builtinMax,
		// Comparison
		">":  builtinGt,
		"<":  builtinLt,
		">=": builtinGe,
		"<=": builtinLe,
		"==": builtinEq,
		"!=": builtinNe,
		// Conditionals
		"if":  builtinIf,
		"and": builtinAnd,
		"or":  builtinOr,
		"not": builtinNot,
	}
}

// --- Argument checks ---
//
// Each returns nil when the check passes and an Error value otherwise.

func checkCount(name string, args *Value, n int) *Value {
	if args.Len() != n {
		return ErrVal(fmt.Sprintf(
			"Function '%s' took incorrect number of arguments. Expected %d instead of %d.",
			name, n, args.Len()))
	}
	return nil
}

func checkType(name string, args *Value, i int, want ValueKind) *Value {
	if got := args.Cells[i].Kind; got != want {
		return ErrVal(fmt.Sprintf(
			"Function '%s' passed incorrect type at argument %d. Expected %s instead of %s.",
			name, i, want, got))
	}
	return nil
}

func checkNotEmpty(name string, args *Value, i int) *Value {
	if args.Cells[i].Len() == 0 {
		return ErrVal(fmt.Sprintf("Function '%s' passed empty {} at argument %d.", name, i))
	}
	return nil
}

func checkAllType(name string, args *Value, want ValueKind) *Value {
	for i := range args.Cells {
		if err := checkType(name, args, i, want); err != nil {
			return err
		}
	}
	return nil
}

// firstErr returns the first non-nil check result.
func firstErr(checks ...func() *Value) *Value {
	for _, c := range checks {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

// --- List ---

func builtinList(env *Env, args *Value) *Value {
	args.Kind = ValQexpr
	return args
}

func builtinHead(env *Env, args *Value) *Value {
	if err := checkQexprArg("head", args); err != nil {
		return err
	}
	v := args.Take(0)
	v.Cells = v.Cells[:1]
	return v
}

func builtinTail(env *Env, args *Value) *Value {
	if err := checkQexprArg("tail", args); err != nil {
		return err
	}
	v := args.Take(0)
	v.Pop(0)
	return v
}

func builtinInit(env *Env, args *Value) *Value {
	if err := checkQexprArg("init", args); err != nil {
		return err
	}
	v := args.Take(0)
	v.Pop(v.Len() - 1)
	return v
}

// checkQexprArg validates the single non-empty Qexpr argument shared by head,
// tail and init.
func checkQexprArg(name string, args *Value) *Value {
	return firstErr(
		func() *Value { return checkCount(name, args, 1) },
		func() *Value { return checkType(name, args, 0, ValQexpr) },
		func() *Value { return checkNotEmpty(name, args, 0) },
	)
}

func builtinEval(env *Env, args *Value) *Value {
	if err := firstErr(
		func() *Value { return checkCount("eval", args, 1) },
		func() *Value { return checkType("eval", args, 0, ValQexpr) },
	); err != nil {
		return err
	}
	x := args.Take(0)
	x.Kind = ValSexpr
	return Eval(env, x)
}

func builtinJoin(env *Env, args *Value) *Value {
	if err := checkAllType("join", args, ValQexpr); err != nil {
		return err
	}
	if args.Len() == 0 {
		return QexprVal()
	}
	x := args.Pop(0)
	for args.Len() > 0 {
		x.Join(args.Pop(0))
	}
	return x
}

func builtinCons(env *Env, args *Value) *Value {
	if err := firstErr(
		func() *Value { return checkCount("cons", args, 2) },
		func() *Value { return checkType("cons", args, 1, ValQexpr) },
	); err != nil {
		return err
	}
	x := args.Pop(0)
	q := args.Take(0)
	return q.Insert(0, x)
}

func builtinLen(env *Env, args *Value) *Value {
	if err := firstErr(
		func() *Value { return checkCount("len", args, 1) },
		func() *Value { return checkType("len", args, 0, ValQexpr) },
	); err != nil {
		return err
	}
	return NumVal(int64(args.Cells[0].Len()))
}

// --- Binding ---

func builtinDef(env *Env, args *Value) *Value {
	return bindVars(env, args, "def")
}

func builtinPut(env *Env, args *Value) *Value {
	return bindVars(env, args, "=")
}

// builtinPutAlias is = under the name put, so errors report put.
func builtinPutAlias(env *Env, args *Value) *Value {
	return bindVars(env, args, "put")
}

func bindVars(env *Env, args *Value, name string) *Value {
	if args.Len() == 0 {
		return checkCount(name, args, 1)
	}
	if err := checkType(name, args, 0, ValQexpr); err != nil {
		return err
	}

	syms := args.Cells[0]
	for i, s := range syms.Cells {
		if s.Kind != ValSym {
			return ErrVal(fmt.Sprintf(
				"Function '%s' cannot define non-symbol. Got %s at position %d, Expected %s.",
				name, s.Kind, i, ValSym))
		}
	}
	if syms.Len() != args.Len()-1 {
		return ErrVal(fmt.Sprintf(
			"Function '%s' passed incorrect number of values for symbols. Got %d, Expected %d.",
			name, args.Len()-1, syms.Len()))
	}

	for i, s := range syms.Cells {
		if name == "def" {
			env.DefineGlobal(s.Sym, args.Cells[i+1])
		} else {
			env.Define(s.Sym, args.Cells[i+1])
		}
	}
	return SexprVal()
}

func builtinLambda(env *Env, args *Value) *Value {
	if err := firstErr(
		func() *Value { return checkCount("\\", args, 2) },
		func() *Value { return checkType("\\", args, 0, ValQexpr) },
		func() *Value { return checkType("\\", args, 1, ValQexpr) },
	); err != nil {
		return err
	}
	for i, f := range args.Cells[0].Cells {
		if f.Kind != ValSym {
			return ErrVal(fmt.Sprintf(
				"Cannot define non-symbol. Got %s at position %d, Expected %s.", f.Kind, i, ValSym))
		}
	}
	formals := args.Pop(0)
	body := args.Pop(0)
	return LambdaVal(formals, body)
}

// --- Conditionals ---

func builtinIf(env *Env, args *Value) *Value {
	if err := firstErr(
		func() *Value { return checkCount("if", args, 3) },
		func() *Value { return checkType("if", args, 0, ValNum) },
		func() *Value { return checkType("if", args, 1, ValQexpr) },
		func() *Value { return checkType("if", args, 2, ValQexpr) },
	); err != nil {
		return err
	}
	branch := args.Cells[2]
	if args.Cells[0].Num != 0 {
		branch = args.Cells[1]
	}
	branch.Kind = ValSexpr
	return Eval(env, branch)
}

func builtinGt(env *Env, args *Value) *Value { return ordering(args, ">") }
func builtinLt(env *Env, args *Value) *Value { return ordering(args, "<") }
func builtinGe(env *Env, args *Value) *Value { return ordering(args, ">=") }
func builtinLe(env *Env, args *Value) *Value { return ordering(args, "<=") }

func ordering(args *Value, op string) *Value {
	if err := firstErr(
		func() *Value { return checkCount(op, args, 2) },
		func() *Value { return checkType(op, args, 0, ValNum) },
		func() *Value { return checkType(op, args, 1, ValNum) },
	); err != nil {
		return err
	}
	a, b := args.Cells[0].Num, args.Cells[1].Num
	var r bool
	switch op {
	case ">":
		r = a > b
	case "<":
		r = a < b
	case ">=":
		r = a >= b
	case "<=":
		r = a <= b
	}
	return boolVal(r)
}

func builtinEq(env *Env, args *Value) *Value { return equality(args, "==") }
func builtinNe(env *Env, args *Value) *Value { return equality(args, "!=") }

func equality(args *Value, op string) *Value {
	if err := checkCount(op, args, 2); err != nil {
		return err
	}
	eq := ValuesEqual(args.Cells[0], args.Cells[1])
	if op == "!=" {
		eq = !eq
	}
	return boolVal(eq)
}

func builtinAnd(env *Env, args *Value) *Value {
	return logical(args, "and", func(a, b bool) bool { return a && b })
}

func builtinOr(env *Env, args *Value) *Value {
	return logical(args, "or", func(a, b bool) bool { return a || b })
}

func logical(args *Value, name string, op func(a, b bool) bool) *Value {
	if err := checkBooleans(name, args); err != nil {
		return err
	}
	if args.Len() == 0 {
		return checkCount(name, args, 1)
	}
	acc := args.Cells[0].Num == 1
	for _, c := range args.Cells[1:] {
		acc = op(acc, c.Num == 1)
	}
	return boolVal(acc)
}

func builtinNot(env *Env, args *Value) *Value {
	if err := checkCount("not", args, 1); err != nil {
		return err
	}
	if err := checkBooleans("not", args); err != nil {
		return err
	}
	return boolVal(args.Cells[0].Num == 0)
}

func checkBooleans(name string, args *Value) *Value {
	if err := checkAllType(name, args, ValNum); err != nil {
		return err
	}
	for i, c := range args.Cells {
		if c.Num != 0 && c.Num != 1 {
			return ErrVal(fmt.Sprintf("Function '%s' passed non-boolean at argument %d.", name, i))
		}
	}
	return nil
}

func boolVal(b bool) *Value {
	if b {
		return NumVal(1)
	}
	return NumVal(0)
}
