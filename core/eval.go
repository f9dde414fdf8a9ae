package lispy

import "fmt"

// Evaluate reads a syntax tree and evaluates the result in env.
func Evaluate(env *Env, tree *Node) *Value {
	return Eval(env, Read(tree))
}

// Eval reduces v in env. Sexpr values are evaluated in place, so callers hand
// over ownership of v.
func Eval(env *Env, v *Value) *Value {
	switch v.Kind {
	case ValSym:
		return env.Lookup(v.Sym)
	case ValSexpr:
		return evalSexpr(env, v)
	default:
		return v
	}
}

func evalSexpr(env *Env, v *Value) *Value {
	for i, cell := range v.Cells {
		v.Cells[i] = Eval(env, cell)
		if v.Cells[i].Kind == ValErr {
			return v.Take(i)
		}
	}

	switch v.Len() {
	case 0:
		return v
	case 1:
		return v.Take(0)
	}

	f := v.Pop(0)
	if f.Kind != ValFn {
		return ErrVal(fmt.Sprintf("'%s' is not a function", f.KindName()))
	}
	return Call(env, f, v)
}

// Call applies f to args. Closures bind formals left to right; a closure given
// fewer arguments than formals comes back partially applied.
func Call(env *Env, f *Value, args *Value) *Value {
	if f.Fn.IsBuiltin() {
		return f.Fn.Prim.Call(env, args)
	}

	fn := f.Fn
	for args.Len() > 0 {
		if fn.Formals.Len() == 0 {
			return ErrVal("too many arguments")
		}

		sym := fn.Formals.Pop(0)
		if sym.Sym == "&" {
			if fn.Formals.Len() != 1 {
				return ErrVal("Function format invalid. Symbol '&' not followed by single symbol.")
			}
			rest := fn.Formals.Pop(0)
			fn.Env.Define(rest.Sym, builtinList(env, args))
			break
		}
		fn.Env.Define(sym.Sym, args.Pop(0))
	}

	if fn.Formals.Len() > 0 && fn.Formals.Cells[0].Sym == "&" {
		if fn.Formals.Len() != 2 {
			return ErrVal("Function format invalid. Symbol '&' not followed by single symbol.")
		}
		fn.Formals.Pop(0)
		rest := fn.Formals.Pop(0)
		fn.Env.Define(rest.Sym, QexprVal())
	}

	if fn.Formals.Len() > 0 {
		return f.Copy()
	}
	fn.Env.SetParent(env)
	return Eval(fn.Env, SexprVal(fn.Body.Copy().Cells...))
}
