package lispy

import (
	"fmt"
	"sort"
)

// Env is one lexical frame. It does not own its parent; the root frame
// outlives every frame whose chain ends in it.
type Env struct {
	parent   *Env
	vals     map[string]*Value
	revision uint64
}

func NewEnv() *Env {
	return &Env{vals: make(map[string]*Value)}
}

func (e *Env) Parent() *Env { return e.parent }

func (e *Env) SetParent(p *Env) { e.parent = p }

// Root walks the parent chain to the frame with no parent.
func (e *Env) Root() *Env {
	for e.parent != nil {
		e = e.parent
	}
	return e
}

// Lookup returns a copy of the value bound to name, searching parents on a
// local miss. An unbound name yields an Error value.
func (e *Env) Lookup(name string) *Value {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vals[name]; ok {
			return v.Copy()
		}
	}
	return ErrVal(fmt.Sprintf("Unbound symbol '%s'", name))
}

// Define binds a copy of v in this frame, shadowing any parent binding.
func (e *Env) Define(name string, v *Value) {
	e.vals[name] = v.Copy()
	e.revision++
}

// DefineGlobal binds a copy of v in the root frame.
func (e *Env) DefineGlobal(name string, v *Value) {
	e.Root().Define(name, v)
}

// Fork copies every local binding; the fork keeps the same parent.
func (e *Env) Fork() *Env {
	f := &Env{
		parent: e.parent,
		vals:   make(map[string]*Value, len(e.vals)),
	}
	for k, v := range e.vals {
		f.vals[k] = v.Copy()
	}
	return f
}

// Names lists the local bindings in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vals))
	for k := range e.vals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e *Env) Len() int { return len(e.vals) }

// Revision counts the Define calls made on this frame.
func (e *Env) Revision() uint64 { return e.revision }

func (e *Env) addBuiltin(name string, fn Builtin) {
	e.Define(name, BuiltinVal(&Primitive{Name: name, Call: fn}))
}
