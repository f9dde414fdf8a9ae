package lispy

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
)

//go:embed prelude.lspy
var preludeSource string

// Journal persists top-level inputs that changed the root environment so a
// restarted interpreter can rebuild its definitions.
type Journal interface {
	Replay(fn func(source string) error) error
	Append(source string) error
	Truncate() error
}

// Interpreter owns a root environment and evaluates source text against it.
// It is not safe for concurrent use; Core serializes access through its actor.
type Interpreter struct {
	env     *Env
	prelude bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{env: NewRootEnv()}
}

// Env returns the root environment.
func (in *Interpreter) Env() *Env { return in.env }

// EvalString evaluates src as a single S-expression, so top-level input needs
// no enclosing parentheses. A syntax error is returned as an error; language
// errors come back as Error values.
func (in *Interpreter) EvalString(src string) (*Value, error) {
	tree, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Evaluate(in.env, tree), nil
}

// LoadSource evaluates every top-level expression of src in order and returns
// each result. Evaluation continues past Error values.
func (in *Interpreter) LoadSource(name, src string) ([]*Value, error) {
	tree, err := ParseNamed(name, src)
	if err != nil {
		return nil, err
	}
	exprs := Read(tree)
	results := make([]*Value, 0, exprs.Len())
	for exprs.Len() > 0 {
		results = append(results, Eval(in.env, exprs.Pop(0)))
	}
	return results, nil
}

// LoadFile reads path and evaluates it with LoadSource.
func (in *Interpreter) LoadFile(path string) ([]*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return in.LoadSource(path, string(data))
}

// LoadPrelude evaluates the embedded standard prelude. Any Error value from
// the prelude is reported as a Go error.
func (in *Interpreter) LoadPrelude() error {
	results, err := in.LoadSource("prelude.lspy", preludeSource)
	if err != nil {
		return fmt.Errorf("prelude: %w", err)
	}
	for _, r := range results {
		if r.Kind == ValErr {
			return fmt.Errorf("prelude: %s", r.Err)
		}
	}
	in.prelude = true
	return nil
}

// Reset discards every binding and rebuilds the root environment, reloading
// the prelude if it had been loaded.
func (in *Interpreter) Reset() error {
	in.env = NewRootEnv()
	if in.prelude {
		return in.LoadPrelude()
	}
	return nil
}

// EvalJournaled is EvalString that also appends src to j when it rebound a
// root symbol without producing an Error. A syntax error returns a nil Value;
// a failed append returns the Value alongside the error.
func (in *Interpreter) EvalJournaled(src string, j Journal) (*Value, error) {
	root := in.env
	before := root.Revision()
	val, err := in.EvalString(src)
	if err != nil {
		return nil, err
	}
	if j == nil || val.Kind == ValErr || root.Revision() == before {
		return val, nil
	}
	if err := j.Append(src); err != nil {
		return val, fmt.Errorf("journal append: %w", err)
	}
	return val, nil
}

// Replay evaluates every journal entry in order and returns how many were
// applied. Entries that now evaluate to an Error are logged and skipped.
func (in *Interpreter) Replay(j Journal, logger *slog.Logger) (int, error) {
	n := 0
	err := j.Replay(func(src string) error {
		val, err := in.EvalString(src)
		if err != nil {
			return fmt.Errorf("replay %q: %w", src, err)
		}
		if val.Kind == ValErr {
			logger.Warn("replay", "entry", src, "error", val.Err)
			return nil
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("replay journal: %w", err)
	}
	return n, nil
}
