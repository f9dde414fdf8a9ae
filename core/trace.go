package lispy

// Trace captures the boundary points of a single served eval: the source
// text, the rendered result and whether it was a language or syntax error.
type Trace struct {
	Entry     string // source text as received
	Result    string // Value.String() of the result; empty on syntax error
	Kind      string // variant name of the result
	Error     string // Error value message or syntax error; empty on success
	Timestamp string // RFC 3339, UTC
}

// ToMap converts a Trace to its wire form for the traces op.
func (t *Trace) ToMap() map[string]any {
	m := map[string]any{
		"entry":     t.Entry,
		"result":    t.Result,
		"kind":      t.Kind,
		"timestamp": t.Timestamp,
	}
	if t.Error != "" {
		m["error"] = t.Error
	} else {
		m["error"] = nil
	}
	return m
}

// traceRing keeps the most recent traces up to a fixed capacity.
type traceRing struct {
	traces []Trace
	max    int
}

func (r *traceRing) add(t Trace) {
	r.traces = append(r.traces, t)
	if len(r.traces) > r.max {
		// Drop oldest traces
		excess := len(r.traces) - r.max
		r.traces = r.traces[excess:]
	}
}

// last returns up to n of the newest traces, oldest first. n < 0 means all.
func (r *traceRing) last(n int) []Trace {
	if n < 0 || n > len(r.traces) {
		n = len(r.traces)
	}
	return r.traces[len(r.traces)-n:]
}

func (r *traceRing) clear() { r.traces = nil }
