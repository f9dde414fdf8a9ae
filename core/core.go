package lispy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// Options configures a Core.
type Options struct {
	SockPath  string
	MaxTraces int
	Prelude   bool
	Load      []string
	Journal   Journal      // nil disables journaling
	Logger    *slog.Logger // nil uses slog.Default()
}

// Core is the central actor that owns the interpreter and handles requests.
type Core struct {
	interp   *Interpreter
	journal  Journal
	log      *slog.Logger
	requests chan coreRequest
	done     chan struct{}
	once     sync.Once
	listener net.Listener
	traces   traceRing
}

type coreRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewCore builds the interpreter, replays the journal and listens on the
// socket. The actor does not start until Run.
func NewCore(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTraces := opts.MaxTraces
	if maxTraces <= 0 {
		maxTraces = 1000
	}

	c := &Core{
		interp:   NewInterpreter(),
		journal:  opts.Journal,
		log:      logger,
		requests: make(chan coreRequest, 64),
		done:     make(chan struct{}),
		traces:   traceRing{max: maxTraces},
	}

	if opts.Prelude {
		if err := c.interp.LoadPrelude(); err != nil {
			return nil, err
		}
	}
	for _, path := range opts.Load {
		if err := c.load(path); err != nil {
			return nil, err
		}
	}
	if c.journal != nil {
		n, err := c.interp.Replay(c.journal, c.log)
		if err != nil {
			return nil, err
		}
		c.log.Info("journal replayed", "entries", n)
	}

	// Clean up stale socket
	os.Remove(opts.SockPath)
	listener, err := net.Listen("unix", opts.SockPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	c.listener = listener
	return c, nil
}

func (c *Core) load(path string) error {
	results, err := c.interp.LoadFile(path)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Kind == ValErr {
			c.log.Warn("load", "file", path, "error", r.Err)
		}
	}
	c.log.Info("loaded", "file", path, "exprs", len(results))
	return nil
}

// Run starts the core actor goroutine and accepts connections. Blocks until
// Shutdown.
func (c *Core) Run() {
	go c.actorLoop()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		go c.handleClientConnection(conn)
	}
}

// Shutdown stops accepting connections and stops the actor.
func (c *Core) Shutdown() {
	c.once.Do(func() {
		c.listener.Close()
		close(c.done)
	})
}

// actorLoop is the single goroutine that owns interpreter state.
func (c *Core) actorLoop() {
	for {
		select {
		case req := <-c.requests:
			req.response <- c.handleRequest(req.msg)
		case <-c.done:
			return
		}
	}
}

// sendToActor sends a request to the core actor and waits for the response.
func (c *Core) sendToActor(msg map[string]any) map[string]any {
	resp := make(chan map[string]any, 1)
	id, _ := msg["id"].(string)
	select {
	case c.requests <- coreRequest{msg: msg, response: resp}:
	case <-c.done:
		return errorResponse(id, "core shutting down")
	}
	select {
	case r := <-resp:
		return r
	case <-c.done:
		return errorResponse(id, "core shutting down")
	}
}

func (c *Core) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	if op == "" {
		// Empty request or no op: return the manual
		return c.coreManual(id)
	}

	switch op {
	case "eval":
		return c.handleEval(id, msg)
	case "symbols":
		return c.handleSymbols(id)
	case "traces":
		return c.handleTraces(id, msg)
	case "clear":
		return c.handleClear(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (c *Core) coreManual(id string) map[string]any {
	names := make([]any, 0, len(Builtins()))
	for _, n := range NewRootEnv().Names() {
		names = append(names, n)
	}
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "lispy-core",
			"version": "1.0.0",
			"ops": map[string]any{
				"eval":    "Evaluate a lispy expression. Params: expr (string)",
				"symbols": "List the bindings of the root environment.",
				"traces":  "Return recent evals. Params: n (int, optional)",
				"clear":   "Reset the environment and truncate the journal.",
			},
			"builtins": names,
		},
	}
}

func (c *Core) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}

	trace := Trace{
		Entry:     expr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	val, err := c.interp.EvalJournaled(expr, c.journal)
	if err != nil && val != nil {
		c.log.Error("journal", "error", err)
	} else if err != nil {
		trace.Error = err.Error()
		c.traces.add(trace)
		var se *SyntaxError
		if errors.As(err, &se) && se.Incomplete {
			return errorResponse(id, "incomplete input: "+err.Error())
		}
		return errorResponse(id, err.Error())
	}

	trace.Result = val.String()
	trace.Kind = val.KindName()
	if val.Kind == ValErr {
		trace.Error = val.Err
	}
	c.traces.add(trace)

	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"text": val.String(),
			"kind": val.KindName(),
			"data": ValueToGo(val),
		},
	}
}

func (c *Core) handleSymbols(id string) map[string]any {
	root := c.interp.Env()
	names := root.Names()
	syms := make([]any, len(names))
	for i, n := range names {
		v := root.Lookup(n)
		syms[i] = map[string]any{
			"name":  n,
			"kind":  v.KindName(),
			"value": v.String(),
		}
	}
	return map[string]any{"id": id, "ok": true, "value": syms}
}

func (c *Core) handleTraces(id string, msg map[string]any) map[string]any {
	n := -1
	if raw, ok := msg["n"]; ok {
		f, ok := raw.(float64)
		if !ok || f < 0 {
			return errorResponse(id, "traces: 'n' must be a non-negative number")
		}
		n = int(f)
	}
	traces := c.traces.last(n)
	result := make([]any, len(traces))
	for i := range traces {
		result[i] = traces[i].ToMap()
	}
	return map[string]any{"id": id, "ok": true, "value": result}
}

func (c *Core) handleClear(id string) map[string]any {
	if err := c.interp.Reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	if c.journal != nil {
		if err := c.journal.Truncate(); err != nil {
			return errorResponse(id, err.Error())
		}
	}
	c.traces.clear()
	return map[string]any{"id": id, "ok": true, "value": "cleared"}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}

// --- Connection handling ---

func (c *Core) handleClientConnection(conn net.Conn) {
	defer conn.Close()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				c.log.Warn("read client message", "error", err)
			}
			return
		}

		resp := c.sendToActor(msg)
		if err := WriteMsg(conn, resp); err != nil {
			c.log.Warn("write client response", "error", err)
			return
		}
	}
}
