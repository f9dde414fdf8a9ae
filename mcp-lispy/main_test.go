package main

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	lispy "github.com/rphilander/lispy/core"
)

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(r.Content))
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, not text", r.Content[0])
	}
	return tc.Text
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name    string
		resp    map[string]any
		isError bool
		text    string
	}{
		{"core failure", map[string]any{"ok": false, "error": "1:3: unexpected ')'"}, true, "1:3: unexpected ')'"},
		{"failure without message", map[string]any{"ok": false}, true, "unknown error"},
		{"language error", map[string]any{"ok": true, "value": map[string]any{"kind": "Error", "text": "Error: Division by zero"}}, true, "Error: Division by zero"},
		{"value", map[string]any{"ok": true, "value": map[string]any{"kind": "Number", "text": "42"}}, false, "42"},
	}
	for _, tt := range tests {
		r, err := formatResult(tt.resp)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if r.IsError != tt.isError {
			t.Errorf("%s: IsError = %v", tt.name, r.IsError)
		}
		if got := resultText(t, r); got != tt.text {
			t.Errorf("%s: text = %q, want %q", tt.name, got, tt.text)
		}
	}
}

func TestFormatResultJSON(t *testing.T) {
	r, err := formatResult(map[string]any{"ok": true, "value": []any{map[string]any{"name": "x"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, r); !strings.Contains(got, `"name": "x"`) {
		t.Fatalf("text = %q", got)
	}
}

// fakeCore answers requests on conn until it closes, recording each request.
func fakeCore(conn net.Conn, seen chan<- map[string]any) {
	defer conn.Close()
	for {
		req, err := lispy.ReadMsg(conn)
		if err != nil {
			return
		}
		seen <- req
		resp := map[string]any{"id": req["id"], "ok": true}
		switch req["op"] {
		case "eval":
			if req["expr"] == "/ 1 0" {
				resp["value"] = map[string]any{"kind": "Error", "text": "Error: Division by zero"}
			} else {
				resp["value"] = map[string]any{"kind": "Number", "text": "3"}
			}
		case "traces":
			resp["value"] = []any{}
		default:
			resp["value"] = map[string]any{"text": "ok"}
		}
		if err := lispy.WriteMsg(conn, resp); err != nil {
			return
		}
	}
}

func newTestBridge(t *testing.T) (*bridge, <-chan map[string]any) {
	t.Helper()
	client, srv := net.Pipe()
	seen := make(chan map[string]any, 8)
	go fakeCore(srv, seen)
	t.Cleanup(func() { client.Close() })
	return &bridge{conn: client}, seen
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func TestBridgeEval(t *testing.T) {
	b, seen := newTestBridge(t)
	ctx := context.Background()

	r, err := b.handleEval(ctx, callRequest("lispy_eval", map[string]any{"expr": "+ 1 2"}))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError || resultText(t, r) != "3" {
		t.Fatalf("eval result = %+v", r)
	}
	req := <-seen
	if req["op"] != "eval" || req["expr"] != "+ 1 2" {
		t.Fatalf("core saw %v", req)
	}
	if id, _ := req["id"].(string); !strings.HasPrefix(id, "r") {
		t.Fatalf("request id = %v", req["id"])
	}

	r, _ = b.handleEval(ctx, callRequest("lispy_eval", map[string]any{"expr": "/ 1 0"}))
	if !r.IsError {
		t.Fatal("language error should be a tool error")
	}
	<-seen

	r, _ = b.handleEval(ctx, callRequest("lispy_eval", map[string]any{}))
	if !r.IsError {
		t.Fatal("missing expr should be a tool error")
	}
}

func TestBridgeTraces(t *testing.T) {
	b, seen := newTestBridge(t)
	ctx := context.Background()

	if _, err := b.handleTraces(ctx, callRequest("lispy_traces", map[string]any{"n": 5})); err != nil {
		t.Fatal(err)
	}
	req := <-seen
	// n crosses the wire as a JSON number.
	if req["op"] != "traces" || req["n"] != float64(5) {
		t.Fatalf("core saw %v", req)
	}

	b.handleTraces(ctx, callRequest("lispy_traces", nil))
	if req := <-seen; req["n"] != nil {
		t.Fatalf("n should be omitted, got %v", req["n"])
	}
}

func TestBridgeSymbolsAndClear(t *testing.T) {
	b, seen := newTestBridge(t)
	ctx := context.Background()

	b.handleSymbols(ctx, callRequest("lispy_symbols", nil))
	if req := <-seen; req["op"] != "symbols" {
		t.Fatalf("core saw %v", req)
	}
	r, _ := b.handleClear(ctx, callRequest("lispy_clear", nil))
	if req := <-seen; req["op"] != "clear" {
		t.Fatalf("core saw %v", req)
	}
	if r.IsError || resultText(t, r) != "ok" {
		t.Fatalf("clear result = %+v", r)
	}
}

func TestBridgeClosedConnection(t *testing.T) {
	client, srv := net.Pipe()
	srv.Close()
	b := &bridge{conn: client}
	r, err := b.handleSymbols(context.Background(), callRequest("lispy_symbols", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsError {
		t.Fatal("expected a tool error when the core is gone")
	}
}
