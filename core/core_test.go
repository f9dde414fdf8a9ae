package lispy

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startCore(t *testing.T, opts Options) (*Core, string) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "lispy.sock")
	opts.SockPath = sock
	opts.Logger = discardLogger()
	c, err := NewCore(opts)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	go c.Run()
	t.Cleanup(c.Shutdown)
	return c, sock
}

func dial(t *testing.T, sock string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, msg map[string]any) map[string]any {
	t.Helper()
	if _, ok := msg["id"]; !ok {
		msg["id"] = NextID()
	}
	if err := WriteMsg(conn, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := ReadMsg(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp["id"] != msg["id"] {
		t.Fatalf("response id %v, want %v", resp["id"], msg["id"])
	}
	return resp
}

func evalValue(t *testing.T, conn net.Conn, expr string) map[string]any {
	t.Helper()
	resp := roundTrip(t, conn, map[string]any{"op": "eval", "expr": expr})
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("eval %q failed: %v", expr, resp["error"])
	}
	return resp["value"].(map[string]any)
}

func TestCoreManual(t *testing.T) {
	_, sock := startCore(t, Options{})
	conn := dial(t, sock)

	resp := roundTrip(t, conn, map[string]any{})
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("manual failed: %v", resp)
	}
	manual := resp["value"].(map[string]any)
	if manual["name"] != "lispy-core" {
		t.Fatalf("name = %v", manual["name"])
	}
	ops := manual["ops"].(map[string]any)
	for _, op := range []string{"eval", "symbols", "traces", "clear"} {
		if _, ok := ops[op]; !ok {
			t.Errorf("manual missing op %s", op)
		}
	}
}

func TestCoreEval(t *testing.T) {
	_, sock := startCore(t, Options{})
	conn := dial(t, sock)

	v := evalValue(t, conn, "list 1 (+ 1 1) {x}")
	if v["text"] != "{1 2 {x}}" || v["kind"] != "Q-expression" {
		t.Fatalf("unexpected value: %v", v)
	}
	data := v["data"].([]any)
	// JSON numbers decode as float64.
	if len(data) != 3 || data[0] != float64(1) || data[1] != float64(2) {
		t.Fatalf("data = %v", data)
	}

	v = evalValue(t, conn, "/ 1 0")
	if v["kind"] != "Error" || v["text"] != "Error: Division by zero" {
		t.Fatalf("unexpected value: %v", v)
	}
}

func TestCoreEvalStateAcrossConnections(t *testing.T) {
	_, sock := startCore(t, Options{})
	a := dial(t, sock)
	b := dial(t, sock)

	evalValue(t, a, "def {shared} 41")
	if v := evalValue(t, b, "+ shared 1"); v["text"] != "42" {
		t.Fatalf("second connection saw %v", v["text"])
	}
}

func TestCoreEvalErrors(t *testing.T) {
	_, sock := startCore(t, Options{})
	conn := dial(t, sock)

	tests := []map[string]any{
		{"op": "eval"},
		{"op": "eval", "expr": "(+ 1"},
		{"op": "eval", "expr": ")"},
		{"op": "bogus"},
	}
	for _, msg := range tests {
		resp := roundTrip(t, conn, msg)
		if ok, _ := resp["ok"].(bool); ok {
			t.Errorf("%v: expected failure", msg)
		}
		if s, _ := resp["error"].(string); s == "" {
			t.Errorf("%v: missing error message", msg)
		}
	}
}

func TestCoreSymbols(t *testing.T) {
	_, sock := startCore(t, Options{})
	conn := dial(t, sock)
	evalValue(t, conn, "def {answer} 42")

	resp := roundTrip(t, conn, map[string]any{"op": "symbols"})
	syms := resp["value"].([]any)
	found := false
	for _, s := range syms {
		m := s.(map[string]any)
		if m["name"] == "answer" {
			found = true
			if m["value"] != "42" || m["kind"] != "Number" {
				t.Fatalf("answer = %v", m)
			}
		}
	}
	if !found {
		t.Fatal("answer not listed")
	}
}

func TestCoreTraces(t *testing.T) {
	_, sock := startCore(t, Options{MaxTraces: 2})
	conn := dial(t, sock)

	evalValue(t, conn, "+ 1 1")
	evalValue(t, conn, "head {}")
	roundTrip(t, conn, map[string]any{"op": "eval", "expr": "(oops"})

	resp := roundTrip(t, conn, map[string]any{"op": "traces"})
	traces := resp["value"].([]any)
	if len(traces) != 2 {
		t.Fatalf("expected 2 traces (capped), got %d", len(traces))
	}
	first := traces[0].(map[string]any)
	if first["entry"] != "head {}" || first["kind"] != "Error" {
		t.Fatalf("first trace = %v", first)
	}
	if first["error"] != "Function 'head' passed empty {} at argument 0." {
		t.Fatalf("first trace error = %v", first["error"])
	}
	last := traces[1].(map[string]any)
	if last["entry"] != "(oops" || last["error"] == nil {
		t.Fatalf("last trace = %v", last)
	}

	resp = roundTrip(t, conn, map[string]any{"op": "traces", "n": 1})
	if n := len(resp["value"].([]any)); n != 1 {
		t.Fatalf("traces n=1 returned %d", n)
	}

	resp = roundTrip(t, conn, map[string]any{"op": "traces", "n": "x"})
	if ok, _ := resp["ok"].(bool); ok {
		t.Fatal("expected failure for non-numeric n")
	}
}

func TestCoreJournal(t *testing.T) {
	j := &memJournal{entries: []string{"def {restored} 7"}}
	_, sock := startCore(t, Options{Journal: j})
	conn := dial(t, sock)

	if v := evalValue(t, conn, "restored"); v["text"] != "7" {
		t.Fatalf("journal not replayed: %v", v)
	}

	evalValue(t, conn, "def {n} 1")
	evalValue(t, conn, "+ n 1")
	evalValue(t, conn, "def {bad}")
	if entries, _ := j.snapshot(); len(entries) != 2 || entries[1] != "def {n} 1" {
		t.Fatalf("journal entries = %q", entries)
	}

	resp := roundTrip(t, conn, map[string]any{"op": "clear"})
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("clear failed: %v", resp)
	}
	if entries, truncated := j.snapshot(); truncated != 1 || len(entries) != 0 {
		t.Fatalf("journal not truncated: %q", entries)
	}
	if v := evalValue(t, conn, "n"); v["text"] != "Error: Unbound symbol 'n'" {
		t.Fatalf("n after clear = %v", v["text"])
	}
	// The eval of n above is the only trace since clear.
	resp = roundTrip(t, conn, map[string]any{"op": "traces"})
	if n := len(resp["value"].([]any)); n != 1 {
		t.Fatalf("traces after clear = %d", n)
	}
}

func TestCorePreludeAndLoad(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.lspy")
	writeFile(t, lib, "(fun {triple x} {* 3 x})")

	_, sock := startCore(t, Options{Prelude: true, Load: []string{lib}})
	conn := dial(t, sock)
	if v := evalValue(t, conn, "triple (sum {1 2})"); v["text"] != "9" {
		t.Fatalf("triple = %v", v["text"])
	}
}

func TestCoreLoadMissingFile(t *testing.T) {
	_, err := NewCore(Options{
		SockPath: filepath.Join(t.TempDir(), "s.sock"),
		Load:     []string{filepath.Join(t.TempDir(), "nope.lspy")},
		Logger:   discardLogger(),
	})
	if err == nil {
		t.Fatal("expected error for missing load file")
	}
}

func TestCoreShutdown(t *testing.T) {
	c, sock := startCore(t, Options{})
	conn := dial(t, sock)
	evalValue(t, conn, "1")

	c.Shutdown()
	c.Shutdown()
	if _, err := net.Dial("unix", sock); err == nil {
		t.Fatal("dial succeeded after shutdown")
	}
}
