package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	lispy "github.com/rphilander/lispy/core"
	"github.com/rphilander/lispy/config"
)

// bridge forwards tool calls to the lispy core over one connection.
type bridge struct {
	conn io.ReadWriter
	mu   sync.Mutex
}

// send sends a request to the lispy core and returns the response.
func (b *bridge) send(req map[string]any) (map[string]any, error) {
	req["id"] = lispy.NextID()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := lispy.WriteMsg(b.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := lispy.ReadMsg(b.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a core response into an MCP tool result. Eval results
// whose kind is Error are flagged as tool errors.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	if v, isMap := resp["value"].(map[string]any); isMap {
		if kind, _ := v["kind"].(string); kind == "Error" {
			text, _ := v["text"].(string)
			return mcp.NewToolResultError(text), nil
		}
		if text, isText := v["text"].(string); isText {
			return mcp.NewToolResultText(text), nil
		}
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (b *bridge) forward(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := b.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func (b *bridge) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.forward(map[string]any{"op": "eval", "expr": expr})
}

func (b *bridge) handleSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{"op": "symbols"})
}

func (b *bridge) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := map[string]any{"op": "traces"}
	if n := request.GetInt("n", -1); n >= 0 {
		req["n"] = n
	}
	return b.forward(req)
}

func (b *bridge) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{"op": "clear"})
}

func newServer(b *bridge) *server.MCPServer {
	s := server.NewMCPServer(
		"lispy",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("lispy_eval",
			mcp.WithDescription("Evaluate lispy source. Top-level input needs no enclosing parentheses. Returns the printed result."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Source to evaluate, e.g. + 1 (* 2 3) or def {x} 10"),
			),
		),
		b.handleEval,
	)

	s.AddTool(
		mcp.NewTool("lispy_symbols",
			mcp.WithDescription("List every binding of the root environment with its kind and printed value."),
		),
		b.handleSymbols,
	)

	s.AddTool(
		mcp.NewTool("lispy_traces",
			mcp.WithDescription("Return recent evaluations with their results and errors, oldest first."),
			mcp.WithNumber("n",
				mcp.Description("Maximum number of traces to return; all when omitted"),
			),
		),
		b.handleTraces,
	)

	s.AddTool(
		mcp.NewTool("lispy_clear",
			mcp.WithDescription("Reset the environment to its startup state, truncate the journal and clear traces."),
		),
		b.handleClear,
	)

	return s
}

func main() {
	cfg, err := config.Load(os.Getenv("LISPY_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Logger()

	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		logger.Error("connect", "socket", cfg.Socket, "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected to lispy core", "socket", cfg.Socket)

	s := newServer(&bridge{conn: conn})
	if err := server.ServeStdio(s); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
