// Command lispy-cli sends one request to a running lispyd and prints the
// reply.
//
//	lispy-cli + 1 2
//	echo 'def {x} 10' | lispy-cli
//	lispy-cli -op traces -n 5
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	lispy "github.com/rphilander/lispy/core"
	"github.com/rphilander/lispy/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lispy-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("LISPY_CONFIG"), "path to YAML config file")
	sock := fs.String("sock", "", "core socket (overrides config)")
	op := fs.String("op", "eval", "operation: eval, symbols, traces, clear")
	n := fs.Int("n", -1, "traces: maximum number to return")
	raw := fs.Bool("json", false, "print the raw JSON reply")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *sock != "" {
		cfg.Socket = *sock
	}

	req, err := buildRequest(*op, fs.Args(), *n, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		fmt.Fprintf(stderr, "connect %s: %v\n", cfg.Socket, err)
		return 1
	}
	defer conn.Close()

	resp, err := roundTrip(conn, req)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *raw {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "format response: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
		if ok, _ := resp["ok"].(bool); !ok {
			return 1
		}
		return 0
	}
	return render(stdout, stderr, *op, resp)
}

// buildRequest assembles the wire request for op. An eval with no arguments
// reads its expression from stdin.
func buildRequest(op string, args []string, n int, stdin io.Reader) (map[string]any, error) {
	req := map[string]any{"id": lispy.NextID(), "op": op}
	switch op {
	case "eval":
		expr := strings.Join(args, " ")
		if expr == "" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			expr = strings.TrimSpace(string(data))
		}
		if expr == "" {
			return nil, errors.New("eval: no expression given")
		}
		req["expr"] = expr
	case "traces":
		if n >= 0 {
			req["n"] = n
		}
	case "symbols", "clear":
	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
	if op != "eval" && len(args) > 0 {
		return nil, fmt.Errorf("%s takes no arguments", op)
	}
	return req, nil
}

func roundTrip(rw io.ReadWriter, req map[string]any) (map[string]any, error) {
	if err := lispy.WriteMsg(rw, req); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	resp, err := lispy.ReadMsg(rw)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	return resp, nil
}

// render prints a reply for humans and returns the exit status. Language
// errors from eval exit 1 like transport failures do.
func render(stdout, stderr io.Writer, op string, resp map[string]any) int {
	if ok, _ := resp["ok"].(bool); !ok {
		msg, _ := resp["error"].(string)
		fmt.Fprintln(stderr, "error:", msg)
		return 1
	}

	switch op {
	case "eval":
		v, _ := resp["value"].(map[string]any)
		text, _ := v["text"].(string)
		if kind, _ := v["kind"].(string); kind == "Error" {
			fmt.Fprintln(stderr, text)
			return 1
		}
		fmt.Fprintln(stdout, text)
	case "symbols":
		syms, _ := resp["value"].([]any)
		for _, s := range syms {
			m, _ := s.(map[string]any)
			fmt.Fprintf(stdout, "%-10s %-14s %v\n", m["name"], m["kind"], m["value"])
		}
	case "traces":
		traces, _ := resp["value"].([]any)
		for _, tr := range traces {
			m, _ := tr.(map[string]any)
			out := m["result"]
			if e, ok := m["error"].(string); ok && e != "" {
				out = "error: " + e
			}
			fmt.Fprintf(stdout, "%v  %v => %v\n", m["timestamp"], m["entry"], out)
		}
	default:
		fmt.Fprintln(stdout, resp["value"])
	}
	return 0
}
