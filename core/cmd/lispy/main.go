package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	lispy "github.com/rphilander/lispy/core"
	"github.com/rphilander/lispy/config"
	"github.com/rphilander/lispy/journal"
)

const (
	banner     = "Lispy Version 1.0.0\nPress Ctrl+c or type :quit to Exit\n"
	promptCont = "   ... "
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath(), "path to YAML config file")
	noPrelude := flag.Bool("no-prelude", false, "do not load the standard prelude")
	journalPath := flag.String("journal", "", "SQLite journal path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *journalPath != "" {
		cfg.Journal = *journalPath
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	in := lispy.NewInterpreter()
	if cfg.Prelude && !*noPrelude {
		if err := in.LoadPrelude(); err != nil {
			logger.Error("prelude", "error", err)
			return 1
		}
	}
	for _, path := range cfg.Load {
		if err := runFile(in, path); err != nil {
			logger.Error("load", "error", err)
			return 1
		}
	}

	if flag.NArg() > 0 {
		for _, path := range flag.Args() {
			if err := runFile(in, path); err != nil {
				logger.Error("run", "error", err)
				return 1
			}
		}
		return 0
	}

	var j lispy.Journal
	if cfg.Journal != "" {
		jr, err := journal.Open(cfg.Journal)
		if err != nil {
			logger.Error("journal", "error", err)
			return 1
		}
		defer jr.Close()
		n, err := in.Replay(jr, logger)
		if err != nil {
			logger.Error("journal", "error", err)
			return 1
		}
		logger.Debug("journal replayed", "path", cfg.Journal, "entries", n, "session", jr.Session())
		j = jr
	}

	return repl(in, cfg, j)
}

// runFile evaluates a file and prints any Error values it produced.
func runFile(in *lispy.Interpreter, path string) error {
	results, err := in.LoadFile(path)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Kind == lispy.ValErr {
			fmt.Println(r)
		}
	}
	return nil
}

func repl(in *lispy.Interpreter, cfg config.Config, j lispy.Journal) int {
	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(cfg.HistoryFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	for {
		src, ok := readExpr(ln, cfg.Prompt, promptCont)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := command(in, j, trimmed); quit {
				return 0
			}
			continue
		}

		val, err := in.EvalJournaled(src, j)
		if val == nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if err != nil {
			slog.Error("journal", "error", err)
		}
		fmt.Println(val)
	}
}

// command runs a REPL meta command and reports whether to exit.
func command(in *lispy.Interpreter, j lispy.Journal, cmd string) bool {
	switch strings.ToLower(cmd) {
	case ":q", ":quit":
		return true
	case ":dir":
		env := in.Env()
		for _, name := range env.Names() {
			fmt.Printf("%-10s %s\n", name, env.Lookup(name))
		}
	case ":reset":
		if err := in.Reset(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if j != nil {
			if err := j.Truncate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		fmt.Println("environment reset")
	default:
		fmt.Println("unknown command. Commands: :dir :reset :quit")
	}
	return false
}

// readExpr reads lines until the brackets balance. ok is false at EOF.
func readExpr(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		_, perr := lispy.Parse(src)
		var se *lispy.SyntaxError
		if errors.As(perr, &se) && se.Incomplete {
			continue
		}
		return src, true
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("LISPY_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lispy", "config.yaml")
}
