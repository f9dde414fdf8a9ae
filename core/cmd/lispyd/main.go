package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	lispy "github.com/rphilander/lispy/core"
	"github.com/rphilander/lispy/config"
	"github.com/rphilander/lispy/journal"
)

func main() {
	configPath := flag.String("config", os.Getenv("LISPY_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Logger()

	opts := lispy.Options{
		SockPath:  cfg.Socket,
		MaxTraces: cfg.MaxTraces,
		Prelude:   cfg.Prelude,
		Load:      cfg.Load,
		Logger:    logger,
	}
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			logger.Error("failed to open journal", "error", err)
			os.Exit(1)
		}
		defer j.Close()
		opts.Journal = j
		logger.Info("journal opened", "path", cfg.Journal, "session", j.Session())
	}

	core, err := lispy.NewCore(opts)
	if err != nil {
		logger.Error("failed to start core", "error", err)
		os.Exit(1)
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutting down...")
		core.Shutdown()
	}()

	logger.Info("lispy core listening", "socket", cfg.Socket, "journal", cfg.Journal)
	core.Run()
	os.Remove(cfg.Socket)
}
