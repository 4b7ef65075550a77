// Command zoocore serves the zoo enclosure and animal API.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Environ(), os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "zoocore: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, environ []string, stdout, stderr io.Writer) error {
	cfg, err := ParseConfig(environ)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, stdout)
	if err != nil {
		return err
	}
	var traceOut io.Writer
	if cfg.TraceStderr {
		traceOut = stderr
	}
	a, err := buildApp(ctx, cfg, logger, traceOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close storage", "error", err)
		}
	}()
	logger.Info("zoocore starting",
		"storage", string(cfg.Storage.Driver),
		"blob", string(cfg.Blob.Driver),
		"seed_demo", cfg.SeedDemo,
	)
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	return a.serve(ctx, ln, cfg.ShutdownTimeout)
}
