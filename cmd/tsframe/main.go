// Tsframe validates MPEG-TS packet framing.
//
// It reads a complete transport stream from stdin, a file or a remote SRT
// listener, checks that every 188-byte packet starts with the 0x47 sync byte
// and prints the PID of each packet. The first framing error is printed with
// the packet index and byte offset, and the process exits non-zero.
//
// Usage:
//
//	cat capture.ts | tsframe [-v]
//	tsframe [-v] capture.ts
//	tsframe [-v] --srt host:6000 --duration 10s
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	c := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		isTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
	err := c.rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
