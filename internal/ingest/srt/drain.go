package srt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsframe/internal/ingest"
)

// drainConn reads conn into a new capture until EOF, maxBytes, duration or
// ctx cancellation. conn is always closed on return. Cancelling ctx is an
// error; the duration expiring is not.
func drainConn(ctx context.Context, log *slog.Logger, conn io.ReadCloser, source string, duration time.Duration, maxBytes int64) (*ingest.Capture, error) {
	pullCtx, cancel := context.WithCancel(ctx)
	if duration > 0 {
		cancel()
		pullCtx, cancel = context.WithTimeout(ctx, duration)
	}
	defer cancel()

	capture := ingest.NewCapture(source, maxBytes)
	g, gctx := errgroup.WithContext(pullCtx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		buf := make([]byte, ingest.ReadBufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if _, werr := capture.Write(buf[:n]); werr != nil {
					if errors.Is(werr, ingest.ErrLimitReached) {
						log.Debug("capture limit reached", "bytes", maxBytes)
						return nil
					}
					return werr
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) || gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("SRT read: %w", err)
			}
		}
	})

	// Closing the connection is the only way to unblock a pending Read.
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-done:
		}
		return conn.Close()
	})

	err := g.Wait()
	stats := capture.Stats()
	log.Info("connection closed", "source", source,
		"bytes", stats.BytesReceived, "reads", stats.ReadCount,
		"duration", stats.Duration)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := capture.Finish(); err != nil {
		return nil, err
	}
	return capture, nil
}
