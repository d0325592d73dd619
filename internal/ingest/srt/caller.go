package srt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/tsframe/internal/ingest"
)

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

const (
	defaultDialTimeout = 10 * time.Second
	defaultStreamID    = "live/tsframe"
)

// PullRequest describes a remote SRT source to capture from.
type PullRequest struct {
	Address  string `json:"address"`
	StreamID string `json:"streamId,omitempty"`
	// Duration bounds the capture. Zero means until the sender closes.
	Duration time.Duration `json:"duration,omitempty"`
	// MaxBytes bounds the capture size. Zero means unlimited.
	MaxBytes int64 `json:"maxBytes,omitempty"`
}

type dialFunc func(address, streamID string) (io.ReadCloser, error)

// Caller dials remote SRT listeners and drains them into memory.
type Caller struct {
	log         *slog.Logger
	dial        dialFunc
	dialTimeout time.Duration
}

// NewCaller creates a Caller. If log is nil, slog.Default() is used.
func NewCaller(log *slog.Logger) *Caller {
	if log == nil {
		log = slog.Default()
	}
	return &Caller{
		log:         log.With("component", "srt-caller"),
		dial:        dialSRT,
		dialTimeout: defaultDialTimeout,
	}
}

// srtConn adapts *srtgo.Conn to io.ReadCloser.
type srtConn struct {
	conn *srtgo.Conn
}

func (c srtConn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

func (c srtConn) Close() error {
	c.conn.Close()
	return nil
}

func dialSRT(address, streamID string) (io.ReadCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	cfg.StreamID = streamID

	conn, err := srtgo.Dial(address, cfg)
	if err != nil {
		return nil, err
	}
	return srtConn{conn: conn}, nil
}

// Pull dials req.Address and reads until the sender closes the connection,
// req.Duration elapses or req.MaxBytes have arrived. Cancelling ctx aborts
// the capture and returns ctx.Err().
func (c *Caller) Pull(ctx context.Context, req PullRequest) (*ingest.Capture, error) {
	if req.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	streamID := req.StreamID
	if streamID == "" {
		streamID = defaultStreamID
	}

	c.log.Info("dialing", "address", req.Address, "stream_id", streamID)
	conn, err := c.dialWithTimeout(ctx, req.Address, streamID)
	if err != nil {
		return nil, err
	}
	c.log.Info("connected", "address", req.Address)

	return drainConn(ctx, c.log, conn, "srt://"+req.Address, req.Duration, req.MaxBytes)
}

func (c *Caller) dialWithTimeout(ctx context.Context, address, streamID string) (io.ReadCloser, error) {
	type dialResult struct {
		conn io.ReadCloser
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := c.dial(address, streamID)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(c.dialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("SRT dial failed: %w", res.err)
		}
		return res.conn, nil
	case <-timer.C:
		// Drain the dial result in the background and close any leaked connection.
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, fmt.Errorf("SRT dial timed out after %s", c.dialTimeout)
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
