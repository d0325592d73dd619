package srt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/tsframe/internal/ingest"
)

// ListenRequest describes a listener-mode capture: wait on Addr for a
// publisher and capture its stream.
type ListenRequest struct {
	Addr string `json:"addr"`
	// StreamKey, if set, rejects publishers whose stream key differs.
	StreamKey string        `json:"streamKey,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	MaxBytes  int64         `json:"maxBytes,omitempty"`
}

type publisher struct {
	conn     io.ReadCloser
	streamID string
	remote   string
}

type listener struct {
	accept func() (publisher, error)
	close  func()
}

type listenFunc func(addr string) (*listener, error)

// Server accepts a single SRT publish connection and captures it.
type Server struct {
	log    *slog.Logger
	listen listenFunc
}

// NewServer creates a Server. If log is nil, slog.Default() is used.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:    log.With("component", "srt-server"),
		listen: listenSRT,
	}
}

func listenSRT(addr string) (*listener, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	l, err := srtgo.Listen(addr, cfg)
	if err != nil {
		return nil, err
	}
	l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
		if req.StreamID == "" {
			return srtgo.RejPeer
		}
		return 0
	})

	return &listener{
		accept: func() (publisher, error) {
			conn, err := l.Accept()
			if err != nil {
				return publisher{}, err
			}
			return publisher{
				conn:     srtConn{conn: conn},
				streamID: conn.StreamID(),
				remote:   conn.RemoteAddr().String(),
			}, nil
		},
		close: func() { l.Close() },
	}, nil
}

// Capture listens on req.Addr, waits for the first matching publisher and
// drains its stream. It blocks until the capture ends or ctx is cancelled.
func (s *Server) Capture(ctx context.Context, req ListenRequest) (*ingest.Capture, error) {
	if req.Addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	l, err := s.listen(req.Addr)
	if err != nil {
		return nil, fmt.Errorf("SRT listen on %s: %w", req.Addr, err)
	}
	s.log.Info("listening", "addr", req.Addr)

	stop := context.AfterFunc(ctx, l.close)
	defer func() {
		if stop() {
			l.close()
		}
	}()

	for {
		p, err := l.accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		streamKey := extractStreamKey(p.streamID)
		if req.StreamKey != "" && streamKey != extractStreamKey(req.StreamKey) {
			s.log.Warn("rejecting publisher", "stream_key", streamKey, "remote", p.remote)
			p.conn.Close()
			continue
		}
		s.log.Info("publish", "stream_key", streamKey, "remote", p.remote)

		return drainConn(ctx, s.log, p.conn, "srt://"+p.remote, req.Duration, req.MaxBytes)
	}
}

func extractStreamKey(streamID string) string {
	streamID = strings.TrimPrefix(streamID, "/")
	streamID = strings.TrimPrefix(streamID, "live/")
	if streamID == "" {
		return "default"
	}
	return streamID
}
