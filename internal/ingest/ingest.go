// Package ingest drains a transport stream source into memory so it can be
// scanned in a single pass, tracking byte and read counters along the way.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ReadBufferSize is the chunk size used when draining a reader.
// 1316 bytes = 7 MPEG-TS packets (188 * 7), the usual datagram payload.
const ReadBufferSize = 1316 * 10

var (
	// ErrEmptyInput is returned when a source delivers no bytes at all.
	ErrEmptyInput = errors.New("ingest: no input data")
	// ErrLimitReached is returned by Capture.Write once the byte limit is hit.
	ErrLimitReached = errors.New("ingest: capture limit reached")
)

// Stats captures source-level metrics for a finished or in-progress capture.
type Stats struct {
	Source        string        `json:"source"`
	BytesReceived int64         `json:"bytesReceived"`
	ReadCount     int64         `json:"readCount"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
}

// Capture accumulates the bytes of one input source. Write is meant for a
// single producer; Stats may be called concurrently.
type Capture struct {
	source    string
	startedAt time.Time
	limit     int64
	buf       bytes.Buffer

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	finishedAt    atomic.Int64
}

// NewCapture creates an empty capture for source. A limit of 0 or less means
// no limit.
func NewCapture(source string, limit int64) *Capture {
	return &Capture{
		source:    source,
		startedAt: time.Now(),
		limit:     limit,
	}
}

// Write appends p to the capture. When the limit is reached the data is
// truncated to the limit and ErrLimitReached is returned.
func (c *Capture) Write(p []byte) (int, error) {
	c.readCount.Add(1)
	if c.limit > 0 {
		room := c.limit - int64(c.buf.Len())
		if room <= 0 {
			return 0, ErrLimitReached
		}
		if int64(len(p)) > room {
			c.buf.Write(p[:room])
			c.bytesReceived.Add(room)
			return int(room), ErrLimitReached
		}
	}
	c.buf.Write(p)
	c.bytesReceived.Add(int64(len(p)))
	return len(p), nil
}

// Finish marks the capture complete. It returns ErrEmptyInput if nothing
// was written.
func (c *Capture) Finish() error {
	c.finishedAt.CompareAndSwap(0, time.Now().UnixNano())
	if c.buf.Len() == 0 {
		return fmt.Errorf("%s: %w", c.source, ErrEmptyInput)
	}
	return nil
}

// Bytes returns the captured data. It must not be called while a producer
// is still writing.
func (c *Capture) Bytes() []byte {
	return c.buf.Bytes()
}

// Stats returns a snapshot of the capture counters.
func (c *Capture) Stats() Stats {
	end := time.Now()
	if ns := c.finishedAt.Load(); ns != 0 {
		end = time.Unix(0, ns)
	}
	return Stats{
		Source:        c.source,
		BytesReceived: c.bytesReceived.Load(),
		ReadCount:     c.readCount.Load(),
		StartedAt:     c.startedAt,
		Duration:      end.Sub(c.startedAt),
	}
}

// Drain reads r to completion into a new Capture. Reading stops at EOF, when
// limit bytes have been captured, or when ctx is done; the context is only
// checked between reads.
func Drain(ctx context.Context, r io.Reader, source string, limit int64) (*Capture, error) {
	c := NewCapture(source, limit)
	buf := make([]byte, ReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := c.Write(buf[:n]); werr != nil {
				if errors.Is(werr, ErrLimitReached) {
					break
				}
				return nil, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading %s: %w", source, err)
		}
	}
	if err := c.Finish(); err != nil {
		return nil, err
	}
	return c, nil
}
