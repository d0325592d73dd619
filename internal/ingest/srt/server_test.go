package srt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStreamKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		streamID string
		want     string
	}{
		{name: "simple key", streamID: "camera1", want: "camera1"},
		{name: "leading slash", streamID: "/camera1", want: "camera1"},
		{name: "live prefix", streamID: "live/camera1", want: "camera1"},
		{name: "slash and live prefix", streamID: "/live/camera1", want: "camera1"},
		{name: "empty returns default", streamID: "", want: "default"},
		{name: "just live/ returns default", streamID: "live/", want: "default"},
		{name: "nested path preserved", streamID: "studio/camera1", want: "studio/camera1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, extractStreamKey(tc.streamID))
		})
	}
}

// fakeListener hands out queued publishers and fails Accept once closed.
type fakeListener struct {
	pubs   chan publisher
	closed chan struct{}
	once   sync.Once
}

func newFakeListener(pubs ...publisher) *fakeListener {
	f := &fakeListener{
		pubs:   make(chan publisher, len(pubs)),
		closed: make(chan struct{}),
	}
	for _, p := range pubs {
		f.pubs <- p
	}
	return f
}

func (f *fakeListener) listener() *listener {
	return &listener{
		accept: func() (publisher, error) {
			select {
			case p := <-f.pubs:
				return p, nil
			case <-f.closed:
				return publisher{}, errors.New("listener closed")
			}
		},
		close: func() { f.once.Do(func() { close(f.closed) }) },
	}
}

func newTestServer(f *fakeListener) *Server {
	s := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.listen = func(string) (*listener, error) { return f.listener(), nil }
	return s
}

func feed(data []byte) publisher {
	pr, pw := io.Pipe()
	go func() {
		pw.Write(data)
		pw.Close()
	}()
	return publisher{conn: pr, streamID: "live/cam1", remote: "10.0.0.2:40000"}
}

func TestServerCapture(t *testing.T) {
	t.Parallel()

	f := newFakeListener(feed([]byte{0x47, 0x01, 0x00}))
	capture, err := newTestServer(f).Capture(context.Background(), ListenRequest{Addr: ":6000"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x47, 0x01, 0x00}, capture.Bytes())
	assert.Equal(t, "srt://10.0.0.2:40000", capture.Stats().Source)

	select {
	case <-f.closed:
	default:
		t.Fatal("listener not closed after capture")
	}
}

func TestServerCaptureFiltersStreamKey(t *testing.T) {
	t.Parallel()

	wrongR, wrongW := io.Pipe()
	wrong := publisher{conn: wrongR, streamID: "live/other", remote: "10.0.0.3:1"}
	right := feed([]byte{0x47})
	right.streamID = "/live/cam1"

	f := newFakeListener(wrong, right)
	capture, err := newTestServer(f).Capture(context.Background(), ListenRequest{
		Addr:      ":6000",
		StreamKey: "cam1",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x47}, capture.Bytes())

	_, err = wrongW.Write([]byte{0x00})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestServerCaptureCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := newTestServer(newFakeListener()).Capture(ctx, ListenRequest{Addr: ":6000"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServerCaptureListenError(t *testing.T) {
	t.Parallel()

	s := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.listen = func(string) (*listener, error) { return nil, errors.New("address in use") }
	_, err := s.Capture(context.Background(), ListenRequest{Addr: ":6000"})
	require.EqualError(t, err, "SRT listen on :6000: address in use")
}

func TestServerCaptureRequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := newTestServer(newFakeListener()).Capture(context.Background(), ListenRequest{})
	require.Error(t, err)
}
