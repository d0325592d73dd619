package mpegts

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoSync is wrapped by every FramingError.
var ErrNoSync = errors.New("mpegts: no sync byte")

// FramingError reports a packet that did not start with the sync byte.
// Packet is the number of packets accepted before the failure and Offset is
// the number of bytes read from the stream up to that point.
type FramingError struct {
	Packet int
	Offset int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("No sync byte present in packet %d, offset %d", e.Packet, e.Offset)
}

func (e *FramingError) Unwrap() error {
	return ErrNoSync
}

// Scanner validates the framing of a buffered transport stream. A Scanner
// holds no per-stream state and may be reused.
type Scanner struct {
	log *slog.Logger
}

// ScannerOpt configures a Scanner.
type ScannerOpt func(*Scanner)

// ScannerOptLogger sets the logger used for resynchronization notices.
func ScannerOptLogger(log *slog.Logger) ScannerOpt {
	return func(s *Scanner) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScanner creates a Scanner. Without ScannerOptLogger, slog.Default() is used.
func NewScanner(opts ...ScannerOpt) *Scanner {
	s := &Scanner{log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "mpegts-scanner")
	return s
}

// Scan validates data and returns one line per packet: "0x<pid>", or
// "<index>: 0x<pid>" when verbose is set.
func Scan(data []byte, verbose bool, opts ...ScannerOpt) ([]string, error) {
	r, err := NewScanner(opts...).Scan(data, verbose)
	if err != nil {
		return nil, err
	}
	return r.Lines, nil
}

// Scan walks data in 188-byte windows. A short final window ends the scan
// successfully. If the very first window is misaligned, the scan restarts at
// the first sync byte inside it; any later misalignment is a FramingError.
func (s *Scanner) Scan(data []byte, verbose bool) (*Report, error) {
	var (
		cursor     int
		totalBytes int
		r          Report
	)

	for len(data)-cursor >= packetSize {
		window := data[cursor : cursor+packetSize]
		hdr := parseHeader(window[:headerSize])

		switch {
		case hdr.Valid():
			r.Lines = append(r.Lines, formatLine(r.Packets, hdr.PID, verbose))
			r.Packets++
			cursor += packetSize
		case r.Packets == 0:
			if verbose {
				s.log.Info("attempting to correct for incomplete first packet", "offset", cursor)
			}
			k := bytes.IndexByte(window, syncByte)
			if k < 0 {
				return nil, &FramingError{Packet: r.Packets, Offset: totalBytes}
			}
			s.log.Debug("resynchronized", "skipped", k, "offset", cursor+k)
			r.Resynced += k
			cursor += k
		default:
			return nil, &FramingError{Packet: r.Packets, Offset: totalBytes}
		}
		totalBytes += packetSize
	}

	r.Trailing = len(data) - cursor
	return &r, nil
}

func formatLine(index int, pid uint16, verbose bool) string {
	if verbose {
		return fmt.Sprintf("%d: 0x%x", index, pid)
	}
	return fmt.Sprintf("0x%x", pid)
}
