// Package mpegts implements MPEG-TS packet framing validation. It slices an
// in-memory transport stream into 188-byte packets, checks the sync byte of
// each one and extracts its PID.
package mpegts

// Header is the sync byte and PID taken from the first three bytes of a
// candidate transport stream packet.
type Header struct {
	Sync uint8
	PID  uint16
}

// Valid reports whether the header starts with the MPEG-TS sync byte.
func (h Header) Valid() bool {
	return h.Sync == syncByte
}

// Report is the result of a successful scan.
type Report struct {
	// Lines holds one entry per accepted packet, in stream order.
	Lines []string
	// Packets is the number of accepted packets.
	Packets int
	// Resynced is the number of leading bytes dropped while aligning the
	// first packet.
	Resynced int
	// Trailing is the number of bytes left over after the last full packet.
	Trailing int
}
