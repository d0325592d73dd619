package mpegts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// makePacket builds a 188-byte packet on pid. The payload is filled with
// 0xFF so no stray sync bytes appear inside it.
func makePacket(pid uint16, cc uint8, pusi bool) []byte {
	buf := make([]byte, packetSize)
	buf[0] = syncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F) // payload only
	if pusi {
		buf[1] |= 0x40
	}
	for i := 4; i < packetSize; i++ {
		buf[i] = 0xFF
	}
	return buf
}

// makeStream concatenates n packets cycling through pids.
func makeStream(n int, pids ...uint16) []byte {
	if len(pids) == 0 {
		pids = []uint16{0x100}
	}
	out := make([]byte, 0, n*packetSize)
	for i := 0; i < n; i++ {
		out = append(out, makePacket(pids[i%len(pids)], uint8(i), i%len(pids) == 0)...)
	}
	return out
}

func TestParseHeader_MasksFlagBits(t *testing.T) {
	t.Parallel()
	h := parseHeader([]byte{0x47, 0xE1, 0x00})
	assert.Equal(t, uint8(0x47), h.Sync)
	assert.Equal(t, uint16(0x100), h.PID)
	assert.True(t, h.Valid())
}

func TestParseHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    []byte
		pid   uint16
		valid bool
	}{
		{"PAT", []byte{0x47, 0x40, 0x00}, 0x0000, true},
		{"null packet", []byte{0x47, 0x1F, 0xFF}, 0x1FFF, true},
		{"all flags set", []byte{0x47, 0xFF, 0xFF}, 0x1FFF, true},
		{"TEI only", []byte{0x47, 0x80, 0x11}, 0x0011, true},
		{"bad sync", []byte{0x46, 0x01, 0x00}, 0x0100, false},
		{"zero", []byte{0x00, 0x00, 0x00}, 0x0000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := parseHeader(tt.in)
			assert.Equal(t, tt.pid, h.PID)
			assert.Equal(t, tt.valid, h.Valid())
		})
	}
}

func TestParseHeader_IgnoresTrailingBytes(t *testing.T) {
	t.Parallel()
	pkt := makePacket(0x1E1, 3, true)
	h := parseHeader(pkt)
	assert.Equal(t, uint16(0x1E1), h.PID)
	assert.True(t, h.Valid())
}

func TestParseHeader_ShortInputPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { parseHeader([]byte{0x47, 0x01}) })
}
