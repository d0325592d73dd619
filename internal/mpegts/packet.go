package mpegts

const (
	packetSize = 188
	syncByte   = 0x47
	headerSize = 3
)

// parseHeader reads the sync byte and the 13-bit PID from b. The top three
// bits of b[1] are the TEI, PUSI and priority flags.
func parseHeader(b []byte) Header {
	_ = b[headerSize-1]
	return Header{
		Sync: b[0],
		PID:  uint16(b[1]&0x1F)<<8 | uint16(b[2]),
	}
}
