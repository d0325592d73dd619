// Package srt captures MPEG-TS from a remote SRT (Secure Reliable Transport)
// listener in caller mode. The whole capture is buffered in memory and
// handed back for scanning once the connection ends.
package srt
