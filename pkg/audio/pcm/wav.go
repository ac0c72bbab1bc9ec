package pcm

import "encoding/binary"

// WAVHeaderSize is the size of the canonical RIFF/WAVE header.
const WAVHeaderSize = 44

// WAVHeader returns a canonical 44-byte PCM WAVE header for dataLen bytes of
// audio in format f. A zero dataLen leaves the RIFF and data sizes zeroed,
// which is what a streaming producer sends before the length is known.
func WAVHeader(f Format, dataLen int) []byte {
	h := make([]byte, WAVHeaderSize)
	copy(h[0:], "RIFF")
	if dataLen > 0 {
		binary.LittleEndian.PutUint32(h[4:], uint32(36+dataLen))
	}
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1)
	binary.LittleEndian.PutUint16(h[22:], uint16(f.Channels()))
	binary.LittleEndian.PutUint32(h[24:], uint32(f.SampleRate()))
	binary.LittleEndian.PutUint32(h[28:], uint32(f.BytesRate()))
	binary.LittleEndian.PutUint16(h[32:], uint16(f.Channels()*f.Depth()/8))
	binary.LittleEndian.PutUint16(h[34:], uint16(f.Depth()))
	copy(h[36:], "data")
	if dataLen > 0 {
		binary.LittleEndian.PutUint32(h[40:], uint32(dataLen))
	}
	return h
}
