package buffer

// BytesBuffer is the byte specialization used for streamed audio payloads.
type BytesBuffer = Buffer[byte]

// Bytes creates a new byte Buffer with a 16KB initial capacity, enough for a
// few hundred milliseconds of 48 kHz L16 audio before the first growth.
func Bytes() *BytesBuffer {
	return N[byte](1 << 14)
}

// BytesN creates a new byte Buffer with an initial capacity of n bytes.
func BytesN(n int) *BytesBuffer {
	return N[byte](n)
}
