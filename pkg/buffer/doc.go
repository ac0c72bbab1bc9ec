// Package buffer provides a thread-safe accumulator for segmented streaming
// data.
//
// A Buffer collects segments (for example binary WebSocket frames) in arrival
// order and releases them all at once with Drain, which empties the buffer in
// the same critical section. Reset discards the content instead.
//
// Example usage:
//
//	buf := buffer.Bytes()
//
//	buf.Write(chunk1)
//	buf.Write(chunk2)
//
//	payload := buf.Drain() // chunk1 ‖ chunk2, buffer now empty
package buffer
