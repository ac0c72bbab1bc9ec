// Package pcm provides types and utilities for working with PCM (Pulse Code Modulation) audio data.
//
// The package defines audio formats for common configurations (16-bit mono at various sample rates),
// interfaces for writing audio chunks, and a paced Mixer that plays whole clips as voices.
//
// Key types:
//   - Format: Represents audio format (sample rate, channels, bit depth)
//   - Chunk: Interface for audio data chunks
//   - DataChunk: Concrete implementation of Chunk for raw audio data
//   - Writer: Interface for writing audio chunks
//   - Mixer: Sums active voices into fixed-size frames written to a sink
//
// Example usage:
//
//	mx := pcm.NewMixer(pcm.L16Mono48K, pcm.ChunkWriter(os.Stdout))
//	go mx.Run(ctx)
//
//	v, err := mx.Play(clip, pcm.WithOnEnd(func() { log.Print("done") }))
//	...
//	v.Stop()
package pcm
