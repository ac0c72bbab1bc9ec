// Package audio is the umbrella for the playback pipeline of text2dot:
//
//   - decoder: sniffs and decodes WAV or MP3 payloads to 16-bit PCM
//   - resampler: converts sample rate and channel count
//   - pcm: formats, WAV headers and the real-time Mixer
//   - speaker: the stream.Decoder and stream.Player backed by a Mixer
//
// A typical wiring:
//
//	mixer := pcm.NewMixer(pcm.L16Mono48K, pcm.ChunkWriter(sink))
//	go mixer.Run(ctx)
//	spk := speaker.New(mixer)
//	client, err := stream.New(addr, stream.WithPlayback(spk, spk))
package audio
