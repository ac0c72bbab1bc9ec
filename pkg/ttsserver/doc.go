// Package ttsserver is a small text-to-speech streaming server speaking the
// protocol consumed by package stream.
//
// Every text frame a client sends is synthesized and streamed back as one
// epoch: a binary frame holding a WAV header with placeholder sizes, the PCM
// audio split into binary frames, and finally a text frame
// {"type":"Flushed","sequence_id":N}. GET /audio/connected serves a short
// announcement clip.
//
// The default Synthesizer renders tones instead of speech, which keeps the
// server self-contained for demos and tests.
package ttsserver
