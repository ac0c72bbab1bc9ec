// Package decoder turns an assembled audio payload into 16-bit PCM.
//
// Payloads are sniffed as WAV (RIFF/WAVE) or MP3 (ID3 tag or frame sync) and
// decoded with github.com/gopxl/beep/v2. Streaming producers often write a
// WAV header before the length is known, leaving zero RIFF and data sizes and
// sometimes a wrong byte rate; RepairWAVHeader fixes those fields from the
// actual payload before decoding.
package decoder
