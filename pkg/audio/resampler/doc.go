// Package resampler converts whole 16-bit PCM clips between sample rates and
// channel layouts.
//
// Rate conversion uses the pure Go github.com/tphakala/go-audio-resampling
// engine; mono↔stereo conversion is done in place before or after it.
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 44100, Stereo: true}
//	dst := resampler.Format{SampleRate: 48000, Stereo: false}
//	out, err := resampler.Convert(pcm, src, dst)
package resampler
