package resampler

import "fmt"

// Format describes a 16-bit signed little-endian PCM layout.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g., 44100, 48000).
	SampleRate int

	// Stereo indicates stereo (2 channels) if true, mono (1 channel) if false.
	Stereo bool
}

// Channels returns the number of interleaved channels.
func (f Format) Channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// FrameBytes returns the size of one frame (one sample per channel) in bytes.
func (f Format) FrameBytes() int {
	return 2 * f.Channels()
}

// String returns a MIME-like description of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate, f.Channels())
}
