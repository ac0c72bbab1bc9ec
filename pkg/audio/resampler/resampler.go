package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Convert returns data, a clip in src layout, converted to dst layout. The
// input is truncated to a whole number of frames. When src and dst are equal
// the returned slice is a copy of the aligned input.
func Convert(data []byte, src, dst Format) ([]byte, error) {
	if src.SampleRate <= 0 || dst.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid sample rate %d -> %d", src.SampleRate, dst.SampleRate)
	}
	data = data[:len(data)/src.FrameBytes()*src.FrameBytes()]

	// Channel conversion first, so the rate converter runs on dst channels.
	var mixed []byte
	switch {
	case src.Stereo == dst.Stereo:
		mixed = append([]byte(nil), data...)
	case src.Stereo:
		mixed = stereoToMono(data)
	default:
		mixed = monoToStereo(data)
	}

	if src.SampleRate == dst.SampleRate || len(mixed) == 0 {
		return mixed, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate),
		OutputRate: float64(dst.SampleRate),
		Channels:   dst.Channels(),
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}

	output, err := rs.Process(toFloat(mixed))
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	out := toInt16(output)
	return out[:len(out)/dst.FrameBytes()*dst.FrameBytes()], nil
}

func toFloat(b []byte) []float64 {
	out := make([]float64, len(b)/2)
	for i := range out {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

func toInt16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s >= 1.0:
			v = 32767
		case s <= -1.0:
			v = -32768
		default:
			v = int16(s * 32767.0)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// stereoToMono averages L and R of each frame into a new mono clip.
func stereoToMono(b []byte) []byte {
	frames := len(b) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int16(b[i*4]) | int16(b[i*4+1])<<8
		r := int16(b[i*4+2]) | int16(b[i*4+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		out[i*2] = byte(m)
		out[i*2+1] = byte(m >> 8)
	}
	return out
}

// monoToStereo duplicates each mono sample into both channels.
func monoToStereo(b []byte) []byte {
	samples := len(b) / 2
	out := make([]byte, samples*4)
	for i := range samples {
		s0, s1 := b[i*2], b[i*2+1]
		out[i*4], out[i*4+1] = s0, s1
		out[i*4+2], out[i*4+3] = s0, s1
	}
	return out
}
