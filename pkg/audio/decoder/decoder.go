package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/psycho-baller/text2dot/pkg/audio/resampler"
)

// Kind is a container format recognised by Sniff.
type Kind int

const (
	KindUnknown Kind = iota
	KindWAV
	KindMP3
)

func (k Kind) String() string {
	switch k {
	case KindWAV:
		return "wav"
	case KindMP3:
		return "mp3"
	}
	return "unknown"
}

var (
	// ErrUnknownFormat is returned by Decode for payloads Sniff cannot place.
	ErrUnknownFormat = errors.New("decoder: unknown audio format")

	// ErrNoSamples is returned by Decode when a payload decodes to silence of
	// zero length.
	ErrNoSamples = errors.New("decoder: no samples")
)

// Sniff reports the container format of data from its leading bytes.
func Sniff(data []byte) Kind {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return KindWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return KindMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return KindMP3
	}
	return KindUnknown
}

// RepairWAVHeader returns data with its RIFF size, data chunk size, byte rate
// and block align made consistent with the payload. A data size of zero or
// one that overruns the payload is replaced by the remaining length. Non-WAV
// input is returned unchanged; otherwise the result is a copy.
func RepairWAVHeader(data []byte) []byte {
	if Sniff(data) != KindWAV {
		return data
	}
	out := bytes.Clone(data)
	le := binary.LittleEndian
	le.PutUint32(out[4:], uint32(len(out)-8))

	off := 12
	for off+8 <= len(out) {
		id := string(out[off : off+4])
		size := uint64(le.Uint32(out[off+4:]))
		body := off + 8
		switch id {
		case "fmt ":
			if size >= 16 && body+16 <= len(out) {
				channels := uint32(le.Uint16(out[body+2:]))
				rate := le.Uint32(out[body+4:])
				bits := uint32(le.Uint16(out[body+14:]))
				align := channels * bits / 8
				le.PutUint32(out[body+8:], rate*align)
				le.PutUint16(out[body+12:], uint16(align))
			}
		case "data":
			remain := uint64(len(out) - body)
			if size == 0 || size > remain {
				le.PutUint32(out[off+4:], uint32(remain))
			}
			return out
		}
		off = body + int(size) + int(size&1)
	}
	return out
}

// Clip is decoded audio as interleaved 16-bit little-endian samples.
type Clip struct {
	Format resampler.Format
	Data   []byte
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	frames := len(c.Data) / c.Format.FrameBytes()
	return time.Duration(frames) * time.Second / time.Duration(c.Format.SampleRate)
}

// Decode sniffs data and decodes it into a Clip in the payload's native
// sample rate. Stereo sources stay stereo; everything else becomes mono.
func Decode(data []byte) (*Clip, error) {
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch kind := Sniff(data); kind {
	case KindWAV:
		s, f, err = wav.Decode(bytes.NewReader(RepairWAVHeader(data)))
	case KindMP3:
		s, f, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	defer s.Close()

	clip := &Clip{
		Format: resampler.Format{
			SampleRate: int(f.SampleRate),
			Stereo:     f.NumChannels >= 2,
		},
	}
	if clip.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("decoder: invalid sample rate %d", f.SampleRate)
	}

	var buf bytes.Buffer
	if n := s.Len(); n > 0 {
		buf.Grow(n * clip.Format.FrameBytes())
	}
	samples := make([][2]float64, 1024)
	var frame [4]byte
	for {
		n, ok := s.Stream(samples)
		for _, smp := range samples[:n] {
			binary.LittleEndian.PutUint16(frame[0:], uint16(toInt16(smp[0])))
			if clip.Format.Stereo {
				binary.LittleEndian.PutUint16(frame[2:], uint16(toInt16(smp[1])))
				buf.Write(frame[:4])
			} else {
				buf.Write(frame[:2])
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decoder: stream: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrNoSamples
	}
	clip.Data = buf.Bytes()
	return clip, nil
}

func toInt16(v float64) int16 {
	v = math.Round(v * 32767)
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}
