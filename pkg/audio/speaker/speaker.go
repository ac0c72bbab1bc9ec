// Package speaker plays streamed payloads through a pcm.Mixer. It provides
// the stream.Decoder and stream.Player a Client needs.
package speaker

import (
	"context"
	"fmt"
	"time"

	"github.com/psycho-baller/text2dot/pkg/audio/decoder"
	"github.com/psycho-baller/text2dot/pkg/audio/pcm"
	"github.com/psycho-baller/text2dot/pkg/audio/resampler"
	"github.com/psycho-baller/text2dot/pkg/stream"
)

var (
	_ stream.Decoder = (*Speaker)(nil)
	_ stream.Player  = (*Speaker)(nil)
)

// Clip is a payload decoded and converted to the mixer output format.
type Clip struct {
	Format pcm.Format
	Data   []byte
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	return c.Format.Duration(int64(len(c.Data)))
}

// Speaker decodes payloads into mixer-ready clips and plays them as voices.
type Speaker struct {
	mixer *pcm.Mixer
}

// New returns a Speaker playing through mixer. The caller runs the mixer.
func New(mixer *pcm.Mixer) *Speaker {
	return &Speaker{mixer: mixer}
}

// Decode decodes a WAV or MP3 payload and converts it to the mixer format.
func (s *Speaker) Decode(ctx context.Context, payload []byte) (stream.Audio, error) {
	clip, err := decoder.Decode(payload)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.mixer.Output()
	data, err := resampler.Convert(clip.Data, clip.Format, out.ResamplerFormat())
	if err != nil {
		return nil, err
	}
	return &Clip{Format: out, Data: data}, nil
}

// Play starts a, which must come from Decode, as a new mixer voice.
func (s *Speaker) Play(a stream.Audio, onEnd func()) (stream.Handle, error) {
	clip, ok := a.(*Clip)
	if !ok {
		return nil, fmt.Errorf("speaker: unsupported audio %T", a)
	}
	if clip.Format != s.mixer.Output() {
		return nil, fmt.Errorf("speaker: clip format %v does not match output %v", clip.Format, s.mixer.Output())
	}
	var opts []pcm.VoiceOption
	if onEnd != nil {
		opts = append(opts, pcm.WithOnEnd(onEnd))
	}
	v, err := s.mixer.Play(clip.Data, opts...)
	if err != nil {
		return nil, err
	}
	return v, nil
}
