package ttsserver

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/psycho-baller/text2dot/pkg/audio/pcm"
)

// Synthesizer renders text as 16-bit PCM in format f.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, f pcm.Format) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string, f pcm.Format) ([]byte, error)

// Synthesize implements Synthesizer.
func (fn SynthesizerFunc) Synthesize(ctx context.Context, text string, f pcm.Format) ([]byte, error) {
	return fn(ctx, text, f)
}

// ToneSynthesizer renders one short tone per word, pitched by the word's
// first letter, with a gap between words.
type ToneSynthesizer struct {
	// Word is the tone length per word. Defaults to 120ms.
	Word time.Duration
	// Gap is the silence between words. Defaults to 40ms.
	Gap time.Duration
	// MaxWords caps the rendered words. Defaults to 64.
	MaxWords int
}

// Synthesize implements Synthesizer.
func (s ToneSynthesizer) Synthesize(ctx context.Context, text string, f pcm.Format) ([]byte, error) {
	word, gap, maxWords := s.Word, s.Gap, s.MaxWords
	if word <= 0 {
		word = 120 * time.Millisecond
	}
	if gap <= 0 {
		gap = 40 * time.Millisecond
	}
	if maxWords <= 0 {
		maxWords = 64
	}

	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	var out []byte
	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			out = append(out, make([]byte, f.BytesInDuration(gap))...)
		}
		out = append(out, Tone(f, pitch(w), word, 0.3)...)
	}
	return out, nil
}

// pitch maps a word to a frequency between 220 Hz and about 880 Hz.
func pitch(word string) float64 {
	r := strings.ToLower(word)[0]
	if r < 'a' || r > 'z' {
		return 440
	}
	return 220 * math.Pow(2, float64(r-'a')/13)
}

// Tone returns a sine tone of frequency hz, duration d and peak amplitude
// amp (0..1) in format f, with 5ms fades at both ends.
func Tone(f pcm.Format, hz float64, d time.Duration, amp float64) []byte {
	n := int(f.Samples(f.BytesInDuration(d)))
	fade := int(f.Samples(f.BytesInDuration(5 * time.Millisecond)))
	rate := float64(f.SampleRate())
	out := make([]byte, n*2)
	for i := range n {
		env := 1.0
		if fade > 0 {
			env = math.Min(1, math.Min(float64(i)/float64(fade), float64(n-1-i)/float64(fade)))
		}
		v := amp * env * math.Sin(2*math.Pi*hz*float64(i)/rate)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}
