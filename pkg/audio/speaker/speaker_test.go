package speaker

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/psycho-baller/text2dot/pkg/audio/pcm"
	"github.com/psycho-baller/text2dot/pkg/stream"
)

var (
	_ stream.Decoder = (*Speaker)(nil)
	_ stream.Player  = (*Speaker)(nil)
	_ stream.Handle  = (*pcm.Voice)(nil)
)

func wavPayload(f pcm.Format, samples int) []byte {
	data := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(i%200-100)))
	}
	return append(pcm.WAVHeader(f, 0), data...)
}

func TestSpeaker_DecodeConvertsToOutput(t *testing.T) {
	mx := pcm.NewMixer(pcm.L16Mono48K, pcm.Discard, pcm.WithRealtime(false))
	s := New(mx)

	// Same rate: no resampling, sample count preserved.
	a, err := s.Decode(context.Background(), wavPayload(pcm.L16Mono48K, 4800))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	clip := a.(*Clip)
	if clip.Format != pcm.L16Mono48K || len(clip.Data) != 9600 {
		t.Fatalf("clip = %v, %d bytes; want 48k, 9600 bytes", clip.Format, len(clip.Data))
	}
	if d := clip.Duration(); d != 100*time.Millisecond {
		t.Fatalf("Duration() = %v, want 100ms", d)
	}

	// 16k input is resampled to the 48k output.
	a, err = s.Decode(context.Background(), wavPayload(pcm.L16Mono16K, 16000))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d := a.Duration(); d < 900*time.Millisecond || d > 1100*time.Millisecond {
		t.Fatalf("resampled Duration() = %v, want about 1s", d)
	}
}

func TestSpeaker_DecodeErrors(t *testing.T) {
	s := New(pcm.NewMixer(pcm.L16Mono48K, pcm.Discard))
	if _, err := s.Decode(context.Background(), []byte("not audio")); err == nil {
		t.Fatal("Decode(text) should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Decode(ctx, wavPayload(pcm.L16Mono48K, 10)); err == nil {
		t.Fatal("Decode with cancelled context should fail")
	}
}

func TestSpeaker_PlayEndsNaturally(t *testing.T) {
	var frames atomic.Int32
	mx := pcm.NewMixer(pcm.L16Mono48K, pcm.WriteFunc(func(pcm.Chunk) error {
		frames.Add(1)
		return nil
	}), pcm.WithRealtime(false))
	go mx.Run(context.Background())
	defer mx.Close()

	s := New(mx)
	a, err := s.Decode(context.Background(), wavPayload(pcm.L16Mono48K, 4800))
	if err != nil {
		t.Fatal(err)
	}
	ended := make(chan struct{})
	if _, err := s.Play(a, func() { close(ended) }); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("onEnd not called")
	}
	if n := frames.Load(); n != 5 {
		t.Fatalf("frames = %d, want 5", n)
	}
}

func TestSpeaker_PlayRejectsForeignAudio(t *testing.T) {
	s := New(pcm.NewMixer(pcm.L16Mono48K, pcm.Discard))
	if _, err := s.Play(&Clip{Format: pcm.L16Mono16K}, nil); err == nil {
		t.Fatal("Play with mismatched format should fail")
	}
}
