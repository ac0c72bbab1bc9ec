package pcm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

const defaultFrame = 20 * time.Millisecond

// MixerOption is an option for configuring a Mixer.
type MixerOption interface {
	apply(*Mixer)
}

type realtimeOption struct {
	realtime bool
}

func (o realtimeOption) apply(mx *Mixer) {
	mx.realtime = o.realtime
}

// WithRealtime controls whether Run paces frames at wall-clock speed.
// Defaults to true. A non-realtime mixer writes frames as fast as the sink
// accepts them.
func WithRealtime(realtime bool) MixerOption {
	return realtimeOption{realtime: realtime}
}

type frameOption struct {
	frame time.Duration
}

func (o frameOption) apply(mx *Mixer) {
	if o.frame > 0 {
		mx.frame = o.frame
	}
}

// WithFrameDuration sets the duration of each mixed frame. Defaults to 20ms.
func WithFrameDuration(d time.Duration) MixerOption {
	return frameOption{frame: d}
}

// Mixer sums the active voices into fixed-size frames and writes each frame
// to its sink. Only frames with at least one active voice are written; an idle
// mixer produces nothing.
//
// It is safe to call methods on Mixer from multiple goroutines. Run must be
// called exactly once.
type Mixer struct {
	output   Format
	sink     Writer
	realtime bool
	frame    time.Duration

	mu       sync.Mutex
	voices   []*Voice
	closeErr error

	notify chan struct{}
	closed chan struct{}

	acc []int32
}

// NewMixer creates a new Mixer that writes frames in the output format to
// sink.
func NewMixer(output Format, sink Writer, opts ...MixerOption) *Mixer {
	mx := &Mixer{
		output:   output,
		sink:     sink,
		realtime: true,
		frame:    defaultFrame,
		notify:   make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(mx)
	}
	return mx
}

// Output returns the output format of the mixer.
func (mx *Mixer) Output() Format {
	return mx.output
}

// VoiceOption is an option for configuring a Voice.
type VoiceOption interface {
	apply(*Voice)
}

type voiceLabelOption struct {
	label string
}

func (o voiceLabelOption) apply(v *Voice) {
	v.label = o.label
}

// WithVoiceLabel sets a label for the voice.
func WithVoiceLabel(label string) VoiceOption {
	return voiceLabelOption{label: label}
}

type onEndOption struct {
	fn func()
}

func (o onEndOption) apply(v *Voice) {
	v.onEnd = o.fn
}

// WithOnEnd sets a callback invoked from the Run goroutine after the last
// frame of the voice has been written. It is not called when the voice is
// stopped or the mixer is closed.
func WithOnEnd(fn func()) VoiceOption {
	return onEndOption{fn: fn}
}

// Play starts a voice for data, which must be in the mixer's output format.
// The mixer takes ownership of data.
func (mx *Mixer) Play(data []byte, opts ...VoiceOption) (*Voice, error) {
	v := &Voice{
		mx:   mx,
		data: data,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(v)
	}

	mx.mu.Lock()
	defer mx.mu.Unlock()
	if mx.closeErr != nil {
		return nil, mx.closeErr
	}
	mx.voices = append(mx.voices, v)
	select {
	case mx.notify <- struct{}{}:
	default:
	}
	return v, nil
}

// Active returns the number of voices still playing.
func (mx *Mixer) Active() int {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	return len(mx.voices)
}

// Run mixes and writes frames until ctx is done or the mixer is closed. It
// returns nil after Close, ctx.Err() on cancellation, or the first sink error.
func (mx *Mixer) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if mx.realtime {
		ticker := time.NewTicker(mx.frame)
		defer ticker.Stop()
		tick = ticker.C
	}

	frameBytes := int(mx.output.BytesInDuration(mx.frame))
	for {
		if err := mx.waitVoices(ctx); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-mx.closed:
				return nil
			case <-tick:
			}
		}

		frame, ended := mx.mixFrame(frameBytes)
		if frame == nil {
			continue
		}
		if err := mx.sink.Write(mx.output.DataChunk(frame)); err != nil {
			return fmt.Errorf("pcm/mixer: write: %w", err)
		}
		for _, v := range ended {
			v.finish(true)
		}
	}
}

// waitVoices blocks until at least one voice is active. It returns io.EOF
// once the mixer is closed.
func (mx *Mixer) waitVoices(ctx context.Context) error {
	for {
		mx.mu.Lock()
		n, closed := len(mx.voices), mx.closeErr != nil
		mx.mu.Unlock()
		if closed {
			return io.EOF
		}
		if n > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-mx.closed:
			return io.EOF
		case <-mx.notify:
		}
	}
}

// mixFrame sums the next frame of every voice. Voices that reach their end
// are removed and returned so their callbacks run after the frame is written.
func (mx *Mixer) mixFrame(frameBytes int) ([]byte, []*Voice) {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	if len(mx.voices) == 0 {
		return nil, nil
	}

	samples := frameBytes / 2
	if cap(mx.acc) < samples {
		mx.acc = make([]int32, samples)
	}
	acc := mx.acc[:samples]
	clear(acc)

	var ended []*Voice
	keep := mx.voices[:0]
	for _, v := range mx.voices {
		end := min(v.pos+frameBytes, len(v.data))
		seg := v.data[v.pos:end]
		for i := 0; i+1 < len(seg); i += 2 {
			acc[i/2] += int32(int16(seg[i]) | int16(seg[i+1])<<8)
		}
		v.pos = end
		if v.pos >= len(v.data) {
			ended = append(ended, v)
			continue
		}
		keep = append(keep, v)
	}
	clear(mx.voices[len(keep):])
	mx.voices = keep

	out := make([]byte, frameBytes)
	for i, s := range acc {
		s = max(-32768, min(32767, s))
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out, ended
}

func (mx *Mixer) remove(v *Voice) bool {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	for i, it := range mx.voices {
		if it == v {
			mx.voices = append(mx.voices[:i], mx.voices[i+1:]...)
			return true
		}
	}
	return false
}

// Close closes the mixer. Active voices are stopped without invoking their
// end callbacks, and Run returns nil.
func (mx *Mixer) Close() error {
	mx.mu.Lock()
	if mx.closeErr != nil {
		mx.mu.Unlock()
		return nil
	}
	mx.closeErr = fmt.Errorf("pcm/mixer: %w", io.ErrClosedPipe)
	voices := mx.voices
	mx.voices = nil
	close(mx.closed)
	mx.mu.Unlock()

	for _, v := range voices {
		v.finish(false)
	}
	return nil
}

// Voice is one clip playing in a Mixer.
type Voice struct {
	mx    *Mixer
	label string
	onEnd func()

	// pos is guarded by mx.mu.
	data []byte
	pos  int

	once sync.Once
	done chan struct{}
}

// Label returns the label of the voice.
func (v *Voice) Label() string {
	return v.label
}

// Done returns a channel closed when the voice has ended or been stopped.
func (v *Voice) Done() <-chan struct{} {
	return v.done
}

// Stop halts the voice and rewinds it. Stopping an ended voice is a no-op.
func (v *Voice) Stop() {
	if v.mx.remove(v) {
		v.mx.mu.Lock()
		v.pos = 0
		v.mx.mu.Unlock()
	}
	v.finish(false)
}

func (v *Voice) finish(natural bool) {
	v.once.Do(func() {
		close(v.done)
		if natural && v.onEnd != nil {
			v.onEnd()
		}
	})
}
