package stream

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audio is a decoded, playable unit.
type Audio interface {
	Duration() time.Duration
}

// Decoder turns an assembled payload into Audio. Decode runs off the event
// loop and should return promptly once ctx is cancelled.
type Decoder interface {
	Decode(ctx context.Context, payload []byte) (Audio, error)
}

// Player starts audio output. onEnd is called, from any goroutine, when the
// audio ends naturally; it is not called after Stop. onEnd may be nil.
type Player interface {
	Play(a Audio, onEnd func()) (Handle, error)
}

// Handle controls audio being output.
type Handle interface {
	// Stop halts output immediately and rewinds.
	Stop()
}

// PlaybackEvent is an input of the playback state machine.
type PlaybackEvent int

const (
	// EvMessage is any inbound frame other than a Flushed.
	EvMessage PlaybackEvent = iota + 1
	// EvFlush is a Flushed with a non-empty payload.
	EvFlush
	// EvFlushEmpty is a Flushed with nothing buffered.
	EvFlushEmpty
	// EvDecoded is the successful decode of the current session.
	EvDecoded
	// EvDecodeFailed is a failed decode (or playback start) of the current
	// session.
	EvDecodeFailed
	// EvEnded is the natural end of the current session's audio.
	EvEnded
	// EvReset is a disconnect or a lost connection.
	EvReset
)

func (e PlaybackEvent) String() string {
	switch e {
	case EvMessage:
		return "message"
	case EvFlush:
		return "flush"
	case EvFlushEmpty:
		return "flush_empty"
	case EvDecoded:
		return "decoded"
	case EvDecodeFailed:
		return "decode_failed"
	case EvEnded:
		return "ended"
	case EvReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Effects are the side effects requested by a transition.
type Effects uint8

const (
	// EffectStop stops audio and invalidates the current session.
	EffectStop Effects = 1 << iota
	// EffectDecode starts a new session decoding the drained payload.
	EffectDecode
	// EffectPlay starts playback of the decoded audio.
	EffectPlay
	// EffectClearInput clears the input affordance after a natural end.
	EffectClearInput
)

// Has reports whether e includes every effect in f.
func (e Effects) Has(f Effects) bool {
	return e&f == f
}

// Transition is the playback state machine. busy reports whether a session
// is decoding or playing. It returns the next state and the effects the
// caller must perform, in the order Stop, Decode, Play, ClearInput.
func Transition(s PlaybackState, ev PlaybackEvent, busy bool) (PlaybackState, Effects) {
	switch ev {
	case EvMessage:
		if s == NoAudio {
			return Loading, 0
		}
		return s, 0
	case EvFlush:
		if busy {
			return Loading, EffectStop | EffectDecode
		}
		return Loading, EffectDecode
	case EvFlushEmpty:
		if busy {
			return s, 0
		}
		return NoAudio, 0
	case EvDecoded:
		if s == Loading && busy {
			return Playing, EffectPlay
		}
		return s, 0
	case EvDecodeFailed:
		return NoAudio, 0
	case EvEnded:
		if s == Playing {
			return NoAudio, EffectClearInput
		}
		return s, 0
	case EvReset:
		if busy {
			return NoAudio, EffectStop
		}
		return NoAudio, 0
	}
	return s, 0
}

// PlaybackSession is one decode and play cycle.
type PlaybackSession struct {
	ID uuid.UUID
	// Seq is the session sequence number that completions are checked
	// against.
	Seq uint64
	// Epoch is the chunk buffer epoch the payload was drained from.
	Epoch   uint64
	Payload []byte
	Audio   Audio

	cancel  context.CancelFunc
	playing Handle
}

func (s *PlaybackSession) stop() {
	s.cancel()
	if s.playing != nil {
		s.playing.Stop()
	}
}

// Controller drives playback from flushed payloads. It is owned by the event
// loop; decode results and playback completions re-enter it as events.
type Controller struct {
	dec    Decoder
	player Player
	logger Logger
	post   func(event)

	onState func(PlaybackState)
	onEnd   func()
	onError func(error)
	// pending reports whether input of the next epoch is already buffered.
	pending func() bool

	state   PlaybackState
	session *PlaybackSession
	seq     uint64
	decodes int
}

func newController(dec Decoder, player Player, logger Logger, post func(event)) *Controller {
	return &Controller{
		dec:     dec,
		player:  player,
		logger:  logger,
		post:    post,
		onState: func(PlaybackState) {},
		onEnd:   func() {},
		onError: func(error) {},
		pending: func() bool { return false },
	}
}

// State returns the playback state.
func (c *Controller) State() PlaybackState {
	return c.state
}

// Session returns the current session, or nil.
func (c *Controller) Session() *PlaybackSession {
	return c.session
}

// Decodes returns how many decodes have been started.
func (c *Controller) Decodes() int {
	return c.decodes
}

// Message handles any inbound frame other than a Flushed.
func (c *Controller) Message() {
	c.apply(EvMessage)
}

// Flush handles a Flushed carrying the payload drained from epoch.
func (c *Controller) Flush(epoch uint64, payload []byte) {
	if len(payload) == 0 {
		err := &Error{Kind: KindEmptyPayload, Op: "flush", Err: ErrEmptyPayload}
		c.logger.InfoPrintf("epoch %d: %v", epoch, err)
		c.onError(err)
		c.apply(EvFlushEmpty)
		return
	}
	if c.apply(EvFlush).Has(EffectDecode) {
		c.startSession(epoch, payload)
	}
}

// Reset stops any audio and returns to NoAudio.
func (c *Controller) Reset() {
	c.apply(EvReset)
}

func (c *Controller) startSession(epoch uint64, payload []byte) {
	c.seq++
	c.decodes++
	ctx, cancel := context.WithCancel(context.Background())
	s := &PlaybackSession{
		ID:      uuid.New(),
		Seq:     c.seq,
		Epoch:   epoch,
		Payload: payload,
		cancel:  cancel,
	}
	c.session = s
	c.logger.DebugPrintf("session %s: decoding %d bytes from epoch %d", s.ID, len(payload), epoch)

	dec, post := c.dec, c.post
	go func() {
		audio, err := dec.Decode(ctx, payload)
		post(decodeEvent{seq: s.Seq, audio: audio, err: err})
	}()
}

func (c *Controller) handleDecoded(ev decodeEvent) {
	s := c.session
	if s == nil || s.Seq != ev.seq {
		c.logger.DebugPrintf("discarding decode of superseded session %d", ev.seq)
		return
	}
	if ev.err != nil {
		c.failSession("decode", ev.err)
		return
	}
	if !c.apply(EvDecoded).Has(EffectPlay) {
		s.stop()
		c.session = nil
		return
	}
	s.Audio = ev.audio
	seq, post := s.Seq, c.post
	playing, err := c.player.Play(ev.audio, func() {
		post(endEvent{seq: seq})
	})
	if err != nil {
		c.failSession("play", err)
		return
	}
	s.playing = playing
	c.logger.DebugPrintf("session %s: playing %v", s.ID, ev.audio.Duration())
}

func (c *Controller) failSession(op string, err error) {
	e := &Error{Kind: KindDecode, Op: op, Err: err}
	c.logger.ErrorPrintf("session %s: %v", c.session.ID, e)
	c.session.cancel()
	c.session = nil
	c.apply(EvDecodeFailed)
	c.onError(e)
	c.resume()
}

func (c *Controller) handleEnded(ev endEvent) {
	s := c.session
	if s == nil || s.Seq != ev.seq {
		return
	}
	s.cancel()
	c.session = nil
	c.logger.DebugPrintf("session %s: finished", s.ID)
	if c.apply(EvEnded).Has(EffectClearInput) {
		c.onEnd()
	}
	c.resume()
}

// resume re-enters Loading when chunks of the next epoch arrived while the
// previous session was still busy.
func (c *Controller) resume() {
	if c.state == NoAudio && c.pending() {
		c.apply(EvMessage)
	}
}

func (c *Controller) apply(ev PlaybackEvent) Effects {
	next, eff := Transition(c.state, ev, c.session != nil)
	if eff.Has(EffectStop) && c.session != nil {
		c.logger.DebugPrintf("session %s: stopped (%s)", c.session.ID, ev)
		c.session.stop()
		c.session = nil
	}
	if next != c.state {
		c.state = next
		c.onState(next)
	}
	return eff
}
