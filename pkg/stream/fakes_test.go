package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errPeerGone = errors.New("peer gone")

type inbound struct {
	mt   MessageType
	data []byte
}

type fakeConn struct {
	in     chan inbound
	drop   chan error
	closed chan struct{}
	once   sync.Once
	// stall, when set, blocks Close until it is closed.
	stall chan struct{}

	mu     sync.Mutex
	writes []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan inbound, 64),
		drop:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (MessageType, []byte, error) {
	select {
	case m := <-c.in:
		return m.mt, m.data, nil
	case err := <-c.drop:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(mt MessageType, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	if c.stall != nil {
		<-c.stall
	}
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *fakeConn) binary(data []byte) { c.in <- inbound{BinaryMessage, data} }
func (c *fakeConn) text(s string)      { c.in <- inbound{TextMessage, []byte(s)} }
func (c *fakeConn) flushed()           { c.text(`{"type":"Flushed"}`) }
func (c *fakeConn) peerClose()         { c.drop <- errPeerGone }

// fakeDialer hands out fakeConns. With a gate set, Dial blocks until the gate
// is released or ctx is cancelled.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	addrs []string
	fail  error
	gate  chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	d.mu.Lock()
	d.addrs = append(d.addrs, addr)
	gate, fail := d.gate, d.fail
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.addrs)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) setFail(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

type fakeAudio struct {
	payload []byte
}

func (a *fakeAudio) Duration() time.Duration {
	return time.Duration(len(a.payload)) * time.Millisecond
}

// fakeDecoder records payloads. A decode blocks while hold is non-nil and
// fails for payloads starting with "bad".
type fakeDecoder struct {
	mu       sync.Mutex
	payloads [][]byte
	hold     chan struct{}
}

func (d *fakeDecoder) Decode(ctx context.Context, payload []byte) (Audio, error) {
	d.mu.Lock()
	d.payloads = append(d.payloads, payload)
	hold := d.hold
	d.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if len(payload) >= 3 && string(payload[:3]) == "bad" {
		return nil, errors.New("unsupported payload")
	}
	return &fakeAudio{payload: payload}, nil
}

func (d *fakeDecoder) calls() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.payloads...)
}

type fakePlaying struct {
	audio   Audio
	onEnd   func()
	mu      sync.Mutex
	stopped bool
}

func (p *fakePlaying) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *fakePlaying) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// end simulates the natural end of the audio.
func (p *fakePlaying) end() {
	if p.onEnd != nil {
		p.onEnd()
	}
}

type fakePlayer struct {
	mu    sync.Mutex
	plays []*fakePlaying
	fail  error
}

func (p *fakePlayer) Play(a Audio, onEnd func()) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	fp := &fakePlaying{audio: a, onEnd: onEnd}
	p.plays = append(p.plays, fp)
	return fp, nil
}

func (p *fakePlayer) playing(i int) *fakePlaying {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.plays) {
		return nil
	}
	return p.plays[i]
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays)
}

// fakeTimers replaces time.AfterFunc so reconnects fire on demand.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (ft *fakeTimers) afterFunc(d time.Duration, f func()) timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) count() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.timers)
}

func (ft *fakeTimers) get(i int) *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.timers[i]
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the timer callback as time.AfterFunc would, unless stopped.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.f()
}

// recorder collects hook invocations.
type recorder struct {
	mu       sync.Mutex
	playback []PlaybackState
	conn     []ConnState
	errs     []error
	controls []*ControlMessage
	closes   []bool
	ends     int
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnPlaybackState: func(s PlaybackState) {
			r.mu.Lock()
			r.playback = append(r.playback, s)
			r.mu.Unlock()
		},
		OnConnState: func(s ConnState) {
			r.mu.Lock()
			r.conn = append(r.conn, s)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnControl: func(m *ControlMessage) {
			r.mu.Lock()
			r.controls = append(r.controls, m)
			r.mu.Unlock()
		},
		OnClose: func(clean bool, err error) {
			r.mu.Lock()
			r.closes = append(r.closes, clean)
			r.mu.Unlock()
		},
		OnPlaybackEnd: func() {
			r.mu.Lock()
			r.ends++
			r.mu.Unlock()
		},
	}
}

func (r *recorder) playbackStates() []PlaybackState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PlaybackState(nil), r.playback...)
}

func (r *recorder) connStates() []ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnState(nil), r.conn...)
}

func (r *recorder) errorsOf(kind ErrorKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, err := range r.errs {
		if IsKind(err, kind) {
			n++
		}
	}
	return n
}

func (r *recorder) controlCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controls)
}

func (r *recorder) endCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ends
}

type harness struct {
	c      *Client
	dialer *fakeDialer
	dec    *fakeDecoder
	player *fakePlayer
	timers *fakeTimers
	rec    *recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		dialer: &fakeDialer{},
		dec:    &fakeDecoder{},
		player: &fakePlayer{},
		timers: &fakeTimers{},
		rec:    &recorder{},
	}
	base := []Option{
		WithDialer(h.dialer),
		WithPlayback(h.dec, h.player),
		WithHooks(h.rec.hooks()),
		withAfterFunc(h.timers.afterFunc),
	}
	c, err := New("localhost:8765", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	h.c = c
	return h
}

// open connects and waits for the nth transport to be Open.
func (h *harness) open(t *testing.T, n int) *fakeConn {
	t.Helper()
	if err := h.c.Connect(); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	waitFor(t, "conn open", func() bool {
		return h.c.Status().Conn == ConnOpen && h.dialer.conn(n) != nil
	})
	return h.dialer.conn(n)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// settle waits until the event loop has processed everything posted so far
// by running a no-op on it.
func settle(t *testing.T, c *Client) {
	t.Helper()
	time.Sleep(5 * time.Millisecond)
	if err := c.call(func() {}); err != nil {
		t.Fatalf("call error: %v", err)
	}
}
