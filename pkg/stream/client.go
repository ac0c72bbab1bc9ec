package stream

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Hooks are callbacks for client events. They run on the event loop and
// must not call Client methods; use the Outbound given to OnOpen to send.
type Hooks struct {
	// OnOpen is called after each successful connect, before any message.
	OnOpen func(out *Outbound)
	// OnClose is called when the connection ends. clean is true only for
	// Disconnect and Close.
	OnClose func(clean bool, err error)
	// OnControl is called for every control message except Flushed.
	OnControl func(msg *ControlMessage)
	// OnError is called for every reported *Error.
	OnError func(err error)
	// OnConnState is called on every connection state change.
	OnConnState func(ConnState)
	// OnPlaybackState is called on every playback state change.
	OnPlaybackState func(PlaybackState)
	// OnPlaybackEnd is called when audio ends naturally; callers clear their
	// input affordance here.
	OnPlaybackEnd func()
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	interval    time.Duration
	dialer      Dialer
	decoder     Decoder
	player      Player
	logger      Logger
	hooks       Hooks
	lenient     bool
	announceURL string
	httpClient  *http.Client
	after       afterFunc
}

// WithReconnectInterval enables automatic reconnection after an unclean
// close. Zero or negative disables it, which is the default.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *clientConfig) {
		c.interval = d
	}
}

// WithDialer sets the transport dialer. Defaults to a WebSocketDialer.
func WithDialer(d Dialer) Option {
	return func(c *clientConfig) {
		c.dialer = d
	}
}

// WithPlayback sets the decoder and player. Both are required.
func WithPlayback(dec Decoder, player Player) Option {
	return func(c *clientConfig) {
		c.decoder = dec
		c.player = player
	}
}

// WithLogger sets the logger. Defaults to DefaultLogger.
func WithLogger(l Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithHooks sets the event callbacks.
func WithHooks(h Hooks) Option {
	return func(c *clientConfig) {
		c.hooks = h
	}
}

// WithLenientJSON repairs malformed control frames instead of dropping them.
func WithLenientJSON() Option {
	return func(c *clientConfig) {
		c.lenient = true
	}
}

// WithAnnounceURL plays the audio served at url once after every successful
// connect. The announcement is outside the playback state machine.
func WithAnnounceURL(url string) Option {
	return func(c *clientConfig) {
		c.announceURL = url
	}
}

// WithHTTPClient sets the HTTP client used to fetch the announcement.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

func withAfterFunc(f afterFunc) Option {
	return func(c *clientConfig) {
		c.after = f
	}
}

// Client is a resilient streaming audio client. It is safe to call its
// methods from multiple goroutines.
type Client struct {
	addr    string
	hooks   Hooks
	logger  Logger
	lenient bool

	events   chan event
	quit     chan struct{}
	loopDone chan struct{}
	closing  sync.Once

	// Owned by the event loop.
	mgr      *Manager
	chunks   *ChunkBuffer
	ctrl     *Controller
	out      *Outbound
	announce *announcer

	mu     sync.Mutex
	status Status
}

// New creates a client for the streaming endpoint at addr and starts its
// event loop. It does not connect; call Connect.
func New(addr string, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		logger:     DefaultLogger(),
		httpClient: http.DefaultClient,
		after:      realAfterFunc,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.decoder == nil || cfg.player == nil {
		return nil, fmt.Errorf("stream: decoder and player are required")
	}
	if cfg.dialer == nil {
		cfg.dialer = &WebSocketDialer{}
	}

	c := &Client{
		addr:     addr,
		hooks:    cfg.hooks,
		logger:   cfg.logger,
		lenient:  cfg.lenient,
		events:   make(chan event, 64),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
		chunks:   NewChunkBuffer(),
	}
	c.mgr = newManager(cfg.dialer, cfg.interval, cfg.logger, c.post, cfg.after, managerCallbacks{
		open:    c.onOpen,
		message: c.onMessage,
		closed:  c.onClosed,
		state:   c.onConnState,
	})
	c.ctrl = newController(cfg.decoder, cfg.player, cfg.logger, c.post)
	c.ctrl.onState = c.onPlaybackState
	c.ctrl.onEnd = c.onPlaybackEnd
	c.ctrl.onError = c.reportError
	c.ctrl.pending = func() bool { return c.chunks.Len() > 0 }
	c.out = &Outbound{mgr: c.mgr, logger: cfg.logger, report: c.reportError}
	if cfg.announceURL != "" {
		c.announce = &announcer{
			url:    cfg.announceURL,
			client: cfg.httpClient,
			dec:    cfg.decoder,
			player: cfg.player,
			logger: cfg.logger,
			post:   c.post,
		}
	}
	c.status.Addr = addr

	go c.loop()
	return c, nil
}

// Connect connects to the configured address. It is a no-op while already
// Connecting or Open.
func (c *Client) Connect() error {
	return c.call(func() {
		c.mgr.Connect(c.addr)
	})
}

// ConnectTo changes the address and connects to it. It is a no-op while
// already Connecting or Open.
func (c *Client) ConnectTo(addr string) error {
	return c.call(func() {
		if s := c.mgr.State(); s != ConnConnecting && s != ConnOpen {
			c.addr = addr
		}
		c.mgr.Connect(c.addr)
	})
}

// Disconnect closes the connection cleanly, cancels any pending reconnect,
// discards buffered chunks and stops any audio immediately.
func (c *Client) Disconnect() error {
	return c.call(c.teardown)
}

// Send sends text through the Outbound channel. It returns a
// KindSendRejected *Error when the connection is not Open.
func (c *Client) Send(text string) error {
	var err error
	if cerr := c.call(func() { err = c.out.Send(text) }); cerr != nil {
		return cerr
	}
	return err
}

// SendJSON encodes v as JSON and sends it through the Outbound channel.
func (c *Client) SendJSON(v any) error {
	var err error
	if cerr := c.call(func() { err = c.out.SendJSON(v) }); cerr != nil {
		return cerr
	}
	return err
}

// Status returns a snapshot of the client state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close performs the Disconnect sequence and stops the event loop.
func (c *Client) Close() error {
	err := ErrClientClosed
	c.closing.Do(func() {
		err = c.call(c.teardown)
		close(c.quit)
		<-c.loopDone
	})
	return err
}

func (c *Client) teardown() {
	c.chunks.Reset()
	c.ctrl.Reset()
	if c.announce != nil {
		c.announce.stop()
	}
	closed := c.mgr.Disconnect()
	if closed {
		c.hooksOnClose(true, nil)
	}
}

// call runs fn on the event loop and waits for it.
func (c *Client) call(fn func()) error {
	done := make(chan struct{})
	select {
	case c.events <- callEvent{fn: fn, done: done}:
	case <-c.quit:
		return ErrClientClosed
	}
	select {
	case <-done:
		return nil
	case <-c.loopDone:
		return ErrClientClosed
	}
}

// post delivers an event to the loop, dropping it once the client is closed.
func (c *Client) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

func (c *Client) loop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.quit:
			return
		case ev := <-c.events:
			c.handle(ev)
			c.snapshot()
		}
	}
}

func (c *Client) handle(ev event) {
	switch ev := ev.(type) {
	case callEvent:
		ev.fn()
		close(ev.done)
	case dialEvent:
		c.mgr.handleDial(ev)
	case messageEvent:
		c.mgr.handleMessage(ev)
	case closeEvent:
		c.mgr.handleClose(ev)
	case retryEvent:
		c.mgr.handleRetry(ev)
	case decodeEvent:
		c.ctrl.handleDecoded(ev)
	case endEvent:
		c.ctrl.handleEnded(ev)
	case announceEvent:
		if c.announce != nil {
			c.announce.handle(ev, c.mgr.id, c.mgr.State() == ConnOpen)
		}
	}
}

func (c *Client) snapshot() {
	st := Status{
		Addr:     c.addr,
		Conn:     c.mgr.State(),
		Playback: c.ctrl.State(),
		Epoch:    c.chunks.Epoch(),
		Buffered: c.chunks.Len(),
		Retrying: c.mgr.RetryPending(),
	}
	if s := c.ctrl.Session(); s != nil {
		st.Session = s.ID.String()
	}
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

func (c *Client) onOpen(id uint64) {
	epoch := c.chunks.Begin()
	c.logger.DebugPrintf("conn %d: epoch %d begins", id, epoch)
	if c.announce != nil {
		c.announce.start(id)
	}
	if c.hooks.OnOpen != nil {
		c.hooks.OnOpen(c.out)
	}
}

func (c *Client) onMessage(mt MessageType, data []byte) {
	var opts []ClassifyOption
	if c.lenient {
		opts = append(opts, Lenient())
	}
	frame, err := Classify(mt, data, opts...)
	if err != nil {
		c.logger.WarnPrintf("drop frame (%d bytes): %v", len(data), err)
		c.reportError(err)
		return
	}

	switch frame.Kind {
	case FrameBinary:
		if err := c.chunks.Append(frame.Chunk); err != nil {
			c.logger.WarnPrintf("drop chunk (%d bytes): %v", len(frame.Chunk), err)
			return
		}
		c.ctrl.Message()
	case FrameControl:
		if frame.Control.IsFlushed() {
			epoch := c.chunks.Epoch()
			c.ctrl.Flush(epoch, c.chunks.DrainAll())
			return
		}
		c.ctrl.Message()
		if c.hooks.OnControl != nil {
			c.hooks.OnControl(frame.Control)
		}
	}
}

func (c *Client) onClosed(clean bool, err error) {
	c.chunks.Reset()
	c.ctrl.Reset()
	if c.announce != nil {
		c.announce.stop()
	}
	if err != nil {
		c.reportError(err)
	}
	c.hooksOnClose(clean, err)
}

func (c *Client) hooksOnClose(clean bool, err error) {
	if c.hooks.OnClose != nil {
		c.hooks.OnClose(clean, err)
	}
}

func (c *Client) onConnState(s ConnState) {
	if c.hooks.OnConnState != nil {
		c.hooks.OnConnState(s)
	}
}

func (c *Client) onPlaybackState(s PlaybackState) {
	if c.hooks.OnPlaybackState != nil {
		c.hooks.OnPlaybackState(s)
	}
}

func (c *Client) onPlaybackEnd() {
	if c.hooks.OnPlaybackEnd != nil {
		c.hooks.OnPlaybackEnd()
	}
}

func (c *Client) reportError(err error) {
	if c.hooks.OnError != nil {
		c.hooks.OnError(err)
	}
}
