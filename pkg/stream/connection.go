package stream

import (
	"context"
	"time"
)

// timer is the handle of a scheduled retry.
type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// managerCallbacks connect the Manager to the rest of the client. They run on
// the event loop.
type managerCallbacks struct {
	open    func(id uint64)
	message func(mt MessageType, data []byte)
	closed  func(clean bool, err error)
	state   func(ConnState)
}

// Manager owns the lifecycle of one logical connection and its reconnect
// policy. All methods must be called from the event loop.
//
// Every dial gets a new connection id. Events from goroutines of an earlier
// id are stale and ignored, so a superseded transport can never affect the
// current one.
type Manager struct {
	dialer   Dialer
	interval time.Duration
	logger   Logger
	post     func(event)
	after    afterFunc
	cb       managerCallbacks

	addr       string
	state      ConnState
	id         uint64
	conn       Conn
	cancelDial context.CancelFunc

	retry    timer
	retryGen uint64

	dials int
}

func newManager(dialer Dialer, interval time.Duration, logger Logger, post func(event), after afterFunc, cb managerCallbacks) *Manager {
	return &Manager{
		dialer:   dialer,
		interval: interval,
		logger:   logger,
		post:     post,
		after:    after,
		cb:       cb,
		state:    ConnIdle,
	}
}

// State returns the connection state.
func (m *Manager) State() ConnState {
	return m.state
}

// Addr returns the address of the last connect.
func (m *Manager) Addr() string {
	return m.addr
}

// RetryPending reports whether a reconnect timer is scheduled.
func (m *Manager) RetryPending() bool {
	return m.retry != nil
}

// Dials returns how many transports have been dialled.
func (m *Manager) Dials() int {
	return m.dials
}

// Connect opens a connection to addr. It is a no-op while a connection is
// Connecting or Open. A pending retry timer is cancelled.
func (m *Manager) Connect(addr string) {
	if m.state == ConnConnecting || m.state == ConnOpen {
		m.logger.DebugPrintf("connect %s: already %s", addr, m.state)
		return
	}
	m.cancelRetry()
	m.addr = addr
	m.id++
	m.dials++
	id := m.id

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.setState(ConnConnecting)
	m.logger.DebugPrintf("dialing %s (conn %d)", addr, id)

	go func() {
		conn, err := m.dialer.Dial(ctx, addr)
		m.post(dialEvent{id: id, conn: conn, err: err})
	}()
}

// Disconnect closes the connection cleanly and cancels any pending retry.
// It reports whether a Connecting or Open connection was torn down.
func (m *Manager) Disconnect() bool {
	m.cancelRetry()
	switch m.state {
	case ConnConnecting:
		m.cancelDial()
		m.cancelDial = nil
	case ConnOpen:
		m.closeConn(m.id, m.conn)
		m.conn = nil
	default:
		return false
	}
	// Invalidate the reader and any dial still in flight.
	m.id++
	m.setState(ConnClosed)
	return true
}

// Send writes a text frame. It returns a KindSendRejected *Error unless the
// connection is Open.
func (m *Manager) Send(text string) error {
	if m.state != ConnOpen {
		return &Error{Kind: KindSendRejected, Op: "send", Err: ErrSendRejected}
	}
	if err := m.conn.WriteMessage(TextMessage, []byte(text)); err != nil {
		return &Error{Kind: KindTransport, Op: "write", Err: err}
	}
	return nil
}

func (m *Manager) handleDial(ev dialEvent) {
	if ev.id != m.id {
		if ev.conn != nil {
			m.closeConn(ev.id, ev.conn)
		}
		return
	}
	m.cancelDial = nil
	if ev.err != nil {
		m.fail(&Error{Kind: KindTransport, Op: "dial", Err: ev.err})
		return
	}
	m.conn = ev.conn
	m.setState(ConnOpen)
	m.logger.InfoPrintf("connected to %s (conn %d)", m.addr, ev.id)
	go m.readLoop(ev.id, ev.conn)
	m.cb.open(ev.id)
}

func (m *Manager) readLoop(id uint64, conn Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			m.post(closeEvent{id: id, err: err})
			return
		}
		m.post(messageEvent{id: id, mt: mt, data: data})
	}
}

func (m *Manager) handleMessage(ev messageEvent) {
	if ev.id != m.id || m.state != ConnOpen {
		return
	}
	m.cb.message(ev.mt, ev.data)
}

func (m *Manager) handleClose(ev closeEvent) {
	if ev.id != m.id || m.state != ConnOpen {
		return
	}
	m.closeConn(ev.id, m.conn)
	m.conn = nil
	m.fail(&Error{Kind: KindTransport, Op: "read", Err: ev.err})
}

// closeConn closes conn off the event loop; a close handshake with a
// stalled peer must not hold up teardown.
func (m *Manager) closeConn(id uint64, conn Conn) {
	logger := m.logger
	go func() {
		if err := conn.Close(); err != nil {
			logger.DebugPrintf("close conn %d: %v", id, err)
		}
	}()
}

// fail handles an unclean end of the current connection.
func (m *Manager) fail(err *Error) {
	m.id++
	m.setState(ConnClosed)
	m.logger.WarnPrintf("connection to %s lost: %v", m.addr, err)
	m.cb.closed(false, err)
	m.scheduleRetry()
}

func (m *Manager) scheduleRetry() {
	if m.interval <= 0 || m.retry != nil {
		return
	}
	m.retryGen++
	gen := m.retryGen
	m.logger.InfoPrintf("reconnecting to %s in %v", m.addr, m.interval)
	m.retry = m.after(m.interval, func() {
		m.post(retryEvent{gen: gen})
	})
}

func (m *Manager) cancelRetry() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.retryGen++
}

func (m *Manager) handleRetry(ev retryEvent) {
	if ev.gen != m.retryGen || m.retry == nil {
		return
	}
	m.retry = nil
	m.Connect(m.addr)
}

func (m *Manager) setState(s ConnState) {
	if m.state == s {
		return
	}
	m.state = s
	m.cb.state(s)
}
