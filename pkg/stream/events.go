package stream

// event is delivered to the client event loop.
type event interface {
	isEvent()
}

type dialEvent struct {
	id   uint64
	conn Conn
	err  error
}

type messageEvent struct {
	id   uint64
	mt   MessageType
	data []byte
}

type closeEvent struct {
	id  uint64
	err error
}

type retryEvent struct {
	gen uint64
}

type decodeEvent struct {
	seq   uint64
	audio Audio
	err   error
}

type endEvent struct {
	seq uint64
}

type announceEvent struct {
	id    uint64
	audio Audio
	err   error
}

type callEvent struct {
	fn   func()
	done chan struct{}
}

func (dialEvent) isEvent()     {}
func (messageEvent) isEvent()  {}
func (closeEvent) isEvent()    {}
func (retryEvent) isEvent()    {}
func (decodeEvent) isEvent()   {}
func (endEvent) isEvent()      {}
func (announceEvent) isEvent() {}
func (callEvent) isEvent()     {}
