package stream

import (
	"encoding/json"
	"fmt"
)

// Outbound sends text frames over the current connection. It rejects sends
// while the connection is not Open and never queues or retries.
//
// Methods must be called on the event loop, i.e. from a Hook. Use
// Client.Send elsewhere.
type Outbound struct {
	mgr    *Manager
	logger Logger
	report func(error)
}

// Ready reports whether a send would be attempted.
func (o *Outbound) Ready() bool {
	return o.mgr.State() == ConnOpen
}

// Send sends text as one text frame. A rejected send returns a
// KindSendRejected *Error; the message is dropped.
func (o *Outbound) Send(text string) error {
	err := o.mgr.Send(text)
	if err != nil {
		o.logger.WarnPrintf("drop outbound message (%d bytes): %v", len(text), err)
		o.report(err)
	}
	return err
}

// SendJSON encodes v as JSON and sends it as one text frame.
func (o *Outbound) SendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("stream: marshal outbound message: %w", err)
	}
	return o.Send(string(b))
}
