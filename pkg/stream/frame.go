package stream

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/kaptinlin/jsonrepair"
)

// FlushedType is the control message type that ends an epoch.
const FlushedType = "Flushed"

// FrameKind distinguishes the two kinds of inbound frames.
type FrameKind int

const (
	FrameBinary FrameKind = iota + 1
	FrameControl
)

func (k FrameKind) String() string {
	switch k {
	case FrameBinary:
		return "binary"
	case FrameControl:
		return "control"
	default:
		return "unknown"
	}
}

// Frame is one classified inbound message. Exactly one of Chunk and Control
// is set, according to Kind.
type Frame struct {
	Kind    FrameKind
	Chunk   []byte
	Control *ControlMessage
}

// ControlMessage is a JSON object received in a text frame.
type ControlMessage struct {
	// Type is the "type" field, empty if absent or not a string.
	Type string
	// Fields holds every field of the object, including "type".
	Fields map[string]any
	// Raw is the JSON text as received (or as repaired in lenient mode).
	Raw json.RawMessage
}

// IsFlushed reports whether the message marks the end of an epoch.
func (m *ControlMessage) IsFlushed() bool {
	return m.Type == FlushedType
}

// Field returns the named string field, or "" if it is absent or not a
// string.
func (m *ControlMessage) Field(name string) string {
	s, _ := m.Fields[name].(string)
	return s
}

// Query evaluates a jq expression against the message fields and returns
// every result.
func (m *ControlMessage) Query(expr string) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	return m.Run(query)
}

// Run evaluates a compiled jq query against the message fields.
func (m *ControlMessage) Run(query *gojq.Query) ([]any, error) {
	var out []any
	iter := query.Run(m.Fields)
	for {
		v, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		out = append(out, v)
	}
}

// ClassifyOption configures Classify.
type ClassifyOption func(*classifyConfig)

type classifyConfig struct {
	lenient bool
}

// Lenient makes Classify repair malformed JSON text frames (unquoted keys,
// single quotes, trailing commas) before giving up on them.
func Lenient() ClassifyOption {
	return func(c *classifyConfig) {
		c.lenient = true
	}
}

// Classify turns one inbound message into a Frame. Binary messages become
// chunks; text messages must hold a JSON object and become control
// messages. Any other input returns a KindProtocol *Error.
func Classify(mt MessageType, data []byte, opts ...ClassifyOption) (*Frame, error) {
	var cfg classifyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	switch mt {
	case BinaryMessage:
		return &Frame{Kind: FrameBinary, Chunk: data}, nil
	case TextMessage:
		msg, err := parseControl(data, cfg.lenient)
		if err != nil {
			return nil, &Error{Kind: KindProtocol, Op: "classify", Err: err}
		}
		return &Frame{Kind: FrameControl, Control: msg}, nil
	default:
		return nil, &Error{Kind: KindProtocol, Op: "classify", Err: fmt.Errorf("unexpected message type %d", mt)}
	}
}

func parseControl(data []byte, lenient bool) (*ControlMessage, error) {
	var fields map[string]any
	err := json.Unmarshal(data, &fields)
	if _, ok := err.(*json.SyntaxError); ok && lenient {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return nil, fmt.Errorf("repair json: %w", rerr)
		}
		data = []byte(fixed)
		fields = nil
		err = json.Unmarshal(data, &fields)
	}
	if err != nil {
		return nil, fmt.Errorf("parse control message: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("parse control message: not a JSON object")
	}
	msg := &ControlMessage{
		Fields: fields,
		Raw:    json.RawMessage(data),
	}
	msg.Type, _ = fields["type"].(string)
	return msg, nil
}
