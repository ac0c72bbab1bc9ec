package stream

import "encoding/json"

// ConnState is the lifecycle state of the connection.
type ConnState int

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosed
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s ConnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ConnState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "connecting":
		*s = ConnConnecting
	case "open":
		*s = ConnOpen
	case "closed":
		*s = ConnClosed
	default:
		*s = ConnIdle
	}
	return nil
}

// PlaybackState is the user-facing state of the playback controller.
type PlaybackState int

const (
	NoAudio PlaybackState = iota
	Loading
	Playing
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case NoAudio:
		return "no_audio"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s PlaybackState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *PlaybackState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "loading":
		*s = Loading
	case "playing":
		*s = Playing
	default:
		*s = NoAudio
	}
	return nil
}

// Status is a snapshot of the client state.
type Status struct {
	Addr     string        `json:"addr"`
	Conn     ConnState     `json:"conn"`
	Playback PlaybackState `json:"playback"`
	Epoch    uint64        `json:"epoch"`
	Buffered int           `json:"buffered"`
	Session  string        `json:"session,omitzero"`
	Retrying bool          `json:"retrying,omitzero"`
}
