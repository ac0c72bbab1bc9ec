// Package stream implements a resilient streaming audio client.
//
// A Client keeps one WebSocket connection to a streaming endpoint. Binary
// frames are audio fragments and are accumulated in a ChunkBuffer; a JSON
// text frame of the form {"type":"Flushed"} marks the end of an epoch, at
// which point the accumulated payload is decoded and played. Other text
// frames are delivered to the caller as ControlMessages.
//
// # Concurrency
//
// All state is owned by a single event loop goroutine. Socket reads, dial
// results, decode results, playback completions and reconnect timers are
// delivered to it as events; public methods post commands into the same
// loop. Hooks run on the loop goroutine and must not call back into the
// Client. The Outbound passed to Hooks.OnOpen is safe to use there.
//
// # Epochs
//
// Every Flushed starts a new PlaybackSession tagged with a sequence number.
// Decode and playback completions carry that tag and are discarded when the
// session is no longer current, so a late decode can never start audio for a
// superseded epoch. A non-empty Flushed that arrives while an earlier session
// is still decoding or playing supersedes it.
//
// # Reconnection
//
// A close that was not requested through Disconnect schedules one reconnect
// attempt after the configured interval. At most one retry timer is pending
// at a time, and Disconnect or Connect cancels it.
//
// Example usage:
//
//	c, err := stream.New("localhost:8765",
//		stream.WithPlayback(spk, spk),
//		stream.WithReconnectInterval(3*time.Second),
//		stream.WithHooks(stream.Hooks{
//			OnPlaybackState: func(s stream.PlaybackState) { log.Print(s) },
//		}),
//	)
//	if err != nil { ... }
//	defer c.Close()
//	c.Connect()
package stream
