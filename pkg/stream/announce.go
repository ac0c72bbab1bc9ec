package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxAnnounceBytes bounds the announcement download.
const maxAnnounceBytes = 8 << 20

// announcer fetches and plays the connection announcement once per open.
type announcer struct {
	url    string
	client *http.Client
	dec    Decoder
	player Player
	logger Logger
	post   func(event)

	cancel  context.CancelFunc
	playing Handle
}

func (a *announcer) start(id uint64) {
	a.stop()
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		audio, err := a.fetch(ctx)
		a.post(announceEvent{id: id, audio: audio, err: err})
	}()
}

func (a *announcer) fetch(ctx context.Context) (Audio, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", a.url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnnounceBytes))
	if err != nil {
		return nil, err
	}
	return a.dec.Decode(ctx, data)
}

// handle plays a fetched announcement if it belongs to the open connection.
func (a *announcer) handle(ev announceEvent, current uint64, open bool) {
	if ev.id != current || !open {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if ev.err != nil {
		a.logger.WarnPrintf("announcement: %v", ev.err)
		return
	}
	playing, err := a.player.Play(ev.audio, nil)
	if err != nil {
		a.logger.WarnPrintf("announcement: play: %v", err)
		return
	}
	a.playing = playing
}

func (a *announcer) stop() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.playing != nil {
		a.playing.Stop()
		a.playing = nil
	}
}
