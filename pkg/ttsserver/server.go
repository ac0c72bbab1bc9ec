package ttsserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psycho-baller/text2dot/pkg/audio/pcm"
)

const writeTimeout = 10 * time.Second

// Flushed is the control message that ends an epoch.
type Flushed struct {
	Type       string `json:"type"`
	SequenceID int64  `json:"sequence_id"`
}

// Server streams synthesized speech over WebSocket.
type Server struct {
	// Synthesizer renders text. Defaults to ToneSynthesizer{}.
	Synthesizer Synthesizer

	// Format is the audio format streamed to clients. The zero value is
	// pcm.L16Mono16K.
	Format pcm.Format

	// ChunkDuration is the audio length per binary frame. Defaults to 100ms.
	ChunkDuration time.Duration

	// Announcement is the WAV served at /audio/connected. Defaults to a
	// two-tone chime.
	Announcement []byte

	// OnConnect is called when a client connects.
	OnConnect func(remote string)

	// OnDisconnect is called when a client disconnects.
	OnDisconnect func(remote string)

	seq      atomic.Int64
	upgrader websocket.Upgrader
}

func (s *Server) synthesizer() Synthesizer {
	if s.Synthesizer == nil {
		return ToneSynthesizer{}
	}
	return s.Synthesizer
}

func (s *Server) chunkBytes() int {
	d := s.ChunkDuration
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	frame := s.Format.Channels() * s.Format.Depth() / 8
	n := int(s.Format.BytesInDuration(d))
	return max(n-n%frame, frame)
}

// Handler returns the HTTP handler: GET /audio/connected serves the
// announcement and every other path accepts streaming WebSocket clients.
func (s *Server) Handler() http.Handler {
	s.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	mux := http.NewServeMux()
	mux.HandleFunc("GET /audio/connected", s.serveAnnouncement)
	mux.HandleFunc("/", s.serveWS)
	return mux
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) serveAnnouncement(w http.ResponseWriter, r *http.Request) {
	data := s.Announcement
	if data == nil {
		data = Chime(s.Format)
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(data)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("ttsserver: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	remote := r.RemoteAddr
	slog.Info("ttsserver: client connected", "remote", remote)
	if s.OnConnect != nil {
		s.OnConnect(remote)
	}
	defer func() {
		slog.Info("ttsserver: client disconnected", "remote", remote)
		if s.OnDisconnect != nil {
			s.OnDisconnect(remote)
		}
	}()

	ctx := r.Context()
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage || len(msg) == 0 {
			continue
		}
		slog.Debug("ttsserver: received", "remote", remote, "text", string(msg))
		if err := s.speak(ctx, conn, string(msg)); err != nil {
			slog.Warn("ttsserver: stream failed", "remote", remote, "error", err)
			return
		}
	}
}

// speak streams one epoch for text.
func (s *Server) speak(ctx context.Context, conn *websocket.Conn, text string) error {
	audio, err := s.synthesizer().Synthesize(ctx, text, s.Format)
	if err != nil {
		slog.Warn("ttsserver: synthesize failed", "error", err)
		audio = nil
	}

	write := func(mt int, data []byte) error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(mt, data)
	}

	if len(audio) > 0 {
		if err := write(websocket.BinaryMessage, pcm.WAVHeader(s.Format, 0)); err != nil {
			return err
		}
		step := s.chunkBytes()
		for off := 0; off < len(audio); off += step {
			end := min(off+step, len(audio))
			if err := write(websocket.BinaryMessage, audio[off:end]); err != nil {
				return err
			}
		}
	}

	flushed, err := json.Marshal(Flushed{Type: "Flushed", SequenceID: s.seq.Add(1) - 1})
	if err != nil {
		return err
	}
	return write(websocket.TextMessage, flushed)
}

// Chime returns a short two-tone WAV clip in format f.
func Chime(f pcm.Format) []byte {
	audio := append(Tone(f, 660, 120*time.Millisecond, 0.3), Tone(f, 880, 180*time.Millisecond, 0.3)...)
	return append(pcm.WAVHeader(f, len(audio)), audio...)
}
