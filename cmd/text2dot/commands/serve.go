package commands

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/audio/pcm"
	"github.com/psycho-baller/text2dot/pkg/ttsserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo text-to-speech server",
	Long: `Run a WebSocket server that answers every text message with a synthesized
tone sequence: a WAV header frame, PCM chunks, then {"type":"Flushed"}.
GET /audio/connected serves a short chime for use as the announcement sound.

Examples:
  text2dot serve --addr :4000
  text2dot listen ws://localhost:4000 --announce-url http://localhost:4000/audio/connected`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":4000", "listen address")
	serveCmd.Flags().Int("sample-rate", 48000, "stream sample rate: 16000, 24000 or 48000")
	serveCmd.Flags().Duration("chunk", 100*time.Millisecond, "audio per binary frame")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	rate, _ := cmd.Flags().GetInt("sample-rate")
	chunk, _ := cmd.Flags().GetDuration("chunk")

	format, err := pcm.FormatForRate(rate)
	if err != nil {
		return err
	}
	srv := &ttsserver.Server{
		Synthesizer:   ttsserver.ToneSynthesizer{},
		Format:        format,
		ChunkDuration: chunk,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	slog.Info("serving", "addr", ln.Addr().String(), "format", format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return srv.Serve(ctx, ln)
}
