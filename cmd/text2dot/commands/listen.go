package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/cli"
	"github.com/psycho-baller/text2dot/pkg/stream"
)

var listenCmd = &cobra.Command{
	Use:   "listen [url]",
	Short: "Stream audio from a server",
	Long: `Connect to a streaming audio server and play every flushed epoch.

Each line read from stdin is sent to the server as a text message while the
connection is open; lines typed while disconnected are dropped. Control
messages other than Flushed are printed, optionally projected through a jq
expression with --select. Ctrl-C disconnects cleanly.

Examples:
  text2dot listen ws://localhost:4000 -o out.pcm
  text2dot listen --reconnect-interval 2000 --select '.transcript // empty'
  echo "hello" | text2dot listen localhost:4000 -o - | ffplay -f s16le -ar 48000 -ac 1 -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runListen,
}

func init() {
	addClientFlags(listenCmd)
	listenCmd.Flags().String("select", "", "jq expression applied to control messages")
	listenCmd.Flags().Bool("no-status", false, "do not draw the status line")
}

func runListen(cmd *cobra.Command, args []string) error {
	var url string
	if len(args) > 0 {
		url = args[0]
	}
	s, err := resolveSettings(cmd, url)
	if err != nil {
		return err
	}

	var query *gojq.Query
	if expr, _ := cmd.Flags().GetString("select"); expr != "" {
		if query, err = gojq.Parse(expr); err != nil {
			return fmt.Errorf("invalid --select expression: %w", err)
		}
	}
	noStatus, _ := cmd.Flags().GetBool("no-status")

	// Control output shares stdout with the sink only when the sink is not
	// stdout.
	var controlOut io.Writer = os.Stdout
	if s.Output == "-" {
		controlOut = os.Stderr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	hooks := stream.Hooks{
		OnControl: func(msg *stream.ControlMessage) {
			printControl(controlOut, msg, query)
		},
		OnConnState:     func(stream.ConnState) { notify() },
		OnPlaybackState: func(stream.PlaybackState) { notify() },
		OnPlaybackEnd:   notify,
		OnClose: func(clean bool, err error) {
			if !clean {
				slog.Warn("connection lost", "error", err)
			}
		},
	}

	sess, err := openSession(ctx, s, hooks)
	if err != nil {
		return err
	}
	if err := sess.client.Connect(); err != nil {
		sess.Close()
		return err
	}

	go forwardLines(ctx, os.Stdin, sess.client)

	var status statusPrinter
	if !noStatus {
		status = statusPrinter{line: cli.NewStatusLine(), w: os.Stderr, json: outputJSON}
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			status.finish()
			slog.Info("disconnecting")
			return sess.Close()
		case <-changed:
		case <-tick.C:
		}
		if !noStatus {
			status.print(sess.client.Status())
		}
	}
}

// forwardLines sends each line of r through the client until ctx is done
// or r ends.
func forwardLines(ctx context.Context, r io.Reader, c *stream.Client) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := c.Send(line); err != nil {
			if errors.Is(err, stream.ErrClientClosed) {
				return
			}
			slog.Warn("message dropped", "error", err)
		}
	}
}

func printControl(w io.Writer, msg *stream.ControlMessage, query *gojq.Query) {
	if query == nil {
		fmt.Fprintln(w, string(msg.Raw))
		return
	}
	results, err := msg.Run(query)
	if err != nil {
		slog.Warn("select failed", "type", msg.Type, "error", err)
		return
	}
	for _, v := range results {
		if s, ok := v.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		fmt.Fprintln(w, string(b))
	}
}

// statusPrinter redraws the status line in place, or writes one JSON
// object per change.
type statusPrinter struct {
	line    cli.StatusLine
	w       io.Writer
	json    bool
	last    stream.Status
	printed bool
}

func (p *statusPrinter) print(st stream.Status) {
	if p.w == nil || (p.printed && st == p.last) {
		return
	}
	p.last, p.printed = st, true
	if p.json {
		b, _ := json.Marshal(st)
		fmt.Fprintln(p.w, string(b))
		return
	}
	fmt.Fprint(p.w, "\r\033[K"+p.line.Render(st, 0))
}

func (p *statusPrinter) finish() {
	if p.w != nil && p.printed && !p.json {
		fmt.Fprintln(p.w)
	}
}
