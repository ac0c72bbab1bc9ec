package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/stream"
)

var sendCmd = &cobra.Command{
	Use:   "send [url] <text>",
	Short: "Send one text and play the reply",
	Long: `Connect, send one text message, wait for the next flushed epoch to finish
playing, then disconnect.

Examples:
  text2dot send ws://localhost:4000 "hello there" -o hello.pcm
  text2dot -c local send "hello there" -o -`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	addClientFlags(sendCmd)
	sendCmd.Flags().Duration("timeout", 30*time.Second, "give up when no reply has finished playing within this time")
}

func runSend(cmd *cobra.Command, args []string) error {
	var url, text string
	if len(args) == 2 {
		url, text = args[0], args[1]
	} else {
		text = args[0]
	}
	s, err := resolveSettings(cmd, url)
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	hooks := stream.Hooks{
		OnOpen: func(out *stream.Outbound) {
			if err := out.Send(text); err != nil {
				finish(err)
			}
		},
		OnPlaybackEnd: func() { finish(nil) },
		OnError: func(err error) {
			switch {
			case stream.IsKind(err, stream.KindDecode):
				finish(err)
			case stream.IsKind(err, stream.KindEmptyPayload):
				slog.Info("server replied with no audio")
				finish(nil)
			}
		},
		OnClose: func(clean bool, err error) {
			if clean || s.Reconnect > 0 {
				return
			}
			if err == nil {
				err = errors.New("closed by server")
			}
			finish(fmt.Errorf("connection lost: %w", err))
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

	start := time.Now()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("no reply: %w", ctx.Err())
	}
	if cerr := sess.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	slog.Debug("reply played", "elapsed", time.Since(start))
	return nil
}
