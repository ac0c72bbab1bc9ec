package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/audio/pcm"
	"github.com/psycho-baller/text2dot/pkg/audio/speaker"
	"github.com/psycho-baller/text2dot/pkg/cli"
	"github.com/psycho-baller/text2dot/pkg/stream"
)

// settings are the client parameters after merging the context with flags.
type settings struct {
	URL         string
	Reconnect   time.Duration
	AnnounceURL string
	Output      string
	SampleRate  int
	Realtime    bool
	Lenient     bool
}

// addClientFlags registers the flags that override context values.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().Int("reconnect-interval", 0, "reconnect interval in milliseconds after an unclean close (0 disables)")
	cmd.Flags().String("announce-url", "", "sound to fetch and play once per connect")
	cmd.Flags().Int("sample-rate", 0, "sink sample rate: 16000, 24000 or 48000 (default 48000)")
	cmd.Flags().Bool("realtime", true, "pace the sink at playback speed")
	cmd.Flags().Bool("lenient", false, "repair malformed JSON control frames instead of dropping them")
}

// resolveSettings merges the selected context with flags. url is the
// positional argument, if any, and wins over both.
func resolveSettings(cmd *cobra.Command, url string) (settings, error) {
	ctx, err := getContext()
	if err != nil {
		return settings{}, err
	}
	s := settings{
		URL:         ctx.URL,
		Reconnect:   ctx.ReconnectInterval(),
		AnnounceURL: ctx.AnnounceURL,
		Output:      ctx.Output,
		SampleRate:  ctx.SampleRate,
		Realtime:    ctx.IsRealtime(),
		Lenient:     ctx.LenientJSON,
	}
	if url != "" {
		s.URL = url
	}
	flags := cmd.Flags()
	if flags.Changed("reconnect-interval") {
		ms, _ := flags.GetInt("reconnect-interval")
		s.Reconnect = time.Duration(ms) * time.Millisecond
	}
	if flags.Changed("announce-url") {
		s.AnnounceURL, _ = flags.GetString("announce-url")
	}
	if flags.Changed("sample-rate") {
		s.SampleRate, _ = flags.GetInt("sample-rate")
	}
	if flags.Changed("realtime") {
		s.Realtime, _ = flags.GetBool("realtime")
	}
	if flags.Changed("lenient") {
		s.Lenient, _ = flags.GetBool("lenient")
	}
	if outputFile != "" {
		s.Output = outputFile
	}
	if s.SampleRate == 0 {
		s.SampleRate = 48000
	}
	if s.URL == "" {
		return settings{}, fmt.Errorf("no server address. Pass one as an argument or set url in a context with 'text2dot config add-context'")
	}
	return s, nil
}

// session is a client wired to a mixer and a PCM sink.
type session struct {
	client *stream.Client
	mixer  *pcm.Mixer
	sink   io.WriteCloser
	mixErr chan error
}

func openSession(ctx context.Context, s settings, hooks stream.Hooks) (*session, error) {
	format, err := pcm.FormatForRate(s.SampleRate)
	if err != nil {
		return nil, err
	}
	sink, err := cli.OpenSink(s.Output)
	if err != nil {
		return nil, err
	}
	mixer := pcm.NewMixer(format, pcm.ChunkWriter(sink), pcm.WithRealtime(s.Realtime))
	spk := speaker.New(mixer)

	opts := []stream.Option{
		stream.WithPlayback(spk, spk),
		stream.WithLogger(stream.SlogLogger(slog.Default())),
		stream.WithReconnectInterval(s.Reconnect),
		stream.WithHooks(hooks),
	}
	if s.Lenient {
		opts = append(opts, stream.WithLenientJSON())
	}
	if s.AnnounceURL != "" {
		opts = append(opts, stream.WithAnnounceURL(s.AnnounceURL))
	}
	client, err := stream.New(s.URL, opts...)
	if err != nil {
		sink.Close()
		return nil, err
	}

	sess := &session{
		client: client,
		mixer:  mixer,
		sink:   sink,
		mixErr: make(chan error, 1),
	}
	go func() {
		sess.mixErr <- mixer.Run(ctx)
	}()
	slog.Debug("session opened", "url", s.URL, "format", format, "reconnect", s.Reconnect, "realtime", s.Realtime)
	return sess, nil
}

// Close disconnects, stops the mixer and closes the sink.
func (s *session) Close() error {
	err := s.client.Close()
	if errors.Is(err, stream.ErrClientClosed) {
		err = nil
	}
	s.mixer.Close()
	if merr := <-s.mixErr; merr != nil && !errors.Is(merr, context.Canceled) {
		err = errors.Join(err, merr)
	}
	return errors.Join(err, s.sink.Close())
}
