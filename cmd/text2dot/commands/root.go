package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/cli"
)

const appName = "text2dot"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	outputJSON  bool
	verbose     bool

	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "text2dot",
	Short: "Streaming voice client for WebSocket audio servers",
	Long: `text2dot - a resilient streaming audio client.

It connects to a WebSocket server, collects binary audio chunks until the
server sends {"type":"Flushed"}, then decodes and plays the assembled audio.
Lost connections are retried when a reconnect interval is configured.

Configuration is stored in ~/.text2dot/text2dot/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Run the demo server and talk to it
  text2dot serve --addr :4000
  text2dot config add-context local --url ws://localhost:4000 --reconnect-interval 2000
  text2dot listen -o out.pcm

  # One-shot
  text2dot send ws://localhost:4000 "hello there" -o -
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.text2dot/text2dot/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "PCM sink: file path, - for stdout (default: discard)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(visionCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s config: %v\n", appName, err)
	}
}

func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig, nil
}

// getContext returns the context selected by -c, the current context, or
// an empty one when nothing is configured.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		if contextName != "" {
			return nil, err
		}
		return &cli.Context{}, nil
	}
	return cfg.ResolveContext(contextName)
}

func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{Format: format})
}
