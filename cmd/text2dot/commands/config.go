package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psycho-baller/text2dot/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage text2dot configuration.

Configuration is stored in ~/.text2dot/text2dot/config.yaml.
Multiple contexts can be defined for different servers.`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context describing a server and how to play its audio.

Examples:
  text2dot config add-context local --url ws://localhost:4000 --reconnect-interval 2000
  text2dot config add-context vision --api-key sk-xxxxx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		ctx := &cli.Context{}
		ctx.URL, _ = f.GetString("url")
		ctx.ReconnectIntervalMS, _ = f.GetInt("reconnect-interval")
		ctx.AnnounceURL, _ = f.GetString("announce-url")
		ctx.Output, _ = f.GetString("sink")
		ctx.SampleRate, _ = f.GetInt("sample-rate")
		ctx.LenientJSON, _ = f.GetBool("lenient")
		ctx.APIKey, _ = f.GetString("api-key")
		ctx.BaseURL, _ = f.GetString("base-url")
		if f.Changed("realtime") {
			rt, _ := f.GetBool("realtime")
			ctx.Realtime = &rt
		}
		if ctx.URL == "" && ctx.APIKey == "" {
			return fmt.Errorf("either --url or --api-key is required")
		}
		if ctx.ReconnectIntervalMS < 0 {
			return fmt.Errorf("reconnect-interval must not be negative")
		}

		name := args[0]
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' added", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the default context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context '%s'", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			cli.PrintInfo("No contexts configured")
			return nil
		}
		for _, name := range names {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			ctx := cfg.Contexts[name]
			line := fmt.Sprintf("%s%s\t%s", marker, name, ctx.URL)
			if d := ctx.ReconnectInterval(); d > 0 {
				line += "\treconnect " + cli.FormatDuration(d)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a context (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := contextName
		if len(args) > 0 {
			name = args[0]
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}
		shown := *ctx
		shown.APIKey = cli.MaskAPIKey(ctx.APIKey)
		return outputResult(shown)
	},
}

func init() {
	f := configAddContextCmd.Flags()
	f.StringP("url", "u", "", "WebSocket address of the audio server")
	f.Int("reconnect-interval", 0, "reconnect interval in milliseconds (0 disables)")
	f.String("announce-url", "", "sound to play once per connect")
	f.String("sink", "", "PCM sink: file path or - for stdout")
	f.Int("sample-rate", 0, "sink sample rate (default 48000)")
	f.Bool("realtime", true, "pace the sink at playback speed")
	f.Bool("lenient", false, "repair malformed JSON control frames")
	f.StringP("api-key", "k", "", "vision proxy API key")
	f.String("base-url", "", "vision proxy base URL")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configShowCmd)
}
