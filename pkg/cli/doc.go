// Package cli holds the shared pieces of the text2dot command line:
// kubectl-style contexts stored in ~/.text2dot/<app>/config.yaml, result
// output as YAML or JSON, and the one-line connection status indicator.
//
//	cfg, err := cli.LoadConfig("text2dot")
//	ctx, err := cfg.ResolveContext("")
//	cli.Output(cfg, cli.OutputOptions{Format: cli.FormatJSON})
package cli
