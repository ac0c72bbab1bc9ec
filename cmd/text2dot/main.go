// Package main provides the text2dot CLI.
//
// Usage:
//
//	text2dot [flags] <command> [args]
//
// Commands:
//
//	listen   - stream audio from a server, forward stdin lines to it
//	send     - send one text, play the reply, exit
//	serve    - run the demo text-to-speech WebSocket server
//	vision   - run the image description proxy
//	config   - context management
//
// Configuration:
//
//	The CLI stores configuration in ~/.text2dot/text2dot/
//	Use 'text2dot config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/psycho-baller/text2dot/cmd/text2dot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
