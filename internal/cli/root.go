// Package cli implements the swift command-line client.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-swift/internal/log"
	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/client"
)

// Version is set at build time.
var Version = "dev"

type options struct {
	server   string
	language string
	out      string
	player   []string
	debug    bool
	timeout  time.Duration
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "swift",
	Short: "Talk to a swift voice assistant",
	Long: `swift sends text or speech to a swift server and plays the spoken reply.

The server address defaults to $SWIFT_SERVER or http://localhost:3000.`,
	Example: `  # One-shot question
  $ swift ask "What's the weather like in Athens?"

  # Submit a recording
  $ swift say question.wav --lang el

  # Hands-free conversation
  $ swift chat

  # Watch pipeline events
  $ swift events`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if opts.debug {
			level = "debug"
		}
		log.InitWith(log.Options{Level: level, Output: os.Stderr})
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	server := os.Getenv("SWIFT_SERVER")
	if server == "" {
		server = "http://localhost:3000"
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.server, "server", "s", server, "swift server base URL")
	pf.StringVarP(&opts.language, "lang", "l", string(assistant.LanguageEnglish), "response language (en or el)")
	pf.StringVarP(&opts.out, "out", "o", "", "write reply audio to this file instead of playing it")
	pf.StringSliceVar(&opts.player, "player", nil, "player command reading MP3 from stdin (default mpg123 or ffplay)")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")

	rootCmd.AddCommand(askCmd, sayCmd, chatCmd, testTTSCmd, eventsCmd)
}

func newAPI() *client.API {
	return client.NewAPI(opts.server, client.WithLogger(slog.Default()))
}

func language() (assistant.Language, error) {
	lang, err := assistant.ParseLanguage(opts.language)
	if err != nil {
		return "", fmt.Errorf("--lang must be en or el")
	}
	return lang, nil
}

// newPlayer returns a file player when --out is set, otherwise an external
// player process.
func newPlayer() (client.Player, error) {
	if opts.out != "" {
		return client.FilePlayer{Path: opts.out}, nil
	}
	return client.NewCommandPlayer(opts.player, slog.Default())
}
