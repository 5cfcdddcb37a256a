package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-swift/internal/cli/ui"
	"github.com/teslashibe/go-swift/pkg/audioio"
	"github.com/teslashibe/go-swift/pkg/client"
)

const submitSampleRate = 16000

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Ask a question in text and hear the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exchange(cmdContext(cmd), client.Submission{Text: strings.Join(args, " ")})
	},
}

var sayCmd = &cobra.Command{
	Use:   "say <file.wav>",
	Short: "Submit a WAV recording and hear the reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wav, err := loadWAV(args[0])
		if err != nil {
			return err
		}
		return exchange(cmdContext(cmd), client.Submission{WAV: wav})
	},
}

var testTTSCmd = &cobra.Command{
	Use:   "test-tts",
	Short: "Play the server's test phrase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmdContext(cmd), opts.timeout)
		defer cancel()

		audio, err := newAPI().TestSpeech(ctx)
		if err != nil {
			ui.PrintError("%s", client.Notice(err))
			return err
		}
		return play(cmdContext(cmd), audio)
	},
}

// loadWAV reads a WAV file and converts it to 16 kHz mono when needed.
func loadWAV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	samples, rate, err := audioio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if rate == submitSampleRate {
		return data, nil
	}
	return audioio.EncodeWAV(audioio.Resample(samples, rate, submitSampleRate), submitSampleRate, 1)
}

func exchange(ctx context.Context, s client.Submission) error {
	lang, err := language()
	if err != nil {
		return err
	}
	s.Language = lang

	reqCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	ex, err := newAPI().Submit(reqCtx, s)
	if err != nil {
		ui.PrintError("%s", client.Notice(err))
		return err
	}

	ui.PrintTurn("you", ui.Styles.User, ex.Transcript)
	ui.PrintTurn("swift", ui.Styles.Assistant, ex.Response)
	ui.PrintMuted("%s", client.FormatLatencies(&client.Latencies{
		Latencies: ex.Latencies,
		Total:     ex.Elapsed.Milliseconds(),
	}))

	return play(ctx, ex.Audio)
}

func play(ctx context.Context, audio []byte) error {
	p, err := newPlayer()
	if err != nil {
		return err
	}
	if err := p.Play(ctx, audio); err != nil {
		return err
	}
	if opts.out != "" {
		ui.PrintMuted("audio written to %s", opts.out)
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
