package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-swift/internal/cli/tui"
	"github.com/teslashibe/go-swift/pkg/audioio"
	"github.com/teslashibe/go-swift/pkg/client"
	"github.com/teslashibe/go-swift/pkg/vad"
)

var chatOpts struct {
	engine string
	model  string
	device string
	noMic  bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a hands-free conversation",
	Long: `Start an interactive conversation. Speech is detected on the microphone
and submitted when you stop talking; you can also type.

Keys: Enter submits text, Esc clears it, F2 mutes the microphone,
F3 switches between English and Greek, F4 switches the theme.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatOpts.engine, "vad", string(vad.EngineEnergy), "speech detector (energy or silero)")
	f.StringVar(&chatOpts.model, "vad-model", vad.DefaultConfig().ModelPath, "silero model path")
	f.StringVar(&chatOpts.device, "device", "", "capture device passed to the recorder")
	f.BoolVar(&chatOpts.noMic, "no-mic", false, "text input only")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	player, err := newPlayer()
	if err != nil {
		return err
	}

	var detector *vad.Detector
	var source audioio.Source
	if !chatOpts.noMic {
		detector, source, err = newListener()
		if err != nil {
			return err
		}
		defer source.Close()
		defer detector.Close()
	}

	var view *tui.Chat
	controllerOpts := []client.ControllerOption{
		client.WithControllerLogger(slog.Default()),
		client.OnChange(func(s client.Snapshot) {
			if view != nil {
				view.Update(s)
			}
		}),
		client.OnNotice(func(msg string) {
			if view != nil {
				view.Notice(msg)
			}
		}),
	}
	if detector != nil {
		controllerOpts = append(controllerOpts, client.WithListener(detector))
	}

	ctrl := client.NewController(newAPI(), player, controllerOpts...)
	defer ctrl.Close()
	if lang, err := language(); err == nil && lang != ctrl.Snapshot().Language {
		ctrl.ToggleLanguage()
	}

	view = tui.NewChat(ctrl)

	if detector != nil {
		if err := source.Start(ctx); err != nil {
			return fmt.Errorf("start microphone: %w", err)
		}
		go func() {
			if err := detector.Run(ctx, source, ctrl.HandleSpeech); err != nil && ctx.Err() == nil {
				view.Notice(fmt.Sprintf("microphone stopped: %v", err))
			}
		}()
	}

	ctrl.Start()
	return view.Run()
}

func newListener() (*vad.Detector, audioio.Source, error) {
	vcfg := vad.DefaultConfig()
	vcfg.Engine = vad.Engine(chatOpts.engine)
	vcfg.ModelPath = chatOpts.model

	classifier, err := vad.NewClassifier(vcfg)
	if err != nil {
		return nil, nil, err
	}
	detector, err := vad.NewDetector(vcfg, classifier, vad.WithLogger(slog.Default()))
	if err != nil {
		classifier.Close()
		return nil, nil, err
	}

	acfg := audioio.DefaultConfig()
	acfg.Backend = audioio.BackendCommand
	acfg.Device = chatOpts.device
	acfg.SampleRate = vcfg.SampleRate
	source, err := audioio.NewSource(acfg, slog.Default())
	if err != nil {
		classifier.Close()
		return nil, nil, fmt.Errorf("%w (use --no-mic for text only)", err)
	}
	return detector, source, nil
}
