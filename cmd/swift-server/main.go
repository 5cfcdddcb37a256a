// swift-server: voice assistant backend.
// Accepts speech or text, replies with synthesized speech.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/teslashibe/go-swift/internal/app"
	"github.com/teslashibe/go-swift/internal/config"
	"github.com/teslashibe/go-swift/internal/log"
)

var (
	version    = "1.0.0"
	configPath = flag.String("config", "", "Path to YAML config file")
	port       = flag.Int("port", 0, "HTTP server port (overrides config and PORT)")
	debug      = flag.Bool("debug", false, "Enable debug logging and access logs")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swift-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.InitWith(log.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := log.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := app.Build(ctx, cfg, version, logger)
	if err != nil {
		return err
	}
	defer srv.Pipeline.Close()

	logger.Info("swift server starting",
		"version", version,
		"addr", cfg.Server.Addr(),
		"stt", name(srv.Providers.STT),
		"llm", name(srv.Providers.LLM),
		"tts", name(srv.Providers.TTS),
		"audio_mode", cfg.Assistant.AudioMode,
	)

	if err := srv.ListenAndRun(ctx, config.ShutdownTimeout); err != nil {
		return err
	}
	logger.Info("swift server stopped")
	return nil
}

func name(p any) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
