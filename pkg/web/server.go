// Package web serves the assistant over HTTP with Fiber.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-swift/internal/header"
	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/hub"
	"github.com/teslashibe/go-swift/pkg/metrics"
	"github.com/teslashibe/go-swift/pkg/tts"
)

// Assistant is the pipeline the server drives.
type Assistant interface {
	Run(ctx context.Context, req *assistant.Request) (*assistant.Result, error)
	TestSpeech(ctx context.Context) (*tts.AudioResult, error)
	Health(ctx context.Context) []assistant.ProviderStatus
	Mode() assistant.AudioMode
}

// GeoHeaders names the request headers carrying location hints.
type GeoHeaders struct {
	Country   string
	Region    string
	City      string
	Timezone  string
	RequestID string
}

// DefaultGeoHeaders are the headers set by Vercel's edge network.
func DefaultGeoHeaders() GeoHeaders {
	return GeoHeaders{
		Country:   "X-Vercel-IP-Country",
		Region:    "X-Vercel-IP-Country-Region",
		City:      "X-Vercel-IP-City",
		Timezone:  "X-Vercel-IP-Timezone",
		RequestID: "X-Vercel-Id",
	}
}

// Config configures the server.
type Config struct {
	Addr      string
	StaticDir string
	BodyLimit int
	Debug     bool
	Version   string
	Geo       GeoHeaders
	Logger    *slog.Logger
}

// StreamChunkSize bounds each write of a relayed audio stream.
const StreamChunkSize = 4096

// Server is the assistant HTTP server.
type Server struct {
	app       *fiber.App
	assistant Assistant
	events    *hub.Hub
	metrics   *metrics.Metrics
	cfg       Config
	logger    *slog.Logger

	// base parents every provider call and is cancelled when Run begins
	// shutting down. A client hanging up does not cancel it.
	base     context.Context
	stopBase context.CancelFunc
}

// NewServer builds the Fiber app and registers all routes. events and m
// may be nil, in which case the feed and /metrics are not served.
func NewServer(a Assistant, events *hub.Hub, m *metrics.Metrics, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 25 << 20
	}
	if cfg.Geo == (GeoHeaders{}) {
		cfg.Geo = DefaultGeoHeaders()
	}

	s := &Server{
		assistant: a,
		events:    events,
		metrics:   m,
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "web"),
	}
	s.base, s.stopBase = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "swift",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Content-Type",
		ExposeHeaders: header.Transcript + "," + header.Response + "," + header.Latencies + "," + header.RequestID,
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}
	if m != nil {
		app.Use(s.instrument)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/health/providers", s.handleProviderHealth)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}

	app.Post("/api", s.handleExchange)
	api := app.Group("/api")
	api.Get("/test-tts", s.handleTestSpeech)
	api.Get("/status", s.handleStatus)

	if events != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/events", websocket.New(events.Serve))
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the event hub and serves on ln until ctx is cancelled, then
// shuts down within timeout.
func (s *Server) Run(ctx context.Context, ln net.Listener, timeout time.Duration) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	if s.events != nil {
		go s.events.Run(hubCtx)
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- s.app.Listener(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.stopBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.app.ShutdownWithContext(shutdownCtx)
	stopHub()
	if s.events != nil {
		<-s.events.Done()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ListenAndRun listens on the configured address and calls Run.
func (s *Server) ListenAndRun(ctx context.Context, timeout time.Duration) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Run(ctx, ln, timeout)
}

// requestContext derives the context handed to providers for one request.
func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.UserContext())
	stop := context.AfterFunc(s.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Locals keys shared by instrument and handlers that stream their body.
const (
	localRequestStart = "swift.request_start"
	localRecordLater  = "swift.record_later"
)

// instrument records request counts and durations. Handlers that stream
// their body take over the recording with deferRecord.
func (s *Server) instrument(c *fiber.Ctx) error {
	start := time.Now()
	c.Locals(localRequestStart, start)
	err := c.Next()
	if later, _ := c.Locals(localRecordLater).(bool); later && err == nil {
		return nil
	}

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	route := c.Route().Path
	if status == fiber.StatusNotFound {
		route = "unmatched"
	}
	s.metrics.RecordRequest(route, status, time.Since(start))
	return err
}

// deferRecord hands the request metric to the caller, which must invoke
// the returned func once the streamed body is written. The fiber.Ctx is
// gone by then, so the route and start time are captured now.
func (s *Server) deferRecord(c *fiber.Ctx, status int) func() {
	start, ok := c.Locals(localRequestStart).(time.Time)
	if s.metrics == nil || !ok {
		return func() {}
	}
	c.Locals(localRecordLater, true)
	route := c.Route().Path
	return func() {
		s.metrics.RecordRequest(route, status, time.Since(start))
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "An unexpected error occurred"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error("unhandled error", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
