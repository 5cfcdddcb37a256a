package web

import (
	"bufio"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-swift/internal/header"
	"github.com/teslashibe/go-swift/pkg/assistant"
)

// Error bodies returned by the API.
const (
	msgInvalidRequest  = "Invalid request"
	msgInvalidAudio    = "Invalid audio"
	msgSynthesisFailed = "Voice synthesis failed"
	msgUnexpected      = "An unexpected error occurred"
)

const contentTypeMPEG = "audio/mpeg"

// handleExchange runs one voice exchange: multipart form in, audio out.
func (s *Server) handleExchange(c *fiber.Ctx) error {
	meta := s.meta(c)
	c.Set(header.RequestID, meta.RequestID)

	form, err := c.MultipartForm()
	if err != nil {
		s.logger.Debug("unreadable form", "request_id", meta.RequestID, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidRequest})
	}

	req, err := assistant.ParseForm(form, meta)
	if err != nil {
		s.logger.Debug("invalid request", "request_id", meta.RequestID, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidRequest})
	}

	ctx, cancel := s.requestContext(c)
	res, err := s.assistant.Run(ctx, req)
	if err != nil {
		cancel()
		return s.exchangeError(c, meta.RequestID, err)
	}

	latencies, err := sonic.Marshal(res.Latencies)
	if err != nil {
		res.Close()
		cancel()
		return s.exchangeError(c, meta.RequestID, err)
	}

	c.Set(fiber.HeaderContentType, contentTypeMPEG)
	c.Set(header.Transcript, header.Encode(res.Transcript))
	c.Set(header.Response, header.Encode(res.Response))
	c.Set(header.Latencies, header.Encode(string(latencies)))

	if res.Stream == nil {
		cancel()
		s.countAudio(len(res.Audio))
		return c.Send(res.Audio)
	}

	// The provider stream is read after the handler returns, so its
	// context lives until the relay is done.
	requestID := meta.RequestID
	record := s.deferRecord(c, fiber.StatusOK)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer record()
		defer cancel()
		defer res.Close()
		written, err := relay(w, res)
		s.countAudio(written)
		if err != nil {
			s.logger.Warn("audio relay stopped", "request_id", requestID, "bytes", written, "error", err)
		}
	})
	return nil
}

// relay copies the stream to w in bounded chunks, flushing each one so a
// slow client slows down reads from the provider.
func relay(w *bufio.Writer, res *assistant.Result) (int, error) {
	total := 0
	for {
		chunk, err := res.Stream.Read()
		if err != nil {
			return total, err
		}
		if chunk == nil {
			return total, nil
		}
		for len(chunk) > 0 {
			n := min(len(chunk), StreamChunkSize)
			if _, err := w.Write(chunk[:n]); err != nil {
				return total, err
			}
			if err := w.Flush(); err != nil {
				return total, err
			}
			total += n
			chunk = chunk[n:]
		}
	}
}

func (s *Server) exchangeError(c *fiber.Ctx, requestID string, err error) error {
	switch {
	case errors.Is(err, assistant.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidRequest})
	case errors.Is(err, assistant.ErrInvalidAudio):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidAudio})
	case errors.Is(err, assistant.ErrSynthesisFailed):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgSynthesisFailed})
	default:
		s.logger.Error("exchange failed", "request_id", requestID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   msgUnexpected,
			"details": err.Error(),
		})
	}
}

// handleTestSpeech synthesizes the fixed test phrase.
func (s *Server) handleTestSpeech(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	audio, err := s.assistant.TestSpeech(ctx)
	if errors.Is(err, assistant.ErrSynthesisFailed) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgSynthesisFailed})
	}
	if err != nil {
		s.logger.Error("test speech failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgUnexpected})
	}

	s.countAudio(len(audio.Audio))
	c.Set(fiber.HeaderContentType, contentTypeMPEG)
	return c.Send(audio.Audio)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

// handleProviderHealth runs every provider's health check. It answers 503
// when any of them fails.
func (s *Server) handleProviderHealth(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()
	statuses := s.assistant.Health(ctx)

	code := http.StatusOK
	overall := "ok"
	for _, st := range statuses {
		if !st.Healthy {
			code = http.StatusServiceUnavailable
			overall = "degraded"
		}
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    overall,
		"providers": statuses,
	})
}

// StatusResponse is returned by /api/status.
type StatusResponse struct {
	Version     string `json:"version"`
	AudioMode   string `json:"audio_mode"`
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"dropped_subscribers"`
	Time        string `json:"time"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		Version:   s.cfg.Version,
		AudioMode: string(s.assistant.Mode()),
		Time:      time.Now().UTC().Format(time.RFC3339),
	}
	if s.events != nil {
		resp.Subscribers = s.events.ClientCount()
		resp.Dropped = s.events.Dropped()
	}
	return c.JSON(resp)
}

// meta collects request context from headers. A request id is generated
// when the edge did not supply one.
func (s *Server) meta(c *fiber.Ctx) assistant.Meta {
	geo := s.cfg.Geo
	id := c.Get(geo.RequestID)
	if id == "" {
		id = uuid.NewString()
	}
	return assistant.Meta{
		RequestID: id,
		Country:   c.Get(geo.Country),
		Region:    c.Get(geo.Region),
		City:      c.Get(geo.City),
		Timezone:  c.Get(geo.Timezone),
	}
}

func (s *Server) countAudio(n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.AudioBytesServed.Add(float64(n))
	}
}
