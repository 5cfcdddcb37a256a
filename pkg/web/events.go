package web

import (
	"time"

	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/hub"
	"github.com/teslashibe/go-swift/pkg/metrics"
)

// Hooks connects pipeline observations to the event feed and metrics.
// Either argument may be nil.
func Hooks(events *hub.Hub, m *metrics.Metrics) assistant.Hooks {
	var h assistant.Hooks

	if m != nil {
		h.OnStage = func(stage assistant.Stage, d time.Duration, err error) {
			m.RecordStage(string(stage), d, err)
		}
	}

	if events != nil || m != nil {
		h.OnEvent = func(e assistant.Event) {
			if m != nil && e.Stage == assistant.StageDone {
				m.ExchangesTotal.Inc()
			}
			if events != nil {
				events.BroadcastJSON(e)
			}
		}
	}
	return h
}
