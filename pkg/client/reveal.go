package client

import (
	"context"
	"time"
)

// DefaultRevealInterval is the delay between revealed characters.
const DefaultRevealInterval = 50 * time.Millisecond

// Reveal calls show with growing prefixes of text, one character per tick,
// starting with the empty string and ending with the full text. It returns
// when done or when ctx ends.
func Reveal(ctx context.Context, text string, interval time.Duration, show func(string)) {
	runes := []rune(text)
	if interval <= 0 {
		show(text)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i <= len(runes); i++ {
		show(string(runes[:i]))
		if i == len(runes) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
