// Package tts synthesizes narration audio for rendered tutorials.
package tts

import (
	"context"
	"unicode/utf8"
)

// Result is the common response type from any TTS provider.
type Result struct {
	AudioData  []byte
	DurationMs int
	Format     string // "mp3", "wav"
}

// Service is the interface any TTS provider must implement. The worker
// uses whichever provider is configured without knowing the backend.
type Service interface {
	// Synthesize converts narration text to audio.
	Synthesize(ctx context.Context, text string) (*Result, error)
}

// estimateDurationMs approximates spoken length when the provider does not
// report one. Narration is mostly Chinese, so it assumes roughly 4 characters
// per second at normal speed.
func estimateDurationMs(text string, speed float64) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	if speed <= 0 {
		speed = 1.0
	}
	seconds := float64(runes) / (4.0 * speed)
	return int(seconds * 1000)
}
