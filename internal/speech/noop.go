// Package speech turns synthesized clips into sound: decoding, device
// playback, the offline fallback engine, and the clip cache.
package speech

import (
	"context"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.FallbackSpeaker = (*NoOp)(nil)
	_ domain.AudioOutput     = (*NoOp)(nil)
)

// NoOp discards audio and fallback speech. Used with -no-audio and when
// no audio device or local engine is available.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent output.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Play discards the clip and returns immediately.
func (n *NoOp) Play(ctx context.Context, audio []byte) error {
	n.log.Debug("speech no-op: dropping %d bytes of audio", len(audio))
	return ctx.Err()
}

// Speak does nothing.
func (n *NoOp) Speak(ctx context.Context, text string, p domain.Prosody) {
	n.log.Debug("speech no-op: would say %q", text)
}

// Stop does nothing.
func (n *NoOp) Stop() {}
