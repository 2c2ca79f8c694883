// Package synth turns a text prompt into audio. The model itself always runs
// out of process; each backend adapts one way of reaching it.
package synth

import (
	"context"
	"strings"
	"time"

	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/config"
	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Clip is the synthesized audio buffer.
type Clip = audio.Clip

// Synthesizer generates one clip per prompt. Implementations are reused
// across users and are not required to be safe for concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) (Clip, error)
}

// TokensPerSecond is the MusicGen audio token rate.
const TokensPerSecond = 50

// Options is the sampling configuration shared by every backend.
type Options struct {
	DoSample     bool
	MaxNewTokens int
}

// DefaultOptions samples stochastically with a 1024-token budget.
func DefaultOptions() Options {
	return Options{DoSample: true, MaxNewTokens: 1024}
}

// Duration converts the token budget to audio length.
func (o Options) Duration() time.Duration {
	return time.Duration(o.MaxNewTokens) * time.Second / TokensPerSecond
}

// Seconds is Duration rounded up to whole seconds, at least one.
func (o Options) Seconds() int {
	s := (o.MaxNewTokens + TokensPerSecond - 1) / TokensPerSecond
	if s < 1 {
		s = 1
	}
	return s
}

// Backend names accepted by New.
const (
	BackendACEStep = "acestep"
	BackendLocalAI = "localai"
	BackendCommand = "command"
	BackendTone    = "tone"
)

// New builds the backend named by cfg.SynthBackend.
func New(cfg config.Config, log *logger.Logger) (Synthesizer, error) {
	opts := Options{DoSample: cfg.DoSample, MaxNewTokens: cfg.MaxNewTokens}
	switch strings.ToLower(cfg.SynthBackend) {
	case BackendACEStep:
		return NewACEStep(cfg, opts, log), nil
	case BackendLocalAI:
		return NewLocalAI(cfg.LocalAIURL, cfg.LocalAIModel, opts), nil
	case BackendCommand:
		return NewCommand(cfg.SynthCommand, opts, log), nil
	case BackendTone:
		return NewTone(opts), nil
	default:
		return nil, errors.Validation("unknown synthesis backend %q", cfg.SynthBackend)
	}
}

func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.Validation("empty prompt")
	}
	return nil
}
