package synth

import (
	"context"
	"os"
	"time"

	"github.com/satindergrewal/tailortune/internal/acestep"
	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/config"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// ACEStep generates through an ACE-Step service and decodes the result with
// ffmpeg.
type ACEStep struct {
	client       *acestep.Client
	opts         Options
	steps        int
	format       string
	pollInterval time.Duration
	decode       audio.DecodeFunc
	log          *logger.Logger
}

// NewACEStep builds the backend from the ACE-Step settings in cfg.
func NewACEStep(cfg config.Config, opts Options, log *logger.Logger) *ACEStep {
	if log == nil {
		log = logger.Discard()
	}
	return &ACEStep{
		client:       acestep.NewClient(cfg.ACEStepAPIURL, cfg.ACEStepAPIKey, cfg.ACEStepOutputDir, log),
		opts:         opts,
		steps:        cfg.ACEStepInferenceSteps,
		format:       cfg.ACEStepAudioFormat,
		pollInterval: 2 * time.Second,
		decode:       audio.DecodeFile,
		log:          log,
	}
}

func (a *ACEStep) Synthesize(ctx context.Context, prompt string) (Clip, error) {
	if err := checkPrompt(prompt); err != nil {
		return Clip{}, err
	}

	seed := -1
	if !a.opts.DoSample {
		seed = 42
	}
	taskID, err := a.client.Generate(ctx, acestep.GenerateRequest{
		Caption:        prompt,
		Lyrics:         "[instrumental]",
		Duration:       a.opts.Seconds(),
		InferenceSteps: a.steps,
		Seed:           seed,
		BatchSize:      1,
		AudioFormat:    a.format,
	})
	if err != nil {
		return Clip{}, err
	}
	a.log.Debug("ACE-Step task submitted", "task", taskID)

	path, err := a.client.PollUntilDone(ctx, taskID, a.pollInterval)
	if err != nil {
		return Clip{}, err
	}
	if acestep.IsTemp(path) {
		defer os.Remove(path)
	}

	pcm, err := a.decode(ctx, path)
	if err != nil {
		return Clip{}, err
	}
	return audio.FromInt16(pcm, audio.SampleRate, audio.Channels), nil
}
