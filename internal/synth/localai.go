package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/errors"
)

// LocalAI calls an OpenAI-compatible sound-generation endpoint that returns
// WAV bytes.
type LocalAI struct {
	baseURL string
	model   string
	opts    Options
	http    *http.Client
}

// NewLocalAI creates a client for baseURL (e.g. http://localhost:8080).
func NewLocalAI(baseURL, model string, opts Options) *LocalAI {
	return &LocalAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		opts:    opts,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

type soundGenerationRequest struct {
	ModelID  string  `json:"model_id"`
	Text     string  `json:"text"`
	Duration float32 `json:"duration,omitempty"`
	DoSample bool    `json:"do_sample"`
}

func (l *LocalAI) Synthesize(ctx context.Context, prompt string) (Clip, error) {
	if err := checkPrompt(prompt); err != nil {
		return Clip{}, err
	}

	body, err := json.Marshal(soundGenerationRequest{
		ModelID:  l.model,
		Text:     prompt,
		Duration: float32(l.opts.Duration().Seconds()),
		DoSample: l.opts.DoSample,
	})
	if err != nil {
		return Clip{}, errors.Wrap(err, errors.CodeValidation, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v1/sound-generation", bytes.NewReader(body))
	if err != nil {
		return Clip{}, errors.External(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return Clip{}, errors.External(err, "sound generation request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Clip{}, errors.External(err, "read sound generation response")
	}
	if resp.StatusCode != http.StatusOK {
		return Clip{}, errors.New(errors.CodeExternal, "sound generation: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(data)))
	}

	clip, err := audio.DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return Clip{}, errors.External(err, "decode sound generation output")
	}
	return clip, nil
}
