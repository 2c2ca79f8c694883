package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/config"
	"github.com/satindergrewal/tailortune/internal/errors"
)

func smallOpts() Options {
	return Options{DoSample: true, MaxNewTokens: 50}
}

func TestOptions(t *testing.T) {
	o := DefaultOptions()
	assert.True(t, o.DoSample)
	assert.Equal(t, 1024, o.MaxNewTokens)
	assert.Equal(t, 20480*time.Millisecond, o.Duration())
	assert.Equal(t, 21, o.Seconds())
	assert.Equal(t, 1, Options{}.Seconds())
}

func TestToneIsDeterministic(t *testing.T) {
	tone := NewTone(smallOpts())
	ctx := context.Background()

	a, err := tone.Synthesize(ctx, "Create a dreamy track")
	require.NoError(t, err)
	b, err := tone.Synthesize(ctx, "Create a dreamy track")
	require.NoError(t, err)
	c, err := tone.Synthesize(ctx, "Create an explosive track")
	require.NoError(t, err)

	assert.Equal(t, ToneSampleRate, a.SampleRate)
	assert.Equal(t, 1, a.Channels)
	assert.Len(t, a.Samples, ToneSampleRate)
	assert.Equal(t, a.Samples, b.Samples)
	assert.NotEqual(t, a.Samples, c.Samples)
	for _, s := range a.Samples {
		require.LessOrEqual(t, s, float32(1))
		require.GreaterOrEqual(t, s, float32(-1))
	}
}

func TestEmptyPromptRejected(t *testing.T) {
	backends := []Synthesizer{
		NewTone(smallOpts()),
		NewLocalAI("http://127.0.0.1:1", "m", smallOpts()),
		NewCommand("true", smallOpts(), nil),
	}
	for _, b := range backends {
		_, err := b.Synthesize(context.Background(), "   ")
		assert.True(t, errors.Is(err, errors.ErrValidation), "%T", b)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Config{SynthBackend: "tone", MaxNewTokens: 100, DoSample: true}
	s, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Tone{}, s)

	for name, want := range map[string]any{
		"acestep": &ACEStep{},
		"LocalAI": &LocalAI{},
		"command": &Command{},
	} {
		cfg.SynthBackend = name
		s, err := New(cfg, nil)
		require.NoError(t, err)
		assert.IsType(t, want, s)
	}

	cfg.SynthBackend = "theremin"
	_, err = New(cfg, nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func wavBytes(t *testing.T, c Clip) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	require.NoError(t, audio.WriteWAV(path, c))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestLocalAI(t *testing.T) {
	fixture := wavBytes(t, Clip{Samples: []float32{0, 0.5, -0.5, 0}, SampleRate: 32000, Channels: 1})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sound-generation", r.URL.Path)
		var req soundGenerationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "facebook/musicgen-small", req.ModelID)
		assert.Equal(t, "calm piano", req.Text)
		assert.Equal(t, float32(1), req.Duration)
		assert.True(t, req.DoSample)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(fixture)
	}))
	defer srv.Close()

	clip, err := NewLocalAI(srv.URL+"/", "facebook/musicgen-small", smallOpts()).Synthesize(context.Background(), "calm piano")
	require.NoError(t, err)
	assert.Equal(t, 32000, clip.SampleRate)
	assert.Len(t, clip.Samples, 4)
}

func TestLocalAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewLocalAI(srv.URL, "m", smallOpts()).Synthesize(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExternal))
	assert.Contains(t, err.Error(), "out of memory")
}

func TestCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.wav")
	require.NoError(t, audio.WriteWAV(fixture, Clip{Samples: []float32{0.25, -0.25}, SampleRate: 32000, Channels: 1}))

	argsLog := filepath.Join(dir, "args.txt")
	script := filepath.Join(dir, "musicgen.sh")
	body := fmt.Sprintf(`#!/bin/sh
echo "$@" > %q
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then cp %q "$2"; fi
  shift
done
`, argsLog, fixture)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	c := NewCommand("sh "+script, Options{DoSample: false, MaxNewTokens: 100}, nil)
	clip, err := c.Synthesize(context.Background(), "warm brass")
	require.NoError(t, err)
	assert.Len(t, clip.Samples, 2)

	args, err := os.ReadFile(argsLog)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--description warm brass --duration 2 --max-new-tokens 100 --no-sample --output")
}

func TestCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	c := NewCommand("false", smallOpts(), nil)
	_, err := c.Synthesize(context.Background(), "x")
	assert.True(t, errors.Is(err, errors.ErrExternal))

	c = NewCommand("true", smallOpts(), nil)
	_, err = c.Synthesize(context.Background(), "x")
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

func TestACEStep(t *testing.T) {
	var submitted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/release_task":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			fmt.Fprint(w, `{"code":200,"data":{"task_id":"abc"}}`)
		case "/query_result":
			fmt.Fprint(w, `{"code":200,"data":[{"task_id":"abc","status":1,"result":"[{\"file\":\"/v1/audio?path=o/abc.wav\"}]"}]}`)
		case "/v1/audio":
			w.Write([]byte("not really audio"))
		}
	}))
	defer srv.Close()

	cfg := config.Config{ACEStepAPIURL: srv.URL, ACEStepInferenceSteps: 8, ACEStepAudioFormat: "wav", ACEStepOutputDir: t.TempDir()}
	a := NewACEStep(cfg, smallOpts(), nil)
	a.pollInterval = time.Millisecond

	var decodedPath string
	a.decode = func(ctx context.Context, path string) ([]int16, error) {
		decodedPath = path
		return []int16{16384, 16384, -16384, -16384}, nil
	}

	clip, err := a.Synthesize(context.Background(), "dark guitars")
	require.NoError(t, err)
	assert.Equal(t, audio.SampleRate, clip.SampleRate)
	assert.Equal(t, audio.Channels, clip.Channels)
	assert.Equal(t, []float32{0.5, 0.5, -0.5, -0.5}, clip.Samples)

	assert.Equal(t, "dark guitars", submitted["caption"])
	assert.EqualValues(t, 1, submitted["audio_duration"])
	assert.EqualValues(t, 8, submitted["inference_steps"])

	// Downloaded temp files are removed after decoding.
	_, err = os.Stat(decodedPath)
	assert.True(t, os.IsNotExist(err))
}
