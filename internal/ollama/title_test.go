package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllama(t *testing.T, status int, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/generate":
			var req generateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "qwen3:8b", req.Model)
			assert.False(t, req.Stream)
			assert.Contains(t, req.Prompt, "Mood: relaxing")
			if status != http.StatusOK {
				http.Error(w, "model not found", status)
				return
			}
			json.NewEncoder(w).Encode(generateResponse{Response: response, Done: true})
		}
	}))
}

func TestTitleFromLLM(t *testing.T) {
	srv := fakeOllama(t, http.StatusOK, "<think>hmm</think>\n\"Lanterns Over Water\"")
	defer srv.Close()

	c := NewClient(srv.URL, "qwen3:8b", nil)
	assert.True(t, c.Available(context.Background()))
	assert.Equal(t, "qwen3:8b", c.Model())

	got := NewTitler(c, nil).Title(context.Background(), "relaxing", "ambient", "Create a dreamy track")
	assert.Equal(t, "lanterns over water", got)
}

func TestTitleFallsBack(t *testing.T) {
	srv := fakeOllama(t, http.StatusNotFound, "")
	defer srv.Close()

	titler := NewTitler(NewClient(srv.URL, "qwen3:8b", nil), nil)
	got := titler.Title(context.Background(), "relaxing", "ambient", "p")
	assert.Equal(t, FallbackTitle("relaxing", "ambient", "p"), got)
}

func TestTitleRejectsRambling(t *testing.T) {
	srv := fakeOllama(t, http.StatusOK, "here is a very long answer that goes on and on about the track")
	defer srv.Close()

	got := NewTitler(NewClient(srv.URL, "qwen3:8b", nil), nil).Title(context.Background(), "relaxing", "soft jazz", "p")
	assert.Equal(t, FallbackTitle("relaxing", "soft jazz", "p"), got)
}

func TestFallbackTitle(t *testing.T) {
	a := FallbackTitle("high-energy", "deep house", "Create an explosive track")
	assert.Equal(t, a, FallbackTitle("high-energy", "deep house", "Create an explosive track"))
	assert.Contains(t, moodAdjectives["high-energy"], a[:len(a)-len(" deep house")])

	assert.Equal(t, "indie session", FallbackTitle("weird", "indie", "x"))
	assert.Contains(t, FallbackTitle("balanced", "", "x"), "reverie")

	assert.Equal(t, FallbackTitle("relaxing", "ambient", "p"), StaticTitler{}.Title(context.Background(), "relaxing", "ambient", "p"))
}

func TestCleanOutput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Night Bloom  ", "Night Bloom"},
		{`"quiet harbor"`, "quiet harbor"},
		{"Title: amber rooms", "amber rooms"},
		{"<think>\nreasoning\n</think>\nslow tide", "slow tide"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanOutput(tt.in))
	}
}
