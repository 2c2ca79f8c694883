package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/satindergrewal/tailortune/internal/logger"
)

// Titler names a track from its mood, lead genre and prompt, asking the LLM
// first and falling back to a deterministic name.
type Titler struct {
	client *Client
	log    *logger.Logger
}

// NewTitler creates a titler backed by client.
func NewTitler(client *Client, log *logger.Logger) *Titler {
	if log == nil {
		log = logger.Discard()
	}
	return &Titler{client: client, log: log}
}

const titleSystemPrompt = `You are a track name generator for personalized instrumental music.

Given a listener's mood, their favorite genre and the generation prompt, output a short evocative track name (2-4 words).

Rules:
- Names should feel like real instrumental track titles
- Evocative and atmospheric, not literal
- No genre name in the title
- No numbers, no "Track 1", no "Untitled"
- Lowercase only

Output ONLY the track name. Nothing else.

/no_think`

// Title returns a track name. It never fails.
func (t *Titler) Title(ctx context.Context, mood, genre, prompt string) string {
	fallback := FallbackTitle(mood, genre, prompt)

	msg := fmt.Sprintf("Mood: %s\nGenre: %s\nPrompt: %s", mood, genre, prompt)
	name, err := t.client.Generate(ctx, titleSystemPrompt, msg)
	if err != nil {
		t.log.Warn("Ollama title generation failed", "error", err)
		return fallback
	}

	name = strings.ToLower(cleanOutput(name))
	if name == "" || len(name) > 60 || strings.Count(name, " ") > 4 {
		t.log.Warn("Ollama returned unusable title", "title", name)
		return fallback
	}
	return name
}

// StaticTitler only produces fallback titles.
type StaticTitler struct{}

func (StaticTitler) Title(_ context.Context, mood, genre, prompt string) string {
	return FallbackTitle(mood, genre, prompt)
}

// moodAdjectives gives each mood a pool of descriptors for fallback titles.
var moodAdjectives = map[string][]string{
	"high-energy": {"surging", "electric", "blazing", "kinetic", "neon"},
	"relaxing":    {"floating", "still", "velvet", "glacial", "hazy"},
	"balanced":    {"drifting", "golden", "open", "flowing", "tidal"},
}

// FallbackTitle picks an adjective for the mood using a hash of seed, so the
// same listener always gets the same name.
func FallbackTitle(mood, genre, seed string) string {
	if genre == "" {
		genre = "reverie"
	}
	adjs := moodAdjectives[mood]
	if len(adjs) == 0 {
		return genre + " session"
	}

	var h uint32
	for i := 0; i < len(seed); i++ {
		h = h*31 + uint32(seed[i])
	}
	return adjs[h%uint32(len(adjs))] + " " + genre
}

// cleanOutput strips common LLM artifacts from output.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)

	// Thinking-mode leakage
	if idx := strings.Index(s, "</think>"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("</think>"):])
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	prefixes := []string{
		"here's a title:",
		"here is a title:",
		"track name:",
		"title:",
	}
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}

	return strings.TrimSpace(s)
}
