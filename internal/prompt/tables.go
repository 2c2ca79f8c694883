package prompt

import "github.com/satindergrewal/tailortune/internal/mood"

// moodPhrases maps a mood to the adjective phrase that opens a prompt.
var moodPhrases = map[mood.Label]string{
	mood.HighEnergy: "an explosive and thrilling",
	mood.Relaxing:   "a dreamy and atmospheric",
	mood.Balanced:   "a smooth and evolving",
}

const defaultMoodPhrase = "a deep and emotional"

// vibes gives each known genre a short production description.
var vibes = map[string]string{
	"deep house":                    "deep basslines with hypnotic grooves",
	"indie":                         "raw textures and nostalgic vibes",
	"electronics":                   "layered digital tones and sharp transitions",
	"electronic dance":              "fast-paced rhythms and club energy",
	"new age":                       "soft pads and spiritual resonance",
	"ambient":                       "floating textures and calm atmosphere",
	"hindustani classical":          "traditional ragas with meditative flow",
	"indian semi-classical":         "blended folk-classical melodies",
	"indian folk":                   "earthy traditional rhythms and cultural depth",
	"soft jazz":                     "warm brass tones and late-night groove",
	"goth rock":                     "dark guitars and moody ambiance",
	"progressive instrumental rock": "complex instrumental builds and expressive flow",
}

// scenario is a closing clause chosen when both genres are among the
// listener's top genres.
type scenario struct {
	a, b   string
	clause string
}

// scenarios are checked in order; the first match wins.
var scenarios = []scenario{
	{"indian folk", "indian semi-classical", "to echo the colors and emotions of a cultural celebration"},
	{"ambient", "new age", "for peaceful introspection during a quiet evening"},
	{"goth rock", "electronic dance", "to fuel a mysterious midnight rave"},
	{"soft jazz", "hindustani classical", "to accompany deep thoughts in a candle-lit courtyard"},
}

const defaultScenario = "for a unique moment of emotional expression"

// MoodPhrase returns the descriptor for a mood, or the generic one.
func MoodPhrase(l mood.Label) string {
	if p, ok := moodPhrases[l]; ok {
		return p
	}
	return defaultMoodPhrase
}

// Vibe returns the descriptor for a genre. Unknown genres render as
// "elements of <genre>".
func Vibe(genre string) string {
	if v, ok := vibes[genre]; ok {
		return v
	}
	if genre == "" {
		genre = "unknown"
	}
	return "elements of " + genre
}

// Scenario returns the clause for the first scenario pair fully contained in
// genres, or the generic clause.
func Scenario(genres []string) string {
	set := make(map[string]bool, len(genres))
	for _, g := range genres {
		set[g] = true
	}
	for _, s := range scenarios {
		if set[s.a] && set[s.b] {
			return s.clause
		}
	}
	return defaultScenario
}
