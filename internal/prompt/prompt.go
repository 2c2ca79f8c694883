// Package prompt turns a listener's mood and favorite genres into a text
// prompt for the synthesis backends.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satindergrewal/tailortune/internal/mood"
	"github.com/satindergrewal/tailortune/internal/preference"
)

// TopN is how many genres the weighted variant blends.
const TopN = 3

// Variant selects which prompt template is used.
type Variant string

const (
	// Aggregate blends the top genres of a weighted preference table.
	Aggregate Variant = "aggregate"
	// Pairwise blends a subject's two favorite genres.
	Pairwise Variant = "pairwise"
)

// Input is everything the builder needs for one listener.
type Input struct {
	Variant Variant
	Mood    mood.Label
	Genres  []string
}

// Build renders the prompt. It never fails: every lookup has a fallback.
func Build(in Input) string {
	phrase := MoodPhrase(in.Mood)

	if in.Variant == Pairwise {
		var g1, g2 string
		if len(in.Genres) > 0 {
			g1 = in.Genres[0]
		}
		if len(in.Genres) > 1 {
			g2 = in.Genres[1]
		}
		return fmt.Sprintf("Create %s track blending %s and %s, %s.",
			phrase, Vibe(g1), Vibe(g2), defaultScenario)
	}

	descs := make([]string, len(in.Genres))
	for i, g := range in.Genres {
		descs[i] = Vibe(g)
	}
	return fmt.Sprintf("Create %s track blending %s, %s. The piece should feel tailored to the listener's emotional landscape.",
		phrase, strings.Join(descs, ", "), Scenario(in.Genres))
}

// ForRecords classifies a user's weighted records and picks their top genres.
func ForRecords(records []preference.Record) Input {
	return Input{
		Variant: Aggregate,
		Mood:    mood.ClassifyRecords(records),
		Genres:  TopGenres(records, TopN),
	}
}

// ForPair classifies a subject's two favorite genres.
func ForPair(p preference.Pair) Input {
	return Input{
		Variant: Pairwise,
		Mood:    mood.Pairwise(p.Genre1, p.Genre2),
		Genres:  []string{p.Genre1, p.Genre2},
	}
}

// GenreTotal is the summed weight of one genre.
type GenreTotal struct {
	Genre  string
	Weight float64
}

// Totals sums weights per genre, keeping first-appearance order.
// Non-positive weights are skipped.
func Totals(records []preference.Record) []GenreTotal {
	idx := make(map[string]int)
	var out []GenreTotal
	for _, r := range records {
		if !(r.Weight > 0) {
			continue
		}
		i, ok := idx[r.Genre]
		if !ok {
			i = len(out)
			idx[r.Genre] = i
			out = append(out, GenreTotal{Genre: r.Genre})
		}
		out[i].Weight += r.Weight
	}
	return out
}

// TopGenres returns up to n genres ordered by total weight, heaviest first.
// Equal totals keep first-appearance order.
func TopGenres(records []preference.Record, n int) []string {
	totals := Totals(records)
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Weight > totals[j].Weight
	})
	if n >= 0 && len(totals) > n {
		totals = totals[:n]
	}
	genres := make([]string, len(totals))
	for i, t := range totals {
		genres[i] = t.Genre
	}
	return genres
}
