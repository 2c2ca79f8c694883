package preference

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/satindergrewal/tailortune/internal/errors"
)

// Column names of the pairwise layout.
const (
	ColSubject   = "Subject"
	ColTopGenre1 = "TopGenre1"
	ColTopGenre2 = "TopGenre2"
)

// Pair is a subject's two favorite genres. A genre is empty when its code has
// no dictionary entry.
type Pair struct {
	UserID string
	Genre1 string
	Genre2 string
}

// LoadPairsFile opens path and calls LoadPairs.
func LoadPairsFile(path string, d Dictionary) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeData, "open subjects %s", path)
	}
	defer f.Close()
	return LoadPairs(f, d)
}

// LoadPairs parses the pairwise layout and resolves both codes through d.
// Pairs keep row order.
func LoadPairs(r io.Reader, d Dictionary) ([]Pair, error) {
	rows, cols, err := readTable(r, ColSubject, ColTopGenre1, ColTopGenre2)
	if err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		g1, err := resolveCode(d, field(row, cols[ColTopGenre1]))
		if err != nil {
			return nil, errors.Data("line %d: %s: %v", line, ColTopGenre1, err)
		}
		g2, err := resolveCode(d, field(row, cols[ColTopGenre2]))
		if err != nil {
			return nil, errors.Data("line %d: %s: %v", line, ColTopGenre2, err)
		}
		pairs = append(pairs, Pair{
			UserID: strings.TrimSpace(field(row, cols[ColSubject])),
			Genre1: g1,
			Genre2: g2,
		})
	}
	return pairs, nil
}

// resolveCode accepts integer codes written either as "7" or "7.0".
func resolveCode(d Dictionary, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return "", errors.Data("code %q is not an integer", raw)
		}
		code = int(f)
	}
	g, _ := d.Lookup(code)
	return g, nil
}
