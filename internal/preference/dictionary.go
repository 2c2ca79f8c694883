package preference

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/satindergrewal/tailortune/internal/errors"
)

// KnownGenres are the labels the dictionary builder looks for, in match
// priority order. A name that contains another name comes first.
var KnownGenres = []string{
	"progressive instrumental rock",
	"indian semi-classical",
	"hindustani classical",
	"electronic dance",
	"electronics",
	"indian folk",
	"deep house",
	"goth rock",
	"soft jazz",
	"new age",
	"ambient",
	"indie",
}

// Dictionary maps a song index to a normalized genre. It is built once and
// only read afterwards.
type Dictionary map[int]string

// Lookup returns the genre for code, or "" and false.
func (d Dictionary) Lookup(code int) (string, bool) {
	g, ok := d[code]
	return g, ok
}

// Indexes returns the song indexes in ascending order.
func (d Dictionary) Indexes() []int {
	idx := make([]int, 0, len(d))
	for k := range d {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// LoadDictionaryFile opens path and calls BuildDictionary.
func LoadDictionaryFile(path string) (Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeData, "open dictionary %s", path)
	}
	defer f.Close()
	return BuildDictionary(f)
}

// BuildDictionary scans free-text lines of the form
//
//	<index> ... <text containing a known genre> ...
//
// Lines with fewer than four whitespace tokens, a non-integer first token, or
// no known genre are skipped. When an index repeats, the later line wins.
func BuildDictionary(r io.Reader) (Dictionary, error) {
	d := make(Dictionary)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		idx, genre, ok := parseDictionaryLine(sc.Text())
		if ok {
			d[idx] = genre
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeData, "read dictionary")
	}
	return d, nil
}

func parseDictionaryLine(line string) (int, string, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 4 {
		return 0, "", false
	}
	idx, err := strconv.Atoi(tokens[0])
	if err != nil {
		return 0, "", false
	}
	genre, ok := MatchGenre(line)
	if !ok {
		return 0, "", false
	}
	return idx, genre, true
}

// MatchGenre returns the first entry of KnownGenres that occurs in text,
// ignoring case.
func MatchGenre(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, g := range KnownGenres {
		if strings.Contains(lower, g) {
			return g, true
		}
	}
	return "", false
}
