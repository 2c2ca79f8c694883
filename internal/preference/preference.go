// Package preference reads listening-preference tables.
//
// Two layouts are supported. The weighted layout has one row per (user,
// genre) pair with a percentage weight:
//
//	UserID,Genre,Preference (%)
//	1,Deep House,40
//	1,Ambient,25
//
// The pairwise layout has one row per subject with two numeric genre codes
// that are resolved through a Dictionary:
//
//	Subject,TopGenre1,TopGenre2
//	s01,7,12
package preference

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/satindergrewal/tailortune/internal/errors"
)

// Column names of the weighted layout.
const (
	ColUserID     = "UserID"
	ColGenre      = "Genre"
	ColPreference = "Preference (%)"
)

// Record is one user's weight for one genre.
type Record struct {
	UserID string
	Genre  string // trimmed, lowercase
	Weight float64
}

// Table holds records grouped by user. Users keep the order in which they
// first appear in the source.
type Table struct {
	order   []string
	records map[string][]Record
}

// Users returns the user ids in first-appearance order.
func (t *Table) Users() []string {
	return append([]string(nil), t.order...)
}

// Records returns the records of one user.
func (t *Table) Records(userID string) []Record {
	return t.records[userID]
}

// Len returns the number of users.
func (t *Table) Len() int {
	return len(t.order)
}

// Rows returns the number of records kept across all users.
func (t *Table) Rows() int {
	n := 0
	for _, recs := range t.records {
		n += len(recs)
	}
	return n
}

func (t *Table) add(r Record) {
	if t.records == nil {
		t.records = make(map[string][]Record)
	}
	if _, ok := t.records[r.UserID]; !ok {
		t.order = append(t.order, r.UserID)
	}
	t.records[r.UserID] = append(t.records[r.UserID], r)
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeData, "open preferences %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Load parses the weighted layout. Rows whose weight is not positive are
// dropped; an empty weight cell counts as missing and is dropped too. A
// missing column or a non-numeric weight is a data error.
func Load(r io.Reader) (*Table, error) {
	rows, cols, err := readTable(r, ColUserID, ColGenre, ColPreference)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	for i, row := range rows {
		line := i + 2 // header is line 1
		raw := strings.TrimSpace(field(row, cols[ColPreference]))
		if raw == "" {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return nil, errors.Data("line %d: %s %q is not a number", line, ColPreference, raw)
		}
		if !(w > 0) {
			continue
		}
		t.add(Record{
			UserID: strings.TrimSpace(field(row, cols[ColUserID])),
			Genre:  NormalizeGenre(field(row, cols[ColGenre])),
			Weight: w,
		})
	}
	return t, nil
}

// NormalizeGenre trims and lowercases a genre label.
func NormalizeGenre(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// readTable reads a CSV with a header row and checks that every required
// column is present. It returns the data rows and a column index.
func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.Data("empty table: no header row")
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeData, "read header")
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, errors.Data("missing required column %q", name)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeData, "read rows")
	}
	return rows, cols, nil
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
