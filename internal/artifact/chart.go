package artifact

import (
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/preference"
	"github.com/satindergrewal/tailortune/internal/prompt"
	"github.com/satindergrewal/tailortune/internal/spectrogram"
)

// Chart size of the preference bar chart.
const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// SortedTotals returns per-genre weight sums, lightest first. Equal sums keep
// first-appearance order.
func SortedTotals(records []preference.Record) []prompt.GenreTotal {
	totals := prompt.Totals(records)
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Weight < totals[j].Weight
	})
	return totals
}

// PreferencePlot builds a horizontal bar chart of the user's genre weights.
func PreferencePlot(records []preference.Record, userID string) (*plot.Plot, error) {
	totals := SortedTotals(records)
	if len(totals) == 0 {
		return nil, errors.Validation("no preferences to chart for user %s", userID)
	}

	values := make(plotter.Values, len(totals))
	names := make([]string, len(totals))
	for i, t := range totals {
		values[i] = t.Weight
		names[i] = t.Genre
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "build bar chart")
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)

	p := plot.New()
	p.Title.Text = "User " + userID + " Preferences"
	p.X.Label.Text = "Preference (%)"
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

// WritePreferences renders the bar chart to dir/preferences.png.
func (w *Writer) WritePreferences(records []preference.Record, userID, dir string) (string, error) {
	p, err := PreferencePlot(records, userID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, PreferencesFile)
	if err := spectrogram.SavePNG(p, path, chartWidth, chartHeight); err != nil {
		return "", err
	}
	return path, nil
}

// WriteImages renders the spectrogram of set.AudioPath and, when records is
// non-nil, the preference chart. Both are attempted even if one fails; the
// failures are joined. Paths of the images that were written are stored in
// set.
func (w *Writer) WriteImages(set *Set, userID string, records []preference.Record) error {
	var errs []error
	if path, err := w.WriteSpectrogram(set.AudioPath, userID, set.Dir); err != nil {
		errs = append(errs, err)
	} else {
		set.SpectrogramPath = path
	}
	if records != nil {
		if path, err := w.WritePreferences(records, userID, set.Dir); err != nil {
			errs = append(errs, err)
		} else {
			set.PreferencesPath = path
		}
	}
	return errors.Join(errs...)
}
