package finetune

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/satindergrewal/tailortune/internal/errors"
)

// Entry is one training clip.
type Entry struct {
	Path        string
	Description string
}

// Dataset is the validated training set.
type Dataset struct {
	CSVPath string
	// AudioFolder resolves relative paths in the CSV.
	AudioFolder string
	Entries     []Entry
	SampleRate int
	Duration   float64
}

// Len returns the number of clips.
func (d *Dataset) Len() int { return len(d.Entries) }

var (
	pathColumns = []string{"path", "file", "filename", "audio"}
	textColumns = []string{"description", "text", "caption", "prompt"}
)

// OpenDataset reads the metadata CSV and checks that every referenced audio
// file exists. Relative paths resolve against audioFolder. The file column is
// the first of path/file/filename/audio present in the header, else the
// first column.
func OpenDataset(csvPath, audioFolder string, sampleRate int, duration float64) (*Dataset, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, errors.FileSystem(err, "open %s", csvPath)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Data("%s: empty metadata file", csvPath)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeData, "read %s", csvPath)
	}
	pathIdx := columnIndex(header, pathColumns)
	if pathIdx < 0 {
		pathIdx = 0
	}
	textIdx := columnIndex(header, textColumns)

	ds := &Dataset{CSVPath: csvPath, AudioFolder: audioFolder, SampleRate: sampleRate, Duration: duration}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeData, "%s line %d", csvPath, line)
		}
		if pathIdx >= len(row) || strings.TrimSpace(row[pathIdx]) == "" {
			continue
		}

		p := strings.TrimSpace(row[pathIdx])
		if !filepath.IsAbs(p) {
			p = filepath.Join(audioFolder, p)
		}
		if _, err := os.Stat(p); err != nil {
			return nil, errors.Data("%s line %d: audio file %s not found", csvPath, line, p)
		}

		e := Entry{Path: p}
		if textIdx >= 0 && textIdx < len(row) {
			e.Description = strings.TrimSpace(row[textIdx])
		}
		ds.Entries = append(ds.Entries, e)
	}

	if len(ds.Entries) == 0 {
		return nil, errors.Data("%s: no training clips", csvPath)
	}
	return ds, nil
}

func columnIndex(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				return i
			}
		}
	}
	return -1
}
