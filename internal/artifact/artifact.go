// Package artifact writes the per-user output files: the generated audio,
// its spectrogram, the preference chart and a JSON manifest.
package artifact

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/spectrogram"
)

// File names inside a user directory.
const (
	AudioFile       = "music.wav"
	SpectrogramFile = "spectrogram.png"
	PreferencesFile = "preferences.png"
	ManifestFile    = "track.json"
)

// Set lists the files written for one user. PreferencesPath is empty for the
// pairwise variant.
type Set struct {
	Dir             string
	AudioPath       string
	SpectrogramPath string
	PreferencesPath string
	ManifestPath    string
}

// Manifest describes one generated track.
type Manifest struct {
	UserID     string    `json:"user_id"`
	Variant    string    `json:"variant"`
	Mood       string    `json:"mood"`
	Genres     []string  `json:"genres"`
	Prompt     string    `json:"prompt"`
	Title      string    `json:"title,omitempty"`
	SampleRate int       `json:"sample_rate"`
	Duration   float64   `json:"duration_seconds"`
	RunID      string    `json:"run_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Writer places artifacts under Root/user_<id>.
type Writer struct {
	Root string
}

// NewWriter returns a writer rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// DirName returns the directory name used for userID. Characters other than
// letters, digits, '-', '_' and '.' become '_'. When that changes the id, a
// '~' and the fnv-1a hash of the raw id are appended, so distinct ids never
// share a directory.
func DirName(userID string) string {
	id := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, userID)
	if id == "" || strings.Trim(id, ".") == "" {
		id = "unknown"
	}
	if id != userID {
		h := fnv.New32a()
		h.Write([]byte(userID))
		id = fmt.Sprintf("%s~%08x", id, h.Sum32())
	}
	return "user_" + id
}

// Dir creates (if needed) and returns the directory for userID.
func (w *Writer) Dir(userID string) (string, error) {
	dir := filepath.Join(w.Root, DirName(userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.FileSystem(err, "create %s", dir)
	}
	return dir, nil
}

// WriteAudio writes clip to dir/music.wav.
func (w *Writer) WriteAudio(dir string, clip audio.Clip) (string, error) {
	path := filepath.Join(dir, AudioFile)
	if err := audio.WriteWAV(path, clip); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSpectrogram re-reads the WAV at audioPath and renders its mel
// spectrogram to dir/spectrogram.png.
func (w *Writer) WriteSpectrogram(audioPath, userID, dir string) (string, error) {
	clip, err := audio.ReadWAV(audioPath)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SpectrogramFile)
	if err := spectrogram.Render(clip.Mono(), clip.SampleRate, "Spectrogram for User "+userID, path); err != nil {
		return "", err
	}
	return path, nil
}

// WriteManifest writes m to dir/track.json.
func (w *Writer) WriteManifest(dir string, m Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeValidation, "encode manifest")
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.FileSystem(err, "write %s", path)
	}
	return path, nil
}

// ReadManifest loads dir/track.json.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, errors.FileSystem(err, "read manifest in %s", dir)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.Wrap(err, errors.CodeData, "decode manifest in %s", dir)
	}
	return m, nil
}

// List returns the manifests of every user directory under root, in
// directory name order. Directories without a readable manifest are skipped.
func List(root string) ([]Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.FileSystem(err, "read %s", root)
	}
	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "user_") {
			continue
		}
		m, err := ReadManifest(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
