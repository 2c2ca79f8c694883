package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/tailortune/internal/artifact"
)

const (
	prefsCSV = `UserID,Genre,Preference (%)
1,Deep House,40
1,Ambient,25
2,Soft Jazz,50
`
	subjectsCSV = `Subject,TopGenre1,TopGenre2
s1,1,2
s2,3,9
`
	genresTxt = `1 calm ambient drones and pads
2 new age meditation music here
3 deep house club grooves tonight
too short
x not a code ambient
`
)

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TAILORTUNE_LOG_LEVEL", "error")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := Execute(context.Background())
	return out.String(), err
}

func TestDictCommand(t *testing.T) {
	out, err := run(t, "dict", "--dictionary", writeFixture(t, "genres.txt", genresTxt))
	require.NoError(t, err)
	assert.Contains(t, out, "ambient")
	assert.Contains(t, out, "deep house")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestPromptCommand(t *testing.T) {
	out, err := run(t, "prompt", "--pairwise=false", "--input", writeFixture(t, "prefs.csv", prefsCSV))
	require.NoError(t, err)
	assert.Contains(t, out, "User 1")
	assert.Contains(t, out, "high-energy")
	assert.Contains(t, out, "Create a dreamy and atmospheric track blending")
}

func TestPromptCommandPairwise(t *testing.T) {
	out, err := run(t, "prompt", "--pairwise",
		"--input", writeFixture(t, "subjects.csv", subjectsCSV),
		"--dictionary", writeFixture(t, "genres.txt", genresTxt))
	require.NoError(t, err)
	assert.Contains(t, out, "User s1")
	assert.Contains(t, out, "elements of unknown")
}

func TestPromptCommandBadInput(t *testing.T) {
	_, err := run(t, "prompt", "--pairwise=false", "--input", writeFixture(t, "bad.csv", "UserID,Genre\n1,Indie\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Preference (%)")
}

func TestGenerateCommand(t *testing.T) {
	t.Setenv("TAILORTUNE_MAX_NEW_TOKENS", "50")
	t.Setenv("TAILORTUNE_OLLAMA_URL", "")
	out := t.TempDir()

	stdout, err := run(t, "generate", "--pairwise=false",
		"--input", writeFixture(t, "prefs.csv", prefsCSV),
		"--out", out, "--backend", "tone", "--no-progress", "--no-ledger")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 succeeded, 0 failed")

	manifests, err := artifact.List(out)
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.NotEmpty(t, manifests[0].Title)
	assert.FileExists(t, filepath.Join(out, "user_1", artifact.PreferencesFile))
}

func TestGenerateUnknownBackend(t *testing.T) {
	_, err := run(t, "generate", "--pairwise=false",
		"--input", writeFixture(t, "prefs.csv", prefsCSV),
		"--out", t.TempDir(), "--backend", "nope", "--no-ledger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestFailureReportedOnce(t *testing.T) {
	out, err := run(t, "generate", "--pairwise=false",
		"--input", writeFixture(t, "prefs.csv", prefsCSV),
		"--out", t.TempDir(), "--backend", "nope", "--no-ledger")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(out, "Command failed"))
	assert.NotContains(t, out, "Error:")
}

func TestFailureBeforeLoggerGoesToStderr(t *testing.T) {
	prev := log
	log = nil
	t.Cleanup(func() { log = prev })

	out, err := run(t, "prompt", "--bogus")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(out, "Error: unknown flag: --bogus"))
}
