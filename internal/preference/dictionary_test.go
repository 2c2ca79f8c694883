package preference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/tailortune/internal/errors"
)

const songList = `1 Tere Bina  Indian Semi-Classical  4:12
2 Night Drive   Deep House  5:01
3 short line
x Not A Number Ambient 3:00
4 Raag Yaman  Hindustani Classical 12:40
5 Something with no known label
6 Static Wings Electronic Dance 3:33
7 Bleak Cathedral Goth Rock 4:20
2 Night Drive (Edit) Indie 3:10
`

func TestBuildDictionary(t *testing.T) {
	d, err := BuildDictionary(strings.NewReader(songList))
	require.NoError(t, err)

	assert.Equal(t, Dictionary{
		1: "indian semi-classical",
		2: "indie",
		4: "hindustani classical",
		6: "electronic dance",
		7: "goth rock",
	}, d)
	assert.Equal(t, []int{1, 2, 4, 6, 7}, d.Indexes())
}

func TestMatchGenrePrefersLongerNames(t *testing.T) {
	g, ok := MatchGenre("12 Foo ELECTRONIC DANCE mix")
	require.True(t, ok)
	assert.Equal(t, "electronic dance", g)

	g, ok = MatchGenre("3 Progressive Instrumental Rock anthem")
	require.True(t, ok)
	assert.Equal(t, "progressive instrumental rock", g)

	_, ok = MatchGenre("nothing here")
	assert.False(t, ok)
}

const subjects = `Subject,TopGenre1,TopGenre2
s01,1,4
s02,6,7
s03,99,2.0
`

func TestLoadPairs(t *testing.T) {
	d, err := BuildDictionary(strings.NewReader(songList))
	require.NoError(t, err)

	pairs, err := LoadPairs(strings.NewReader(subjects), d)
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{UserID: "s01", Genre1: "indian semi-classical", Genre2: "hindustani classical"},
		{UserID: "s02", Genre1: "electronic dance", Genre2: "goth rock"},
		{UserID: "s03", Genre1: "", Genre2: "indie"},
	}, pairs)
}

func TestLoadPairsRejectsNonIntegerCode(t *testing.T) {
	_, err := LoadPairs(strings.NewReader("Subject,TopGenre1,TopGenre2\ns01,abc,2\n"), Dictionary{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrData))
	assert.Contains(t, err.Error(), "TopGenre1")

	_, err = LoadPairs(strings.NewReader("Subject,TopGenre1,TopGenre2\ns01,1,2.5\n"), Dictionary{})
	assert.True(t, errors.Is(err, errors.ErrData))
}

func TestLoadPairsMissingColumn(t *testing.T) {
	_, err := LoadPairs(strings.NewReader("Subject,TopGenre1\ns01,1\n"), Dictionary{})
	assert.True(t, errors.Is(err, errors.ErrData))
}

func TestParseDictionaryLine(t *testing.T) {
	idx, g, ok := parseDictionaryLine("7 some ambient tune text")
	require.True(t, ok)
	assert.Equal(t, 7, idx)
	assert.Equal(t, "ambient", g)

	_, _, ok = parseDictionaryLine("abc not a number")
	assert.False(t, ok)
	_, _, ok = parseDictionaryLine("8 ambient tune")
	assert.False(t, ok)
}
