package evaluate

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHistoryFile(t *testing.T) {
	history, err := LoadHistoryFile(filepath.Join("testdata", "history.csv"))
	require.NoError(t, err)
	require.Len(t, history, 3)

	first := history[0]
	require.Equal(t, 5, first.Len())
	epoch, _ := first.ValueAt(0)
	want := time.Date(2017, time.January, 3, 0, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, float64(want), epoch)
	open, _ := first.ValueAt(1)
	assert.Equal(t, 2251.57, open)

	// The non-numeric High column is dropped, shifting later columns left.
	last := history[2]
	assert.Equal(t, 4, last.Len())
	low, _ := last.ValueAt(2)
	assert.Equal(t, 2260.45, low)
}

func TestLoadHistoryCSVErrors(t *testing.T) {
	_, err := LoadHistoryCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = LoadHistoryCSV(strings.NewReader("Date,Open\nnope,1\n"))
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = LoadHistoryFile(filepath.Join("testdata", "missing.csv"))
	assert.Error(t, err)
}

func TestParseHistoryDateCentury(t *testing.T) {
	epoch, err := parseHistoryDate("12/31/99")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC).UnixMilli(), epoch)
}
