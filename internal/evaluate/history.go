package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gaiaf/internal/genome"
)

// historyDateLayout is MM/dd/yy; two digit years are read as 20yy.
const historyDateLayout = "01/02/06"

// LoadHistoryCSV reads a price history with a header row. The first column is
// a date converted to epoch milliseconds at UTC midnight; the remaining
// columns are kept when numeric. Rows whose date does not parse are skipped.
func LoadHistoryCSV(r io.Reader) ([]*genome.Sequence, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var history []*genome.Sequence
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		if tick, ok := parseHistoryRow(record); ok {
			history = append(history, tick)
		}
	}
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	return history, nil
}

func LoadHistoryFile(path string) ([]*genome.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	history, err := LoadHistoryCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", path, err)
	}
	return history, nil
}

func parseHistoryRow(record []string) (*genome.Sequence, bool) {
	if len(record) < 2 {
		return nil, false
	}
	epoch, err := parseHistoryDate(strings.TrimSpace(record[0]))
	if err != nil {
		return nil, false
	}
	tick := genome.NewSequence(float64(epoch))
	for _, field := range record[1:] {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			continue
		}
		tick.Append("", value)
	}
	return tick, true
}

func parseHistoryDate(value string) (int64, error) {
	date, err := time.Parse(historyDateLayout, value)
	if err != nil {
		return 0, err
	}
	if date.Year() < 2000 {
		date = date.AddDate(100, 0, 0)
	}
	return date.UnixMilli(), nil
}
