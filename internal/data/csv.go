// Package data loads historical daily bars from CSV files, one file per
// symbol, and hands them to the backtest as time-ordered sequences.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"metrade/internal/logging"
	"metrade/internal/types"
)

// requiredColumns are the CSV columns every data file must carry. Any
// additional numeric column is attached to the bars as a precomputed
// indicator series under its (lowercased) header name.
var requiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// timestampFormats are tried in order when parsing the timestamp column.
var timestampFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006/01/02 15:04:05",
}

// Source loads bar data from a directory of per-symbol CSV files.
type Source struct {
	dir    string
	logger *logging.Logger
}

// NewSource creates a CSV data source rooted at dir.
func NewSource(dir string, logger *logging.Logger) *Source {
	if logger == nil {
		logger = logging.NewComponentLogger("data")
	}
	return &Source{dir: dir, logger: logger}
}

// Load reads the bar sequence for one symbol, filtered to [start, end] when
// either bound is non-zero. Bars come back sorted by timestamp.
func (s *Source) Load(symbol string, start, end time.Time) ([]types.Bar, error) {
	// Try multiple CSV filename formats
	csvFiles := []string{
		filepath.Join(s.dir, symbol+".csv"),
		filepath.Join(s.dir, strings.ToLower(symbol)+".csv"),
		filepath.Join(s.dir, strings.ToUpper(symbol)+".csv"),
	}

	var file *os.File
	var err error
	for _, csvFile := range csvFiles {
		file, err = os.Open(csvFile)
		if err == nil {
			s.logger.Infof("Loading data from: %s", csvFile)
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("CSV file not found for symbol %s (tried: %v)", symbol, csvFiles)
	}
	defer file.Close()

	bars, err := s.parse(file, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no data for symbol %s in range", symbol)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	s.logger.Infof("Loaded %d bars for %s from %s to %s",
		len(bars), symbol,
		bars[0].Timestamp.Format("2006-01-02"),
		bars[len(bars)-1].Timestamp.Format("2006-01-02"))
	return bars, nil
}

// LoadUniverse loads every symbol in the universe. A symbol whose file is
// missing or unreadable is skipped with a warning; its absence from the map
// is what fails that symbol's run downstream.
func (s *Source) LoadUniverse(universe []string, start, end time.Time) map[string][]types.Bar {
	feeds := make(map[string][]types.Bar, len(universe))
	for _, symbol := range universe {
		bars, err := s.Load(symbol, start, end)
		if err != nil {
			s.logger.Warnf("Skipping %s: %v", symbol, err)
			continue
		}
		feeds[symbol] = bars
	}
	return feeds
}

// parse reads the CSV stream into bars. Malformed rows are skipped with a
// warning rather than failing the whole file.
func (s *Source) parse(r io.Reader, symbol string, start, end time.Time) ([]types.Bar, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns, extra, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var bars []types.Bar
	lineNumber := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record at line %d: %w", lineNumber, err)
		}
		lineNumber++

		if len(record) < len(header) {
			continue
		}

		bar, err := parseRecord(record, symbol, columns, extra)
		if err != nil {
			s.logger.Warnf("Skipping line %d due to parse error: %v", lineNumber, err)
			continue
		}

		if !start.IsZero() && bar.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Timestamp.After(end) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// mapHeader resolves the required column positions and collects any extra
// columns as named indicator series.
func mapHeader(header []string) (map[string]int, map[string]int, error) {
	columns := make(map[string]int, len(requiredColumns))
	extra := make(map[string]int)

	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" {
			continue
		}
		known := false
		for _, req := range requiredColumns {
			if name == req {
				columns[name] = i
				known = true
				break
			}
		}
		if !known {
			extra[name] = i
		}
	}

	for _, req := range requiredColumns {
		if _, ok := columns[req]; !ok {
			return nil, nil, fmt.Errorf("invalid CSV header: missing column %q (required: %v)", req, requiredColumns)
		}
	}
	return columns, extra, nil
}

// parseRecord parses a single CSV record into a bar.
func parseRecord(record []string, symbol string, columns, extra map[string]int) (types.Bar, error) {
	var timestamp time.Time
	var err error

	timestampStr := strings.TrimSpace(record[columns["timestamp"]])
	for _, format := range timestampFormats {
		timestamp, err = time.Parse(format, timestampStr)
		if err == nil {
			break
		}
	}
	if err != nil {
		return types.Bar{}, fmt.Errorf("invalid timestamp format: %s", timestampStr)
	}

	fields := make(map[string]float64, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		value, err := strconv.ParseFloat(strings.TrimSpace(record[columns[name]]), 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("invalid %s value: %s", name, record[columns[name]])
		}
		fields[name] = value
	}

	open, high := fields["open"], fields["high"]
	low, close := fields["low"], fields["close"]
	if high < low || high < open || high < close || low > open || low > close {
		return types.Bar{}, fmt.Errorf("invalid OHLC relationships: O=%.2f H=%.2f L=%.2f C=%.2f", open, high, low, close)
	}

	bar := types.NewBar(symbol, timestamp, open, high, low, close, fields["volume"])
	for name, idx := range extra {
		raw := strings.TrimSpace(record[idx])
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		bar.SetIndicator(name, value)
	}
	return bar, nil
}
