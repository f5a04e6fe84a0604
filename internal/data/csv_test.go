package data

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestLoadDailyBars(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL.csv", `timestamp,open,high,low,close,volume
2024-01-02,184.0,186.0,183.0,185.5,50000000
2024-01-03,185.0,187.5,184.5,186.0,42000000
2024-01-04,186.5,188.0,185.0,187.2,39000000
`)

	source := NewSource(dir, nil)
	bars, err := source.Load("AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	if bars[0].Close != 185.5 || bars[0].Symbol != "AAPL" {
		t.Fatalf("first bar = %+v", bars[0])
	}
	if !bars[0].Timestamp.Before(bars[1].Timestamp) {
		t.Fatal("bars not sorted by timestamp")
	}
}

func TestLoadDateRangeFilter(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL.csv", `timestamp,open,high,low,close,volume
2024-01-02,100,101,99,100,1000
2024-01-03,100,101,99,100,1000
2024-01-04,100,101,99,100,1000
2024-01-05,100,101,99,100,1000
`)

	source := NewSource(dir, nil)
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	bars, err := source.Load("AAPL", start, end)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars in range, want 2", len(bars))
	}
}

func TestLoadExtraColumnsBecomeIndicators(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "msft.csv", `timestamp,open,high,low,close,volume,sma_50,rsi_14
2024-01-02,370,372,368,371,20000000,365.2,61.5
2024-01-03,371,374,370,373,18000000,,62.1
`)

	source := NewSource(dir, nil)
	bars, err := source.Load("MSFT", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := bars[0].Indicator("sma_50"); got != 365.2 {
		t.Fatalf("sma_50 = %f, want 365.2", got)
	}
	if got := bars[0].Indicator("rsi_14"); got != 61.5 {
		t.Fatalf("rsi_14 = %f, want 61.5", got)
	}
	// An empty cell reads back as NaN, same as a warm-up value.
	if !math.IsNaN(bars[1].Indicator("sma_50")) {
		t.Fatalf("empty cell = %f, want NaN", bars[1].Indicator("sma_50"))
	}
}

func TestLoadRejectsBadHeader(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BAD.csv", `date,o,h,l,c,v
2024-01-02,1,2,0.5,1.5,100
`)

	source := NewSource(dir, nil)
	if _, err := source.Load("BAD", time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected header validation error")
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL.csv", `timestamp,open,high,low,close,volume
2024-01-02,100,101,99,100,1000
not-a-date,100,101,99,100,1000
2024-01-03,100,90,99,100,1000
2024-01-04,100,101,99,100,1000
`)

	source := NewSource(dir, nil)
	bars, err := source.Load("AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// The bad timestamp and the high<low row are dropped.
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
}

func TestLoadMissingFile(t *testing.T) {
	source := NewSource(t.TempDir(), nil)
	if _, err := source.Load("NOPE", time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadUniverseSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA.csv", `timestamp,open,high,low,close,volume
2024-01-02,10,11,9,10,100
`)

	source := NewSource(dir, nil)
	feeds := source.LoadUniverse([]string{"AAA", "BBB"}, time.Time{}, time.Time{})
	if len(feeds) != 1 {
		t.Fatalf("got %d feeds, want 1", len(feeds))
	}
	if _, ok := feeds["AAA"]; !ok {
		t.Fatal("AAA feed missing")
	}
	if _, ok := feeds["BBB"]; ok {
		t.Fatal("BBB must be absent, its file does not exist")
	}
}
