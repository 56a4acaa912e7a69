package snapshot

import (
	"os"
	"testing"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
)

func sampleRows() map[string]Row {
	return map[string]Row{
		"005930": {
			Code: "005930", Name: "Samsung Electronics", Market: domain.Market("KOSPI"),
			Open: 70000, High: 71000, Low: 69500, Close: 70500, PrevClose: 69000,
			ChangePct: 2.17, Volume: 1_000_000, VolumeRatio: 1.8, PrevAmount: 5_000_000_000,
			Scores: map[string]int{"v1": 55, "v2": 0, "v3": 40, "v3.5": 40, "v4": 30, "v5": 60, "v6": 10, "v7": 20, "v8": 5, "v10": 0},
			Signals: "MA_ALIGNED;BREAKOUT_60D_HIGH",
		},
	}
}

func TestWriteAtomicThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tick := time.Date(2026, 7, 31, 9, 30, 0, 0, time.Local)
	path := Path(dir, tick)

	if err := WriteAtomic(path, tick, sampleRows()); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file to be gone after rename")
	}

	snap, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	row, ok := snap.Rows["005930"]
	if !ok {
		t.Fatalf("expected row 005930 present")
	}
	if row.Scores["v1"] != 55 || row.Scores["v5"] != 60 {
		t.Fatalf("unexpected scores: %+v", row.Scores)
	}
	if row.Signals != "MA_ALIGNED;BREAKOUT_60D_HIGH" {
		t.Fatalf("unexpected signals: %q", row.Signals)
	}
}

func TestReadFreshRejectsStaleFile(t *testing.T) {
	dir := t.TempDir()
	tick := time.Date(2026, 7, 31, 9, 30, 0, 0, time.Local)
	path := Path(dir, tick)
	if err := WriteAtomic(path, tick, sampleRows()); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	old := time.Now().Add(-20 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	_, err := ReadFresh(dir, tick, 15*time.Minute, time.Now())
	if err != domain.ErrStaleSnapshot {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
}

func TestReadToleratesMissingTrailingColumns(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/20260731_0930.csv"
	content := "code,name,market,close\n005930,Samsung,KOSPI,70500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	snap, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	row := snap.Rows["005930"]
	if row.Close != 70500 {
		t.Fatalf("expected close 70500, got %v", row.Close)
	}
	if row.Scores["v1"] != 0 {
		t.Fatalf("expected missing score column to decode as 0, got %d", row.Scores["v1"])
	}
}

func TestLoadSameFileTwiceIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	tick := time.Date(2026, 7, 31, 9, 30, 0, 0, time.Local)
	path := Path(dir, tick)
	if err := WriteAtomic(path, tick, sampleRows()); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	a, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	b, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(a.Rows) != len(b.Rows) {
		t.Fatalf("expected identical row counts across reloads")
	}
}
