package universe

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func sampleListings() []Listing {
	return []Listing{
		{Code: "005930", Name: "Samsung Electronics", Market: "KOSPI", MarketCap: 400_000_000_000, PrevAmount: 5_000_000_000, Stocks: 100},
		{Code: "005931", Name: "Samsung Electronics Pref", Market: "KOSPI", MarketCap: 400_000_000_000, PrevAmount: 5_000_000_000, Stocks: 100}, // preferred, last digit != 0
		{Code: "100000", Name: "Tiny Corp", Market: "KOSDAQ", MarketCap: 1_000_000_000, PrevAmount: 100_000_000, Stocks: 10},                    // below floors
		{Code: "200000", Name: "Some REIT", Market: "KOSPI", MarketCap: 400_000_000_000, PrevAmount: 5_000_000_000, Stocks: 100},                // excluded name
		{Code: "300000", Name: "관리종목 Steel Co", Market: "KOSPI", MarketCap: 400_000_000_000, PrevAmount: 5_000_000_000, Stocks: 100},          // excluded name
	}
}

func TestFilterHardFilters(t *testing.T) {
	filters := DefaultFilters()
	var kept []Security
	for _, l := range sampleListings() {
		if filters.Passes(l) {
			kept = append(kept, Security{Code: l.Code})
		}
	}
	if len(kept) != 1 || kept[0].Code != "005930" {
		t.Fatalf("expected only 005930 to survive, got %+v", kept)
	}
}

func TestFilterWriteThenLoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	log := zerolog.Nop()

	path, err := Filter(sampleListings(), DefaultFilters(), dir, "20260731", log)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if filepath.Base(path) != "filtered_stocks_20260731.csv" {
		t.Fatalf("unexpected path %s", path)
	}

	first, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(first) != len(second) || len(first) != 1 {
		t.Fatalf("expected identical single-row loads, got %d and %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Fatalf("expected byte-identical reload, got %+v vs %+v", first[0], second[0])
	}
}

func TestLoadForDateMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadForDate(dir, "20260101"); err == nil {
		t.Fatal("expected error for missing universe file, got nil")
	}
}

func TestMarketCapCeiling(t *testing.T) {
	ceiling := 1_000_000_000_000.0
	filters := DefaultFilters()
	filters.MarketCapCeiling = &ceiling

	over := Listing{Code: "005930", Name: "Big Co", Market: "KOSPI", MarketCap: 2_000_000_000_000, PrevAmount: 5_000_000_000, Stocks: 100}
	if filters.Passes(over) {
		t.Fatal("expected listing above ceiling to be rejected when ceiling is set")
	}
}
