// Package universe loads and filters the daily tradable-equity universe.
//
// The pre-market job (Filter) reads every listed security the market-data
// collaborator knows about and writes filtered_stocks_<yyyymmdd>.csv: the
// set of tickers every later tick treats as the investable universe. The
// intraday snapshot writer only ever reads this file; it never falls back
// to re-enumerating the full listing, matching the no-fallback contract in
// the specification.
package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Listing is one row of the raw listed-security feed the market-data
// collaborator supplies, before hard filters are applied.
type Listing struct {
	Code       string // 6-digit ticker code, zero-padded
	Name       string
	Market     string
	MarketCap  float64
	PrevAmount float64 // prior trading day's traded value (won)
	Stocks     int64   // shares outstanding
}

// Security is one row of the filtered, tradable universe.
type Security struct {
	Code       string
	Name       string
	Market     string
	MarketCap  float64
	PrevAmount float64
	Stocks     int64
}

// Filters holds the hard-filter floors and ceiling applied by Filter.
// MarketCapCeiling is an Open Question the specification leaves
// implementer-defined per deployment (§9): nil disables it.
type Filters struct {
	MinMarketCap     float64
	MinPrevAmount    float64
	MarketCapCeiling *float64
}

// DefaultFilters matches the floors used throughout the worked examples in
// the specification (a 1-trillion-won market-cap ceiling is available but
// left disabled by default, per the Open Question in §9).
func DefaultFilters() Filters {
	return Filters{
		MinMarketCap:  50_000_000_000,  // 50B KRW
		MinPrevAmount: 1_000_000_000,   // 1B KRW prior-day traded value
	}
}

// excludedNamePattern matches issuer names the hard filter rejects outright:
// SPACs, REITs, ETFs/ETNs, leveraged/inverse products, numbered blank-check
// vehicles, and names flagged for administrative/trading restriction.
var excludedNamePattern = regexp.MustCompile(
	`(?i)(spac|리츠|reit|etf|etn|인버스|inverse|레버리지|leverage|\d+호|관리종목|정리매매|투자주의|투자경고|투자위험|합병)`,
)

// isNonPreferred reports whether a ticker code's last digit identifies a
// common (non-preferred) share class. Korean listings encode share class in
// the trailing digit of the 6-digit code; '0' is common stock.
func isNonPreferred(code string) bool {
	if len(code) == 0 {
		return false
	}
	return code[len(code)-1] == '0'
}

// Passes applies the hard filters to one listing.
func (f Filters) Passes(l Listing) bool {
	if l.MarketCap < f.MinMarketCap {
		return false
	}
	if f.MarketCapCeiling != nil && l.MarketCap > *f.MarketCapCeiling {
		return false
	}
	if l.PrevAmount < f.MinPrevAmount {
		return false
	}
	if !isNonPreferred(l.Code) {
		return false
	}
	if excludedNamePattern.MatchString(l.Name) {
		return false
	}
	return true
}

// Filter runs the pre-market universe job: apply hard filters to every
// listing and write the survivors to filtered_stocks_<yyyymmdd>.csv under
// dir. date is in YYYYMMDD form. Returns the path written.
func Filter(listings []Listing, filters Filters, dir, date string, log zerolog.Logger) (string, error) {
	kept := make([]Security, 0, len(listings))
	for _, l := range listings {
		if filters.Passes(l) {
			kept = append(kept, Security{
				Code: l.Code, Name: l.Name, Market: l.Market,
				MarketCap: l.MarketCap, PrevAmount: l.PrevAmount, Stocks: l.Stocks,
			})
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("filtered_stocks_%s.csv", date))
	if err := WriteCSV(path, kept); err != nil {
		return "", fmt.Errorf("write universe file: %w", err)
	}

	log.Info().
		Int("listings", len(listings)).
		Int("kept", len(kept)).
		Str("path", path).
		Msg("universe filter complete")

	return path, nil
}

// WriteCSV writes the universe file with the fixed column order
// Code,Name,Market,Marcap,Amount,Stocks.
func WriteCSV(path string, securities []Security) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Code", "Name", "Market", "Marcap", "Amount", "Stocks"}); err != nil {
		return err
	}
	for _, s := range securities {
		err := w.Write([]string{
			s.Code, s.Name, s.Market,
			strconv.FormatFloat(s.MarketCap, 'f', -1, 64),
			strconv.FormatFloat(s.PrevAmount, 'f', -1, 64),
			strconv.FormatInt(s.Stocks, 10),
		})
		if err != nil {
			return err
		}
	}
	return w.Error()
}

// Load reads a previously-written universe file. Loading the same file
// twice yields the same in-memory set (round-trip / idempotence law in
// the specification's testable properties).
func Load(path string) ([]Security, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("universe file %s has no header", path)
	}

	out := make([]Security, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 6 {
			continue
		}
		marcap, _ := strconv.ParseFloat(row[3], 64)
		amount, _ := strconv.ParseFloat(row[4], 64)
		stocks, _ := strconv.ParseInt(row[5], 10, 64)
		out = append(out, Security{
			Code:       strings.TrimSpace(row[0]),
			Name:       row[1],
			Market:     row[2],
			MarketCap:  marcap,
			PrevAmount: amount,
			Stocks:     stocks,
		})
	}
	return out, nil
}

// LoadForDate builds the universe file path for date (YYYYMMDD) under dir
// and loads it. Returns an error satisfying os.IsNotExist if the pre-market
// job has not yet run for that date; callers must not fall back to
// enumerating the full listing.
func LoadForDate(dir, date string) ([]Security, error) {
	path := filepath.Join(dir, fmt.Sprintf("filtered_stocks_%s.csv", date))
	return Load(path)
}
