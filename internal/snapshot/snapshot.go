// Package snapshot implements the per-tick ScoreSnapshot: the CSV file
// that fans scoring results for the entire tradable universe out to every
// user-tick running against the same wall-clock minute. A snapshot is the
// atomic publish unit described in §3 and §4.4 of the specification:
// written once via write-tmp-then-rename, then read-only.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// columns is the fixed column order the specification mandates (§6). Older
// snapshots missing trailing columns are tolerated on read.
var columns = []string{
	"code", "name", "market", "open", "high", "low", "close", "prev_close",
	"change_pct", "volume", "volume_ratio", "prev_amount", "prev_marcap",
	"buy_strength", "foreign_net", "inst_net", "rel_strength", "below_sma20",
	"v1", "v2", "v3", "v3.5", "v4", "v5", "v6", "v7", "v8", "v9_prob", "v10",
	"signals",
}

// scoreColumns identifies which columns hold a scoring version's integer
// score, in file order, keyed by the version string used elsewhere in the
// scoring package's Registry.
var scoreColumns = []string{"v1", "v2", "v3", "v3.5", "v4", "v5", "v6", "v7", "v8", "v10"}

// Row is one ticker's published state for a single tick.
type Row struct {
	Code          string
	Name          string
	Market        domain.Market
	Open          float64
	High          float64
	Low           float64
	Close         float64
	PrevClose     float64
	ChangePct     float64
	Volume        float64
	VolumeRatio   float64
	PrevAmount    float64
	PrevMarketCap float64
	BuyStrength   float64
	ForeignNet    float64
	InstNet       float64
	RelStrength   float64
	BelowSMA20    bool // today's close is below SMA-20, feeds the MA-20-break sell trigger
	Scores        map[string]int // keyed by version string, e.g. "v1", "v3.5"
	V9Prob        float64
	Signals       string // semicolon-joined signal tokens, "signals_v2" in §3's terminology
}

// ToSnapshotRow narrows a Row to the minimal view domain.DecisionPlugin and
// the policy evaluator need, avoiding a domain->snapshot import cycle.
func (r Row) ToSnapshotRow() domain.SnapshotRow {
	return domain.SnapshotRow{
		Ticker:      r.Code,
		Market:      r.Market,
		Close:       r.Close,
		PrevClose:   r.PrevClose,
		ChangePct:   r.ChangePct,
		Volume:      r.Volume,
		VolumeRatio: r.VolumeRatio,
		PrevAmount:  r.PrevAmount,
		BelowSMA20:  r.BelowSMA20,
		Scores:      r.Scores,
		Signals:     r.Signals,
	}
}

// Snapshot is one tick's complete, ticker-keyed publish.
type Snapshot struct {
	TickTS time.Time
	Rows   map[string]Row // keyed by Code
	Path   string
}

// Degraded reports whether this snapshot was written under the §5
// backpressure rule (reduced to the top-liquidity subset). The writer
// records this via a sidecar marker file; see Writer.Run.
func Degraded(path string) bool {
	_, err := os.Stat(path + ".degraded")
	return err == nil
}

// Path returns the snapshot path for a tick, <dir>/<yyyymmdd>_<hhmm>.csv.
func Path(dir string, tick time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", tick.Format("20060102"), tick.Format("1504")))
}

// Latest finds the most recently published snapshot for the given day and
// reads it, for callers (auto_trader) that process the latest tick rather
// than writing a new one. Lexical ordering of the hhmm suffix is sufficient
// since all files for one day share the yyyymmdd prefix.
func Latest(dir string, day time.Time) (Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Snapshot{}, err
	}
	prefix := day.Format("20060102") + "_"
	var best string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || !strings.HasPrefix(name, prefix) {
			continue
		}
		if name > best {
			best = name
		}
	}
	if best == "" {
		return Snapshot{}, fmt.Errorf("snapshot: no snapshot found for %s in %s", day.Format("20060102"), dir)
	}
	return Read(filepath.Join(dir, best))
}

// WriteAtomic encodes rows and publishes them via write-tmp-then-rename so
// readers never observe a partial file (INV-8).
func WriteAtomic(path string, tick time.Time, rows map[string]Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create tmp snapshot: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	codes := make([]string, 0, len(rows))
	for code := range rows {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if err := w.Write(encodeRow(rows[code])); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encodeRow(r Row) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	out := []string{
		r.Code, r.Name, string(r.Market),
		f(r.Open), f(r.High), f(r.Low), f(r.Close), f(r.PrevClose),
		f(r.ChangePct), f(r.Volume), f(r.VolumeRatio), f(r.PrevAmount), f(r.PrevMarketCap),
		f(r.BuyStrength), f(r.ForeignNet), f(r.InstNet), f(r.RelStrength), strconv.FormatBool(r.BelowSMA20),
	}
	// v1..v8, v9_prob, v10 — matches the header's fixed column order exactly.
	for _, v := range []string{"v1", "v2", "v3", "v3.5", "v4", "v5", "v6", "v7", "v8"} {
		out = append(out, strconv.Itoa(r.Scores[v]))
	}
	out = append(out, f(r.V9Prob), strconv.Itoa(r.Scores["v10"]), r.Signals)
	return out
}

// Read loads a snapshot file, tolerating a column set shorter than the
// current schema (older snapshots). Missing scoring columns decode as 0,
// matching the DSL's "missing scores evaluate as 0" rule.
func Read(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Snapshot{}, err
	}
	if len(records) == 0 {
		return Snapshot{}, fmt.Errorf("snapshot %s has no header", path)
	}
	header := records[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	tick, err := parseTickFromPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	rows := make(map[string]Row, len(records)-1)
	for _, rec := range records[1:] {
		row := decodeRow(rec, idx)
		rows[row.Code] = row
	}

	return Snapshot{TickTS: tick, Rows: rows, Path: path}, nil
}

func parseTickFromPath(path string) (time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".csv")
	return time.ParseInLocation("20060102_1504", base, time.Local)
}

func get(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func getFloat(rec []string, idx map[string]int, col string) float64 {
	v, _ := strconv.ParseFloat(get(rec, idx, col), 64)
	return v
}

func getInt(rec []string, idx map[string]int, col string) int {
	v, _ := strconv.Atoi(get(rec, idx, col))
	return v
}

func getBool(rec []string, idx map[string]int, col string) bool {
	v, _ := strconv.ParseBool(get(rec, idx, col))
	return v
}

func decodeRow(rec []string, idx map[string]int) Row {
	scores := make(map[string]int, len(scoreColumns))
	for _, v := range scoreColumns {
		scores[v] = getInt(rec, idx, v)
	}
	return Row{
		Code:          get(rec, idx, "code"),
		Name:          get(rec, idx, "name"),
		Market:        domain.Market(get(rec, idx, "market")),
		Open:          getFloat(rec, idx, "open"),
		High:          getFloat(rec, idx, "high"),
		Low:           getFloat(rec, idx, "low"),
		Close:         getFloat(rec, idx, "close"),
		PrevClose:     getFloat(rec, idx, "prev_close"),
		ChangePct:     getFloat(rec, idx, "change_pct"),
		Volume:        getFloat(rec, idx, "volume"),
		VolumeRatio:   getFloat(rec, idx, "volume_ratio"),
		PrevAmount:    getFloat(rec, idx, "prev_amount"),
		PrevMarketCap: getFloat(rec, idx, "prev_marcap"),
		BuyStrength:   getFloat(rec, idx, "buy_strength"),
		ForeignNet:    getFloat(rec, idx, "foreign_net"),
		InstNet:       getFloat(rec, idx, "inst_net"),
		RelStrength:   getFloat(rec, idx, "rel_strength"),
		BelowSMA20:    getBool(rec, idx, "below_sma20"),
		Scores:        scores,
		V9Prob:        getFloat(rec, idx, "v9_prob"),
		Signals:       get(rec, idx, "signals"),
	}
}

// ReadFresh loads the snapshot for tick if it exists and is no older than
// maxAge; otherwise it returns domain.ErrStaleSnapshot (or the underlying
// os error if the file is simply missing).
func ReadFresh(dir string, tick time.Time, maxAge time.Duration, now time.Time) (Snapshot, error) {
	path := Path(dir, tick)
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, err
	}
	if now.Sub(info.ModTime()) > maxAge {
		return Snapshot{}, domain.ErrStaleSnapshot
	}
	return Read(path)
}
