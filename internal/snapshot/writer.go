package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/events"
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
	"github.com/dohyunpark/autotrader/internal/universe"
)

// PriceSource loads the recent OHLCV history for one ticker, including
// today's partial bar, as the market-data collaborator. Out of scope
// beyond this interface per the specification's §1 scope note.
type PriceSource interface {
	Bars(ctx context.Context, ticker string, lookback int) (domain.PriceSeries, error)
}

// ExtrasSource supplies the per-ticker side inputs some scorers need
// (foreign/institutional net-buy, leader/follower correlation maps,
// short-balance ratio) beyond the plain price series.
type ExtrasSource interface {
	Extras(ctx context.Context, ticker string) (scoring.Extras, error)
}

// Writer fans scoring out across the tradable universe on a bounded
// worker pool and publishes exactly one snapshot per tick (§4.4).
type Writer struct {
	Registry       *scoring.Registry
	Prices         PriceSource
	Extras         ExtrasSource
	Workers        int // default 40
	Lookback       int // default 120 bars
	LiquidityFloor float64
	OutDir         string
	Log            zerolog.Logger
	Events         *events.Manager // optional; nil disables event emission
}

// degradeThreshold is the backpressure rule in §5: if the per-tick fetch
// latency budget is exceeded, the universe is cut to tickers at least this
// multiple over the liquidity floor.
const degradeThreshold = 5.0

// Run computes one tick's snapshot for the given universe and publishes it
// atomically. deadline bounds total wall-clock for the fan-out; if it is
// exceeded partway through, the remaining tickers whose prior traded value
// is under degradeThreshold times the liquidity floor are dropped from this
// tick's snapshot and a ".degraded" marker is written alongside the CSV
// (§5 "SNAPSHOT_DEGRADED").
func (w *Writer) Run(ctx context.Context, tick time.Time, secs []universe.Security, deadline time.Duration) (Snapshot, error) {
	workers := w.Workers
	if workers <= 0 {
		workers = 40
	}
	lookback := w.Lookback
	if lookback <= 0 {
		lookback = 120
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	sort.Slice(secs, func(i, j int) bool { return secs[i].PrevAmount > secs[j].PrevAmount })

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	rows := make(map[string]Row, len(secs))
	degraded := false

	for _, sec := range secs {
		select {
		case <-ctx.Done():
			// Deadline hit: remaining tickers are dropped, and we only keep
			// doing so for tickers below the top-liquidity subset.
			if sec.PrevAmount < w.LiquidityFloor*degradeThreshold {
				mu.Lock()
				degraded = true
				mu.Unlock()
				continue
			}
		default:
		}

		sec := sec
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			row, ok, err := w.scoreOne(ctx, sec, lookback)
			if err != nil {
				w.Log.Warn().Str("ticker", sec.Code).Err(err).Msg("snapshot: scoring failed, dropping ticker")
				return
			}
			if !ok {
				return
			}
			mu.Lock()
			rows[sec.Code] = row
			mu.Unlock()
		}()
	}
	wg.Wait()

	path := Path(w.OutDir, tick)
	if err := WriteAtomic(path, tick, rows); err != nil {
		return Snapshot{}, fmt.Errorf("publish snapshot: %w", err)
	}
	if degraded {
		if err := writeMarker(path + ".degraded"); err != nil {
			w.Log.Warn().Err(err).Msg("failed to write degraded marker")
		}
		w.Log.Warn().Int("rows", len(rows)).Int("universe", len(secs)).Msg("SNAPSHOT_DEGRADED")
		if w.Events != nil {
			w.Events.Emit(events.SnapshotDegraded, "snapshot", map[string]interface{}{
				"rows": len(rows), "universe": len(secs), "tick": tick.Format(time.RFC3339),
			})
		}
	} else if w.Events != nil {
		w.Events.Emit(events.SnapshotPublished, "snapshot", map[string]interface{}{
			"rows": len(rows), "tick": tick.Format(time.RFC3339),
		})
	}

	return Snapshot{TickTS: tick, Rows: rows, Path: path}, nil
}

// scoreOne computes the IndicatorFrame once and runs every registered
// scorer against it, applying the skip rules in §4.4: <60 bars, zero prior
// volume, or prior traded-value below the liquidity floor drop the ticker
// from the snapshot silently (DataInsufficient, no alert).
func (w *Writer) scoreOne(ctx context.Context, sec universe.Security, lookback int) (Row, bool, error) {
	if sec.PrevAmount < w.LiquidityFloor {
		return Row{}, false, nil
	}

	series, err := w.Prices.Bars(ctx, sec.Code, lookback)
	if err != nil {
		return Row{}, false, err
	}
	if len(series.Bars) < 60 {
		return Row{}, false, nil
	}
	last, _ := series.LastBar()
	if len(series.Bars) >= 2 && series.Bars[len(series.Bars)-2].Volume == 0 {
		return Row{}, false, nil
	}

	frame, err := indicators.Compute(series)
	if err != nil {
		return Row{}, false, nil // DataInsufficient: drop silently
	}

	var extras scoring.Extras
	if w.Extras != nil {
		extras, _ = w.Extras.Extras(ctx, sec.Code)
	}
	extras.MarketCapKRW = sec.MarketCap

	results := w.Registry.ScoreAll(frame, extras)
	scores := make(map[string]int, len(w.Registry.Versions()))
	for _, version := range w.Registry.Versions() {
		scores[version] = 0
	}
	var signals []string
	for version, result := range results {
		scores[version] = result.Score
		signals = append(signals, result.Signals...)
	}

	changePct := 0.0
	if frame.PrevClose != 0 {
		changePct = (frame.Close - frame.PrevClose) / frame.PrevClose * 100
	}

	return Row{
		Code: sec.Code, Name: sec.Name, Market: domain.Market(sec.Market),
		Open: frame.Open, High: frame.High, Low: frame.Low, Close: frame.Close,
		PrevClose: frame.PrevClose, ChangePct: changePct, Volume: last.Volume,
		VolumeRatio: frame.VolRatio, PrevAmount: sec.PrevAmount, PrevMarketCap: sec.MarketCap,
		BelowSMA20: frame.SMA20 > 0 && frame.Close < frame.SMA20,
		Scores:     scores,
		Signals:    joinSignals(signals),
	}, true, nil
}

func joinSignals(signals []string) string {
	out := ""
	for i, s := range signals {
		if i > 0 {
			out += ";"
		}
		out += s
	}
	return out
}

func writeMarker(path string) error {
	return WriteAtomic(path, time.Time{}, nil)
}
