// Package indicators computes the technical-indicator set every scoring
// strategy reads from, and caches the result per (ticker, bar timestamp)
// so a tick that runs all ten strategy versions over the same universe
// only pays for the talib/gonum math once per ticker.
package indicators

import (
	"math"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/pkg/formulas"
)

// MAStatus is the three-way read of a ticker's moving-average stack.
type MAStatus string

const (
	MAAligned        MAStatus = "aligned"         // SMA5 > SMA20 > SMA60
	MAReverseAligned MAStatus = "reverse_aligned"  // SMA5 < SMA20 < SMA60
	MAPartial        MAStatus = "partial"
)

// Frame is the typed indicator set for one ticker's price series as of its
// last bar. Each field is the field name's indicator computed over Closes
// (or High/Low/Close/Volume as noted); fields stay at their zero value when
// the series is too short to compute them, so callers must gate on the
// series length (see MinBarsForFullFrame) rather than trust a zero as a
// real reading.
type Frame struct {
	Ticker string
	AsOf   int64 // unix seconds of the last bar, used as the cache key's second half

	Close     float64
	PrevClose float64
	Open      float64
	High      float64
	Low       float64
	Volume    float64

	SMA5, SMA10, SMA20, SMA60, SMA120 float64
	MAStatus                          MAStatus
	SMA20Slope                        float64 // 5-bar % change of SMA20, 0 if < 6 bars

	RSI14 float64

	MACD, MACDSignal, MACDHist float64

	BBUpper, BBMiddle, BBLower, BBWidth, BBPosition float64

	VolMA5, VolMA20, VolRatio float64

	OBV, OBVMA20 float64

	ATR14 float64

	Supertrend          float64
	SupertrendDirection formulas.SupertrendDirection
	SupertrendFlipUp    bool

	StochK, StochD         float64
	StochRSIK, StochRSID   float64

	CandleBodyPct float64
	TradingValue  float64 // Close * Volume, i.e. won-denominated turnover for the bar

	// bars is retained so scorers needing more than this struct's summary
	// fields (e.g. a lookback window for breakout checks) can still reach
	// the raw series without recomputing it.
	bars []domain.PriceBar
}

// Bars exposes the raw price bars the frame was computed from, oldest first.
func (f Frame) Bars() []domain.PriceBar { return f.bars }

// MinBarsForFullFrame is the shortest series every field in Frame can be
// computed from; series shorter than this still produce a Frame, with
// SMA120 left at zero. Below 60 bars SMA60 is also zero and MAStatus stays
// MAPartial; below 35 bars the MACD fields stay zero.
const MinBarsForFullFrame = 120

// Compute derives a Frame from a price series. Returns domain.ErrDataInsufficient
// if the series has fewer than 20 bars, matching the floor the original
// indicator set requires before any of it is meaningful.
func Compute(series domain.PriceSeries) (Frame, error) {
	bars := series.Bars
	if len(bars) < 20 {
		return Frame{}, domain.ErrDataInsufficient
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()
	last := bars[len(bars)-1]

	f := Frame{
		Ticker:       series.Ticker,
		AsOf:         last.Timestamp.Unix(),
		Close:        last.Close,
		Open:         last.Open,
		High:         last.High,
		Low:          last.Low,
		Volume:       last.Volume,
		MAStatus:     MAPartial,
		TradingValue: last.Close * last.Volume,
		bars:         bars,
	}
	if len(bars) >= 2 {
		f.PrevClose = bars[len(bars)-2].Close
	}
	if last.Open != 0 {
		f.CandleBodyPct = (last.Close - last.Open) / last.Open * 100
	}

	if v := formulas.SMA(closes, 5); v != nil {
		f.SMA5 = *v
	}
	if v := formulas.SMA(closes, 10); v != nil {
		f.SMA10 = *v
	}
	if v := formulas.SMA(closes, 20); v != nil {
		f.SMA20 = *v
	}
	if v := formulas.SMA(closes, 60); v != nil {
		f.SMA60 = *v
	}
	if v := formulas.SMA(closes, 120); v != nil {
		f.SMA120 = *v
	}

	if len(bars) >= 60 {
		switch {
		case f.SMA5 > f.SMA20 && f.SMA20 > f.SMA60:
			f.MAStatus = MAAligned
		case f.SMA5 < f.SMA20 && f.SMA20 < f.SMA60:
			f.MAStatus = MAReverseAligned
		default:
			f.MAStatus = MAPartial
		}
	}

	if len(bars) >= 6 {
		sma20Series := formulas.SMASeries(closes, 20)
		if len(sma20Series) >= 6 {
			prior := sma20Series[len(sma20Series)-6]
			if prior > 0 {
				f.SMA20Slope = (f.SMA20 - prior) / prior * 100
			}
		}
	}

	if v := formulas.RSI(closes, 14); v != nil {
		f.RSI14 = *v
	}

	if m := formulas.CalculateMACD(closes, 12, 26, 9); m != nil {
		f.MACD, f.MACDSignal, f.MACDHist = m.Value, m.Signal, m.Histogram
	}

	if bb := formulas.CalculateBollingerBands(closes, 20, 2); bb != nil {
		f.BBUpper, f.BBMiddle, f.BBLower, f.BBWidth = bb.Upper, bb.Middle, bb.Lower, bb.Width
		bbRange := bb.Upper - bb.Lower
		if bbRange > 0 {
			f.BBPosition = (f.Close - bb.Lower) / bbRange
		} else {
			f.BBPosition = 0.5
		}
	}

	if v := formulas.SMA(volumes, 5); v != nil {
		f.VolMA5 = *v
	}
	if v := formulas.SMA(volumes, 20); v != nil {
		f.VolMA20 = *v
	}
	if f.VolMA20 > 0 {
		f.VolRatio = f.Volume / f.VolMA20
	} else {
		f.VolRatio = 1.0
	}

	obvSeries := formulas.OBV(closes, volumes)
	if len(obvSeries) > 0 {
		f.OBV = obvSeries[len(obvSeries)-1]
		if ma := formulas.SMA(obvSeries, 20); ma != nil {
			f.OBVMA20 = *ma
		}
	}

	if v := formulas.ATR(highs, lows, closes, 14); v != nil {
		f.ATR14 = *v
	}

	if st, dir, ok := formulas.Supertrend(highs, lows, closes, 10, 3); ok {
		f.Supertrend, f.SupertrendDirection = st, dir
		f.SupertrendFlipUp = formulas.SupertrendFlippedBullish(highs, lows, closes, 10, 3)
	}

	if k, d := formulas.Stoch(highs, lows, closes, 14, 3, 3); k != nil && d != nil {
		f.StochK, f.StochD = *k, *d
	}
	if k, d := formulas.StochRSI(closes, 14, 14, 3, 3); k != nil && d != nil {
		f.StochRSIK, f.StochRSID = *k, *d
	}

	return f, nil
}

// ChangePct returns the percent change of Close over PrevClose, or 0 if
// PrevClose is unavailable (first bar of a series).
func (f Frame) ChangePct() float64 {
	if f.PrevClose == 0 {
		return 0
	}
	return (f.Close - f.PrevClose) / f.PrevClose * 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
