package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
	"github.com/dohyunpark/autotrader/pkg/formulas"
)

// V2 is the trend-follow-with-volume strategy: a reverse-aligned moving
// average stack (5<20<60) disqualifies outright, since this family only
// buys confirmed uptrends. Three independent groups — trend, momentum,
// supply — each score within their own band before the sum clamps to
// [0,100].
type V2 struct{}

func (V2) Version() string  { return "v2" }
func (V2) MinDataBars() int { return 60 }

func (V2) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if frame.MAStatus == indicators.MAReverseAligned {
		return scoring.Result{
			Score:            0,
			Version:          "v2",
			Disqualified:     true,
			DisqualifyReason: "reverse-aligned (5 < 20 < 60)",
			Signals:          []string{"MA_REVERSE_ALIGNED"},
			Close:            frame.Close,
			ChangePct:        frame.ChangePct(),
			Volume:           frame.Volume,
			TradingValue:     frame.TradingValue,
		}
	}

	trend := 0
	var signals []string
	add := func(total *int, points int, signal string) {
		*total += points
		signals = append(signals, signal)
	}

	if frame.MAStatus == indicators.MAAligned {
		add(&trend, 5, "MA_ALIGNED")
	}
	switch {
	case frame.SMA20Slope >= 3:
		add(&trend, 15, "SMA20_SLOPE_STRONG")
	case frame.SMA20Slope >= 1.5:
		add(&trend, 10, "SMA20_SLOPE_MODERATE")
	case frame.SMA20Slope >= 0.5:
		add(&trend, 3, "SMA20_SLOPE_MILD")
	}
	if frame.MACD > 0 {
		add(&trend, 3, "MACD_POSITIVE")
	}
	if frame.SupertrendFlipUp {
		add(&trend, 7, "SUPERTREND_FLIP_BULLISH")
	}
	trend = clampInt(trend, 0, 30)

	momentum := 0
	switch {
	case frame.RSI14 >= 60 && frame.RSI14 <= 75:
		add(&momentum, 15, "RSI_SWEET_SPOT")
	case frame.RSI14 >= 50 && frame.RSI14 < 60:
		add(&momentum, 5, "RSI_HEALTHY")
	case frame.RSI14 > 80:
		if rsiRising(frame) {
			add(&momentum, 10, "RSI_POWER_BULL")
		} else {
			add(&momentum, -5, "RSI_PEAK_OUT")
		}
	case frame.RSI14 > 0 && frame.RSI14 < 30:
		add(&momentum, -10, "RSI_FALLING_KNIFE")
	}

	high60 := highestClose(frame, 60)
	if high60 > 0 {
		switch {
		case frame.Close >= high60:
			add(&momentum, 15, "BREAKOUT_60D_HIGH")
		case frame.Close >= high60*0.97:
			add(&momentum, 7, "NEAR_60D_HIGH")
		case frame.Close >= high60*0.95:
			add(&momentum, 3, "CLOSE_TO_60D_HIGH")
		}
	}
	momentum = clampInt(momentum, -10, 35)

	volume := 0
	switch {
	case frame.VolRatio >= 5:
		add(&volume, 20, "VOLUME_EXPLOSION")
	case frame.VolRatio >= 3:
		add(&volume, 12, "VOLUME_SURGE_3X")
	case frame.VolRatio >= 2:
		add(&volume, 5, "VOLUME_HIGH")
	}
	if extras.MarketCapKRW > 0 {
		turnover := frame.TradingValue / extras.MarketCapKRW
		switch {
		case turnover >= 0.05:
			add(&volume, 15, "TURNOVER_HIGH_5PCT")
		case turnover >= 0.02:
			add(&volume, 10, "TURNOVER_MID_2PCT")
		case turnover >= 0.01:
			add(&volume, 3, "TURNOVER_LOW_1PCT")
		case turnover < 0.002:
			add(&volume, -5, "TURNOVER_VERY_LOW")
		}
	} else {
		const billionKRW = 1_000_000_000.0
		switch {
		case frame.TradingValue >= 50*billionKRW:
			add(&volume, 15, "TRADING_VALUE_50B")
		case frame.TradingValue >= 10*billionKRW:
			add(&volume, 10, "TRADING_VALUE_10B")
		case frame.TradingValue >= 3*billionKRW:
			add(&volume, 3, "TRADING_VALUE_3B")
		case frame.TradingValue < 1*billionKRW:
			add(&volume, -5, "LOW_LIQUIDITY")
		}
	}
	volume = clampInt(volume, -10, 35)

	total := clampInt(trend+momentum+volume, 0, 100)

	return scoring.Result{
		Score:   total,
		Version: "v2",
		Signals: signals,
		Groups: map[string]int{
			"trend":    trend,
			"momentum": momentum,
			"volume":   volume,
		},
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

func rsiRising(frame indicators.Frame) bool {
	series := formulas.RSISeries(closesOf(frame), 14)
	if len(series) < 2 {
		return false
	}
	last, prev := series[len(series)-1], series[len(series)-2]
	return !isNaN(last) && !isNaN(prev) && last > prev
}

func isNaN(f float64) bool { return f != f }

func closesOf(frame indicators.Frame) []float64 {
	bars := frame.Bars()
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func highestClose(frame indicators.Frame, lookback int) float64 {
	bars := frame.Bars()
	if len(bars) == 0 {
		return 0
	}
	start := len(bars) - lookback
	if start < 0 {
		start = 0
	}
	max := bars[start].Close
	for _, b := range bars[start:] {
		if b.Close > max {
			max = b.Close
		}
	}
	return max
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
