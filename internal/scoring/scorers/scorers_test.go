package scorers

import (
	"testing"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(t *testing.T, n int, start, step float64) indicators.Frame {
	t.Helper()
	bars := make([]domain.PriceBar, n)
	price := start
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = domain.PriceBar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1_000_000,
		}
		price += step
	}
	series := domain.PriceSeries{Ticker: "005930", Market: "KOSPI", Bars: bars}
	frame, err := indicators.Compute(series)
	require.NoError(t, err)
	return frame
}

func TestV1_ScoreIsWithinBounds(t *testing.T) {
	frame := buildFrame(t, 70, 10000, 40)
	result := (V1{}).Score(frame, scoring.Extras{})
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
	assert.Equal(t, "v1", result.Version)
}

func TestV3_ScoreIsWithinBounds(t *testing.T) {
	frame := buildFrame(t, 70, 10000, 5)
	result := (V3{}).Score(frame, scoring.Extras{})
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
}

func TestV35_DisclosureBonusOnInstitutionStreak(t *testing.T) {
	frame := buildFrame(t, 70, 10000, 5)
	extras := scoring.Extras{InstitutionNetBuy5D: []float64{1, 2, 3, 4, 5}}
	result := (V35{}).Score(frame, extras)
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
	if !result.Disqualified {
		assert.Contains(t, result.Signals, "DISCLOSURE_INSTITUTION_CONFIRMED")
	}
}

func TestV4_ScoreIsWithinBounds(t *testing.T) {
	frame := buildFrame(t, 70, 10000, 30)
	result := (V4{}).Score(frame, scoring.Extras{})
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
}

func TestV5_NoDisqualifierField(t *testing.T) {
	frame := buildFrame(t, 70, 10000, 1)
	result := (V5{}).Score(frame, scoring.Extras{})
	assert.False(t, result.Disqualified)
	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
}

func TestV7_BelowMA60Disqualifies(t *testing.T) {
	frame := buildFrame(t, 70, 20000, -10)
	result := (V7{}).Score(frame, scoring.Extras{})
	assert.True(t, result.Disqualified)
}

func TestFourConsecutiveDown(t *testing.T) {
	bars := []domain.PriceBar{
		{Open: 100, Close: 95},
		{Open: 95, Close: 90},
		{Open: 90, Close: 85},
		{Open: 85, Close: 80},
	}
	assert.True(t, fourConsecutiveDown(bars))
	bars[1].Close = 96
	assert.False(t, fourConsecutiveDown(bars))
}
