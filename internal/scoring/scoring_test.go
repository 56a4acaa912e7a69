package scoring_test

import (
	"testing"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
	"github.com/dohyunpark/autotrader/internal/scoring/scorers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingSeries(n int, start, step float64) domain.PriceSeries {
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
	return domain.PriceSeries{Ticker: "005930", Market: "KOSPI", Bars: bars}
}

func newRegistry() *scoring.Registry {
	return scoring.NewRegistry(
		scorers.V1{}, scorers.V2{}, scorers.V3{}, scorers.V35{},
		scorers.V4{}, scorers.V5{}, scorers.V6{}, scorers.V7{},
		scorers.V8{}, scorers.V10{},
	)
}

func TestRegistry_VersionsSortedAndComplete(t *testing.T) {
	r := newRegistry()
	want := []string{"v1", "v10", "v2", "v3", "v3.5", "v4", "v5", "v6", "v7", "v8"}
	assert.Equal(t, want, r.Versions())
}

func TestRegistry_DuplicateVersionPanics(t *testing.T) {
	assert.Panics(t, func() {
		scoring.NewRegistry(scorers.V1{}, scorers.V1{})
	})
}

func TestRegistry_ScoreAll_SkipsShortHistory(t *testing.T) {
	r := newRegistry()
	s := risingSeries(30, 10000, 10)
	frame, err := indicators.Compute(s)
	require.NoError(t, err)
	require.Equal(t, 30, len(frame.Bars()))

	results := r.ScoreAll(frame, scoring.Extras{})
	// Every version except v10 (MinDataBars 20) requires 60 bars and must
	// be skipped rather than erroring on this 30-bar frame.
	_, ok := results["v10"]
	assert.True(t, ok)
	assert.NotContains(t, results, "v1")
	assert.NotContains(t, results, "v2")
	assert.Len(t, results, 1)
}

func TestV2_ReverseAlignmentDisqualifies(t *testing.T) {
	s := risingSeries(70, 20000, -50)
	frame, err := indicators.Compute(s)
	require.NoError(t, err)
	require.Equal(t, indicators.MAReverseAligned, frame.MAStatus)

	result := (scorers.V2{}).Score(frame, scoring.Extras{})
	assert.True(t, result.Disqualified)
	assert.Equal(t, 0, result.Score)
	assert.Contains(t, result.Signals, "MA_REVERSE_ALIGNED")
}

func TestV2_StrongUptrendScoresAboveDisqualifyFloor(t *testing.T) {
	s := risingSeries(70, 8000, 80)
	last := len(s.Bars) - 1
	s.Bars[last].Volume = 6_000_000
	s.Bars[last].Close = s.Bars[last-1].Close * 1.03
	frame, err := indicators.Compute(s)
	require.NoError(t, err)
	require.Equal(t, indicators.MAAligned, frame.MAStatus)

	result := (scorers.V2{}).Score(frame, scoring.Extras{})
	assert.False(t, result.Disqualified)
	assert.Greater(t, result.Score, 0)
	assert.Contains(t, result.Signals, "MA_ALIGNED")
}

func TestV6_AttachesExitPlanWhenNotDisqualified(t *testing.T) {
	s := risingSeries(70, 8000, 60)
	frame, err := indicators.Compute(s)
	require.NoError(t, err)

	result := (scorers.V6{}).Score(frame, scoring.Extras{})
	if !result.Disqualified {
		require.NotNil(t, result.ExitPlan)
		assert.Greater(t, result.ExitPlan.TargetPrice, result.ExitPlan.Entry)
		assert.Less(t, result.ExitPlan.StopPrice, result.ExitPlan.Entry)
	}
}

func TestV10_NoLeaderDisqualifies(t *testing.T) {
	s := risingSeries(25, 10000, 5)
	frame, err := indicators.Compute(s)
	require.NoError(t, err)

	result := (scorers.V10{}).Score(frame, scoring.Extras{})
	assert.True(t, result.Disqualified)
	assert.Equal(t, 0, result.Score)
}

func TestV10_StrongCorrelatedLeaderMoveRaisesScore(t *testing.T) {
	s := risingSeries(25, 10000, 2)
	frame, err := indicators.Compute(s)
	require.NoError(t, err)

	extras := scoring.Extras{
		LeaderChangePct:   map[string]float64{"000660": 6.0},
		LeaderCorrelation: map[string]float64{"000660": 0.9},
	}
	result := (scorers.V10{}).Score(frame, extras)
	assert.Contains(t, result.Signals, "LEADER_STRONG_MOVE")
	assert.Contains(t, result.Signals, "CORRELATION_HIGH")
	// 50 base + 35 leader-move tier + 25 correlation tier already exceeds
	// 100, so the total is clamped to 100.
	assert.Equal(t, 100, result.Score)
}

func TestV8_FallingKnifeDisqualifies(t *testing.T) {
	s := risingSeries(70, 20000, 0)
	last := len(s.Bars) - 1
	s.Bars[last].Close = s.Bars[last-1].Close * 0.92
	frame, err := indicators.Compute(s)
	require.NoError(t, err)

	result := (scorers.V8{}).Score(frame, scoring.Extras{})
	assert.True(t, result.Disqualified)
}
