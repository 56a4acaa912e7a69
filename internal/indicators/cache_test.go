package indicators

import (
	"testing"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestCache_HitOnSecondCall(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewCache(10, 5*time.Minute, clock)
	s := series(130, time.Now().Add(-130*24*time.Hour), 100, 1)

	_, err := c.GetOrCompute(s, false)
	require.NoError(t, err)
	_, err = c.GetOrCompute(s, false)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.001)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewCache(10, time.Minute, clock)
	s := series(130, time.Now().Add(-130*24*time.Hour), 100, 1)

	_, err := c.GetOrCompute(s, false)
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = c.GetOrCompute(s, false)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCache_EvictsOldestBeyondMaxSize(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewCache(1, 5*time.Minute, clock)
	s1 := series(130, time.Now().Add(-130*24*time.Hour), 100, 1)
	s2 := s1
	s2.Ticker = "000660"

	_, err := c.GetOrCompute(s1, false)
	require.NoError(t, err)
	_, err = c.GetOrCompute(s2, false)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Stats().Size)

	_, err = c.GetOrCompute(s1, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.Stats().Hits, "s1 should have been evicted by s2")
}

func TestCache_InsufficientDataPropagates(t *testing.T) {
	c := NewCache(10, 5*time.Minute, nil)
	_, err := c.GetOrCompute(domain.PriceSeries{Ticker: "x"}, false)
	require.ErrorIs(t, err, domain.ErrDataInsufficient)
}
