package indicators

import (
	"testing"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, start time.Time, startPrice, step float64) domain.PriceSeries {
	bars := make([]domain.PriceBar, n)
	price := startPrice
	for i := 0; i < n; i++ {
		bars[i] = domain.PriceBar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000 + float64(i),
		}
		price += step
	}
	return domain.PriceSeries{Ticker: "005930", Market: "KOSPI", Bars: bars}
}

func TestCompute_InsufficientData(t *testing.T) {
	_, err := Compute(series(10, time.Now(), 100, 1))
	require.ErrorIs(t, err, domain.ErrDataInsufficient)
}

func TestCompute_UptrendProducesAlignedMAs(t *testing.T) {
	s := series(130, time.Now().Add(-130*24*time.Hour), 100, 1)
	frame, err := Compute(s)
	require.NoError(t, err)
	assert.Equal(t, MAAligned, frame.MAStatus)
	assert.Greater(t, frame.SMA5, frame.SMA20)
	assert.Greater(t, frame.SMA20, frame.SMA60)
	assert.Greater(t, frame.RSI14, 50.0)
}

func TestCompute_ChangePct(t *testing.T) {
	s := series(30, time.Now().Add(-30*24*time.Hour), 100, 0)
	s.Bars[len(s.Bars)-1].Close = 110
	frame, err := Compute(s)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, frame.ChangePct(), 0.01)
}

func TestFrame_ChangePct_NoPrevBar(t *testing.T) {
	f := Frame{Close: 100}
	assert.Equal(t, 0.0, f.ChangePct())
}
