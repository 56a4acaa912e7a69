package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectedVolume_OutsideMarketHours(t *testing.T) {
	evening := time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 1000.0, ProjectedVolume(1000, evening))
}

func TestProjectedVolume_EarlySessionIsDampened(t *testing.T) {
	// 30 minutes after open: naive factor would be 390/30=13, dampened to *0.7
	at0930 := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	got := ProjectedVolume(1000, at0930)
	want := 1000 * (390.0 / 30.0) * 0.7
	assert.InDelta(t, want, got, 0.5)
}

func TestProjectedVolume_LateSessionNoDampening(t *testing.T) {
	at1400 := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	got := ProjectedVolume(1000, at1400)
	want := 1000 * (390.0 / 300.0)
	assert.InDelta(t, want, got, 0.5)
}

func TestProjectedVolumeRatio_ZeroMA20(t *testing.T) {
	at1400 := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, ProjectedVolumeRatio(1000, 0, at1400))
}
