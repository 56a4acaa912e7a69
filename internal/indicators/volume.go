package indicators

import "time"

const (
	marketOpenHour, marketOpenMinute   = 9, 0
	marketCloseHour, marketCloseMinute = 15, 30
	totalSessionMinutes                = 390 // 6h30m session length
)

// ProjectedVolume estimates the day's final volume from the volume traded
// so far, for use intraday before the session closes. Outside market hours
// it returns the bar's volume as-is. In the first 60 minutes the naive
// extrapolation is dampened by 0.7, since early-session volume is
// disproportionately front-loaded and a straight-line projection
// overshoots.
func ProjectedVolume(currentVolume float64, now time.Time) float64 {
	open := time.Date(now.Year(), now.Month(), now.Day(), marketOpenHour, marketOpenMinute, 0, 0, now.Location())
	close := time.Date(now.Year(), now.Month(), now.Day(), marketCloseHour, marketCloseMinute, 0, 0, now.Location())

	if now.Before(open) || !now.Before(close) {
		return currentVolume
	}

	elapsedMinutes := now.Sub(open).Minutes()
	if elapsedMinutes < 1 {
		elapsedMinutes = 1
	}

	var factor float64
	if elapsedMinutes < 60 {
		factor = (totalSessionMinutes / elapsedMinutes) * 0.7
	} else {
		factor = totalSessionMinutes / elapsedMinutes
	}
	return currentVolume * factor
}

// ProjectedVolumeRatio is ProjectedVolume(currentVolume, now) divided by the
// 20-day average volume, falling back to 1.0 if volMA20 isn't positive.
func ProjectedVolumeRatio(currentVolume, volMA20 float64, now time.Time) float64 {
	if volMA20 <= 0 {
		return 1.0
	}
	return ProjectedVolume(currentVolume, now) / volMA20
}
