// Package forecast reduces raw 3-hour forecast slots to one representative
// record per calendar date.
package forecast

import (
	"sort"
	"time"

	"github.com/stef-codes/30days-weather-dashboard/internal/models"
)

// midday is the target time-of-day for picking a day's representative slot.
const midday = 12 * time.Hour

// DailyRecords collapses 3-hour forecast entries into at most one record per
// calendar date. When several entries share a date, the one whose
// time-of-day is closest to 12:00 wins; an exact tie keeps the earlier
// entry. This is a deterministic pick, not an aggregation. The result is
// sorted by date ascending.
func DailyRecords(city string, entries []models.ForecastEntry) []models.ForecastRecord {
	best := make(map[string]models.ForecastEntry)
	for _, e := range entries {
		date := e.At.Format("2006-01-02")
		cur, ok := best[date]
		if !ok || closerToMidday(e.At, cur.At) {
			best[date] = e
		}
	}

	records := make([]models.ForecastRecord, 0, len(best))
	for date, e := range best {
		records = append(records, models.ForecastRecord{
			City:        city,
			Date:        date,
			Temperature: e.Temperature,
			FeelsLike:   e.FeelsLike,
			Humidity:    e.Humidity,
			Conditions:  e.Conditions,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
	return records
}

// closerToMidday reports whether candidate is strictly closer to 12:00 than
// current, comparing time-of-day only.
func closerToMidday(candidate, current time.Time) bool {
	return middayDistance(candidate) < middayDistance(current)
}

func middayDistance(t time.Time) time.Duration {
	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	d := sinceMidnight - midday
	if d < 0 {
		d = -d
	}
	return d
}
