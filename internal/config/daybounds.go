package config

import (
	"fmt"
	"time"
)

// workDayStart is the hour a work day begins. Activity before it belongs to
// the previous day.
const workDayStart = 3

// DayBounds returns the UTC bounds of the work day named by date
// (YYYY-MM-DD) in the configured timezone: 03:00 on date through 02:59:59
// the next morning. Times are built in local wall-clock time so DST
// transitions land on the right instant.
func (c *Config) DayBounds(date string) (start, end time.Time, err error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid timezone: %w", err)
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date: %w", err)
	}

	start = time.Date(t.Year(), t.Month(), t.Day(), workDayStart, 0, 0, 0, loc).UTC()
	next := t.AddDate(0, 0, 1)
	end = time.Date(next.Year(), next.Month(), next.Day(), workDayStart-1, 59, 59, 0, loc).UTC()
	return start, end, nil
}
