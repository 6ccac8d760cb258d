package uptime

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in a store's local zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts HH:MM:SS or HH:MM.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute(), Second: parsed.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
}

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Seconds returns the offset from local midnight in seconds.
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// On places the time of day on the given local calendar date.
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, t.Second, 0, loc)
}

var (
	startOfDay = TimeOfDay{}
	endOfDay   = TimeOfDay{Hour: 23, Minute: 59, Second: 59}
)

// BusinessHourRule is a recurring weekly opening for one local weekday.
// DayOfWeek uses Monday = 0 ... Sunday = 6.
// EndLocal <= StartLocal denotes an overnight opening into the next day.
type BusinessHourRule struct {
	StoreID    string
	DayOfWeek  int
	StartLocal TimeOfDay
	EndLocal   TimeOfDay
}

// Validate checks basic rule invariants.
func (r BusinessHourRule) Validate() error {
	if r.StoreID == "" {
		return ErrEmptyStoreID
	}
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return fmt.Errorf("%w: %d", ErrInvalidDayOfWeek, r.DayOfWeek)
	}
	return nil
}

// Overnight reports whether the rule wraps past local midnight.
func (r BusinessHourRule) Overnight() bool {
	return r.EndLocal.Seconds() <= r.StartLocal.Seconds()
}

// DayIndex converts a Go weekday (Sunday = 0) to Monday = 0 numbering.
func DayIndex(weekday time.Weekday) int {
	return (int(weekday) + 6) % 7
}
