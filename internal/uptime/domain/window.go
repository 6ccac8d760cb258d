package uptime

import "time"

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates start < end.
func NewWindow(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// Duration returns the window length, or zero when empty.
func (w Window) Duration() time.Duration {
	if !w.Start.Before(w.End) {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Windows groups the three trailing windows sharing one anchor.
type Windows struct {
	Anchor time.Time
	Hour   Window
	Day    Window
	Week   Window
}

// Trailing window lengths.
const (
	HourSpan = time.Hour
	DaySpan  = 24 * time.Hour
	WeekSpan = 7 * 24 * time.Hour
)

// Anchor returns the maximum observed timestamp across all stores.
func Anchor(events []StatusEvent) (time.Time, error) {
	if len(events) == 0 {
		return time.Time{}, ErrNoData
	}
	anchor := events[0].Timestamp
	for _, evt := range events[1:] {
		if evt.Timestamp.After(anchor) {
			anchor = evt.Timestamp
		}
	}
	return anchor.UTC(), nil
}

// WindowsAt derives the hour/day/week windows ending at anchor.
func WindowsAt(anchor time.Time) Windows {
	anchor = anchor.UTC()
	return Windows{
		Anchor: anchor,
		Hour:   Window{Start: anchor.Add(-HourSpan), End: anchor},
		Day:    Window{Start: anchor.Add(-DaySpan), End: anchor},
		Week:   Window{Start: anchor.Add(-WeekSpan), End: anchor},
	}
}
