package uptime

import "time"

// Tally is the uptime/downtime observed over a window's business intervals.
type Tally struct {
	Uptime   time.Duration
	Downtime time.Duration
}

// UptimeMinutes returns fractional minutes of uptime.
func (t Tally) UptimeMinutes() float64 { return t.Uptime.Minutes() }

// DowntimeMinutes returns fractional minutes of downtime.
func (t Tally) DowntimeMinutes() float64 { return t.Downtime.Minutes() }

// Total returns uptime + downtime.
func (t Tally) Total() time.Duration { return t.Uptime + t.Downtime }

// Accumulate integrates a store's status timeline over the business intervals
// of window. events must be sorted by timestamp and belong to one store.
//
// The status in force at window.Start comes from the latest event at or before
// it, or fallback when there is none. Events inside (window.Start, window.End]
// are change points; later events are ignored. Status and cursor carry over
// from one business interval to the next.
func Accumulate(events []StatusEvent, window Window, intervals []Interval, fallback Status) Tally {
	if len(intervals) == 0 {
		return Tally{}
	}

	current := fallback
	changes := make([]StatusEvent, 0, len(events))
	for _, evt := range events {
		if !evt.Timestamp.After(window.Start) {
			current = evt.Status
			continue
		}
		if evt.Timestamp.After(window.End) {
			break
		}
		changes = append(changes, evt)
	}

	var tally Tally
	accrue := func(status Status, d time.Duration) {
		if d <= 0 {
			return
		}
		if status == StatusActive {
			tally.Uptime += d
			return
		}
		tally.Downtime += d
	}

	next := 0
	for _, iv := range intervals {
		cursor := iv.Start
		if cursor.Before(window.Start) {
			cursor = window.Start
		}
		for next < len(changes) {
			cp := changes[next]
			if !cp.Timestamp.After(cursor) {
				current = cp.Status
				next++
				continue
			}
			if cp.Timestamp.After(iv.End) {
				break
			}
			accrue(current, cp.Timestamp.Sub(cursor))
			cursor = cp.Timestamp
			current = cp.Status
			next++
		}
		if cursor.Before(iv.End) {
			accrue(current, iv.End.Sub(cursor))
		}
	}
	return tally
}
