package uptime

import (
	"sort"
	"time"
)

// Interval is a half-open UTC business interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	if !i.Start.Before(i.End) {
		return 0
	}
	return i.End.Sub(i.Start)
}

// TotalDuration sums interval lengths.
func TotalDuration(intervals []Interval) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}

// Projector turns weekly local rules into UTC business intervals.
type Projector struct {
	locations   *LocationCache
	defaultOpen bool
}

// NewProjector constructs a Projector. When defaultOpen is true a store
// without rules is open for the whole window, otherwise it is never open.
func NewProjector(locations *LocationCache, defaultOpen bool) *Projector {
	if locations == nil {
		locations = NewLocationCache()
	}
	return &Projector{locations: locations, defaultOpen: defaultOpen}
}

// Project resolves the store timezone and projects its rules onto window.
// It returns ErrInvalidTimezone when the zone name cannot be loaded.
func (p *Projector) Project(storeID, timezone string, rules []BusinessHourRule, window Window) ([]Interval, error) {
	if !window.Start.Before(window.End) {
		return nil, nil
	}
	if len(rules) == 0 {
		if !p.defaultOpen {
			return nil, nil
		}
		return []Interval{{Start: window.Start, End: window.End}}, nil
	}
	loc, err := p.locations.Resolve(timezone)
	if err != nil {
		return nil, err
	}
	owned := rules[:0:0]
	for _, rule := range rules {
		if rule.StoreID == "" || rule.StoreID == storeID {
			owned = append(owned, rule)
		}
	}
	return ProjectBusinessHours(window, loc, owned), nil
}

// ProjectBusinessHours returns the ordered, pairwise disjoint sub-intervals of
// window during which the rules say the store is open. An empty rule set means
// open for the whole window.
//
// Overnight rules are split at local midnight so no local interval crosses a
// calendar day. The local day before window.Start is visited too, which picks
// up the after-midnight part of an overnight rule that began the previous day.
func ProjectBusinessHours(window Window, loc *time.Location, rules []BusinessHourRule) []Interval {
	if !window.Start.Before(window.End) {
		return nil
	}
	if len(rules) == 0 {
		return []Interval{{Start: window.Start, End: window.End}}
	}
	if loc == nil {
		loc = time.UTC
	}

	var byDay [7]*BusinessHourRule
	for i := range rules {
		rule := rules[i]
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			continue
		}
		byDay[rule.DayOfWeek] = &rule
	}

	localStart := window.Start.In(loc)
	localEnd := window.End.In(loc)
	// Civil dates are walked in UTC so DST never skews the day step.
	first := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	last := time.Date(localEnd.Year(), localEnd.Month(), localEnd.Day(), 0, 0, 0, 0, time.UTC)

	var out []Interval
	add := func(start, end time.Time) {
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(window.End) {
			end = window.End
		}
		if start.Before(end) {
			out = append(out, Interval{Start: start.UTC(), End: end.UTC()})
		}
	}

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		rule := byDay[DayIndex(day.Weekday())]
		if rule == nil {
			continue
		}
		y, m, d := day.Date()
		if !rule.Overnight() {
			add(rule.StartLocal.On(y, m, d, loc), rule.EndLocal.On(y, m, d, loc))
			continue
		}
		add(rule.StartLocal.On(y, m, d, loc), endOfDay.On(y, m, d, loc))
		ny, nm, nd := day.AddDate(0, 0, 1).Date()
		add(startOfDay.On(ny, nm, nd, loc), rule.EndLocal.On(ny, nm, nd, loc))
	}

	return disjoint(out)
}

// disjoint sorts by start and trims any overlap off the later interval.
// Intervals are never merged, even when they touch.
func disjoint(intervals []Interval) []Interval {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
	result := intervals[:0]
	var prevEnd time.Time
	for _, iv := range intervals {
		if len(result) > 0 && iv.Start.Before(prevEnd) {
			iv.Start = prevEnd
		}
		if !iv.Start.Before(iv.End) {
			continue
		}
		result = append(result, iv)
		prevEnd = iv.End
	}
	return result
}
