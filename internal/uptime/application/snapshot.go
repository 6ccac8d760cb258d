package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	uptime "store-monitor/internal/uptime/domain"
)

// Snapshot is a consistent in-memory view of the input data for one run.
// It is read-only after construction and safe for concurrent reads.
type Snapshot struct {
	events    map[string][]uptime.StatusEvent
	rules     map[string][]uptime.BusinessHourRule
	timezones map[string]string
	storeIDs  []string
}

// LoadSnapshot reads everything from src once.
func LoadSnapshot(ctx context.Context, src EventSource) (*Snapshot, error) {
	if src == nil {
		return nil, fmt.Errorf("snapshot: nil event source")
	}
	events, err := src.LoadStatusEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load status events: %w", err)
	}
	rules, err := src.LoadBusinessHours(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load business hours: %w", err)
	}
	zones, err := src.LoadTimezones(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load timezones: %w", err)
	}
	return NewSnapshot(events, rules, zones), nil
}

// NewSnapshot groups the collections by store. Events are sorted per store
// regardless of input order.
func NewSnapshot(events []uptime.StatusEvent, rules []uptime.BusinessHourRule, zones []uptime.TimezoneAssignment) *Snapshot {
	s := &Snapshot{
		events:    make(map[string][]uptime.StatusEvent),
		rules:     make(map[string][]uptime.BusinessHourRule),
		timezones: make(map[string]string, len(zones)),
	}
	for _, evt := range events {
		s.events[evt.StoreID] = append(s.events[evt.StoreID], evt)
	}
	for id, list := range s.events {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.Before(list[j].Timestamp)
		})
		s.storeIDs = append(s.storeIDs, id)
	}
	sort.Strings(s.storeIDs)

	for _, rule := range rules {
		s.rules[rule.StoreID] = append(s.rules[rule.StoreID], rule)
	}
	for _, zone := range zones {
		s.timezones[zone.StoreID] = zone.Timezone
	}
	return s
}

// StoreIDs returns the stores present in the observation set, ascending.
func (s *Snapshot) StoreIDs() []string {
	return s.storeIDs
}

// Events returns a store's events ordered by timestamp.
func (s *Snapshot) Events(storeID string) []uptime.StatusEvent {
	return s.events[storeID]
}

// Rules returns a store's business-hour rules.
func (s *Snapshot) Rules(storeID string) []uptime.BusinessHourRule {
	return s.rules[storeID]
}

// Timezone returns the assigned zone name, or "" when none.
func (s *Snapshot) Timezone(storeID string) string {
	return s.timezones[storeID]
}

// Anchor returns the latest observation time across all stores.
func (s *Snapshot) Anchor() (time.Time, error) {
	latest := make([]uptime.StatusEvent, 0, len(s.storeIDs))
	for _, id := range s.storeIDs {
		list := s.events[id]
		latest = append(latest, list[len(list)-1])
	}
	return uptime.Anchor(latest)
}
