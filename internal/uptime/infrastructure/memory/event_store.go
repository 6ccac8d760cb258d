package memory

import (
	"context"
	"sort"
	"sync"

	uptime "store-monitor/internal/uptime/domain"
)

type eventKey struct {
	storeID string
	at      int64
}

type ruleKey struct {
	storeID string
	day     int
}

// EventStore is an in-memory event store for no-database mode and tests.
type EventStore struct {
	mu     sync.RWMutex
	events map[eventKey]uptime.StatusEvent
	rules  map[ruleKey]uptime.BusinessHourRule
	zones  map[string]string
}

// NewEventStore constructs an empty store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[eventKey]uptime.StatusEvent),
		rules:  make(map[ruleKey]uptime.BusinessHourRule),
		zones:  make(map[string]string),
	}
}

// UpsertStatusEvents merges events keyed by (store, timestamp).
func (s *EventStore) UpsertStatusEvents(ctx context.Context, events []uptime.StatusEvent) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range events {
		if evt.StoreID == "" {
			return 0, uptime.ErrEmptyStoreID
		}
		evt.Timestamp = evt.Timestamp.UTC()
		s.events[eventKey{storeID: evt.StoreID, at: evt.Timestamp.UnixNano()}] = evt
	}
	return len(events), nil
}

// UpsertBusinessHours merges rules keyed by (store, day of week).
func (s *EventStore) UpsertBusinessHours(ctx context.Context, rules []uptime.BusinessHourRule) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return 0, err
		}
		s.rules[ruleKey{storeID: rule.StoreID, day: rule.DayOfWeek}] = rule
	}
	return len(rules), nil
}

// UpsertTimezones merges assignments keyed by store.
func (s *EventStore) UpsertTimezones(ctx context.Context, zones []uptime.TimezoneAssignment) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, zone := range zones {
		if zone.StoreID == "" {
			return 0, uptime.ErrEmptyStoreID
		}
		s.zones[zone.StoreID] = zone.Timezone
	}
	return len(zones), nil
}

// LoadStatusEvents returns all events ordered by store id, then timestamp.
func (s *EventStore) LoadStatusEvents(ctx context.Context) ([]uptime.StatusEvent, error) {
	_ = ctx
	s.mu.RLock()
	out := make([]uptime.StatusEvent, 0, len(s.events))
	for _, evt := range s.events {
		out = append(out, evt)
	}
	s.mu.RUnlock()
	uptime.SortEvents(out)
	return out, nil
}

// LoadBusinessHours returns all rules ordered by store id, then day.
func (s *EventStore) LoadBusinessHours(ctx context.Context) ([]uptime.BusinessHourRule, error) {
	_ = ctx
	s.mu.RLock()
	out := make([]uptime.BusinessHourRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].DayOfWeek < out[j].DayOfWeek
	})
	return out, nil
}

// LoadTimezones returns all assignments ordered by store id.
func (s *EventStore) LoadTimezones(ctx context.Context) ([]uptime.TimezoneAssignment, error) {
	_ = ctx
	s.mu.RLock()
	out := make([]uptime.TimezoneAssignment, 0, len(s.zones))
	for id, name := range s.zones {
		out = append(out, uptime.TimezoneAssignment{StoreID: id, Timezone: name})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out, nil
}
