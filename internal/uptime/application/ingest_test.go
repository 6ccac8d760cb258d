package application

import (
	"context"
	"errors"
	"testing"

	uptime "store-monitor/internal/uptime/domain"
)

type recordingSink struct {
	events   []uptime.StatusEvent
	rules    []uptime.BusinessHourRule
	zones    []uptime.TimezoneAssignment
	hoursErr error
}

func (s *recordingSink) UpsertStatusEvents(_ context.Context, events []uptime.StatusEvent) (int, error) {
	s.events = append(s.events, events...)
	return len(events), nil
}

func (s *recordingSink) UpsertBusinessHours(_ context.Context, rules []uptime.BusinessHourRule) (int, error) {
	if s.hoursErr != nil {
		return 0, s.hoursErr
	}
	s.rules = append(s.rules, rules...)
	return len(rules), nil
}

func (s *recordingSink) UpsertTimezones(_ context.Context, zones []uptime.TimezoneAssignment) (int, error) {
	s.zones = append(s.zones, zones...)
	return len(zones), nil
}

func TestIngestDedupesByNaturalKey(t *testing.T) {
	at := mustTime(t, "2024-01-01T10:00:00Z")
	sink := &recordingSink{}
	data := Dataset{
		Events: []uptime.StatusEvent{
			{StoreID: "S1", Timestamp: at, Status: uptime.StatusActive},
			{StoreID: "S1", Timestamp: at, Status: uptime.StatusInactive},
		},
		Rules: []uptime.BusinessHourRule{mondayRule("S1"), mondayRule("S1")},
		Zones: []uptime.TimezoneAssignment{
			{StoreID: "S1", Timezone: "UTC"},
			{StoreID: "S1", Timezone: "Asia/Kolkata"},
		},
	}

	if err := Ingest(context.Background(), sink, data, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(sink.events) != 1 || sink.events[0].Status != uptime.StatusInactive {
		t.Fatalf("expected last event to win, got %+v", sink.events)
	}
	if len(sink.rules) != 1 {
		t.Fatalf("expected one rule, got %+v", sink.rules)
	}
	if len(sink.zones) != 1 || sink.zones[0].Timezone != "Asia/Kolkata" {
		t.Fatalf("expected last zone to win, got %+v", sink.zones)
	}
}

func TestIngestStopsOnFirstFailure(t *testing.T) {
	sink := &recordingSink{hoursErr: errBoom}
	data := Dataset{
		Rules: []uptime.BusinessHourRule{mondayRule("S1")},
		Zones: []uptime.TimezoneAssignment{{StoreID: "S1", Timezone: "UTC"}},
	}
	err := Ingest(context.Background(), sink, data, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped errBoom, got %v", err)
	}
	if len(sink.zones) != 0 {
		t.Fatalf("timezones should not load after a failed dataset")
	}
	if err := Ingest(context.Background(), nil, data, nil); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}
