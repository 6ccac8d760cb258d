package uptime

import (
	"sort"
	"strings"
	"time"
)

// Status is the observed reachability of a store's polling endpoint.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus normalizes a raw status value.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	default:
		return "", ErrInvalidStatus
	}
}

// IsValid reports whether the status is one of the supported values.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// StatusEvent is a single point-in-time observation for a store.
// The natural key is StoreID + Timestamp.
type StatusEvent struct {
	StoreID   string
	Timestamp time.Time
	Status    Status
}

// SortEvents orders events by store id, then timestamp.
func SortEvents(events []StatusEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StoreID != events[j].StoreID {
			return events[i].StoreID < events[j].StoreID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
