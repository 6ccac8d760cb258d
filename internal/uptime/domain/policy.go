package uptime

import (
	"errors"
	"fmt"
)

// TimezonePolicy decides what happens when a store's zone cannot be loaded.
type TimezonePolicy string

const (
	// TimezoneFallback substitutes Policy.FallbackTimezone.
	TimezoneFallback TimezonePolicy = "fallback"
	// TimezoneFail fails the whole report run.
	TimezoneFail TimezonePolicy = "fail"
)

// Default policy values.
const (
	DefaultFallbackTimezone = "America/Chicago"
	DefaultStatus           = StatusInactive
)

// Policy holds the defaults applied when input data is missing.
type Policy struct {
	FallbackTimezone  string         `yaml:"fallback_timezone"`
	DefaultStatus     Status         `yaml:"default_status"`
	DefaultOpenAllDay bool           `yaml:"default_open_all_day"`
	InvalidTimezone   TimezonePolicy `yaml:"invalid_timezone"`
}

// DefaultPolicy returns the stock defaults: America/Chicago, inactive before
// the first observation, 24x7 for stores without rules, fallback on bad zones.
func DefaultPolicy() Policy {
	return Policy{
		FallbackTimezone:  DefaultFallbackTimezone,
		DefaultStatus:     DefaultStatus,
		DefaultOpenAllDay: true,
		InvalidTimezone:   TimezoneFallback,
	}
}

// Validate checks the policy and that the fallback zone loads.
func (p Policy) Validate(locations *LocationCache) error {
	if !p.DefaultStatus.IsValid() {
		return fmt.Errorf("policy: %w: %q", ErrInvalidStatus, p.DefaultStatus)
	}
	switch p.InvalidTimezone {
	case TimezoneFallback, TimezoneFail:
	default:
		return errors.New("policy: invalid_timezone must be fallback or fail")
	}
	if locations == nil {
		locations = NewLocationCache()
	}
	if _, err := locations.Resolve(p.FallbackTimezone); err != nil {
		return fmt.Errorf("policy: fallback timezone: %w", err)
	}
	return nil
}
