package uptime

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// TimezoneAssignment maps a store to an IANA zone name.
type TimezoneAssignment struct {
	StoreID  string
	Timezone string
}

// LocationCache resolves zone names once and reuses the result.
// It is safe for concurrent use.
type LocationCache struct {
	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewLocationCache constructs an empty cache.
func NewLocationCache() *LocationCache {
	return &LocationCache{cache: make(map[string]*time.Location)}
}

// Resolve returns the location for name or ErrInvalidTimezone.
func (c *LocationCache) Resolve(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTimezone)
	}
	c.mu.RLock()
	loc, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	c.mu.Lock()
	c.cache[name] = loc
	c.mu.Unlock()
	return loc, nil
}
