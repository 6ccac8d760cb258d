package uptime

// DedupeEvents keeps the last occurrence of each (store, timestamp) pair.
// Order of first appearance is preserved.
func DedupeEvents(events []StatusEvent) []StatusEvent {
	type key struct {
		store string
		nanos int64
	}
	index := make(map[key]int, len(events))
	out := make([]StatusEvent, 0, len(events))
	for _, evt := range events {
		k := key{store: evt.StoreID, nanos: evt.Timestamp.UnixNano()}
		if i, ok := index[k]; ok {
			out[i] = evt
			continue
		}
		index[k] = len(out)
		out = append(out, evt)
	}
	return out
}

// DedupeRules keeps the last rule per (store, day of week).
func DedupeRules(rules []BusinessHourRule) []BusinessHourRule {
	type key struct {
		store string
		day   int
	}
	index := make(map[key]int, len(rules))
	out := make([]BusinessHourRule, 0, len(rules))
	for _, rule := range rules {
		k := key{store: rule.StoreID, day: rule.DayOfWeek}
		if i, ok := index[k]; ok {
			out[i] = rule
			continue
		}
		index[k] = len(out)
		out = append(out, rule)
	}
	return out
}

// DedupeTimezones keeps the last assignment per store.
func DedupeTimezones(zones []TimezoneAssignment) []TimezoneAssignment {
	index := make(map[string]int, len(zones))
	out := make([]TimezoneAssignment, 0, len(zones))
	for _, zone := range zones {
		if i, ok := index[zone.StoreID]; ok {
			out[i] = zone
			continue
		}
		index[zone.StoreID] = len(out)
		out = append(out, zone)
	}
	return out
}
