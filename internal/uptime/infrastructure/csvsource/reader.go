package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"store-monitor/internal/uptime/application"
	uptime "store-monitor/internal/uptime/domain"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("csvsource: missing column")

// timestampLayouts are tried in order. Fractional seconds are optional.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 UTC",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Paths names the three input files.
type Paths struct {
	Status    string
	Hours     string
	Timezones string
}

// LoadDataset reads all three files.
func LoadDataset(paths Paths) (application.Dataset, error) {
	var data application.Dataset
	var err error
	if data.Events, err = readFile(paths.Status, ReadStatusEvents); err != nil {
		return data, err
	}
	if data.Rules, err = readFile(paths.Hours, ReadBusinessHours); err != nil {
		return data, err
	}
	if data.Zones, err = readFile(paths.Timezones, ReadTimezones); err != nil {
		return data, err
	}
	return data, nil
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvsource: %w", err)
	}
	defer f.Close()
	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("csvsource: %s: %w", path, err)
	}
	return out, nil
}

// ReadStatusEvents parses store_id,timestamp_utc,status rows.
func ReadStatusEvents(r io.Reader) ([]uptime.StatusEvent, error) {
	var out []uptime.StatusEvent
	err := eachRecord(r, []string{"store_id", "timestamp_utc", "status"}, func(line int, f []string) error {
		at, err := ParseTimestamp(f[1])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		status, err := uptime.ParseStatus(f[2])
		if err != nil {
			return fmt.Errorf("line %d: %w: %q", line, err, f[2])
		}
		out = append(out, uptime.StatusEvent{StoreID: f[0], Timestamp: at, Status: status})
		return nil
	})
	return out, err
}

// ReadBusinessHours parses store_id,dayOfWeek,start_time_local,end_time_local rows.
func ReadBusinessHours(r io.Reader) ([]uptime.BusinessHourRule, error) {
	var out []uptime.BusinessHourRule
	err := eachRecord(r, []string{"store_id", "dayOfWeek", "start_time_local", "end_time_local"}, func(line int, f []string) error {
		day, err := strconv.Atoi(f[1])
		if err != nil {
			return fmt.Errorf("line %d: %w: %q", line, uptime.ErrInvalidDayOfWeek, f[1])
		}
		rule := uptime.BusinessHourRule{StoreID: f[0], DayOfWeek: day}
		if rule.StartLocal, err = uptime.ParseTimeOfDay(f[2]); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rule.EndLocal, err = uptime.ParseTimeOfDay(f[3]); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rule)
		return nil
	})
	return out, err
}

// ReadTimezones parses store_id,timezone_str rows. Zone names are not
// validated here; the report policy decides what an unknown zone means.
func ReadTimezones(r io.Reader) ([]uptime.TimezoneAssignment, error) {
	var out []uptime.TimezoneAssignment
	err := eachRecord(r, []string{"store_id", "timezone_str"}, func(line int, f []string) error {
		out = append(out, uptime.TimezoneAssignment{StoreID: f[0], Timezone: f[1]})
		return nil
	})
	return out, err
}

// ParseTimestamp parses "2006-01-02 15:04:05[.ffffff] UTC" and RFC 3339.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if at, err := time.Parse(layout, value); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("csvsource: invalid timestamp %q", value)
}

// eachRecord maps the named columns from the header and calls fn with their
// values in the order given. Extra columns are ignored.
func eachRecord(r io.Reader, columns []string, fn func(line int, fields []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	index := make([]int, len(columns))
	for i, name := range columns {
		index[i] = -1
		for j, h := range header {
			if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == name {
				index[i] = j
				break
			}
		}
		if index[i] < 0 {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	fields := make([]string, len(columns))
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for i, j := range index {
			if j >= len(record) {
				return fmt.Errorf("line %d: short record", line)
			}
			fields[i] = strings.TrimSpace(record[j])
		}
		if fields[0] == "" {
			return fmt.Errorf("line %d: %w", line, uptime.ErrEmptyStoreID)
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
}
