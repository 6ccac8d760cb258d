package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/stdlib"

	uptime "store-monitor/internal/uptime/domain"
)

// EventStore reads and bulk-loads the input collections.
type EventStore struct {
	db *sql.DB
}

// NewEventStore constructs an EventStore. db must use the pgx stdlib driver.
func NewEventStore(db *sql.DB) (*EventStore, error) {
	if db == nil {
		return nil, errors.New("event store: nil db")
	}
	return &EventStore{db: db}, nil
}

// LoadStatusEvents returns all events ordered by store id, then timestamp.
func (s *EventStore) LoadStatusEvents(ctx context.Context) ([]uptime.StatusEvent, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("event store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT store_id, timestamp_utc, status
FROM store_status
ORDER BY store_id, timestamp_utc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uptime.StatusEvent
	for rows.Next() {
		var (
			evt    uptime.StatusEvent
			status string
		)
		if err := rows.Scan(&evt.StoreID, &evt.Timestamp, &status); err != nil {
			return nil, err
		}
		evt.Timestamp = evt.Timestamp.UTC()
		if evt.Status, err = uptime.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("event store: store %s: %w", evt.StoreID, err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// LoadBusinessHours returns all rules ordered by store id, then day.
func (s *EventStore) LoadBusinessHours(ctx context.Context) ([]uptime.BusinessHourRule, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("event store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT store_id, day_of_week,
	to_char(start_time_local, 'HH24:MI:SS'),
	to_char(end_time_local, 'HH24:MI:SS')
FROM business_hours
ORDER BY store_id, day_of_week`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uptime.BusinessHourRule
	for rows.Next() {
		var (
			rule       uptime.BusinessHourRule
			start, end string
		)
		if err := rows.Scan(&rule.StoreID, &rule.DayOfWeek, &start, &end); err != nil {
			return nil, err
		}
		if rule.StartLocal, err = uptime.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if rule.EndLocal, err = uptime.ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// LoadTimezones returns all assignments ordered by store id.
func (s *EventStore) LoadTimezones(ctx context.Context) ([]uptime.TimezoneAssignment, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("event store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT store_id, timezone_str
FROM store_timezones
ORDER BY store_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uptime.TimezoneAssignment
	for rows.Next() {
		var zone uptime.TimezoneAssignment
		if err := rows.Scan(&zone.StoreID, &zone.Timezone); err != nil {
			return nil, err
		}
		out = append(out, zone)
	}
	return out, rows.Err()
}

// UpsertStatusEvents merges events on (store_id, timestamp_utc).
// Input keys must be unique.
func (s *EventStore) UpsertStatusEvents(ctx context.Context, events []uptime.StatusEvent) (int, error) {
	src := pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
		evt := events[i]
		if evt.StoreID == "" {
			return nil, uptime.ErrEmptyStoreID
		}
		return []any{evt.StoreID, evt.Timestamp.UTC(), string(evt.Status)}, nil
	})
	return s.merge(ctx, "store_status", []string{"store_id", "timestamp_utc", "status"}, src, `
INSERT INTO store_status (store_id, timestamp_utc, status)
SELECT store_id, timestamp_utc, status FROM store_status_stage
ON CONFLICT (store_id, timestamp_utc)
DO UPDATE SET status = EXCLUDED.status`)
}

// UpsertBusinessHours merges rules on (store_id, day_of_week).
// Input keys must be unique.
func (s *EventStore) UpsertBusinessHours(ctx context.Context, rules []uptime.BusinessHourRule) (int, error) {
	src := pgx.CopyFromSlice(len(rules), func(i int) ([]any, error) {
		rule := rules[i]
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		return []any{rule.StoreID, int16(rule.DayOfWeek), pgTime(rule.StartLocal), pgTime(rule.EndLocal)}, nil
	})
	return s.merge(ctx, "business_hours", []string{"store_id", "day_of_week", "start_time_local", "end_time_local"}, src, `
INSERT INTO business_hours (store_id, day_of_week, start_time_local, end_time_local)
SELECT store_id, day_of_week, start_time_local, end_time_local FROM business_hours_stage
ON CONFLICT (store_id, day_of_week)
DO UPDATE SET start_time_local = EXCLUDED.start_time_local, end_time_local = EXCLUDED.end_time_local`)
}

// UpsertTimezones merges assignments on store_id. Input keys must be unique.
func (s *EventStore) UpsertTimezones(ctx context.Context, zones []uptime.TimezoneAssignment) (int, error) {
	src := pgx.CopyFromSlice(len(zones), func(i int) ([]any, error) {
		zone := zones[i]
		if zone.StoreID == "" {
			return nil, uptime.ErrEmptyStoreID
		}
		return []any{zone.StoreID, zone.Timezone}, nil
	})
	return s.merge(ctx, "store_timezones", []string{"store_id", "timezone_str"}, src, `
INSERT INTO store_timezones (store_id, timezone_str)
SELECT store_id, timezone_str FROM store_timezones_stage
ON CONFLICT (store_id)
DO UPDATE SET timezone_str = EXCLUDED.timezone_str`)
}

// merge copies rows into a transaction-scoped stage table shaped like table,
// then applies mergeSQL, all in one transaction.
func (s *EventStore) merge(ctx context.Context, table string, columns []string, src pgx.CopyFromSource, mergeSQL string) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("event store: nil db")
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var merged int
	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("event store: unexpected driver connection %T", driverConn)
		}
		tx, err := sc.Conn().Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		stage := table + "_stage"
		createStage := fmt.Sprintf(`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP`,
			pgx.Identifier{stage}.Sanitize(), pgx.Identifier{table}.Sanitize())
		if _, err := tx.Exec(ctx, createStage); err != nil {
			return fmt.Errorf("create stage %s: %w", stage, err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, columns, src); err != nil {
			return fmt.Errorf("copy into %s: %w", stage, err)
		}
		tag, err := tx.Exec(ctx, mergeSQL)
		if err != nil {
			return fmt.Errorf("merge into %s: %w", table, err)
		}
		merged = int(tag.RowsAffected())
		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("event store: %w", err)
	}
	return merged, nil
}

func pgTime(t uptime.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Seconds()) * 1_000_000, Valid: true}
}
