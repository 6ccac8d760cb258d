package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	uptime "store-monitor/internal/uptime/domain"
	"store-monitor/internal/uptime/infrastructure/postgres"
)

func TestEventStore_MergeAndLoad(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()
	if err := applyMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	cleanup(ctx, db)

	store, err := postgres.NewEventStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if _, err := store.UpsertStatusEvents(ctx, []uptime.StatusEvent{
		{StoreID: "b", Timestamp: at, Status: uptime.StatusActive},
		{StoreID: "a", Timestamp: at, Status: uptime.StatusActive},
	}); err != nil {
		t.Fatalf("upsert events: %v", err)
	}
	n, err := store.UpsertStatusEvents(ctx, []uptime.StatusEvent{{StoreID: "a", Timestamp: at, Status: uptime.StatusInactive}})
	if err != nil || n != 1 {
		t.Fatalf("re-merge: n=%d err=%v", n, err)
	}

	events, err := store.LoadStatusEvents(ctx)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 2 || events[0].StoreID != "a" || events[0].Status != uptime.StatusInactive {
		t.Fatalf("unexpected events %+v", events)
	}
	if !events[0].Timestamp.Equal(at) || events[0].Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %v", events[0].Timestamp)
	}

	rules := []uptime.BusinessHourRule{{
		StoreID:    "a",
		DayOfWeek:  6,
		StartLocal: uptime.TimeOfDay{Hour: 22, Minute: 30},
		EndLocal:   uptime.TimeOfDay{Hour: 2, Second: 15},
	}}
	if _, err := store.UpsertBusinessHours(ctx, rules); err != nil {
		t.Fatalf("upsert rules: %v", err)
	}
	loaded, err := store.LoadBusinessHours(ctx)
	if err != nil || len(loaded) != 1 {
		t.Fatalf("load rules: %v %+v", err, loaded)
	}
	if loaded[0].StartLocal.String() != "22:30:00" || loaded[0].EndLocal.String() != "02:00:15" || !loaded[0].Overnight() {
		t.Fatalf("unexpected rule %+v", loaded[0])
	}

	if _, err := store.UpsertTimezones(ctx, []uptime.TimezoneAssignment{{StoreID: "a", Timezone: "Asia/Tokyo"}}); err != nil {
		t.Fatalf("upsert zones: %v", err)
	}
	zones, err := store.LoadTimezones(ctx)
	if err != nil || len(zones) != 1 || zones[0].Timezone != "Asia/Tokyo" {
		t.Fatalf("unexpected zones %+v err=%v", zones, err)
	}
}

func TestJobRepository_Lifecycle(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()
	if err := applyMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	cleanup(ctx, db)

	repo, err := postgres.NewJobRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, uptime.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := repo.Create(ctx, uptime.NewJob("r1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n, err := repo.CountRunning(ctx); err != nil || n != 1 {
		t.Fatalf("expected one running job, got %d err=%v", n, err)
	}
	job, err := repo.MarkRunning(ctx, "r1", "boom", now.Add(time.Minute))
	if err != nil || job.Status != uptime.JobRunning || job.Attempts != 1 || job.LastError != "boom" {
		t.Fatalf("unexpected job %+v err=%v", job, err)
	}
	job, err = repo.MarkComplete(ctx, "r1", now.Add(2*time.Minute))
	if err != nil || job.Status != uptime.JobComplete || job.Attempts != 2 || job.LastError != "" {
		t.Fatalf("unexpected job %+v err=%v", job, err)
	}
	if _, err := repo.MarkComplete(ctx, "missing", now); !errors.Is(err, uptime.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func cleanup(ctx context.Context, db *sql.DB) {
	_, _ = db.ExecContext(ctx, "DELETE FROM store_status")
	_, _ = db.ExecContext(ctx, "DELETE FROM business_hours")
	_, _ = db.ExecContext(ctx, "DELETE FROM store_timezones")
	_, _ = db.ExecContext(ctx, "DELETE FROM report_status")
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func applyMigrations(db *sql.DB) error {
	files, err := filepath.Glob(filepath.Join(projectRoot(), "migrations", "*.sql"))
	if err != nil {
		return err
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return err
		}
	}
	return nil
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", "..", ".."))
}
