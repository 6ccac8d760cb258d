package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"store-monitor/internal/uptime/application"
	uptime "store-monitor/internal/uptime/domain"
	"store-monitor/internal/uptime/infrastructure/artifact"
	"store-monitor/internal/uptime/infrastructure/csvsource"
	"store-monitor/internal/uptime/infrastructure/memory"
	reporthttp "store-monitor/internal/uptime/interfaces/http"
)

type config struct {
	dataDir       string
	statusFile    string
	hoursFile     string
	timezonesFile string
	out           string
	format        string
	fallbackTZ    string
	parallelism   int
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal("report failed", zap.Error(err))
	}
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.StringVar(&cfg.dataDir, "data-dir", "data", "directory holding the input CSV files")
	fs.StringVar(&cfg.statusFile, "status", "store_status.csv", "status observations file")
	fs.StringVar(&cfg.hoursFile, "hours", "menu_hours.csv", "business hours file")
	fs.StringVar(&cfg.timezonesFile, "timezones", "timezones.csv", "store timezones file")
	fs.StringVar(&cfg.out, "out", "report.csv", "output file")
	fs.StringVar(&cfg.format, "format", "", "csv or xlsx (default from -out extension)")
	fs.StringVar(&cfg.fallbackTZ, "fallback-tz", uptime.DefaultPolicy().FallbackTimezone, "timezone for stores without one")
	fs.IntVar(&cfg.parallelism, "parallelism", 0, "stores computed concurrently (0 = NumCPU)")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.format == "" {
		cfg.format = strings.TrimPrefix(strings.ToLower(filepath.Ext(cfg.out)), ".")
	}
	switch cfg.format {
	case reporthttp.FormatCSV, reporthttp.FormatXLSX:
	default:
		return config{}, fmt.Errorf("unsupported format %q (want csv or xlsx)", cfg.format)
	}
	if cfg.out == "" {
		return config{}, errors.New("out is required")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	data, err := csvsource.LoadDataset(csvsource.Paths{
		Status:    filepath.Join(cfg.dataDir, cfg.statusFile),
		Hours:     filepath.Join(cfg.dataDir, cfg.hoursFile),
		Timezones: filepath.Join(cfg.dataDir, cfg.timezonesFile),
	})
	if err != nil {
		return err
	}
	store := memory.NewEventStore()
	if err := application.Ingest(ctx, store, data, logger); err != nil {
		return err
	}
	snap, err := application.LoadSnapshot(ctx, store)
	if err != nil {
		return err
	}

	policy := uptime.DefaultPolicy()
	policy.FallbackTimezone = cfg.fallbackTZ
	generator, err := application.NewGenerator(policy, application.SystemClock{}, cfg.parallelism, logger)
	if err != nil {
		return err
	}
	result, err := generator.Generate(ctx, snap)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch cfg.format {
	case reporthttp.FormatXLSX:
		job := uptime.NewJob(strings.TrimSuffix(filepath.Base(cfg.out), filepath.Ext(cfg.out)), result.Anchor)
		job.Complete(result.Anchor)
		body, err := reporthttp.BuildReportXLSX(job, result.Rows)
		if err != nil {
			return err
		}
		buf.Write(body)
	default:
		if err := artifact.WriteCSV(&buf, result.Rows); err != nil {
			return err
		}
	}
	if err := os.WriteFile(cfg.out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info("report written",
		zap.String("out", cfg.out),
		zap.Int("stores", len(result.Rows)),
		zap.Time("anchor", result.Anchor),
		zap.Bool("anchor_fallback", result.AnchorFallback),
	)
	return nil
}
