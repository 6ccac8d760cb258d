package application

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"store-monitor/internal/observability/metrics"
	uptime "store-monitor/internal/uptime/domain"
)

// Result is the outcome of one generation pass.
type Result struct {
	Anchor         time.Time
	AnchorFallback bool
	Rows           []uptime.ReportRow
}

// Generator computes report rows from a snapshot.
type Generator struct {
	policy      uptime.Policy
	locations   *uptime.LocationCache
	projector   *uptime.Projector
	clock       Clock
	parallelism int
	logger      *zap.Logger
}

// NewGenerator validates policy and constructs a Generator.
func NewGenerator(policy uptime.Policy, clock Clock, parallelism int, logger *zap.Logger) (*Generator, error) {
	locations := uptime.NewLocationCache()
	if err := policy.Validate(locations); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		policy:      policy,
		locations:   locations,
		projector:   uptime.NewProjector(locations, policy.DefaultOpenAllDay),
		clock:       clock,
		parallelism: parallelism,
		logger:      logger,
	}, nil
}

// Generate builds one row per store, ordered by store id. Rows are identical
// for identical snapshots.
func (g *Generator) Generate(ctx context.Context, snap *Snapshot) (Result, error) {
	if g == nil || snap == nil {
		return Result{}, errors.New("generator: not initialized")
	}
	anchor, err := snap.Anchor()
	fallback := false
	if errors.Is(err, uptime.ErrNoData) {
		anchor = g.clock.Now().UTC()
		fallback = true
		metrics.IncFallback(metrics.FallbackWallClock)
		g.logger.Warn("anchor_fallback_wall_clock", zap.Time("anchor", anchor))
	} else if err != nil {
		return Result{}, err
	}
	windows := uptime.WindowsAt(anchor)

	storeIDs := snap.StoreIDs()
	rows := make([]uptime.ReportRow, len(storeIDs))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.parallelism)
	for i, storeID := range storeIDs {
		i, storeID := i, storeID
		group.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("generator: store %s: panic: %v", storeID, rec)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := g.storeRow(snap, storeID, windows)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Anchor: anchor, AnchorFallback: fallback, Rows: rows}, nil
}

func (g *Generator) storeRow(snap *Snapshot, storeID string, windows uptime.Windows) (uptime.ReportRow, error) {
	zone, err := g.zoneFor(storeID, snap.Timezone(storeID))
	if err != nil {
		return uptime.ReportRow{}, err
	}
	events := snap.Events(storeID)
	rules := snap.Rules(storeID)

	var tallies [3]uptime.Tally
	for i, window := range []uptime.Window{windows.Hour, windows.Day, windows.Week} {
		intervals, err := g.projector.Project(storeID, zone, rules, window)
		if err != nil {
			return uptime.ReportRow{}, fmt.Errorf("generator: store %s: %w", storeID, err)
		}
		tallies[i] = uptime.Accumulate(events, window, intervals, g.policy.DefaultStatus)
	}
	return uptime.NewReportRow(storeID, tallies[0], tallies[1], tallies[2]), nil
}

// zoneFor applies the timezone policy: missing zones use the fallback,
// unloadable ones use it too unless the policy says fail.
func (g *Generator) zoneFor(storeID, name string) (string, error) {
	if name == "" {
		return g.policy.FallbackTimezone, nil
	}
	if _, err := g.locations.Resolve(name); err != nil {
		if g.policy.InvalidTimezone == uptime.TimezoneFail {
			return "", fmt.Errorf("generator: store %s: %w", storeID, err)
		}
		metrics.IncFallback(metrics.FallbackTimezone)
		g.logger.Warn("timezone_fallback",
			zap.String("store_id", storeID),
			zap.String("timezone", name),
			zap.String("fallback", g.policy.FallbackTimezone))
		return g.policy.FallbackTimezone, nil
	}
	return name, nil
}
