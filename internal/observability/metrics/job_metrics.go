package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RunningCounter counts report jobs currently in Running state.
type RunningCounter interface {
	CountRunning(ctx context.Context) (int64, error)
}

func registerJobMetrics(counter RunningCounter, logger *zap.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "report_jobs_running",
			Help: "Report jobs in Running state",
		},
		func() float64 {
			return queryRunning(counter, logger)
		},
	))
}

func queryRunning(counter RunningCounter, logger *zap.Logger) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := counter.CountRunning(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", zap.Error(err))
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

func statusCode(code int) string {
	if code <= 0 {
		code = 200
	}
	return strconv.Itoa(code)
}
