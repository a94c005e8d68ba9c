package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/retailhq/headoffice/internal/dashboard"
	jobmetrics "github.com/retailhq/headoffice/internal/jobs"
	"github.com/retailhq/headoffice/internal/platform/cache"
	"github.com/retailhq/headoffice/internal/reporting"
	"github.com/retailhq/headoffice/internal/upstream"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SummaryLoader builds the dashboard summary for one window.
type SummaryLoader interface {
	Load(ctx context.Context, f reporting.DateFilter) (dashboard.Summary, error)
}

// DashboardWarmupJob refreshes the cached reports behind the dashboard using
// the service token, so the first user of the day does not pay for the fetch.
type DashboardWarmupJob struct {
	Loader       SummaryLoader
	ServiceToken string
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	clock        func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warm-up handler.
func NewDashboardWarmupJob(loader SummaryLoader, serviceToken string, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Loader:       loader,
		ServiceToken: serviceToken,
		Logger:       logger,
		Metrics:      metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warm-up tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Loader == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if len(payload.Windows) == 0 {
		payload.Windows = []string{WindowMonthToDate, WindowToday}
	}
	if j.ServiceToken == "" {
		j.logger().Warn("dashboard warmup skipped: no service token")
		return nil
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	ctx = cache.WithRefresh(upstream.WithToken(ctx, j.ServiceToken))
	degraded := 0
	for _, window := range payload.Windows {
		f, ok := windowFilter(window, start)
		if !ok {
			logger.Warn("unknown warm-up window", slog.String("window", window))
			continue
		}
		windowCtx, cancel := context.WithTimeout(ctx, time.Minute)
		summary, err := j.Loader.Load(windowCtx, f)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm window", slog.String("window", window), slog.Any("error", err))
			return resultErr
		}
		if summary.Degraded {
			degraded++
			logger.Warn("warm window degraded", slog.String("window", window), slog.Any("warnings", summary.Warnings))
		}
	}
	j.metrics().AddDegraded(TaskDashboardWarmup, degraded)
	if degraded == len(payload.Windows) {
		resultErr = errors.New("dashboard warmup: every window degraded")
		return resultErr
	}
	logger.Info("completed dashboard warmup", slog.Int("windows", len(payload.Windows)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func windowFilter(window string, now time.Time) (reporting.DateFilter, bool) {
	day := now.Format("2006-01-02")
	switch window {
	case WindowMonthToDate:
		return reporting.DateFilter{From: now.Format("2006-01") + "-01", To: day}, true
	case WindowToday:
		return reporting.DateFilter{From: day, To: day}, true
	case WindowYesterday:
		y := now.AddDate(0, 0, -1).Format("2006-01-02")
		return reporting.DateFilter{From: y, To: y}, true
	}
	return reporting.DateFilter{}, false
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// CacheBumper invalidates the response cache.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// CacheBumpJob invalidates every cached report, scheduled after midnight so
// day-bounded windows are refetched.
type CacheBumpJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes cache bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCacheBump)
	version, err := j.Cache.Bump(ctx)
	if err == nil && j.Logger != nil {
		j.Logger.Info("report cache invalidated", slog.Int64("version", version))
	}
	return tracker.End(err)
}
