package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/clock"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/locker"
	"github.com/smallbiznis/mercado/internal/metricspush"
	obscontext "github.com/smallbiznis/mercado/internal/observability/context"
	obslogger "github.com/smallbiznis/mercado/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mercado/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMorositySnapshot = "morosity_snapshot"

	snapshotLockKey = "scheduler:morosity_snapshot"
)

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Dues     domain.Service
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Locker   locker.Locker           `optional:"true"`
	Counters *obsmetrics.DuesMetrics `optional:"true"`
	Config   Config                  `optional:"true"`
	Pusher   metricspush.Pusher      `optional:"true"`
	Gatherer prometheus.Gatherer     `optional:"true"`
}

// Scheduler periodically recomputes the morosity snapshot and publishes it
// as gauges, so dashboards do not need to poll the indicators endpoint.
type Scheduler struct {
	dues     domain.Service
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	locker   locker.Locker
	counters *obsmetrics.DuesMetrics
	pusher   metricspush.Pusher
	gatherer prometheus.Gatherer
}

func New(p Params) (*Scheduler, error) {
	if p.Dues == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Scheduler{
		dues:     p.Dues,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		locker:   p.Locker,
		counters: p.Counters,
		pusher:   p.Pusher,
		gatherer: gatherer,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = obscontext.WithOperator(ctx, "scheduler")
	runID := s.genID.Generate().String()
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", runID),
	)
	log.Info("scheduler.job.start")

	err := fn(ctx)
	fields := []zap.Field{zap.Int64("duration_ms", s.clock.Now().Sub(start).Milliseconds())}
	if err == nil {
		log.Info("scheduler.job.finish", fields...)
		return nil
	}

	// A deadline is a soft timeout; the next tick retries.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", append(fields, zap.Duration("timeout", timeout), zap.Error(err))...)
		return nil
	}
	log.Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobMorositySnapshot, func(ctx context.Context) error {
			return s.runJob(ctx, JobMorositySnapshot, s.cfg.SnapshotTimeout, s.MorositySnapshotJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// MorositySnapshotJob aggregates every due across all periods and publishes
// the result. When several replicas share a lock backend only one of them
// publishes per tick.
func (s *Scheduler) MorositySnapshotJob(ctx context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, snapshotLockKey, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire snapshot lock: %w", err)
		}
		if !ok {
			obslogger.WithContext(ctx, s.log).Debug("snapshot already running elsewhere")
			return nil
		}
		defer func() {
			_ = s.locker.Release(context.WithoutCancel(ctx), snapshotLockKey, token)
		}()
	}

	ind, err := s.dues.Indicators(ctx, domain.IndicatorsRequest{Source: domain.IndicatorSourceClient})
	if err != nil {
		return err
	}

	s.counters.Snapshot(ind.Counts.Overdue, ind.PercentOverdue, toFloat(ind.TotalOutstanding), ind.CollectionRate, s.clock.Now())
	obslogger.WithContext(ctx, s.log).Info("morosity snapshot published",
		zap.Int("total", ind.Total),
		zap.Int("overdue", ind.Counts.Overdue),
		zap.Float64("percent_overdue", ind.PercentOverdue),
		zap.String("outstanding", ind.TotalOutstanding.String()),
	)

	if s.pusher != nil {
		if err := s.pusher.Push(ctx, s.gatherer); err != nil {
			obslogger.WithContext(ctx, s.log).Warn("metrics push failed", zap.Error(err))
		}
	}
	return nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
