package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/clock"
	"github.com/smallbiznis/mercado/internal/config"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/locker"
	obsmetrics "github.com/smallbiznis/mercado/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type fakeDues struct {
	domain.Service
	calls int
	ind   *domain.Indicators
	err   error
}

func (f *fakeDues) Indicators(ctx context.Context, req domain.IndicatorsRequest) (*domain.Indicators, error) {
	f.calls++
	return f.ind, f.err
}

func newTestScheduler(t *testing.T, dues domain.Service, lock locker.Locker, reg *prometheus.Registry) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	s, err := New(Params{
		Dues:     dues,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)),
		Locker:   lock,
		Counters: obsmetrics.NewDuesMetrics(reg),
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RunInterval: time.Second}.withDefaults()
	assert.Equal(t, time.Second, cfg.RunInterval)
	assert.Equal(t, 30*time.Second, cfg.SnapshotTimeout)
	assert.Equal(t, time.Minute, cfg.LockTTL)
}

func TestRunOncePublishesSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	dues := &fakeDues{ind: &domain.Indicators{
		Total:            4,
		Counts:           domain.StatusCounts{Overdue: 1, Paid: 3},
		PercentOverdue:   25,
		CollectionRate:   80,
		TotalOutstanding: decimal.RequireFromString("150.50"),
	}}
	s := newTestScheduler(t, dues, locker.NewLocalLocker(), reg)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, dues.calls)

	expected := `
# HELP mercado_dues_overdue Overdue dues in the latest morosity snapshot.
# TYPE mercado_dues_overdue gauge
mercado_dues_overdue 1
# HELP mercado_dues_percent_overdue Percentage of dues overdue in the latest morosity snapshot.
# TYPE mercado_dues_percent_overdue gauge
mercado_dues_percent_overdue 25
# HELP mercado_dues_outstanding_amount Outstanding balance in the latest morosity snapshot.
# TYPE mercado_dues_outstanding_amount gauge
mercado_dues_outstanding_amount 150.5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"mercado_dues_overdue", "mercado_dues_percent_overdue", "mercado_dues_outstanding_amount"))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	lock := locker.NewLocalLocker()
	_, ok, err := lock.TryLock(context.Background(), snapshotLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	dues := &fakeDues{ind: &domain.Indicators{}}
	s := newTestScheduler(t, dues, lock, prometheus.NewRegistry())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, dues.calls)
}

func TestRunOnceReportsFailures(t *testing.T) {
	dues := &fakeDues{err: domain.NewTransportError("fetch_dues", errors.New("connection refused"))}
	s := newTestScheduler(t, dues, nil, prometheus.NewRegistry())

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobMorositySnapshot)
	assert.True(t, domain.IsTransport(err))
}

func TestRunOnceTreatsTimeoutAsSoft(t *testing.T) {
	dues := &fakeDues{err: context.DeadlineExceeded}
	s := newTestScheduler(t, dues, nil, prometheus.NewRegistry())
	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	dues := &fakeDues{ind: &domain.Indicators{}}
	s := newTestScheduler(t, dues, nil, prometheus.NewRegistry())
	s.cfg.EnabledJobs = []string{"something_else"}

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, dues.calls)
}

type recordingPusher struct {
	gatherer prometheus.Gatherer
	err      error
}

func (p *recordingPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	p.gatherer = gatherer
	return p.err
}

func TestSnapshotPushesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	dues := &fakeDues{ind: &domain.Indicators{Total: 2, Counts: domain.StatusCounts{Overdue: 2}}}
	s := newTestScheduler(t, dues, nil, reg)
	pusher := &recordingPusher{err: errors.New("gateway down")}
	s.pusher = pusher
	s.gatherer = reg

	require.NoError(t, s.MorositySnapshotJob(context.Background()))
	assert.Same(t, reg, pusher.gatherer)
	expected := `
# HELP mercado_dues_overdue Overdue dues in the latest morosity snapshot.
# TYPE mercado_dues_overdue gauge
mercado_dues_overdue 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mercado_dues_overdue"))
}

func TestSnapshotLoopFollowsLifecycle(t *testing.T) {
	dues := &fakeDues{ind: &domain.Indicators{Total: 1, Counts: domain.StatusCounts{Pending: 1}}}
	s := newTestScheduler(t, dues, nil, prometheus.NewRegistry())

	lc := fxtest.NewLifecycle(t)
	registerSnapshotLoop(lc, config.Config{SchedulerEnabled: true}, s, zap.NewNop())
	lc.RequireStart()
	lc.RequireStop()

	assert.Equal(t, 1, dues.calls)
}

func TestSnapshotLoopDisabled(t *testing.T) {
	dues := &fakeDues{}
	s := newTestScheduler(t, dues, nil, prometheus.NewRegistry())

	lc := fxtest.NewLifecycle(t)
	registerSnapshotLoop(lc, config.Config{SchedulerEnabled: false}, s, zap.NewNop())
	lc.RequireStart()
	lc.RequireStop()

	assert.Zero(t, dues.calls)
}
