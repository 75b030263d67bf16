package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercado/internal/clock"
	"github.com/smallbiznis/mercado/internal/config"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/locker"
	obslogger "github.com/smallbiznis/mercado/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mercado/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Store    domain.Store
	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Config   config.Config
	Dues     *config.DuesConfigHolder `optional:"true"`
	Locker   locker.Locker            `optional:"true"`
	Metrics  *obsmetrics.Metrics      `optional:"true"`
	Counters *obsmetrics.DuesMetrics  `optional:"true"`
}

// Service is the calling layer around the dues engine: it reads the clock,
// fetches from the store, runs the pure components and writes back.
type Service struct {
	store    domain.Store
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	loc      *time.Location
	dues     *config.DuesConfigHolder
	locker   locker.Locker
	metrics  *obsmetrics.Metrics
	counters *obsmetrics.DuesMetrics
	tracer   trace.Tracer
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		store:    p.Store,
		log:      log.Named("dues.service"),
		clock:    clk,
		genID:    p.GenID,
		loc:      p.Config.Location(),
		dues:     p.Dues,
		locker:   p.Locker,
		metrics:  p.Metrics,
		counters: p.Counters,
		tracer:   otel.Tracer("mercado/dues"),
	}
}

func (s *Service) settings() config.DuesConfig {
	return s.dues.Get()
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}

// today is the market-local calendar day every status is resolved against.
func (s *Service) today() time.Time {
	return domain.Today(s.now(), s.loc)
}

func (s *Service) paymentMethods() []domain.PaymentMethod {
	raw := s.settings().PaymentMethods
	out := make([]domain.PaymentMethod, 0, len(raw))
	for _, m := range raw {
		if method := domain.ParsePaymentMethod(m); method != "" {
			out = append(out, method)
		}
	}
	return out
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "dues."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !domain.IsValidation(err) {
		span.SetStatus(codes.Error, errorKind(err))
	}
	span.End()
}

// withLock runs fn while holding key. An unreachable lock backend is not
// fatal: the store's conditional update still guards the write.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	token, ok, err := s.locker.TryLock(ctx, key, s.settings().LockTTL)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("lock unavailable", zap.String("key", key), zap.Error(err))
		return fn()
	}
	if !ok {
		return domain.NewConflictError(domain.ErrCodeDueBusy, "another operation on this resource is in progress")
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}

// storeErr counts a failed store call and passes err through untouched.
func (s *Service) storeErr(op string, err error) error {
	if err != nil {
		s.counters.StoreError(op, errorKind(err))
	}
	return err
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case domain.IsValidation(err):
		return "validation"
	case domain.IsConflict(err):
		return "conflict"
	case domain.IsTransport(err):
		return "transport"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// allValue maps the "all" sentinel and blanks to no restriction.
func allValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
