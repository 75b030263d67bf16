package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/dues/generator"
	"github.com/smallbiznis/mercado/internal/dues/query"
	obslogger "github.com/smallbiznis/mercado/internal/observability/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	groupBlock  = "block"
	groupPeriod = "period"

	modeSingle = "single"
	modeBulk   = "bulk"
)

func (s *Service) List(ctx context.Context, req domain.ListDuesRequest) (resp *domain.ListDuesResponse, err error) {
	ctx, span := s.startSpan(ctx, "list",
		attribute.String("period", req.Period),
		attribute.String("status", req.Status),
		attribute.String("block", req.Block),
	)
	defer func() { endSpan(span, err) }()

	order, err := query.ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}
	group := strings.ToLower(strings.TrimSpace(req.Group))
	switch group {
	case "", groupBlock, groupPeriod:
	default:
		return nil, domain.NewValidationError("group", domain.ErrCodeInvalidGroup, "unknown group "+req.Group)
	}

	// Status is resolved locally against today; the store's view of it is
	// never trusted.
	dues, err := s.store.FetchDues(ctx, domain.DueFilter{
		Period:   allValue(req.Period),
		Block:    allValue(req.Block),
		Category: allValue(req.Category),
	})
	if err != nil {
		return nil, s.storeErr("fetch_dues", err)
	}

	if category := allValue(req.Category); category != "" {
		scoped := make([]domain.Due, 0, len(dues))
		for _, d := range dues {
			if strings.EqualFold(d.Category, category) {
				scoped = append(scoped, d)
			}
		}
		dues = scoped
	}

	today := s.today()
	view, err := query.Apply(dues, today, query.Filter{
		Period: req.Period,
		Status: req.Status,
		Block:  req.Block,
		Search: req.Search,
	}, order)
	if err != nil {
		return nil, err
	}

	resp = &domain.ListDuesResponse{
		AsOf:  today.Format(domain.DateLayout),
		Total: len(view),
		Dues:  domain.NewDueViews(view, today),
	}

	var groups []query.Group
	switch group {
	case groupBlock:
		groups = query.GroupByBlock(view)
	case groupPeriod:
		groups = query.GroupByPeriod(view)
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, domain.DueGroup{
			Key:   g.Key,
			Count: len(g.Dues),
			Dues:  domain.NewDueViews(g.Dues, today),
		})
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (view *domain.DueView, err error) {
	ctx, span := s.startSpan(ctx, "get", attribute.String("due_id", id))
	defer func() { endSpan(span, err) }()

	dueID, err := domain.ParseID("id", id)
	if err != nil {
		return nil, err
	}
	due, err := s.store.FetchDue(ctx, dueID)
	if err != nil {
		return nil, s.storeErr("fetch_due", err)
	}
	out := domain.NewDueView(*due, s.today())
	return &out, nil
}

func (s *Service) generator() *generator.Generator {
	return generator.New(s.genID, s.settings().CurrencyScale)
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateDueRequest) (view *domain.DueView, err error) {
	ctx, span := s.startSpan(ctx, "generate",
		attribute.String("stand_id", req.StandID),
		attribute.String("period", req.Period),
	)
	defer func() { endSpan(span, err) }()

	standID, err := domain.ParseID("stand_id", req.StandID)
	if err != nil {
		return nil, err
	}
	dueDate, err := domain.ParseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	spec := domain.DueSpec{Period: req.Period, DueDate: dueDate, AmountDue: req.AmountDue}

	gen := s.generator()
	if spec, err = gen.ValidateSpec(spec); err != nil {
		return nil, err
	}

	stand, err := s.store.FetchStand(ctx, standID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("stand_id", domain.ErrCodeInvalidStand, "stand is unknown or inactive")
		}
		return nil, s.storeErr("fetch_stand", err)
	}
	existing, err := s.store.FetchDues(ctx, domain.DueFilter{Period: spec.Period, StandID: &standID})
	if err != nil {
		return nil, s.storeErr("fetch_dues", err)
	}

	due, err := gen.ForStand(*stand, spec, existing, s.now())
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateDue(ctx, due)
	if err != nil {
		return nil, s.storeErr("create_due", err)
	}

	s.counters.Generated(modeSingle, "created", 1)
	s.metrics.RecordDuesGenerated(ctx, modeSingle, 1)
	obslogger.WithDue(obslogger.WithContext(ctx, s.log), created.ID.String(), created.StandID.String()).
		Info("due generated", zap.String("period", created.Period))

	out := domain.NewDueView(*created, s.today())
	return &out, nil
}

func (s *Service) GenerateBulk(ctx context.Context, req domain.GenerateBulkRequest) (resp *domain.BulkResponse, err error) {
	ctx, span := s.startSpan(ctx, "generate_bulk",
		attribute.String("period", req.Period),
		attribute.String("block", req.Block),
	)
	defer func() { endSpan(span, err) }()

	dueDate, err := domain.ParseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	gen := s.generator()
	spec, err := gen.ValidateSpec(domain.DueSpec{Period: req.Period, DueDate: dueDate, AmountDue: req.AmountDue})
	if err != nil {
		return nil, err
	}
	scope := domain.Scope{Block: allValue(req.Block), Category: allValue(req.Category)}

	var result *domain.BulkResult
	err = s.withLock(ctx, "dues:bulk:"+spec.Period, func() error {
		var runErr error
		result, runErr = s.runBulk(ctx, gen, spec, scope)
		return runErr
	})
	if err != nil {
		return nil, err
	}

	s.counters.Generated(modeBulk, "created", result.Created)
	s.counters.Generated(modeBulk, "skipped", result.Skipped)
	s.counters.Generated(modeBulk, "failed", result.Failed)
	s.metrics.RecordDuesGenerated(ctx, modeBulk, result.Created)

	obslogger.WithContext(ctx, s.log).Info("bulk generation finished",
		zap.String("period", spec.Period),
		zap.String("block", scope.Block),
		zap.String("category", scope.Category),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	failures := result.Failures
	if failures == nil {
		failures = []domain.BulkFailure{}
	}
	return &domain.BulkResponse{
		Created:  result.Created,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
		Dues:     domain.NewDueViews(result.Dues, s.today()),
		Failures: failures,
	}, nil
}

// runBulk delegates to a store that generates server-side, and otherwise
// plans locally and creates one due at a time. Per-stand failures do not
// abort the batch.
func (s *Service) runBulk(ctx context.Context, gen *generator.Generator, spec domain.DueSpec, scope domain.Scope) (*domain.BulkResult, error) {
	if bulk, ok := s.store.(domain.BulkStore); ok {
		res, err := bulk.CreateDuesBulk(ctx, domain.BulkRequest{Spec: spec, Scope: scope})
		if err != nil {
			return nil, s.storeErr("create_dues_bulk", err)
		}
		return res, nil
	}

	stands, err := s.store.ListStands(ctx, scope)
	if err != nil {
		return nil, s.storeErr("list_stands", err)
	}
	existing, err := s.store.FetchDues(ctx, domain.DueFilter{Period: spec.Period})
	if err != nil {
		return nil, s.storeErr("fetch_dues", err)
	}
	plan, err := gen.PlanBulk(stands, spec, scope, existing, s.now())
	if err != nil {
		return nil, err
	}

	log := obslogger.WithContext(ctx, s.log)
	res := &domain.BulkResult{Skipped: len(plan.Skipped), Dues: make([]domain.Due, 0, len(plan.Dues))}
	for _, due := range plan.Dues {
		created, err := s.store.CreateDue(ctx, due)
		if err != nil {
			if vErr, ok := domain.AsValidation(err); ok && vErr.Code == domain.ErrCodeDuplicateDue {
				res.Skipped++
				continue
			}
			s.storeErr("create_due", err)
			res.Failed++
			res.Failures = append(res.Failures, domain.BulkFailure{StandID: due.StandID, Error: err.Error()})
			log.Warn("bulk generation failed for stand",
				zap.String("stand_id", due.StandID.String()),
				zap.String("period", due.Period),
				zap.Error(err),
			)
			continue
		}
		res.Created++
		res.Dues = append(res.Dues, *created)
	}
	return res, nil
}

func (s *Service) ListForStand(ctx context.Context, req domain.ListStandDuesRequest) (resp *domain.StandDuesResponse, err error) {
	ctx, span := s.startSpan(ctx, "list_for_stand", attribute.String("stand_id", req.StandID))
	defer func() { endSpan(span, err) }()

	standID, err := domain.ParseID("stand_id", req.StandID)
	if err != nil {
		return nil, err
	}
	stand, err := s.store.FetchStand(ctx, standID)
	if err != nil {
		return nil, s.storeErr("fetch_stand", err)
	}
	page, err := s.store.FetchDuesForStand(ctx, standID, domain.Page{Number: req.Page, Size: req.Size})
	if err != nil {
		return nil, s.storeErr("fetch_stand_dues", fmt.Errorf("stand %s: %w", standID, err))
	}

	info := pageInfo(page)
	return &domain.StandDuesResponse{
		Stand:    stand,
		Dues:     domain.NewDueViews(page.Items, s.today()),
		PageInfo: info,
	}, nil
}
