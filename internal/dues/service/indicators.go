package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/dues/export"
	"github.com/smallbiznis/mercado/internal/dues/indicator"
	"github.com/smallbiznis/mercado/internal/dues/query"
	"github.com/smallbiznis/mercado/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
)

// Indicators returns the morosity snapshot for a period, or for every period
// when none is given. A server snapshot is only used when asked for and when
// no block or category narrows the scope.
func (s *Service) Indicators(ctx context.Context, req domain.IndicatorsRequest) (ind *domain.Indicators, err error) {
	ctx, span := s.startSpan(ctx, "indicators",
		attribute.String("period", req.Period),
		attribute.String("source", req.Source),
	)
	defer func() { endSpan(span, err) }()

	source := strings.ToLower(strings.TrimSpace(req.Source))
	switch source {
	case "", domain.IndicatorSourceClient, domain.IndicatorSourceServer:
	default:
		return nil, domain.NewValidationError("source", domain.ErrCodeInvalidSource, "unknown indicator source "+req.Source)
	}

	period := allValue(req.Period)
	block := allValue(req.Block)
	category := allValue(req.Category)

	if source == domain.IndicatorSourceServer && block == "" && category == "" {
		if remote, ok := s.store.(domain.IndicatorStore); ok {
			out, err := remote.FetchIndicators(ctx, period)
			if err != nil {
				return nil, s.storeErr("fetch_indicators", err)
			}
			out.Period = period
			return out, nil
		}
	}

	dues, err := s.scopedDues(ctx, period, block, category)
	if err != nil {
		return nil, err
	}
	out := s.aggregate(dues)
	out.Period = period
	return &out, nil
}

func (s *Service) aggregate(dues []domain.Due) domain.Indicators {
	cfg := s.settings()
	return indicator.Aggregate(dues, s.today(), indicator.Options{
		WindowDays: cfg.UpcomingWindowDays,
		Scale:      cfg.CurrencyScale,
	})
}

func (s *Service) scopedDues(ctx context.Context, period, block, category string) ([]domain.Due, error) {
	dues, err := s.store.FetchDues(ctx, domain.DueFilter{Period: period, Block: block, Category: category})
	if err != nil {
		return nil, s.storeErr("fetch_dues", err)
	}
	out := make([]domain.Due, 0, len(dues))
	for _, d := range dues {
		if period != "" && d.Period != period {
			continue
		}
		if block != "" && !strings.EqualFold(d.Block, block) {
			continue
		}
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// ExportMorosity renders the indicators and the dues behind them as a
// workbook, most overdue balances first.
func (s *Service) ExportMorosity(ctx context.Context, req domain.ExportRequest) (file *domain.ExportFile, err error) {
	ctx, span := s.startSpan(ctx, "export_morosity",
		attribute.String("period", req.Period),
		attribute.String("block", req.Block),
	)
	defer func() { endSpan(span, err) }()

	period := allValue(req.Period)
	block := allValue(req.Block)
	category := allValue(req.Category)

	dues, err := s.scopedDues(ctx, period, block, category)
	if err != nil {
		return nil, err
	}
	ind := s.aggregate(dues)
	ind.Period = period

	today := s.today()
	ordered, err := query.Apply(dues, today, query.Filter{}, query.SortBalanceDesc)
	if err != nil {
		return nil, err
	}

	cfg := s.settings()
	data, err := export.MorosityWorkbook(ind, domain.NewDueViews(ordered, today), export.WorkbookMeta{
		Market:      cfg.MarketName,
		Currency:    cfg.Currency,
		Scope:       scopeLabel(period, block, category),
		GeneratedAt: s.now().In(s.loc),
	})
	if err != nil {
		return nil, fmt.Errorf("render morosity workbook: %w", err)
	}

	periodPart := period
	if periodPart == "" {
		periodPart = "todos"
	}
	return &domain.ExportFile{
		Name:        export.FileName("xlsx", "morosidad", periodPart, block, category),
		ContentType: export.ContentTypeXLSX,
		Data:        data,
	}, nil
}

func scopeLabel(period, block, category string) string {
	parts := make([]string, 0, 3)
	if period != "" {
		parts = append(parts, "period "+period)
	} else {
		parts = append(parts, "all periods")
	}
	if block != "" {
		parts = append(parts, "block "+block)
	}
	if category != "" {
		parts = append(parts, "category "+category)
	}
	return strings.Join(parts, ", ")
}

func pageInfo(page *domain.DuePage) pagination.PageInfo {
	info := pagination.BuildPageInfo(pagination.Pagination{Page: page.Number, Size: page.Size}, page.Total)
	if page.HasMore && !info.HasMore {
		next := info.Page + 1
		info.HasMore = true
		info.NextPage = &next
	}
	return info
}
