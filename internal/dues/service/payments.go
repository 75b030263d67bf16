package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/dues/export"
	"github.com/smallbiznis/mercado/internal/dues/payment"
	obslogger "github.com/smallbiznis/mercado/internal/observability/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RecordPayment applies one payment against a freshly fetched copy of the
// due and writes it back conditioned on the amount paid it started from.
func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (view *domain.DueView, err error) {
	ctx, span := s.startSpan(ctx, "record_payment",
		attribute.String("due_id", req.DueID),
		attribute.String("method", req.Method),
	)
	defer func() { endSpan(span, err) }()

	dueID, err := domain.ParseID("id", req.DueID)
	if err != nil {
		return nil, err
	}
	paidAt, err := domain.ParseTimestamp(req.PaidAt)
	if err != nil {
		return nil, err
	}
	p := domain.Payment{
		Amount:    req.Amount,
		Method:    domain.ParsePaymentMethod(req.Method),
		Reference: req.Reference,
		Notes:     req.Notes,
		PaidAt:    paidAt,
	}

	var stored *domain.Due
	err = s.withLock(ctx, "dues:payment:"+dueID.String(), func() error {
		var runErr error
		stored, runErr = s.applyPayment(ctx, p, dueID)
		return runErr
	})
	if err != nil {
		return nil, err
	}

	out := domain.NewDueView(*stored, s.today())
	return &out, nil
}

func (s *Service) applyPayment(ctx context.Context, p domain.Payment, dueID snowflake.ID) (*domain.Due, error) {
	log := obslogger.WithContext(ctx, s.log)

	due, err := s.store.FetchDue(ctx, dueID)
	if err != nil {
		return nil, s.storeErr("fetch_due", err)
	}
	log = obslogger.WithDue(log, due.ID.String(), due.StandID.String())

	now := s.now()
	if p.PaidAt == nil {
		paidAt := now.UTC()
		p.PaidAt = &paidAt
	}

	recorder := payment.NewRecorder(s.paymentMethods(), s.settings().CurrencyScale)
	next, err := recorder.Apply(*due, p, now)
	if err != nil {
		if vErr, ok := domain.AsValidation(err); ok {
			s.counters.PaymentRejected(vErr.Code)
			s.metrics.RecordRejection(ctx, vErr.Code)
			log.Info("payment rejected", zap.String("code", vErr.Code))
		}
		return nil, err
	}
	p = recorder.Normalize(p)

	stored, err := s.store.ApplyPayment(ctx, due.ID, p, due.AmountPaid)
	if err != nil {
		if domain.IsConflict(err) {
			log.Warn("payment conflict", zap.String("expected_amount_paid", due.AmountPaid.String()), zap.Error(err))
		}
		return nil, s.storeErr("apply_payment", err)
	}
	if stored.AmountPaid.LessThan(next.AmountPaid) {
		log.Warn("amount paid regressed after payment",
			zap.String("expected_amount_paid", next.AmountPaid.String()),
			zap.String("stored_amount_paid", stored.AmountPaid.String()),
		)
	}

	amount, _ := p.Amount.Float64()
	s.counters.PaymentRecorded(p.Method.Wire())
	s.metrics.RecordPayment(ctx, p.Method.Wire(), amount)
	log.Info("payment recorded",
		zap.String("method", p.Method.Wire()),
		zap.String("amount", p.Amount.String()),
		zap.String("balance", stored.Balance().String()),
	)
	return stored, nil
}

func (s *Service) ListPayments(ctx context.Context, dueID string) (records []domain.PaymentRecord, err error) {
	ctx, span := s.startSpan(ctx, "list_payments", attribute.String("due_id", dueID))
	defer func() { endSpan(span, err) }()

	id, err := domain.ParseID("id", dueID)
	if err != nil {
		return nil, err
	}
	history, ok := s.store.(domain.PaymentHistoryStore)
	if !ok {
		return nil, domain.ErrNotSupported
	}
	if _, err := s.store.FetchDue(ctx, id); err != nil {
		return nil, s.storeErr("fetch_due", err)
	}
	records, err = history.ListPayments(ctx, id)
	if err != nil {
		return nil, s.storeErr("list_payments", err)
	}
	if records == nil {
		records = []domain.PaymentRecord{}
	}
	return records, nil
}

// Receipt renders the latest payment of a due as a PDF.
func (s *Service) Receipt(ctx context.Context, dueID string) (file *domain.ExportFile, err error) {
	ctx, span := s.startSpan(ctx, "receipt", attribute.String("due_id", dueID))
	defer func() { endSpan(span, err) }()

	id, err := domain.ParseID("id", dueID)
	if err != nil {
		return nil, err
	}
	due, err := s.store.FetchDue(ctx, id)
	if err != nil {
		return nil, s.storeErr("fetch_due", err)
	}
	if !due.HasPayment() {
		return nil, domain.ErrNoPayment
	}

	cfg := s.settings()
	data, err := export.Receipt(export.ReceiptData{
		Market:   cfg.MarketName,
		Currency: cfg.Currency,
		Due:      domain.NewDueView(*due, s.today()),
		IssuedAt: s.now().In(s.loc),
	})
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return &domain.ExportFile{
		Name:        export.FileName("pdf", "recibo", due.Block, due.StandNumber, due.Period),
		ContentType: export.ContentTypePDF,
		Data:        data,
	}, nil
}
