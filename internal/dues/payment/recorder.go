package payment

import (
	"strings"
	"time"

	"github.com/smallbiznis/mercado/internal/dues/domain"
)

// Recorder validates payments and applies them to a copy of a Due.
type Recorder struct {
	methods map[domain.PaymentMethod]struct{}
	scale   int32
}

func NewRecorder(methods []domain.PaymentMethod, scale int32) *Recorder {
	if len(methods) == 0 {
		methods = domain.DefaultPaymentMethods
	}
	if scale <= 0 {
		scale = 2
	}
	set := make(map[domain.PaymentMethod]struct{}, len(methods))
	for _, m := range methods {
		set[domain.ParsePaymentMethod(string(m))] = struct{}{}
	}
	return &Recorder{methods: set, scale: scale}
}

// Normalize rounds the amount and canonicalizes the method spelling.
func (r *Recorder) Normalize(p domain.Payment) domain.Payment {
	p.Amount = p.Amount.Round(r.scale)
	p.Method = domain.ParsePaymentMethod(string(p.Method))
	p.Reference = trimmed(p.Reference)
	p.Notes = trimmed(p.Notes)
	return p
}

// Validate checks, in order, that the amount is positive, that it does not
// exceed the current balance, and that the method is recognized.
func (r *Recorder) Validate(due domain.Due, p domain.Payment) error {
	p = r.Normalize(p)
	if !p.Amount.IsPositive() {
		return domain.NewValidationError("amount", domain.ErrCodeInvalidAmount, "payment amount must be greater than zero")
	}
	if p.Amount.GreaterThan(due.Balance()) {
		return domain.NewValidationError("amount", domain.ErrCodeOverpayment, "payment amount exceeds balance "+due.Balance().StringFixed(r.scale))
	}
	if _, ok := r.methods[p.Method]; !ok {
		return domain.NewValidationError("method", domain.ErrCodeInvalidMethod, "unknown payment method "+string(p.Method))
	}
	return nil
}

// Apply returns a new Due with the payment applied. The input is never
// modified, so a rejected payment leaves no trace.
func (r *Recorder) Apply(due domain.Due, p domain.Payment, now time.Time) (domain.Due, error) {
	if err := r.Validate(due, p); err != nil {
		return due, err
	}
	p = r.Normalize(p)

	paidAt := now
	if p.PaidAt != nil {
		paidAt = *p.PaidAt
	}
	method := p.Method

	next := due
	next.AmountPaid = due.AmountPaid.Add(p.Amount)
	next.PaymentMethod = &method
	next.PaymentReference = p.Reference
	next.PaymentNotes = p.Notes
	next.PaymentDate = &paidAt
	next.UpdatedAt = now.UTC()
	return next, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
