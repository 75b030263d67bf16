package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// DueView is the wire shape of a Due. Balance and Status are computed when
// the view is built; both are ignored when a view is decoded back into a Due.
type DueView struct {
	ID               string          `json:"id"`
	StandID          string          `json:"stand_id"`
	StandName        string          `json:"stand_name"`
	Block            string          `json:"block"`
	StandNumber      string          `json:"stand_number"`
	Category         string          `json:"category,omitempty"`
	Period           string          `json:"period"`
	DueDate          *string         `json:"due_date"`
	AmountDue        decimal.Decimal `json:"amount_due"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	Balance          decimal.Decimal `json:"balance"`
	Status           string          `json:"status"`
	PaymentMethod    *string         `json:"payment_method"`
	PaymentReference *string         `json:"payment_reference"`
	PaymentDate      *string         `json:"payment_date"`
	PaymentNotes     *string         `json:"payment_notes"`
	CreatedAt        *time.Time      `json:"created_at,omitempty"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
}

func NewDueView(d Due, asOf time.Time) DueView {
	view := DueView{
		ID:               d.ID.String(),
		StandID:          d.StandID.String(),
		StandName:        d.StandName,
		Block:            d.Block,
		StandNumber:      d.StandNumber,
		Category:         d.Category,
		Period:           d.Period,
		AmountDue:        d.AmountDue,
		AmountPaid:       d.AmountPaid,
		Balance:          d.Balance(),
		Status:           Resolve(d, asOf).Wire(),
		PaymentReference: d.PaymentReference,
		PaymentNotes:     d.PaymentNotes,
	}
	if d.DueDate != nil {
		value := d.DueDate.Format(DateLayout)
		view.DueDate = &value
	}
	if d.PaymentMethod != nil {
		value := d.PaymentMethod.Wire()
		view.PaymentMethod = &value
	}
	if d.PaymentDate != nil {
		value := d.PaymentDate.Format(time.RFC3339)
		view.PaymentDate = &value
	}
	if !d.CreatedAt.IsZero() {
		createdAt := d.CreatedAt
		view.CreatedAt = &createdAt
	}
	if !d.UpdatedAt.IsZero() {
		updatedAt := d.UpdatedAt
		view.UpdatedAt = &updatedAt
	}
	return view
}

func NewDueViews(dues []Due, asOf time.Time) []DueView {
	out := make([]DueView, 0, len(dues))
	for _, d := range dues {
		out = append(out, NewDueView(d, asOf))
	}
	return out
}

// ToDue decodes the view. The inbound status and balance are not trusted.
func (v DueView) ToDue() (Due, error) {
	id, err := ParseID("id", v.ID)
	if err != nil {
		return Due{}, err
	}
	standID, err := ParseID("stand_id", v.StandID)
	if err != nil {
		return Due{}, err
	}

	due := Due{
		ID:               id,
		StandID:          standID,
		StandName:        v.StandName,
		Block:            v.Block,
		StandNumber:      v.StandNumber,
		Category:         v.Category,
		Period:           v.Period,
		AmountDue:        v.AmountDue,
		AmountPaid:       v.AmountPaid,
		PaymentReference: v.PaymentReference,
		PaymentNotes:     v.PaymentNotes,
	}
	if v.DueDate != nil {
		parsed, err := ParseDate(*v.DueDate)
		if err != nil {
			return Due{}, err
		}
		due.DueDate = parsed
	}
	if v.PaymentMethod != nil {
		if method := ParsePaymentMethod(*v.PaymentMethod); method != "" {
			due.PaymentMethod = &method
		}
	}
	if v.PaymentDate != nil {
		parsed, err := ParseTimestamp(*v.PaymentDate)
		if err != nil {
			return Due{}, err
		}
		due.PaymentDate = parsed
	}
	if v.CreatedAt != nil {
		due.CreatedAt = *v.CreatedAt
	}
	if v.UpdatedAt != nil {
		due.UpdatedAt = *v.UpdatedAt
	}
	return due, nil
}

func ParseID(field, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, NewValidationError(field, ErrCodeInvalidID, "invalid "+field)
	}
	return id, nil
}

// ParseDate parses a YYYY-MM-DD calendar date. Empty input yields nil.
func ParseDate(raw string) (*time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		if ts, tsErr := time.Parse(time.RFC3339, value); tsErr == nil {
			day := DateOf(ts)
			return &day, nil
		}
		return nil, NewValidationError("due_date", ErrCodeInvalidDueDate, "due date must be YYYY-MM-DD")
	}
	return &parsed, nil
}

// ParseTimestamp accepts RFC3339 timestamps or bare dates.
func ParseTimestamp(raw string) (*time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts, nil
	}
	if day, err := time.Parse(DateLayout, value); err == nil {
		return &day, nil
	}
	return nil, NewValidationError("payment_date", ErrCodeInvalidPaymentDate, "payment date must be RFC3339 or YYYY-MM-DD")
}
