package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Due is one charge owed by one stand for one billing period.
// Balance and status are derived on read and never stored.
type Due struct {
	ID          snowflake.ID
	StandID     snowflake.ID
	StandName   string
	Block       string
	StandNumber string
	Category    string
	Period      string
	DueDate     *time.Time
	AmountDue   decimal.Decimal
	AmountPaid  decimal.Decimal

	PaymentMethod    *PaymentMethod
	PaymentReference *string
	PaymentDate      *time.Time
	PaymentNotes     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balance returns AmountDue minus AmountPaid.
func (d Due) Balance() decimal.Decimal {
	return d.AmountDue.Sub(d.AmountPaid)
}

// HasPayment reports whether at least one payment has been applied.
func (d Due) HasPayment() bool {
	return d.AmountPaid.IsPositive()
}

// SearchText is the lowercase haystack used by free-text search. It holds
// the stand fields joined by spaces and also run together, so "a12" finds
// stand 12 of block A.
func (d Due) SearchText() string {
	fields := []string{d.StandName, d.Block, d.StandNumber}
	return strings.ToLower(strings.Join(fields, " ") + "\x00" + strings.Join(fields, ""))
}

// Payment is one settlement event applied to a Due.
type Payment struct {
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference *string
	Notes     *string
	PaidAt    *time.Time
}

// PaymentRecord is a persisted payment event, kept for the history view.
type PaymentRecord struct {
	ID              snowflake.ID    `json:"id"`
	DueID           snowflake.ID    `json:"due_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	Reference       *string         `json:"reference,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	PaidAt          time.Time       `json:"paid_at"`
	AmountPaidAfter decimal.Decimal `json:"amount_paid_after"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Stand is reference data owned by the marketplace administration.
type Stand struct {
	ID       snowflake.ID `json:"id"`
	Name     string       `json:"name"`
	Block    string       `json:"block"`
	Number   string       `json:"number"`
	Category string       `json:"category"`
	Active   bool         `json:"active"`
}

// Scope selects the stands targeted by bulk generation. The zero value
// targets every active stand.
type Scope struct {
	Block    string `json:"block,omitempty"`
	Category string `json:"category,omitempty"`
}

func (s Scope) Matches(stand Stand) bool {
	if !stand.Active {
		return false
	}
	if block := strings.TrimSpace(s.Block); block != "" && !strings.EqualFold(block, stand.Block) {
		return false
	}
	if category := strings.TrimSpace(s.Category); category != "" && !strings.EqualFold(category, stand.Category) {
		return false
	}
	return true
}

// DueSpec carries the inputs shared by single and bulk generation.
type DueSpec struct {
	Period    string
	DueDate   *time.Time
	AmountDue decimal.Decimal
}

// DueFilter is the server-side pre-filter accepted by Store.FetchDues.
// Status is absent because it is derived locally from each Due.
type DueFilter struct {
	Period   string
	Block    string
	Category string
	StandID  *snowflake.ID
}

// Page addresses one page of a stand's due history. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

type DuePage struct {
	Items   []Due
	Number  int
	Size    int
	Total   int64
	HasMore bool
}

// DateOf truncates t to its calendar day, expressed at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}
