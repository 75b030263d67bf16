package repository

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"gorm.io/datatypes"
)

type dueRow struct {
	ID               snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	StandID          snowflake.ID `gorm:"not null;uniqueIndex:ux_dues_stand_period,priority:1"`
	StandName        string       `gorm:"not null"`
	Block            string       `gorm:"not null;index"`
	StandNumber      string       `gorm:"not null"`
	Category         string       `gorm:"not null"`
	Period           string       `gorm:"not null;uniqueIndex:ux_dues_stand_period,priority:2;index"`
	DueDate          *datatypes.Date
	AmountDue        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PaymentMethod    *string
	PaymentReference *string
	PaymentDate      *time.Time
	PaymentNotes     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (dueRow) TableName() string { return "dues" }

type standRow struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Name      string       `gorm:"not null"`
	Block     string       `gorm:"not null;index"`
	Number    string       `gorm:"not null"`
	Category  string       `gorm:"not null"`
	Active    bool         `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (standRow) TableName() string { return "stands" }

type paymentRow struct {
	ID              snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	DueID           snowflake.ID    `gorm:"not null;index"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Method          string          `gorm:"not null"`
	Reference       *string
	Notes           *string
	PaidAt          time.Time
	AmountPaidAfter decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt       time.Time
}

func (paymentRow) TableName() string { return "due_payments" }

func (r dueRow) toDomain() domain.Due {
	due := domain.Due{
		ID:               r.ID,
		StandID:          r.StandID,
		StandName:        r.StandName,
		Block:            r.Block,
		StandNumber:      r.StandNumber,
		Category:         r.Category,
		Period:           r.Period,
		AmountDue:        r.AmountDue,
		AmountPaid:       r.AmountPaid,
		PaymentReference: r.PaymentReference,
		PaymentNotes:     r.PaymentNotes,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.DueDate != nil {
		day := domain.DateOf(time.Time(*r.DueDate))
		due.DueDate = &day
	}
	if r.PaymentMethod != nil {
		method := domain.ParsePaymentMethod(*r.PaymentMethod)
		due.PaymentMethod = &method
	}
	if r.PaymentDate != nil {
		paidAt := r.PaymentDate.UTC()
		due.PaymentDate = &paidAt
	}
	return due
}

func fromDomain(d domain.Due) dueRow {
	row := dueRow{
		ID:               d.ID,
		StandID:          d.StandID,
		StandName:        d.StandName,
		Block:            d.Block,
		StandNumber:      d.StandNumber,
		Category:         d.Category,
		Period:           d.Period,
		AmountDue:        d.AmountDue,
		AmountPaid:       d.AmountPaid,
		PaymentReference: d.PaymentReference,
		PaymentDate:      d.PaymentDate,
		PaymentNotes:     d.PaymentNotes,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.DueDate != nil {
		day := datatypes.Date(domain.DateOf(*d.DueDate))
		row.DueDate = &day
	}
	if d.PaymentMethod != nil {
		method := string(*d.PaymentMethod)
		row.PaymentMethod = &method
	}
	return row
}

func (r standRow) toDomain() domain.Stand {
	return domain.Stand{
		ID:       r.ID,
		Name:     r.Name,
		Block:    r.Block,
		Number:   r.Number,
		Category: r.Category,
		Active:   r.Active,
	}
}

func (r paymentRow) toDomain() domain.PaymentRecord {
	return domain.PaymentRecord{
		ID:              r.ID,
		DueID:           r.DueID,
		Amount:          r.Amount,
		Method:          domain.ParsePaymentMethod(r.Method),
		Reference:       r.Reference,
		Notes:           r.Notes,
		PaidAt:          r.PaidAt.UTC(),
		AmountPaidAfter: r.AmountPaidAfter,
		CreatedAt:       r.CreatedAt,
	}
}
