package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/pkg/db/pagination"
)

type Service interface {
	List(ctx context.Context, req ListDuesRequest) (*ListDuesResponse, error)
	Get(ctx context.Context, id string) (*DueView, error)
	Generate(ctx context.Context, req GenerateDueRequest) (*DueView, error)
	GenerateBulk(ctx context.Context, req GenerateBulkRequest) (*BulkResponse, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*DueView, error)
	ListPayments(ctx context.Context, dueID string) ([]PaymentRecord, error)
	ListForStand(ctx context.Context, req ListStandDuesRequest) (*StandDuesResponse, error)
	Indicators(ctx context.Context, req IndicatorsRequest) (*Indicators, error)
	ExportMorosity(ctx context.Context, req ExportRequest) (*ExportFile, error)
	Receipt(ctx context.Context, dueID string) (*ExportFile, error)
}

type ListDuesRequest struct {
	Period   string
	Status   string
	Block    string
	Category string
	Search   string
	Sort     string
	Group    string
}

type DueGroup struct {
	Key   string    `json:"key"`
	Count int       `json:"count"`
	Dues  []DueView `json:"dues"`
}

type ListDuesResponse struct {
	AsOf   string     `json:"as_of"`
	Total  int        `json:"total"`
	Dues   []DueView  `json:"dues"`
	Groups []DueGroup `json:"groups,omitempty"`
}

type GenerateDueRequest struct {
	StandID   string
	Period    string
	DueDate   string
	AmountDue decimal.Decimal
}

type GenerateBulkRequest struct {
	Period    string
	DueDate   string
	AmountDue decimal.Decimal
	Block     string
	Category  string
}

type BulkResponse struct {
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Dues     []DueView     `json:"dues"`
	Failures []BulkFailure `json:"failures"`
}

type RecordPaymentRequest struct {
	DueID     string
	Amount    decimal.Decimal
	Method    string
	Reference *string
	Notes     *string
	PaidAt    string
}

type ListStandDuesRequest struct {
	StandID string
	Page    int
	Size    int
}

type StandDuesResponse struct {
	Stand    *Stand              `json:"stand,omitempty"`
	Dues     []DueView           `json:"dues"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type IndicatorsRequest struct {
	Period   string
	Block    string
	Category string
	Source   string
}

type ExportRequest struct {
	Period   string
	Block    string
	Category string
}

type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}
