package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Store is the authoritative collaborator that owns dues and stands.
//
// FetchDue returns ErrNotFound for unknown ids. CreateDue rejects a second
// due for the same (stand, period) with a ValidationError carrying
// ErrCodeDuplicateDue. ApplyPayment adds payment.Amount to the stored
// amount paid only when it still equals expectedPaid, and reports a
// ConflictError otherwise.
type Store interface {
	FetchDues(ctx context.Context, filter DueFilter) ([]Due, error)
	FetchDue(ctx context.Context, id snowflake.ID) (*Due, error)
	FetchDuesForStand(ctx context.Context, standID snowflake.ID, page Page) (*DuePage, error)
	CreateDue(ctx context.Context, due Due) (*Due, error)
	ApplyPayment(ctx context.Context, dueID snowflake.ID, payment Payment, expectedPaid decimal.Decimal) (*Due, error)
	ListStands(ctx context.Context, scope Scope) ([]Stand, error)
	FetchStand(ctx context.Context, id snowflake.ID) (*Stand, error)
}

// BulkStore is implemented by stores that generate a whole batch server-side.
type BulkStore interface {
	CreateDuesBulk(ctx context.Context, req BulkRequest) (*BulkResult, error)
}

// IndicatorStore is implemented by stores that compute indicator snapshots.
type IndicatorStore interface {
	FetchIndicators(ctx context.Context, period string) (*Indicators, error)
}

// PaymentHistoryStore is implemented by stores that keep every payment event.
type PaymentHistoryStore interface {
	ListPayments(ctx context.Context, dueID snowflake.ID) ([]PaymentRecord, error)
}

type BulkRequest struct {
	Spec  DueSpec
	Scope Scope
}

type BulkFailure struct {
	StandID snowflake.ID `json:"stand_id"`
	Error   string       `json:"error"`
}

// BulkResult reports a non-atomic batch. Failed stands are a normal outcome.
type BulkResult struct {
	Created  int
	Skipped  int
	Failed   int
	Dues     []Due
	Failures []BulkFailure
}
