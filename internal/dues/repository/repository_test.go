package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	return New(conn, node)
}

func seedDue(t *testing.T, s *Store, id, standID int64, period string, amount int64) domain.Due {
	t.Helper()
	dueDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	due, err := s.CreateDue(context.Background(), domain.Due{
		ID:          snowflake.ID(id),
		StandID:     snowflake.ID(standID),
		StandName:   fmt.Sprintf("Stand %d", standID),
		Block:       "A",
		StandNumber: fmt.Sprintf("%03d", standID),
		Period:      period,
		DueDate:     &dueDate,
		AmountDue:   decimal.NewFromInt(amount),
		AmountPaid:  decimal.Zero,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return *due
}

func TestCreateAndFetchDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDue(t, s, 10, 1, "2025-03", 250)

	got, err := s.FetchDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", got.Period)
	assert.True(t, got.AmountDue.Equal(decimal.NewFromInt(250)))
	assert.True(t, got.AmountPaid.IsZero())
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-03-10", got.DueDate.Format(domain.DateLayout))

	_, err = s.FetchDue(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateDueRejectsDuplicatePeriod(t *testing.T) {
	s := newTestStore(t)
	seedDue(t, s, 10, 1, "2025-03", 250)

	_, err := s.CreateDue(context.Background(), domain.Due{
		ID: 11, StandID: 1, StandName: "Stand 1", Block: "A", StandNumber: "001",
		Period: "2025-03", AmountDue: decimal.NewFromInt(90), AmountPaid: decimal.Zero,
	})
	vErr, ok := domain.AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, domain.ErrCodeDuplicateDue, vErr.Code)
}

func TestApplyPaymentConditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDue(t, s, 10, 1, "2025-03", 250)
	ref := "OP-1"

	updated, err := s.ApplyPayment(ctx, 10, domain.Payment{Amount: decimal.NewFromInt(100), Method: domain.MethodCash, Reference: &ref}, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, updated.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, updated.Balance().Equal(decimal.NewFromInt(150)))
	require.NotNil(t, updated.PaymentMethod)
	assert.Equal(t, domain.MethodCash, *updated.PaymentMethod)

	t.Run("stale expectation conflicts", func(t *testing.T) {
		_, err := s.ApplyPayment(ctx, 10, domain.Payment{Amount: decimal.NewFromInt(10), Method: domain.MethodCash}, decimal.Zero)
		assert.True(t, domain.IsConflict(err), "got %v", err)

		current, err := s.FetchDue(ctx, 10)
		require.NoError(t, err)
		assert.True(t, current.AmountPaid.Equal(decimal.NewFromInt(100)))
	})

	t.Run("overpayment against stored copy conflicts", func(t *testing.T) {
		_, err := s.ApplyPayment(ctx, 10, domain.Payment{Amount: decimal.NewFromInt(151), Method: domain.MethodCash}, decimal.NewFromInt(100))
		assert.True(t, domain.IsConflict(err), "got %v", err)
	})

	t.Run("unknown due", func(t *testing.T) {
		_, err := s.ApplyPayment(ctx, 404, domain.Payment{Amount: decimal.NewFromInt(1), Method: domain.MethodCash}, decimal.Zero)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	final, err := s.ApplyPayment(ctx, 10, domain.Payment{Amount: decimal.NewFromInt(150), Method: domain.MethodCard}, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, final.Balance().IsZero())

	history, err := s.ListPayments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].AmountPaidAfter.Equal(decimal.NewFromInt(100)))
	assert.True(t, history[1].AmountPaidAfter.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, domain.MethodCard, history[1].Method)
}

func TestApplyPaymentFractionalSettlement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateDue(ctx, domain.Due{
		ID: 20, StandID: 2, StandName: "Stand 2", Block: "A", StandNumber: "002",
		Period: "2025-03", AmountDue: decimal.RequireFromString("0.30"), AmountPaid: decimal.Zero,
	})
	require.NoError(t, err)

	first, err := s.ApplyPayment(ctx, 20, domain.Payment{Amount: decimal.RequireFromString("0.10"), Method: domain.MethodCash}, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, first.AmountPaid.Equal(decimal.RequireFromString("0.10")))

	second, err := s.ApplyPayment(ctx, 20, domain.Payment{Amount: decimal.RequireFromString("0.20"), Method: domain.MethodCash}, first.AmountPaid)
	require.NoError(t, err)
	assert.True(t, second.AmountPaid.Equal(decimal.RequireFromString("0.30")), "got %s", second.AmountPaid)
	assert.True(t, second.Balance().IsZero(), "got %s", second.Balance())
	assert.True(t, second.AmountDue.Equal(second.AmountPaid.Add(second.Balance())))

	_, err = s.ApplyPayment(ctx, 20, domain.Payment{Amount: decimal.RequireFromString("0.01"), Method: domain.MethodCash}, second.AmountPaid)
	assert.True(t, domain.IsConflict(err), "got %v", err)

	history, err := s.ListPayments(ctx, 20)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].AmountPaidAfter.Equal(decimal.RequireFromString("0.30")))
}

func TestFetchDuesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDue(t, s, 10, 1, "2025-03", 100)
	seedDue(t, s, 11, 2, "2025-03", 100)
	seedDue(t, s, 12, 1, "2025-02", 100)

	dues, err := s.FetchDues(ctx, domain.DueFilter{Period: "2025-03"})
	require.NoError(t, err)
	assert.Len(t, dues, 2)

	stand := snowflake.ID(1)
	dues, err = s.FetchDues(ctx, domain.DueFilter{StandID: &stand, Block: "a"})
	require.NoError(t, err)
	assert.Len(t, dues, 2)
}

func TestFetchDuesForStandPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		seedDue(t, s, int64(100+i), 7, fmt.Sprintf("2025-%02d", i), 50)
	}

	page, err := s.FetchDuesForStand(ctx, 7, domain.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "2025-05", page.Items[0].Period)

	page, err = s.FetchDuesForStand(ctx, 7, domain.Page{Number: 3, Size: 2})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2025-01", page.Items[0].Period)
}

func TestStands(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveStands(ctx, []domain.Stand{
		{ID: 1, Name: "Frutas", Block: "A", Number: "001", Category: "food", Active: true},
		{ID: 2, Name: "Ropa", Block: "A", Number: "002", Category: "clothing", Active: true},
		{ID: 3, Name: "Cerrado", Block: "B", Number: "010", Category: "food", Active: false},
	}))

	stands, err := s.ListStands(ctx, domain.Scope{})
	require.NoError(t, err)
	assert.Len(t, stands, 2)

	stands, err = s.ListStands(ctx, domain.Scope{Category: "FOOD"})
	require.NoError(t, err)
	require.Len(t, stands, 1)
	assert.Equal(t, "Frutas", stands[0].Name)

	stand, err := s.FetchStand(ctx, 3)
	require.NoError(t, err)
	assert.False(t, stand.Active)

	_, err = s.FetchStand(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
