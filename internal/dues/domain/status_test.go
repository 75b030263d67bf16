package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	past := day(2025, 3, 10)
	asOf := day(2025, 3, 20)

	cases := []struct {
		name string
		due  Due
		asOf time.Time
		want Status
	}{
		{"paid in full after due date", Due{AmountDue: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(100), DueDate: &past}, asOf, StatusPaid},
		{"partial past due", Due{AmountDue: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(40), DueDate: &past}, asOf, StatusOverdue},
		{"unpaid past due", Due{AmountDue: decimal.NewFromInt(100), DueDate: &past}, asOf, StatusOverdue},
		{"partial before due", Due{AmountDue: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(40), DueDate: &past}, day(2025, 3, 1), StatusPartial},
		{"pending without due date", Due{AmountDue: decimal.NewFromInt(100)}, asOf, StatusPending},
		{"partial without due date", Due{AmountDue: decimal.NewFromInt(100), AmountPaid: decimal.NewFromInt(1)}, asOf, StatusPartial},
		{"due today is not overdue", Due{AmountDue: decimal.NewFromInt(100), DueDate: &past}, past.Add(23 * time.Hour), StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.due, tc.asOf))
			assert.Equal(t, tc.want, Resolve(tc.due, tc.asOf), "resolve must be repeatable")
		})
	}
}

func TestResolveNeverOverdueBeforeDueDate(t *testing.T) {
	dueDate := day(2025, 6, 30)
	due := Due{AmountDue: decimal.NewFromInt(500), AmountPaid: decimal.NewFromInt(20), DueDate: &dueDate}
	for d := day(2025, 6, 1); !d.After(dueDate); d = d.AddDate(0, 0, 1) {
		assert.NotEqual(t, StatusOverdue, Resolve(due, d), d.Format(DateLayout))
	}
}

func TestParseStatus(t *testing.T) {
	for raw, want := range map[string]Status{
		"vencido":   StatusOverdue,
		"PAGADO":    StatusPaid,
		" parcial ": StatusPartial,
		"PENDIENTE": StatusPending,
		"overdue":   StatusOverdue,
	} {
		got, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStatus("CANCELADO")
	assert.True(t, IsValidation(err))
}

func TestParsePaymentMethod(t *testing.T) {
	assert.Equal(t, MethodMobileWallet, ParsePaymentMethod("billetera_movil"))
	assert.Equal(t, MethodCard, ParsePaymentMethod("TARJETA"))
	assert.Equal(t, MethodCash, ParsePaymentMethod("cash"))
	assert.Equal(t, PaymentMethod("crypto"), ParsePaymentMethod(" CRYPTO "))
	assert.Equal(t, "CRYPTO", PaymentMethod("crypto").Wire())
}

func TestDueViewRoundTripIgnoresInboundStatus(t *testing.T) {
	dueDate := day(2025, 3, 10)
	method := MethodCash
	due := Due{
		ID:            snowflake.ID(11),
		StandID:       snowflake.ID(22),
		StandName:     "Frutas Rosa",
		Block:         "B",
		StandNumber:   "014",
		Period:        "2025-03",
		DueDate:       &dueDate,
		AmountDue:     decimal.NewFromInt(250),
		AmountPaid:    decimal.NewFromInt(100),
		PaymentMethod: &method,
	}

	view := NewDueView(due, day(2025, 3, 20))
	assert.Equal(t, "VENCIDO", view.Status)
	assert.True(t, view.Balance.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, view.PaymentMethod)
	assert.Equal(t, "EFECTIVO", *view.PaymentMethod)

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded DueView
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decoded.Status = "PAGADO"
	decoded.Balance = decimal.Zero

	back, err := decoded.ToDue()
	require.NoError(t, err)
	assert.Equal(t, due.ID, back.ID)
	assert.True(t, back.Balance().Equal(decimal.NewFromInt(150)))
	assert.Equal(t, StatusOverdue, Resolve(back, day(2025, 3, 20)))
	require.NotNil(t, back.DueDate)
	assert.True(t, back.DueDate.Equal(dueDate))
}

func TestErrorClassification(t *testing.T) {
	var err error = NewTransportError("fetch_dues", assert.AnError)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, IsConflict(err))

	err = NewConflictError(ErrCodeAmountPaidChanged, "")
	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
}

func TestSearchTextMatchesJoinedAndRunTogether(t *testing.T) {
	d := Due{StandName: "Jugos María", Block: "A", StandNumber: "12"}
	text := d.SearchText()

	assert.Contains(t, text, "maría a 12")
	assert.Contains(t, text, "a12")
	assert.NotContains(t, text, "María")
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-03-18T10:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, 15, ts.UTC().Hour())

	day, err := ParseTimestamp("2025-03-18")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-18", day.Format(DateLayout))

	empty, err := ParseTimestamp("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseTimestamp("ayer")
	vErr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidPaymentDate, vErr.Code)
	assert.Equal(t, "payment_date", vErr.Field)
}
