package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/", Token: "secret", Timeout: 200 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"type":    "validation_error",
			"message": "rejected",
			"errors":  []map[string]string{{"field": field, "code": code, "message": "rejected"}},
		},
	})
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestFetchDueIgnoresInboundStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dues/42", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(headerCorrelationID))
		writeData(w, http.StatusOK, map[string]any{
			"id":           "42",
			"stand_id":     "7",
			"stand_name":   "Frutas Rosa",
			"block":        "A",
			"stand_number": "012",
			"period":       "2025-03",
			"due_date":     "2025-03-10",
			"amount_due":   "250",
			"amount_paid":  "100",
			"balance":      "0",
			"status":       "PAGADO",
		})
	})

	due, err := c.FetchDue(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), due.StandID)
	assert.True(t, due.Balance().Equal(decimal.NewFromInt(150)))

	asOf := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, domain.StatusOverdue, domain.Resolve(*due, asOf))
}

func TestFetchDuesSendsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2025-03", q.Get("period"))
		assert.Equal(t, "B", q.Get("block"))
		assert.False(t, q.Has("status"))
		writeData(w, http.StatusOK, []map[string]any{})
	})

	dues, err := c.FetchDues(context.Background(), domain.DueFilter{Period: "2025-03", Block: "B"})
	require.NoError(t, err)
	assert.Empty(t, dues)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		check  func(t *testing.T, err error)
	}{
		{"validation", http.StatusUnprocessableEntity, domain.ErrCodeDuplicateDue, func(t *testing.T, err error) {
			vErr, ok := domain.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, domain.ErrCodeDuplicateDue, vErr.Code)
			assert.Equal(t, "period", vErr.Field)
		}},
		{"not found", http.StatusNotFound, "", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrNotFound)
		}},
		{"conflict", http.StatusConflict, "", func(t *testing.T, err error) {
			assert.True(t, domain.IsConflict(err))
		}},
		{"upstream failure", http.StatusBadGateway, "", func(t *testing.T, err error) {
			assert.True(t, domain.IsTransport(err))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tc.status, tc.code, "period")
			})
			_, err := c.FetchDue(context.Background(), 1)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	_, err := c.FetchStand(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
}

func TestApplyPaymentSendsExpectation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/dues/42/payments", r.URL.Path)

		var body paymentPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EFECTIVO", body.Method)
		assert.True(t, body.ExpectedAmountPaid.Equal(decimal.NewFromInt(100)))

		if !body.Amount.Equal(decimal.NewFromInt(150)) {
			writeError(w, http.StatusConflict, domain.ErrCodeAmountPaidChanged, "amount_paid")
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"id": "42", "stand_id": "7", "period": "2025-03",
			"amount_due": "250", "amount_paid": "250", "payment_method": "EFECTIVO",
		})
	})

	due, err := c.ApplyPayment(context.Background(), 42, domain.Payment{Amount: decimal.NewFromInt(150), Method: domain.MethodCash}, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, due.Balance().IsZero())
	require.NotNil(t, due.PaymentMethod)
	assert.Equal(t, domain.MethodCash, *due.PaymentMethod)

	_, err = c.ApplyPayment(context.Background(), 42, domain.Payment{Amount: decimal.NewFromInt(10), Method: domain.MethodCash}, decimal.NewFromInt(100))
	assert.True(t, domain.IsConflict(err))
}

func TestCreateDuesBulk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dues/bulk", r.URL.Path)
		var body bulkPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2025-04", body.Period)
		require.NotNil(t, body.DueDate)
		assert.Equal(t, "2025-04-10", *body.DueDate)
		assert.Equal(t, "A", body.Block)

		writeData(w, http.StatusOK, map[string]any{
			"created": 1, "skipped": 2, "failed": 1,
			"dues": []map[string]any{{
				"id": "100", "stand_id": "1", "period": "2025-04",
				"due_date": "2025-04-10", "amount_due": "80", "amount_paid": "0",
			}},
			"failures": []map[string]any{{"stand_id": "9", "error": "store unavailable"}},
		})
	})

	dueDate := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	res, err := c.CreateDuesBulk(context.Background(), domain.BulkRequest{
		Spec:  domain.DueSpec{Period: "2025-04", DueDate: &dueDate, AmountDue: decimal.NewFromInt(80)},
		Scope: domain.Scope{Block: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Dues, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, snowflake.ID(9), res.Failures[0].StandID)
}

func TestFetchIndicatorsMarksServerSource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03", r.URL.Query().Get("period"))
		writeData(w, http.StatusOK, map[string]any{"total": 4, "percent_overdue": 25.0})
	})

	ind, err := c.FetchIndicators(context.Background(), "2025-03")
	require.NoError(t, err)
	assert.Equal(t, domain.IndicatorSourceServer, ind.Source)
	assert.Equal(t, 4, ind.Total)
	assert.NotNil(t, ind.MethodDistribution)
}

func TestCreateDueSendsNoDerivedFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/dues", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "status")
		assert.NotContains(t, body, "balance")
		assert.Equal(t, "2025-04-10", body["due_date"])
		assert.Equal(t, "80", body["amount_due"])

		writeData(w, http.StatusCreated, map[string]any{
			"id": "100", "stand_id": "1", "period": "2025-04",
			"due_date": "2025-04-10", "amount_due": "80", "amount_paid": "0", "status": "PAGADO",
		})
	})

	dueDate := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	created, err := c.CreateDue(context.Background(), domain.Due{
		ID: 100, StandID: 1, Block: "A", StandNumber: "001", Period: "2025-04",
		DueDate: &dueDate, AmountDue: decimal.NewFromInt(80), AmountPaid: decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, created.Balance().Equal(decimal.NewFromInt(80)))
}

func TestStandDuesPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stands/7/dues", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("size"))
		writeData(w, http.StatusOK, map[string]any{
			"dues":      []map[string]any{{"id": "1", "stand_id": "7", "period": "2025-01", "amount_due": "10", "amount_paid": "0"}},
			"page_info": map[string]any{"page": 2, "size": 5, "total": 6, "has_more": false},
		})
	})

	page, err := c.FetchDuesForStand(context.Background(), 7, domain.Page{Number: 2, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Items, 1)
}
