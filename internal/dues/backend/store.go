package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/pkg/db/pagination"
)

var (
	_ domain.Store               = (*Client)(nil)
	_ domain.BulkStore           = (*Client)(nil)
	_ domain.IndicatorStore      = (*Client)(nil)
	_ domain.PaymentHistoryStore = (*Client)(nil)
)

type bulkPayload struct {
	Period    string          `json:"period"`
	DueDate   *string         `json:"due_date"`
	AmountDue decimal.Decimal `json:"amount_due"`
	Block     string          `json:"block,omitempty"`
	Category  string          `json:"category,omitempty"`
}

type bulkResponse struct {
	Created  int                  `json:"created"`
	Skipped  int                  `json:"skipped"`
	Failed   int                  `json:"failed"`
	Dues     []domain.DueView     `json:"dues"`
	Failures []domain.BulkFailure `json:"failures"`
}

// duePayload is the create body. It carries no status or balance; those are
// derived from the stored amounts.
type duePayload struct {
	ID          string          `json:"id"`
	StandID     string          `json:"stand_id"`
	StandName   string          `json:"stand_name"`
	Block       string          `json:"block"`
	StandNumber string          `json:"stand_number"`
	Category    string          `json:"category,omitempty"`
	Period      string          `json:"period"`
	DueDate     *string         `json:"due_date"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
}

func newDuePayload(due domain.Due) duePayload {
	payload := duePayload{
		ID:          due.ID.String(),
		StandID:     due.StandID.String(),
		StandName:   due.StandName,
		Block:       due.Block,
		StandNumber: due.StandNumber,
		Category:    due.Category,
		Period:      due.Period,
		AmountDue:   due.AmountDue,
		AmountPaid:  due.AmountPaid,
	}
	if due.DueDate != nil {
		v := due.DueDate.Format(domain.DateLayout)
		payload.DueDate = &v
	}
	return payload
}

type paymentPayload struct {
	Amount             decimal.Decimal `json:"amount"`
	Method             string          `json:"method"`
	Reference          *string         `json:"reference,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	PaymentDate        *string         `json:"payment_date,omitempty"`
	ExpectedAmountPaid decimal.Decimal `json:"expected_amount_paid"`
}

type standDuesResponse struct {
	Dues     []domain.DueView    `json:"dues"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

func (c *Client) FetchDues(ctx context.Context, filter domain.DueFilter) ([]domain.Due, error) {
	q := url.Values{}
	if v := strings.TrimSpace(filter.Period); v != "" {
		q.Set("period", v)
	}
	if v := strings.TrimSpace(filter.Block); v != "" {
		q.Set("block", v)
	}
	if v := strings.TrimSpace(filter.Category); v != "" {
		q.Set("category", v)
	}
	if filter.StandID != nil {
		q.Set("stand_id", filter.StandID.String())
	}

	var views []domain.DueView
	if err := c.do(ctx, "fetch_dues", http.MethodGet, "dues", q, nil, &views); err != nil {
		return nil, err
	}
	return decodeDues("fetch_dues", views)
}

func (c *Client) FetchDue(ctx context.Context, id snowflake.ID) (*domain.Due, error) {
	var view domain.DueView
	if err := c.do(ctx, "fetch_due", http.MethodGet, "dues/"+id.String(), nil, nil, &view); err != nil {
		return nil, err
	}
	return decodeDue("fetch_due", view)
}

func (c *Client) FetchDuesForStand(ctx context.Context, standID snowflake.ID, page domain.Page) (*domain.DuePage, error) {
	p := pagination.Pagination{Page: page.Number, Size: page.Size}.Normalize()

	var resp standDuesResponse
	if err := c.do(ctx, "fetch_stand_dues", http.MethodGet, "stands/"+standID.String()+"/dues", pageQuery(p.Page, p.Size), nil, &resp); err != nil {
		return nil, err
	}
	dues, err := decodeDues("fetch_stand_dues", resp.Dues)
	if err != nil {
		return nil, err
	}
	return &domain.DuePage{
		Items:   dues,
		Number:  p.Page,
		Size:    p.Size,
		Total:   resp.PageInfo.Total,
		HasMore: resp.PageInfo.HasMore,
	}, nil
}

func (c *Client) CreateDue(ctx context.Context, due domain.Due) (*domain.Due, error) {
	var view domain.DueView
	if err := c.do(ctx, "create_due", http.MethodPost, "dues", nil, newDuePayload(due), &view); err != nil {
		return nil, err
	}
	return decodeDue("create_due", view)
}

func (c *Client) CreateDuesBulk(ctx context.Context, req domain.BulkRequest) (*domain.BulkResult, error) {
	payload := bulkPayload{
		Period:    req.Spec.Period,
		AmountDue: req.Spec.AmountDue,
		Block:     req.Scope.Block,
		Category:  req.Scope.Category,
	}
	if req.Spec.DueDate != nil {
		v := req.Spec.DueDate.Format(domain.DateLayout)
		payload.DueDate = &v
	}

	var resp bulkResponse
	if err := c.do(ctx, "create_dues_bulk", http.MethodPost, "dues/bulk", nil, payload, &resp); err != nil {
		return nil, err
	}
	dues, err := decodeDues("create_dues_bulk", resp.Dues)
	if err != nil {
		return nil, err
	}
	return &domain.BulkResult{
		Created:  resp.Created,
		Skipped:  resp.Skipped,
		Failed:   resp.Failed,
		Dues:     dues,
		Failures: resp.Failures,
	}, nil
}

func (c *Client) ApplyPayment(ctx context.Context, dueID snowflake.ID, payment domain.Payment, expectedPaid decimal.Decimal) (*domain.Due, error) {
	payload := paymentPayload{
		Amount:             payment.Amount,
		Method:             payment.Method.Wire(),
		Reference:          payment.Reference,
		Notes:              payment.Notes,
		ExpectedAmountPaid: expectedPaid,
	}
	if payment.PaidAt != nil {
		v := payment.PaidAt.Format(time.RFC3339)
		payload.PaymentDate = &v
	}

	var view domain.DueView
	if err := c.do(ctx, "apply_payment", http.MethodPost, "dues/"+dueID.String()+"/payments", nil, payload, &view); err != nil {
		return nil, err
	}
	return decodeDue("apply_payment", view)
}

func (c *Client) ListPayments(ctx context.Context, dueID snowflake.ID) ([]domain.PaymentRecord, error) {
	var records []domain.PaymentRecord
	if err := c.do(ctx, "list_payments", http.MethodGet, "dues/"+dueID.String()+"/payments", nil, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) FetchIndicators(ctx context.Context, period string) (*domain.Indicators, error) {
	q := url.Values{}
	if v := strings.TrimSpace(period); v != "" {
		q.Set("period", v)
	}
	var out domain.Indicators
	if err := c.do(ctx, "fetch_indicators", http.MethodGet, "dues/indicators", q, nil, &out); err != nil {
		return nil, err
	}
	out.Source = domain.IndicatorSourceServer
	if out.MethodDistribution == nil {
		out.MethodDistribution = []domain.MethodShare{}
	}
	return &out, nil
}

func (c *Client) ListStands(ctx context.Context, scope domain.Scope) ([]domain.Stand, error) {
	q := url.Values{}
	if v := strings.TrimSpace(scope.Block); v != "" {
		q.Set("block", v)
	}
	if v := strings.TrimSpace(scope.Category); v != "" {
		q.Set("category", v)
	}
	var stands []domain.Stand
	if err := c.do(ctx, "list_stands", http.MethodGet, "stands", q, nil, &stands); err != nil {
		return nil, err
	}
	out := stands[:0]
	for _, st := range stands {
		if scope.Matches(st) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (c *Client) FetchStand(ctx context.Context, id snowflake.ID) (*domain.Stand, error) {
	var stand domain.Stand
	if err := c.do(ctx, "fetch_stand", http.MethodGet, "stands/"+id.String(), nil, nil, &stand); err != nil {
		return nil, err
	}
	return &stand, nil
}

func decodeDue(op string, view domain.DueView) (*domain.Due, error) {
	due, err := view.ToDue()
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}
	return &due, nil
}

func decodeDues(op string, views []domain.DueView) ([]domain.Due, error) {
	out := make([]domain.Due, 0, len(views))
	for _, v := range views {
		due, err := v.ToDue()
		if err != nil {
			return nil, domain.NewTransportError(op, err)
		}
		out = append(out, due)
	}
	return out, nil
}
