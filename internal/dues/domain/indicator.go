package domain

import "github.com/shopspring/decimal"

type StatusCounts struct {
	Paid    int `json:"paid"`
	Partial int `json:"partial"`
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}

func (c *StatusCounts) Add(status Status) {
	switch status {
	case StatusPaid:
		c.Paid++
	case StatusPartial:
		c.Partial++
	case StatusPending:
		c.Pending++
	case StatusOverdue:
		c.Overdue++
	}
}

func (c StatusCounts) Total() int {
	return c.Paid + c.Partial + c.Pending + c.Overdue
}

type MethodShare struct {
	Method  string          `json:"method"`
	Count   int             `json:"count"`
	Amount  decimal.Decimal `json:"amount"`
	Percent float64         `json:"percent"`
}

type BlockBreakdown struct {
	Block            string          `json:"block"`
	Total            int             `json:"total"`
	Counts           StatusCounts    `json:"counts"`
	PercentOverdue   float64         `json:"percent_overdue"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OverdueAmount    decimal.Decimal `json:"overdue_amount"`
}

type PeriodBreakdown struct {
	Period         string       `json:"period"`
	Total          int          `json:"total"`
	Counts         StatusCounts `json:"counts"`
	PercentOverdue float64      `json:"percent_overdue"`
}

// Indicators is the morosity and collection snapshot of a set of dues.
type Indicators struct {
	Period             string            `json:"period"`
	AsOf               string            `json:"as_of"`
	Source             string            `json:"source"`
	Total              int               `json:"total"`
	Counts             StatusCounts      `json:"counts"`
	PercentOverdue     float64           `json:"percent_overdue"`
	CollectionRate     float64           `json:"collection_rate"`
	TotalBilled        decimal.Decimal   `json:"total_billed"`
	TotalCollected     decimal.Decimal   `json:"total_collected"`
	TotalOutstanding   decimal.Decimal   `json:"total_outstanding"`
	OverdueAmount      decimal.Decimal   `json:"overdue_amount"`
	UpcomingCount      int               `json:"upcoming_count"`
	UpcomingWindowDays int               `json:"upcoming_window_days"`
	MethodDistribution []MethodShare     `json:"method_distribution"`
	Blocks             []BlockBreakdown  `json:"blocks"`
	Periods            []PeriodBreakdown `json:"periods"`
}

const (
	IndicatorSourceClient = "client"
	IndicatorSourceServer = "server"
)
