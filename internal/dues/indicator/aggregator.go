package indicator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
)

const (
	DefaultWindowDays = 7

	unspecifiedMethod = "UNSPECIFIED"
)

type Options struct {
	// WindowDays is the forward window, inclusive of today, in which an
	// unpaid due counts as upcoming.
	WindowDays int
	Scale      int32
}

func (o Options) withDefaults() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.Scale <= 0 {
		o.Scale = 2
	}
	return o
}

type methodBucket struct {
	count  int
	amount decimal.Decimal
}

type blockBucket struct {
	counts      domain.StatusCounts
	billed      decimal.Decimal
	outstanding decimal.Decimal
	overdue     decimal.Decimal
}

// Aggregate reduces dues into an indicator snapshot as of today. Every
// figure is recomputed from the dues on each call.
func Aggregate(dues []domain.Due, today time.Time, opts Options) domain.Indicators {
	opts = opts.withDefaults()
	today = domain.DateOf(today)
	windowEnd := today.AddDate(0, 0, opts.WindowDays)

	var (
		counts      domain.StatusCounts
		billed      = decimal.Zero
		collected   = decimal.Zero
		outstanding = decimal.Zero
		overdue     = decimal.Zero
		upcoming    int
	)
	methods := map[string]*methodBucket{}
	blocks := map[string]*blockBucket{}
	periods := map[string]*domain.StatusCounts{}

	for _, d := range dues {
		status := domain.Resolve(d, today)
		balance := d.Balance()
		counts.Add(status)

		billed = billed.Add(d.AmountDue)
		collected = collected.Add(d.AmountPaid)
		if balance.IsPositive() {
			outstanding = outstanding.Add(balance)
		}
		if status == domain.StatusOverdue {
			overdue = overdue.Add(balance)
		}
		if status != domain.StatusPaid && d.DueDate != nil {
			dueDay := domain.DateOf(*d.DueDate)
			if !dueDay.Before(today) && !dueDay.After(windowEnd) {
				upcoming++
			}
		}

		if d.HasPayment() {
			name := unspecifiedMethod
			if d.PaymentMethod != nil && *d.PaymentMethod != "" {
				name = d.PaymentMethod.Wire()
			}
			bucket, ok := methods[name]
			if !ok {
				bucket = &methodBucket{amount: decimal.Zero}
				methods[name] = bucket
			}
			bucket.count++
			bucket.amount = bucket.amount.Add(d.AmountPaid)
		}

		block, ok := blocks[d.Block]
		if !ok {
			block = &blockBucket{billed: decimal.Zero, outstanding: decimal.Zero, overdue: decimal.Zero}
			blocks[d.Block] = block
		}
		block.counts.Add(status)
		block.billed = block.billed.Add(d.AmountDue)
		if balance.IsPositive() {
			block.outstanding = block.outstanding.Add(balance)
		}
		if status == domain.StatusOverdue {
			block.overdue = block.overdue.Add(balance)
		}

		period, ok := periods[d.Period]
		if !ok {
			period = &domain.StatusCounts{}
			periods[d.Period] = period
		}
		period.Add(status)
	}

	total := counts.Total()
	return domain.Indicators{
		AsOf:               today.Format(domain.DateLayout),
		Source:             domain.IndicatorSourceClient,
		Total:              total,
		Counts:             counts,
		PercentOverdue:     Percent(counts.Overdue, total),
		CollectionRate:     Ratio(collected, billed),
		TotalBilled:        billed.Round(opts.Scale),
		TotalCollected:     collected.Round(opts.Scale),
		TotalOutstanding:   outstanding.Round(opts.Scale),
		OverdueAmount:      overdue.Round(opts.Scale),
		UpcomingCount:      upcoming,
		UpcomingWindowDays: opts.WindowDays,
		MethodDistribution: methodShares(methods, opts.Scale),
		Blocks:             blockRows(blocks, opts.Scale),
		Periods:            periodRows(periods),
	}
}

// Percent returns part/total*100 rounded to two decimals, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Ratio(decimal.NewFromInt(int64(part)), decimal.NewFromInt(int64(total)))
}

// Ratio returns part/total*100 rounded to two decimals, or 0 when total is 0.
func Ratio(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Mul(decimal.NewFromInt(100)).Div(total).Round(2).InexactFloat64()
}

// methodShares weighs each method by the amount paid through it, so the
// percentages add up to the collected total rather than to a due count.
func methodShares(methods map[string]*methodBucket, scale int32) []domain.MethodShare {
	out := make([]domain.MethodShare, 0, len(methods))
	total := decimal.Zero
	for _, bucket := range methods {
		total = total.Add(bucket.amount)
	}
	for name, bucket := range methods {
		out = append(out, domain.MethodShare{
			Method:  name,
			Count:   bucket.count,
			Amount:  bucket.amount.Round(scale),
			Percent: Ratio(bucket.amount, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func blockRows(blocks map[string]*blockBucket, scale int32) []domain.BlockBreakdown {
	out := make([]domain.BlockBreakdown, 0, len(blocks))
	for name, bucket := range blocks {
		total := bucket.counts.Total()
		out = append(out, domain.BlockBreakdown{
			Block:            name,
			Total:            total,
			Counts:           bucket.counts,
			PercentOverdue:   Percent(bucket.counts.Overdue, total),
			TotalBilled:      bucket.billed.Round(scale),
			TotalOutstanding: bucket.outstanding.Round(scale),
			OverdueAmount:    bucket.overdue.Round(scale),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	return out
}

func periodRows(periods map[string]*domain.StatusCounts) []domain.PeriodBreakdown {
	out := make([]domain.PeriodBreakdown, 0, len(periods))
	for name, counts := range periods {
		total := counts.Total()
		out = append(out, domain.PeriodBreakdown{
			Period:         name,
			Total:          total,
			Counts:         *counts,
			PercentOverdue: Percent(counts.Overdue, total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
