package query

import (
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/mercado/internal/dues/domain"
)

// All is the filter value meaning "no restriction".
const All = "all"

type Sort string

const (
	SortDueDateAsc  Sort = "due_date_asc"
	SortDueDateDesc Sort = "due_date_desc"
	SortBalanceDesc Sort = "balance_desc"
)

func ParseSort(raw string) (Sort, error) {
	switch s := Sort(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return SortDueDateAsc, nil
	case SortDueDateAsc, SortDueDateDesc, SortBalanceDesc:
		return s, nil
	default:
		return "", domain.NewValidationError("sort", domain.ErrCodeInvalidSort, "unknown sort "+raw)
	}
}

type Filter struct {
	Period string
	Status string
	Block  string
	Search string
}

type Group struct {
	Key  string
	Dues []domain.Due
}

// Apply returns a new filtered and sorted slice. The input is never reordered
// or modified.
func Apply(dues []domain.Due, asOf time.Time, f Filter, order Sort) ([]domain.Due, error) {
	var status *domain.Status
	if raw := strings.TrimSpace(f.Status); raw != "" && !strings.EqualFold(raw, All) {
		parsed, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		status = &parsed
	}
	if order == "" {
		order = SortDueDateAsc
	}
	if _, err := ParseSort(string(order)); err != nil {
		return nil, err
	}

	period := restriction(f.Period)
	block := restriction(f.Block)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.Due, 0, len(dues))
	for _, d := range dues {
		if period != "" && d.Period != period {
			continue
		}
		if block != "" && !strings.EqualFold(d.Block, block) {
			continue
		}
		if status != nil && domain.Resolve(d, asOf) != *status {
			continue
		}
		if search != "" && !strings.Contains(d.SearchText(), search) {
			continue
		}
		out = append(out, d)
	}

	sortDues(out, order)
	return out, nil
}

// GroupByBlock partitions dues by block, keeping their relative order.
func GroupByBlock(dues []domain.Due) []Group {
	return groupBy(dues, func(d domain.Due) string { return d.Block })
}

// GroupByPeriod partitions dues by period, keeping their relative order.
func GroupByPeriod(dues []domain.Due) []Group {
	return groupBy(dues, func(d domain.Due) string { return d.Period })
}

func groupBy(dues []domain.Due, keyOf func(domain.Due) string) []Group {
	positions := map[string]int{}
	groups := make([]Group, 0)
	for _, d := range dues {
		k := keyOf(d)
		pos, ok := positions[k]
		if !ok {
			pos = len(groups)
			positions[k] = pos
			groups = append(groups, Group{Key: k})
		}
		groups[pos].Dues = append(groups[pos].Dues, d)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func restriction(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, All) {
		return ""
	}
	return v
}

func sortDues(dues []domain.Due, order Sort) {
	sort.SliceStable(dues, func(i, j int) bool {
		a, b := dues[i], dues[j]
		switch order {
		case SortBalanceDesc:
			if c := a.Balance().Cmp(b.Balance()); c != 0 {
				return c > 0
			}
		case SortDueDateDesc:
			if c := compareDueDates(a, b, false); c != 0 {
				return c < 0
			}
		default:
			if c := compareDueDates(a, b, true); c != 0 {
				return c < 0
			}
		}
		return tieBreak(a, b)
	})
}

// compareDueDates orders by due date. Missing dates go last when ascending
// and first when descending.
func compareDueDates(a, b domain.Due, ascending bool) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		if ascending {
			return 1
		}
		return -1
	case b.DueDate == nil:
		if ascending {
			return -1
		}
		return 1
	}
	c := a.DueDate.Compare(*b.DueDate)
	if !ascending {
		c = -c
	}
	return c
}

func tieBreak(a, b domain.Due) bool {
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	if a.StandNumber != b.StandNumber {
		return a.StandNumber < b.StandNumber
	}
	return a.ID < b.ID
}
