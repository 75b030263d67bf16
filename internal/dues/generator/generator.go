package generator

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
)

// Generator builds new Due records for stands. It never persists them.
type Generator struct {
	genID *snowflake.Node
	scale int32
}

func New(genID *snowflake.Node, scale int32) *Generator {
	if scale <= 0 {
		scale = 2
	}
	return &Generator{genID: genID, scale: scale}
}

// Plan is the outcome of planning a bulk batch.
type Plan struct {
	Dues    []domain.Due
	Skipped []domain.Stand
}

// ValidateSpec checks and normalizes the generation inputs.
func (g *Generator) ValidateSpec(spec domain.DueSpec) (domain.DueSpec, error) {
	spec.AmountDue = spec.AmountDue.Round(g.scale)
	if !spec.AmountDue.IsPositive() {
		return spec, domain.NewValidationError("amount_due", domain.ErrCodeInvalidAmount, "amount due must be greater than zero")
	}
	spec.Period = strings.TrimSpace(spec.Period)
	if spec.Period == "" {
		return spec, domain.NewValidationError("period", domain.ErrCodeInvalidPeriod, "period is required")
	}
	if spec.DueDate != nil {
		day := domain.DateOf(*spec.DueDate)
		spec.DueDate = &day
	}
	return spec, nil
}

// ForStand builds one Due for stand. existing must hold the dues already
// recorded for spec.Period; a match on the stand is a duplicate.
func (g *Generator) ForStand(stand domain.Stand, spec domain.DueSpec, existing []domain.Due, now time.Time) (domain.Due, error) {
	spec, err := g.ValidateSpec(spec)
	if err != nil {
		return domain.Due{}, err
	}
	if stand.ID == 0 || !stand.Active {
		return domain.Due{}, domain.NewValidationError("stand_id", domain.ErrCodeInvalidStand, "stand is unknown or inactive")
	}
	if _, ok := index(existing)[key(stand.ID, spec.Period)]; ok {
		return domain.Due{}, domain.NewValidationError("period", domain.ErrCodeDuplicateDue, "stand already has a due for period "+spec.Period)
	}
	return g.build(stand, spec, now), nil
}

// PlanBulk builds one Due per stand matched by scope, skipping stands that
// already have a due for the period.
func (g *Generator) PlanBulk(stands []domain.Stand, spec domain.DueSpec, scope domain.Scope, existing []domain.Due, now time.Time) (Plan, error) {
	spec, err := g.ValidateSpec(spec)
	if err != nil {
		return Plan{}, err
	}

	seen := index(existing)
	targets := make([]domain.Stand, 0, len(stands))
	for _, stand := range stands {
		if scope.Matches(stand) {
			targets = append(targets, stand)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Block != targets[j].Block {
			return targets[i].Block < targets[j].Block
		}
		return targets[i].Number < targets[j].Number
	})

	plan := Plan{Dues: make([]domain.Due, 0, len(targets))}
	for _, stand := range targets {
		k := key(stand.ID, spec.Period)
		if _, ok := seen[k]; ok {
			plan.Skipped = append(plan.Skipped, stand)
			continue
		}
		seen[k] = struct{}{}
		plan.Dues = append(plan.Dues, g.build(stand, spec, now))
	}
	return plan, nil
}

func (g *Generator) build(stand domain.Stand, spec domain.DueSpec, now time.Time) domain.Due {
	now = now.UTC()
	return domain.Due{
		ID:          g.genID.Generate(),
		StandID:     stand.ID,
		StandName:   stand.Name,
		Block:       stand.Block,
		StandNumber: stand.Number,
		Category:    stand.Category,
		Period:      spec.Period,
		DueDate:     spec.DueDate,
		AmountDue:   spec.AmountDue,
		AmountPaid:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type dueKey struct {
	standID snowflake.ID
	period  string
}

func key(standID snowflake.ID, period string) dueKey {
	return dueKey{standID: standID, period: strings.TrimSpace(period)}
}

func index(dues []domain.Due) map[dueKey]struct{} {
	out := make(map[dueKey]struct{}, len(dues))
	for _, d := range dues {
		out[key(d.StandID, d.Period)] = struct{}{}
	}
	return out
}
