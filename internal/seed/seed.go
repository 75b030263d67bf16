package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/internal/dues/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type demoBlock struct {
	name     string
	category string
	count    int
}

var demoBlocks = []demoBlock{
	{name: "A", category: "abarrotes", count: 8},
	{name: "B", category: "carnes", count: 6},
	{name: "C", category: "ropa", count: 6},
}

// DemoStands returns the fixed demo roster. Ids are stable so seeding twice
// upserts the same rows.
func DemoStands() []domain.Stand {
	out := make([]domain.Stand, 0, 20)
	id := int64(1000)
	for _, b := range demoBlocks {
		for n := 1; n <= b.count; n++ {
			id++
			out = append(out, domain.Stand{
				ID:       snowflake.ID(id),
				Name:     fmt.Sprintf("Puesto %s-%02d", b.name, n),
				Block:    b.name,
				Number:   fmt.Sprintf("%02d", n),
				Category: b.category,
				Active:   true,
			})
		}
	}
	return out
}

// EnsureDemoStands seeds the demo roster for local and self-hosted setups.
func EnsureDemoStands(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	stands := DemoStands()
	if err := repository.New(db, node).SaveStands(context.Background(), stands); err != nil {
		return fmt.Errorf("seed demo stands: %w", err)
	}
	if log != nil {
		log.Info("demo stands seeded", zap.Int("count", len(stands)))
	}
	return nil
}
