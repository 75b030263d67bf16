package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mercado/internal/dues/domain"
	"github.com/smallbiznis/mercado/pkg/db"
	"github.com/smallbiznis/mercado/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps dues, stands and payment history in a SQL database. It plays
// the authoritative backend for self-hosted deployments.
type Store struct {
	db    *gorm.DB
	genID *snowflake.Node
}

var (
	_ domain.Store               = (*Store)(nil)
	_ domain.PaymentHistoryStore = (*Store)(nil)
)

func New(conn *gorm.DB, genID *snowflake.Node) *Store {
	return &Store{db: conn, genID: genID}
}

// AutoMigrate creates the dues tables for dialects without SQL migrations.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(&standRow{}, &dueRow{}, &paymentRow{})
}

func (s *Store) FetchDues(ctx context.Context, filter domain.DueFilter) ([]domain.Due, error) {
	stmt := s.db.WithContext(ctx).Model(&dueRow{})
	if period := strings.TrimSpace(filter.Period); period != "" {
		stmt = stmt.Where("period = ?", period)
	}
	if block := strings.TrimSpace(filter.Block); block != "" {
		stmt = stmt.Where("LOWER(block) = ?", strings.ToLower(block))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		stmt = stmt.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	if filter.StandID != nil {
		stmt = stmt.Where("stand_id = ?", *filter.StandID)
	}
	// Status is derived on read, so it is never pushed down to SQL.

	var rows []dueRow
	if err := stmt.Order("period desc, block asc, stand_number asc, id asc").Find(&rows).Error; err != nil {
		return nil, domain.NewTransportError("fetch_dues", err)
	}
	return toDues(rows), nil
}

func (s *Store) FetchDue(ctx context.Context, id snowflake.ID) (*domain.Due, error) {
	return s.fetchDue(ctx, s.db, id)
}

func (s *Store) fetchDue(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Due, error) {
	var row dueRow
	err := conn.WithContext(ctx).Raw(
		`SELECT * FROM dues WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, domain.NewTransportError("fetch_due", err)
	}
	if row.ID == 0 {
		return nil, domain.ErrNotFound
	}
	due := row.toDomain()
	return &due, nil
}

func (s *Store) FetchDuesForStand(ctx context.Context, standID snowflake.ID, page domain.Page) (*domain.DuePage, error) {
	p := pagination.Pagination{Page: page.Number, Size: page.Size}.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&dueRow{}).Where("stand_id = ?", standID).Count(&total).Error; err != nil {
		return nil, domain.NewTransportError("fetch_stand_dues", err)
	}

	var rows []dueRow
	err := s.db.WithContext(ctx).
		Where("stand_id = ?", standID).
		Order("period desc, id desc").
		Offset(p.Offset()).
		Limit(p.Size).
		Find(&rows).Error
	if err != nil {
		return nil, domain.NewTransportError("fetch_stand_dues", err)
	}

	info := pagination.BuildPageInfo(p, total)
	return &domain.DuePage{
		Items:   toDues(rows),
		Number:  info.Page,
		Size:    info.Size,
		Total:   total,
		HasMore: info.HasMore,
	}, nil
}

func (s *Store) CreateDue(ctx context.Context, due domain.Due) (*domain.Due, error) {
	row := fromDomain(due)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.NewValidationError("period", domain.ErrCodeDuplicateDue, "stand already has a due for period "+due.Period)
		}
		return nil, domain.NewTransportError("create_due", err)
	}
	created := row.toDomain()
	return &created, nil
}

// ApplyPayment adds the payment only while amount_paid still equals
// expectedPaid and the result stays within amount_due. The arithmetic runs on
// decimals in Go; SQLite stores numeric columns as REAL.
func (s *Store) ApplyPayment(ctx context.Context, dueID snowflake.ID, payment domain.Payment, expectedPaid decimal.Decimal) (*domain.Due, error) {
	now := time.Now().UTC()
	paidAt := now
	if payment.PaidAt != nil {
		paidAt = payment.PaidAt.UTC()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row dueRow
		read := tx.Model(&dueRow{}).Where("id = ?", dueID)
		if tx.Dialector.Name() != db.TypeSQLite {
			read = read.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		res := read.Limit(1).Find(&row)
		if res.Error != nil {
			return domain.NewTransportError("apply_payment", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		current := row.AmountPaid
		next := current.Add(payment.Amount)
		if !current.Equal(expectedPaid) || next.GreaterThan(row.AmountDue) {
			return domain.NewConflictError(domain.ErrCodeAmountPaidChanged, "amount paid no longer matches "+expectedPaid.String())
		}

		res = tx.Model(&dueRow{}).
			Where("id = ? AND amount_paid = ?", dueID, current).
			Updates(map[string]any{
				"amount_paid":       next,
				"payment_method":    string(payment.Method),
				"payment_reference": payment.Reference,
				"payment_date":      paidAt,
				"payment_notes":     payment.Notes,
				"updated_at":        now,
			})
		if res.Error != nil {
			return domain.NewTransportError("apply_payment", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.NewConflictError(domain.ErrCodeAmountPaidChanged, "amount paid no longer matches "+expectedPaid.String())
		}

		record := paymentRow{
			ID:              s.genID.Generate(),
			DueID:           dueID,
			Amount:          payment.Amount,
			Method:          string(payment.Method),
			Reference:       payment.Reference,
			Notes:           payment.Notes,
			PaidAt:          paidAt,
			AmountPaidAfter: next,
			CreatedAt:       now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return domain.NewTransportError("apply_payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FetchDue(ctx, dueID)
}

func (s *Store) ListPayments(ctx context.Context, dueID snowflake.ID) ([]domain.PaymentRecord, error) {
	var rows []paymentRow
	err := s.db.WithContext(ctx).
		Where("due_id = ?", dueID).
		Order("paid_at asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, domain.NewTransportError("list_payments", err)
	}
	out := make([]domain.PaymentRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListStands(ctx context.Context, scope domain.Scope) ([]domain.Stand, error) {
	stmt := s.db.WithContext(ctx).Model(&standRow{}).Where("active = ?", true)
	if block := strings.TrimSpace(scope.Block); block != "" {
		stmt = stmt.Where("LOWER(block) = ?", strings.ToLower(block))
	}
	if category := strings.TrimSpace(scope.Category); category != "" {
		stmt = stmt.Where("LOWER(category) = ?", strings.ToLower(category))
	}

	var rows []standRow
	if err := stmt.Order("block asc, number asc").Find(&rows).Error; err != nil {
		return nil, domain.NewTransportError("list_stands", err)
	}
	out := make([]domain.Stand, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) FetchStand(ctx context.Context, id snowflake.ID) (*domain.Stand, error) {
	var row standRow
	err := s.db.WithContext(ctx).Raw(`SELECT * FROM stands WHERE id = ?`, id).Scan(&row).Error
	if err != nil {
		return nil, domain.NewTransportError("fetch_stand", err)
	}
	if row.ID == 0 {
		return nil, domain.ErrNotFound
	}
	stand := row.toDomain()
	return &stand, nil
}

// SaveStands upserts stand reference data.
func (s *Store) SaveStands(ctx context.Context, stands []domain.Stand) error {
	if len(stands) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]standRow, 0, len(stands))
	for _, st := range stands {
		rows = append(rows, standRow{
			ID:        st.ID,
			Name:      st.Name,
			Block:     st.Block,
			Number:    st.Number,
			Category:  st.Category,
			Active:    st.Active,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "block", "number", "category", "active", "updated_at"}),
	}).Create(&rows).Error
}

func toDues(rows []dueRow) []domain.Due {
	out := make([]domain.Due, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
