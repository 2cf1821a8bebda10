package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TourneeModel is the GORM model for fundraising rounds
type TourneeModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID               uuid.UUID       `gorm:"type:uuid;index;not null"`
	Zone                 string          `gorm:"type:varchar(255);not null"`
	StartDate            time.Time       `gorm:"not null"`
	Status               string          `gorm:"type:varchar(20);not null;index"`
	CalendarsAllocated   int             `gorm:"not null;default:0"`
	CalendarsDistributed int             `gorm:"not null;default:0"`
	DeclaredCash         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DeclaredCheck        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Notes                *string         `gorm:"type:text"`
	ClosedAt             *time.Time
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (TourneeModel) TableName() string {
	return "tournees"
}

// ToEntity converts the model to a domain entity
func (m *TourneeModel) ToEntity() *donation.Tournee {
	return &donation.Tournee{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:               m.UserID,
		Zone:                 m.Zone,
		StartDate:            m.StartDate,
		Status:               donation.TourneeStatus(m.Status),
		CalendarsAllocated:   m.CalendarsAllocated,
		CalendarsDistributed: m.CalendarsDistributed,
		DeclaredCash:         m.DeclaredCash,
		DeclaredCheck:        m.DeclaredCheck,
		Notes:                derefString(m.Notes),
		ClosedAt:             m.ClosedAt,
	}
}

// TourneeModelFromEntity creates a model from a domain entity
func TourneeModelFromEntity(e *donation.Tournee) *TourneeModel {
	return &TourneeModel{
		ID:                   e.ID,
		UserID:               e.UserID,
		Zone:                 e.Zone,
		StartDate:            e.StartDate,
		Status:               string(e.Status),
		CalendarsAllocated:   e.CalendarsAllocated,
		CalendarsDistributed: e.CalendarsDistributed,
		DeclaredCash:         e.DeclaredCash,
		DeclaredCheck:        e.DeclaredCheck,
		Notes:                nullString(e.Notes),
		ClosedAt:             e.ClosedAt,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// TourneeRepository implements donation.TourneeRepository
type TourneeRepository struct {
	db *gorm.DB
}

// NewTourneeRepository creates a new tournee repository
func NewTourneeRepository(db *gorm.DB) *TourneeRepository {
	return &TourneeRepository{db: db}
}

func (r *TourneeRepository) Create(ctx context.Context, tournee *donation.Tournee) error {
	return translateError(r.db.WithContext(ctx).Create(TourneeModelFromEntity(tournee)).Error)
}

// FindActiveForUser checks ownership and status in a single filtered lookup.
// A miss does not say which condition failed.
func (r *TourneeRepository) FindActiveForUser(ctx context.Context, id, userID uuid.UUID) (*donation.Tournee, error) {
	var model TourneeModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, string(donation.TourneeStatusActive)).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// FindForUser loads a round owned by userID in any status.
func (r *TourneeRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*donation.Tournee, error) {
	var model TourneeModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// ListForUser pages through a collector's rounds, by start date unless the
// filter names another whitelisted column.
// filter.Filters["status"] narrows by status.
func (r *TourneeRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]donation.Tournee, int64, error) {
	query := r.db.WithContext(ctx).Model(&TourneeModel{}).Where("user_id = ?", userID)
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []TourneeModel
	err := query.
		Order(orderClause(filter, TourneeSortFields, "start_date")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]donation.Tournee, len(models))
	for i := range models {
		out[i] = *models[i].ToEntity()
	}
	return out, total, nil
}

type closureRow struct {
	TourneeID            uuid.UUID
	TotalCash            decimal.Decimal
	TotalCheck           decimal.Decimal
	TotalCard            decimal.Decimal
	TotalAmount          decimal.Decimal
	CalendarsDistributed int
	AssociationShare     decimal.Decimal
	CollectorShare       decimal.Decimal
	ClosedAt             time.Time
}

// Close runs the close_tournee() procedure. It returns no row when the
// round is missing, not owned by userID or already closed.
func (r *TourneeRepository) Close(ctx context.Context, id, userID uuid.UUID, decl donation.ClosureDeclaration) (*donation.ClosureSummary, error) {
	var row closureRow
	res := r.db.WithContext(ctx).
		Raw("SELECT * FROM close_tournee(?, ?, ?, ?, ?, ?)",
			id, userID, decl.Cash, decl.Check, decl.CalendarsDistributed, nullString(decl.Notes)).
		Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("close tournee: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, shared.ErrNotFound
	}
	return &donation.ClosureSummary{
		TourneeID:            row.TourneeID,
		TotalCash:            row.TotalCash,
		TotalCheck:           row.TotalCheck,
		TotalCard:            row.TotalCard,
		TotalAmount:          row.TotalAmount,
		CalendarsDistributed: row.CalendarsDistributed,
		AssociationShare:     row.AssociationShare,
		CollectorShare:       row.CollectorShare,
		ClosedAt:             row.ClosedAt,
	}, nil
}

var _ donation.TourneeRepository = (*TourneeRepository)(nil)
