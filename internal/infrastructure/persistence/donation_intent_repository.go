package persistence

import (
	"context"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DonationIntentModel is the GORM model for donation intents
type DonationIntentModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TourneeID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	UserID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	ExpectedAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CalendarAccepted bool            `gorm:"not null;default:false"`
	DonorName        *string         `gorm:"type:varchar(255)"`
	DonorEmail       *string         `gorm:"type:varchar(255)"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	PaymentIntentID  *string         `gorm:"type:varchar(255);index"`
	TransactionID    *uuid.UUID      `gorm:"type:uuid"`
	CompletedAt      *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (DonationIntentModel) TableName() string {
	return "donation_intents"
}

// ToEntity converts the model to a domain entity
func (m *DonationIntentModel) ToEntity() *donation.DonationIntent {
	return &donation.DonationIntent{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TourneeID:        m.TourneeID,
		UserID:           m.UserID,
		ExpectedAmount:   m.ExpectedAmount,
		CalendarAccepted: m.CalendarAccepted,
		DonorName:        derefString(m.DonorName),
		DonorEmail:       derefString(m.DonorEmail),
		Status:           donation.IntentStatus(m.Status),
		PaymentIntentID:  derefString(m.PaymentIntentID),
		TransactionID:    m.TransactionID,
		CompletedAt:      m.CompletedAt,
	}
}

// DonationIntentModelFromEntity creates a model from a domain entity
func DonationIntentModelFromEntity(e *donation.DonationIntent) *DonationIntentModel {
	return &DonationIntentModel{
		ID:               e.ID,
		TourneeID:        e.TourneeID,
		UserID:           e.UserID,
		ExpectedAmount:   e.ExpectedAmount,
		CalendarAccepted: e.CalendarAccepted,
		DonorName:        nullString(e.DonorName),
		DonorEmail:       nullString(e.DonorEmail),
		Status:           string(e.Status),
		PaymentIntentID:  nullString(e.PaymentIntentID),
		TransactionID:    e.TransactionID,
		CompletedAt:      e.CompletedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// DonationIntentRepository implements donation.DonationIntentRepository
type DonationIntentRepository struct {
	db *gorm.DB
}

// NewDonationIntentRepository creates a new donation intent repository
func NewDonationIntentRepository(db *gorm.DB) *DonationIntentRepository {
	return &DonationIntentRepository{db: db}
}

func (r *DonationIntentRepository) Create(ctx context.Context, intent *donation.DonationIntent) error {
	return translateError(r.db.WithContext(ctx).Create(DonationIntentModelFromEntity(intent)).Error)
}

func (r *DonationIntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.DonationIntent, error) {
	var model DonationIntentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// Update writes the mutable fields only while the stored status is still
// fromStatus, so two concurrent completions cannot both succeed.
func (r *DonationIntentRepository) Update(ctx context.Context, intent *donation.DonationIntent, fromStatus donation.IntentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&DonationIntentModel{}).
		Where("id = ? AND status = ?", intent.ID, string(fromStatus)).
		Updates(map[string]any{
			"status":            string(intent.Status),
			"donor_name":        nullString(intent.DonorName),
			"donor_email":       nullString(intent.DonorEmail),
			"payment_intent_id": nullString(intent.PaymentIntentID),
			"transaction_id":    intent.TransactionID,
			"completed_at":      intent.CompletedAt,
			"updated_at":        intent.UpdatedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrInvalidState
	}
	return nil
}

// ExpirePendingBefore expires intents still waiting for the donor that were
// created before cutoff.
func (r *DonationIntentRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&DonationIntentModel{}).
		Where("status = ? AND created_at < ?", string(donation.IntentStatusWaitingDonor), cutoff).
		Updates(map[string]any{
			"status":     string(donation.IntentStatusExpired),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

var _ donation.DonationIntentRepository = (*DonationIntentRepository)(nil)
