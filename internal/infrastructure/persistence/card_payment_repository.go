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

// CardPaymentModel is the GORM model for card checkouts
type CardPaymentModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TourneeID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null"`
	Provider         string          `gorm:"type:varchar(20);not null;index:idx_card_payments_provider_ref"`
	ProviderRef      *string         `gorm:"type:varchar(255);index:idx_card_payments_provider_ref"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CalendarAccepted bool            `gorm:"not null;default:false"`
	PayerName        *string         `gorm:"type:varchar(255)"`
	PayerEmail       *string         `gorm:"type:varchar(255)"`
	Status           string          `gorm:"type:varchar(20);not null"`
	TransactionID    *uuid.UUID      `gorm:"type:uuid"`
	CompletedAt      *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (CardPaymentModel) TableName() string {
	return "card_payments"
}

// ToEntity converts the model to a domain entity
func (m *CardPaymentModel) ToEntity() *donation.CardPayment {
	return &donation.CardPayment{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TourneeID:        m.TourneeID,
		UserID:           m.UserID,
		Provider:         donation.Provider(m.Provider),
		ProviderRef:      derefString(m.ProviderRef),
		Amount:           m.Amount,
		CalendarAccepted: m.CalendarAccepted,
		PayerName:        derefString(m.PayerName),
		PayerEmail:       derefString(m.PayerEmail),
		Status:           donation.CardPaymentStatus(m.Status),
		TransactionID:    m.TransactionID,
		CompletedAt:      m.CompletedAt,
	}
}

// CardPaymentModelFromEntity creates a model from a domain entity
func CardPaymentModelFromEntity(e *donation.CardPayment) *CardPaymentModel {
	return &CardPaymentModel{
		ID:               e.ID,
		TourneeID:        e.TourneeID,
		UserID:           e.UserID,
		Provider:         string(e.Provider),
		ProviderRef:      nullString(e.ProviderRef),
		Amount:           e.Amount,
		CalendarAccepted: e.CalendarAccepted,
		PayerName:        nullString(e.PayerName),
		PayerEmail:       nullString(e.PayerEmail),
		Status:           string(e.Status),
		TransactionID:    e.TransactionID,
		CompletedAt:      e.CompletedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// CardPaymentRepository implements donation.CardPaymentRepository
type CardPaymentRepository struct {
	db *gorm.DB
}

// NewCardPaymentRepository creates a new card payment repository
func NewCardPaymentRepository(db *gorm.DB) *CardPaymentRepository {
	return &CardPaymentRepository{db: db}
}

func (r *CardPaymentRepository) Create(ctx context.Context, payment *donation.CardPayment) error {
	return translateError(r.db.WithContext(ctx).Create(CardPaymentModelFromEntity(payment)).Error)
}

func (r *CardPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.CardPayment, error) {
	var model CardPaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

func (r *CardPaymentRepository) FindByProviderRef(ctx context.Context, provider donation.Provider, ref string) (*donation.CardPayment, error) {
	var model CardPaymentModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ?", string(provider), ref).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// Update is a compare-and-set on status, like DonationIntentRepository.Update.
func (r *CardPaymentRepository) Update(ctx context.Context, payment *donation.CardPayment, fromStatus donation.CardPaymentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&CardPaymentModel{}).
		Where("id = ? AND status = ?", payment.ID, string(fromStatus)).
		Updates(map[string]any{
			"status":         string(payment.Status),
			"provider_ref":   nullString(payment.ProviderRef),
			"payer_name":     nullString(payment.PayerName),
			"payer_email":    nullString(payment.PayerEmail),
			"transaction_id": payment.TransactionID,
			"completed_at":   payment.CompletedAt,
			"updated_at":     payment.UpdatedAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrInvalidState
	}
	return nil
}

// ExpirePendingBefore marks every pending card payment created before cutoff
// as expired and returns how many rows changed.
func (r *CardPaymentRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&CardPaymentModel{}).
		Where("status = ? AND created_at < ?", string(donation.CardPaymentPending), cutoff).
		Updates(map[string]any{
			"status":     string(donation.CardPaymentExpired),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}

var _ donation.CardPaymentRepository = (*CardPaymentRepository)(nil)
