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

// SupportTransactionModel is the GORM model for support transactions.
// transaction_type and tax_reduction are written by a database trigger.
type SupportTransactionModel struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey"`
	UserID             *uuid.UUID          `gorm:"type:uuid;index"`
	TourneeID          *uuid.UUID          `gorm:"type:uuid;index"`
	Amount             decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	PaymentMethod      string              `gorm:"type:varchar(20);not null"`
	CalendarAccepted   bool                `gorm:"not null;default:false"`
	TransactionType    *string             `gorm:"type:varchar(10);<-:false"`
	TaxReduction       decimal.NullDecimal `gorm:"type:decimal(12,2);<-:false"`
	SupporterFirstName *string             `gorm:"type:varchar(120)"`
	SupporterLastName  *string             `gorm:"type:varchar(120)"`
	SupporterEmail     *string             `gorm:"type:varchar(255)"`
	SupporterPhone     *string             `gorm:"type:varchar(40)"`
	ConsentEmail       bool                `gorm:"not null;default:false"`
	ConsentNewsletter  bool                `gorm:"not null;default:false"`
	Notes              *string             `gorm:"type:text"`
	StripeSessionID    *string             `gorm:"type:varchar(255);uniqueIndex"`
	PaymentIntentID    *string             `gorm:"type:varchar(255);uniqueIndex"`
	CardPaymentID      *uuid.UUID          `gorm:"type:uuid;uniqueIndex"`
	Source             string              `gorm:"type:varchar(30);not null"`
	ReceiptID          *uuid.UUID          `gorm:"type:uuid"`
	CreatedAt          time.Time           `gorm:"autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (SupportTransactionModel) TableName() string {
	return "support_transactions"
}

// ToEntity converts the model to a domain entity
func (m *SupportTransactionModel) ToEntity() *donation.SupportTransaction {
	tax := decimal.Zero
	if m.TaxReduction.Valid {
		tax = m.TaxReduction.Decimal
	}
	return &donation.SupportTransaction{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:           m.UserID,
		TourneeID:        m.TourneeID,
		Amount:           m.Amount,
		PaymentMethod:    donation.PaymentMethod(m.PaymentMethod),
		CalendarAccepted: m.CalendarAccepted,
		TransactionType:  donation.TransactionType(derefString(m.TransactionType)),
		TaxReduction:     tax,
		Supporter: donation.Supporter{
			FirstName: derefString(m.SupporterFirstName),
			LastName:  derefString(m.SupporterLastName),
			Email:     derefString(m.SupporterEmail),
			Phone:     derefString(m.SupporterPhone),
		},
		ConsentEmail:      m.ConsentEmail,
		ConsentNewsletter: m.ConsentNewsletter,
		Notes:             derefString(m.Notes),
		StripeSessionID:   derefString(m.StripeSessionID),
		PaymentIntentID:   derefString(m.PaymentIntentID),
		CardPaymentID:     m.CardPaymentID,
		Source:            donation.Source(m.Source),
		ReceiptID:         m.ReceiptID,
	}
}

// SupportTransactionModelFromEntity creates a model from a domain entity.
// An empty last name is stored as NULL.
func SupportTransactionModelFromEntity(e *donation.SupportTransaction) *SupportTransactionModel {
	return &SupportTransactionModel{
		ID:                 e.ID,
		UserID:             e.UserID,
		TourneeID:          e.TourneeID,
		Amount:             e.Amount,
		PaymentMethod:      string(e.PaymentMethod),
		CalendarAccepted:   e.CalendarAccepted,
		SupporterFirstName: nullString(e.Supporter.FirstName),
		SupporterLastName:  nullString(e.Supporter.LastName),
		SupporterEmail:     nullString(e.Supporter.Email),
		SupporterPhone:     nullString(e.Supporter.Phone),
		ConsentEmail:       e.ConsentEmail,
		ConsentNewsletter:  e.ConsentNewsletter,
		Notes:              nullString(e.Notes),
		StripeSessionID:    nullString(e.StripeSessionID),
		PaymentIntentID:    nullString(e.PaymentIntentID),
		CardPaymentID:      e.CardPaymentID,
		Source:             string(e.Source),
		ReceiptID:          e.ReceiptID,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// SupportTransactionRepository implements donation.TransactionRepository
type SupportTransactionRepository struct {
	db *gorm.DB
}

// NewSupportTransactionRepository creates a new support transaction repository
func NewSupportTransactionRepository(db *gorm.DB) *SupportTransactionRepository {
	return &SupportTransactionRepository{db: db}
}

// Create inserts the transaction, then reloads it so the classification
// computed by the database is visible to the caller.
func (r *SupportTransactionRepository) Create(ctx context.Context, tx *donation.SupportTransaction) error {
	model := SupportTransactionModelFromEntity(tx)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}
	var stored SupportTransactionModel
	if err := r.db.WithContext(ctx).First(&stored, "id = ?", model.ID).Error; err != nil {
		return fmt.Errorf("reload support transaction: %w", err)
	}
	*tx = *stored.ToEntity()
	return nil
}

// FindByID loads a transaction.
func (r *SupportTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.SupportTransaction, error) {
	var model SupportTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// ExistsByStripeSessionID reports whether a checkout session was already recorded.
func (r *SupportTransactionRepository) ExistsByStripeSessionID(ctx context.Context, sessionID string) (bool, error) {
	return r.exists(ctx, "stripe_session_id = ?", sessionID)
}

// ExistsByPaymentIntentID reports whether a payment intent was already recorded.
func (r *SupportTransactionRepository) ExistsByPaymentIntentID(ctx context.Context, paymentIntentID string) (bool, error) {
	return r.exists(ctx, "payment_intent_id = ?", paymentIntentID)
}

// FindByCardPaymentID loads the transaction recorded for a card payment.
func (r *SupportTransactionRepository) FindByCardPaymentID(ctx context.Context, cardPaymentID uuid.UUID) (*donation.SupportTransaction, error) {
	var model SupportTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "card_payment_id = ?", cardPaymentID).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

func (r *SupportTransactionRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SupportTransactionModel{}).
		Where(query, arg).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByTournee returns the transactions recorded on a round, newest first.
func (r *SupportTransactionRepository) ListByTournee(ctx context.Context, tourneeID uuid.UUID, filter shared.Filter) ([]donation.SupportTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&SupportTransactionModel{}).Where("tournee_id = ?", tourneeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []SupportTransactionModel
	err := query.
		Order(orderClause(filter, TransactionSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]donation.SupportTransaction, len(models))
	for i := range models {
		out[i] = *models[i].ToEntity()
	}
	return out, total, nil
}

type totalsRow struct {
	PaymentMethod   string
	TransactionType *string
	Count           int64
	Total           decimal.Decimal
}

// TotalsByTournee aggregates amounts by payment method and transaction type.
func (r *SupportTransactionRepository) TotalsByTournee(ctx context.Context, tourneeID uuid.UUID) ([]donation.TotalsRow, error) {
	var rows []totalsRow
	err := r.db.WithContext(ctx).
		Model(&SupportTransactionModel{}).
		Select("payment_method, transaction_type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("tournee_id = ?", tourneeID).
		Group("payment_method, transaction_type").
		Order("payment_method, transaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]donation.TotalsRow, len(rows))
	for i, row := range rows {
		out[i] = donation.TotalsRow{
			PaymentMethod:   donation.PaymentMethod(row.PaymentMethod),
			TransactionType: donation.TransactionType(derefString(row.TransactionType)),
			Count:           row.Count,
			Total:           row.Total,
		}
	}
	return out, nil
}

// AttachReceipt links a receipt to its transaction.
func (r *SupportTransactionRepository) AttachReceipt(ctx context.Context, transactionID, receiptID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&SupportTransactionModel{}).
		Where("id = ?", transactionID).
		Update("receipt_id", receiptID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ donation.TransactionRepository = (*SupportTransactionRepository)(nil)
