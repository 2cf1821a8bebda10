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

// ReceiptModel is the GORM model for receipts
type ReceiptModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	Number        string          `gorm:"type:varchar(32);uniqueIndex;not null"`
	Sequence      int64           `gorm:"not null"`
	FiscalYear    int             `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Fiscal        bool            `gorm:"not null"`
	DonorName     *string         `gorm:"type:varchar(255)"`
	DonorEmail    *string         `gorm:"type:varchar(255)"`
	Status        string          `gorm:"type:varchar(20);not null"`
	PDFKey        *string         `gorm:"column:pdf_key;type:varchar(512)"`
	SentAt        *time.Time
	LastError     *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToEntity converts the model to a domain entity
func (m *ReceiptModel) ToEntity() *donation.Receipt {
	return &donation.Receipt{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TransactionID: m.TransactionID,
		Number:        m.Number,
		Sequence:      m.Sequence,
		FiscalYear:    m.FiscalYear,
		Amount:        m.Amount,
		Fiscal:        m.Fiscal,
		DonorName:     derefString(m.DonorName),
		DonorEmail:    derefString(m.DonorEmail),
		Status:        donation.ReceiptStatus(m.Status),
		PDFKey:        derefString(m.PDFKey),
		SentAt:        m.SentAt,
		LastError:     derefString(m.LastError),
	}
}

// ReceiptModelFromEntity creates a model from a domain entity
func ReceiptModelFromEntity(e *donation.Receipt) *ReceiptModel {
	return &ReceiptModel{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		Number:        e.Number,
		Sequence:      e.Sequence,
		FiscalYear:    e.FiscalYear,
		Amount:        e.Amount,
		Fiscal:        e.Fiscal,
		DonorName:     nullString(e.DonorName),
		DonorEmail:    nullString(e.DonorEmail),
		Status:        string(e.Status),
		PDFKey:        nullString(e.PDFKey),
		SentAt:        e.SentAt,
		LastError:     nullString(e.LastError),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// ReceiptRepository implements donation.ReceiptRepository
type ReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// NextNumber asks the database for the next receipt number, e.g. "2026-000042".
// Numbering is gap-free per fiscal year and owned by issue_receipt_number().
func (r *ReceiptRepository) NextNumber(ctx context.Context) (string, error) {
	var number string
	if err := r.db.WithContext(ctx).Raw("SELECT issue_receipt_number()").Row().Scan(&number); err != nil {
		return "", fmt.Errorf("issue receipt number: %w", err)
	}
	return number, nil
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *donation.Receipt) error {
	return translateError(r.db.WithContext(ctx).Create(ReceiptModelFromEntity(receipt)).Error)
}

func (r *ReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.Receipt, error) {
	var model ReceiptModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

func (r *ReceiptRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*donation.Receipt, error) {
	var model ReceiptModel
	if err := r.db.WithContext(ctx).First(&model, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// Update persists delivery state.
func (r *ReceiptRepository) Update(ctx context.Context, receipt *donation.Receipt) error {
	res := r.db.WithContext(ctx).
		Model(&ReceiptModel{}).
		Where("id = ?", receipt.ID).
		Updates(map[string]any{
			"status":     string(receipt.Status),
			"pdf_key":    nullString(receipt.PDFKey),
			"sent_at":    receipt.SentAt,
			"last_error": nullString(receipt.LastError),
			"updated_at": receipt.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ donation.ReceiptRepository = (*ReceiptRepository)(nil)
