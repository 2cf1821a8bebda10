package persistence

import (
	"context"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookLogModel is an append-only row of the webhook audit trail
type WebhookLogModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Provider   string    `gorm:"type:varchar(20);not null"`
	EventID    string    `gorm:"type:varchar(255);index;not null"`
	EventType  string    `gorm:"type:varchar(100);not null"`
	Payload    []byte    `gorm:"type:jsonb;not null"`
	ReceivedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for the model
func (WebhookLogModel) TableName() string {
	return "webhook_logs"
}

// WebhookLogRepository implements donation.WebhookEventRepository
type WebhookLogRepository struct {
	db *gorm.DB
}

// NewWebhookLogRepository creates a new webhook log repository
func NewWebhookLogRepository(db *gorm.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Append inserts the event. Rows are never updated or deleted.
func (r *WebhookLogRepository) Append(ctx context.Context, event *donation.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(&WebhookLogModel{
		ID:         event.ID,
		Provider:   string(event.Provider),
		EventID:    event.EventID,
		EventType:  event.EventType,
		Payload:    event.Payload,
		ReceivedAt: event.ReceivedAt,
	}).Error
}

var _ donation.WebhookEventRepository = (*WebhookLogRepository)(nil)
