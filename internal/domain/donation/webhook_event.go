package donation

import (
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
)

// EventKind is the closed set of provider events the system reacts to.
type EventKind int

const (
	EventKindUnhandled EventKind = iota
	EventKindCheckoutSessionCompleted
	EventKindCheckoutSessionExpired
	EventKindPaymentIntentSucceeded
	EventKindPaymentIntentFailed
	EventKindChargeSucceeded
)

var eventKindsByType = map[string]EventKind{
	"checkout.session.completed":    EventKindCheckoutSessionCompleted,
	"checkout.session.expired":      EventKindCheckoutSessionExpired,
	"payment_intent.succeeded":      EventKindPaymentIntentSucceeded,
	"payment_intent.payment_failed": EventKindPaymentIntentFailed,
	"charge.succeeded":              EventKindChargeSucceeded,
}

// ClassifyEvent maps a provider event type string to its kind.
func ClassifyEvent(eventType string) EventKind {
	if k, ok := eventKindsByType[eventType]; ok {
		return k
	}
	return EventKindUnhandled
}

func (k EventKind) String() string {
	switch k {
	case EventKindCheckoutSessionCompleted:
		return "checkout_session_completed"
	case EventKindCheckoutSessionExpired:
		return "checkout_session_expired"
	case EventKindPaymentIntentSucceeded:
		return "payment_intent_succeeded"
	case EventKindPaymentIntentFailed:
		return "payment_intent_failed"
	case EventKindChargeSucceeded:
		return "charge_succeeded"
	}
	return "unhandled"
}

// WebhookEvent is an append-only audit record of a verified notification.
type WebhookEvent struct {
	shared.BaseEntity
	Provider   Provider
	EventID    string
	EventType  string
	Payload    []byte
	ReceivedAt time.Time
}

// NewWebhookEvent records a received notification.
func NewWebhookEvent(provider Provider, eventID, eventType string, payload []byte) *WebhookEvent {
	base := shared.NewBaseEntity()
	return &WebhookEvent{
		BaseEntity: base,
		Provider:   provider,
		EventID:    eventID,
		EventType:  eventType,
		Payload:    payload,
		ReceivedAt: base.CreatedAt,
	}
}
