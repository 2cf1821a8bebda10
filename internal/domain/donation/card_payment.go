package donation

import (
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider identifies the card checkout platform.
type Provider string

const (
	ProviderStripe    Provider = "stripe"
	ProviderHelloAsso Provider = "helloasso"
)

// CardPaymentStatus is the lifecycle of a checkout.
type CardPaymentStatus string

const (
	CardPaymentPending   CardPaymentStatus = "pending"
	CardPaymentCompleted CardPaymentStatus = "completed"
	CardPaymentFailed    CardPaymentStatus = "failed"
	CardPaymentExpired   CardPaymentStatus = "expired"
)

// CardPayment correlates a provider checkout with a tournée.
type CardPayment struct {
	shared.BaseEntity
	TourneeID        uuid.UUID
	UserID           uuid.UUID
	Provider         Provider
	ProviderRef      string
	Amount           decimal.Decimal
	CalendarAccepted bool
	PayerName        string
	PayerEmail       string
	Status           CardPaymentStatus
	TransactionID    *uuid.UUID
	CompletedAt      *time.Time
}

// NewCardPayment creates a pending checkout record.
func NewCardPayment(tourneeID, userID uuid.UUID, provider Provider, amount decimal.Decimal, calendarAccepted bool) (*CardPayment, error) {
	if !amount.IsPositive() || amount.GreaterThan(MaxDonationAmount) {
		return nil, shared.NewDomainError("INVALID_INPUT", "amount must be within (0, 10000]")
	}
	return &CardPayment{
		BaseEntity:       shared.NewBaseEntity(),
		TourneeID:        tourneeID,
		UserID:           userID,
		Provider:         provider,
		Amount:           amount.Round(2),
		CalendarAccepted: calendarAccepted,
		Status:           CardPaymentPending,
	}, nil
}

// IsPending reports whether the checkout is still open.
func (p *CardPayment) IsPending() bool {
	return p.Status == CardPaymentPending
}

// AttachProviderRef stores the provider session or checkout id.
func (p *CardPayment) AttachProviderRef(ref string) {
	p.ProviderRef = ref
	p.Touch()
}

// IsCompleted reports whether a transaction was already recorded.
func (p *CardPayment) IsCompleted() bool {
	return p.Status == CardPaymentCompleted
}

// Complete links the payment to its transaction. Expired and failed
// checkouts still complete when the provider reports the money as paid.
func (p *CardPayment) Complete(payer DonorIdentity, transactionID uuid.UUID, at time.Time) error {
	if p.IsCompleted() {
		return shared.ErrInvalidState
	}
	payer = payer.Normalize()
	p.PayerName = payer.Name
	p.PayerEmail = payer.Email
	p.Status = CardPaymentCompleted
	p.TransactionID = &transactionID
	p.CompletedAt = &at
	p.Touch()
	return nil
}

// Expire closes an abandoned checkout.
func (p *CardPayment) Expire() error {
	if !p.IsPending() {
		return shared.ErrInvalidState
	}
	p.Status = CardPaymentExpired
	p.Touch()
	return nil
}

// Fail closes a refused checkout.
func (p *CardPayment) Fail() error {
	if !p.IsPending() {
		return shared.ErrInvalidState
	}
	p.Status = CardPaymentFailed
	p.Touch()
	return nil
}
