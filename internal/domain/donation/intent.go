package donation

import (
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentStatus is the lifecycle of a donation intent.
type IntentStatus string

const (
	IntentStatusWaitingDonor IntentStatus = "waiting_donor"
	IntentStatusCompleted    IntentStatus = "completed"
	IntentStatusExpired      IntentStatus = "expired"
	IntentStatusCancelled    IntentStatus = "cancelled"
)

// DonationIntent is a card donation started by a collector and awaiting
// confirmation from the payment provider.
type DonationIntent struct {
	shared.BaseEntity
	TourneeID        uuid.UUID
	UserID           uuid.UUID
	ExpectedAmount   decimal.Decimal
	CalendarAccepted bool
	DonorName        string
	DonorEmail       string
	Status           IntentStatus
	PaymentIntentID  string
	TransactionID    *uuid.UUID
	CompletedAt      *time.Time
}

// NewDonationIntent creates a pending intent.
func NewDonationIntent(tourneeID, userID uuid.UUID, amount decimal.Decimal, calendarAccepted bool, donor DonorIdentity) (*DonationIntent, error) {
	if !amount.IsPositive() || amount.GreaterThan(MaxDonationAmount) {
		return nil, shared.NewDomainError("INVALID_INPUT", "amount must be within (0, 10000]")
	}
	donor = donor.Normalize()
	return &DonationIntent{
		BaseEntity:       shared.NewBaseEntity(),
		TourneeID:        tourneeID,
		UserID:           userID,
		ExpectedAmount:   amount.Round(2),
		CalendarAccepted: calendarAccepted,
		DonorName:        donor.Name,
		DonorEmail:       donor.Email,
		Status:           IntentStatusWaitingDonor,
	}, nil
}

// IsPending reports whether the intent still waits for the provider.
func (i *DonationIntent) IsPending() bool {
	return i.Status == IntentStatusWaitingDonor
}

// AttachPaymentIntent stores the provider payment intent id.
func (i *DonationIntent) AttachPaymentIntent(id string) {
	i.PaymentIntentID = id
	i.Touch()
}

// IsCompleted reports whether a transaction was already recorded.
func (i *DonationIntent) IsCompleted() bool {
	return i.Status == IntentStatusCompleted
}

// Complete links the intent to the recorded transaction. A payment can
// succeed after a decline or after the sweep expired the intent, so only a
// completed intent is refused.
func (i *DonationIntent) Complete(identity DonorIdentity, transactionID uuid.UUID, at time.Time) error {
	if i.IsCompleted() {
		return shared.ErrInvalidState
	}
	identity = identity.Normalize()
	if identity.Name != "" {
		i.DonorName = identity.Name
	}
	if identity.Email != "" {
		i.DonorEmail = identity.Email
	}
	i.Status = IntentStatusCompleted
	i.TransactionID = &transactionID
	i.CompletedAt = &at
	i.Touch()
	return nil
}
