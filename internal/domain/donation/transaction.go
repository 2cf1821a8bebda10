package donation

import (
	"strings"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a supporter paid.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "especes"
	PaymentMethodCheck    PaymentMethod = "cheque"
	PaymentMethodCard     PaymentMethod = "carte"
	PaymentMethodTransfer PaymentMethod = "virement"
)

// IsValid reports whether the method belongs to the accepted set.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// TransactionType is the fiscal classification computed by the database.
type TransactionType string

const (
	// TransactionTypeFiscal is a donation without calendar, tax deductible.
	TransactionTypeFiscal TransactionType = "fiscal"
	// TransactionTypeSoutien is a donation in exchange for a calendar.
	TransactionTypeSoutien TransactionType = "soutien"
)

// Source records which channel produced a transaction.
type Source string

const (
	SourceTerrain        Source = "terrain"
	SourceLandingPage    Source = "landing_page"
	SourceStripeCheckout Source = "stripe_checkout"
	SourcePaymentIntent  Source = "payment_intent"
	SourceHelloAsso      Source = "helloasso"
)

// MaxDonationAmount is the upper bound accepted for a single donation.
var MaxDonationAmount = decimal.NewFromInt(10000)

// Supporter is the donor identity attached to a transaction.
type Supporter struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FullName joins first and last name.
func (s Supporter) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// SupporterFromName builds a supporter from a single full-name string.
func SupporterFromName(fullName, email string) Supporter {
	name := ParseFullName(fullName)
	return Supporter{
		FirstName: name.First,
		LastName:  name.Last,
		Email:     strings.TrimSpace(email),
	}
}

// SupportTransaction is a recorded donation.
// TransactionType and TaxReduction are owned by the database and are only
// meaningful after the row has been persisted and reloaded.
type SupportTransaction struct {
	shared.BaseEntity
	UserID            *uuid.UUID
	TourneeID         *uuid.UUID
	Amount            decimal.Decimal
	PaymentMethod     PaymentMethod
	CalendarAccepted  bool
	TransactionType   TransactionType
	TaxReduction      decimal.Decimal
	Supporter         Supporter
	ConsentEmail      bool
	ConsentNewsletter bool
	Notes             string
	StripeSessionID   string
	PaymentIntentID   string
	CardPaymentID     *uuid.UUID
	Source            Source
	ReceiptID         *uuid.UUID
}

// NewTransactionParams carries the fields needed to record a donation.
type NewTransactionParams struct {
	UserID            *uuid.UUID
	TourneeID         *uuid.UUID
	Amount            decimal.Decimal
	PaymentMethod     PaymentMethod
	CalendarAccepted  bool
	Supporter         Supporter
	ConsentEmail      bool
	ConsentNewsletter bool
	Notes             string
	StripeSessionID   string
	PaymentIntentID   string
	CardPaymentID     *uuid.UUID
	Source            Source
}

// NewSupportTransaction creates an unsaved transaction.
func NewSupportTransaction(p NewTransactionParams) (*SupportTransaction, error) {
	if !p.Amount.IsPositive() || p.Amount.GreaterThan(MaxDonationAmount) {
		return nil, shared.NewDomainError("INVALID_INPUT", "amount must be within (0, 10000]")
	}
	if !p.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "unknown payment method")
	}
	if p.Source == "" {
		p.Source = SourceTerrain
	}
	return &SupportTransaction{
		BaseEntity:        shared.NewBaseEntity(),
		UserID:            p.UserID,
		TourneeID:         p.TourneeID,
		Amount:            p.Amount.Round(2),
		PaymentMethod:     p.PaymentMethod,
		CalendarAccepted:  p.CalendarAccepted,
		Supporter:         p.Supporter,
		ConsentEmail:      p.ConsentEmail,
		ConsentNewsletter: p.ConsentNewsletter,
		Notes:             strings.TrimSpace(p.Notes),
		StripeSessionID:   p.StripeSessionID,
		PaymentIntentID:   p.PaymentIntentID,
		CardPaymentID:     p.CardPaymentID,
		Source:            p.Source,
	}, nil
}

// IsFiscal reports whether the donation is tax deductible. Before the
// database has classified the row, the calendar flag decides.
func (t *SupportTransaction) IsFiscal() bool {
	if t.TransactionType != "" {
		return t.TransactionType == TransactionTypeFiscal
	}
	return !t.CalendarAccepted
}

// HasEmail reports whether the supporter left an email address.
func (t *SupportTransaction) HasEmail() bool {
	return t.Supporter.Email != ""
}

// MeetsReceiptThreshold reports whether the amount reaches the receipt floor.
func (t *SupportTransaction) MeetsReceiptThreshold(threshold decimal.Decimal) bool {
	return t.Amount.GreaterThanOrEqual(threshold)
}

// AmountFromMinorUnits converts a provider amount in cents to euros.
func AmountFromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToMinorUnits converts euros to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
