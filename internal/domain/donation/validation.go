package donation

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Messages returned to collectors.
const (
	MsgAmountNotNumeric   = "Le montant doit être un nombre valide"
	MsgAmountOutOfRange   = "Le montant doit être supérieur à 0 et inférieur ou égal à 10 000 €"
	MsgTourneeRequired    = "La tournée est obligatoire"
	MsgTourneeInvalid     = "La tournée est invalide"
	MsgPaymentMethod      = "Le mode de paiement est invalide"
	MsgEmailRequiredFisc  = "L'email est obligatoire pour un don fiscal"
	MsgEmailInvalid       = "L'adresse email n'est pas valide"
	MsgTourneeUnavailable = "Tournée non trouvée ou non autorisée"
)

var emailValidator = validator.New()

// IsEmailShaped reports whether s looks like an email address.
func IsEmailShaped(s string) bool {
	return emailValidator.Var(s, "required,email") == nil
}

// DonationForm is the raw input of a manually recorded donation.
type DonationForm struct {
	Amount            string
	PaymentMethod     string
	TourneeID         string
	CalendarAccepted  bool
	SupporterName     string
	SupporterEmail    string
	SupporterPhone    string
	ConsentEmail      bool
	ConsentNewsletter bool
	Notes             string
}

// ValidDonation is a form that passed validation.
type ValidDonation struct {
	Amount            decimal.Decimal
	PaymentMethod     PaymentMethod
	TourneeID         uuid.UUID
	CalendarAccepted  bool
	Supporter         Supporter
	ConsentEmail      bool
	ConsentNewsletter bool
	Notes             string
}

// Validate checks the form in a fixed order and collects every error.
func (f DonationForm) Validate() (*ValidDonation, []string) {
	var errs []string
	out := &ValidDonation{
		CalendarAccepted:  f.CalendarAccepted,
		ConsentEmail:      f.ConsentEmail,
		ConsentNewsletter: f.ConsentNewsletter,
		Notes:             strings.TrimSpace(f.Notes),
	}

	// The range applies to the amount as stored, to the cent.
	amount, err := ParseAmount(f.Amount)
	amount = amount.Round(2)
	switch {
	case err != nil:
		errs = append(errs, MsgAmountNotNumeric)
	case !amount.IsPositive() || amount.GreaterThan(MaxDonationAmount):
		errs = append(errs, MsgAmountOutOfRange)
	default:
		out.Amount = amount
	}

	tourneeID := strings.TrimSpace(f.TourneeID)
	if tourneeID == "" {
		errs = append(errs, MsgTourneeRequired)
	} else if id, err := uuid.Parse(tourneeID); err != nil {
		errs = append(errs, MsgTourneeInvalid)
	} else {
		out.TourneeID = id
	}

	method := PaymentMethod(strings.TrimSpace(f.PaymentMethod))
	if !method.IsValid() {
		errs = append(errs, MsgPaymentMethod)
	} else {
		out.PaymentMethod = method
	}

	email := strings.TrimSpace(f.SupporterEmail)
	switch {
	case email == "" && !f.CalendarAccepted:
		errs = append(errs, MsgEmailRequiredFisc)
	case email != "" && !IsEmailShaped(email):
		errs = append(errs, MsgEmailInvalid)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	out.Supporter = SupporterFromName(f.SupporterName, email)
	out.Supporter.Phone = strings.TrimSpace(f.SupporterPhone)
	return out, nil
}
