package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountInput accepts an amount typed as a JSON number or as free text
// ("12,50 €"). Parsing and range checks happen in the domain.
type AmountInput string

// UnmarshalJSON implements json.Unmarshaler.
func (a *AmountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = AmountInput(n.String())
	return nil
}

// SubmitDonationRequest is the body of POST /donations.
type SubmitDonationRequest struct {
	Amount            AmountInput `json:"amount"`
	PaymentMethod     string      `json:"payment_method"`
	TourneeID         string      `json:"tournee_id"`
	CalendarAccepted  bool        `json:"calendar_accepted"`
	SupporterName     string      `json:"supporter_name" binding:"max=200"`
	SupporterEmail    string      `json:"supporter_email" binding:"max=254"`
	SupporterPhone    string      `json:"supporter_phone" binding:"max=32"`
	ConsentEmail      bool        `json:"consent_email"`
	ConsentNewsletter bool        `json:"consent_newsletter"`
	Notes             string      `json:"notes" binding:"max=2000"`
}

// ToForm converts the request to the domain form.
func (r SubmitDonationRequest) ToForm() donation.DonationForm {
	return donation.DonationForm{
		Amount:            string(r.Amount),
		PaymentMethod:     r.PaymentMethod,
		TourneeID:         r.TourneeID,
		CalendarAccepted:  r.CalendarAccepted,
		SupporterName:     r.SupporterName,
		SupporterEmail:    r.SupporterEmail,
		SupporterPhone:    r.SupporterPhone,
		ConsentEmail:      r.ConsentEmail,
		ConsentNewsletter: r.ConsentNewsletter,
		Notes:             r.Notes,
	}
}

// StartTourneeRequest is the body of POST /tournees.
type StartTourneeRequest struct {
	Zone               string    `json:"zone" binding:"required,max=120"`
	StartDate          time.Time `json:"start_date"`
	CalendarsAllocated int       `json:"calendars_allocated" binding:"gte=0,lte=10000"`
}

// CloseTourneeRequest is the body of POST /tournees/:id/close.
type CloseTourneeRequest struct {
	Cash                 AmountInput `json:"cash"`
	Check                AmountInput `json:"check"`
	CalendarsDistributed int         `json:"calendars_distributed"`
	Notes                string      `json:"notes" binding:"max=2000"`
}

// ToForm converts the request to the domain form.
func (r CloseTourneeRequest) ToForm() donation.ClosureForm {
	return donation.ClosureForm{
		Cash:                 string(r.Cash),
		Check:                string(r.Check),
		CalendarsDistributed: r.CalendarsDistributed,
		Notes:                r.Notes,
	}
}

// CheckoutRequest opens a card payment.
type CheckoutRequest struct {
	Amount           AmountInput `json:"amount"`
	CalendarAccepted bool        `json:"calendar_accepted"`
	DonorName        string      `json:"donor_name" binding:"max=200"`
	DonorEmail       string      `json:"donor_email" binding:"omitempty,email,max=254"`
	Provider         string      `json:"provider" binding:"omitempty,oneof=stripe helloasso"`
}

// TransactionResponse is a recorded donation.
type TransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	TourneeID        *uuid.UUID      `json:"tournee_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"payment_method"`
	CalendarAccepted bool            `json:"calendar_accepted"`
	TransactionType  string          `json:"transaction_type"`
	TaxReduction     decimal.Decimal `json:"tax_reduction"`
	SupporterName    string          `json:"supporter_name,omitempty"`
	SupporterEmail   string          `json:"supporter_email,omitempty"`
	Source           string          `json:"source"`
	ReceiptID        *uuid.UUID      `json:"receipt_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewTransactionResponse maps a transaction.
func NewTransactionResponse(tx *donation.SupportTransaction) *TransactionResponse {
	if tx == nil {
		return nil
	}
	return &TransactionResponse{
		ID:               tx.ID,
		TourneeID:        tx.TourneeID,
		Amount:           tx.Amount,
		PaymentMethod:    string(tx.PaymentMethod),
		CalendarAccepted: tx.CalendarAccepted,
		TransactionType:  string(tx.TransactionType),
		TaxReduction:     tx.TaxReduction,
		SupporterName:    tx.Supporter.FullName(),
		SupporterEmail:   tx.Supporter.Email,
		Source:           string(tx.Source),
		ReceiptID:        tx.ReceiptID,
		CreatedAt:        tx.CreatedAt,
	}
}

// NewTransactionResponses maps a page of transactions.
func NewTransactionResponses(txs []donation.SupportTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, *NewTransactionResponse(&txs[i]))
	}
	return out
}

// ReceiptResponse is an issued receipt.
type ReceiptResponse struct {
	ID         uuid.UUID       `json:"id"`
	Number     string          `json:"number"`
	FiscalYear int             `json:"fiscal_year"`
	Amount     decimal.Decimal `json:"amount"`
	Fiscal     bool            `json:"fiscal"`
	Status     string          `json:"status"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
}

// NewReceiptResponse maps a receipt.
func NewReceiptResponse(r *donation.Receipt) *ReceiptResponse {
	if r == nil {
		return nil
	}
	return &ReceiptResponse{
		ID:         r.ID,
		Number:     r.Number,
		FiscalYear: r.FiscalYear,
		Amount:     r.Amount,
		Fiscal:     r.Fiscal,
		Status:     string(r.Status),
		SentAt:     r.SentAt,
	}
}

// SubmitDonationResponse is returned after a donation is recorded.
type SubmitDonationResponse struct {
	Message     string               `json:"message"`
	Transaction *TransactionResponse `json:"transaction"`
	Receipt     *ReceiptResponse     `json:"receipt,omitempty"`
}

// TourneeResponse is a fundraising round.
type TourneeResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Zone                 string          `json:"zone"`
	StartDate            time.Time       `json:"start_date"`
	Status               string          `json:"status"`
	CalendarsAllocated   int             `json:"calendars_allocated"`
	CalendarsDistributed int             `json:"calendars_distributed"`
	DeclaredCash         decimal.Decimal `json:"declared_cash"`
	DeclaredCheck        decimal.Decimal `json:"declared_check"`
	ClosedAt             *time.Time      `json:"closed_at,omitempty"`
}

// NewTourneeResponse maps a round.
func NewTourneeResponse(t *donation.Tournee) *TourneeResponse {
	return &TourneeResponse{
		ID:                   t.ID,
		Zone:                 t.Zone,
		StartDate:            t.StartDate,
		Status:               string(t.Status),
		CalendarsAllocated:   t.CalendarsAllocated,
		CalendarsDistributed: t.CalendarsDistributed,
		DeclaredCash:         t.DeclaredCash,
		DeclaredCheck:        t.DeclaredCheck,
		ClosedAt:             t.ClosedAt,
	}
}

// NewTourneeResponses maps a page of rounds.
func NewTourneeResponses(ts []donation.Tournee) []TourneeResponse {
	out := make([]TourneeResponse, 0, len(ts))
	for i := range ts {
		out = append(out, *NewTourneeResponse(&ts[i]))
	}
	return out
}

// TourneeTotalsResponse aggregates the donations of a round.
type TourneeTotalsResponse struct {
	TourneeID uuid.UUID                  `json:"tournee_id"`
	Count     int64                      `json:"count"`
	Total     decimal.Decimal            `json:"total"`
	ByMethod  map[string]decimal.Decimal `json:"by_method"`
	ByType    map[string]decimal.Decimal `json:"by_type"`
}

// NewTourneeTotalsResponse maps round totals.
func NewTourneeTotalsResponse(t *donation.TourneeTotals) *TourneeTotalsResponse {
	out := &TourneeTotalsResponse{
		TourneeID: t.TourneeID,
		Count:     t.Count,
		Total:     t.Total,
		ByMethod:  make(map[string]decimal.Decimal, len(t.ByMethod)),
		ByType:    make(map[string]decimal.Decimal, len(t.ByType)),
	}
	for k, v := range t.ByMethod {
		out.ByMethod[string(k)] = v
	}
	for k, v := range t.ByType {
		out.ByType[string(k)] = v
	}
	return out
}

// ClosureSummaryResponse is the result of closing a round.
type ClosureSummaryResponse struct {
	Message              string          `json:"message"`
	TourneeID            uuid.UUID       `json:"tournee_id"`
	TotalCash            decimal.Decimal `json:"total_cash"`
	TotalCheck           decimal.Decimal `json:"total_check"`
	TotalCard            decimal.Decimal `json:"total_card"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	CalendarsDistributed int             `json:"calendars_distributed"`
	AssociationShare     decimal.Decimal `json:"association_share"`
	CollectorShare       decimal.Decimal `json:"collector_share"`
	ClosedAt             time.Time       `json:"closed_at"`
}

// NewClosureSummaryResponse maps a closure summary.
func NewClosureSummaryResponse(message string, s *donation.ClosureSummary) *ClosureSummaryResponse {
	return &ClosureSummaryResponse{
		Message:              message,
		TourneeID:            s.TourneeID,
		TotalCash:            s.TotalCash,
		TotalCheck:           s.TotalCheck,
		TotalCard:            s.TotalCard,
		TotalAmount:          s.TotalAmount,
		CalendarsDistributed: s.CalendarsDistributed,
		AssociationShare:     s.AssociationShare,
		CollectorShare:       s.CollectorShare,
		ClosedAt:             s.ClosedAt,
	}
}
