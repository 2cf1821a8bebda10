package donation

import (
	"context"
	"errors"
	"fmt"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/format"
	"github.com/amicale-sp/calendriers/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MsgSubmitFailed is shown when recording fails for an unexpected reason.
const MsgSubmitFailed = "Une erreur est survenue lors de l'enregistrement du don"

// ReceiptIssuer issues receipts for persisted transactions.
type ReceiptIssuer interface {
	IssueForTransaction(ctx context.Context, tx *donation.SupportTransaction) (*donation.Receipt, error)
}

// SubmitResult is the outcome of a donation submission. Validation problems
// are reported in Errors with Success false and a nil error.
type SubmitResult struct {
	Success     bool                         `json:"success"`
	Transaction *donation.SupportTransaction `json:"-"`
	Receipt     *donation.Receipt            `json:"-"`
	Message     string                       `json:"message,omitempty"`
	Errors      []string                     `json:"errors,omitempty"`
}

// DonationService records donations collected in the field.
type DonationService struct {
	tournees     donation.TourneeRepository
	transactions donation.TransactionRepository
	receipts     ReceiptIssuer
	metrics      *telemetry.DonationMetrics
	logger       *zap.Logger
}

// DonationServiceConfig contains the dependencies of DonationService.
type DonationServiceConfig struct {
	Tournees     donation.TourneeRepository
	Transactions donation.TransactionRepository
	Receipts     ReceiptIssuer
	Metrics      *telemetry.DonationMetrics
	Logger       *zap.Logger
}

// NewDonationService creates a DonationService.
func NewDonationService(cfg DonationServiceConfig) *DonationService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonationService{
		tournees:     cfg.Tournees,
		transactions: cfg.Transactions,
		receipts:     cfg.Receipts,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

// SubmitDonation validates and records a manual donation on one of the
// collector's active rounds. When the supporter left an email a receipt is
// issued and mailed; a receipt failure does not fail the submission.
func (s *DonationService) SubmitDonation(ctx context.Context, userID uuid.UUID, form donation.DonationForm) (*SubmitResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DonationService", "SubmitDonation")
	defer span.End()

	valid, errs := form.Validate()
	if len(errs) > 0 {
		return &SubmitResult{Errors: errs}, nil
	}

	tournee, err := s.tournees.FindActiveForUser(ctx, valid.TourneeID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &SubmitResult{Errors: []string{donation.MsgTourneeUnavailable}}, nil
		}
		return s.fail(span, "lookup tournee", err)
	}

	tx, err := donation.NewSupportTransaction(donation.NewTransactionParams{
		UserID:            &userID,
		TourneeID:         &tournee.ID,
		Amount:            valid.Amount,
		PaymentMethod:     valid.PaymentMethod,
		CalendarAccepted:  valid.CalendarAccepted,
		Supporter:         valid.Supporter,
		ConsentEmail:      valid.ConsentEmail,
		ConsentNewsletter: valid.ConsentNewsletter,
		Notes:             valid.Notes,
		Source:            donation.SourceTerrain,
	})
	if err != nil {
		return s.fail(span, "build transaction", err)
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return s.fail(span, "insert transaction", err)
	}
	s.metrics.DonationRecorded(ctx, string(tx.Source), string(tx.PaymentMethod), string(tx.TransactionType), tx.Amount)

	s.logger.Info("Donation recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("tournee_id", tournee.ID.String()),
		zap.String("amount", tx.Amount.String()),
		zap.String("transaction_type", string(tx.TransactionType)))

	result := &SubmitResult{Success: true, Transaction: tx}
	if tx.HasEmail() && s.receipts != nil {
		receipt, err := s.receipts.IssueForTransaction(ctx, tx)
		if err != nil {
			s.logger.Warn("Receipt issuance failed, donation kept",
				zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		}
		result.Receipt = receipt
	}
	result.Message = submitMessage(tx, result.Receipt)
	return result, nil
}

func (s *DonationService) fail(span trace.Span, step string, err error) (*SubmitResult, error) {
	telemetry.RecordError(span, err)
	s.logger.Error("Donation submission failed", zap.String("step", step), zap.Error(err))
	return &SubmitResult{Message: MsgSubmitFailed, Errors: []string{MsgSubmitFailed}}, fmt.Errorf("%s: %w", step, err)
}

func submitMessage(tx *donation.SupportTransaction, receipt *donation.Receipt) string {
	amount := format.EUR(tx.Amount)
	var msg string
	if tx.IsFiscal() {
		msg = fmt.Sprintf("Don fiscal de %s enregistré", amount)
		if tx.TaxReduction.IsPositive() {
			msg += fmt.Sprintf(" (réduction d'impôt de %s)", format.EUR(tx.TaxReduction))
		}
	} else {
		msg = fmt.Sprintf("Soutien de %s enregistré, calendrier remis", amount)
	}
	if receipt != nil {
		msg += fmt.Sprintf(". Reçu n° %s", receipt.Number)
		if receipt.Status == donation.ReceiptStatusSent {
			msg += " envoyé par email"
		}
	}
	return msg
}
