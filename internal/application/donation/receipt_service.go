package donation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/email"
	"github.com/amicale-sp/calendriers/internal/infrastructure/printing"
	"github.com/amicale-sp/calendriers/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrNoDonorEmail is returned when a receipt cannot be mailed for lack of address.
var ErrNoDonorEmail = shared.NewDomainError("INVALID_INPUT", "Aucune adresse email pour ce reçu")

// Organization identifies the issuer printed on receipts.
type Organization struct {
	Name      string
	Address   string
	Signatory string
}

// ReceiptService issues numbered receipts and delivers them.
type ReceiptService struct {
	receipts     donation.ReceiptRepository
	transactions donation.TransactionRepository
	mailer       Mailer
	renderer     ReceiptPDFRenderer
	archive      ReceiptArchive
	threshold    decimal.Decimal
	org          Organization
	metrics      *telemetry.DonationMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// ReceiptServiceConfig contains the dependencies of ReceiptService.
// Renderer and Archive are optional.
type ReceiptServiceConfig struct {
	Receipts     donation.ReceiptRepository
	Transactions donation.TransactionRepository
	Mailer       Mailer
	Renderer     ReceiptPDFRenderer
	Archive      ReceiptArchive
	Threshold    decimal.Decimal
	Organization Organization
	Metrics      *telemetry.DonationMetrics
	Logger       *zap.Logger
}

// NewReceiptService creates a ReceiptService.
func NewReceiptService(cfg ReceiptServiceConfig) *ReceiptService {
	threshold := cfg.Threshold
	if !threshold.IsPositive() {
		threshold = donation.DefaultReceiptThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		receipts:     cfg.Receipts,
		transactions: cfg.Transactions,
		mailer:       cfg.Mailer,
		renderer:     cfg.Renderer,
		archive:      cfg.Archive,
		threshold:    threshold,
		org:          cfg.Organization,
		metrics:      cfg.Metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Threshold is the minimum amount that gets a receipt.
func (s *ReceiptService) Threshold() decimal.Decimal {
	return s.threshold
}

// IssueForTransaction numbers and stores a receipt for tx, then attempts
// delivery. It returns nil without error when tx is below the threshold.
// A transaction that already has a receipt gets the existing one back.
// Delivery failures are recorded on the receipt and never returned.
func (s *ReceiptService) IssueForTransaction(ctx context.Context, tx *donation.SupportTransaction) (*donation.Receipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ReceiptService", "IssueForTransaction",
		attribute.String("transaction.id", tx.ID.String()))
	defer span.End()

	if !tx.MeetsReceiptThreshold(s.threshold) {
		s.logger.Debug("Amount below receipt threshold",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("amount", tx.Amount.String()))
		return nil, nil
	}

	existing, err := s.receipts.FindByTransactionID(ctx, tx.ID)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, shared.ErrNotFound):
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find receipt: %w", err)
	}

	number, err := s.receipts.NextNumber(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("issue receipt number: %w", err)
	}
	receipt, err := donation.NewReceipt(tx, number)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.receipts.FindByTransactionID(ctx, tx.ID)
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create receipt: %w", err)
	}
	if err := s.transactions.AttachReceipt(ctx, tx.ID, receipt.ID); err != nil {
		s.logger.Warn("Failed to link receipt to transaction",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("receipt_number", receipt.Number),
			zap.Error(err))
	} else {
		tx.ReceiptID = &receipt.ID
	}

	s.logger.Info("Receipt issued",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("receipt_number", receipt.Number),
		zap.Int64("sequence", receipt.Sequence))

	s.Deliver(ctx, tx, receipt)
	return receipt, nil
}

// Deliver renders, archives and mails a receipt. Each step is attempted
// independently; failures are logged and stored on the receipt.
func (s *ReceiptService) Deliver(ctx context.Context, tx *donation.SupportTransaction, receipt *donation.Receipt) {
	paidAt := tx.CreatedAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	var pdf []byte
	if s.renderer != nil {
		data, err := s.renderer.RenderReceipt(ctx, s.document(tx, receipt, paidAt))
		if err != nil {
			s.logger.Warn("Receipt PDF rendering failed",
				zap.String("receipt_number", receipt.Number), zap.Error(err))
		} else {
			pdf = data
		}
	}

	var downloadURL string
	if pdf != nil && s.archive != nil {
		key := receipt.ArchiveKey()
		if err := s.archive.Put(ctx, key, pdf, "application/pdf"); err != nil {
			s.logger.Warn("Receipt archive failed",
				zap.String("receipt_number", receipt.Number), zap.Error(err))
		} else {
			receipt.AttachPDF(key)
			if url, _, err := s.archive.DownloadURL(ctx, key); err == nil {
				downloadURL = url
			}
		}
	}

	switch {
	case receipt.DonorEmail == "":
		// nothing to send; the receipt stays generated
	case s.mailer == nil:
		receipt.MarkFailed("mailer not configured")
	default:
		msg, err := email.ReceiptEmail{
			OrganizationName: s.org.Name,
			DonorName:        receipt.DonorName,
			Number:           receipt.Number,
			Amount:           receipt.Amount,
			TaxReduction:     tx.TaxReduction,
			Fiscal:           receipt.Fiscal,
			PaidAt:           paidAt,
			DownloadURL:      downloadURL,
		}.Render(receipt.DonorEmail)
		if err == nil {
			if pdf != nil {
				msg.Attachments = []email.Attachment{{
					Filename:    receipt.Number + ".pdf",
					ContentType: "application/pdf",
					Data:        pdf,
				}}
			}
			err = s.mailer.Send(ctx, msg)
		}
		if err != nil {
			s.logger.Warn("Receipt email failed",
				zap.String("receipt_number", receipt.Number), zap.Error(err))
			receipt.MarkFailed(err.Error())
		} else {
			receipt.MarkSent(s.now())
		}
	}

	if err := s.receipts.Update(ctx, receipt); err != nil {
		s.logger.Error("Failed to save receipt delivery status",
			zap.String("receipt_number", receipt.Number), zap.Error(err))
	}
	s.metrics.ReceiptIssued(ctx, string(receipt.Status))
}

func (s *ReceiptService) document(tx *donation.SupportTransaction, receipt *donation.Receipt, paidAt time.Time) printing.ReceiptDocument {
	return printing.ReceiptDocument{
		OrganizationName: s.org.Name,
		OrganizationAddr: s.org.Address,
		Signatory:        s.org.Signatory,
		Number:           receipt.Number,
		DonorName:        receipt.DonorName,
		DonorEmail:       receipt.DonorEmail,
		Amount:           receipt.Amount,
		TaxReduction:     tx.TaxReduction,
		Fiscal:           receipt.Fiscal,
		PaymentMethod:    string(tx.PaymentMethod),
		PaidAt:           paidAt,
		IssuedAt:         s.now(),
	}
}

// ResendReceipt delivers an existing receipt again. Only the collector who
// recorded the transaction may resend it.
func (s *ReceiptService) ResendReceipt(ctx context.Context, userID, receiptID uuid.UUID) (*donation.Receipt, error) {
	receipt, err := s.receipts.FindByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	tx, err := s.transactions.FindByID(ctx, receipt.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.UserID == nil || *tx.UserID != userID {
		return nil, shared.ErrNotFound
	}
	if receipt.DonorEmail == "" {
		return nil, ErrNoDonorEmail
	}
	s.Deliver(ctx, tx, receipt)
	return receipt, nil
}
