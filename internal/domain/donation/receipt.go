package donation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultReceiptThreshold is the minimum amount for which a receipt is issued.
var DefaultReceiptThreshold = decimal.NewFromInt(6)

// ReceiptStatus tracks delivery of a receipt.
type ReceiptStatus string

const (
	ReceiptStatusGenerated ReceiptStatus = "generated"
	ReceiptStatusSent      ReceiptStatus = "sent"
	ReceiptStatusFailed    ReceiptStatus = "failed"
)

// Receipt is a numbered acknowledgement of a donation.
type Receipt struct {
	shared.BaseEntity
	TransactionID uuid.UUID
	Number        string
	Sequence      int64
	FiscalYear    int
	Amount        decimal.Decimal
	Fiscal        bool
	DonorName     string
	DonorEmail    string
	Status        ReceiptStatus
	PDFKey        string
	SentAt        *time.Time
	LastError     string
}

// ParseReceiptSequence extracts the numeric sequence from a database-issued
// receipt number. "2026-000042" yields 42; a bare "17" yields 17.
func ParseReceiptSequence(number string) (int64, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return 0, fmt.Errorf("empty receipt number")
	}
	suffix := number
	if i := strings.LastIndexAny(number, "-/"); i >= 0 {
		suffix = number[i+1:]
	}
	seq, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("malformed receipt number %q", number)
	}
	return seq, nil
}

// receiptYear reads the leading year of a number like "2026-000042".
func receiptYear(number string, fallback time.Time) int {
	if i := strings.IndexAny(number, "-/"); i == 4 {
		if y, err := strconv.Atoi(number[:i]); err == nil {
			return y
		}
	}
	return fallback.Year()
}

// NewReceipt binds a database-issued number to a persisted transaction.
func NewReceipt(tx *SupportTransaction, number string) (*Receipt, error) {
	seq, err := ParseReceiptSequence(number)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: tx.ID,
		Number:        strings.TrimSpace(number),
		Sequence:      seq,
		FiscalYear:    receiptYear(number, tx.CreatedAt),
		Amount:        tx.Amount,
		Fiscal:        tx.IsFiscal(),
		DonorName:     tx.Supporter.FullName(),
		DonorEmail:    tx.Supporter.Email,
		Status:        ReceiptStatusGenerated,
	}, nil
}

// ArchiveKey is the object storage key of the receipt PDF.
func (r *Receipt) ArchiveKey() string {
	return fmt.Sprintf("receipts/%d/%s.pdf", r.FiscalYear, r.Number)
}

// AttachPDF records where the rendered PDF was archived.
func (r *Receipt) AttachPDF(key string) {
	r.PDFKey = key
	r.Touch()
}

// MarkSent records a successful delivery.
func (r *Receipt) MarkSent(at time.Time) {
	r.Status = ReceiptStatusSent
	r.SentAt = &at
	r.LastError = ""
	r.Touch()
}

// MarkFailed records a failed delivery attempt.
func (r *Receipt) MarkFailed(reason string) {
	r.Status = ReceiptStatusFailed
	r.LastError = reason
	r.Touch()
}
