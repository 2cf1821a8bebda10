package donation

import (
	"context"
	"time"

	"github.com/amicale-sp/calendriers/internal/infrastructure/email"
	"github.com/amicale-sp/calendriers/internal/infrastructure/printing"
)

// Mailer delivers outgoing email.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

// ReceiptPDFRenderer turns a receipt document into a PDF.
type ReceiptPDFRenderer interface {
	RenderReceipt(ctx context.Context, doc printing.ReceiptDocument) ([]byte, error)
}

// ReceiptArchive stores rendered receipts.
type ReceiptArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}
