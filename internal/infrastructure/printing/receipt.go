package printing

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/amicale-sp/calendriers/internal/infrastructure/format"
	"github.com/shopspring/decimal"
)

//go:embed templates/receipt.html
var templateFS embed.FS

var receiptTemplate = template.Must(
	template.New("receipt.html").
		Funcs(template.FuncMap{"eur": format.EUR, "dateFR": format.DateFR}).
		ParseFS(templateFS, "templates/receipt.html"),
)

// ReceiptDocument is everything printed on a receipt.
type ReceiptDocument struct {
	OrganizationName string
	OrganizationAddr string
	Signatory        string
	Number           string
	DonorName        string
	DonorEmail       string
	Amount           decimal.Decimal
	TaxReduction     decimal.Decimal
	Fiscal           bool
	PaymentMethod    string
	PaidAt           time.Time
	IssuedAt         time.Time
}

// ReceiptHTML renders the receipt document to HTML.
func ReceiptHTML(doc ReceiptDocument) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, doc); err != nil {
		return "", NewRenderError(ErrCodeTemplate, "failed to render receipt template", err)
	}
	return buf.String(), nil
}

// ReceiptRenderer produces receipt PDFs.
type ReceiptRenderer struct {
	html HTMLRenderer
}

// NewReceiptRenderer creates a ReceiptRenderer on top of an HTML renderer.
func NewReceiptRenderer(html HTMLRenderer) *ReceiptRenderer {
	return &ReceiptRenderer{html: html}
}

// RenderReceipt returns the PDF bytes for doc.
func (r *ReceiptRenderer) RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error) {
	html, err := ReceiptHTML(doc)
	if err != nil {
		return nil, err
	}
	res, err := r.html.Render(ctx, &RenderRequest{HTML: html, Title: "Reçu " + doc.Number})
	if err != nil {
		return nil, err
	}
	return res.PDFData, nil
}
