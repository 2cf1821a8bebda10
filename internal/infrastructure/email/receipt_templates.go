package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/amicale-sp/calendriers/internal/infrastructure/format"
	"github.com/shopspring/decimal"
)

//go:embed templates/*
var templateFS embed.FS

var funcs = map[string]any{
	"eur":    format.EUR,
	"dateFR": format.DateFR,
}

var (
	receiptHTML = htmltemplate.Must(htmltemplate.New("receipt.html").Funcs(htmltemplate.FuncMap(funcs)).
			ParseFS(templateFS, "templates/receipt.html"))
	receiptText = texttemplate.Must(texttemplate.New("receipt.txt").Funcs(texttemplate.FuncMap(funcs)).
			ParseFS(templateFS, "templates/receipt.txt"))
)

// ReceiptEmail is the data rendered into a receipt email.
type ReceiptEmail struct {
	OrganizationName string
	DonorName        string
	Number           string
	Amount           decimal.Decimal
	TaxReduction     decimal.Decimal
	Fiscal           bool
	PaidAt           time.Time
	DownloadURL      string
}

// Subject returns the mail subject line.
func (r ReceiptEmail) Subject() string {
	if r.Fiscal {
		return fmt.Sprintf("Votre reçu fiscal n° %s - %s", r.Number, r.OrganizationName)
	}
	return fmt.Sprintf("Merci pour votre soutien - %s", r.OrganizationName)
}

// Render produces a complete message for the receipt.
func (r ReceiptEmail) Render(to string) (Message, error) {
	var html, text bytes.Buffer
	if err := receiptHTML.Execute(&html, r); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	if err := receiptText.Execute(&text, r); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{
		To:      to,
		Subject: r.Subject(),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
