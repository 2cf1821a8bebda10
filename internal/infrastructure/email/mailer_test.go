package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMailer(t *testing.T, send sendFunc) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(config.EmailConfig{
		Host:     "smtp.example.fr",
		Port:     587,
		Username: "user",
		Password: "secret",
		From:     "Amicale <recus@amicale.fr>",
		ReplyTo:  "tresorier@amicale.fr",
	}, nil)
	require.NoError(t, err)
	m.send = send
	return m
}

func TestNewSMTPMailer_Validation(t *testing.T) {
	_, err := NewSMTPMailer(config.EmailConfig{From: "a@b.fr"}, nil)
	assert.Error(t, err)
	_, err = NewSMTPMailer(config.EmailConfig{Host: "localhost"}, nil)
	assert.Error(t, err)

	m, err := NewSMTPMailer(config.EmailConfig{Host: "localhost", Port: 1025, From: "a@b.fr"}, nil)
	require.NoError(t, err)
	assert.Nil(t, m.auth)
	assert.Equal(t, "localhost:1025", m.addr)
}

func TestSMTPMailer_Send(t *testing.T) {
	var sent *email.Email
	var gotAddr string
	m := newTestMailer(t, func(e *email.Email, addr string, _ smtp.Auth) error {
		sent = e
		gotAddr = addr
		return nil
	})

	err := m.Send(context.Background(), Message{
		To:      " jean@example.fr ",
		Subject: "Reçu",
		Text:    "merci",
		HTML:    "<p>merci</p>",
		Attachments: []Attachment{{
			Filename: "2026-000001.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4"),
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.fr:587", gotAddr)
	assert.Equal(t, []string{"jean@example.fr"}, sent.To)
	assert.Equal(t, []string{"tresorier@amicale.fr"}, sent.ReplyTo)
	assert.Equal(t, "Reçu", sent.Subject)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "2026-000001.pdf", sent.Attachments[0].Filename)
}

func TestSMTPMailer_SendErrors(t *testing.T) {
	m := newTestMailer(t, func(*email.Email, string, smtp.Auth) error {
		return errors.New("connection refused")
	})

	err := m.Send(context.Background(), Message{To: ""})
	assert.ErrorIs(t, err, ErrNoRecipient)

	err = m.Send(context.Background(), Message{To: "a@b.fr", Subject: "x", Text: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNoopMailer(t *testing.T) {
	assert.NoError(t, NewNoopMailer(nil).Send(context.Background(), Message{Subject: "x"}))
}

func TestReceiptEmail_Render(t *testing.T) {
	paid := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

	t.Run("fiscal", func(t *testing.T) {
		msg, err := ReceiptEmail{
			OrganizationName: "Amicale des Sapeurs-Pompiers",
			DonorName:        "Jean Dupont",
			Number:           "2026-000042",
			Amount:           decimal.RequireFromString("50"),
			TaxReduction:     decimal.RequireFromString("33"),
			Fiscal:           true,
			PaidAt:           paid,
		}.Render("jean@example.fr")
		require.NoError(t, err)
		assert.Equal(t, "jean@example.fr", msg.To)
		assert.Contains(t, msg.Subject, "2026-000042")
		assert.Contains(t, msg.HTML, "50,00 €")
		assert.Contains(t, msg.HTML, "33,00 €")
		assert.Contains(t, msg.Text, "15 mars 2026")
		assert.Contains(t, msg.Text, "Réduction d'impôt estimée")
	})

	t.Run("soutien", func(t *testing.T) {
		msg, err := ReceiptEmail{
			OrganizationName: "Amicale",
			DonorName:        "<b>Marie</b>",
			Number:           "2026-000043",
			Amount:           decimal.RequireFromString("10"),
			PaidAt:           paid,
			DownloadURL:      "https://files.example.fr/r.pdf",
		}.Render("marie@example.fr")
		require.NoError(t, err)
		assert.Equal(t, "Merci pour votre soutien - Amicale", msg.Subject)
		assert.NotContains(t, msg.HTML, "réduction d'impôt")
		assert.NotContains(t, msg.HTML, "<b>Marie</b>")
		assert.Contains(t, msg.HTML, "&lt;b&gt;Marie&lt;/b&gt;")
		assert.Contains(t, msg.Text, "https://files.example.fr/r.pdf")
	})
}
