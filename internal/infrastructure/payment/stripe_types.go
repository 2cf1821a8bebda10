package payment

import "time"

// CheckoutSessionRequest describes a one-off Stripe Checkout donation.
type CheckoutSessionRequest struct {
	AmountCents    int64
	Currency       string
	ProductName    string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// CheckoutSession is the part of a created session the caller needs.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// PaymentIntentRequest describes an in-person card payment collected
// through a PaymentIntent.
type PaymentIntentRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntentHandle is returned to the client to confirm the payment.
type PaymentIntentHandle struct {
	ID           string
	ClientSecret string
	Status       string
}
