package payment

import (
	"context"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/stripe/stripe-go/v81"
)

// StripeGateway is the subset of the Stripe API the payment flows use.
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutSessionRequest) (*payment.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, req payment.PaymentIntentRequest) (*payment.PaymentIntentHandle, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	GetCharge(ctx context.Context, id string) (*stripe.Charge, error)
}

// HelloAssoGateway opens HelloAsso checkouts.
type HelloAssoGateway interface {
	CreateCheckoutIntent(ctx context.Context, req payment.HelloAssoCheckoutRequest) (*payment.HelloAssoCheckout, error)
}

// ReceiptIssuer issues receipts for persisted transactions.
type ReceiptIssuer interface {
	IssueForTransaction(ctx context.Context, tx *donation.SupportTransaction) (*donation.Receipt, error)
}
