package handler

import (
	"context"

	donationapp "github.com/amicale-sp/calendriers/internal/application/donation"
	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
)

// DonationSubmitter records field donations.
type DonationSubmitter interface {
	SubmitDonation(ctx context.Context, userID uuid.UUID, form donation.DonationForm) (*donationapp.SubmitResult, error)
}

// TourneeManager manages a collector's rounds.
type TourneeManager interface {
	StartTournee(ctx context.Context, userID uuid.UUID, in donationapp.StartTourneeInput) (*donation.Tournee, error)
	GetTournee(ctx context.Context, userID, id uuid.UUID) (*donation.Tournee, error)
	ListTournees(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[donation.Tournee], error)
	TourneeSummary(ctx context.Context, userID, id uuid.UUID) (*donation.TourneeTotals, error)
	ListTransactions(ctx context.Context, userID, id uuid.UUID, filter shared.Filter) (shared.Paginated[donation.SupportTransaction], error)
	CloseTournee(ctx context.Context, userID, tourneeID uuid.UUID, form donation.ClosureForm) (*donationapp.CloseResult, error)
}

// ReceiptResender sends an existing receipt again.
type ReceiptResender interface {
	ResendReceipt(ctx context.Context, userID, receiptID uuid.UUID) (*donation.Receipt, error)
}

// CheckoutCreator opens card payments.
type CheckoutCreator interface {
	CreateLandingCheckout(ctx context.Context, in paymentapp.CheckoutInput) (*paymentapp.CheckoutResult, error)
	CreateTourneeCheckout(ctx context.Context, userID, tourneeID uuid.UUID, in paymentapp.CheckoutInput) (*paymentapp.CheckoutResult, error)
	CreateDonationIntent(ctx context.Context, userID, tourneeID uuid.UUID, in paymentapp.CheckoutInput) (*paymentapp.IntentResult, error)
	CreateHelloAssoCheckout(ctx context.Context, userID, tourneeID uuid.UUID, in paymentapp.CheckoutInput) (*paymentapp.CheckoutResult, error)
}

// StripeWebhookProcessor applies verified Stripe events.
type StripeWebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error)
}

// HelloAssoNotificationProcessor applies HelloAsso notifications.
type HelloAssoNotificationProcessor interface {
	HandleHelloAssoNotification(ctx context.Context, payload []byte) (*paymentapp.WebhookResult, error)
}
