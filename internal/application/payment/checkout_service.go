package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/amicale-sp/calendriers/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutInput is a card donation request.
type CheckoutInput struct {
	Amount           string
	CalendarAccepted bool
	DonorName        string
	DonorEmail       string
}

// CheckoutResult points the donor to a hosted payment page.
type CheckoutResult struct {
	CardPaymentID *uuid.UUID `json:"card_payment_id,omitempty"`
	ProviderRef   string     `json:"provider_ref"`
	URL           string     `json:"url"`
}

// IntentResult is returned to the collector's terminal to confirm a card payment.
type IntentResult struct {
	DonationIntentID uuid.UUID `json:"donation_intent_id"`
	PaymentIntentID  string    `json:"payment_intent_id"`
	ClientSecret     string    `json:"client_secret"`
}

// CheckoutService opens card payments with Stripe and HelloAsso and applies
// HelloAsso notifications.
type CheckoutService struct {
	stripe       StripeGateway
	helloAsso    HelloAssoGateway
	tournees     donation.TourneeRepository
	cardPayments donation.CardPaymentRepository
	intents      donation.DonationIntentRepository
	transactions donation.TransactionRepository
	webhookLog   donation.WebhookEventRepository
	receipts     ReceiptIssuer
	claims       claims
	siteURL      string
	currency     string
	metrics      *telemetry.DonationMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// CheckoutServiceConfig contains the dependencies of CheckoutService.
// HelloAsso is nil when the integration is disabled.
type CheckoutServiceConfig struct {
	Stripe         StripeGateway
	HelloAsso      HelloAssoGateway
	Tournees       donation.TourneeRepository
	CardPayments   donation.CardPaymentRepository
	Intents        donation.DonationIntentRepository
	Transactions   donation.TransactionRepository
	WebhookLog     donation.WebhookEventRepository
	Receipts       ReceiptIssuer
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	SiteURL        string
	Currency       string
	Metrics        *telemetry.DonationMetrics
	Logger         *zap.Logger
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(cfg CheckoutServiceConfig) *CheckoutService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutService{
		stripe:       cfg.Stripe,
		helloAsso:    cfg.HelloAsso,
		tournees:     cfg.Tournees,
		cardPayments: cfg.CardPayments,
		intents:      cfg.Intents,
		transactions: cfg.Transactions,
		webhookLog:   cfg.WebhookLog,
		receipts:     cfg.Receipts,
		claims:       newClaims(cfg.Idempotency, cfg.IdempotencyTTL, log),
		siteURL:      strings.TrimRight(cfg.SiteURL, "/"),
		currency:     cfg.Currency,
		metrics:      cfg.Metrics,
		logger:       log,
		now:          time.Now,
	}
}

type validCheckout struct {
	amount   decimal.Decimal
	calendar bool
	donor    donation.DonorIdentity
}

func (in CheckoutInput) validate() (*validCheckout, error) {
	amount, err := donation.ParseAmount(in.Amount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", donation.MsgAmountNotNumeric)
	}
	if !amount.IsPositive() || amount.GreaterThan(donation.MaxDonationAmount) {
		return nil, shared.NewDomainError("INVALID_INPUT", donation.MsgAmountOutOfRange)
	}
	donor := donation.DonorIdentity{Name: in.DonorName, Email: in.DonorEmail}.Normalize()
	if donor.Email != "" && !donation.IsEmailShaped(donor.Email) {
		return nil, shared.NewDomainError("INVALID_INPUT", donation.MsgEmailInvalid)
	}
	return &validCheckout{amount: amount.Round(2), calendar: in.CalendarAccepted, donor: donor}, nil
}

func productName(calendar bool) string {
	if calendar {
		return "Soutien - calendrier des sapeurs-pompiers"
	}
	return "Don aux sapeurs-pompiers"
}

func (v *validCheckout) metadata(source donation.Source) map[string]string {
	meta := map[string]string{
		MetaSource:           string(source),
		MetaCalendarAccepted: strconv.FormatBool(v.calendar),
	}
	if v.donor.Name != "" {
		meta[MetaDonorName] = v.donor.Name
	}
	if v.donor.Email != "" {
		meta[MetaDonorEmail] = v.donor.Email
	}
	return meta
}

// CreateLandingCheckout opens a Checkout Session for a public donation.
func (s *CheckoutService) CreateLandingCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	v, err := in.validate()
	if err != nil {
		return nil, err
	}
	sess, err := s.stripe.CreateCheckoutSession(ctx, payment.CheckoutSessionRequest{
		AmountCents:    donation.ToMinorUnits(v.amount),
		Currency:       s.currency,
		ProductName:    productName(v.calendar),
		CustomerEmail:  v.donor.Email,
		SuccessURL:     s.siteURL + "/merci?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.siteURL + "/",
		Metadata:       v.metadata(donation.SourceLandingPage),
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExternalFailed, err)
	}
	s.logger.Info("Landing checkout created",
		zap.String("session_id", sess.ID), zap.String("amount", v.amount.String()))
	return &CheckoutResult{ProviderRef: sess.ID, URL: sess.URL}, nil
}

// CreateTourneeCheckout records a pending card payment on an active round
// and opens the matching Checkout Session.
func (s *CheckoutService) CreateTourneeCheckout(ctx context.Context, userID, tourneeID uuid.UUID, in CheckoutInput) (*CheckoutResult, error) {
	v, err := in.validate()
	if err != nil {
		return nil, err
	}
	tournee, err := s.tournees.FindActiveForUser(ctx, tourneeID, userID)
	if err != nil {
		return nil, err
	}
	card, err := donation.NewCardPayment(tournee.ID, userID, donation.ProviderStripe, v.amount, v.calendar)
	if err != nil {
		return nil, err
	}

	meta := v.metadata(donation.SourceStripeCheckout)
	meta[MetaTourneeID] = tournee.ID.String()
	meta[MetaCardPaymentID] = card.ID.String()

	sess, err := s.stripe.CreateCheckoutSession(ctx, payment.CheckoutSessionRequest{
		AmountCents:    donation.ToMinorUnits(v.amount),
		Currency:       s.currency,
		ProductName:    productName(v.calendar),
		CustomerEmail:  v.donor.Email,
		SuccessURL:     fmt.Sprintf("%s/tournees/%s?paiement=ok", s.siteURL, tournee.ID),
		CancelURL:      fmt.Sprintf("%s/tournees/%s?paiement=annule", s.siteURL, tournee.ID),
		Metadata:       meta,
		IdempotencyKey: card.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExternalFailed, err)
	}
	card.AttachProviderRef(sess.ID)
	card.PayerName = v.donor.Name
	card.PayerEmail = v.donor.Email
	if err := s.cardPayments.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create card payment: %w", err)
	}

	s.logger.Info("Tournee checkout created",
		zap.String("tournee_id", tournee.ID.String()),
		zap.String("card_payment_id", card.ID.String()),
		zap.String("session_id", sess.ID))
	return &CheckoutResult{CardPaymentID: &card.ID, ProviderRef: sess.ID, URL: sess.URL}, nil
}

// CreateDonationIntent records a pending intent and the Stripe PaymentIntent
// the collector's terminal confirms.
func (s *CheckoutService) CreateDonationIntent(ctx context.Context, userID, tourneeID uuid.UUID, in CheckoutInput) (*IntentResult, error) {
	v, err := in.validate()
	if err != nil {
		return nil, err
	}
	tournee, err := s.tournees.FindActiveForUser(ctx, tourneeID, userID)
	if err != nil {
		return nil, err
	}
	intent, err := donation.NewDonationIntent(tournee.ID, userID, v.amount, v.calendar, v.donor)
	if err != nil {
		return nil, err
	}

	meta := v.metadata(donation.SourcePaymentIntent)
	meta[MetaTourneeID] = tournee.ID.String()
	meta[MetaDonationIntentID] = intent.ID.String()

	handle, err := s.stripe.CreatePaymentIntent(ctx, payment.PaymentIntentRequest{
		AmountCents:    donation.ToMinorUnits(v.amount),
		Currency:       s.currency,
		Description:    productName(v.calendar),
		ReceiptEmail:   v.donor.Email,
		Metadata:       meta,
		IdempotencyKey: intent.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExternalFailed, err)
	}
	intent.AttachPaymentIntent(handle.ID)
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("create donation intent: %w", err)
	}

	s.logger.Info("Donation intent created",
		zap.String("donation_intent_id", intent.ID.String()),
		zap.String("payment_intent_id", handle.ID))
	return &IntentResult{
		DonationIntentID: intent.ID,
		PaymentIntentID:  handle.ID,
		ClientSecret:     handle.ClientSecret,
	}, nil
}

// CreateHelloAssoCheckout records a pending card payment and opens a
// HelloAsso checkout intent for it.
func (s *CheckoutService) CreateHelloAssoCheckout(ctx context.Context, userID, tourneeID uuid.UUID, in CheckoutInput) (*CheckoutResult, error) {
	if s.helloAsso == nil {
		return nil, payment.ErrHelloAssoDisabled
	}
	v, err := in.validate()
	if err != nil {
		return nil, err
	}
	tournee, err := s.tournees.FindActiveForUser(ctx, tourneeID, userID)
	if err != nil {
		return nil, err
	}
	card, err := donation.NewCardPayment(tournee.ID, userID, donation.ProviderHelloAsso, v.amount, v.calendar)
	if err != nil {
		return nil, err
	}

	req := payment.HelloAssoCheckoutRequest{
		TotalAmount:      donation.ToMinorUnits(v.amount),
		ItemName:         productName(v.calendar),
		BackURL:          fmt.Sprintf("%s/tournees/%s", s.siteURL, tournee.ID),
		ErrorURL:         fmt.Sprintf("%s/tournees/%s?paiement=erreur", s.siteURL, tournee.ID),
		ReturnURL:        fmt.Sprintf("%s/tournees/%s?paiement=ok", s.siteURL, tournee.ID),
		ContainsDonation: !v.calendar,
		Metadata: map[string]string{
			MetaCardPaymentID: card.ID.String(),
			MetaTourneeID:     tournee.ID.String(),
		},
	}
	if v.donor.Email != "" || v.donor.Name != "" {
		name := donation.ParseFullName(v.donor.Name)
		req.Payer = &payment.HelloAssoPayer{FirstName: name.First, LastName: name.Last, Email: v.donor.Email}
	}

	checkout, err := s.helloAsso.CreateCheckoutIntent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrExternalFailed, err)
	}
	card.AttachProviderRef(strconv.FormatInt(checkout.ID, 10))
	card.PayerName = v.donor.Name
	card.PayerEmail = v.donor.Email
	if err := s.cardPayments.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create card payment: %w", err)
	}
	return &CheckoutResult{CardPaymentID: &card.ID, ProviderRef: card.ProviderRef, URL: checkout.RedirectURL}, nil
}
