package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/logger"
	"github.com/amicale-sp/calendriers/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrSignatureVerification is returned when a payload fails the Stripe
// signature check. Nothing is persisted in that case.
var ErrSignatureVerification = errors.New("webhook signature verification failed")

// Webhook outcomes reported in WebhookResult.Message and metrics.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Kind      string `json:"kind"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// StripeWebhookService applies Stripe notifications to local records.
type StripeWebhookService struct {
	webhookSecret string
	gateway       StripeGateway
	transactions  donation.TransactionRepository
	intents       donation.DonationIntentRepository
	cardPayments  donation.CardPaymentRepository
	webhookLog    donation.WebhookEventRepository
	receipts      ReceiptIssuer
	claims        claims
	metrics       *telemetry.DonationMetrics
	logger        *zap.Logger
	now           func() time.Time
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	WebhookSecret  string
	Gateway        StripeGateway
	Transactions   donation.TransactionRepository
	Intents        donation.DonationIntentRepository
	CardPayments   donation.CardPaymentRepository
	WebhookLog     donation.WebhookEventRepository
	Receipts       ReceiptIssuer
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *telemetry.DonationMetrics
	Logger         *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &StripeWebhookService{
		webhookSecret: cfg.WebhookSecret,
		gateway:       cfg.Gateway,
		transactions:  cfg.Transactions,
		intents:       cfg.Intents,
		cardPayments:  cfg.CardPayments,
		webhookLog:    cfg.WebhookLog,
		receipts:      cfg.Receipts,
		claims:        newClaims(cfg.Idempotency, cfg.IdempotencyTTL, log),
		metrics:       cfg.Metrics,
		logger:        log,
		now:           time.Now,
	}
}

// ProcessWebhook verifies and applies one Stripe event. Only a signature
// failure is returned as an error; handler failures are logged and reported
// in the result so the provider receives an acknowledgement.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	start := time.Now()

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		s.metrics.WebhookHandled(ctx, "stripe", "invalid", "rejected", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}

	kind := donation.ClassifyEvent(string(event.Type))
	ctx = logger.WithEventID(ctx, event.ID)
	ctx, span := telemetry.StartServiceSpan(ctx, "StripeWebhookService", "ProcessWebhook",
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", string(event.Type)))
	defer span.End()

	log := logger.WithLogger(ctx, s.logger)
	log.Info("Processing Stripe webhook event",
		zap.String("event_type", string(event.Type)),
		zap.String("kind", kind.String()))

	s.appendLog(ctx, event.ID, string(event.Type), payload)

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Kind:      kind.String(),
		Processed: true,
	}

	var outcome string
	switch kind {
	case donation.EventKindCheckoutSessionCompleted:
		outcome, err = s.handleCheckoutSessionCompleted(ctx, event)
	case donation.EventKindPaymentIntentSucceeded:
		outcome, err = s.handlePaymentIntentSucceeded(ctx, event)
	case donation.EventKindChargeSucceeded:
		outcome, err = s.handleChargeSucceeded(ctx, event)
	case donation.EventKindCheckoutSessionExpired:
		outcome, err = s.handleCheckoutSessionExpired(ctx, event)
	case donation.EventKindPaymentIntentFailed:
		outcome, err = s.handlePaymentIntentFailed(ctx, event)
	case donation.EventKindUnhandled:
		log.Info("Unhandled webhook event type, acknowledged",
			zap.String("event_type", string(event.Type)))
		outcome = OutcomeIgnored
	}

	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Failed to process webhook event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		outcome = OutcomeFailed
		result.Processed = false
		result.Message = err.Error()
	} else {
		result.Message = outcome
	}
	s.metrics.WebhookHandled(ctx, "stripe", kind.String(), outcome, time.Since(start))
	return result, nil
}

func (s *StripeWebhookService) appendLog(ctx context.Context, eventID, eventType string, payload []byte) {
	if s.webhookLog == nil {
		return
	}
	entry := donation.NewWebhookEvent(donation.ProviderStripe, eventID, eventType, payload)
	if err := s.webhookLog.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append webhook log", zap.String("event_id", eventID), zap.Error(err))
	}
}

// handleCheckoutSessionCompleted records a paid Checkout Session.
func (s *StripeWebhookService) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) (string, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	if sess.ID == "" {
		return "", fmt.Errorf("checkout session has no id")
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logger.Info("Checkout session completed without payment yet",
			zap.String("session_id", sess.ID))
		return OutcomeIgnored, nil
	}

	key := "stripe:checkout_session:" + sess.ID
	if !s.claims.take(ctx, key) {
		s.logger.Info("Checkout session already claimed", zap.String("session_id", sess.ID))
		return OutcomeDuplicate, nil
	}
	exists, err := s.transactions.ExistsByStripeSessionID(ctx, sess.ID)
	if err != nil {
		s.claims.release(ctx, key)
		return "", fmt.Errorf("failed to check session: %w", err)
	}
	if exists {
		s.logger.Info("Checkout session already recorded", zap.String("session_id", sess.ID))
		return OutcomeDuplicate, nil
	}

	identity, lookupErr := donation.ResolveIdentity(ctx, checkoutSessionIdentity(&sess)...)
	if lookupErr != nil {
		s.logger.Warn("Donor identity lookup incomplete", zap.Error(lookupErr))
	}

	params := donation.NewTransactionParams{
		Amount:           donation.AmountFromMinorUnits(sess.AmountTotal),
		PaymentMethod:    donation.PaymentMethodCard,
		CalendarAccepted: metaBool(sess.Metadata, MetaCalendarAccepted),
		Supporter:        identity.Supporter(),
		ConsentEmail:     identity.Email != "",
		StripeSessionID:  sess.ID,
		Source:           donation.SourceLandingPage,
	}
	if sess.PaymentIntent != nil {
		params.PaymentIntentID = sess.PaymentIntent.ID
	}

	var card *donation.CardPayment
	if id, ok := metaUUID(sess.Metadata, MetaCardPaymentID); ok {
		card, err = s.cardPayments.FindByID(ctx, id)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			s.logger.Warn("Card payment referenced by session not found",
				zap.String("session_id", sess.ID), zap.String("card_payment_id", id.String()))
			card = nil
		case err != nil:
			s.claims.release(ctx, key)
			return "", fmt.Errorf("failed to load card payment: %w", err)
		}
	}
	if card != nil {
		params.TourneeID = &card.TourneeID
		params.UserID = &card.UserID
		params.CalendarAccepted = card.CalendarAccepted
		params.CardPaymentID = &card.ID
		params.Source = donation.SourceStripeCheckout
	}

	tx, err := donation.NewSupportTransaction(params)
	if err != nil {
		s.claims.release(ctx, key)
		return "", err
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return OutcomeDuplicate, nil
		}
		s.claims.release(ctx, key)
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	s.metrics.DonationRecorded(ctx, string(tx.Source), string(tx.PaymentMethod), string(tx.TransactionType), tx.Amount)

	s.logger.Info("Checkout donation recorded",
		zap.String("session_id", sess.ID),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("amount", tx.Amount.String()))

	if card != nil {
		s.completeCardPayment(ctx, card, identity, tx.ID)
	}
	s.issueReceipt(ctx, tx)
	return OutcomeProcessed, nil
}

func (s *StripeWebhookService) completeCardPayment(ctx context.Context, card *donation.CardPayment, identity donation.DonorIdentity, txID uuid.UUID) {
	fromStatus := card.Status
	if err := card.Complete(identity, txID, s.now()); err != nil {
		s.logger.Info("Card payment already completed", zap.String("card_payment_id", card.ID.String()))
		return
	}
	if err := s.cardPayments.Update(ctx, card, fromStatus); err != nil {
		s.logger.Warn("Failed to complete card payment",
			zap.String("card_payment_id", card.ID.String()), zap.Error(err))
	}
}

func (s *StripeWebhookService) issueReceipt(ctx context.Context, tx *donation.SupportTransaction) {
	if s.receipts == nil {
		return
	}
	if _, err := s.receipts.IssueForTransaction(ctx, tx); err != nil {
		s.logger.Warn("Receipt issuance failed, donation kept",
			zap.String("transaction_id", tx.ID.String()), zap.Error(err))
	}
}

// handlePaymentIntentSucceeded completes the donation intent named in the
// payment intent metadata.
func (s *StripeWebhookService) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) (string, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return "", fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	sources := append(
		[]donation.IdentitySource{metadataIdentity(pi.Metadata)},
		append(paymentIntentBillingIdentity(event.Data.Raw, &pi), s.liveIdentity(&pi)...)...,
	)
	return s.completeIntent(ctx, &pi, sources)
}

// handleChargeSucceeded recovers the payment intent of a charge and
// completes its donation intent, preferring the charge's billing details.
func (s *StripeWebhookService) handleChargeSucceeded(ctx context.Context, event stripe.Event) (string, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return "", fmt.Errorf("failed to unmarshal charge: %w", err)
	}
	if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
		s.logger.Info("Charge without payment intent, ignored", zap.String("charge_id", ch.ID))
		return OutcomeIgnored, nil
	}
	pi, err := s.gateway.GetPaymentIntent(ctx, ch.PaymentIntent.ID)
	if err != nil {
		return "", err
	}
	sources := []donation.IdentitySource{
		chargeIdentity("charge_billing_details", &ch),
		metadataIdentity(pi.Metadata),
	}
	sources = append(sources, s.liveIdentity(pi)...)
	return s.completeIntent(ctx, pi, sources)
}

func (s *StripeWebhookService) completeIntent(ctx context.Context, pi *stripe.PaymentIntent, sources []donation.IdentitySource) (string, error) {
	intentID, ok := metaUUID(pi.Metadata, MetaDonationIntentID)
	if !ok {
		s.logger.Debug("Payment intent not linked to a donation intent", zap.String("payment_intent_id", pi.ID))
		return OutcomeIgnored, nil
	}
	intent, err := s.intents.FindByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Donation intent not found", zap.String("donation_intent_id", intentID.String()))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("failed to load donation intent: %w", err)
	}
	if intent.IsCompleted() {
		return OutcomeDuplicate, nil
	}
	fromStatus := intent.Status
	if fromStatus != donation.IntentStatusWaitingDonor {
		s.logger.Info("Payment received on a closed donation intent, reopening",
			zap.String("donation_intent_id", intent.ID.String()),
			zap.String("status", string(fromStatus)))
	}

	key := "stripe:payment_intent:" + pi.ID
	if !s.claims.take(ctx, key) {
		return OutcomeDuplicate, nil
	}
	exists, err := s.transactions.ExistsByPaymentIntentID(ctx, pi.ID)
	if err != nil {
		s.claims.release(ctx, key)
		return "", fmt.Errorf("failed to check payment intent: %w", err)
	}
	if exists {
		return OutcomeDuplicate, nil
	}

	sources = append(sources,
		donation.StaticIdentity("receipt_email", donation.DonorIdentity{Email: pi.ReceiptEmail}),
		donation.StaticIdentity("intent", donation.DonorIdentity{Name: intent.DonorName, Email: intent.DonorEmail}),
	)
	identity, lookupErr := donation.ResolveIdentity(ctx, sources...)
	if lookupErr != nil {
		s.logger.Warn("Donor identity lookup incomplete",
			zap.String("payment_intent_id", pi.ID), zap.Error(lookupErr))
	}

	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	tx, err := donation.NewSupportTransaction(donation.NewTransactionParams{
		UserID:           &intent.UserID,
		TourneeID:        &intent.TourneeID,
		Amount:           donation.AmountFromMinorUnits(amount),
		PaymentMethod:    donation.PaymentMethodCard,
		CalendarAccepted: intent.CalendarAccepted,
		Supporter:        identity.Supporter(),
		ConsentEmail:     identity.Email != "",
		PaymentIntentID:  pi.ID,
		Source:           donation.SourcePaymentIntent,
	})
	if err != nil {
		s.claims.release(ctx, key)
		return "", err
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return OutcomeDuplicate, nil
		}
		s.claims.release(ctx, key)
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	s.metrics.DonationRecorded(ctx, string(tx.Source), string(tx.PaymentMethod), string(tx.TransactionType), tx.Amount)

	if err := intent.Complete(identity, tx.ID, s.now()); err == nil {
		if err := s.intents.Update(ctx, intent, fromStatus); err != nil {
			s.logger.Warn("Failed to complete donation intent",
				zap.String("donation_intent_id", intent.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("Donation intent completed",
		zap.String("donation_intent_id", intent.ID.String()),
		zap.String("payment_intent_id", pi.ID),
		zap.String("transaction_id", tx.ID.String()))

	s.issueReceipt(ctx, tx)
	return OutcomeProcessed, nil
}

// handleCheckoutSessionExpired closes the card payment of an abandoned session.
func (s *StripeWebhookService) handleCheckoutSessionExpired(ctx context.Context, event stripe.Event) (string, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	var (
		card *donation.CardPayment
		err  error
	)
	if id, ok := metaUUID(sess.Metadata, MetaCardPaymentID); ok {
		card, err = s.cardPayments.FindByID(ctx, id)
	} else {
		card, err = s.cardPayments.FindByProviderRef(ctx, donation.ProviderStripe, sess.ID)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("failed to load card payment: %w", err)
	}

	if err := card.Expire(); err != nil {
		return OutcomeIgnored, nil
	}
	if err := s.cardPayments.Update(ctx, card, donation.CardPaymentPending); err != nil {
		if errors.Is(err, shared.ErrInvalidState) {
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("failed to expire card payment: %w", err)
	}
	s.logger.Info("Card payment expired",
		zap.String("card_payment_id", card.ID.String()), zap.String("session_id", sess.ID))
	return OutcomeProcessed, nil
}

// handlePaymentIntentFailed only logs the decline. Stripe sends the payment
// intent back to requires_payment_method, so the donor may still pay on it
// and the donation intent stays open.
func (s *StripeWebhookService) handlePaymentIntentFailed(_ context.Context, event stripe.Event) (string, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return "", fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	reason := ""
	if pi.LastPaymentError != nil {
		reason = pi.LastPaymentError.Msg
	}
	s.logger.Warn("Payment intent failed",
		zap.String("payment_intent_id", pi.ID),
		zap.String("donation_intent_id", pi.Metadata[MetaDonationIntentID]),
		zap.String("reason", reason))
	return OutcomeProcessed, nil
}
