package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// helloAssoPaid is an authorized payment extracted from a notification.
type helloAssoPaid struct {
	reference   string
	cardPayment string
	checkoutID  int64
	amountCents int64
	payer       donation.DonorIdentity
}

// HandleHelloAssoNotification applies a HelloAsso Payment or Order
// notification. An authorized payment completes its card payment once and
// records the transaction. A malformed payload is returned as an error.
func (s *CheckoutService) HandleHelloAssoNotification(ctx context.Context, payload []byte) (*WebhookResult, error) {
	start := time.Now()
	n, err := payment.ParseHelloAssoNotification(payload)
	if err != nil {
		return nil, err
	}

	paid, err := parseHelloAssoPaid(n)
	if err != nil {
		return nil, err
	}

	eventID := ""
	if paid != nil {
		eventID = paid.reference
	}
	if s.webhookLog != nil {
		entry := donation.NewWebhookEvent(donation.ProviderHelloAsso, eventID, n.EventType, payload)
		if err := s.webhookLog.Append(ctx, entry); err != nil {
			s.logger.Warn("Failed to append webhook log", zap.String("event_type", n.EventType), zap.Error(err))
		}
	}

	result := &WebhookResult{EventID: eventID, EventType: n.EventType, Kind: strings.ToLower(n.EventType), Processed: true}
	outcome := OutcomeIgnored
	if paid != nil {
		outcome, err = s.applyHelloAssoPayment(ctx, paid)
	}
	if err != nil {
		s.logger.Error("Failed to process HelloAsso notification",
			zap.String("event_type", n.EventType), zap.Error(err))
		outcome = OutcomeFailed
		result.Processed = false
		result.Message = err.Error()
	} else {
		result.Message = outcome
	}
	s.metrics.WebhookHandled(ctx, "helloasso", result.Kind, outcome, time.Since(start))
	return result, nil
}

// parseHelloAssoPaid returns nil when the notification is not an
// authorized payment.
func parseHelloAssoPaid(n *payment.HelloAssoNotification) (*helloAssoPaid, error) {
	switch n.EventType {
	case payment.HelloAssoEventPayment:
		var p payment.HelloAssoPayment
		if err := json.Unmarshal(n.Data, &p); err != nil {
			return nil, fmt.Errorf("helloasso: invalid payment data: %w", err)
		}
		if p.State != payment.HelloAssoStateAuthorized {
			return nil, nil
		}
		return &helloAssoPaid{
			reference:   "payment:" + strconv.FormatInt(p.ID, 10),
			cardPayment: n.Metadata[MetaCardPaymentID],
			amountCents: p.Amount,
			payer:       helloAssoPayer(p.Payer),
		}, nil
	case payment.HelloAssoEventOrder:
		var o payment.HelloAssoOrder
		if err := json.Unmarshal(n.Data, &o); err != nil {
			return nil, fmt.Errorf("helloasso: invalid order data: %w", err)
		}
		authorized := false
		for _, p := range o.Payments {
			if p.State == payment.HelloAssoStateAuthorized {
				authorized = true
				break
			}
		}
		if !authorized {
			return nil, nil
		}
		return &helloAssoPaid{
			reference:   "order:" + strconv.FormatInt(o.ID, 10),
			cardPayment: n.Metadata[MetaCardPaymentID],
			checkoutID:  o.CheckoutIntentID,
			amountCents: o.Amount.Total,
			payer:       helloAssoPayer(o.Payer),
		}, nil
	}
	return nil, nil
}

func helloAssoPayer(p payment.HelloAssoPayer) donation.DonorIdentity {
	return donation.DonorIdentity{
		Name:  strings.TrimSpace(p.FirstName + " " + p.LastName),
		Email: p.Email,
	}.Normalize()
}

func (s *CheckoutService) findHelloAssoCard(ctx context.Context, paid *helloAssoPaid) (*donation.CardPayment, error) {
	if id, err := uuid.Parse(strings.TrimSpace(paid.cardPayment)); err == nil {
		return s.cardPayments.FindByID(ctx, id)
	}
	if paid.checkoutID != 0 {
		return s.cardPayments.FindByProviderRef(ctx, donation.ProviderHelloAsso, strconv.FormatInt(paid.checkoutID, 10))
	}
	return nil, shared.ErrNotFound
}

func (s *CheckoutService) applyHelloAssoPayment(ctx context.Context, paid *helloAssoPaid) (string, error) {
	card, err := s.findHelloAssoCard(ctx, paid)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("HelloAsso payment without matching card payment",
				zap.String("reference", paid.reference))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("failed to load card payment: %w", err)
	}
	if card.IsCompleted() {
		return OutcomeDuplicate, nil
	}
	fromStatus := card.Status

	key := "helloasso:card_payment:" + card.ID.String()
	if !s.claims.take(ctx, key) {
		return OutcomeDuplicate, nil
	}

	recorded, err := s.transactions.FindByCardPaymentID(ctx, card.ID)
	switch {
	case err == nil:
		// The transaction exists but the card payment was never closed.
		s.completeHelloAssoCard(ctx, card, fromStatus, donation.DonorIdentity{
			Name:  recorded.Supporter.FullName(),
			Email: recorded.Supporter.Email,
		}, recorded.ID)
		return OutcomeDuplicate, nil
	case !errors.Is(err, shared.ErrNotFound):
		s.claims.release(ctx, key)
		return "", fmt.Errorf("failed to check card payment transaction: %w", err)
	}

	identity, _ := donation.ResolveIdentity(ctx,
		donation.StaticIdentity("payer", paid.payer),
		donation.StaticIdentity("card_payment", donation.DonorIdentity{Name: card.PayerName, Email: card.PayerEmail}),
	)
	amount := card.Amount
	if paid.amountCents > 0 {
		amount = donation.AmountFromMinorUnits(paid.amountCents)
	}

	tx, err := donation.NewSupportTransaction(donation.NewTransactionParams{
		UserID:           &card.UserID,
		TourneeID:        &card.TourneeID,
		Amount:           amount,
		PaymentMethod:    donation.PaymentMethodCard,
		CalendarAccepted: card.CalendarAccepted,
		Supporter:        identity.Supporter(),
		ConsentEmail:     identity.Email != "",
		CardPaymentID:    &card.ID,
		Source:           donation.SourceHelloAsso,
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

	s.completeHelloAssoCard(ctx, card, fromStatus, identity, tx.ID)

	s.logger.Info("HelloAsso donation recorded",
		zap.String("card_payment_id", card.ID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("amount", tx.Amount.String()))

	if s.receipts != nil {
		if _, err := s.receipts.IssueForTransaction(ctx, tx); err != nil {
			s.logger.Warn("Receipt issuance failed, donation kept",
				zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		}
	}
	return OutcomeProcessed, nil
}

func (s *CheckoutService) completeHelloAssoCard(ctx context.Context, card *donation.CardPayment, fromStatus donation.CardPaymentStatus, payer donation.DonorIdentity, txID uuid.UUID) {
	if err := card.Complete(payer, txID, s.now()); err != nil {
		return
	}
	if err := s.cardPayments.Update(ctx, card, fromStatus); err != nil {
		s.logger.Warn("Failed to complete card payment",
			zap.String("card_payment_id", card.ID.String()), zap.Error(err))
	}
}
