package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHelloAssoFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore(0)
	t.Cleanup(func() { _ = store.Close() })
	f := &checkoutFixture{
		cards:    new(MockCardPaymentRepository),
		txs:      new(MockTransactionRepository),
		receipts: new(MockReceiptIssuer),
	}
	f.service = NewCheckoutService(CheckoutServiceConfig{
		CardPayments: f.cards,
		Transactions: f.txs,
		Receipts:     f.receipts,
		Idempotency:  store,
	})
	return f
}

func paymentNotification(cardID uuid.UUID, state string) []byte {
	return []byte(fmt.Sprintf(`{
		"eventType": "Payment",
		"data": {"id": 991, "amount": 1200, "state": %q,
			"payer": {"firstName": "Lucie", "lastName": "Aubrac", "email": "lucie@example.fr"}},
		"metadata": {"card_payment_id": %q}
	}`, state, cardID))
}

func TestHandleHelloAssoNotification_Payment(t *testing.T) {
	f := newHelloAssoFixture(t)
	card, err := donation.NewCardPayment(uuid.New(), uuid.New(), donation.ProviderHelloAsso, decimal.NewFromInt(12), false)
	require.NoError(t, err)

	f.cards.On("FindByID", mock.Anything, card.ID).Return(card, nil)
	f.txs.On("FindByCardPaymentID", mock.Anything, card.ID).Return(nil, shared.ErrNotFound).Once()
	f.txs.On("Create", mock.Anything, mock.MatchedBy(func(tx *donation.SupportTransaction) bool {
		return tx.Source == donation.SourceHelloAsso &&
			tx.CardPaymentID != nil && *tx.CardPaymentID == card.ID &&
			tx.Amount.Equal(decimal.NewFromInt(12)) &&
			tx.Supporter.FullName() == "Lucie Aubrac" &&
			*tx.TourneeID == card.TourneeID
	})).Run(classify).Return(nil).Once()
	f.cards.On("Update", mock.Anything, card, donation.CardPaymentPending).Return(nil)
	f.receipts.On("IssueForTransaction", mock.Anything, mock.Anything).Return(&donation.Receipt{}, nil).Once()

	res, err := f.service.HandleHelloAssoNotification(context.Background(), paymentNotification(card.ID, "Authorized"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Message)
	assert.Equal(t, "payment:991", res.EventID)
	assert.Equal(t, donation.CardPaymentCompleted, card.Status)

	// Redelivery of the same payment finds the card already completed.
	res, err = f.service.HandleHelloAssoNotification(context.Background(), paymentNotification(card.ID, "Authorized"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Message)
	f.txs.AssertNumberOfCalls(t, "Create", 1)
	f.receipts.AssertExpectations(t)
}

func TestHandleHelloAssoNotification_NotAuthorized(t *testing.T) {
	f := newHelloAssoFixture(t)
	res, err := f.service.HandleHelloAssoNotification(context.Background(), paymentNotification(uuid.New(), "Refused"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Message)
	f.cards.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestHandleHelloAssoNotification_OrderByCheckoutID(t *testing.T) {
	f := newHelloAssoFixture(t)
	card, _ := donation.NewCardPayment(uuid.New(), uuid.New(), donation.ProviderHelloAsso, decimal.NewFromInt(5), true)
	card.AttachProviderRef("77")

	f.cards.On("FindByProviderRef", mock.Anything, donation.ProviderHelloAsso, "77").Return(card, nil)
	f.txs.On("FindByCardPaymentID", mock.Anything, card.ID).Return(nil, shared.ErrNotFound)
	f.txs.On("Create", mock.Anything, mock.Anything).Run(classify).Return(nil)
	f.cards.On("Update", mock.Anything, card, donation.CardPaymentPending).Return(nil)
	f.receipts.On("IssueForTransaction", mock.Anything, mock.Anything).Return(nil, nil).Once()

	payload := []byte(`{"eventType":"Order","data":{"id":55,"checkoutIntentId":77,
		"amount":{"total":500},"payments":[{"id":1,"amount":500,"state":"Authorized"}],
		"payer":{"firstName":"Jo","email":"jo@example.fr"}}}`)
	res, err := f.service.HandleHelloAssoNotification(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Message)
	assert.Equal(t, "order:55", res.EventID)
	f.receipts.AssertExpectations(t)
}

func TestHandleHelloAssoNotification_UnknownCard(t *testing.T) {
	f := newHelloAssoFixture(t)
	id := uuid.New()
	f.cards.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	res, err := f.service.HandleHelloAssoNotification(context.Background(), paymentNotification(id, "Authorized"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Message)
}

func TestHandleHelloAssoNotification_Malformed(t *testing.T) {
	f := newHelloAssoFixture(t)
	_, err := f.service.HandleHelloAssoNotification(context.Background(), []byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = f.service.HandleHelloAssoNotification(context.Background(), []byte(`not json`))
	assert.Error(t, err)
}

func TestHandleHelloAssoNotification_TransactionAlreadyRecorded(t *testing.T) {
	f := newHelloAssoFixture(t)
	card, err := donation.NewCardPayment(uuid.New(), uuid.New(), donation.ProviderHelloAsso, decimal.NewFromInt(12), false)
	require.NoError(t, err)
	recorded := &donation.SupportTransaction{
		BaseEntity: shared.NewBaseEntity(),
		Supporter:  donation.SupporterFromName("Lucie Aubrac", "lucie@example.fr"),
	}

	// An earlier delivery inserted the transaction but failed to close the card.
	f.cards.On("FindByID", mock.Anything, card.ID).Return(card, nil)
	f.txs.On("FindByCardPaymentID", mock.Anything, card.ID).Return(recorded, nil)
	f.cards.On("Update", mock.Anything, card, donation.CardPaymentPending).Return(nil).Once()

	res, err := f.service.HandleHelloAssoNotification(context.Background(), paymentNotification(card.ID, "Authorized"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Message)
	assert.Equal(t, donation.CardPaymentCompleted, card.Status)
	assert.Equal(t, recorded.ID, *card.TransactionID)
	f.txs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.receipts.AssertNotCalled(t, "IssueForTransaction", mock.Anything, mock.Anything)
}

func TestHandleHelloAssoNotification_ExpiredCardStillRecorded(t *testing.T) {
	f := newHelloAssoFixture(t)
	card, err := donation.NewCardPayment(uuid.New(), uuid.New(), donation.ProviderHelloAsso, decimal.NewFromInt(12), false)
	require.NoError(t, err)
	require.NoError(t, card.Expire())

	f.cards.On("FindByID", mock.Anything, card.ID).Return(card, nil)
	f.txs.On("FindByCardPaymentID", mock.Anything, card.ID).Return(nil, shared.ErrNotFound)
	f.txs.On("Create", mock.Anything, mock.Anything).Run(classify).Return(nil).Once()
	f.cards.On("Update", mock.Anything, card, donation.CardPaymentExpired).Return(nil).Once()
	f.receipts.On("IssueForTransaction", mock.Anything, mock.Anything).Return(&donation.Receipt{}, nil).Once()

	res, err := f.service.HandleHelloAssoNotification(context.Background(), paymentNotification(card.ID, "Authorized"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Message)
	assert.Equal(t, donation.CardPaymentCompleted, card.Status)
	f.cards.AssertExpectations(t)
}
