package payment

import (
	"context"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v81"
)

// MockStripeGateway is a mock implementation of StripeGateway
type MockStripeGateway struct {
	mock.Mock
}

func (m *MockStripeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutSessionRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockStripeGateway) CreatePaymentIntent(ctx context.Context, req payment.PaymentIntentRequest) (*payment.PaymentIntentHandle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntentHandle), args.Error(1)
}

func (m *MockStripeGateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *MockStripeGateway) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentMethod), args.Error(1)
}

func (m *MockStripeGateway) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Charge), args.Error(1)
}

// MockHelloAssoGateway is a mock implementation of HelloAssoGateway
type MockHelloAssoGateway struct {
	mock.Mock
}

func (m *MockHelloAssoGateway) CreateCheckoutIntent(ctx context.Context, req payment.HelloAssoCheckoutRequest) (*payment.HelloAssoCheckout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.HelloAssoCheckout), args.Error(1)
}

// MockTransactionRepository is a mock implementation of donation.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *donation.SupportTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.SupportTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.SupportTransaction), args.Error(1)
}

func (m *MockTransactionRepository) ExistsByStripeSessionID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ExistsByPaymentIntentID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) FindByCardPaymentID(ctx context.Context, id uuid.UUID) (*donation.SupportTransaction, error) {
	args := m.Called(ctx, id)
	if tx, ok := args.Get(0).(*donation.SupportTransaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionRepository) ListByTournee(ctx context.Context, id uuid.UUID, f shared.Filter) ([]donation.SupportTransaction, int64, error) {
	args := m.Called(ctx, id, f)
	return args.Get(0).([]donation.SupportTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) TotalsByTournee(ctx context.Context, id uuid.UUID) ([]donation.TotalsRow, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]donation.TotalsRow), args.Error(1)
}

func (m *MockTransactionRepository) AttachReceipt(ctx context.Context, txID, receiptID uuid.UUID) error {
	return m.Called(ctx, txID, receiptID).Error(0)
}

// MockIntentRepository is a mock implementation of donation.DonationIntentRepository
type MockIntentRepository struct {
	mock.Mock
}

func (m *MockIntentRepository) Create(ctx context.Context, i *donation.DonationIntent) error {
	return m.Called(ctx, i).Error(0)
}

func (m *MockIntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.DonationIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.DonationIntent), args.Error(1)
}

func (m *MockIntentRepository) Update(ctx context.Context, i *donation.DonationIntent, from donation.IntentStatus) error {
	return m.Called(ctx, i, from).Error(0)
}

// MockCardPaymentRepository is a mock implementation of donation.CardPaymentRepository
type MockCardPaymentRepository struct {
	mock.Mock
}

func (m *MockCardPaymentRepository) Create(ctx context.Context, p *donation.CardPayment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCardPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.CardPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.CardPayment), args.Error(1)
}

func (m *MockCardPaymentRepository) FindByProviderRef(ctx context.Context, provider donation.Provider, ref string) (*donation.CardPayment, error) {
	args := m.Called(ctx, provider, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.CardPayment), args.Error(1)
}

func (m *MockCardPaymentRepository) Update(ctx context.Context, p *donation.CardPayment, from donation.CardPaymentStatus) error {
	return m.Called(ctx, p, from).Error(0)
}

// MockTourneeRepository is a mock implementation of donation.TourneeRepository
type MockTourneeRepository struct {
	mock.Mock
}

func (m *MockTourneeRepository) Create(ctx context.Context, t *donation.Tournee) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTourneeRepository) FindActiveForUser(ctx context.Context, id, userID uuid.UUID) (*donation.Tournee, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Tournee), args.Error(1)
}

func (m *MockTourneeRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*donation.Tournee, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Tournee), args.Error(1)
}

func (m *MockTourneeRepository) ListForUser(ctx context.Context, userID uuid.UUID, f shared.Filter) ([]donation.Tournee, int64, error) {
	args := m.Called(ctx, userID, f)
	return args.Get(0).([]donation.Tournee), args.Get(1).(int64), args.Error(2)
}

func (m *MockTourneeRepository) Close(ctx context.Context, id, userID uuid.UUID, d donation.ClosureDeclaration) (*donation.ClosureSummary, error) {
	args := m.Called(ctx, id, userID, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.ClosureSummary), args.Error(1)
}

// MockWebhookLog is a mock implementation of donation.WebhookEventRepository
type MockWebhookLog struct {
	mock.Mock
}

func (m *MockWebhookLog) Append(ctx context.Context, e *donation.WebhookEvent) error {
	return m.Called(ctx, e).Error(0)
}

// MockReceiptIssuer is a mock implementation of ReceiptIssuer
type MockReceiptIssuer struct {
	mock.Mock
}

func (m *MockReceiptIssuer) IssueForTransaction(ctx context.Context, tx *donation.SupportTransaction) (*donation.Receipt, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Receipt), args.Error(1)
}

// classify mimics the database trigger on insert.
func classify(args mock.Arguments) {
	tx := args.Get(1).(*donation.SupportTransaction)
	if tx.CalendarAccepted {
		tx.TransactionType = donation.TransactionTypeSoutien
		tx.TaxReduction = decimal.Zero
		return
	}
	tx.TransactionType = donation.TransactionTypeFiscal
	tx.TaxReduction = tx.Amount.Mul(decimal.RequireFromString("0.66")).Round(2)
}
