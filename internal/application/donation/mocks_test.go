package donation

import (
	"context"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/email"
	"github.com/amicale-sp/calendriers/internal/infrastructure/printing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

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

func (m *MockTourneeRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]donation.Tournee, int64, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]donation.Tournee), args.Get(1).(int64), args.Error(2)
}

func (m *MockTourneeRepository) Close(ctx context.Context, id, userID uuid.UUID, decl donation.ClosureDeclaration) (*donation.ClosureSummary, error) {
	args := m.Called(ctx, id, userID, decl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.ClosureSummary), args.Error(1)
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

func (m *MockTransactionRepository) ExistsByStripeSessionID(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
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

func (m *MockTransactionRepository) ListByTournee(ctx context.Context, tourneeID uuid.UUID, filter shared.Filter) ([]donation.SupportTransaction, int64, error) {
	args := m.Called(ctx, tourneeID, filter)
	return args.Get(0).([]donation.SupportTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) TotalsByTournee(ctx context.Context, tourneeID uuid.UUID) ([]donation.TotalsRow, error) {
	args := m.Called(ctx, tourneeID)
	return args.Get(0).([]donation.TotalsRow), args.Error(1)
}

func (m *MockTransactionRepository) AttachReceipt(ctx context.Context, transactionID, receiptID uuid.UUID) error {
	return m.Called(ctx, transactionID, receiptID).Error(0)
}

// MockReceiptRepository is a mock implementation of donation.ReceiptRepository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) NextNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockReceiptRepository) Create(ctx context.Context, r *donation.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindByTransactionID(ctx context.Context, id uuid.UUID) (*donation.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) Update(ctx context.Context, r *donation.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
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

type fakePDFRenderer struct {
	docs []printing.ReceiptDocument
	err  error
}

func (f *fakePDFRenderer) RenderReceipt(_ context.Context, doc printing.ReceiptDocument) ([]byte, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + doc.Number), nil
}
