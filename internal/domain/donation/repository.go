package donation

import (
	"context"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionRepository persists support transactions.
type TransactionRepository interface {
	// Create inserts the row and reloads the database-computed
	// classification into tx. A duplicate stripe session, payment
	// intent or card payment id yields shared.ErrAlreadyExists.
	Create(ctx context.Context, tx *SupportTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*SupportTransaction, error)
	ExistsByStripeSessionID(ctx context.Context, sessionID string) (bool, error)
	ExistsByPaymentIntentID(ctx context.Context, paymentIntentID string) (bool, error)
	FindByCardPaymentID(ctx context.Context, cardPaymentID uuid.UUID) (*SupportTransaction, error)
	ListByTournee(ctx context.Context, tourneeID uuid.UUID, filter shared.Filter) ([]SupportTransaction, int64, error)
	TotalsByTournee(ctx context.Context, tourneeID uuid.UUID) ([]TotalsRow, error)
	AttachReceipt(ctx context.Context, transactionID, receiptID uuid.UUID) error
}

// DonationIntentRepository persists donation intents.
type DonationIntentRepository interface {
	Create(ctx context.Context, intent *DonationIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*DonationIntent, error)
	// Update writes the intent only if its stored status still equals
	// fromStatus, returning shared.ErrInvalidState otherwise.
	Update(ctx context.Context, intent *DonationIntent, fromStatus IntentStatus) error
}

// CardPaymentRepository persists checkout records.
type CardPaymentRepository interface {
	Create(ctx context.Context, payment *CardPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*CardPayment, error)
	FindByProviderRef(ctx context.Context, provider Provider, ref string) (*CardPayment, error)
	// Update has the same compare-and-set semantics as DonationIntentRepository.Update.
	Update(ctx context.Context, payment *CardPayment, fromStatus CardPaymentStatus) error
}

// ReceiptRepository persists receipts and issues their numbers.
type ReceiptRepository interface {
	// NextNumber calls the database receipt numbering function.
	NextNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, receipt *Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Receipt, error)
	Update(ctx context.Context, receipt *Receipt) error
}

// TourneeRepository persists rounds.
type TourneeRepository interface {
	Create(ctx context.Context, tournee *Tournee) error
	// FindActiveForUser returns shared.ErrNotFound when the round does not
	// exist, belongs to someone else or is no longer active.
	FindActiveForUser(ctx context.Context, id, userID uuid.UUID) (*Tournee, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*Tournee, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Tournee, int64, error)
	// Close delegates to the database close procedure.
	Close(ctx context.Context, id, userID uuid.UUID, decl ClosureDeclaration) (*ClosureSummary, error)
}

// WebhookEventRepository appends to the webhook audit log.
type WebhookEventRepository interface {
	Append(ctx context.Context, event *WebhookEvent) error
}
