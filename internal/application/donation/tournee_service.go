package donation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MsgCloseFailed is shown when the close procedure fails unexpectedly.
const MsgCloseFailed = "Impossible de clôturer la tournée"

// StartTourneeInput opens a new round.
type StartTourneeInput struct {
	Zone               string
	StartDate          time.Time
	CalendarsAllocated int
}

// CloseResult is the outcome of a closure request.
type CloseResult struct {
	Success bool                     `json:"success"`
	Summary *donation.ClosureSummary `json:"-"`
	Message string                   `json:"message,omitempty"`
	Errors  []string                 `json:"errors,omitempty"`
}

// TourneeService manages a collector's rounds.
type TourneeService struct {
	tournees     donation.TourneeRepository
	transactions donation.TransactionRepository
	metrics      *telemetry.DonationMetrics
	logger       *zap.Logger
}

// NewTourneeService creates a TourneeService.
func NewTourneeService(tournees donation.TourneeRepository, transactions donation.TransactionRepository, metrics *telemetry.DonationMetrics, logger *zap.Logger) *TourneeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TourneeService{
		tournees:     tournees,
		transactions: transactions,
		metrics:      metrics,
		logger:       logger,
	}
}

// StartTournee creates an active round for userID.
func (s *TourneeService) StartTournee(ctx context.Context, userID uuid.UUID, in StartTourneeInput) (*donation.Tournee, error) {
	t, err := donation.NewTournee(userID, in.Zone, in.StartDate, in.CalendarsAllocated)
	if err != nil {
		return nil, err
	}
	if err := s.tournees.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create tournee: %w", err)
	}
	s.logger.Info("Tournee started",
		zap.String("tournee_id", t.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("zone", t.Zone))
	return t, nil
}

// GetTournee returns one of the collector's rounds, active or not.
func (s *TourneeService) GetTournee(ctx context.Context, userID, id uuid.UUID) (*donation.Tournee, error) {
	return s.tournees.FindForUser(ctx, id, userID)
}

// ListTournees pages through the collector's rounds.
func (s *TourneeService) ListTournees(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[donation.Tournee], error) {
	items, total, err := s.tournees.ListForUser(ctx, userID, filter)
	if err != nil {
		return shared.Paginated[donation.Tournee]{}, err
	}
	return shared.NewPaginated(items, total, max(filter.Page, 1), filter.Limit()), nil
}

// TourneeSummary aggregates the transactions recorded on a round.
func (s *TourneeService) TourneeSummary(ctx context.Context, userID, id uuid.UUID) (*donation.TourneeTotals, error) {
	if _, err := s.tournees.FindForUser(ctx, id, userID); err != nil {
		return nil, err
	}
	rows, err := s.transactions.TotalsByTournee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tournee totals: %w", err)
	}
	totals := donation.SummarizeTotals(id, rows)
	return &totals, nil
}

// ListTransactions pages through the transactions of a round.
func (s *TourneeService) ListTransactions(ctx context.Context, userID, id uuid.UUID, filter shared.Filter) (shared.Paginated[donation.SupportTransaction], error) {
	if _, err := s.tournees.FindForUser(ctx, id, userID); err != nil {
		return shared.Paginated[donation.SupportTransaction]{}, err
	}
	items, total, err := s.transactions.ListByTournee(ctx, id, filter)
	if err != nil {
		return shared.Paginated[donation.SupportTransaction]{}, err
	}
	return shared.NewPaginated(items, total, max(filter.Page, 1), filter.Limit()), nil
}

// CloseTournee validates the declared totals and hands the close to the
// database, which computes card totals and the association/collector split.
func (s *TourneeService) CloseTournee(ctx context.Context, userID, tourneeID uuid.UUID, form donation.ClosureForm) (*CloseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "TourneeService", "CloseTournee")
	defer span.End()

	decl, errs := form.Validate()
	if len(errs) > 0 {
		return &CloseResult{Errors: errs}, nil
	}

	if _, err := s.tournees.FindActiveForUser(ctx, tourneeID, userID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &CloseResult{Errors: []string{donation.MsgTourneeUnavailable}}, nil
		}
		telemetry.RecordError(span, err)
		s.logger.Error("Tournee lookup failed", zap.String("tournee_id", tourneeID.String()), zap.Error(err))
		return &CloseResult{Message: MsgCloseFailed, Errors: []string{MsgCloseFailed}}, err
	}

	summary, err := s.tournees.Close(ctx, tourneeID, userID, *decl)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &CloseResult{Errors: []string{donation.MsgTourneeUnavailable}}, nil
		}
		telemetry.RecordError(span, err)
		s.logger.Error("Tournee close procedure failed", zap.String("tournee_id", tourneeID.String()), zap.Error(err))
		return &CloseResult{Message: MsgCloseFailed, Errors: []string{MsgCloseFailed}}, fmt.Errorf("close tournee: %w", err)
	}
	s.metrics.TourneeClosed(ctx)

	s.logger.Info("Tournee closed",
		zap.String("tournee_id", tourneeID.String()),
		zap.String("total", summary.TotalAmount.String()),
		zap.String("association_share", summary.AssociationShare.String()))

	return &CloseResult{
		Success: true,
		Summary: summary,
		Message: "Tournée clôturée",
	}, nil
}
