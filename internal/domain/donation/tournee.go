package donation

import (
	"fmt"
	"strings"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TourneeStatus is the lifecycle of a fundraising round.
type TourneeStatus string

const (
	TourneeStatusActive    TourneeStatus = "active"
	TourneeStatusCompleted TourneeStatus = "completed"
)

// Tournee is a door-to-door fundraising round assigned to a collector.
type Tournee struct {
	shared.BaseEntity
	UserID               uuid.UUID
	Zone                 string
	StartDate            time.Time
	Status               TourneeStatus
	CalendarsAllocated   int
	CalendarsDistributed int
	DeclaredCash         decimal.Decimal
	DeclaredCheck        decimal.Decimal
	Notes                string
	ClosedAt             *time.Time
}

// NewTournee starts an active round.
func NewTournee(userID uuid.UUID, zone string, startDate time.Time, calendarsAllocated int) (*Tournee, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "La zone est obligatoire")
	}
	if calendarsAllocated < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Le nombre de calendriers est invalide")
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}
	return &Tournee{
		BaseEntity:         shared.NewBaseEntity(),
		UserID:             userID,
		Zone:               zone,
		StartDate:          startDate,
		Status:             TourneeStatusActive,
		CalendarsAllocated: calendarsAllocated,
	}, nil
}

// IsActive reports whether donations can still be recorded.
func (t *Tournee) IsActive() bool {
	return t.Status == TourneeStatusActive
}

// ClosureDeclaration is what a collector declares when closing a round.
type ClosureDeclaration struct {
	Cash                 decimal.Decimal
	Check                decimal.Decimal
	CalendarsDistributed int
	Notes                string
}

// ClosureForm is the raw, free-text closing declaration.
type ClosureForm struct {
	Cash                 string
	Check                string
	CalendarsDistributed int
	Notes                string
}

// Validate parses the free-text totals. Empty amounts count as zero.
// Errors are collected so every problem can be reported at once.
func (f ClosureForm) Validate() (*ClosureDeclaration, []string) {
	var errs []string
	parse := func(raw, label string) decimal.Decimal {
		if strings.TrimSpace(raw) == "" {
			return decimal.Zero
		}
		v, err := ParseAmount(raw)
		if err != nil || v.IsNegative() {
			errs = append(errs, fmt.Sprintf("Le montant %s est invalide", label))
			return decimal.Zero
		}
		return v
	}
	decl := &ClosureDeclaration{
		Cash:                 parse(f.Cash, "en espèces"),
		Check:                parse(f.Check, "en chèques"),
		CalendarsDistributed: f.CalendarsDistributed,
		Notes:                strings.TrimSpace(f.Notes),
	}
	if f.CalendarsDistributed < 0 {
		errs = append(errs, "Le nombre de calendriers distribués est invalide")
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return decl, nil
}

// ClosureSummary is returned by the database close procedure.
type ClosureSummary struct {
	TourneeID            uuid.UUID
	TotalCash            decimal.Decimal
	TotalCheck           decimal.Decimal
	TotalCard            decimal.Decimal
	TotalAmount          decimal.Decimal
	CalendarsDistributed int
	AssociationShare     decimal.Decimal
	CollectorShare       decimal.Decimal
	ClosedAt             time.Time
}

// TotalsRow is one aggregate line grouped by payment method and type.
type TotalsRow struct {
	PaymentMethod   PaymentMethod
	TransactionType TransactionType
	Count           int64
	Total           decimal.Decimal
}

// TourneeTotals aggregates the transactions recorded on a round.
type TourneeTotals struct {
	TourneeID uuid.UUID
	Count     int64
	Total     decimal.Decimal
	ByMethod  map[PaymentMethod]decimal.Decimal
	ByType    map[TransactionType]decimal.Decimal
}

// SummarizeTotals folds grouped rows into per-method and per-type totals.
func SummarizeTotals(tourneeID uuid.UUID, rows []TotalsRow) TourneeTotals {
	out := TourneeTotals{
		TourneeID: tourneeID,
		Total:     decimal.Zero,
		ByMethod:  make(map[PaymentMethod]decimal.Decimal),
		ByType:    make(map[TransactionType]decimal.Decimal),
	}
	for _, r := range rows {
		out.Count += r.Count
		out.Total = out.Total.Add(r.Total)
		out.ByMethod[r.PaymentMethod] = out.ByMethod[r.PaymentMethod].Add(r.Total)
		out.ByType[r.TransactionType] = out.ByType[r.TransactionType].Add(r.Total)
	}
	return out
}
