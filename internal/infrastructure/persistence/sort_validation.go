package persistence

import (
	"strings"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// TourneeSortFields contains allowed sort fields for rounds
var TourneeSortFields = map[string]bool{
	"created_at": true,
	"start_date": true,
	"zone":       true,
	"status":     true,
}

// TransactionSortFields contains allowed sort fields for support transactions
var TransactionSortFields = map[string]bool{
	"created_at":     true,
	"amount":         true,
	"payment_method": true,
}

// orderClause builds a whitelisted ORDER BY clause from a filter.
func orderClause(filter shared.Filter, allowed map[string]bool, defaultField string) string {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	return field + " " + ValidateSortOrder(filter.OrderDir)
}
