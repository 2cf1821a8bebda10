package payment

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Metadata keys attached to provider objects so notifications can be
// correlated with local records.
const (
	MetaSource           = "source"
	MetaTourneeID        = "tournee_id"
	MetaCardPaymentID    = "card_payment_id"
	MetaDonationIntentID = "donation_intent_id"
	MetaCalendarAccepted = "calendar_accepted"
	MetaDonorName        = "donor_name"
	MetaDonorEmail       = "donor_email"
)

func metaUUID(meta map[string]string, key string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(meta[key])
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func metaBool(meta map[string]string, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(meta[key]))
	return err == nil && v
}
