package handler

import (
	"errors"
	"net/http"
	"testing"

	donationapp "github.com/amicale-sp/calendriers/internal/application/donation"
	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDonationRouter(svc *MockDonationSubmitter, userID uuid.UUID) *gin.Engine {
	h := NewDonationHandler(svc)
	r := gin.New()
	r.POST("/donations", asUser(userID), h.Submit)
	r.POST("/anonymous/donations", h.Submit)
	return r
}

func TestDonationHandler_Submit(t *testing.T) {
	userID, tourneeID := uuid.New(), uuid.New()

	t.Run("records a fiscal donation with receipt", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		tx := &donation.SupportTransaction{
			BaseEntity:      shared.NewBaseEntity(),
			UserID:          &userID,
			TourneeID:       &tourneeID,
			Amount:          decimal.RequireFromString("12.5"),
			PaymentMethod:   donation.PaymentMethodCash,
			TransactionType: donation.TransactionTypeFiscal,
			TaxReduction:    decimal.RequireFromString("8.25"),
			Supporter:       donation.Supporter{FirstName: "Anne", LastName: "Le Gall", Email: "anne@example.fr"},
			Source:          donation.SourceTerrain,
		}
		receipt := &donation.Receipt{BaseEntity: shared.NewBaseEntity(), Number: "2026-000042", Fiscal: true, Status: donation.ReceiptStatusSent}

		svc.On("SubmitDonation", mock.Anything, userID, mock.MatchedBy(func(f donation.DonationForm) bool {
			return f.Amount == "12,50" && f.PaymentMethod == "especes" && f.TourneeID == tourneeID.String() &&
				f.SupporterEmail == "anne@example.fr" && !f.CalendarAccepted
		})).Return(&donationapp.SubmitResult{Success: true, Transaction: tx, Receipt: receipt, Message: "Don fiscal enregistré"}, nil)

		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/donations", map[string]any{
			"amount":          "12,50",
			"payment_method":  "especes",
			"tournee_id":      tourneeID.String(),
			"supporter_name":  "Anne Le Gall",
			"supporter_email": "anne@example.fr",
		})

		require.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "Don fiscal enregistré", data["message"])
		assert.Equal(t, "fiscal", data["transaction"].(map[string]any)["transaction_type"])
		assert.Equal(t, "2026-000042", data["receipt"].(map[string]any)["number"])
		svc.AssertExpectations(t)
	})

	t.Run("numeric amount is accepted", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		svc.On("SubmitDonation", mock.Anything, userID, mock.MatchedBy(func(f donation.DonationForm) bool {
			return f.Amount == "10" && f.CalendarAccepted
		})).Return(&donationapp.SubmitResult{Success: true, Transaction: &donation.SupportTransaction{}, Message: "Soutien enregistré"}, nil)

		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/donations",
			`{"amount":10,"payment_method":"cheque","tournee_id":"`+tourneeID.String()+`","calendar_accepted":true}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("validation errors are reported as details", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		svc.On("SubmitDonation", mock.Anything, userID, mock.Anything).Return(&donationapp.SubmitResult{
			Errors: []string{donation.MsgAmountOutOfRange, donation.MsgEmailRequiredFisc},
		}, nil)

		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/donations", map[string]any{"amount": "0"})

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, donation.MsgEmailRequiredFisc, resp.Error.Details[1].Message)
	})

	t.Run("unavailable round is not found", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		svc.On("SubmitDonation", mock.Anything, userID, mock.Anything).Return(&donationapp.SubmitResult{
			Errors: []string{donation.MsgTourneeUnavailable},
		}, nil)

		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/donations", map[string]any{"amount": "5"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unexpected failure returns the generic message", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		svc.On("SubmitDonation", mock.Anything, userID, mock.Anything).Return(&donationapp.SubmitResult{
			Message: donationapp.MsgSubmitFailed,
		}, errors.New("connection reset"))

		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/donations", map[string]any{"amount": "5"})

		require.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, donationapp.MsgSubmitFailed, resp.Error.Message)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/donations", `{"amount":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "SubmitDonation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires an authenticated collector", func(t *testing.T) {
		svc := new(MockDonationSubmitter)
		w := doJSON(newDonationRouter(svc, userID), http.MethodPost, "/anonymous/donations", map[string]any{"amount": "5"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
