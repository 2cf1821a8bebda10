package handler

import (
	"fmt"
	"net/http"
	"testing"

	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCheckoutRouter(svc *MockCheckoutCreator, userID uuid.UUID) *gin.Engine {
	h := NewCheckoutHandler(svc)
	r := gin.New()
	r.POST("/checkout/landing", h.Landing)
	r.POST("/tournees/:id/checkout", asUser(userID), h.Tournee)
	r.POST("/tournees/:id/intents", asUser(userID), h.Intent)
	return r
}

func TestCheckoutHandler_Landing(t *testing.T) {
	t.Run("returns the hosted page", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateLandingCheckout", mock.Anything, paymentapp.CheckoutInput{
			Amount: "25", DonorEmail: "paul@example.fr",
		}).Return(&paymentapp.CheckoutResult{ProviderRef: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil)

		w := doJSON(newCheckoutRouter(svc, uuid.New()), http.MethodPost, "/checkout/landing",
			`{"amount":25,"donor_email":"paul@example.fr"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "cs_test_1", data["provider_ref"])
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", data["url"])
	})

	t.Run("bad email is rejected before the provider call", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		w := doJSON(newCheckoutRouter(svc, uuid.New()), http.MethodPost, "/checkout/landing",
			`{"amount":"10","donor_email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreateLandingCheckout", mock.Anything, mock.Anything)
	})

	t.Run("amount out of range", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateLandingCheckout", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError("INVALID_INPUT", donation.MsgAmountOutOfRange))

		w := doJSON(newCheckoutRouter(svc, uuid.New()), http.MethodPost, "/checkout/landing", `{"amount":"20000"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, donation.MsgAmountOutOfRange, decodeResponse(t, w).Error.Message)
	})

	t.Run("provider failure", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateLandingCheckout", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: stripe unavailable", shared.ErrExternalFailed))

		w := doJSON(newCheckoutRouter(svc, uuid.New()), http.MethodPost, "/checkout/landing", `{"amount":"20"}`)

		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, dto.ErrCodeExternalService, decodeResponse(t, w).Error.Code)
	})
}

func TestCheckoutHandler_Tournee(t *testing.T) {
	userID, tourneeID := uuid.New(), uuid.New()
	cardID := uuid.New()

	t.Run("stripe by default", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateTourneeCheckout", mock.Anything, userID, tourneeID, paymentapp.CheckoutInput{
			Amount: "15", CalendarAccepted: true,
		}).Return(&paymentapp.CheckoutResult{CardPaymentID: &cardID, ProviderRef: "cs_test_2", URL: "https://checkout.stripe.com/x"}, nil)

		w := doJSON(newCheckoutRouter(svc, userID), http.MethodPost, "/tournees/"+tourneeID.String()+"/checkout",
			`{"amount":"15","calendar_accepted":true}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, cardID.String(), decodeResponse(t, w).Data.(map[string]any)["card_payment_id"])
		svc.AssertNotCalled(t, "CreateHelloAssoCheckout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("helloasso on request", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateHelloAssoCheckout", mock.Anything, userID, tourneeID, mock.Anything).
			Return(&paymentapp.CheckoutResult{CardPaymentID: &cardID, ProviderRef: "4242", URL: "https://www.helloasso.com/x"}, nil)

		w := doJSON(newCheckoutRouter(svc, userID), http.MethodPost, "/tournees/"+tourneeID.String()+"/checkout",
			`{"amount":"15","provider":"helloasso"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "4242", decodeResponse(t, w).Data.(map[string]any)["provider_ref"])
	})

	t.Run("helloasso disabled", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateHelloAssoCheckout", mock.Anything, userID, tourneeID, mock.Anything).
			Return(nil, payment.ErrHelloAssoDisabled)

		w := doJSON(newCheckoutRouter(svc, userID), http.MethodPost, "/tournees/"+tourneeID.String()+"/checkout",
			`{"amount":"15","provider":"helloasso"}`)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeFeatureDisabled, decodeResponse(t, w).Error.Code)
	})

	t.Run("unknown provider", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		w := doJSON(newCheckoutRouter(svc, userID), http.MethodPost, "/tournees/"+tourneeID.String()+"/checkout",
			`{"amount":"15","provider":"paypal"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("round not owned", func(t *testing.T) {
		svc := new(MockCheckoutCreator)
		svc.On("CreateTourneeCheckout", mock.Anything, userID, tourneeID, mock.Anything).Return(nil, shared.ErrNotFound)

		w := doJSON(newCheckoutRouter(svc, userID), http.MethodPost, "/tournees/"+tourneeID.String()+"/checkout", `{"amount":"15"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCheckoutHandler_Intent(t *testing.T) {
	userID, tourneeID := uuid.New(), uuid.New()
	intentID := uuid.New()
	svc := new(MockCheckoutCreator)
	svc.On("CreateDonationIntent", mock.Anything, userID, tourneeID, paymentapp.CheckoutInput{
		Amount: "30", DonorName: "Paul Martin",
	}).Return(&paymentapp.IntentResult{DonationIntentID: intentID, PaymentIntentID: "pi_1", ClientSecret: "pi_1_secret"}, nil)

	w := doJSON(newCheckoutRouter(svc, userID), http.MethodPost, "/tournees/"+tourneeID.String()+"/intents",
		`{"amount":"30","donor_name":"Paul Martin"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, intentID.String(), data["donation_intent_id"])
	assert.Equal(t, "pi_1_secret", data["client_secret"])
}
