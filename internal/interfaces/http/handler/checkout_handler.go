package handler

import (
	"errors"
	"net/http"

	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/amicale-sp/calendriers/internal/infrastructure/payment"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

const providerHelloAsso = "helloasso"

// CheckoutHandler opens card payments with Stripe or HelloAsso.
type CheckoutHandler struct {
	BaseHandler
	checkouts CheckoutCreator
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkouts CheckoutCreator) *CheckoutHandler {
	return &CheckoutHandler{checkouts: checkouts}
}

func toCheckoutInput(req dto.CheckoutRequest) paymentapp.CheckoutInput {
	return paymentapp.CheckoutInput{
		Amount:           string(req.Amount),
		CalendarAccepted: req.CalendarAccepted,
		DonorName:        req.DonorName,
		DonorEmail:       req.DonorEmail,
	}
}

// Landing handles POST /api/v1/checkout/landing. It is public.
func (h *CheckoutHandler) Landing(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.checkouts.CreateLandingCheckout(c.Request.Context(), toCheckoutInput(req))
	if err != nil {
		h.handleCheckoutError(c, err)
		return
	}
	h.Created(c, result)
}

// Tournee handles POST /api/v1/tournees/:id/checkout. The provider field
// selects HelloAsso; Stripe is the default.
func (h *CheckoutHandler) Tournee(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	tourneeID, ok := h.requireID(c, "id")
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	var (
		result *paymentapp.CheckoutResult
		err    error
	)
	if req.Provider == providerHelloAsso {
		result, err = h.checkouts.CreateHelloAssoCheckout(c.Request.Context(), userID, tourneeID, toCheckoutInput(req))
	} else {
		result, err = h.checkouts.CreateTourneeCheckout(c.Request.Context(), userID, tourneeID, toCheckoutInput(req))
	}
	if err != nil {
		h.handleCheckoutError(c, err)
		return
	}
	h.Created(c, result)
}

// Intent handles POST /api/v1/tournees/:id/intents.
func (h *CheckoutHandler) Intent(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	tourneeID, ok := h.requireID(c, "id")
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.checkouts.CreateDonationIntent(c.Request.Context(), userID, tourneeID, toCheckoutInput(req))
	if err != nil {
		h.handleCheckoutError(c, err)
		return
	}
	h.Created(c, result)
}

func (h *CheckoutHandler) handleCheckoutError(c *gin.Context, err error) {
	if errors.Is(err, payment.ErrHelloAssoDisabled) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeFeatureDisabled, "Le paiement HelloAsso n'est pas activé")
		return
	}
	h.HandleError(c, err)
}
