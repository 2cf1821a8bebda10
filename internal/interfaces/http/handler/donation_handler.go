package handler

import (
	donationapp "github.com/amicale-sp/calendriers/internal/application/donation"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// DonationHandler records donations collected in the field.
type DonationHandler struct {
	BaseHandler
	donations DonationSubmitter
}

// NewDonationHandler creates a new DonationHandler
func NewDonationHandler(donations DonationSubmitter) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// Submit handles POST /api/v1/donations.
func (h *DonationHandler) Submit(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req dto.SubmitDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.donations.SubmitDonation(c.Request.Context(), userID, req.ToForm())
	if err != nil {
		message := donationapp.MsgSubmitFailed
		if result != nil && result.Message != "" {
			message = result.Message
		}
		h.InternalError(c, message)
		return
	}
	if !result.Success {
		h.ResultErrors(c, result.Errors)
		return
	}

	h.Created(c, dto.SubmitDonationResponse{
		Message:     result.Message,
		Transaction: dto.NewTransactionResponse(result.Transaction),
		Receipt:     dto.NewReceiptResponse(result.Receipt),
	})
}
