package handler

import (
	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ReceiptHandler serves receipt operations.
type ReceiptHandler struct {
	BaseHandler
	receipts ReceiptResender
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts ReceiptResender) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Resend handles POST /api/v1/receipts/:id/resend.
func (h *ReceiptHandler) Resend(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.requireID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.receipts.ResendReceipt(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewReceiptResponse(receipt))
}
