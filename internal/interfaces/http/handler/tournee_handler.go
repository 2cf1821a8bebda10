package handler

import (
	donationapp "github.com/amicale-sp/calendriers/internal/application/donation"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// TourneeHandler serves a collector's rounds.
type TourneeHandler struct {
	BaseHandler
	tournees TourneeManager
}

// NewTourneeHandler creates a new TourneeHandler
func NewTourneeHandler(tournees TourneeManager) *TourneeHandler {
	return &TourneeHandler{tournees: tournees}
}

// List handles GET /api/v1/tournees.
func (h *TourneeHandler) List(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.tournees.ListTournees(c.Request.Context(), userID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.NewTourneeResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Start handles POST /api/v1/tournees.
func (h *TourneeHandler) Start(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req dto.StartTourneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	t, err := h.tournees.StartTournee(c.Request.Context(), userID, donationapp.StartTourneeInput{
		Zone:               req.Zone,
		StartDate:          req.StartDate,
		CalendarsAllocated: req.CalendarsAllocated,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewTourneeResponse(t))
}

// Get handles GET /api/v1/tournees/:id.
func (h *TourneeHandler) Get(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.requireID(c, "id")
	if !ok {
		return
	}

	t, err := h.tournees.GetTournee(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTourneeResponse(t))
}

// Summary handles GET /api/v1/tournees/:id/summary.
func (h *TourneeHandler) Summary(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.requireID(c, "id")
	if !ok {
		return
	}

	totals, err := h.tournees.TourneeSummary(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTourneeTotalsResponse(totals))
}

// Transactions handles GET /api/v1/tournees/:id/transactions.
func (h *TourneeHandler) Transactions(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.requireID(c, "id")
	if !ok {
		return
	}
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.tournees.ListTransactions(c.Request.Context(), userID, id, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.NewTransactionResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Close handles POST /api/v1/tournees/:id/close.
func (h *TourneeHandler) Close(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.requireID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseTourneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.tournees.CloseTournee(c.Request.Context(), userID, id, req.ToForm())
	if err != nil {
		message := donationapp.MsgCloseFailed
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
	h.Success(c, dto.NewClosureSummaryResponse(result.Message, result.Summary))
}
