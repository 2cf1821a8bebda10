package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Provider webhooks are small; anything larger is refused unread.
const maxWebhookPayloadSize = 64 << 10

// WebhookResponse is the acknowledgement returned to payment providers.
// Providers only look at the status code; Error is set on rejection.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func readWebhookPayload(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Error: "Failed to read request body"})
		return nil, false
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Error: "Payload too large"})
		return nil, false
	}
	return payload, true
}

func acknowledge(c *gin.Context, result *paymentapp.WebhookResult) {
	resp := WebhookResponse{Received: true}
	if result != nil {
		resp.EventID = result.EventID
		resp.EventType = result.EventType
		resp.Message = result.Message
	}
	c.JSON(http.StatusOK, resp)
}

// StripeWebhookHandler handles Stripe webhook endpoints
// These endpoints are called by Stripe and do not require authentication
type StripeWebhookHandler struct {
	processor StripeWebhookProcessor
	logger    *zap.Logger
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(processor StripeWebhookProcessor, logger *zap.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeWebhookHandler{processor: processor, logger: logger}
}

// Handle handles POST /webhooks/stripe. Signature failures are the only
// rejection; processing problems are acknowledged so Stripe stops retrying.
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	payload, ok := readWebhookPayload(c)
	if !ok {
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Error: "Missing Stripe-Signature header"})
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, paymentapp.ErrSignatureVerification) {
			c.JSON(http.StatusBadRequest, WebhookResponse{Error: "Webhook signature verification failed"})
			return
		}
		h.logger.Error("Stripe webhook processing failed", zap.Error(err))
	}
	acknowledge(c, result)
}

// HelloAssoWebhookHandler receives HelloAsso notifications. HelloAsso does
// not sign payloads, so the endpoint URL carries a shared token.
type HelloAssoWebhookHandler struct {
	processor HelloAssoNotificationProcessor
	token     string
	logger    *zap.Logger
}

// NewHelloAssoWebhookHandler creates a new HelloAssoWebhookHandler
func NewHelloAssoWebhookHandler(processor HelloAssoNotificationProcessor, token string, logger *zap.Logger) *HelloAssoWebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HelloAssoWebhookHandler{processor: processor, token: token, logger: logger}
}

// Handle handles POST /webhooks/helloasso?token=...
func (h *HelloAssoWebhookHandler) Handle(c *gin.Context) {
	given := c.Query("token")
	if h.token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) != 1 {
		c.JSON(http.StatusUnauthorized, WebhookResponse{Error: "Invalid notification token"})
		return
	}
	payload, ok := readWebhookPayload(c)
	if !ok {
		return
	}

	result, err := h.processor.HandleHelloAssoNotification(c.Request.Context(), payload)
	if err != nil {
		h.logger.Warn("Rejected HelloAsso notification", zap.Error(err))
		c.JSON(http.StatusBadRequest, WebhookResponse{Error: "Invalid notification payload"})
		return
	}
	acknowledge(c, result)
}
