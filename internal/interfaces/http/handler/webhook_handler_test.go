package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postWebhook(router http.Handler, path string, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeWebhook(t *testing.T, w *httptest.ResponseRecorder) WebhookResponse {
	t.Helper()
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func newStripeRouter(svc *MockStripeWebhookProcessor) *gin.Engine {
	r := gin.New()
	r.POST("/webhooks/stripe", NewStripeWebhookHandler(svc, nil).Handle)
	return r
}

func TestStripeWebhookHandler(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	t.Run("acknowledges a processed event", func(t *testing.T) {
		svc := new(MockStripeWebhookProcessor)
		svc.On("ProcessWebhook", mock.Anything, payload, "t=1,v1=abc").Return(&paymentapp.WebhookResult{
			EventID: "evt_1", EventType: "checkout.session.completed", Processed: true, Message: paymentapp.OutcomeProcessed,
		}, nil)

		w := postWebhook(newStripeRouter(svc), "/webhooks/stripe", payload, "t=1,v1=abc")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeWebhook(t, w)
		assert.True(t, resp.Received)
		assert.Equal(t, "evt_1", resp.EventID)
		assert.Equal(t, paymentapp.OutcomeProcessed, resp.Message)
	})

	t.Run("branch failure is still acknowledged", func(t *testing.T) {
		svc := new(MockStripeWebhookProcessor)
		svc.On("ProcessWebhook", mock.Anything, payload, "sig").Return(&paymentapp.WebhookResult{
			EventID: "evt_1", Processed: false, Message: paymentapp.OutcomeFailed,
		}, nil)

		w := postWebhook(newStripeRouter(svc), "/webhooks/stripe", payload, "sig")

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeWebhook(t, w).Received)
	})

	t.Run("unexpected error is acknowledged without details", func(t *testing.T) {
		svc := new(MockStripeWebhookProcessor)
		svc.On("ProcessWebhook", mock.Anything, payload, "sig").Return(nil, errors.New("db down"))

		w := postWebhook(newStripeRouter(svc), "/webhooks/stripe", payload, "sig")

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})

	t.Run("bad signature", func(t *testing.T) {
		svc := new(MockStripeWebhookProcessor)
		svc.On("ProcessWebhook", mock.Anything, payload, "forged").Return(nil, paymentapp.ErrSignatureVerification)

		w := postWebhook(newStripeRouter(svc), "/webhooks/stripe", payload, "forged")

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeWebhook(t, w)
		assert.False(t, resp.Received)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("missing signature", func(t *testing.T) {
		svc := new(MockStripeWebhookProcessor)

		w := postWebhook(newStripeRouter(svc), "/webhooks/stripe", payload, "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing Stripe-Signature header", decodeWebhook(t, w).Error)
		svc.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversized payload", func(t *testing.T) {
		svc := new(MockStripeWebhookProcessor)
		big := []byte(`{"pad":"` + strings.Repeat("x", maxWebhookPayloadSize) + `"}`)

		w := postWebhook(newStripeRouter(svc), "/webhooks/stripe", big, "sig")

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		svc.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHelloAssoWebhookHandler(t *testing.T) {
	payload := []byte(`{"eventType":"Payment","data":{"id":99,"state":"Authorized"}}`)
	newRouter := func(svc *MockHelloAssoProcessor, token string) *gin.Engine {
		r := gin.New()
		r.POST("/webhooks/helloasso", NewHelloAssoWebhookHandler(svc, token, nil).Handle)
		return r
	}

	t.Run("valid token", func(t *testing.T) {
		svc := new(MockHelloAssoProcessor)
		svc.On("HandleHelloAssoNotification", mock.Anything, payload).Return(&paymentapp.WebhookResult{
			EventID: "payment:99", EventType: "Payment", Processed: true, Message: paymentapp.OutcomeProcessed,
		}, nil)

		w := postWebhook(newRouter(svc, "s3cret"), "/webhooks/helloasso?token=s3cret", payload, "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeWebhook(t, w)
		assert.True(t, resp.Received)
		assert.Equal(t, "payment:99", resp.EventID)
	})

	t.Run("wrong token", func(t *testing.T) {
		svc := new(MockHelloAssoProcessor)
		w := postWebhook(newRouter(svc, "s3cret"), "/webhooks/helloasso?token=guess", payload, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "HandleHelloAssoNotification", mock.Anything, mock.Anything)
	})

	t.Run("endpoint closed without a configured token", func(t *testing.T) {
		svc := new(MockHelloAssoProcessor)
		w := postWebhook(newRouter(svc, ""), "/webhooks/helloasso?token=", payload, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		svc := new(MockHelloAssoProcessor)
		svc.On("HandleHelloAssoNotification", mock.Anything, []byte(`nope`)).Return(nil, errors.New("invalid character"))

		w := postWebhook(newRouter(svc, "s3cret"), "/webhooks/helloasso?token=s3cret", []byte(`nope`), "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid notification payload", decodeWebhook(t, w).Error)
	})
}
