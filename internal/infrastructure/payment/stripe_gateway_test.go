package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	"go.uber.org/zap"
)

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

func setupMockBackend(t *testing.T, handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) {
	t.Helper()
	stripe.SetBackend(stripe.APIBackend, &mockBackend{handler: handler})
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, nil) })
}

func newTestGateway(t *testing.T) *StripeGateway {
	t.Helper()
	gw, err := NewStripeGateway(config.StripeConfig{SecretKey: "sk_test_123", Currency: "EUR"}, zap.NewNop())
	require.NoError(t, err)
	return gw
}

func TestNewStripeGateway_Validation(t *testing.T) {
	_, err := NewStripeGateway(config.StripeConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrStripeNotConfigured)

	_, err = NewStripeGateway(config.StripeConfig{SecretKey: "pk_test_123"}, zap.NewNop())
	assert.Error(t, err)

	gw, err := NewStripeGateway(config.StripeConfig{SecretKey: "sk_test_123"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "eur", gw.currency)
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	gw := newTestGateway(t)

	var gotPath string
	var gotParams *stripe.CheckoutSessionParams
	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		gotPath = path
		gotParams = params.(*stripe.CheckoutSessionParams)
		return []byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/cs_test_1","expires_at":1767225600}`), nil
	})

	sess, err := gw.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		AmountCents:   2500,
		ProductName:   "Don aux sapeurs-pompiers",
		CustomerEmail: "marie@example.fr",
		SuccessURL:    "https://site/merci",
		CancelURL:     "https://site/don",
		Metadata:      map[string]string{"source": "landing_page"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/checkout/sessions", gotPath)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, int64(1767225600), sess.ExpiresAt.Unix())
	require.Len(t, gotParams.LineItems, 1)
	assert.Equal(t, int64(2500), *gotParams.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "eur", *gotParams.LineItems[0].PriceData.Currency)
	assert.Equal(t, "landing_page", gotParams.Metadata["source"])
	assert.Equal(t, "landing_page", gotParams.PaymentIntentData.Metadata["source"])
}

func TestStripeGateway_CreateCheckoutSession_RejectsZeroAmount(t *testing.T) {
	gw := newTestGateway(t)
	_, err := gw.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{})
	assert.Error(t, err)
}

func TestStripeGateway_CreatePaymentIntent(t *testing.T) {
	gw := newTestGateway(t)
	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		p := params.(*stripe.PaymentIntentParams)
		assert.Equal(t, "intent-1", p.Metadata["donation_intent_id"])
		return []byte(`{"id":"pi_1","client_secret":"pi_1_secret","status":"requires_payment_method"}`), nil
	})

	h, err := gw.CreatePaymentIntent(context.Background(), PaymentIntentRequest{
		AmountCents: 1000,
		Metadata:    map[string]string{"donation_intent_id": "intent-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", h.ID)
	assert.Equal(t, "pi_1_secret", h.ClientSecret)
}

func TestStripeGateway_Lookups(t *testing.T) {
	gw := newTestGateway(t)
	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		switch {
		case strings.HasPrefix(path, "/v1/payment_intents/"):
			return []byte(`{"id":"pi_1","metadata":{"donation_intent_id":"abc"},"latest_charge":{"id":"ch_1"}}`), nil
		case strings.HasPrefix(path, "/v1/payment_methods/"):
			return []byte(`{"id":"pm_1","billing_details":{"name":"Jean Dupont","email":"jean@example.fr"}}`), nil
		case strings.HasPrefix(path, "/v1/charges/"):
			return []byte(`{"id":"ch_1","billing_details":{"name":"Paul Martin"}}`), nil
		}
		return nil, errors.New("unexpected path " + path)
	})
	ctx := context.Background()

	pi, err := gw.GetPaymentIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "abc", pi.Metadata["donation_intent_id"])
	assert.Equal(t, "ch_1", pi.LatestCharge.ID)

	pm, err := gw.GetPaymentMethod(ctx, "pm_1")
	require.NoError(t, err)
	assert.Equal(t, "jean@example.fr", pm.BillingDetails.Email)

	ch, err := gw.GetCharge(ctx, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, "Paul Martin", ch.BillingDetails.Name)
}

func TestStripeGateway_LookupError(t *testing.T) {
	gw := newTestGateway(t)
	setupMockBackend(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, Msg: "No such charge"}
	})
	_, err := gw.GetCharge(context.Background(), "ch_missing")
	assert.Error(t, err)
}
