package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	donationapp "github.com/amicale-sp/calendriers/internal/application/donation"
	paymentapp "github.com/amicale-sp/calendriers/internal/application/payment"
	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/amicale-sp/calendriers/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// asUser simulates JWTAuth for a collector.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Next()
	}
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type MockDonationSubmitter struct {
	mock.Mock
}

func (m *MockDonationSubmitter) SubmitDonation(ctx context.Context, userID uuid.UUID, form donation.DonationForm) (*donationapp.SubmitResult, error) {
	args := m.Called(ctx, userID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donationapp.SubmitResult), args.Error(1)
}

type MockTourneeManager struct {
	mock.Mock
}

func (m *MockTourneeManager) StartTournee(ctx context.Context, userID uuid.UUID, in donationapp.StartTourneeInput) (*donation.Tournee, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Tournee), args.Error(1)
}

func (m *MockTourneeManager) GetTournee(ctx context.Context, userID, id uuid.UUID) (*donation.Tournee, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Tournee), args.Error(1)
}

func (m *MockTourneeManager) ListTournees(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[donation.Tournee], error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).(shared.Paginated[donation.Tournee]), args.Error(1)
}

func (m *MockTourneeManager) TourneeSummary(ctx context.Context, userID, id uuid.UUID) (*donation.TourneeTotals, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.TourneeTotals), args.Error(1)
}

func (m *MockTourneeManager) ListTransactions(ctx context.Context, userID, id uuid.UUID, filter shared.Filter) (shared.Paginated[donation.SupportTransaction], error) {
	args := m.Called(ctx, userID, id, filter)
	return args.Get(0).(shared.Paginated[donation.SupportTransaction]), args.Error(1)
}

func (m *MockTourneeManager) CloseTournee(ctx context.Context, userID, tourneeID uuid.UUID, form donation.ClosureForm) (*donationapp.CloseResult, error) {
	args := m.Called(ctx, userID, tourneeID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donationapp.CloseResult), args.Error(1)
}

type MockReceiptResender struct {
	mock.Mock
}

func (m *MockReceiptResender) ResendReceipt(ctx context.Context, userID, receiptID uuid.UUID) (*donation.Receipt, error) {
	args := m.Called(ctx, userID, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donation.Receipt), args.Error(1)
}

type MockCheckoutCreator struct {
	mock.Mock
}

func (m *MockCheckoutCreator) CreateLandingCheckout(ctx context.Context, in paymentapp.CheckoutInput) (*paymentapp.CheckoutResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutCreator) CreateTourneeCheckout(ctx context.Context, userID, tourneeID uuid.UUID, in paymentapp.CheckoutInput) (*paymentapp.CheckoutResult, error) {
	args := m.Called(ctx, userID, tourneeID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutCreator) CreateDonationIntent(ctx context.Context, userID, tourneeID uuid.UUID, in paymentapp.CheckoutInput) (*paymentapp.IntentResult, error) {
	args := m.Called(ctx, userID, tourneeID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.IntentResult), args.Error(1)
}

func (m *MockCheckoutCreator) CreateHelloAssoCheckout(ctx context.Context, userID, tourneeID uuid.UUID, in paymentapp.CheckoutInput) (*paymentapp.CheckoutResult, error) {
	args := m.Called(ctx, userID, tourneeID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.CheckoutResult), args.Error(1)
}

type MockStripeWebhookProcessor struct {
	mock.Mock
}

func (m *MockStripeWebhookProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.WebhookResult), args.Error(1)
}

type MockHelloAssoProcessor struct {
	mock.Mock
}

func (m *MockHelloAssoProcessor) HandleHelloAssoNotification(ctx context.Context, payload []byte) (*paymentapp.WebhookResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.WebhookResult), args.Error(1)
}
