package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amicale-sp/calendriers/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrHelloAssoDisabled is returned when the integration is switched off.
var ErrHelloAssoDisabled = errors.New("helloasso: integration disabled")

// HelloAssoClient calls the HelloAsso v5 API with a client-credentials token.
type HelloAssoClient struct {
	baseURL string
	orgSlug string
	http    *http.Client
	logger  *zap.Logger
}

// NewHelloAssoClient builds the client. Tokens are fetched lazily and
// refreshed by the oauth2 transport.
func NewHelloAssoClient(cfg config.HelloAssoConfig, logger *zap.Logger) (*HelloAssoClient, error) {
	if !cfg.Enabled {
		return nil, ErrHelloAssoDisabled
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.OrganizationSlug == "" {
		return nil, fmt.Errorf("helloasso: client id, secret and organization slug are required")
	}

	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout

	return &HelloAssoClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		orgSlug: cfg.OrganizationSlug,
		http:    client,
		logger:  logger,
	}, nil
}

// CreateCheckoutIntent opens a HelloAsso checkout for the organization.
func (c *HelloAssoClient) CreateCheckoutIntent(ctx context.Context, req HelloAssoCheckoutRequest) (*HelloAssoCheckout, error) {
	if req.TotalAmount <= 0 {
		return nil, fmt.Errorf("helloasso: amount must be positive")
	}
	if req.InitialAmount == 0 {
		req.InitialAmount = req.TotalAmount
	}
	path := fmt.Sprintf("/v5/organizations/%s/checkout-intents", c.orgSlug)

	var out HelloAssoCheckout
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Created HelloAsso checkout intent",
		zap.Int64("checkout_intent_id", out.ID),
		zap.Int64("amount_cents", req.TotalAmount))
	return &out, nil
}

func (c *HelloAssoClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("helloasso: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("helloasso: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("helloasso: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("HelloAsso API error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", msg))
		return fmt.Errorf("helloasso: %s %s returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("helloasso: decode response: %w", err)
	}
	return nil
}

// ParseHelloAssoNotification decodes a notification envelope.
func ParseHelloAssoNotification(payload []byte) (*HelloAssoNotification, error) {
	var n HelloAssoNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("helloasso: invalid notification: %w", err)
	}
	if n.EventType == "" {
		return nil, fmt.Errorf("helloasso: notification has no eventType")
	}
	return &n, nil
}
