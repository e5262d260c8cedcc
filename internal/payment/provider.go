package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
)

// Session is an open payment window at the provider
type Session struct {
	Reference        string
	AccessCode       string
	AuthorizationURL string
}

// SessionRequest starts a provider checkout for one payment attempt.
// Amount is in major currency units; the provider wire format wants minor
// units and the client converts.
type SessionRequest struct {
	Email     string
	Amount    float64
	Currency  string
	Reference string
	Metadata  map[string]interface{}
}

// SessionInitiator opens payment sessions with the external provider
type SessionInitiator interface {
	Initialize(ctx context.Context, req SessionRequest) (*Session, error)
}

// ProviderClient talks to the hosted payment provider's REST API
type ProviderClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewProviderClient creates a payment provider client
func NewProviderClient(cfg config.PaymentConfig, logger *zap.Logger) *ProviderClient {
	return &ProviderClient{
		baseURL:   strings.TrimSuffix(cfg.ProviderBaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type initializeRequest struct {
	Email     string                 `json:"email"`
	Amount    int64                  `json:"amount"` // minor currency units
	Currency  string                 `json:"currency"`
	Reference string                 `json:"reference"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (c *ProviderClient) Initialize(ctx context.Context, sessionReq SessionRequest) (*Session, error) {
	url := fmt.Sprintf("%s/transaction/initialize", c.baseURL)

	reqBody := initializeRequest{
		Email:     sessionReq.Email,
		Amount:    toMinorUnits(sessionReq.Amount),
		Currency:  sessionReq.Currency,
		Reference: sessionReq.Reference,
		Metadata:  sessionReq.Metadata,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var initResp initializeResponse
	if err := json.Unmarshal(body, &initResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !initResp.Status {
		return nil, fmt.Errorf("provider rejected session: %s", initResp.Message)
	}

	return &Session{
		Reference:        initResp.Data.Reference,
		AccessCode:       initResp.Data.AccessCode,
		AuthorizationURL: initResp.Data.AuthorizationURL,
	}, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
