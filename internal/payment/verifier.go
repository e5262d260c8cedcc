package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
)

// VerifyRequest is forwarded to the server-side verification endpoint,
// which alone decides whether the payment actually succeeded. The endpoint
// is idempotent on reference, so a retry is safe server-side.
type VerifyRequest struct {
	Reference        string   `json:"reference"`
	DeliveryMethodID string   `json:"delivery_method_id"`
	AddressID        string   `json:"address_id"`
	DiscountCode     *string  `json:"discount_code,omitempty"`
	SelectedLineIDs  []string `json:"selected_line_ids"`
}

// VerifyResult is the order confirmation returned on success
type VerifyResult struct {
	OrderID   string `json:"order_id"`
	Reference string `json:"reference"`
}

// ErrVerificationRejected means the verification endpoint answered and
// said no. Distinct from a transport failure: the provider may already
// hold the funds.
type ErrVerificationRejected struct {
	Message string
}

func (e *ErrVerificationRejected) Error() string {
	return fmt.Sprintf("verification rejected: %s", e.Message)
}

// Verifier confirms a provider callback with the server-side endpoint
type Verifier interface {
	Verify(ctx context.Context, sessionToken string, req VerifyRequest) (*VerifyResult, error)
}

// HTTPVerifier calls the configured verification endpoint with the
// caller's session token
type HTTPVerifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPVerifier creates a verifier for the configured endpoint
func NewHTTPVerifier(cfg config.PaymentConfig, logger *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		url: cfg.VerifyURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type verifyErrorResponse struct {
	Error string `json:"error"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, sessionToken string, verifyReq VerifyRequest) (*VerifyResult, error) {
	jsonData, err := json.Marshal(verifyReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The endpoint answered: this is a rejection, not a transport
		// failure, and the caller must treat it as payment-ambiguous.
		var errResp verifyErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, &ErrVerificationRejected{Message: errResp.Error}
		}
		return nil, &ErrVerificationRejected{Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var result VerifyResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}
