package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
)

func newVerifier(url string) *HTTPVerifier {
	return NewHTTPVerifier(config.PaymentConfig{VerifyURL: url, Timeout: 5 * time.Second}, zap.NewNop())
}

func TestVerify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))

		var req VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref-1", req.Reference)
		assert.Equal(t, []string{"l1", "l2"}, req.SelectedLineIDs)

		json.NewEncoder(w).Encode(VerifyResult{OrderID: "order-9", Reference: req.Reference})
	}))
	defer server.Close()

	result, err := newVerifier(server.URL).Verify(context.Background(), "session-token", VerifyRequest{
		Reference:        "ref-1",
		DeliveryMethodID: "express",
		AddressID:        "addr-1",
		SelectedLineIDs:  []string{"l1", "l2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order-9", result.OrderID)
}

func TestVerify_RejectionCarriesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "amount mismatch"}`))
	}))
	defer server.Close()

	_, err := newVerifier(server.URL).Verify(context.Background(), "t", VerifyRequest{Reference: "ref-1"})

	var rejected *ErrVerificationRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "amount mismatch", rejected.Message)
}

func TestVerify_RejectionWithoutBodyStillTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newVerifier(server.URL).Verify(context.Background(), "t", VerifyRequest{Reference: "ref-1"})

	var rejected *ErrVerificationRejected
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Message, "403")
}

func TestVerify_TransportFailureIsNotRejection(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close() // connection refused

	_, err := newVerifier(server.URL).Verify(context.Background(), "t", VerifyRequest{Reference: "ref-1"})
	require.Error(t, err)

	var rejected *ErrVerificationRejected
	assert.False(t, errors.As(err, &rejected))
}
