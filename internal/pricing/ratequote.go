package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository"
)

// Destination is the shipping target resolved to zone names, the shape the
// external rate endpoint expects
type Destination struct {
	Zone    string `json:"zone"`
	SubZone string `json:"subZone"`
	Area    string `json:"area"`
}

// QuoteRequest is the payload for the admin-configured rate endpoint
type QuoteRequest struct {
	Location    Destination `json:"location"`
	CartTotal   float64     `json:"cartTotal"`
	ItemsWeight float64     `json:"itemsWeight"`
}

type quoteResponse struct {
	DeliveryFee float64 `json:"deliveryFee"`
}

// Quoter obtains a dynamic logistics fee for a destination and weight
type Quoter interface {
	DeliveryFee(ctx context.Context, req QuoteRequest) (float64, error)
}

// RateQuoteClient calls the external rate endpoint. A disabled feature or
// unset URL quotes zero; a malformed response quotes zero and logs.
type RateQuoteClient struct {
	cfg        config.RateQuoteConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRateQuoteClient creates a rate quote client
func NewRateQuoteClient(cfg config.RateQuoteConfig, logger *zap.Logger) *RateQuoteClient {
	return &RateQuoteClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *RateQuoteClient) DeliveryFee(ctx context.Context, quoteReq QuoteRequest) (float64, error) {
	if !c.cfg.Enabled || c.cfg.URL == "" {
		return 0, nil
	}

	jsonData, err := json.Marshal(quoteReq)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate quote error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var quoteResp quoteResponse
	if err := json.Unmarshal(body, &quoteResp); err != nil {
		// A misbehaving endpoint must not block checkout
		c.logger.Warn("Malformed rate quote response, treating fee as zero", zap.Error(err))
		return 0, nil
	}

	return quoteResp.DeliveryFee, nil
}

// ResolveDestination maps an address's zone ids to the names the rate
// endpoint expects
func ResolveDestination(ctx context.Context, zones repository.ZoneRepository, addr domain.ShippingAddress) (Destination, error) {
	var dest Destination

	zone, err := zones.GetByID(ctx, addr.ZoneID)
	if err != nil {
		return dest, err
	}
	subZone, err := zones.GetByID(ctx, addr.SubZoneID)
	if err != nil {
		return dest, err
	}
	area, err := zones.GetByID(ctx, addr.AreaID)
	if err != nil {
		return dest, err
	}

	dest.Zone = zone.Name
	dest.SubZone = subZone.Name
	dest.Area = area.Name
	return dest, nil
}

// FeeFetcher serializes rate quote refreshes with a last-request-wins
// guard. Quotes fired by rapid address changes are not cancelled; instead
// every refresh takes a sequence number and a completion only applies if no
// newer refresh started meanwhile, so a slow stale response can never
// overwrite a newer fee.
type FeeFetcher struct {
	quoter Quoter
	logger *zap.Logger

	mu      sync.Mutex
	seq     uint64
	fee     float64
	pending int
}

// NewFeeFetcher creates a fetcher around a quoter
func NewFeeFetcher(quoter Quoter, logger *zap.Logger) *FeeFetcher {
	return &FeeFetcher{
		quoter: quoter,
		logger: logger,
	}
}

// Refresh issues an asynchronous quote. The returned channel closes when
// this request's result has been applied or discarded.
func (f *FeeFetcher) Refresh(ctx context.Context, req QuoteRequest) <-chan struct{} {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.pending++
	f.mu.Unlock()

	done := make(chan struct{})

	go func() {
		defer close(done)

		fee, err := f.quoter.DeliveryFee(ctx, req)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.pending--

		if seq != f.seq {
			// A newer refresh started while this one was in flight
			return
		}
		if err != nil {
			// Keep the previous fee; the failure is logged and surfaced
			// as a non-blocking condition.
			f.logger.Error("Rate quote failed, keeping previous fee", zap.Error(err))
			return
		}
		f.fee = fee
	}()

	return done
}

// Fee returns the current dynamic fee and whether a refresh is in flight.
// Callers show a pending indicator instead of blocking on the fee.
func (f *FeeFetcher) Fee() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fee, f.pending > 0
}
