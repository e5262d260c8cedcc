package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/cart"
	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/payment"
	"github.com/okaziba/storefront/internal/pricing"
	"github.com/okaziba/storefront/internal/repository"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubCartLineRepository serves pre-seeded, already-joined lines per user
type stubCartLineRepository struct {
	mu    sync.Mutex
	lines map[string][]domain.CartLine
}

func (s *stubCartLineRepository) ListByUser(_ context.Context, userID string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines[userID]))
	copy(out, s.lines[userID])
	return out, nil
}

func (s *stubCartLineRepository) FindByProductVariant(_ context.Context, userID, productID string, variantID *string) (*domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.lines[userID] {
		if line.ProductID == productID {
			found := line
			return &found, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "cart_line", ID: productID}
}

func (s *stubCartLineRepository) Insert(_ context.Context, userID string, line *domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line.ID = fmt.Sprintf("line-%d", len(s.lines[userID])+1)
	s.lines[userID] = append(s.lines[userID], *line)
	return nil
}

func (s *stubCartLineRepository) UpdateQuantity(_ context.Context, userID, lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines[userID] {
		if s.lines[userID][i].ID == lineID {
			s.lines[userID][i].Quantity = quantity
			return nil
		}
	}
	return &apperrors.ErrNotFound{Resource: "cart_line", ID: lineID}
}

func (s *stubCartLineRepository) Delete(_ context.Context, userID, lineID string) error {
	return s.DeleteMany(context.Background(), userID, []string{lineID})
}

func (s *stubCartLineRepository) DeleteMany(_ context.Context, userID string, lineIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = struct{}{}
	}
	kept := s.lines[userID][:0]
	for _, line := range s.lines[userID] {
		if _, ok := drop[line.ID]; !ok {
			kept = append(kept, line)
		}
	}
	s.lines[userID] = kept
	return nil
}

func (s *stubCartLineRepository) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, userID)
	return nil
}

func (s *stubCartLineRepository) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines[userID])
}

type stubProductRepository struct {
	products map[string]domain.Product
}

func (s *stubProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "product", ID: id}
	}
	return &product, nil
}

func (s *stubProductRepository) GetVariant(_ context.Context, variantID string) (*domain.ProductVariant, error) {
	return nil, &apperrors.ErrNotFound{Resource: "product_variant", ID: variantID}
}

type stubGuestCartRepository struct {
	mu    sync.Mutex
	carts map[string][]domain.CartLine
}

func (s *stubGuestCartRepository) Load(_ context.Context, deviceID string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.carts[deviceID]))
	copy(out, s.carts[deviceID])
	return out, nil
}

func (s *stubGuestCartRepository) Save(_ context.Context, deviceID string, lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]domain.CartLine, len(lines))
	copy(stored, lines)
	s.carts[deviceID] = stored
	return nil
}

func (s *stubGuestCartRepository) Clear(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, deviceID)
	return nil
}

type stubAddressRepository struct {
	addresses map[string]domain.ShippingAddress
}

func (s *stubAddressRepository) ListByUser(_ context.Context, userID string) ([]domain.ShippingAddress, error) {
	var out []domain.ShippingAddress
	for _, addr := range s.addresses {
		if addr.UserID == userID {
			out = append(out, addr)
		}
	}
	return out, nil
}

func (s *stubAddressRepository) GetByID(_ context.Context, id string) (*domain.ShippingAddress, error) {
	addr, ok := s.addresses[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "shipping_address", ID: id}
	}
	return &addr, nil
}

func (s *stubAddressRepository) Create(_ context.Context, address *domain.ShippingAddress) error {
	s.addresses[address.ID] = *address
	return nil
}

func (s *stubAddressRepository) SetDefault(_ context.Context, _, _ string) error {
	return nil
}

type stubZoneRepository struct {
	zones map[string]domain.LogisticsZone
}

func (s *stubZoneRepository) ChildrenOf(_ context.Context, parentID *string) ([]domain.LogisticsZone, error) {
	var out []domain.LogisticsZone
	for _, zone := range s.zones {
		if parentID == nil && zone.ParentID == nil {
			out = append(out, zone)
		} else if parentID != nil && zone.ParentID != nil && *zone.ParentID == *parentID {
			out = append(out, zone)
		}
	}
	return out, nil
}

func (s *stubZoneRepository) GetByID(_ context.Context, id string) (*domain.LogisticsZone, error) {
	zone, ok := s.zones[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "logistics_zone", ID: id}
	}
	return &zone, nil
}

func (s *stubZoneRepository) Create(_ context.Context, zone *domain.LogisticsZone) error {
	s.zones[zone.ID] = *zone
	return nil
}

type stubDeliveryMethodRepository struct {
	methods map[string]domain.DeliveryMethod
}

func (s *stubDeliveryMethodRepository) List(_ context.Context) ([]domain.DeliveryMethod, error) {
	var out []domain.DeliveryMethod
	for _, m := range s.methods {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubDeliveryMethodRepository) GetByID(_ context.Context, id string) (*domain.DeliveryMethod, error) {
	m, ok := s.methods[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "delivery_method", ID: id}
	}
	return &m, nil
}

type stubDiscountRepository struct{}

func (s *stubDiscountRepository) GetByCode(_ context.Context, code string) (*domain.DiscountCode, error) {
	return nil, &apperrors.ErrNotFound{Resource: "discount_code", ID: code}
}

// gateQuoter blocks every quote until release is closed, then records the
// context state it observed. A quote fired on a cancelled context fails the
// way a real HTTP call would.
type gateQuoter struct {
	fee     float64
	release chan struct{}

	mu      sync.Mutex
	ctxErrs []error
}

func newGateQuoter(fee float64) *gateQuoter {
	return &gateQuoter{fee: fee, release: make(chan struct{})}
}

func (q *gateQuoter) DeliveryFee(ctx context.Context, _ pricing.QuoteRequest) (float64, error) {
	select {
	case <-q.release:
	case <-ctx.Done():
	}

	q.mu.Lock()
	q.ctxErrs = append(q.ctxErrs, ctx.Err())
	q.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return q.fee, nil
}

func (q *gateQuoter) contextErrs() []error {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]error, len(q.ctxErrs))
	copy(out, q.ctxErrs)
	return out
}

type stubSessionInitiator struct{}

func (s *stubSessionInitiator) Initialize(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	return &payment.Session{
		Reference:        req.Reference,
		AccessCode:       "AC_test",
		AuthorizationURL: "https://pay.example/AC_test",
	}, nil
}

type stubVerifier struct{}

func (s *stubVerifier) Verify(_ context.Context, _ string, req payment.VerifyRequest) (*payment.VerifyResult, error) {
	return &payment.VerifyResult{OrderID: "order-1", Reference: req.Reference}, nil
}

type testEnv struct {
	deps      *Deps
	quoter    *gateQuoter
	cartLines *stubCartLineRepository
}

// newTestEnv seeds user-1 with one selected line (100.00, weight 2), an
// address in the z1/z2/z3 zone path, and an express method with a 5.00
// premium. The quoter answers 25.00 once released.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cartLines := &stubCartLineRepository{lines: map[string][]domain.CartLine{
		"user-1": {{ID: "l1", ProductID: "p1", Name: "Rice 5kg", UnitPrice: 100, Quantity: 1, Weight: 2}},
	}}

	z1 := "z1"
	z2 := "z2"
	repos := &repository.Repositories{
		CartLine:  cartLines,
		Product:   &stubProductRepository{products: map[string]domain.Product{}},
		GuestCart: &stubGuestCartRepository{carts: map[string][]domain.CartLine{}},
		Address: &stubAddressRepository{addresses: map[string]domain.ShippingAddress{
			"addr-1": {ID: "addr-1", UserID: "user-1", ZoneID: "z1", SubZoneID: "z2", AreaID: "z3"},
		}},
		Zone: &stubZoneRepository{zones: map[string]domain.LogisticsZone{
			"z1": {ID: "z1", Name: "North"},
			"z2": {ID: "z2", ParentID: &z1, Name: "North Central"},
			"z3": {ID: "z3", ParentID: &z2, Name: "Wuse Market"},
		}},
		Discount: &stubDiscountRepository{},
		DeliveryMethod: &stubDeliveryMethodRepository{methods: map[string]domain.DeliveryMethod{
			"express": {ID: "express", Name: "Express", Premium: 5},
		}},
	}

	logger := zap.NewNop()
	quoter := newGateQuoter(25)

	deps := &Deps{
		Cfg: &config.Config{
			Payment: config.PaymentConfig{Currency: "NGN", ProcessingWindow: time.Minute},
		},
		Repos:     repos,
		Carts:     cart.NewManager(repos, nil, logger),
		Quoter:    quoter,
		Discounts: pricing.NewDiscountValidator(repos, logger),
		Provider:  &stubSessionInitiator{},
		Verifier:  &stubVerifier{},
		Checkouts: NewCheckoutSessions(),
		Logger:    logger,
	}

	return &testEnv{deps: deps, quoter: quoter, cartLines: cartLines}
}

func newRequestContext(t *testing.T, method, target, body string, identity domain.Identity) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.Request = req
	c.Set("identity", identity)
	return c, w
}
