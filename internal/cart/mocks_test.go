package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// mockCartLineRepository keeps authenticated carts in memory and can fail
// selectively while syncing a given product
type mockCartLineRepository struct {
	mu            sync.Mutex
	lines         map[string][]domain.CartLine // userID -> lines
	products      *mockProductRepository
	nextID        int
	listErr       error
	failProductID string
}

func newMockCartLineRepository(products *mockProductRepository) *mockCartLineRepository {
	return &mockCartLineRepository{
		lines:    make(map[string][]domain.CartLine),
		products: products,
	}
}

func (m *mockCartLineRepository) ListByUser(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	out := make([]domain.CartLine, 0, len(m.lines[userID]))
	for _, line := range m.lines[userID] {
		if m.products != nil {
			product, ok := m.products.products[line.ProductID]
			if !ok {
				// Orphan lines are dropped from the join
				continue
			}
			line.Name = product.Name
			line.UnitPrice = product.BasePrice
			line.Image = product.Image
			line.Weight = product.Weight
			if line.VariantID != nil {
				if variant, ok := m.products.variants[*line.VariantID]; ok {
					line.UnitPrice += variant.PriceModifier
					label := variant.Label
					line.VariantLabel = &label
				}
			}
		}
		out = append(out, line)
	}
	return out, nil
}

func (m *mockCartLineRepository) FindByProductVariant(_ context.Context, userID, productID string, variantID *string) (*domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, line := range m.lines[userID] {
		if line.ProductID == productID && equalVariant(line.VariantID, variantID) {
			found := line
			return &found, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "cart_line", ID: productID}
}

func (m *mockCartLineRepository) Insert(_ context.Context, userID string, line *domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failProductID != "" && line.ProductID == m.failProductID {
		return fmt.Errorf("simulated insert failure for %s", line.ProductID)
	}

	m.nextID++
	line.ID = fmt.Sprintf("line-%d", m.nextID)
	m.lines[userID] = append(m.lines[userID], *line)
	return nil
}

func (m *mockCartLineRepository) UpdateQuantity(_ context.Context, userID, lineID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines[userID] {
		if m.lines[userID][i].ID == lineID {
			if m.failProductID != "" && m.lines[userID][i].ProductID == m.failProductID {
				return fmt.Errorf("simulated update failure for %s", m.lines[userID][i].ProductID)
			}
			m.lines[userID][i].Quantity = quantity
			return nil
		}
	}
	return &apperrors.ErrNotFound{Resource: "cart_line", ID: lineID}
}

func (m *mockCartLineRepository) Delete(_ context.Context, userID, lineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.lines[userID][:0]
	for _, line := range m.lines[userID] {
		if line.ID != lineID {
			kept = append(kept, line)
		}
	}
	m.lines[userID] = kept
	return nil
}

func (m *mockCartLineRepository) DeleteMany(_ context.Context, userID string, lineIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = struct{}{}
	}

	kept := m.lines[userID][:0]
	for _, line := range m.lines[userID] {
		if _, ok := drop[line.ID]; !ok {
			kept = append(kept, line)
		}
	}
	m.lines[userID] = kept
	return nil
}

func (m *mockCartLineRepository) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, userID)
	return nil
}

func (m *mockCartLineRepository) quantityOf(userID, productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.lines[userID] {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

func (m *mockCartLineRepository) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines[userID])
}

// mockProductRepository serves a fixed catalog
type mockProductRepository struct {
	products map[string]domain.Product
	variants map[string]domain.ProductVariant
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[string]domain.Product),
		variants: make(map[string]domain.ProductVariant),
	}
}

func (m *mockProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "product", ID: id}
	}
	return &product, nil
}

func (m *mockProductRepository) GetVariant(_ context.Context, variantID string) (*domain.ProductVariant, error) {
	variant, ok := m.variants[variantID]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "product_variant", ID: variantID}
	}
	return &variant, nil
}

// mockGuestCartRepository keeps guest carts in memory with optional save
// failure injection
type mockGuestCartRepository struct {
	mu       sync.Mutex
	carts    map[string][]domain.CartLine
	saveErr  error
	loadErr  error
	clearErr error
	cleared  []string
}

func newMockGuestCartRepository() *mockGuestCartRepository {
	return &mockGuestCartRepository{carts: make(map[string][]domain.CartLine)}
}

func (m *mockGuestCartRepository) Load(_ context.Context, deviceID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]domain.CartLine, len(m.carts[deviceID]))
	copy(out, m.carts[deviceID])
	return out, nil
}

func (m *mockGuestCartRepository) Save(_ context.Context, deviceID string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored := make([]domain.CartLine, len(lines))
	copy(stored, lines)
	m.carts[deviceID] = stored
	return nil
}

func (m *mockGuestCartRepository) Clear(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.carts, deviceID)
	m.cleared = append(m.cleared, deviceID)
	return nil
}

func (m *mockGuestCartRepository) stored(deviceID string) []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[deviceID]
}

// recordingNotifier captures fire-and-forget notifications
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, notification.Message)
}

func equalVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func testRepos(products *mockProductRepository, cartLines *mockCartLineRepository, guest *mockGuestCartRepository) *repository.Repositories {
	return &repository.Repositories{
		CartLine:  cartLines,
		Product:   products,
		GuestCart: guest,
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
