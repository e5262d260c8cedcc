package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// Store is the single source of truth for one identity's cart. Anonymous
// carts persist to the device-local guest store, authenticated carts to the
// record store; all mutation goes through the store so the selection stays
// consistent with the line set.
type Store struct {
	mu        sync.Mutex
	repos     *repository.Repositories
	notifier  Notifier
	logger    *zap.Logger
	identity  domain.Identity
	lines     []domain.CartLine
	selection *Selection
}

// NewStore creates a cart store for the given identity. Call Load before
// reading lines.
func NewStore(identity domain.Identity, repos *repository.Repositories, notifier Notifier, logger *zap.Logger) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Store{
		repos:     repos,
		notifier:  notifier,
		logger:    logger,
		identity:  identity,
		selection: NewSelection(),
	}
}

// Identity returns the identity the store is scoped to
func (s *Store) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Load refreshes the cart from its backing store and reconciles the
// selection. Guest-side corruption resets to an empty cart; remote failure
// leaves the previous in-memory state untouched.
func (s *Store) Load(ctx context.Context) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.fetch(ctx)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("identity", s.identity.Key()), zap.Error(err))
		return nil, err
	}

	s.commit(lines)
	return s.snapshot(), nil
}

// Add puts quantity units of a product (and optional variant) in the cart.
// An existing line for the same (product, variant) pair has its quantity
// incremented; a new line is appended otherwise.
func (s *Store) Add(ctx context.Context, productID string, variantID *string, quantity int) ([]domain.CartLine, error) {
	if quantity < 1 {
		return nil, &apperrors.ErrValidation{Field: "quantity", Message: "must be at least 1"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		lines []domain.CartLine
		err   error
	)
	if s.identity.Authenticated() {
		lines, err = s.addRemote(ctx, productID, variantID, quantity)
	} else {
		lines, err = s.addGuest(ctx, productID, variantID, quantity)
	}
	if err != nil {
		s.logger.Error("Failed to add to cart",
			zap.String("identity", s.identity.Key()),
			zap.String("product_id", productID),
			zap.Error(err))
		return nil, err
	}

	s.commit(lines)
	s.notifier.Notify(Notification{Message: "Added to cart"})
	return s.snapshot(), nil
}

// Remove deletes one line from the cart
func (s *Store) Remove(ctx context.Context, lineID string) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, lineID)
}

// SetQuantity updates one line's quantity; zero or negative removes the
// line entirely
func (s *Store) SetQuantity(ctx context.Context, lineID string, quantity int) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, lineID)
	}

	if s.identity.Authenticated() {
		if err := s.repos.CartLine.UpdateQuantity(ctx, s.identity.UserID, lineID, quantity); err != nil {
			return nil, err
		}
		lines, err := s.repos.CartLine.ListByUser(ctx, s.identity.UserID)
		if err != nil {
			s.logger.Error("Failed to reload cart after quantity update", zap.Error(err))
			return nil, err
		}
		s.commit(lines)
		return s.snapshot(), nil
	}

	lines := s.copyLines()
	found := false
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return nil, &apperrors.ErrNotFound{Resource: "cart_line", ID: lineID}
	}

	if err := s.repos.GuestCart.Save(ctx, s.identity.DeviceID, lines); err != nil {
		return nil, err
	}

	s.commit(lines)
	return s.snapshot(), nil
}

// Clear empties the cart for the current identity
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.Authenticated() {
		if err := s.repos.CartLine.DeleteByUser(ctx, s.identity.UserID); err != nil {
			return err
		}
	} else {
		if err := s.repos.GuestCart.Clear(ctx, s.identity.DeviceID); err != nil {
			return err
		}
	}

	s.commit(nil)
	return nil
}

// ClearLines removes the given lines, leaving the rest of the cart
// untouched. Used once per checkout, after the payment is verified.
func (s *Store) ClearLines(ctx context.Context, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.Authenticated() {
		if err := s.repos.CartLine.DeleteMany(ctx, s.identity.UserID, lineIDs); err != nil {
			return err
		}
		lines, err := s.repos.CartLine.ListByUser(ctx, s.identity.UserID)
		if err != nil {
			s.logger.Error("Failed to reload cart after checkout clear", zap.Error(err))
			return err
		}
		s.commit(lines)
		return nil
	}

	drop := make(map[string]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = struct{}{}
	}

	var kept []domain.CartLine
	for _, line := range s.lines {
		if _, ok := drop[line.ID]; !ok {
			kept = append(kept, line)
		}
	}

	if err := s.repos.GuestCart.Save(ctx, s.identity.DeviceID, kept); err != nil {
		return err
	}

	s.commit(kept)
	return nil
}

// Lines returns a copy of the current cart lines
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// ToggleSelection flips one line's checkout selection
func (s *Store) ToggleSelection(lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range s.lines {
		if line.ID == lineID {
			s.selection.Toggle(line)
			return nil
		}
	}
	return &apperrors.ErrNotFound{Resource: "cart_line", ID: lineID}
}

// ToggleSelectAll selects every line, or deselects all when everything is
// already selected
func (s *Store) ToggleSelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.ToggleAll(s.lines)
}

// Checkout is the selection-derived view the pricing engine and payment
// orchestrator consume
type Checkout struct {
	LineIDs  []string
	Lines    []domain.CartLine
	Subtotal float64
	Count    int
	Weight   float64
}

// SelectedCheckout snapshots the current selection
func (s *Store) SelectedCheckout() Checkout {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Checkout{
		LineIDs:  s.selection.SelectedIDs(s.lines),
		Lines:    s.selection.SelectedLines(s.lines),
		Subtotal: s.selection.SelectedSubtotal(s.lines),
		Count:    s.selection.SelectedCount(s.lines),
		Weight:   s.selection.SelectedWeight(s.lines),
	}
}

// IsSelected reports one line's selection state
func (s *Store) IsSelected(lineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IsSelected(lineID)
}

func (s *Store) removeLocked(ctx context.Context, lineID string) ([]domain.CartLine, error) {
	if s.identity.Authenticated() {
		if err := s.repos.CartLine.Delete(ctx, s.identity.UserID, lineID); err != nil {
			return nil, err
		}
		lines, err := s.repos.CartLine.ListByUser(ctx, s.identity.UserID)
		if err != nil {
			s.logger.Error("Failed to reload cart after remove", zap.Error(err))
			return nil, err
		}
		s.commit(lines)
		return s.snapshot(), nil
	}

	var kept []domain.CartLine
	for _, line := range s.lines {
		if line.ID != lineID {
			kept = append(kept, line)
		}
	}

	if err := s.repos.GuestCart.Save(ctx, s.identity.DeviceID, kept); err != nil {
		return nil, err
	}

	s.commit(kept)
	return s.snapshot(), nil
}

func (s *Store) addGuest(ctx context.Context, productID string, variantID *string, quantity int) ([]domain.CartLine, error) {
	line, err := s.buildLine(ctx, productID, variantID, quantity)
	if err != nil {
		return nil, err
	}

	lines := s.copyLines()
	merged := false
	for i := range lines {
		if lines[i].ProductKey() == line.ProductKey() {
			lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		line.ID = newGuestLineID()
		lines = append(lines, *line)
	}

	if err := s.repos.GuestCart.Save(ctx, s.identity.DeviceID, lines); err != nil {
		return nil, err
	}

	return lines, nil
}

func (s *Store) addRemote(ctx context.Context, productID string, variantID *string, quantity int) ([]domain.CartLine, error) {
	existing, err := s.repos.CartLine.FindByProductVariant(ctx, s.identity.UserID, productID, variantID)

	var notFound *apperrors.ErrNotFound
	switch {
	case err == nil:
		if err := s.repos.CartLine.UpdateQuantity(ctx, s.identity.UserID, existing.ID, existing.Quantity+quantity); err != nil {
			return nil, err
		}
	case errors.As(err, &notFound):
		// Reject unknown products before inserting
		if _, err := s.repos.Product.GetByID(ctx, productID); err != nil {
			return nil, err
		}
		line := &domain.CartLine{
			ProductID: productID,
			VariantID: variantID,
			Quantity:  quantity,
		}
		if err := s.repos.CartLine.Insert(ctx, s.identity.UserID, line); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.repos.CartLine.ListByUser(ctx, s.identity.UserID)
}

// buildLine resolves catalog data into a displayable guest line. The
// effective unit price is the base price plus the variant's modifier.
func (s *Store) buildLine(ctx context.Context, productID string, variantID *string, quantity int) (*domain.CartLine, error) {
	product, err := s.repos.Product.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	line := &domain.CartLine{
		ProductID: productID,
		VariantID: variantID,
		Name:      product.Name,
		UnitPrice: product.BasePrice,
		Image:     product.Image,
		Quantity:  quantity,
		Weight:    product.Weight,
	}

	if variantID != nil {
		variant, err := s.repos.Product.GetVariant(ctx, *variantID)
		if err != nil {
			return nil, err
		}
		if variant.ProductID != productID {
			return nil, &apperrors.ErrValidation{Field: "variant_id", Message: "variant does not belong to product"}
		}
		line.UnitPrice += variant.PriceModifier
		line.VariantLabel = &variant.Label
	}

	return line, nil
}

func (s *Store) fetch(ctx context.Context) ([]domain.CartLine, error) {
	if s.identity.Authenticated() {
		return s.repos.CartLine.ListByUser(ctx, s.identity.UserID)
	}
	return s.repos.GuestCart.Load(ctx, s.identity.DeviceID)
}

// commit installs a new line set and reconciles the selection with it
func (s *Store) commit(lines []domain.CartLine) {
	s.lines = lines
	s.selection.Reconcile(lines)
}

func (s *Store) copyLines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) snapshot() []domain.CartLine {
	return s.copyLines()
}

func newGuestLineID() string {
	return fmt.Sprintf("guest-%d-%04d", time.Now().UnixNano(), rand.Intn(10000))
}
