package zones

import (
	"context"
	"sync"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// Navigator walks the read-only three-level location tree (zone ->
// sub-zone -> area) for address entry, keeping a breadcrumb of the path
// taken.
type Navigator struct {
	repo repository.ZoneRepository

	mu   sync.Mutex
	path []domain.LogisticsZone
}

// NewNavigator creates a navigator rooted at the top of the tree
func NewNavigator(repo repository.ZoneRepository) *Navigator {
	return &Navigator{repo: repo}
}

// Root resets the breadcrumb and lists the top-level zones
func (n *Navigator) Root(ctx context.Context) ([]domain.LogisticsZone, error) {
	children, err := n.repo.ChildrenOf(ctx, nil)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.path = nil
	n.mu.Unlock()

	return children, nil
}

// Descend steps into a zone, appending it to the breadcrumb, and lists its
// children
func (n *Navigator) Descend(ctx context.Context, zone domain.LogisticsZone) ([]domain.LogisticsZone, error) {
	children, err := n.repo.ChildrenOf(ctx, &zone.ID)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.path = append(n.path, zone)
	n.mu.Unlock()

	return children, nil
}

// NavigateTo jumps to breadcrumb index i, truncating the path to i+1
// elements, and re-queries the children of the path's last element
func (n *Navigator) NavigateTo(ctx context.Context, i int) ([]domain.LogisticsZone, error) {
	n.mu.Lock()
	if i < 0 || i >= len(n.path) {
		n.mu.Unlock()
		return nil, &apperrors.ErrValidation{Field: "index", Message: "breadcrumb index out of range"}
	}
	n.path = n.path[:i+1]
	last := n.path[len(n.path)-1]
	n.mu.Unlock()

	return n.repo.ChildrenOf(ctx, &last.ID)
}

// Breadcrumb returns a copy of the current path
func (n *Navigator) Breadcrumb() []domain.LogisticsZone {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]domain.LogisticsZone, len(n.path))
	copy(out, n.path)
	return out
}
