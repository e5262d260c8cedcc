package repository

import (
	"context"

	"github.com/okaziba/storefront/internal/domain"
)

// CartLineRepository persists authenticated users' cart lines in the
// record store
type CartLineRepository interface {
	// ListByUser returns the user's lines joined against products and
	// variants. Lines whose product no longer exists are dropped.
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)
	// FindByProductVariant looks up the user's line for a (product, variant)
	// pair; returns ErrNotFound when absent.
	FindByProductVariant(ctx context.Context, userID, productID string, variantID *string) (*domain.CartLine, error)
	Insert(ctx context.Context, userID string, line *domain.CartLine) error
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error
	Delete(ctx context.Context, userID, lineID string) error
	DeleteMany(ctx context.Context, userID string, lineIDs []string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// ProductRepository reads the catalog records cart lines are built from
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetVariant(ctx context.Context, variantID string) (*domain.ProductVariant, error)
}

// AddressRepository persists shipping addresses
type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.ShippingAddress, error)
	GetByID(ctx context.Context, id string) (*domain.ShippingAddress, error)
	Create(ctx context.Context, address *domain.ShippingAddress) error
	// SetDefault atomically clears the user's previous default and marks
	// the given address instead.
	SetDefault(ctx context.Context, userID, addressID string) error
}

// ZoneRepository reads the three-level logistics location tree
type ZoneRepository interface {
	// ChildrenOf returns the ordered children of a node; nil parentID
	// queries the roots.
	ChildrenOf(ctx context.Context, parentID *string) ([]domain.LogisticsZone, error)
	GetByID(ctx context.Context, id string) (*domain.LogisticsZone, error)
	Create(ctx context.Context, zone *domain.LogisticsZone) error
}

// DiscountRepository reads discount codes
type DiscountRepository interface {
	// GetByCode matches case-insensitively; returns ErrNotFound when absent.
	GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error)
}

// DeliveryMethodRepository reads the configured delivery speeds
type DeliveryMethodRepository interface {
	List(ctx context.Context) ([]domain.DeliveryMethod, error)
	GetByID(ctx context.Context, id string) (*domain.DeliveryMethod, error)
}

// GuestCartRepository is the device-local store for anonymous carts
type GuestCartRepository interface {
	// Load returns the device's cart; corrupt or absent data yields an
	// empty cart, never an error.
	Load(ctx context.Context, deviceID string) ([]domain.CartLine, error)
	Save(ctx context.Context, deviceID string, lines []domain.CartLine) error
	Clear(ctx context.Context, deviceID string) error
}

// Repositories bundles all repository implementations
type Repositories struct {
	CartLine       CartLineRepository
	Product        ProductRepository
	Address        AddressRepository
	Zone           ZoneRepository
	Discount       DiscountRepository
	DeliveryMethod DeliveryMethodRepository
	GuestCart      GuestCartRepository
}
