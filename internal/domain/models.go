package domain

import (
	"fmt"
	"time"
)

// Identity is the cart-owning context for a request: an authenticated user
// or an anonymous device
type Identity struct {
	UserID   string // empty for anonymous sessions
	DeviceID string
	Email    string
}

// Authenticated reports whether the identity belongs to a signed-in user
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Key returns the storage key the identity's cart lives under
func (i Identity) Key() string {
	if i.Authenticated() {
		return "user:" + i.UserID
	}
	return "device:" + i.DeviceID
}

// CartLine is one product (optionally one variant of it) in a cart.
// Identity for merge and dedup purposes is (ProductID, VariantID), never ID.
type CartLine struct {
	ID           string
	ProductID    string
	VariantID    *string
	Name         string
	UnitPrice    float64
	Image        string
	Quantity     int
	Weight       float64
	VariantLabel *string
	// Synced marks a guest line already copied into the remote cart during
	// the sign-in merge, so a retried merge never double-counts it.
	Synced bool
}

// ProductKey identifies the (product, variant) pair for merge and dedup
func (l CartLine) ProductKey() string {
	if l.VariantID != nil {
		return l.ProductID + "|" + *l.VariantID
	}
	return l.ProductID
}

// LineTotal is unit price times quantity
func (l CartLine) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Product is the read-only join target for cart lines
type Product struct {
	ID        string
	Name      string
	BasePrice float64
	Image     string
	Weight    float64
}

// ProductVariant adjusts a product's price and labels the option chosen
type ProductVariant struct {
	ID            string
	ProductID     string
	Label         string
	PriceModifier float64
}

// ShippingAddress is a delivery destination owned by a user. At most one
// address per user carries IsDefault.
type ShippingAddress struct {
	ID          string
	UserID      string
	FullName    string
	Phone       string
	AddressLine string
	ZoneID      string
	SubZoneID   string
	AreaID      string
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LogisticsZone is a node in the three-level location tree:
// zone (ParentID nil) -> sub-zone -> area
type LogisticsZone struct {
	ID       string
	ParentID *string
	Name     string
	Position int
}

// DiscountCode is a redeemable promotion looked up case-insensitively
type DiscountCode struct {
	ID        string
	Code      string
	Type      DiscountType
	Value     float64
	MaxUses   *int
	UsedCount int
	ExpiresAt *time.Time
	IsActive  bool
}

// Redeemable reports whether the code can still be applied at the given time
func (d DiscountCode) Redeemable(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
		return false
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return false
	}
	return true
}

// DeliveryMethod is a flat speed premium added on top of the dynamic
// logistics fee (normal = 0, express and same-day cost extra)
type DeliveryMethod struct {
	ID      string
	Name    string
	Premium float64
}

// PaymentAttempt is the ephemeral record of one checkout attempt. It is
// never persisted by this service; the server-side verification endpoint
// owns the durable order.
type PaymentAttempt struct {
	Reference    string
	Amount       float64
	Status       PaymentStatus
	ErrorMessage string
	StartedAt    time.Time
}

func (a PaymentAttempt) String() string {
	return fmt.Sprintf("attempt %s (%s, %.2f)", a.Reference, a.Status, a.Amount)
}
