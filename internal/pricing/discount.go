package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// DiscountValidator checks discount codes against the record store before
// a checkout applies them. Usage-count increment happens server-side at
// order creation, never here.
type DiscountValidator struct {
	repos  *repository.Repositories
	logger *zap.Logger
	now    func() time.Time
}

// NewDiscountValidator creates a discount validator
func NewDiscountValidator(repos *repository.Repositories, logger *zap.Logger) *DiscountValidator {
	return &DiscountValidator{
		repos:  repos,
		logger: logger,
		now:    time.Now,
	}
}

// Validate resolves a code case-insensitively and rejects with a typed
// reason when it cannot be redeemed
func (v *DiscountValidator) Validate(ctx context.Context, code string) (*domain.DiscountCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &apperrors.ErrValidation{Field: "code", Message: "discount code is empty"}
	}

	discount, err := v.repos.Discount.GetByCode(ctx, code)
	if err != nil {
		var notFound *apperrors.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, &apperrors.ErrDiscountRejected{Code: code, Reason: apperrors.DiscountNotFound}
		}
		v.logger.Error("Failed to look up discount code", zap.String("code", code), zap.Error(err))
		return nil, err
	}

	now := v.now()
	switch {
	case !discount.IsActive:
		return nil, &apperrors.ErrDiscountRejected{Code: code, Reason: apperrors.DiscountInactive}
	case discount.ExpiresAt != nil && discount.ExpiresAt.Before(now):
		return nil, &apperrors.ErrDiscountRejected{Code: code, Reason: apperrors.DiscountExpired}
	case discount.MaxUses != nil && discount.UsedCount >= *discount.MaxUses:
		return nil, &apperrors.ErrDiscountRejected{Code: code, Reason: apperrors.DiscountExhausted}
	}

	return discount, nil
}
