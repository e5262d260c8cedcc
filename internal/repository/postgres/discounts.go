package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/pkg/errors"
)

type discountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDiscountRepository creates a new discount code repository
func NewDiscountRepository(db *sql.DB, logger *zap.Logger) *discountRepository {
	return &discountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	query := `
		SELECT id, code, type, value, max_uses, used_count, expires_at, is_active
		FROM discount_codes
		WHERE LOWER(code) = LOWER($1)
	`

	var discount domain.DiscountCode
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&discount.ID,
		&discount.Code,
		&discount.Type,
		&discount.Value,
		&maxUses,
		&discount.UsedCount,
		&expiresAt,
		&discount.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "discount_code", ID: code}
	}
	if err != nil {
		r.logger.Error("Failed to get discount code", zap.String("code", code), zap.Error(err))
		return nil, err
	}

	if maxUses.Valid {
		uses := int(maxUses.Int64)
		discount.MaxUses = &uses
	}
	if expiresAt.Valid {
		discount.ExpiresAt = &expiresAt.Time
	}

	return &discount, nil
}
