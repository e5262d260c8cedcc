package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, base_price, image, weight
		FROM products
		WHERE id = $1
	`

	var product domain.Product

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.BasePrice,
		&product.Image,
		&product.Weight,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}

	return &product, nil
}

func (r *productRepository) GetVariant(ctx context.Context, variantID string) (*domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, label, price_modifier
		FROM product_variants
		WHERE id = $1
	`

	var variant domain.ProductVariant

	err := r.db.QueryRowContext(ctx, query, variantID).Scan(
		&variant.ID,
		&variant.ProductID,
		&variant.Label,
		&variant.PriceModifier,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product_variant", ID: variantID}
	}
	if err != nil {
		r.logger.Error("Failed to get product variant", zap.String("variant_id", variantID), zap.Error(err))
		return nil, err
	}

	return &variant, nil
}
