package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/pkg/errors"
)

type cartLineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCartLineRepository creates a new cart line repository
func NewCartLineRepository(db *sql.DB, logger *zap.Logger) *cartLineRepository {
	return &cartLineRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cartLineRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	// Inner join against products drops lines whose product was removed
	// from the catalog; the effective unit price is base price plus the
	// variant's modifier when a variant is chosen.
	query := `
		SELECT cl.id, cl.product_id, cl.variant_id, p.name,
		       p.base_price + COALESCE(v.price_modifier, 0) AS unit_price,
		       p.image, cl.quantity, p.weight, v.label
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		LEFT JOIN product_variants v ON v.id = cl.variant_id
		WHERE cl.user_id = $1
		ORDER BY cl.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list cart lines", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		var variantID, variantLabel sql.NullString

		err := rows.Scan(
			&line.ID,
			&line.ProductID,
			&variantID,
			&line.Name,
			&line.UnitPrice,
			&line.Image,
			&line.Quantity,
			&line.Weight,
			&variantLabel,
		)
		if err != nil {
			r.logger.Error("Failed to scan cart line", zap.Error(err))
			continue
		}

		if variantID.Valid {
			line.VariantID = &variantID.String
		}
		if variantLabel.Valid {
			line.VariantLabel = &variantLabel.String
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func (r *cartLineRepository) FindByProductVariant(ctx context.Context, userID, productID string, variantID *string) (*domain.CartLine, error) {
	query := `
		SELECT id, product_id, variant_id, quantity
		FROM cart_lines
		WHERE user_id = $1 AND product_id = $2
		  AND variant_id IS NOT DISTINCT FROM $3
	`

	var line domain.CartLine
	var storedVariantID sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID, productID, nullableString(variantID)).Scan(
		&line.ID,
		&line.ProductID,
		&storedVariantID,
		&line.Quantity,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "cart_line", ID: productID}
	}
	if err != nil {
		r.logger.Error("Failed to find cart line", zap.String("product_id", productID), zap.Error(err))
		return nil, err
	}

	if storedVariantID.Valid {
		line.VariantID = &storedVariantID.String
	}

	return &line, nil
}

func (r *cartLineRepository) Insert(ctx context.Context, userID string, line *domain.CartLine) error {
	query := `
		INSERT INTO cart_lines (id, user_id, product_id, variant_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	if line.ID == "" {
		line.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, query,
		line.ID,
		userID,
		line.ProductID,
		nullableString(line.VariantID),
		line.Quantity,
		now,
		now,
	)

	if err != nil {
		r.logger.Error("Failed to insert cart line", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	return nil
}

func (r *cartLineRepository) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	query := `
		UPDATE cart_lines
		SET quantity = $3, updated_at = $4
		WHERE user_id = $1 AND id = $2
	`

	res, err := r.db.ExecContext(ctx, query, userID, lineID, quantity, time.Now())
	if err != nil {
		r.logger.Error("Failed to update cart line quantity", zap.String("line_id", lineID), zap.Error(err))
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return &errors.ErrNotFound{Resource: "cart_line", ID: lineID}
	}

	return nil
}

func (r *cartLineRepository) Delete(ctx context.Context, userID, lineID string) error {
	query := `DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`

	_, err := r.db.ExecContext(ctx, query, userID, lineID)
	if err != nil {
		r.logger.Error("Failed to delete cart line", zap.String("line_id", lineID), zap.Error(err))
		return err
	}

	return nil
}

func (r *cartLineRepository) DeleteMany(ctx context.Context, userID string, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}

	query := `DELETE FROM cart_lines WHERE user_id = $1 AND id = ANY($2)`

	_, err := r.db.ExecContext(ctx, query, userID, pq.Array(lineIDs))
	if err != nil {
		r.logger.Error("Failed to delete cart lines", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	return nil
}

func (r *cartLineRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM cart_lines WHERE user_id = $1`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to clear cart", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	return nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
