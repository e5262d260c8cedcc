package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/pkg/errors"
)

type deliveryMethodRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeliveryMethodRepository creates a new delivery method repository
func NewDeliveryMethodRepository(db *sql.DB, logger *zap.Logger) *deliveryMethodRepository {
	return &deliveryMethodRepository{
		db:     db,
		logger: logger,
	}
}

func (r *deliveryMethodRepository) List(ctx context.Context) ([]domain.DeliveryMethod, error) {
	query := `
		SELECT id, name, premium
		FROM delivery_methods
		ORDER BY premium
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list delivery methods", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var methods []domain.DeliveryMethod
	for rows.Next() {
		var m domain.DeliveryMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Premium); err != nil {
			r.logger.Error("Failed to scan delivery method", zap.Error(err))
			continue
		}
		methods = append(methods, m)
	}

	return methods, rows.Err()
}

func (r *deliveryMethodRepository) GetByID(ctx context.Context, id string) (*domain.DeliveryMethod, error) {
	query := `
		SELECT id, name, premium
		FROM delivery_methods
		WHERE id = $1
	`

	var m domain.DeliveryMethod

	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name, &m.Premium)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "delivery_method", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get delivery method", zap.String("method_id", id), zap.Error(err))
		return nil, err
	}

	return &m, nil
}
