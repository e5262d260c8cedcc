package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/pkg/errors"
)

type addressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAddressRepository creates a new shipping address repository
func NewAddressRepository(db *sql.DB, logger *zap.Logger) *addressRepository {
	return &addressRepository{
		db:     db,
		logger: logger,
	}
}

func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]domain.ShippingAddress, error) {
	query := `
		SELECT id, user_id, full_name, phone, address_line,
		       zone_id, sub_zone_id, area_id, is_default, created_at, updated_at
		FROM shipping_addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list addresses", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var addresses []domain.ShippingAddress
	for rows.Next() {
		var addr domain.ShippingAddress
		err := rows.Scan(
			&addr.ID,
			&addr.UserID,
			&addr.FullName,
			&addr.Phone,
			&addr.AddressLine,
			&addr.ZoneID,
			&addr.SubZoneID,
			&addr.AreaID,
			&addr.IsDefault,
			&addr.CreatedAt,
			&addr.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan address", zap.Error(err))
			continue
		}
		addresses = append(addresses, addr)
	}

	return addresses, rows.Err()
}

func (r *addressRepository) GetByID(ctx context.Context, id string) (*domain.ShippingAddress, error) {
	query := `
		SELECT id, user_id, full_name, phone, address_line,
		       zone_id, sub_zone_id, area_id, is_default, created_at, updated_at
		FROM shipping_addresses
		WHERE id = $1
	`

	var addr domain.ShippingAddress

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&addr.ID,
		&addr.UserID,
		&addr.FullName,
		&addr.Phone,
		&addr.AddressLine,
		&addr.ZoneID,
		&addr.SubZoneID,
		&addr.AreaID,
		&addr.IsDefault,
		&addr.CreatedAt,
		&addr.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "shipping_address", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get address", zap.String("address_id", id), zap.Error(err))
		return nil, err
	}

	return &addr, nil
}

func (r *addressRepository) Create(ctx context.Context, address *domain.ShippingAddress) error {
	now := time.Now()
	if address.ID == "" {
		address.ID = uuid.NewString()
	}
	address.CreatedAt = now
	address.UpdatedAt = now

	// First address for a user becomes the default even when not requested;
	// when the new address is marked default the previous one is cleared in
	// the same transaction.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shipping_addresses WHERE user_id = $1`,
		address.UserID,
	).Scan(&existing); err != nil {
		r.logger.Error("Failed to count addresses", zap.Error(err))
		return err
	}
	if existing == 0 {
		address.IsDefault = true
	}

	if address.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE shipping_addresses SET is_default = false, updated_at = $2 WHERE user_id = $1 AND is_default`,
			address.UserID, now,
		); err != nil {
			r.logger.Error("Failed to clear previous default address", zap.Error(err))
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipping_addresses
			(id, user_id, full_name, phone, address_line, zone_id, sub_zone_id, area_id, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		address.ID,
		address.UserID,
		address.FullName,
		address.Phone,
		address.AddressLine,
		address.ZoneID,
		address.SubZoneID,
		address.AreaID,
		address.IsDefault,
		address.CreatedAt,
		address.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create address", zap.String("user_id", address.UserID), zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *addressRepository) SetDefault(ctx context.Context, userID, addressID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	if _, err := tx.ExecContext(ctx,
		`UPDATE shipping_addresses SET is_default = false, updated_at = $2 WHERE user_id = $1 AND is_default`,
		userID, now,
	); err != nil {
		r.logger.Error("Failed to clear previous default address", zap.Error(err))
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE shipping_addresses SET is_default = true, updated_at = $3 WHERE user_id = $1 AND id = $2`,
		userID, addressID, now,
	)
	if err != nil {
		r.logger.Error("Failed to set default address", zap.String("address_id", addressID), zap.Error(err))
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return &errors.ErrNotFound{Resource: "shipping_address", ID: addressID}
	}

	return tx.Commit()
}
