package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/pkg/errors"
)

type zoneRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewZoneRepository creates a new logistics zone repository
func NewZoneRepository(db *sql.DB, logger *zap.Logger) *zoneRepository {
	return &zoneRepository{
		db:     db,
		logger: logger,
	}
}

func (r *zoneRepository) ChildrenOf(ctx context.Context, parentID *string) ([]domain.LogisticsZone, error) {
	query := `
		SELECT id, parent_id, name, position
		FROM logistics_zones
		WHERE parent_id IS NOT DISTINCT FROM $1
		ORDER BY position, name
	`

	rows, err := r.db.QueryContext(ctx, query, nullableString(parentID))
	if err != nil {
		r.logger.Error("Failed to query zone children", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var zones []domain.LogisticsZone
	for rows.Next() {
		var zone domain.LogisticsZone
		var parent sql.NullString

		if err := rows.Scan(&zone.ID, &parent, &zone.Name, &zone.Position); err != nil {
			r.logger.Error("Failed to scan zone", zap.Error(err))
			continue
		}
		if parent.Valid {
			zone.ParentID = &parent.String
		}
		zones = append(zones, zone)
	}

	return zones, rows.Err()
}

func (r *zoneRepository) GetByID(ctx context.Context, id string) (*domain.LogisticsZone, error) {
	query := `
		SELECT id, parent_id, name, position
		FROM logistics_zones
		WHERE id = $1
	`

	var zone domain.LogisticsZone
	var parent sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(&zone.ID, &parent, &zone.Name, &zone.Position)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "logistics_zone", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get zone", zap.String("zone_id", id), zap.Error(err))
		return nil, err
	}

	if parent.Valid {
		zone.ParentID = &parent.String
	}

	return &zone, nil
}

func (r *zoneRepository) Create(ctx context.Context, zone *domain.LogisticsZone) error {
	if zone.ID == "" {
		zone.ID = uuid.NewString()
	}

	query := `
		INSERT INTO logistics_zones (id, parent_id, name, position)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		zone.ID,
		nullableString(zone.ParentID),
		zone.Name,
		zone.Position,
	)

	if err != nil {
		r.logger.Error("Failed to create zone", zap.String("name", zone.Name), zap.Error(err))
		return err
	}

	return nil
}
