package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postdeck/calendar-engine/internal/models"
)

type LocationRepository interface {
	Search(ctx context.Context, query string, integrationID, workspaceID int64) ([]*models.Location, error)
}

type locationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Search(ctx context.Context, search string, integrationID, workspaceID int64) ([]*models.Location, error) {
	query := `
		SELECT id, name, address, lat, lng
		FROM locations
		WHERE workspace_id = $1 AND integration_id = $2 AND name ILIKE $3
		ORDER BY name
		LIMIT 20
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, integrationID, search+"%")
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Lat, &l.Lng); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		locations = append(locations, &l)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return locations, nil
}
