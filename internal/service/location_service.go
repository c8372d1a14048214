package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/repository"
)

// LocationService backs the location-aware platform fields. Debouncing
// is the caller's job.
type LocationService interface {
	Search(ctx context.Context, query string, integrationID, workspaceID int64) ([]*models.Location, error)
}

type locationService struct {
	lr repository.LocationRepository
}

func NewLocationService(lr repository.LocationRepository) LocationService {
	return &locationService{lr: lr}
}

func (s *locationService) Search(ctx context.Context, query string, integrationID, workspaceID int64) ([]*models.Location, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		err := errors.New("query too short")
		slog.Info(err.Error())
		return nil, err
	}

	locations, err := s.lr.Search(ctx, query, integrationID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error searching locations: %w", err)
	}
	return locations, nil
}
