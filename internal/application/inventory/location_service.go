package inventory

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

// LocationService handles stock location operations
type LocationService struct {
	locationRepo inventory.LocationRepository
	logger       *zap.Logger
}

// NewLocationService creates a new location service
func NewLocationService(locationRepo inventory.LocationRepository, logger *zap.Logger) *LocationService {
	return &LocationService{
		locationRepo: locationRepo,
		logger:       logger,
	}
}

// Create adds a stock location
func (s *LocationService) Create(ctx context.Context, input CreateLocationInput) (*LocationInfo, error) {
	exists, err := s.locationRepo.ExistsByCode(ctx, input.OrgID, input.Code)
	if err != nil {
		s.logger.Error("Location code lookup failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check location code")
	}
	if exists {
		return nil, shared.NewDomainError("CODE_TAKEN", "A location with this code already exists")
	}

	location, err := inventory.NewLocation(input.OrgID, input.Code, input.Name, input.Type)
	if err != nil {
		return nil, err
	}
	if input.Address != "" {
		if err := location.Update(location.Name, input.Address); err != nil {
			return nil, err
		}
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		s.logger.Error("Failed to save location", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create location")
	}

	s.logger.Info("Location created",
		zap.String("org_id", input.OrgID.String()),
		zap.String("code", location.Code))

	info := toLocationInfo(location)
	return &info, nil
}

// List returns the organization's locations
func (s *LocationService) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[LocationInfo], error) {
	locations, err := s.locationRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list locations", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list locations")
	}

	total, err := s.locationRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count locations")
	}

	infos := make([]LocationInfo, 0, len(locations))
	for i := range locations {
		infos = append(infos, toLocationInfo(&locations[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Get returns a single location
func (s *LocationService) Get(ctx context.Context, orgID, locationID uuid.UUID) (*LocationInfo, error) {
	location, err := s.locationRepo.FindByIDForTenant(ctx, orgID, locationID)
	if err != nil {
		return nil, shared.NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	}
	info := toLocationInfo(location)
	return &info, nil
}

// Update modifies a location
func (s *LocationService) Update(ctx context.Context, input UpdateLocationInput) (*LocationInfo, error) {
	location, err := s.locationRepo.FindByIDForTenant(ctx, input.OrgID, input.LocationID)
	if err != nil {
		return nil, shared.NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	}

	if err := location.Update(input.Name, input.Address); err != nil {
		return nil, err
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		s.logger.Error("Failed to update location", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update location")
	}

	info := toLocationInfo(location)
	return &info, nil
}

// Deactivate takes a location out of service. Its stock records remain.
func (s *LocationService) Deactivate(ctx context.Context, orgID, locationID uuid.UUID) error {
	location, err := s.locationRepo.FindByIDForTenant(ctx, orgID, locationID)
	if err != nil {
		return shared.NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	}

	if err := location.Deactivate(); err != nil {
		return err
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		s.logger.Error("Failed to deactivate location", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to deactivate location")
	}
	return nil
}

// Activate returns a location to service
func (s *LocationService) Activate(ctx context.Context, orgID, locationID uuid.UUID) error {
	location, err := s.locationRepo.FindByIDForTenant(ctx, orgID, locationID)
	if err != nil {
		return shared.NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	}

	if err := location.Activate(); err != nil {
		return err
	}

	if err := s.locationRepo.Save(ctx, location); err != nil {
		s.logger.Error("Failed to activate location", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to activate location")
	}
	return nil
}
