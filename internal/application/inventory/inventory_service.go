package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

// InventoryService handles stock level operations
type InventoryService struct {
	levelRepo      inventory.LevelRepository
	locationRepo   inventory.LocationRepository
	adjustmentRepo inventory.AdjustmentRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	levelRepo inventory.LevelRepository,
	locationRepo inventory.LocationRepository,
	adjustmentRepo inventory.AdjustmentRepository,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		levelRepo:      levelRepo,
		locationRepo:   locationRepo,
		adjustmentRepo: adjustmentRepo,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Adjust applies a relative delta to the stock of a product at a location
func (s *InventoryService) Adjust(ctx context.Context, input AdjustStockInput) (*LevelInfo, error) {
	level, err := s.loadLevel(ctx, input.OrgID, input.ProductID, input.LocationID)
	if err != nil {
		return nil, err
	}

	adjustment, err := level.Adjust(input.Delta, input.Reason, input.Reference, input.ActorID)
	if err != nil {
		return nil, err
	}

	return s.saveLevel(ctx, level, adjustment)
}

// Set replaces the on-hand quantity with an absolute value. A no-op when
// the quantity is unchanged.
func (s *InventoryService) Set(ctx context.Context, input SetStockInput) (*LevelInfo, error) {
	level, err := s.loadLevel(ctx, input.OrgID, input.ProductID, input.LocationID)
	if err != nil {
		return nil, err
	}

	adjustment, err := level.Set(input.Quantity, input.Reason, input.Reference, input.ActorID)
	if err != nil {
		return nil, err
	}
	if adjustment == nil {
		info := toLevelInfo(level)
		return &info, nil
	}

	return s.saveLevel(ctx, level, adjustment)
}

// SetFromPlatform reconciles a product's stock to a platform-reported total.
// Stocked locations are trimmed largest-first down to the reported total and
// any surplus lands at the most stocked location; a product with no levels
// yet is stocked at the first active location. Every write carries the sync
// reason.
func (s *InventoryService) SetFromPlatform(ctx context.Context, orgID, productID uuid.UUID, quantity int64, reference string) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}

	levels, err := s.levelRepo.FindByProduct(ctx, orgID, productID)
	if err != nil {
		s.logger.Error("Failed to load product levels", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to load inventory levels")
	}

	if len(levels) == 0 {
		locations, err := s.locationRepo.FindActiveForTenant(ctx, orgID)
		if err != nil || len(locations) == 0 {
			return shared.NewDomainError("LOCATION_NOT_FOUND", "No active location to receive platform stock")
		}
		_, err = s.Set(ctx, SetStockInput{
			OrgID:      orgID,
			ProductID:  productID,
			LocationID: locations[0].ID,
			Quantity:   quantity,
			Reason:     inventory.ReasonSync,
			Reference:  reference,
		})
		return err
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].QuantityOnHand > levels[j].QuantityOnHand
	})

	targets := make([]int64, len(levels))
	remaining := quantity
	for i := range levels {
		take := min(levels[i].QuantityOnHand, remaining)
		targets[i] = take
		remaining -= take
	}
	targets[0] += remaining

	for i := range levels {
		adjustment, err := levels[i].Set(targets[i], inventory.ReasonSync, reference, nil)
		if err != nil {
			return err
		}
		if adjustment == nil {
			continue
		}
		if _, err := s.saveLevel(ctx, &levels[i], adjustment); err != nil {
			return err
		}
	}
	return nil
}

// Reserve holds stock for an unfulfilled order
func (s *InventoryService) Reserve(ctx context.Context, orgID, productID, locationID uuid.UUID, quantity int64) (*LevelInfo, error) {
	level, err := s.loadLevel(ctx, orgID, productID, locationID)
	if err != nil {
		return nil, err
	}

	if err := level.Reserve(quantity); err != nil {
		return nil, err
	}

	return s.saveLevel(ctx, level, nil)
}

// Release returns reserved stock to the available pool
func (s *InventoryService) Release(ctx context.Context, orgID, productID, locationID uuid.UUID, quantity int64) (*LevelInfo, error) {
	level, err := s.loadLevel(ctx, orgID, productID, locationID)
	if err != nil {
		return nil, err
	}

	if err := level.Release(quantity); err != nil {
		return nil, err
	}

	return s.saveLevel(ctx, level, nil)
}

// ReserveForOrder holds stock for an order line, spreading the hold across
// the locations with the most available stock. A shortfall holds whatever is
// on hand and reports INSUFFICIENT_STOCK for the rest.
func (s *InventoryService) ReserveForOrder(ctx context.Context, orgID, productID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}

	levels, err := s.levelRepo.FindByProduct(ctx, orgID, productID)
	if err != nil {
		return err
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Available() > levels[j].Available()
	})

	remaining := quantity
	for i := range levels {
		if remaining == 0 {
			break
		}
		available := levels[i].Available()
		if available <= 0 {
			continue
		}
		take := min(available, remaining)
		if err := levels[i].Reserve(take); err != nil {
			return err
		}
		if err := s.levelRepo.Save(ctx, &levels[i]); err != nil {
			return err
		}
		remaining -= take
	}

	if remaining > 0 {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Not enough available stock to hold for the order")
	}
	return nil
}

// ReleaseForOrder returns an order line's hold to the available pool,
// walking the same locations the reservation was spread across.
func (s *InventoryService) ReleaseForOrder(ctx context.Context, orgID, productID uuid.UUID, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}

	levels, err := s.levelRepo.FindByProduct(ctx, orgID, productID)
	if err != nil {
		return err
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].QuantityReserved > levels[j].QuantityReserved
	})

	remaining := quantity
	for i := range levels {
		if remaining == 0 {
			break
		}
		reserved := levels[i].QuantityReserved
		if reserved <= 0 {
			continue
		}
		give := min(reserved, remaining)
		if err := levels[i].Release(give); err != nil {
			return err
		}
		if err := s.levelRepo.Save(ctx, &levels[i]); err != nil {
			return err
		}
		remaining -= give
	}
	return nil
}

// Fulfill consumes reserved stock when an order ships
func (s *InventoryService) Fulfill(ctx context.Context, orgID, productID, locationID uuid.UUID, quantity int64, reference string, actorID *uuid.UUID) (*LevelInfo, error) {
	level, err := s.loadLevel(ctx, orgID, productID, locationID)
	if err != nil {
		return nil, err
	}

	adjustment, err := level.Fulfill(quantity, reference, actorID)
	if err != nil {
		return nil, err
	}

	return s.saveLevel(ctx, level, adjustment)
}

// SetReorderPoint configures the low-stock threshold for a level
func (s *InventoryService) SetReorderPoint(ctx context.Context, input SetReorderPointInput) (*LevelInfo, error) {
	level, err := s.loadLevel(ctx, input.OrgID, input.ProductID, input.LocationID)
	if err != nil {
		return nil, err
	}

	if err := level.SetReorderPoint(input.ReorderPoint, input.ReorderQuantity); err != nil {
		return nil, err
	}

	return s.saveLevel(ctx, level, nil)
}

// GetLevel returns the stock of a product at a location
func (s *InventoryService) GetLevel(ctx context.Context, orgID, productID, locationID uuid.UUID) (*LevelInfo, error) {
	level, err := s.levelRepo.Find(ctx, orgID, productID, locationID)
	if err != nil {
		return nil, shared.NewDomainError("LEVEL_NOT_FOUND", "No inventory record for this product and location")
	}
	info := toLevelInfo(level)
	return &info, nil
}

// GetProductLevels returns a product's stock across all locations
func (s *InventoryService) GetProductLevels(ctx context.Context, orgID, productID uuid.UUID) ([]LevelInfo, error) {
	levels, err := s.levelRepo.FindByProduct(ctx, orgID, productID)
	if err != nil {
		s.logger.Error("Failed to load product levels", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load inventory levels")
	}

	infos := make([]LevelInfo, 0, len(levels))
	for i := range levels {
		infos = append(infos, toLevelInfo(&levels[i]))
	}
	return infos, nil
}

// ListLevels returns the organization's inventory levels
func (s *InventoryService) ListLevels(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[LevelInfo], error) {
	levels, err := s.levelRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list levels", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list inventory levels")
	}

	total, err := s.levelRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count inventory levels")
	}

	infos := make([]LevelInfo, 0, len(levels))
	for i := range levels {
		infos = append(infos, toLevelInfo(&levels[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// ListLowStock returns levels at or below their reorder point
func (s *InventoryService) ListLowStock(ctx context.Context, orgID uuid.UUID) ([]LevelInfo, error) {
	levels, err := s.levelRepo.FindBelowReorderPoint(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to load low stock levels", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load low stock levels")
	}

	infos := make([]LevelInfo, 0, len(levels))
	for i := range levels {
		infos = append(infos, toLevelInfo(&levels[i]))
	}
	return infos, nil
}

// ListAdjustments returns the movement history for a product at a location
func (s *InventoryService) ListAdjustments(ctx context.Context, orgID, productID, locationID uuid.UUID, filter shared.Filter) ([]AdjustmentInfo, error) {
	adjustments, err := s.adjustmentRepo.FindForLevel(ctx, orgID, productID, locationID, filter)
	if err != nil {
		s.logger.Error("Failed to list adjustments", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list stock adjustments")
	}

	infos := make([]AdjustmentInfo, 0, len(adjustments))
	for i := range adjustments {
		infos = append(infos, toAdjustmentInfo(&adjustments[i]))
	}
	return infos, nil
}

func (s *InventoryService) loadLevel(ctx context.Context, orgID, productID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	location, err := s.locationRepo.FindByIDForTenant(ctx, orgID, locationID)
	if err != nil {
		return nil, shared.NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	}
	if !location.Active {
		return nil, shared.NewDomainError("LOCATION_INACTIVE", "Location is deactivated")
	}

	level, err := s.levelRepo.FindOrCreate(ctx, orgID, productID, locationID)
	if err != nil {
		s.logger.Error("Failed to load inventory level", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load inventory level")
	}
	return level, nil
}

func (s *InventoryService) saveLevel(ctx context.Context, level *inventory.InventoryLevel, adjustment *inventory.StockAdjustment) (*LevelInfo, error) {
	if err := s.levelRepo.Save(ctx, level); err != nil {
		s.logger.Error("Failed to save inventory level", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save inventory level")
	}
	if adjustment != nil {
		if err := s.adjustmentRepo.Save(ctx, adjustment); err != nil {
			s.logger.Error("Failed to save stock adjustment", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to record stock adjustment")
		}
	}

	s.publishEvents(ctx, level.GetDomainEvents())
	level.ClearDomainEvents()

	info := toLevelInfo(level)
	return &info, nil
}

func (s *InventoryService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
