package importapp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductReferences reports whether orders, inventory levels, or platform
// mappings still point at a product. Referenced products are archived on
// rollback instead of deleted.
type ProductReferences interface {
	IsReferenced(ctx context.Context, orgID, productID uuid.UUID) (bool, error)
}

// reverter undoes one operation-log entry for one entity type
type reverter interface {
	// undoCreate removes an entity the import created. A missing entity is
	// not an error: rollback is idempotent.
	undoCreate(ctx context.Context, orgID, entityID uuid.UUID) error

	// restore puts an entity back to its before-values
	restore(ctx context.Context, orgID, importID, entityID uuid.UUID, before []byte) error
}

// RollbackService reverts a completed import by replaying its operation log
// in reverse sequence order.
type RollbackService struct {
	historyRepo    bulk.HistoryRepository
	opRepo         bulk.OperationRepository
	reverters      map[string]reverter
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewRollbackService creates a new rollback service
func NewRollbackService(
	historyRepo bulk.HistoryRepository,
	opRepo bulk.OperationRepository,
	productRepo catalog.ProductRepository,
	productRefs ProductReferences,
	customerRepo customer.Repository,
	levelRepo inventory.LevelRepository,
	adjustmentRepo inventory.AdjustmentRepository,
	ruleRepo pricing.RuleRepository,
	logger *zap.Logger,
) *RollbackService {
	return &RollbackService{
		historyRepo: historyRepo,
		opRepo:      opRepo,
		reverters: map[string]reverter{
			"product":  &productReverter{productRepo: productRepo, refs: productRefs},
			"customer": &customerReverter{customerRepo: customerRepo},
			"inventory_level": &levelReverter{
				levelRepo:      levelRepo,
				adjustmentRepo: adjustmentRepo,
			},
			"pricing_rule": &ruleReverter{ruleRepo: ruleRepo},
		},
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *RollbackService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Rollback reverts a completed import. Creates are undone by delete, updates
// by restoring the before-values. A second rollback of the same import is a
// no-op reporting what the first one did.
func (s *RollbackService) Rollback(ctx context.Context, orgID, importID uuid.UUID) (*RollbackResult, error) {
	history, err := s.historyRepo.FindByIDForTenant(ctx, orgID, importID)
	if err != nil {
		return nil, shared.NewDomainError("IMPORT_NOT_FOUND", "Import not found")
	}

	if history.Status == bulk.ImportStatusRolledBack {
		return &RollbackResult{
			ImportID:       history.ID,
			RolledBackRows: history.RolledBackRows,
			AlreadyRolled:  true,
		}, nil
	}
	if !history.CanRollBack() {
		return nil, shared.NewDomainError("INVALID_STATE", "Only completed imports can be rolled back")
	}

	ops, err := s.opRepo.FindByImportReversed(ctx, orgID, importID)
	if err != nil {
		s.logger.Error("Failed to load operation log",
			zap.String("import_id", importID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load the import's operation log")
	}

	reverted := 0
	for i := range ops {
		op := &ops[i]
		rev, ok := s.reverters[op.EntityType]
		if !ok {
			s.logger.Warn("No reverter for operation entity type",
				zap.String("entity_type", op.EntityType),
				zap.String("import_id", importID.String()))
			continue
		}

		var revErr error
		switch op.Operation {
		case bulk.OperationCreate:
			revErr = rev.undoCreate(ctx, orgID, op.EntityID)
		case bulk.OperationUpdate:
			revErr = rev.restore(ctx, orgID, importID, op.EntityID, op.Before)
		}

		if revErr != nil {
			// keep going: a partially reverted rollback is still better
			// than an aborted one, and the counter reflects reality
			s.logger.Warn("Failed to revert operation",
				zap.String("import_id", importID.String()),
				zap.Int("sequence", op.Sequence),
				zap.String("entity_type", op.EntityType),
				zap.Error(revErr))
			continue
		}
		reverted++
	}

	if err := history.RollBack(reverted); err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.logger.Error("Failed to persist rollback", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to record the rollback")
	}
	s.publishEvents(ctx, history)

	s.logger.Info("Import rolled back",
		zap.String("import_id", importID.String()),
		zap.Int("operations", len(ops)),
		zap.Int("reverted", reverted))

	return &RollbackResult{ImportID: history.ID, RolledBackRows: reverted}, nil
}

func (s *RollbackService) publishEvents(ctx context.Context, history *bulk.ImportHistory) {
	if s.eventPublisher == nil {
		return
	}
	events := history.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	history.ClearDomainEvents()
}

type productReverter struct {
	productRepo catalog.ProductRepository
	refs        ProductReferences
}

func (r *productReverter) undoCreate(ctx context.Context, orgID, entityID uuid.UUID) error {
	if r.refs != nil {
		referenced, err := r.refs.IsReferenced(ctx, orgID, entityID)
		if err != nil {
			return err
		}
		if referenced {
			// orders or stock arrived after the import; keep the row
			product, err := r.productRepo.FindByIDForTenant(ctx, orgID, entityID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil
				}
				return err
			}
			if product.IsArchived() {
				return nil
			}
			if err := product.Archive(); err != nil {
				return err
			}
			return r.productRepo.Save(ctx, product)
		}
	}

	err := r.productRepo.DeleteForTenant(ctx, orgID, entityID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

func (r *productReverter) restore(ctx context.Context, orgID, importID, entityID uuid.UUID, before []byte) error {
	product, err := r.productRepo.FindByIDForTenant(ctx, orgID, entityID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	var snap productSnapshot
	if err := json.Unmarshal(before, &snap); err != nil {
		return err
	}
	price, err := decimal.NewFromString(snap.UnitPrice)
	if err != nil {
		return err
	}

	if err := product.Update(snap.Name, snap.Description); err != nil {
		return err
	}
	if err := product.SetUnitPrice(price); err != nil {
		return err
	}
	return r.productRepo.Save(ctx, product)
}

type customerReverter struct {
	customerRepo customer.Repository
}

func (r *customerReverter) undoCreate(ctx context.Context, orgID, entityID uuid.UUID) error {
	err := r.customerRepo.DeleteForTenant(ctx, orgID, entityID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

func (r *customerReverter) restore(ctx context.Context, orgID, importID, entityID uuid.UUID, before []byte) error {
	cust, err := r.customerRepo.FindByIDForTenant(ctx, orgID, entityID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	var snap customerSnapshot
	if err := json.Unmarshal(before, &snap); err != nil {
		return err
	}

	if err := cust.Update(snap.CompanyName, snap.ContactName, snap.ContactEmail, snap.Phone); err != nil {
		return err
	}
	if tier := customer.Tier(snap.Tier); tier != cust.Tier {
		if err := cust.ChangeTier(tier); err != nil {
			return err
		}
	}
	return r.customerRepo.Save(ctx, cust)
}

type levelReverter struct {
	levelRepo      inventory.LevelRepository
	adjustmentRepo inventory.AdjustmentRepository
}

// Inventory imports only record updates, so undoCreate never fires
func (r *levelReverter) undoCreate(ctx context.Context, orgID, entityID uuid.UUID) error {
	return nil
}

func (r *levelReverter) restore(ctx context.Context, orgID, importID, entityID uuid.UUID, before []byte) error {
	level, err := r.levelRepo.FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if level.TenantID != orgID {
		return shared.ErrNotFound
	}

	var snap levelSnapshot
	if err := json.Unmarshal(before, &snap); err != nil {
		return err
	}

	adjustment, err := level.Set(snap.Quantity, inventory.ReasonImport, "rollback:"+importID.String(), nil)
	if err != nil {
		return err
	}
	if adjustment == nil {
		return nil
	}

	if err := r.levelRepo.Save(ctx, level); err != nil {
		return err
	}
	return r.adjustmentRepo.Save(ctx, adjustment)
}

type ruleReverter struct {
	ruleRepo pricing.RuleRepository
}

func (r *ruleReverter) undoCreate(ctx context.Context, orgID, entityID uuid.UUID) error {
	err := r.ruleRepo.DeleteForTenant(ctx, orgID, entityID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

// Pricing-rule imports only create, so there is nothing to restore
func (r *ruleReverter) restore(ctx context.Context, orgID, importID, entityID uuid.UUID, before []byte) error {
	return nil
}
