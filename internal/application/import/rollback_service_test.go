package importapp

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/shared"
)

// stubProductReferences marks chosen products as still referenced
type stubProductReferences struct {
	referenced map[uuid.UUID]bool
}

func (s *stubProductReferences) IsReferenced(ctx context.Context, orgID, productID uuid.UUID) (bool, error) {
	return s.referenced[productID], nil
}

type rollbackFixture struct {
	svc            *RollbackService
	historyRepo    *MockHistoryRepository
	opRepo         *MockOperationRepository
	productRepo    *MockProductRepository
	productRefs    *stubProductReferences
	customerRepo   *MockCustomerRepository
	levelRepo      *MockLevelRepository
	adjustmentRepo *MockAdjustmentRepository
	ruleRepo       *MockRuleRepository
	orgID          uuid.UUID
	userID         uuid.UUID
}

func newRollbackFixture(t *testing.T) *rollbackFixture {
	t.Helper()
	f := &rollbackFixture{
		historyRepo:    new(MockHistoryRepository),
		opRepo:         new(MockOperationRepository),
		productRepo:    new(MockProductRepository),
		productRefs:    &stubProductReferences{referenced: map[uuid.UUID]bool{}},
		customerRepo:   new(MockCustomerRepository),
		levelRepo:      new(MockLevelRepository),
		adjustmentRepo: new(MockAdjustmentRepository),
		ruleRepo:       new(MockRuleRepository),
		orgID:          uuid.New(),
		userID:         uuid.New(),
	}
	f.svc = NewRollbackService(f.historyRepo, f.opRepo, f.productRepo, f.productRefs,
		f.customerRepo, f.levelRepo, f.adjustmentRepo, f.ruleRepo, zap.NewNop())
	return f
}

// completedHistory builds an import history in the completed state
func (f *rollbackFixture) completedHistory(t *testing.T) *bulk.ImportHistory {
	t.Helper()
	history, err := bulk.NewImportHistory(f.orgID, bulk.ImportEntityProducts, "products.csv", 100, bulk.ConflictModeUpdate, f.userID)
	require.NoError(t, err)
	require.NoError(t, history.StartProcessing(2))
	require.NoError(t, history.Complete(1, 0, 0, 1, nil))
	history.ClearDomainEvents()
	return history
}

func TestRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("replays the log in reverse, deleting creates and restoring updates", func(t *testing.T) {
		f := newRollbackFixture(t)
		history := f.completedHistory(t)

		updated, err := catalog.NewProduct(f.orgID, "WID-2", "New widget", decimal.NewFromInt(25))
		require.NoError(t, err)
		updated.ClearDomainEvents()
		createdID := uuid.New()

		updateOp, err := bulk.NewImportOperation(f.orgID, history.ID, 2, "product", updated.ID,
			bulk.OperationUpdate,
			[]byte(`{"name":"Old widget","unit_price":"10"}`),
			[]byte(`{"name":"New widget","unit_price":"25"}`))
		require.NoError(t, err)
		createOp, err := bulk.NewImportOperation(f.orgID, history.ID, 1, "product", createdID,
			bulk.OperationCreate, nil, []byte(`{"name":"Widget","unit_price":"19.99"}`))
		require.NoError(t, err)

		f.historyRepo.On("FindByIDForTenant", ctx, f.orgID, history.ID).Return(history, nil)
		f.opRepo.On("FindByImportReversed", ctx, f.orgID, history.ID).
			Return([]bulk.ImportOperation{*updateOp, *createOp}, nil)
		f.productRepo.On("FindByIDForTenant", ctx, f.orgID, updated.ID).Return(updated, nil)
		f.productRepo.On("Save", ctx, updated).Return(nil)
		f.productRepo.On("DeleteForTenant", ctx, f.orgID, createdID).Return(nil)
		f.historyRepo.On("Save", ctx, history).Return(nil)

		result, err := f.svc.Rollback(ctx, f.orgID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.RolledBackRows)
		assert.False(t, result.AlreadyRolled)
		assert.Equal(t, bulk.ImportStatusRolledBack, history.Status)
		assert.Equal(t, "Old widget", updated.Name)
		assert.True(t, updated.UnitPrice.Equal(decimal.NewFromInt(10)))
	})

	t.Run("second rollback is a no-op", func(t *testing.T) {
		f := newRollbackFixture(t)
		history := f.completedHistory(t)
		require.NoError(t, history.RollBack(2))
		history.ClearDomainEvents()

		f.historyRepo.On("FindByIDForTenant", ctx, f.orgID, history.ID).Return(history, nil)

		result, err := f.svc.Rollback(ctx, f.orgID, history.ID)
		require.NoError(t, err)
		assert.True(t, result.AlreadyRolled)
		assert.Equal(t, 2, result.RolledBackRows)
		f.opRepo.AssertNotCalled(t, "FindByImportReversed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("only completed imports can be rolled back", func(t *testing.T) {
		f := newRollbackFixture(t)
		history, err := bulk.NewImportHistory(f.orgID, bulk.ImportEntityProducts, "products.csv", 100, bulk.ConflictModeUpdate, f.userID)
		require.NoError(t, err)
		require.NoError(t, history.StartProcessing(1))
		require.NoError(t, history.Fail(nil))

		f.historyRepo.On("FindByIDForTenant", ctx, f.orgID, history.ID).Return(history, nil)

		_, err = f.svc.Rollback(ctx, f.orgID, history.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("entities deleted since the import are tolerated", func(t *testing.T) {
		f := newRollbackFixture(t)
		history := f.completedHistory(t)
		createdID := uuid.New()
		updatedID := uuid.New()

		createOp, err := bulk.NewImportOperation(f.orgID, history.ID, 1, "product", createdID,
			bulk.OperationCreate, nil, []byte(`{}`))
		require.NoError(t, err)
		updateOp, err := bulk.NewImportOperation(f.orgID, history.ID, 2, "product", updatedID,
			bulk.OperationUpdate, []byte(`{"name":"Old","unit_price":"10"}`), []byte(`{}`))
		require.NoError(t, err)

		f.historyRepo.On("FindByIDForTenant", ctx, f.orgID, history.ID).Return(history, nil)
		f.opRepo.On("FindByImportReversed", ctx, f.orgID, history.ID).
			Return([]bulk.ImportOperation{*updateOp, *createOp}, nil)
		f.productRepo.On("FindByIDForTenant", ctx, f.orgID, updatedID).Return(nil, shared.ErrNotFound)
		f.productRepo.On("DeleteForTenant", ctx, f.orgID, createdID).Return(shared.ErrNotFound)
		f.historyRepo.On("Save", ctx, history).Return(nil)

		result, err := f.svc.Rollback(ctx, f.orgID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.RolledBackRows)
		assert.Equal(t, bulk.ImportStatusRolledBack, history.Status)
	})

	t.Run("created products that gained references are archived, not deleted", func(t *testing.T) {
		f := newRollbackFixture(t)
		history := f.completedHistory(t)

		created, err := catalog.NewProduct(f.orgID, "WID-9", "Widget", decimal.NewFromInt(9))
		require.NoError(t, err)
		created.ClearDomainEvents()
		f.productRefs.referenced[created.ID] = true

		op, err := bulk.NewImportOperation(f.orgID, history.ID, 1, "product", created.ID,
			bulk.OperationCreate, nil, []byte(`{"name":"Widget","unit_price":"9"}`))
		require.NoError(t, err)

		f.historyRepo.On("FindByIDForTenant", ctx, f.orgID, history.ID).Return(history, nil)
		f.opRepo.On("FindByImportReversed", ctx, f.orgID, history.ID).
			Return([]bulk.ImportOperation{*op}, nil)
		f.productRepo.On("FindByIDForTenant", ctx, f.orgID, created.ID).Return(created, nil)
		f.productRepo.On("Save", ctx, created).Return(nil)
		f.historyRepo.On("Save", ctx, history).Return(nil)

		result, err := f.svc.Rollback(ctx, f.orgID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.RolledBackRows)
		assert.True(t, created.IsArchived())
		f.productRepo.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inventory updates restore the previous quantity", func(t *testing.T) {
		f := newRollbackFixture(t)
		history, err := bulk.NewImportHistory(f.orgID, bulk.ImportEntityInventory, "stock.csv", 50, bulk.ConflictModeUpdate, f.userID)
		require.NoError(t, err)
		require.NoError(t, history.StartProcessing(1))
		require.NoError(t, history.Complete(0, 0, 0, 1, nil))
		history.ClearDomainEvents()

		level := inventory.NewInventoryLevel(f.orgID, uuid.New(), uuid.New())
		level.QuantityOnHand = 12

		op, err := bulk.NewImportOperation(f.orgID, history.ID, 1, "inventory_level", level.ID,
			bulk.OperationUpdate, []byte(`{"quantity":5}`), []byte(`{"quantity":12}`))
		require.NoError(t, err)

		f.historyRepo.On("FindByIDForTenant", ctx, f.orgID, history.ID).Return(history, nil)
		f.opRepo.On("FindByImportReversed", ctx, f.orgID, history.ID).
			Return([]bulk.ImportOperation{*op}, nil)
		f.levelRepo.On("FindByID", ctx, level.ID).Return(level, nil)
		f.levelRepo.On("Save", ctx, level).Return(nil)
		f.adjustmentRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.historyRepo.On("Save", ctx, history).Return(nil)

		result, err := f.svc.Rollback(ctx, f.orgID, history.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.RolledBackRows)
		assert.Equal(t, int64(5), level.QuantityOnHand)
	})
}
