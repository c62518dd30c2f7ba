package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	orderapp "github.com/truthsource/backend/internal/application/order"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/shared"
)

// DefaultRetryBaseDelay is the first retry delay for failed sync jobs;
// later attempts double it, capped at 30 minutes.
const DefaultRetryBaseDelay = time.Minute

// defaultOrderLookback bounds the first order pull of an integration
const defaultOrderLookback = 30 * 24 * time.Hour

// OrderIngestor upserts orders delivered by platform pulls
type OrderIngestor interface {
	Ingest(ctx context.Context, input orderapp.IngestOrderInput) (*orderapp.IngestResult, error)
}

// ProductStore is the slice of product persistence the engine touches
type ProductStore interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error)
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.Product, error)
	Save(ctx context.Context, product *catalog.Product) error
}

// StockReader supplies on-hand totals for inventory pushes
type StockReader interface {
	TotalOnHand(ctx context.Context, tenantID, productID uuid.UUID) (int64, error)
}

// StockWriter reconciles local quantities to platform-reported totals;
// writes carry the sync reason
type StockWriter interface {
	SetFromPlatform(ctx context.Context, orgID, productID uuid.UUID, quantity int64, reference string) error
}

// SyncEngine executes sync jobs: it moves products, inventory, and orders
// between an organization and its platforms. Products and orders are pulled
// from the platform; inventory is pushed, since the local stock ledger is the
// system of record.
type SyncEngine struct {
	integrationRepo integration.Repository
	jobRepo         integration.SyncJobRepository
	mappingRepo     integration.MappingRepository
	conflictRepo    integration.ConflictRepository
	productRepo     ProductStore
	levelRepo       StockReader
	stock           StockWriter
	orders          OrderIngestor
	connectors      ConnectorRegistry
	retryBaseDelay  time.Duration
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewSyncEngine creates a new sync engine
func NewSyncEngine(
	integrationRepo integration.Repository,
	jobRepo integration.SyncJobRepository,
	mappingRepo integration.MappingRepository,
	conflictRepo integration.ConflictRepository,
	productRepo ProductStore,
	levelRepo StockReader,
	stock StockWriter,
	orders OrderIngestor,
	connectors ConnectorRegistry,
	logger *zap.Logger,
) *SyncEngine {
	return &SyncEngine{
		integrationRepo: integrationRepo,
		jobRepo:         jobRepo,
		mappingRepo:     mappingRepo,
		conflictRepo:    conflictRepo,
		productRepo:     productRepo,
		levelRepo:       levelRepo,
		stock:           stock,
		orders:          orders,
		connectors:      connectors,
		retryBaseDelay:  DefaultRetryBaseDelay,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (e *SyncEngine) SetEventPublisher(publisher shared.EventPublisher) {
	e.eventPublisher = publisher
}

// SetRetryBaseDelay overrides the first retry delay
func (e *SyncEngine) SetRetryBaseDelay(d time.Duration) {
	if d > 0 {
		e.retryBaseDelay = d
	}
}

// RunJob executes one queued sync job to completion, failure, or
// retry-scheduled failure. Worker pool goroutines call this.
func (e *SyncEngine) RunJob(ctx context.Context, job *integration.SyncJob) error {
	integ, err := e.integrationRepo.FindByID(ctx, job.IntegrationID)
	if err != nil {
		return e.abandon(ctx, job, "integration no longer exists")
	}
	if !integ.IsActive() {
		return e.abandon(ctx, job, "integration is not active")
	}

	connector, ok := e.connectors.Connector(integ.Platform)
	if !ok {
		return e.abandon(ctx, job, "no connector for platform "+string(integ.Platform))
	}

	if err := job.Start(); err != nil {
		return err
	}
	if err := e.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("marking job running: %w", err)
	}

	e.logger.Info("Sync job started",
		zap.String("job_id", job.ID.String()),
		zap.String("platform", string(job.Platform)),
		zap.String("entity", string(job.Entity)),
		zap.String("direction", string(job.Direction)),
		zap.Int("attempt", job.Attempts))

	counters, runErr := e.run(ctx, integ, connector, job)

	now := time.Now()
	if runErr != nil {
		_ = job.Fail(runErr.Error(), e.retryBaseDelay)
		integ.RecordSyncFailure(runErr.Error())
		e.logger.Warn("Sync job failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(runErr))
	} else {
		_ = job.Complete(counters)
		integ.RecordSyncSuccess(job.Entity, now)
		e.logger.Info("Sync job finished",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
			zap.Int("total", counters.Total),
			zap.Int("created", counters.Created),
			zap.Int("updated", counters.Updated),
			zap.Int("skipped", counters.Skipped),
			zap.Int("failed", counters.Failed))
	}

	if err := e.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("saving finished job: %w", err)
	}
	if err := e.integrationRepo.Save(ctx, integ); err != nil {
		return fmt.Errorf("saving integration state: %w", err)
	}

	e.publishEvents(ctx, job.GetDomainEvents())
	job.ClearDomainEvents()
	e.publishEvents(ctx, integ.GetDomainEvents())
	integ.ClearDomainEvents()

	return runErr
}

// abandon cancels a job that can never run
func (e *SyncEngine) abandon(ctx context.Context, job *integration.SyncJob, reason string) error {
	e.logger.Warn("Abandoning sync job",
		zap.String("job_id", job.ID.String()),
		zap.String("reason", reason))
	job.LastError = reason
	if err := job.Cancel(); err != nil {
		return err
	}
	return e.jobRepo.Save(ctx, job)
}

func (e *SyncEngine) run(ctx context.Context, integ *integration.Integration, connector Connector, job *integration.SyncJob) (integration.SyncCounters, error) {
	switch job.Entity {
	case integration.SyncEntityProducts:
		return e.pullProducts(ctx, integ, connector, job)
	case integration.SyncEntityInventory:
		return e.pushInventory(ctx, integ, connector)
	case integration.SyncEntityOrders:
		return e.pullOrders(ctx, integ, connector, job)
	case integration.SyncEntityAll:
		return e.runAll(ctx, integ, connector, job)
	default:
		return integration.SyncCounters{}, errors.New("unknown sync entity " + string(job.Entity))
	}
}

func (e *SyncEngine) runAll(ctx context.Context, integ *integration.Integration, connector Connector, job *integration.SyncJob) (integration.SyncCounters, error) {
	var total integration.SyncCounters

	steps := []func() (integration.SyncCounters, error){
		func() (integration.SyncCounters, error) { return e.pullProducts(ctx, integ, connector, job) },
		func() (integration.SyncCounters, error) { return e.pushInventory(ctx, integ, connector) },
		func() (integration.SyncCounters, error) { return e.pullOrders(ctx, integ, connector, job) },
	}
	for _, step := range steps {
		c, err := step()
		total = addCounters(total, c)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// pullProducts fetches changed products and upserts them locally. Existing
// records are matched by mapping first, then by SKU; unmatched records become
// new products. Local edits overwritten by a remote change are recorded as
// conflicts (remote wins).
func (e *SyncEngine) pullProducts(ctx context.Context, integ *integration.Integration, connector Connector, job *integration.SyncJob) (integration.SyncCounters, error) {
	var counters integration.SyncCounters

	var since time.Time
	if integ.LastProductSyncAt != nil {
		since = *integ.LastProductSyncAt
	}

	remotes, err := connector.PullProducts(ctx, integ.Credentials, since)
	if err != nil {
		return counters, fmt.Errorf("pulling products: %w", err)
	}

	now := time.Now()
	for i := range remotes {
		counters.Total++
		outcome, err := e.applyRemoteProduct(ctx, integ, job, &remotes[i], now)
		if err != nil {
			counters.Failed++
			e.logger.Warn("Failed to apply remote product",
				zap.String("external_id", remotes[i].ExternalID),
				zap.String("sku", remotes[i].SKU),
				zap.Error(err))
			continue
		}
		switch outcome {
		case outcomeCreated:
			counters.Created++
		case outcomeUpdated:
			counters.Updated++
		default:
			counters.Skipped++
		}
	}

	return counters, nil
}

type applyOutcome int

const (
	outcomeSkipped applyOutcome = iota
	outcomeCreated
	outcomeUpdated
)

func (e *SyncEngine) applyRemoteProduct(ctx context.Context, integ *integration.Integration, job *integration.SyncJob, remote *RemoteProduct, now time.Time) (applyOutcome, error) {
	mapping, err := e.mappingRepo.FindByExternalID(ctx, integ.ID, remote.ExternalID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return outcomeSkipped, err
	}

	if mapping != nil {
		if !mapping.SyncEnabled {
			return outcomeSkipped, nil
		}
		product, err := e.productRepo.FindByIDForTenant(ctx, integ.TenantID, mapping.ProductID)
		if err != nil {
			return outcomeSkipped, err
		}
		changed, err := e.mergeRemoteProduct(ctx, integ, job, mapping, product, remote)
		if err != nil {
			return outcomeSkipped, err
		}
		mapping.MarkSynced(remoteProductHash(remote), now)
		if err := e.mappingRepo.Save(ctx, mapping); err != nil {
			return outcomeSkipped, err
		}
		if !changed {
			return outcomeSkipped, nil
		}
		return outcomeUpdated, nil
	}

	// no mapping yet: match by SKU before creating anything
	existing, err := e.productRepo.FindBySKU(ctx, integ.TenantID, remote.SKU)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return outcomeSkipped, err
	}

	var product *catalog.Product
	outcome := outcomeUpdated
	if existing != nil {
		product = existing
		if _, err := e.mergeRemoteProduct(ctx, integ, job, nil, product, remote); err != nil {
			return outcomeSkipped, err
		}
	} else {
		if remote.Active {
			product, err = catalog.NewProduct(integ.TenantID, remote.SKU, remote.Name, remote.Price)
		} else {
			product, err = catalog.NewDraftProduct(integ.TenantID, remote.SKU, remote.Name, remote.Price)
		}
		if err != nil {
			return outcomeSkipped, err
		}
		if remote.Description != "" {
			if err := product.Update(remote.Name, remote.Description); err != nil {
				return outcomeSkipped, err
			}
		}
		if err := e.productRepo.Save(ctx, product); err != nil {
			return outcomeSkipped, err
		}
		e.publishEvents(ctx, product.GetDomainEvents())
		product.ClearDomainEvents()
		outcome = outcomeCreated
	}

	mapping, err = integration.NewProductMapping(integ.TenantID, integ.ID, product.ID, remote.ExternalID, remote.ExternalVariantID)
	if err != nil {
		return outcomeSkipped, err
	}
	mapping.MarkSynced(remoteProductHash(remote), now)
	if err := e.mappingRepo.Save(ctx, mapping); err != nil {
		return outcomeSkipped, err
	}

	return outcome, nil
}

// mergeRemoteProduct applies the remote name, description, and price to a
// local product. When the local copy changed since the last sync and the
// values disagree, the remote value still wins but a conflict row is kept for
// operator review.
func (e *SyncEngine) mergeRemoteProduct(ctx context.Context, integ *integration.Integration, job *integration.SyncJob, mapping *integration.ProductMapping, product *catalog.Product, remote *RemoteProduct) (bool, error) {
	localEdited := mapping != nil && mapping.LastSyncedAt != nil && product.UpdatedAt.After(*mapping.LastSyncedAt)

	changed := false
	if remote.Name != "" && product.Name != remote.Name {
		if localEdited {
			e.recordConflict(ctx, integ, job, "product", product.ID, "name", product.Name, remote.Name)
		}
		changed = true
	}
	if remote.Description != "" && product.Description != remote.Description {
		changed = true
	}
	if changed {
		name := remote.Name
		if name == "" {
			name = product.Name
		}
		description := remote.Description
		if description == "" {
			description = product.Description
		}
		if err := product.Update(name, description); err != nil {
			return false, err
		}
	}

	if !product.UnitPrice.Equal(remote.Price) {
		if localEdited {
			e.recordConflict(ctx, integ, job, "product", product.ID, "unit_price",
				product.UnitPrice.String(), remote.Price.String())
		}
		if err := product.SetUnitPrice(remote.Price); err != nil {
			return false, err
		}
		changed = true
	}

	if !changed {
		return false, nil
	}

	if err := e.productRepo.Save(ctx, product); err != nil {
		return false, err
	}
	e.publishEvents(ctx, product.GetDomainEvents())
	product.ClearDomainEvents()
	return true, nil
}

func (e *SyncEngine) recordConflict(ctx context.Context, integ *integration.Integration, job *integration.SyncJob, entityType string, entityID uuid.UUID, field, localValue, remoteValue string) {
	var jobID *uuid.UUID
	if job != nil {
		id := job.ID
		jobID = &id
	}
	conflict := integration.NewSyncConflict(integ.TenantID, integ.ID, jobID, entityType, entityID, field, localValue, remoteValue)
	if err := e.conflictRepo.Save(ctx, conflict); err != nil {
		e.logger.Error("Failed to record sync conflict",
			zap.String("entity_id", entityID.String()),
			zap.String("field", field),
			zap.Error(err))
	}
}

// pushInventory writes current on-hand totals and list prices to the platform
// for every mapped product. A content hash per mapping skips records that
// haven't changed since the last push. Before overwriting, the platform's own
// quantities are pulled once; a disagreement is kept as a conflict row so the
// operator can see what the push replaced.
func (e *SyncEngine) pushInventory(ctx context.Context, integ *integration.Integration, connector Connector) (integration.SyncCounters, error) {
	var counters integration.SyncCounters

	mappings, err := e.mappingRepo.FindAllForIntegration(ctx, integ.ID)
	if err != nil {
		return counters, fmt.Errorf("loading product mappings: %w", err)
	}

	remoteQty := make(map[string]int64)
	if len(mappings) > 0 {
		remotes, err := connector.PullInventory(ctx, integ.Credentials, time.Time{})
		if err != nil {
			e.logger.Warn("Failed to pull platform inventory before push",
				zap.String("integration_id", integ.ID.String()),
				zap.Error(err))
		}
		for i := range remotes {
			remoteQty[remotes[i].ExternalProductID] = remotes[i].Quantity
		}
	}

	now := time.Now()
	var batch []InventoryPush
	var prices []PricePush
	var touched []*integration.ProductMapping
	hashes := make(map[uuid.UUID]string)

	for i := range mappings {
		mapping := &mappings[i]
		counters.Total++
		if !mapping.SyncEnabled {
			counters.Skipped++
			continue
		}

		onHand, err := e.levelRepo.TotalOnHand(ctx, integ.TenantID, mapping.ProductID)
		if err != nil {
			counters.Failed++
			e.logger.Warn("Failed to load on-hand total for push",
				zap.String("product_id", mapping.ProductID.String()),
				zap.Error(err))
			continue
		}

		product, err := e.productRepo.FindByIDForTenant(ctx, integ.TenantID, mapping.ProductID)
		if err != nil {
			counters.Failed++
			e.logger.Warn("Failed to load product for push",
				zap.String("product_id", mapping.ProductID.String()),
				zap.Error(err))
			continue
		}

		hash := pushHash(mapping.ExternalProductID, onHand, product.UnitPrice)
		if !mapping.NeedsSync(hash) {
			counters.Skipped++
			continue
		}

		if qty, ok := remoteQty[mapping.ExternalProductID]; ok && qty != onHand {
			e.recordConflict(ctx, integ, nil, "inventory", mapping.ProductID, "quantity_on_hand",
				strconv.FormatInt(onHand, 10), strconv.FormatInt(qty, 10))
		}

		batch = append(batch, InventoryPush{
			ExternalProductID: mapping.ExternalProductID,
			ExternalVariantID: mapping.ExternalVariantID,
			SKU:               product.SKU,
			Quantity:          onHand,
		})
		prices = append(prices, PricePush{
			ExternalProductID: mapping.ExternalProductID,
			ExternalVariantID: mapping.ExternalVariantID,
			SKU:               product.SKU,
			Price:             product.UnitPrice,
		})
		touched = append(touched, mapping)
		hashes[mapping.ID] = hash
	}

	if len(batch) == 0 {
		return counters, nil
	}

	if err := connector.PushInventory(ctx, integ.Credentials, batch); err != nil {
		return counters, fmt.Errorf("pushing inventory: %w", err)
	}
	if err := connector.PushPrice(ctx, integ.Credentials, prices); err != nil {
		return counters, fmt.Errorf("pushing prices: %w", err)
	}

	for _, mapping := range touched {
		mapping.MarkSynced(hashes[mapping.ID], now)
		if err := e.mappingRepo.Save(ctx, mapping); err != nil {
			counters.Failed++
			continue
		}
		counters.Updated++
	}

	return counters, nil
}

// pullOrders fetches orders inside the job window, or since the last order
// sync when the job carries no window.
func (e *SyncEngine) pullOrders(ctx context.Context, integ *integration.Integration, connector Connector, job *integration.SyncJob) (integration.SyncCounters, error) {
	var counters integration.SyncCounters

	now := time.Now()
	from := now.Add(-defaultOrderLookback)
	to := now
	if job.WindowStart != nil && job.WindowEnd != nil {
		from, to = *job.WindowStart, *job.WindowEnd
	} else if integ.LastOrderSyncAt != nil {
		from = *integ.LastOrderSyncAt
	}

	remotes, err := connector.PullOrders(ctx, integ.Credentials, from, to)
	if err != nil {
		return counters, fmt.Errorf("pulling orders: %w", err)
	}

	for i := range remotes {
		counters.Total++
		remote := &remotes[i]

		result, err := e.ingestRemoteOrder(ctx, integ, remote)
		if err != nil {
			counters.Failed++
			e.logger.Warn("Failed to ingest order",
				zap.String("external_id", remote.ExternalID),
				zap.Error(err))
			continue
		}

		switch {
		case result.Created:
			counters.Created++
		case result.Skipped:
			counters.Skipped++
		default:
			counters.Updated++
		}
	}

	return counters, nil
}

func (e *SyncEngine) ingestRemoteOrder(ctx context.Context, integ *integration.Integration, remote *RemoteOrder) (*orderapp.IngestResult, error) {
	return e.orders.Ingest(ctx, orderapp.IngestOrderInput{
		OrgID:             integ.TenantID,
		Platform:          string(integ.Platform),
		ExternalID:        remote.ExternalID,
		OrderNumber:       remote.OrderNumber,
		CustomerEmail:     remote.CustomerEmail,
		Status:            normalizeOrderStatus(remote.Status),
		RawPlatformStatus: remote.RawStatus,
		Currency:          remote.Currency,
		Subtotal:          remote.Subtotal,
		ShippingTotal:     remote.ShippingTotal,
		TaxTotal:          remote.TaxTotal,
		Total:             remote.Total,
		PlacedAt:          remote.PlacedAt,
		PlatformUpdatedAt: remote.UpdatedAt,
		ShippingAddress:   remote.ShippingAddress,
		Items:             toIngestItems(remote.Items),
	})
}

// ApplyProduct upserts one platform-reported product outside a sync job;
// webhook dispatch calls this
func (e *SyncEngine) ApplyProduct(ctx context.Context, integ *integration.Integration, remote *RemoteProduct) error {
	_, err := e.applyRemoteProduct(ctx, integ, nil, remote, time.Now())
	return err
}

// ApplyOrder ingests one platform-reported order outside a sync job
func (e *SyncEngine) ApplyOrder(ctx context.Context, integ *integration.Integration, remote *RemoteOrder) error {
	_, err := e.ingestRemoteOrder(ctx, integ, remote)
	return err
}

// ApplyInventory reconciles local stock to a quantity the platform reported
// changed on its side. The platform observed its own change, so the remote
// value wins here; the scheduled push reasserts local totals on its cadence.
func (e *SyncEngine) ApplyInventory(ctx context.Context, integ *integration.Integration, remote *RemoteInventory) error {
	mapping, err := e.lookupMapping(ctx, integ.ID, remote)
	if err != nil {
		return err
	}

	var productID uuid.UUID
	switch {
	case mapping != nil && !mapping.SyncEnabled:
		return nil
	case mapping != nil:
		productID = mapping.ProductID
	case remote.SKU != "":
		product, err := e.productRepo.FindBySKU(ctx, integ.TenantID, remote.SKU)
		if err != nil {
			return fmt.Errorf("matching platform inventory by SKU %s: %w", remote.SKU, err)
		}
		productID = product.ID
	default:
		return errors.New("platform inventory change matches no local product")
	}

	return e.stock.SetFromPlatform(ctx, integ.TenantID, productID, remote.Quantity, "webhook:"+string(integ.Platform))
}

// lookupMapping resolves an inventory record's mapping by the platform
// product ID, then by variant ID; Shopify stock webhooks carry only the
// latter
func (e *SyncEngine) lookupMapping(ctx context.Context, integrationID uuid.UUID, remote *RemoteInventory) (*integration.ProductMapping, error) {
	if remote.ExternalProductID != "" {
		mapping, err := e.mappingRepo.FindByExternalID(ctx, integrationID, remote.ExternalProductID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if mapping != nil {
			return mapping, nil
		}
	}
	if remote.ExternalVariantID != "" {
		mapping, err := e.mappingRepo.FindByExternalVariantID(ctx, integrationID, remote.ExternalVariantID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if mapping != nil {
			return mapping, nil
		}
	}
	return nil, nil
}

func toIngestItems(items []RemoteOrderItem) []orderapp.IngestItemInput {
	out := make([]orderapp.IngestItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, orderapp.IngestItemInput{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return out
}

func (e *SyncEngine) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if e.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = e.eventPublisher.Publish(ctx, events...)
}

func addCounters(a, b integration.SyncCounters) integration.SyncCounters {
	return integration.SyncCounters{
		Total:   a.Total + b.Total,
		Created: a.Created + b.Created,
		Updated: a.Updated + b.Updated,
		Skipped: a.Skipped + b.Skipped,
		Failed:  a.Failed + b.Failed,
	}
}

// normalizeOrderStatus maps a connector-reported status onto the common
// vocabulary; unknown strings leave the local status untouched.
func normalizeOrderStatus(s string) order.Status {
	status := order.Status(s)
	if status.IsValid() {
		return status
	}
	return ""
}

func remoteProductHash(remote *RemoteProduct) string {
	sum := sha256.Sum256([]byte(remote.SKU + "|" + remote.Name + "|" + remote.Price.String()))
	return hex.EncodeToString(sum[:])
}

func pushHash(externalProductID string, quantity int64, price decimal.Decimal) string {
	sum := sha256.Sum256([]byte(externalProductID + "|" + strconv.FormatInt(quantity, 10) + "|" + price.String()))
	return hex.EncodeToString(sum[:])
}
