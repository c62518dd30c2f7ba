// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks the data-sync health signals operators care about:
// orders ingested per platform, webhook delivery outcomes, sync job results,
// and inventory levels sitting at or below their reorder point.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	orderIngestedTotal   *Counter
	orderAmountTotal     *Counter
	webhookReceivedTotal *Counter
	syncJobTotal         *Counter

	// Gauge metrics (point-in-time values)
	lowStockCount  *Gauge
	syncJobBacklog *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	inventoryProvider InventoryMetricsProvider
	syncProvider      SyncMetricsProvider
}

// InventoryMetricsProvider provides inventory data for periodic metrics
// collection. The interface keeps the telemetry layer off the inventory
// domain packages.
type InventoryMetricsProvider interface {
	// GetLowStockCount returns how many levels sit at or below their
	// reorder point for an organization
	GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// SyncMetricsProvider provides sync pipeline data for periodic metrics
// collection.
type SyncMetricsProvider interface {
	// GetQueuedJobCount returns how many sync jobs are waiting for a worker
	GetQueuedJobCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	CollectInterval   time.Duration // Default: 5 minutes
	InventoryProvider InventoryMetricsProvider
	SyncProvider      SyncMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		inventoryProvider: cfg.InventoryProvider,
		syncProvider:      cfg.SyncProvider,
	}

	var err error

	// Order ingestion metrics
	bm.orderIngestedTotal, err = NewCounter(
		cfg.Meter,
		"truthsource_order_ingested_total",
		"Total number of orders ingested from commerce platforms",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderAmountTotal, err = NewCounter(
		cfg.Meter,
		"truthsource_order_amount_total",
		"Total ingested order amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Webhook metrics
	bm.webhookReceivedTotal, err = NewCounter(
		cfg.Meter,
		"truthsource_webhook_received_total",
		"Total number of webhook deliveries received",
		"{deliveries}",
	)
	if err != nil {
		return nil, err
	}

	// Sync job metrics
	bm.syncJobTotal, err = NewCounter(
		cfg.Meter,
		"truthsource_sync_job_total",
		"Total number of finished sync jobs",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	// Gauge metrics
	bm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"truthsource_inventory_low_stock_count",
		"Number of stock levels at or below their reorder point",
		"{levels}",
	)
	if err != nil {
		return nil, err
	}

	bm.syncJobBacklog, err = NewGauge(
		cfg.Meter,
		"truthsource_sync_job_backlog",
		"Number of sync jobs waiting for a worker",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Order Ingestion Metrics
// =============================================================================

// RecordOrderIngested records an order pulled or pushed from a platform.
func (bm *BusinessMetrics) RecordOrderIngested(ctx context.Context, tenantID uuid.UUID, platform string) {
	bm.orderIngestedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
	)
}

// RecordOrderAmount records the ingested order amount.
// Amount should be in the smallest currency unit (cents).
func (bm *BusinessMetrics) RecordOrderAmount(ctx context.Context, tenantID uuid.UUID, platform string, amountCents int64) {
	bm.orderAmountTotal.Add(ctx, amountCents,
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
	)
}

// RecordOrderWithAmount records both the order count and its amount.
func (bm *BusinessMetrics) RecordOrderWithAmount(ctx context.Context, tenantID uuid.UUID, platform string, amount decimal.Decimal) {
	bm.RecordOrderIngested(ctx, tenantID, platform)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.RecordOrderAmount(ctx, tenantID, platform, amountCents)
}

// =============================================================================
// Webhook Metrics
// =============================================================================

// WebhookOutcome represents the result of a webhook delivery for metrics labeling.
type WebhookOutcome string

const (
	WebhookOutcomeAccepted  WebhookOutcome = "accepted"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
)

// RecordWebhookReceived records a webhook delivery and its outcome.
func (bm *BusinessMetrics) RecordWebhookReceived(ctx context.Context, tenantID uuid.UUID, platform string, outcome WebhookOutcome) {
	bm.webhookReceivedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Sync Job Metrics
// =============================================================================

// RecordSyncJobFinished records a sync job reaching a terminal state.
// The result label carries the job's final status (succeeded, partial,
// failed, cancelled).
func (bm *BusinessMetrics) RecordSyncJobFinished(ctx context.Context, tenantID uuid.UUID, platform, result string) {
	bm.syncJobTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
		AttrJobResult.String(result),
	)
}

// =============================================================================
// Gauge Metrics
// =============================================================================

// RecordLowStockCount records the number of levels at or below reorder point.
// This is a gauge metric updated by the periodic collector.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.lowStockCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordSyncJobBacklog records how many sync jobs are queued.
// This is a gauge metric updated by the periodic collector.
func (bm *BusinessMetrics) RecordSyncJobBacklog(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.syncJobBacklog.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides organization IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectGaugeMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectGaugeMetrics(ctx, tenantProvider)
		}
	}
}

// collectGaugeMetrics collects gauge metrics for all organizations.
func (bm *BusinessMetrics) collectGaugeMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.inventoryProvider == nil && bm.syncProvider == nil {
		bm.logger.Debug("No metric providers configured, skipping gauge collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantGaugeMetrics(ctx, tenantID)
	}
}

// collectTenantGaugeMetrics collects gauge metrics for a single organization.
func (bm *BusinessMetrics) collectTenantGaugeMetrics(ctx context.Context, tenantID uuid.UUID) {
	if bm.inventoryProvider != nil {
		lowStock, err := bm.inventoryProvider.GetLowStockCount(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to get low stock count for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			bm.RecordLowStockCount(ctx, tenantID, lowStock)
		}
	}

	if bm.syncProvider != nil {
		queued, err := bm.syncProvider.GetQueuedJobCount(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to get sync job backlog for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			bm.RecordSyncJobBacklog(ctx, tenantID, queued)
		}
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
