package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	insightsapp "github.com/truthsource/backend/internal/application/insights"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/insights"
)

// AnomalyScanner runs anomaly detection over one data class
type AnomalyScanner interface {
	Detect(ctx context.Context, input insightsapp.DetectAnomaliesInput) (*insightsapp.DetectionResult, error)
}

// OrganizationSource lists the organizations eligible for scheduled scans
type OrganizationSource interface {
	FindAllActive(ctx context.Context) ([]identity.Organization, error)
}

// InsightsSchedulerConfig holds scheduled-scan configuration
type InsightsSchedulerConfig struct {
	// CheckInterval is how often due scans are looked for
	CheckInterval time.Duration
	// DefaultInterval spaces scans when no recommendation exists yet,
	// and after a failed run
	DefaultInterval time.Duration
	// ScanTimeout bounds one detection run
	ScanTimeout time.Duration
}

// DefaultInsightsSchedulerConfig returns the default scan configuration
func DefaultInsightsSchedulerConfig() InsightsSchedulerConfig {
	return InsightsSchedulerConfig{
		CheckInterval:   time.Minute,
		DefaultInterval: 4 * time.Hour,
		ScanTimeout:     2 * time.Minute,
	}
}

type scanKey struct {
	orgID    uuid.UUID
	dataType insights.DataType
}

// InsightsScheduler runs anomaly scans for every active organization. Each
// detection run recommends when to check next (sooner after critical
// findings), and the scheduler follows that cadence per organization and
// data class.
type InsightsScheduler struct {
	config  InsightsSchedulerConfig
	orgs    OrganizationSource
	scanner AnomalyScanner
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool

	nextScanMu sync.Mutex
	nextScan   map[scanKey]time.Time
}

// NewInsightsScheduler creates an insights scheduler
func NewInsightsScheduler(config InsightsSchedulerConfig, orgs OrganizationSource, scanner AnomalyScanner, logger *zap.Logger) *InsightsScheduler {
	return &InsightsScheduler{
		config:   config,
		orgs:     orgs,
		scanner:  scanner,
		logger:   logger,
		nextScan: make(map[scanKey]time.Time),
	}
}

// Start launches the scan loop
func (s *InsightsScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Insights scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("default_interval", s.config.DefaultInterval),
	)

	return nil
}

// Stop stops the scan loop
func (s *InsightsScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Insights scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *InsightsScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *InsightsScheduler) tick(ctx context.Context) {
	orgs, err := s.orgs.FindAllActive(ctx)
	if err != nil {
		s.logger.Warn("Listing organizations for scheduled scans failed", zap.Error(err))
		return
	}

	dataTypes := []insights.DataType{
		insights.DataTypeInventory,
		insights.DataTypeOrders,
		insights.DataTypePricing,
	}

	now := time.Now()
	for i := range orgs {
		for _, dataType := range dataTypes {
			key := scanKey{orgID: orgs[i].ID, dataType: dataType}
			if !s.due(key, now) {
				continue
			}
			s.scan(ctx, key)
		}
	}
}

func (s *InsightsScheduler) due(key scanKey, now time.Time) bool {
	s.nextScanMu.Lock()
	defer s.nextScanMu.Unlock()

	next, seen := s.nextScan[key]
	return !seen || !next.After(now)
}

func (s *InsightsScheduler) scan(ctx context.Context, key scanKey) {
	scanCtx, cancel := context.WithTimeout(ctx, s.config.ScanTimeout)
	defer cancel()

	result, err := s.scanner.Detect(scanCtx, insightsapp.DetectAnomaliesInput{
		OrgID:    key.orgID,
		DataType: key.dataType,
	})

	nextIn := s.config.DefaultInterval
	if err != nil {
		s.logger.Warn("Scheduled anomaly scan failed",
			zap.String("org_id", key.orgID.String()),
			zap.String("data_type", string(key.dataType)),
			zap.Error(err),
		)
	} else {
		if result.NextCheckIn > 0 {
			nextIn = result.NextCheckIn
		}
		if len(result.Anomalies) > 0 {
			s.logger.Info("Scheduled anomaly scan found anomalies",
				zap.String("org_id", key.orgID.String()),
				zap.String("data_type", string(key.dataType)),
				zap.Int("anomalies", len(result.Anomalies)),
				zap.Duration("next_check_in", nextIn),
			)
		}
	}

	s.nextScanMu.Lock()
	s.nextScan[key] = time.Now().Add(nextIn)
	s.nextScanMu.Unlock()
}
