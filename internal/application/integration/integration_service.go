package integration

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/shared"
)

// IntegrationQuota enforces the organization's plan limits on connected
// platforms and monthly sync operations. The billing context implements it.
type IntegrationQuota interface {
	EnsureIntegrationAllowance(ctx context.Context, orgID uuid.UUID) error
	EnsureSyncAllowance(ctx context.Context, orgID uuid.UUID) error
}

// Service handles platform connections and sync job management
type Service struct {
	integrationRepo integration.Repository
	jobRepo         integration.SyncJobRepository
	conflictRepo    integration.ConflictRepository
	quota           IntegrationQuota
	connectors      ConnectorRegistry
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewService creates a new integration service
func NewService(
	integrationRepo integration.Repository,
	jobRepo integration.SyncJobRepository,
	conflictRepo integration.ConflictRepository,
	quota IntegrationQuota,
	connectors ConnectorRegistry,
	logger *zap.Logger,
) *Service {
	return &Service{
		integrationRepo: integrationRepo,
		jobRepo:         jobRepo,
		conflictRepo:    conflictRepo,
		quota:           quota,
		connectors:      connectors,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Connect adds a platform connection for an organization
func (s *Service) Connect(ctx context.Context, input ConnectInput) (*IntegrationInfo, error) {
	if err := s.quota.EnsureIntegrationAllowance(ctx, input.OrgID); err != nil {
		return nil, err
	}

	integ, err := integration.NewIntegration(input.OrgID, input.Platform, input.DisplayName, input.Credentials)
	if err != nil {
		return nil, err
	}

	// credentials are verified against the platform before anything is stored
	if conn, ok := s.connector(input.Platform); ok {
		if err := conn.Ping(ctx, input.Credentials); err != nil {
			s.logger.Warn("Platform ping rejected the credentials",
				zap.String("platform", string(input.Platform)),
				zap.Error(err))
			return nil, shared.NewDomainError("PLATFORM_UNREACHABLE", "The platform rejected the credentials or is unreachable")
		}
	}

	if err := s.integrationRepo.Save(ctx, integ); err != nil {
		s.logger.Error("Failed to save integration", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to connect platform")
	}

	s.publishEvents(ctx, integ.GetDomainEvents())
	integ.ClearDomainEvents()

	s.logger.Info("Platform connected",
		zap.String("org_id", input.OrgID.String()),
		zap.String("platform", string(input.Platform)),
		zap.String("integration_id", integ.ID.String()))

	// first full pull runs immediately so the connection is usable right away
	if _, err := s.enqueue(ctx, integ, integration.SyncDirectionPull, integration.SyncEntityAll, integration.SyncTriggerManual); err != nil {
		s.logger.Warn("Failed to enqueue initial sync", zap.Error(err))
	}

	info := toIntegrationInfo(integ)
	return &info, nil
}

// Get returns one integration
func (s *Service) Get(ctx context.Context, orgID, integrationID uuid.UUID) (*IntegrationInfo, error) {
	integ, err := s.integrationRepo.FindByIDForTenant(ctx, orgID, integrationID)
	if err != nil {
		return nil, shared.NewDomainError("INTEGRATION_NOT_FOUND", "Integration not found")
	}
	info := toIntegrationInfo(integ)
	return &info, nil
}

// List returns the organization's integrations
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]IntegrationInfo, error) {
	integrations, err := s.integrationRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list integrations", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list integrations")
	}

	infos := make([]IntegrationInfo, 0, len(integrations))
	for i := range integrations {
		infos = append(infos, toIntegrationInfo(&integrations[i]))
	}
	return infos, nil
}

// Update modifies an integration's name, interval, or credentials
func (s *Service) Update(ctx context.Context, input UpdateIntegrationInput) (*IntegrationInfo, error) {
	integ, err := s.integrationRepo.FindByIDForTenant(ctx, input.OrgID, input.IntegrationID)
	if err != nil {
		return nil, shared.NewDomainError("INTEGRATION_NOT_FOUND", "Integration not found")
	}

	if input.DisplayName != nil {
		if err := integ.Rename(*input.DisplayName); err != nil {
			return nil, err
		}
	}
	if input.SyncIntervalMinutes != nil {
		if err := integ.SetSyncInterval(*input.SyncIntervalMinutes); err != nil {
			return nil, err
		}
	}
	if input.Credentials != nil {
		if err := integ.UpdateCredentials(*input.Credentials); err != nil {
			return nil, err
		}
		if conn, ok := s.connector(integ.Platform); ok {
			if err := conn.Ping(ctx, integ.Credentials); err != nil {
				return nil, shared.NewDomainError("PLATFORM_UNREACHABLE", "The platform rejected the credentials or is unreachable")
			}
		}
	}

	if err := s.integrationRepo.Save(ctx, integ); err != nil {
		s.logger.Error("Failed to update integration", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update integration")
	}

	info := toIntegrationInfo(integ)
	return &info, nil
}

// Pause stops scheduled syncs and webhook processing
func (s *Service) Pause(ctx context.Context, orgID, integrationID uuid.UUID) error {
	return s.transition(ctx, orgID, integrationID, func(i *integration.Integration) error { return i.Pause() })
}

// Resume reactivates a paused or errored integration
func (s *Service) Resume(ctx context.Context, orgID, integrationID uuid.UUID) error {
	return s.transition(ctx, orgID, integrationID, func(i *integration.Integration) error { return i.Resume() })
}

// Disconnect removes an integration and its product mappings
func (s *Service) Disconnect(ctx context.Context, orgID, integrationID uuid.UUID) error {
	integ, err := s.integrationRepo.FindByIDForTenant(ctx, orgID, integrationID)
	if err != nil {
		return shared.NewDomainError("INTEGRATION_NOT_FOUND", "Integration not found")
	}

	if err := s.integrationRepo.Delete(ctx, integ); err != nil {
		s.logger.Error("Failed to delete integration", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to disconnect platform")
	}

	s.logger.Info("Platform disconnected",
		zap.String("org_id", orgID.String()),
		zap.String("integration_id", integrationID.String()))
	return nil
}

// TriggerSync queues a manual sync run for an integration
func (s *Service) TriggerSync(ctx context.Context, input TriggerSyncInput) (*SyncJobInfo, error) {
	integ, err := s.integrationRepo.FindByIDForTenant(ctx, input.OrgID, input.IntegrationID)
	if err != nil {
		return nil, shared.NewDomainError("INTEGRATION_NOT_FOUND", "Integration not found")
	}
	if !integ.IsActive() {
		return nil, shared.NewDomainError("INTEGRATION_INACTIVE", "Integration is not active")
	}

	if err := s.quota.EnsureSyncAllowance(ctx, input.OrgID); err != nil {
		return nil, err
	}

	direction := input.Direction
	if direction == "" {
		direction = integration.SyncDirectionPull
	}

	job, err := s.enqueue(ctx, integ, direction, input.Entity, integration.SyncTriggerManual)
	if err != nil {
		return nil, err
	}

	info := toSyncJobInfo(job)
	return &info, nil
}

// enqueue creates a queued sync job unless an equivalent one is already
// queued or running.
func (s *Service) enqueue(ctx context.Context, integ *integration.Integration, direction integration.SyncDirection, entity integration.SyncEntity, trigger integration.SyncTrigger) (*integration.SyncJob, error) {
	pending, err := s.jobRepo.HasPending(ctx, integ.ID, entity)
	if err != nil {
		s.logger.Error("Failed to check pending sync jobs", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to queue sync")
	}
	if pending {
		return nil, shared.NewDomainError("SYNC_ALREADY_PENDING", "A sync for this entity is already queued or running")
	}

	job, err := integration.NewSyncJob(integ.TenantID, integ, direction, entity, trigger)
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to save sync job", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to queue sync")
	}

	return job, nil
}

// GetJob returns one sync job
func (s *Service) GetJob(ctx context.Context, orgID, jobID uuid.UUID) (*SyncJobInfo, error) {
	job, err := s.jobRepo.FindByIDForTenant(ctx, orgID, jobID)
	if err != nil {
		return nil, shared.NewDomainError("JOB_NOT_FOUND", "Sync job not found")
	}
	info := toSyncJobInfo(job)
	return &info, nil
}

// ListJobs returns sync jobs for an organization
func (s *Service) ListJobs(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]SyncJobInfo, error) {
	jobs, err := s.jobRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list sync jobs", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list sync jobs")
	}

	infos := make([]SyncJobInfo, 0, len(jobs))
	for i := range jobs {
		infos = append(infos, toSyncJobInfo(&jobs[i]))
	}
	return infos, nil
}

// RecentJobs returns the latest jobs for one integration
func (s *Service) RecentJobs(ctx context.Context, orgID, integrationID uuid.UUID, limit int) ([]SyncJobInfo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	jobs, err := s.jobRepo.FindRecentForIntegration(ctx, orgID, integrationID, limit)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list sync jobs")
	}

	infos := make([]SyncJobInfo, 0, len(jobs))
	for i := range jobs {
		infos = append(infos, toSyncJobInfo(&jobs[i]))
	}
	return infos, nil
}

// CancelJob stops a queued or failed job
func (s *Service) CancelJob(ctx context.Context, orgID, jobID uuid.UUID) error {
	job, err := s.jobRepo.FindByIDForTenant(ctx, orgID, jobID)
	if err != nil {
		return shared.NewDomainError("JOB_NOT_FOUND", "Sync job not found")
	}

	if err := job.Cancel(); err != nil {
		return err
	}

	if err := s.jobRepo.Save(ctx, job); err != nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to cancel sync job")
	}
	return nil
}

// ListConflicts returns open sync conflicts for review
func (s *Service) ListConflicts(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]ConflictInfo, error) {
	conflicts, err := s.conflictRepo.FindUnresolvedForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list conflicts")
	}

	infos := make([]ConflictInfo, 0, len(conflicts))
	for i := range conflicts {
		infos = append(infos, toConflictInfo(&conflicts[i]))
	}
	return infos, nil
}

// ResolveConflict marks a conflict reviewed
func (s *Service) ResolveConflict(ctx context.Context, input ResolveConflictInput) (*ConflictInfo, error) {
	conflict, err := s.conflictRepo.FindByIDForTenant(ctx, input.OrgID, input.ConflictID)
	if err != nil {
		return nil, shared.NewDomainError("CONFLICT_NOT_FOUND", "Sync conflict not found")
	}

	if err := conflict.Resolve(input.Resolution); err != nil {
		return nil, err
	}

	if err := s.conflictRepo.Save(ctx, conflict); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to resolve conflict")
	}

	info := toConflictInfo(conflict)
	return &info, nil
}

// PushOrderStatus forwards a local order status change to the order's origin
// platform. Orders entered by hand, paused integrations, and platforms
// without a connector all fall through silently.
func (s *Service) PushOrderStatus(ctx context.Context, orgID uuid.UUID, platform, externalID, status string) error {
	if platform == "" || externalID == "" {
		return nil
	}
	conn, ok := s.connector(integration.Platform(platform))
	if !ok {
		return nil
	}

	integ, err := s.integrationRepo.FindActiveByPlatform(ctx, orgID, integration.Platform(platform))
	if err != nil {
		return nil
	}

	if err := conn.UpdateOrderStatus(ctx, integ.Credentials, externalID, status); err != nil {
		return shared.NewDomainError("PLATFORM_PUSH_FAILED", "Failed to push the order status to the platform")
	}
	return nil
}

func (s *Service) connector(platform integration.Platform) (Connector, bool) {
	if s.connectors == nil {
		return nil, false
	}
	return s.connectors.Connector(platform)
}

func (s *Service) transition(ctx context.Context, orgID, integrationID uuid.UUID, fn func(*integration.Integration) error) error {
	integ, err := s.integrationRepo.FindByIDForTenant(ctx, orgID, integrationID)
	if err != nil {
		return shared.NewDomainError("INTEGRATION_NOT_FOUND", "Integration not found")
	}

	if err := fn(integ); err != nil {
		return err
	}

	if err := s.integrationRepo.Save(ctx, integ); err != nil {
		s.logger.Error("Failed to save integration", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update integration")
	}

	s.publishEvents(ctx, integ.GetDomainEvents())
	integ.ClearDomainEvents()
	return nil
}

func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
