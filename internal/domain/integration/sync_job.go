package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/truthsource/backend/internal/domain/shared"
)

// SyncDirection is the direction records move in a sync job
type SyncDirection string

const (
	SyncDirectionPull SyncDirection = "pull" // platform → TruthSource
	SyncDirectionPush SyncDirection = "push" // TruthSource → platform
)

// SyncTrigger records what started a job
type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerWebhook   SyncTrigger = "webhook"
)

// SyncJobStatus represents the lifecycle state of a sync job
type SyncJobStatus string

const (
	SyncJobStatusQueued    SyncJobStatus = "queued"
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusSucceeded SyncJobStatus = "succeeded"
	SyncJobStatusPartial   SyncJobStatus = "partial" // finished with some record-level failures
	SyncJobStatusFailed    SyncJobStatus = "failed"
	SyncJobStatusCancelled SyncJobStatus = "cancelled"
)

// IsTerminal returns true when the job will not run again
func (s SyncJobStatus) IsTerminal() bool {
	switch s {
	case SyncJobStatusSucceeded, SyncJobStatusPartial, SyncJobStatusCancelled:
		return true
	}
	return false
}

// Default retry budget for sync jobs
const SyncJobMaxAttempts = 3

// SyncCounters tallies per-record outcomes of a job run
type SyncCounters struct {
	Total   int `gorm:"column:count_total;not null;default:0" json:"total"`
	Created int `gorm:"column:count_created;not null;default:0" json:"created"`
	Updated int `gorm:"column:count_updated;not null;default:0" json:"updated"`
	Skipped int `gorm:"column:count_skipped;not null;default:0" json:"skipped"`
	Failed  int `gorm:"column:count_failed;not null;default:0" json:"failed"`
}

// SyncJob is one queued unit of sync work: pull or push one entity class for
// one integration. The scheduler owns its lifecycle.
type SyncJob struct {
	shared.TenantAggregateRoot
	IntegrationID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Platform      Platform      `gorm:"type:varchar(20);not null"`
	Direction     SyncDirection `gorm:"type:varchar(10);not null"`
	Entity        SyncEntity    `gorm:"type:varchar(20);not null"`
	Trigger       SyncTrigger   `gorm:"type:varchar(20);not null"`
	Status        SyncJobStatus `gorm:"type:varchar(20);not null;default:'queued';index"`
	Attempts      int           `gorm:"not null;default:0"`
	MaxAttempts   int           `gorm:"not null;default:3"`
	WindowStart   *time.Time    `` // pull window lower bound (orders)
	WindowEnd     *time.Time    ``
	Counters      SyncCounters  `gorm:"embedded"`
	LastError     string        `gorm:"type:text"`
	NextRetryAt   *time.Time    ``
	StartedAt     *time.Time    ``
	FinishedAt    *time.Time    ``
}

// TableName returns the table name for GORM
func (SyncJob) TableName() string {
	return "sync_jobs"
}

// NewSyncJob creates a queued sync job
func NewSyncJob(tenantID uuid.UUID, integ *Integration, direction SyncDirection, entity SyncEntity, trigger SyncTrigger) (*SyncJob, error) {
	if direction != SyncDirectionPull && direction != SyncDirectionPush {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Direction must be pull or push")
	}
	if !entity.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY", "Entity must be products, inventory, orders, or all")
	}

	return &SyncJob{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IntegrationID:       integ.ID,
		Platform:            integ.Platform,
		Direction:           direction,
		Entity:              entity,
		Trigger:             trigger,
		Status:              SyncJobStatusQueued,
		MaxAttempts:         SyncJobMaxAttempts,
	}, nil
}

// SetWindow bounds an order pull to a time range
func (j *SyncJob) SetWindow(start, end time.Time) error {
	if end.Before(start) {
		return shared.NewDomainError("INVALID_WINDOW", "Window end cannot be before its start")
	}
	j.WindowStart = &start
	j.WindowEnd = &end
	return nil
}

// Start moves the job to running
func (j *SyncJob) Start() error {
	if j.Status != SyncJobStatusQueued {
		return shared.NewDomainError("INVALID_STATE", "Only queued jobs can start")
	}

	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.Attempts++
	j.StartedAt = &now
	j.NextRetryAt = nil
	j.Touch()

	return nil
}

// Complete finishes the job, deriving the final status from the counters
func (j *SyncJob) Complete(counters SyncCounters) error {
	if j.Status != SyncJobStatusRunning {
		return shared.NewDomainError("INVALID_STATE", "Only running jobs can complete")
	}

	now := time.Now()
	j.Counters = counters
	j.FinishedAt = &now
	j.Touch()

	switch {
	case counters.Failed == 0:
		j.Status = SyncJobStatusSucceeded
	case counters.Failed < counters.Total:
		j.Status = SyncJobStatusPartial
	default:
		j.Status = SyncJobStatusFailed
	}

	j.AddDomainEvent(NewSyncCompletedEvent(j))

	return nil
}

// Fail records a run failure and schedules a retry with exponential backoff
// (base × 2^(attempt−1), capped at 30 minutes). Exhausted jobs stay failed.
func (j *SyncJob) Fail(errMsg string, baseDelay time.Duration) error {
	if j.Status != SyncJobStatusRunning {
		return shared.NewDomainError("INVALID_STATE", "Only running jobs can fail")
	}

	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.LastError = errMsg
	j.FinishedAt = &now
	j.Touch()

	if j.ShouldRetry() {
		delay := baseDelay * time.Duration(1<<uint(j.Attempts-1))
		if maxDelay := 30 * time.Minute; delay > maxDelay {
			delay = maxDelay
		}
		next := now.Add(delay)
		j.NextRetryAt = &next
	} else {
		j.AddDomainEvent(NewSyncFailedEvent(j))
	}

	return nil
}

// Requeue puts a failed job back in the queue for its next attempt
func (j *SyncJob) Requeue() error {
	if j.Status != SyncJobStatusFailed || !j.ShouldRetry() {
		return shared.NewDomainError("INVALID_STATE", "Job is not eligible for requeue")
	}

	j.Status = SyncJobStatusQueued
	j.StartedAt = nil
	j.FinishedAt = nil
	j.Touch()

	return nil
}

// Cancel stops a queued job
func (j *SyncJob) Cancel() error {
	if j.Status != SyncJobStatusQueued && j.Status != SyncJobStatusFailed {
		return shared.NewDomainError("INVALID_STATE", "Only queued or failed jobs can be cancelled")
	}

	now := time.Now()
	j.Status = SyncJobStatusCancelled
	j.FinishedAt = &now
	j.NextRetryAt = nil
	j.Touch()

	return nil
}

// ShouldRetry returns true while the attempt budget allows another run
func (j *SyncJob) ShouldRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// RetryDue returns true when a scheduled retry time has arrived
func (j *SyncJob) RetryDue(now time.Time) bool {
	return j.Status == SyncJobStatusFailed && j.ShouldRetry() &&
		(j.NextRetryAt == nil || !j.NextRetryAt.After(now))
}

// IsStale reports a running job whose worker likely died; the reconciler
// sweep fails such jobs so they can retry.
func (j *SyncJob) IsStale(timeout time.Duration, now time.Time) bool {
	return j.Status == SyncJobStatusRunning && j.StartedAt != nil &&
		now.Sub(*j.StartedAt) > 2*timeout
}

// Duration returns how long the job ran
func (j *SyncJob) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}
