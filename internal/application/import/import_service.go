package importapp

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
	csvimport "github.com/truthsource/backend/internal/infrastructure/import"
)

// MaxFileSize caps uploaded CSVs at 10 MiB
const MaxFileSize = 10 << 20

// FileArchiver stores a copy of the uploaded file for later download.
// Archiving is best-effort: a storage outage must not block the import.
type FileArchiver interface {
	ArchiveImport(ctx context.Context, orgID, importID uuid.UUID, fileName string, data []byte) (string, error)
}

// Service runs CSV imports: parse, validate, apply row by row, and record
// an operation log so the import can be rolled back.
type Service struct {
	historyRepo    bulk.HistoryRepository
	opRepo         bulk.OperationRepository
	appliers       map[bulk.ImportEntityType]rowApplier
	archiver       FileArchiver
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new import service
func NewService(
	historyRepo bulk.HistoryRepository,
	opRepo bulk.OperationRepository,
	productRepo catalog.ProductRepository,
	customerRepo customer.Repository,
	locationRepo inventory.LocationRepository,
	levelRepo inventory.LevelRepository,
	adjustmentRepo inventory.AdjustmentRepository,
	ruleRepo pricing.RuleRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		historyRepo: historyRepo,
		opRepo:      opRepo,
		appliers: map[bulk.ImportEntityType]rowApplier{
			bulk.ImportEntityProducts:  &productApplier{productRepo: productRepo},
			bulk.ImportEntityCustomers: &customerApplier{customerRepo: customerRepo},
			bulk.ImportEntityInventory: &inventoryApplier{
				productRepo:    productRepo,
				locationRepo:   locationRepo,
				levelRepo:      levelRepo,
				adjustmentRepo: adjustmentRepo,
			},
			bulk.ImportEntityPricingRules: &pricingRuleApplier{ruleRepo: ruleRepo},
		},
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetArchiver sets the file archiver for uploaded CSV copies
func (s *Service) SetArchiver(archiver FileArchiver) {
	s.archiver = archiver
}

// Run executes an import synchronously and returns its final history record.
// A file that fails to parse still leaves a failed history row behind so the
// attempt is visible.
func (s *Service) Run(ctx context.Context, input RunImportInput) (*HistoryInfo, error) {
	if len(input.Data) > MaxFileSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the 10 MiB import limit")
	}

	applier, ok := s.appliers[input.EntityType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", "Unsupported import entity type")
	}

	history, err := bulk.NewImportHistory(input.OrgID, input.EntityType, input.FileName,
		int64(len(input.Data)), input.ConflictMode, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.logger.Error("Failed to create import history", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create import")
	}

	if s.archiver != nil {
		key, err := s.archiver.ArchiveImport(ctx, input.OrgID, history.ID, input.FileName, input.Data)
		if err != nil {
			s.logger.Warn("Failed to archive import file",
				zap.String("import_id", history.ID.String()), zap.Error(err))
		} else {
			history.SetStorageKey(key)
		}
	}

	rows, failDetail := s.parse(input.Data, applier)
	if failDetail != nil {
		return s.failImport(ctx, history, []bulk.ImportErrorDetail{*failDetail})
	}

	if err := history.StartProcessing(len(rows)); err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.logger.Error("Failed to update import history", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update import")
	}

	counters, details, ops := s.applyRows(ctx, history, applier, rows, input.ConflictMode)

	if len(ops) > 0 {
		if err := s.opRepo.AppendBatch(ctx, ops); err != nil {
			s.logger.Error("Failed to write import operation log",
				zap.String("import_id", history.ID.String()), zap.Error(err))
			return s.failImport(ctx, history, append(details, bulk.ImportErrorDetail{
				Code:    "ERR_IMPORT_UNKNOWN",
				Message: "failed to record the operation log; rollback is unavailable",
			}))
		}
	}

	if err := history.Complete(counters.success, counters.failed, counters.skipped, counters.updated, details); err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.logger.Error("Failed to finalize import history", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to finalize import")
	}
	s.publishEvents(ctx, history)

	s.logger.Info("Import finished",
		zap.String("import_id", history.ID.String()),
		zap.String("entity_type", string(history.EntityType)),
		zap.String("status", string(history.Status)),
		zap.Int("total", history.TotalRows),
		zap.Int("created", counters.success),
		zap.Int("updated", counters.updated),
		zap.Int("skipped", counters.skipped),
		zap.Int("failed", counters.failed))

	info := toHistoryInfo(history)
	return &info, nil
}

// parse opens the CSV, checks required headers and reads all data rows.
// A non-nil detail means the file is unusable as a whole.
func (s *Service) parse(data []byte, applier rowApplier) ([]*csvimport.Row, *bulk.ImportErrorDetail) {
	parser, err := csvimport.ParseFromBytes(data)
	if err != nil {
		code := csvimport.ErrCodeImportInvalidFile
		if errors.Is(err, csvimport.ErrEmptyFile) {
			code = csvimport.ErrCodeImportEmptyFile
		} else if errors.Is(err, csvimport.ErrInvalidEncoding) {
			code = csvimport.ErrCodeImportInvalidEncoding
		}
		return nil, &bulk.ImportErrorDetail{Code: code, Message: err.Error()}
	}

	if err := parser.ParseHeader(); err != nil {
		return nil, &bulk.ImportErrorDetail{
			Code:    csvimport.ErrCodeImportMissingHeader,
			Message: err.Error(),
		}
	}

	if missing := parser.ValidateHeaders(applier.requiredHeaders()); len(missing) > 0 {
		return nil, &bulk.ImportErrorDetail{
			Code:    csvimport.ErrCodeImportInvalidHeader,
			Message: "missing required columns: " + strings.Join(missing, ", "),
		}
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, &bulk.ImportErrorDetail{
			Row:     parser.CurrentRow(),
			Code:    csvimport.ErrCodeImportMalformedRow,
			Message: err.Error(),
		}
	}
	if len(rows) == 0 {
		return nil, &bulk.ImportErrorDetail{
			Code:    csvimport.ErrCodeImportEmptyFile,
			Message: csvimport.ErrNoDataRows.Error(),
		}
	}

	return rows, nil
}

type rowCounters struct {
	success int
	updated int
	skipped int
	failed  int
}

// applyRows validates and applies each row, building the operation log as it
// goes. Row failures are collected; they never abort the remaining rows.
func (s *Service) applyRows(ctx context.Context, history *bulk.ImportHistory, applier rowApplier, rows []*csvimport.Row, mode bulk.ConflictMode) (rowCounters, []bulk.ImportErrorDetail, []bulk.ImportOperation) {
	var counters rowCounters
	validator := csvimport.NewFieldValidator(applier.rules(), bulk.MaxErrorDetails)
	ops := make([]bulk.ImportOperation, 0, len(rows))
	sequence := 0

	for _, row := range rows {
		if !validator.ValidateRow(row) {
			counters.failed++
			continue
		}

		result, err := applier.apply(ctx, history.TenantID, history.ID, row, mode)
		if err != nil {
			counters.failed++
			s.recordApplyError(validator.Errors(), row, err)
			continue
		}

		switch result.outcome {
		case rowCreated:
			counters.success++
		case rowUpdated:
			counters.updated++
		case rowSkipped:
			counters.skipped++
			continue
		}

		sequence++
		op, err := bulk.NewImportOperation(history.TenantID, history.ID, sequence,
			result.entityType, result.entityID, result.op, result.before, result.after)
		if err != nil {
			// the row is already applied; log and keep going
			s.logger.Error("Failed to build operation log entry",
				zap.String("import_id", history.ID.String()),
				zap.Int("row", row.LineNumber), zap.Error(err))
			continue
		}
		ops = append(ops, *op)
	}

	return counters, toErrorDetails(validator.Errors()), ops
}

func (s *Service) recordApplyError(ec *csvimport.ErrorCollection, row *csvimport.Row, err error) {
	if errors.Is(err, errRowConflict) {
		ec.AddValidationError(row.LineNumber, "", csvimport.ErrCodeImportDuplicateInDB,
			"row matches an existing record and conflict mode is fail")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		ec.AddValidationError(row.LineNumber, "", domainErr.Code, domainErr.Message)
		return
	}

	ec.AddValidationError(row.LineNumber, "", csvimport.ErrCodeImportUnknown, err.Error())
}

// failImport marks the import failed and returns its final record together
// with a domain error describing the failure.
func (s *Service) failImport(ctx context.Context, history *bulk.ImportHistory, details []bulk.ImportErrorDetail) (*HistoryInfo, error) {
	if err := history.Fail(details); err != nil {
		return nil, err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.logger.Error("Failed to persist failed import", zap.Error(err))
	}

	message := "Import failed"
	if len(details) > 0 {
		message = details[0].Message
	}
	return nil, shared.NewDomainError("IMPORT_FAILED", message)
}

// Get returns one import history record
func (s *Service) Get(ctx context.Context, orgID, importID uuid.UUID) (*HistoryInfo, error) {
	history, err := s.historyRepo.FindByIDForTenant(ctx, orgID, importID)
	if err != nil {
		return nil, shared.NewDomainError("IMPORT_NOT_FOUND", "Import not found")
	}
	info := toHistoryInfo(history)
	return &info, nil
}

// List returns import history for an organization, newest first
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[HistoryInfo], error) {
	histories, err := s.historyRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list imports", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list imports")
	}

	total, err := s.historyRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count imports")
	}

	infos := make([]HistoryInfo, 0, len(histories))
	for i := range histories {
		infos = append(infos, toHistoryInfo(&histories[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// CancelStuck fails imports left in processing, typically after a restart.
// The scheduler calls this on a timer.
func (s *Service) CancelStuck(ctx context.Context) (int, error) {
	stuck, err := s.historyRepo.FindStuckProcessing(ctx)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stuck {
		h := &stuck[i]
		if err := h.Fail([]bulk.ImportErrorDetail{{
			Code:    csvimport.ErrCodeImportUnknown,
			Message: "import interrupted before completion",
		}}); err != nil {
			continue
		}
		if err := s.historyRepo.Save(ctx, h); err != nil {
			s.logger.Error("Failed to fail stuck import",
				zap.String("import_id", h.ID.String()), zap.Error(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

func (s *Service) publishEvents(ctx context.Context, history *bulk.ImportHistory) {
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

func toErrorDetails(ec *csvimport.ErrorCollection) []bulk.ImportErrorDetail {
	rowErrors := ec.Errors()
	details := make([]bulk.ImportErrorDetail, 0, len(rowErrors))
	for _, re := range rowErrors {
		details = append(details, bulk.ImportErrorDetail{
			Row:     re.Row,
			Column:  re.Column,
			Code:    re.Code,
			Message: re.Message,
			Value:   re.Value,
		})
	}
	return details
}
