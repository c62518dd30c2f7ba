package customer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/shared"
)

// CreateCustomerInput contains the input for customer creation
type CreateCustomerInput struct {
	OrgID        uuid.UUID
	Code         string
	CompanyName  string
	ContactName  string
	ContactEmail string
	Phone        string
	Tier         customer.Tier
	Notes        string
}

// UpdateCustomerInput contains the input for customer updates
type UpdateCustomerInput struct {
	OrgID        uuid.UUID
	CustomerID   uuid.UUID
	CompanyName  string
	ContactName  string
	ContactEmail string
	Phone        string
	Notes        *string
}

// CustomerInfo contains customer information returned by the API
type CustomerInfo struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	Code         string
	CompanyName  string
	ContactName  string
	ContactEmail string
	Phone        string
	Tier         customer.Tier
	Status       customer.CustomerStatus
	Notes        string
	CreatedAt    time.Time
}

func toCustomerInfo(c *customer.Customer) CustomerInfo {
	return CustomerInfo{
		ID:           c.ID,
		OrgID:        c.TenantID,
		Code:         c.Code,
		CompanyName:  c.CompanyName,
		ContactName:  c.ContactName,
		ContactEmail: c.ContactEmail,
		Phone:        c.Phone,
		Tier:         c.Tier,
		Status:       c.Status,
		Notes:        c.Notes,
		CreatedAt:    c.CreatedAt,
	}
}

// Service handles B2B customer operations
type Service struct {
	repo           customer.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new customer service
func NewService(repo customer.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create adds a customer
func (s *Service) Create(ctx context.Context, input CreateCustomerInput) (*CustomerInfo, error) {
	exists, err := s.repo.ExistsByCode(ctx, input.OrgID, input.Code)
	if err != nil {
		s.logger.Error("Customer code lookup failed", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check customer code")
	}
	if exists {
		return nil, shared.NewDomainError("CODE_TAKEN", "A customer with this code already exists")
	}

	cust, err := customer.NewCustomer(input.OrgID, input.Code, input.CompanyName)
	if err != nil {
		return nil, err
	}
	if input.ContactName != "" || input.ContactEmail != "" || input.Phone != "" {
		if err := cust.Update(cust.CompanyName, input.ContactName, input.ContactEmail, input.Phone); err != nil {
			return nil, err
		}
	}
	if input.Tier != "" && input.Tier != customer.TierStandard {
		if err := cust.ChangeTier(input.Tier); err != nil {
			return nil, err
		}
	}
	cust.Notes = input.Notes

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.Error("Failed to save customer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create customer")
	}

	s.publishEvents(ctx, cust.GetDomainEvents())
	cust.ClearDomainEvents()

	s.logger.Info("Customer created",
		zap.String("org_id", input.OrgID.String()),
		zap.String("code", cust.Code))

	info := toCustomerInfo(cust)
	return &info, nil
}

// Get returns a customer
func (s *Service) Get(ctx context.Context, orgID, customerID uuid.UUID) (*CustomerInfo, error) {
	cust, err := s.repo.FindByIDForTenant(ctx, orgID, customerID)
	if err != nil {
		return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}
	info := toCustomerInfo(cust)
	return &info, nil
}

// List returns the organization's customers
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[CustomerInfo], error) {
	customers, err := s.repo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list customers", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list customers")
	}

	total, err := s.repo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count customers")
	}

	infos := make([]CustomerInfo, 0, len(customers))
	for i := range customers {
		infos = append(infos, toCustomerInfo(&customers[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update modifies a customer's contact details
func (s *Service) Update(ctx context.Context, input UpdateCustomerInput) (*CustomerInfo, error) {
	cust, err := s.repo.FindByIDForTenant(ctx, input.OrgID, input.CustomerID)
	if err != nil {
		return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}

	if err := cust.Update(input.CompanyName, input.ContactName, input.ContactEmail, input.Phone); err != nil {
		return nil, err
	}
	if input.Notes != nil {
		cust.Notes = *input.Notes
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.Error("Failed to update customer", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update customer")
	}

	info := toCustomerInfo(cust)
	return &info, nil
}

// ChangeTier moves a customer to a new pricing tier. Tier changes affect
// price calculations immediately.
func (s *Service) ChangeTier(ctx context.Context, orgID, customerID uuid.UUID, tier customer.Tier) (*CustomerInfo, error) {
	cust, err := s.repo.FindByIDForTenant(ctx, orgID, customerID)
	if err != nil {
		return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}

	if err := cust.ChangeTier(tier); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.Error("Failed to change customer tier", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to change tier")
	}

	s.publishEvents(ctx, cust.GetDomainEvents())
	cust.ClearDomainEvents()

	s.logger.Info("Customer tier changed",
		zap.String("org_id", orgID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("tier", string(tier)))

	info := toCustomerInfo(cust)
	return &info, nil
}

// Deactivate disables a customer
func (s *Service) Deactivate(ctx context.Context, orgID, customerID uuid.UUID) error {
	cust, err := s.repo.FindByIDForTenant(ctx, orgID, customerID)
	if err != nil {
		return shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}

	if err := cust.Deactivate(); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.Error("Failed to deactivate customer", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to deactivate customer")
	}
	return nil
}

// Activate re-enables a customer
func (s *Service) Activate(ctx context.Context, orgID, customerID uuid.UUID) error {
	cust, err := s.repo.FindByIDForTenant(ctx, orgID, customerID)
	if err != nil {
		return shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}

	if err := cust.Activate(); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.Error("Failed to activate customer", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to activate customer")
	}
	return nil
}

func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
