package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
)

var oneHundred = decimal.NewFromInt(100)

// StockReader supplies the on-hand total inventory-level rules evaluate
// against. The inventory level repository satisfies it.
type StockReader interface {
	TotalOnHand(ctx context.Context, tenantID, productID uuid.UUID) (int64, error)
}

// Service handles pricing rule management and price calculation
type Service struct {
	ruleRepo       pricing.RuleRepository
	productRepo    catalog.ProductRepository
	customerRepo   customer.Repository
	stock          StockReader
	evaluators     pricing.EvaluatorRegistry
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new pricing service
func NewService(
	ruleRepo pricing.RuleRepository,
	productRepo catalog.ProductRepository,
	customerRepo customer.Repository,
	stock StockReader,
	evaluators pricing.EvaluatorRegistry,
	logger *zap.Logger,
) *Service {
	return &Service{
		ruleRepo:     ruleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		stock:        stock,
		evaluators:   evaluators,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CalculatePrice evaluates the organization's active rules against a product
// and returns the quoted price. Rules are checked in ascending priority
// order and the first match wins; rules never stack.
func (s *Service) CalculatePrice(ctx context.Context, input CalculatePriceInput) (*pricing.Quote, error) {
	if input.Quantity <= 0 {
		input.Quantity = 1
	}

	product, err := s.productRepo.FindByIDForTenant(ctx, input.OrgID, input.ProductID)
	if err != nil {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}

	at := time.Now()
	if input.At != nil {
		at = *input.At
	}
	qc := pricing.QuoteContext{
		TenantID:   input.OrgID,
		ProductID:  product.ID,
		CategoryID: product.CategoryID,
		BasePrice:  product.UnitPrice,
		Quantity:   input.Quantity,
		CustomerID: input.CustomerID,
		At:         at,
	}

	if input.CustomerID != nil {
		cust, err := s.customerRepo.FindByIDForTenant(ctx, input.OrgID, *input.CustomerID)
		if err != nil {
			return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
		}
		tier := cust.Tier
		qc.CustomerTier = &tier
	}

	onHand, err := s.stock.TotalOnHand(ctx, input.OrgID, input.ProductID)
	if err != nil {
		s.logger.Error("Failed to load on-hand total for pricing", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load inventory for pricing")
	}
	qc.InventoryOnHand = onHand

	rules, err := s.ruleRepo.FindActiveOrdered(ctx, input.OrgID)
	if err != nil {
		s.logger.Error("Failed to load pricing rules", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load pricing rules")
	}

	quote := &pricing.Quote{
		ProductID:         product.ID,
		BasePrice:         product.UnitPrice,
		FinalPrice:        product.UnitPrice.Round(2),
		AdjustmentPercent: decimal.Zero,
		Quantity:          input.Quantity,
		CalculatedAt:      qc.At,
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.AppliesTo(product.ID, product.CategoryID) {
			continue
		}
		evaluator, ok := s.evaluators.Evaluator(rule.Type)
		if !ok {
			s.logger.Warn("No evaluator registered for rule type",
				zap.String("rule_type", string(rule.Type)),
				zap.String("rule_id", rule.ID.String()))
			continue
		}
		if !evaluator.Matches(rule, qc) {
			continue
		}

		ruleID := rule.ID
		quote.AppliedRuleID = &ruleID
		quote.AppliedRuleName = rule.Name
		quote.AdjustmentPercent = rule.AdjustmentPercent
		quote.FinalPrice = applyAdjustment(product.UnitPrice, rule.AdjustmentPercent)
		break
	}

	return quote, nil
}

// applyAdjustment computes base × (1 + percent/100), rounded to cents and
// floored at zero.
func applyAdjustment(base, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(percent.Div(oneHundred))
	final := base.Mul(factor).Round(2)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// CreateRule adds a pricing rule
func (s *Service) CreateRule(ctx context.Context, input CreateRuleInput) (*RuleInfo, error) {
	rule, err := pricing.NewRule(input.OrgID, input.Name, input.Type, input.Priority, input.AdjustmentPercent, input.Conditions)
	if err != nil {
		return nil, err
	}
	if input.CategoryID != nil || input.ProductID != nil {
		rule.SetScope(input.CategoryID, input.ProductID)
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		s.logger.Error("Failed to save pricing rule", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create pricing rule")
	}

	s.publishEvents(ctx, rule.GetDomainEvents())
	rule.ClearDomainEvents()

	s.logger.Info("Pricing rule created",
		zap.String("org_id", input.OrgID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.String("type", string(input.Type)))

	info := toRuleInfo(rule)
	return &info, nil
}

// ListRules returns the organization's pricing rules
func (s *Service) ListRules(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[RuleInfo], error) {
	rules, err := s.ruleRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list pricing rules", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list pricing rules")
	}

	total, err := s.ruleRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count pricing rules")
	}

	infos := make([]RuleInfo, 0, len(rules))
	for i := range rules {
		infos = append(infos, toRuleInfo(&rules[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// GetRule returns a single pricing rule
func (s *Service) GetRule(ctx context.Context, orgID, ruleID uuid.UUID) (*RuleInfo, error) {
	rule, err := s.ruleRepo.FindByIDForTenant(ctx, orgID, ruleID)
	if err != nil {
		return nil, shared.NewDomainError("RULE_NOT_FOUND", "Pricing rule not found")
	}
	info := toRuleInfo(rule)
	return &info, nil
}

// UpdateRule modifies a pricing rule
func (s *Service) UpdateRule(ctx context.Context, input UpdateRuleInput) (*RuleInfo, error) {
	rule, err := s.ruleRepo.FindByIDForTenant(ctx, input.OrgID, input.RuleID)
	if err != nil {
		return nil, shared.NewDomainError("RULE_NOT_FOUND", "Pricing rule not found")
	}

	if err := rule.Update(input.Name, input.AdjustmentPercent, input.Conditions); err != nil {
		return nil, err
	}
	if input.Priority != nil {
		rule.SetPriority(*input.Priority)
	}
	rule.SetScope(input.CategoryID, input.ProductID)

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		s.logger.Error("Failed to update pricing rule", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update pricing rule")
	}

	s.publishEvents(ctx, rule.GetDomainEvents())
	rule.ClearDomainEvents()

	info := toRuleInfo(rule)
	return &info, nil
}

// EnableRule activates a rule
func (s *Service) EnableRule(ctx context.Context, orgID, ruleID uuid.UUID) error {
	return s.toggle(ctx, orgID, ruleID, func(r *pricing.Rule) { r.Enable() })
}

// DisableRule deactivates a rule without deleting it
func (s *Service) DisableRule(ctx context.Context, orgID, ruleID uuid.UUID) error {
	return s.toggle(ctx, orgID, ruleID, func(r *pricing.Rule) { r.Disable() })
}

// ReorderRules swaps the priorities of two rules so one evaluates where the
// other used to
func (s *Service) ReorderRules(ctx context.Context, orgID, ruleID, swapWithID uuid.UUID) error {
	if ruleID == swapWithID {
		return nil
	}

	a, err := s.ruleRepo.FindByIDForTenant(ctx, orgID, ruleID)
	if err != nil {
		return shared.NewDomainError("RULE_NOT_FOUND", "Pricing rule not found")
	}
	b, err := s.ruleRepo.FindByIDForTenant(ctx, orgID, swapWithID)
	if err != nil {
		return shared.NewDomainError("RULE_NOT_FOUND", "Pricing rule not found")
	}

	pa, pb := a.Priority, b.Priority
	a.SetPriority(pb)
	b.SetPriority(pa)

	if err := s.ruleRepo.SaveBatch(ctx, []*pricing.Rule{a, b}); err != nil {
		s.logger.Error("Failed to reorder pricing rules", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to reorder pricing rules")
	}

	s.logger.Info("Pricing rules reordered",
		zap.String("org_id", orgID.String()),
		zap.String("rule_id", ruleID.String()),
		zap.String("swapped_with", swapWithID.String()))
	return nil
}

// DeleteRule removes a rule permanently
func (s *Service) DeleteRule(ctx context.Context, orgID, ruleID uuid.UUID) error {
	if _, err := s.ruleRepo.FindByIDForTenant(ctx, orgID, ruleID); err != nil {
		return shared.NewDomainError("RULE_NOT_FOUND", "Pricing rule not found")
	}

	if err := s.ruleRepo.DeleteForTenant(ctx, orgID, ruleID); err != nil {
		s.logger.Error("Failed to delete pricing rule", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete pricing rule")
	}

	s.logger.Info("Pricing rule deleted",
		zap.String("org_id", orgID.String()),
		zap.String("rule_id", ruleID.String()))
	return nil
}

func (s *Service) toggle(ctx context.Context, orgID, ruleID uuid.UUID, fn func(*pricing.Rule)) error {
	rule, err := s.ruleRepo.FindByIDForTenant(ctx, orgID, ruleID)
	if err != nil {
		return shared.NewDomainError("RULE_NOT_FOUND", "Pricing rule not found")
	}

	fn(rule)

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		s.logger.Error("Failed to toggle pricing rule", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update pricing rule")
	}

	s.publishEvents(ctx, rule.GetDomainEvents())
	rule.ClearDomainEvents()
	return nil
}

func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
