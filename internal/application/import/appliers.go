package importapp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
	csvimport "github.com/truthsource/backend/internal/infrastructure/import"
)

// rowOutcome is the per-row result of applying one CSV row
type rowOutcome int

const (
	rowCreated rowOutcome = iota
	rowUpdated
	rowSkipped
)

// rowResult couples the outcome with its operation-log entry. Skipped rows
// carry no entry.
type rowResult struct {
	outcome    rowOutcome
	entityType string
	entityID   uuid.UUID
	op         bulk.OperationType
	before     []byte
	after      []byte
}

// rowApplier applies one validated CSV row for one entity type
type rowApplier interface {
	requiredHeaders() []string
	rules() []csvimport.FieldRule
	apply(ctx context.Context, orgID uuid.UUID, importID uuid.UUID, row *csvimport.Row, mode bulk.ConflictMode) (*rowResult, error)
}

// errRowConflict marks a fail-mode duplicate; the runner reports it as a row
// error without aborting the import.
var errRowConflict = errors.New("row matches an existing record")

// productSnapshot holds the product fields an import can touch
type productSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
}

func snapshotProduct(p *catalog.Product) []byte {
	data, _ := json.Marshal(productSnapshot{
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice.String(),
	})
	return data
}

type productApplier struct {
	productRepo catalog.ProductRepository
}

func (a *productApplier) requiredHeaders() []string {
	return []string{"sku", "name", "unit_price"}
}

func (a *productApplier) rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("sku").Required().MaxLength(64).Unique().Build(),
		csvimport.Field("name").Required().MaxLength(200).Build(),
		csvimport.Field("unit_price").Required().Decimal().Build(),
		csvimport.Field("description").MaxLength(2000).Build(),
	}
}

func (a *productApplier) apply(ctx context.Context, orgID, importID uuid.UUID, row *csvimport.Row, mode bulk.ConflictMode) (*rowResult, error) {
	sku := row.Get("sku")
	price, err := decimal.NewFromString(row.Get("unit_price"))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price is not a valid number")
	}

	existing, err := a.productRepo.FindBySKU(ctx, orgID, sku)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		switch mode {
		case bulk.ConflictModeSkip:
			return &rowResult{outcome: rowSkipped}, nil
		case bulk.ConflictModeFail:
			return nil, errRowConflict
		}

		before := snapshotProduct(existing)
		name := row.GetOrDefault("name", existing.Name)
		description := row.GetOrDefault("description", existing.Description)
		if err := existing.Update(name, description); err != nil {
			return nil, err
		}
		if err := existing.SetUnitPrice(price); err != nil {
			return nil, err
		}
		if err := a.productRepo.Save(ctx, existing); err != nil {
			return nil, err
		}
		return &rowResult{
			outcome:    rowUpdated,
			entityType: "product",
			entityID:   existing.ID,
			op:         bulk.OperationUpdate,
			before:     before,
			after:      snapshotProduct(existing),
		}, nil
	}

	product, err := catalog.NewProduct(orgID, sku, row.Get("name"), price)
	if err != nil {
		return nil, err
	}
	if description := row.Get("description"); description != "" {
		if err := product.Update(product.Name, description); err != nil {
			return nil, err
		}
	}
	if err := a.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	return &rowResult{
		outcome:    rowCreated,
		entityType: "product",
		entityID:   product.ID,
		op:         bulk.OperationCreate,
		after:      snapshotProduct(product),
	}, nil
}

// customerSnapshot holds the customer fields an import can touch
type customerSnapshot struct {
	CompanyName  string `json:"company_name"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Tier         string `json:"tier"`
}

func snapshotCustomer(c *customer.Customer) []byte {
	data, _ := json.Marshal(customerSnapshot{
		CompanyName:  c.CompanyName,
		ContactName:  c.ContactName,
		ContactEmail: c.ContactEmail,
		Phone:        c.Phone,
		Tier:         string(c.Tier),
	})
	return data
}

type customerApplier struct {
	customerRepo customer.Repository
}

func (a *customerApplier) requiredHeaders() []string {
	return []string{"code", "company_name"}
}

func (a *customerApplier) rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("code").Required().MaxLength(50).Unique().Build(),
		csvimport.Field("company_name").Required().MaxLength(200).Build(),
		csvimport.Field("contact_email").Email().Build(),
		csvimport.Field("tier").MaxLength(20).Build(),
	}
}

func (a *customerApplier) apply(ctx context.Context, orgID, importID uuid.UUID, row *csvimport.Row, mode bulk.ConflictMode) (*rowResult, error) {
	code := row.Get("code")
	tier := customer.Tier(row.GetOrDefault("tier", string(customer.TierStandard)))
	if !tier.IsValid() {
		return nil, shared.NewDomainError("INVALID_TIER", "Unknown customer tier")
	}

	existing, err := a.customerRepo.FindByCode(ctx, orgID, code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		switch mode {
		case bulk.ConflictModeSkip:
			return &rowResult{outcome: rowSkipped}, nil
		case bulk.ConflictModeFail:
			return nil, errRowConflict
		}

		before := snapshotCustomer(existing)
		if err := existing.Update(
			row.GetOrDefault("company_name", existing.CompanyName),
			row.GetOrDefault("contact_name", existing.ContactName),
			row.GetOrDefault("contact_email", existing.ContactEmail),
			row.GetOrDefault("phone", existing.Phone),
		); err != nil {
			return nil, err
		}
		if tier != existing.Tier {
			if err := existing.ChangeTier(tier); err != nil {
				return nil, err
			}
		}
		if err := a.customerRepo.Save(ctx, existing); err != nil {
			return nil, err
		}
		return &rowResult{
			outcome:    rowUpdated,
			entityType: "customer",
			entityID:   existing.ID,
			op:         bulk.OperationUpdate,
			before:     before,
			after:      snapshotCustomer(existing),
		}, nil
	}

	cust, err := customer.NewCustomer(orgID, code, row.Get("company_name"))
	if err != nil {
		return nil, err
	}
	if row.Get("contact_name") != "" || row.Get("contact_email") != "" || row.Get("phone") != "" {
		if err := cust.Update(cust.CompanyName, row.Get("contact_name"), row.Get("contact_email"), row.Get("phone")); err != nil {
			return nil, err
		}
	}
	if tier != customer.TierStandard {
		if err := cust.ChangeTier(tier); err != nil {
			return nil, err
		}
	}
	if err := a.customerRepo.Save(ctx, cust); err != nil {
		return nil, err
	}
	return &rowResult{
		outcome:    rowCreated,
		entityType: "customer",
		entityID:   cust.ID,
		op:         bulk.OperationCreate,
		after:      snapshotCustomer(cust),
	}, nil
}

// levelSnapshot holds the single field an inventory import touches
type levelSnapshot struct {
	Quantity int64 `json:"quantity"`
}

type inventoryApplier struct {
	productRepo    catalog.ProductRepository
	locationRepo   inventory.LocationRepository
	levelRepo      inventory.LevelRepository
	adjustmentRepo inventory.AdjustmentRepository
}

func (a *inventoryApplier) requiredHeaders() []string {
	return []string{"sku", "location_code", "quantity"}
}

func (a *inventoryApplier) rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("sku").Required().MaxLength(64).Build(),
		csvimport.Field("location_code").Required().MaxLength(50).Build(),
		csvimport.Field("quantity").Required().Int().Build(),
	}
}

// Inventory rows are absolute quantity sets; conflict mode does not apply
// because a level row always exists conceptually (missing means zero).
func (a *inventoryApplier) apply(ctx context.Context, orgID, importID uuid.UUID, row *csvimport.Row, mode bulk.ConflictMode) (*rowResult, error) {
	quantity, err := strconv.ParseInt(row.Get("quantity"), 10, 64)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity is not a valid integer")
	}

	product, err := a.productRepo.FindBySKU(ctx, orgID, row.Get("sku"))
	if err != nil {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "No product with SKU "+row.Get("sku"))
	}
	location, err := a.locationRepo.FindByCode(ctx, orgID, row.Get("location_code"))
	if err != nil {
		return nil, shared.NewDomainError("LOCATION_NOT_FOUND", "No location with code "+row.Get("location_code"))
	}

	level, err := a.levelRepo.FindOrCreate(ctx, orgID, product.ID, location.ID)
	if err != nil {
		return nil, err
	}

	before, _ := json.Marshal(levelSnapshot{Quantity: level.QuantityOnHand})
	adjustment, err := level.Set(quantity, inventory.ReasonImport, "import:"+importID.String(), nil)
	if err != nil {
		return nil, err
	}
	if adjustment == nil {
		return &rowResult{outcome: rowSkipped}, nil
	}

	if err := a.levelRepo.Save(ctx, level); err != nil {
		return nil, err
	}
	if err := a.adjustmentRepo.Save(ctx, adjustment); err != nil {
		return nil, err
	}

	after, _ := json.Marshal(levelSnapshot{Quantity: level.QuantityOnHand})
	return &rowResult{
		outcome:    rowUpdated,
		entityType: "inventory_level",
		entityID:   level.ID,
		op:         bulk.OperationUpdate,
		before:     before,
		after:      after,
	}, nil
}

type pricingRuleApplier struct {
	ruleRepo pricing.RuleRepository
}

func (a *pricingRuleApplier) requiredHeaders() []string {
	return []string{"name", "type", "priority", "adjustment_percent"}
}

func (a *pricingRuleApplier) rules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field("name").Required().MaxLength(200).Build(),
		csvimport.Field("type").Required().MaxLength(30).Build(),
		csvimport.Field("priority").Required().Int().Build(),
		csvimport.Field("adjustment_percent").Required().Decimal().Build(),
	}
}

// Pricing rules carry no natural key, so every row creates a rule
func (a *pricingRuleApplier) apply(ctx context.Context, orgID, importID uuid.UUID, row *csvimport.Row, mode bulk.ConflictMode) (*rowResult, error) {
	ruleType := pricing.RuleType(row.Get("type"))
	if !ruleType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RULE_TYPE", "Unknown pricing rule type "+row.Get("type"))
	}

	priority, err := strconv.Atoi(row.Get("priority"))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PRIORITY", "Priority is not a valid integer")
	}
	percent, err := decimal.NewFromString(row.Get("adjustment_percent"))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PERCENT", "Adjustment percent is not a valid number")
	}

	conditions, err := parseConditions(row)
	if err != nil {
		return nil, err
	}

	rule, err := pricing.NewRule(orgID, row.Get("name"), ruleType, priority, percent, conditions)
	if err != nil {
		return nil, err
	}
	if err := a.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	after, _ := json.Marshal(rule.Conditions)
	return &rowResult{
		outcome:    rowCreated,
		entityType: "pricing_rule",
		entityID:   rule.ID,
		op:         bulk.OperationCreate,
		after:      after,
	}, nil
}

func parseConditions(row *csvimport.Row) (pricing.Conditions, error) {
	var c pricing.Conditions

	parseInt := func(column string, target **int64) error {
		raw := row.Get(column)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return shared.NewDomainError("INVALID_CONDITION", column+" is not a valid integer")
		}
		*target = &v
		return nil
	}
	if err := parseInt("min_inventory", &c.MinInventory); err != nil {
		return c, err
	}
	if err := parseInt("max_inventory", &c.MaxInventory); err != nil {
		return c, err
	}
	if err := parseInt("min_quantity", &c.MinQuantity); err != nil {
		return c, err
	}

	if raw := row.Get("customer_tier"); raw != "" {
		tier := customer.Tier(raw)
		if !tier.IsValid() {
			return c, shared.NewDomainError("INVALID_CONDITION", "Unknown customer tier "+raw)
		}
		c.CustomerTier = &tier
	}

	parseDate := func(column string, target **time.Time) error {
		raw := row.Get(column)
		if raw == "" {
			return nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return shared.NewDomainError("INVALID_CONDITION", column+" must be YYYY-MM-DD")
		}
		*target = &t
		return nil
	}
	if err := parseDate("starts_at", &c.StartsAt); err != nil {
		return c, err
	}
	if err := parseDate("ends_at", &c.EndsAt); err != nil {
		return c, err
	}

	return c, nil
}
