// Command seed loads a demo dataset for local development: a trial
// organization with users, a small catalog, customers, two stock
// locations with inventory, and a couple of pricing rules.
//
// Seeding is idempotent per organization slug: if the demo organization
// already exists the command logs and exits without touching data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/pricing"
	"github.com/truthsource/backend/internal/domain/shared"
	"github.com/truthsource/backend/internal/infrastructure/config"
	"github.com/truthsource/backend/internal/infrastructure/logger"
	"github.com/truthsource/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		orgSlug   string
		trialDays int
		logLevel  string
	)

	flag.StringVar(&orgSlug, "org", "demo-outfitters", "Slug of the demo organization to create")
	flag.IntVar(&trialDays, "trial-days", 14, "Trial period length for the demo organization")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	if err := seed(ctx, db, log, orgSlug, trialDays); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
}

func seed(ctx context.Context, db *persistence.Database, log *zap.Logger, orgSlug string, trialDays int) error {
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)

	// Idempotency guard: an existing organization with the demo slug
	// means the fixtures were loaded before.
	if existing, err := orgRepo.FindBySlug(ctx, orgSlug); err == nil {
		log.Info("Demo organization already exists, nothing to do",
			zap.String("slug", orgSlug),
			zap.String("organization_id", existing.ID.String()),
		)
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("checking for existing organization: %w", err)
	}

	org, err := identity.NewTrialOrganization(orgSlug, "Demo Outfitters", trialDays)
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}
	if err := orgRepo.Save(ctx, org); err != nil {
		return fmt.Errorf("saving organization: %w", err)
	}
	log.Info("Created demo organization",
		zap.String("slug", org.Slug),
		zap.String("organization_id", org.ID.String()),
	)

	if err := seedUsers(ctx, db, org.ID); err != nil {
		return err
	}

	productIDs, err := seedCatalog(ctx, db, org.ID)
	if err != nil {
		return err
	}

	if err := seedCustomers(ctx, db, org.ID); err != nil {
		return err
	}

	if err := seedInventory(ctx, db, org.ID, productIDs); err != nil {
		return err
	}

	if err := seedPricingRules(ctx, db, org.ID); err != nil {
		return err
	}

	log.Info("Demo data loaded",
		zap.String("organization_id", org.ID.String()),
		zap.String("admin_login", "admin@demo-outfitters.test / seed-admin-pw"),
	)
	return nil
}

func seedUsers(ctx context.Context, db *persistence.Database, tenantID uuid.UUID) error {
	userRepo := persistence.NewGormUserRepository(db.DB)

	users := []struct {
		email    string
		password string
		fullName string
		role     identity.UserRole
	}{
		{"admin@demo-outfitters.test", "seed-admin-pw", "Dana Admin", identity.RoleAdmin},
		{"ops@demo-outfitters.test", "seed-member-pw", "Morgan Ops", identity.RoleMember},
		{"viewer@demo-outfitters.test", "seed-viewer-pw", "Riley Viewer", identity.RoleReadonly},
	}

	for _, u := range users {
		user, err := identity.NewUser(tenantID, u.email, u.password, u.fullName, u.role)
		if err != nil {
			return fmt.Errorf("creating user %s: %w", u.email, err)
		}
		if err := userRepo.Save(ctx, user); err != nil {
			return fmt.Errorf("saving user %s: %w", u.email, err)
		}
	}
	return nil
}

// seedCatalog creates two categories and a handful of products and
// returns the product IDs for the inventory fixtures.
func seedCatalog(ctx context.Context, db *persistence.Database, tenantID uuid.UUID) ([]uuid.UUID, error) {
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)

	apparel, err := catalog.NewCategory(tenantID, "Apparel")
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	gear, err := catalog.NewCategory(tenantID, "Camping Gear")
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	for _, c := range []*catalog.Category{apparel, gear} {
		if err := categoryRepo.Save(ctx, c); err != nil {
			return nil, fmt.Errorf("saving category %s: %w", c.Name, err)
		}
	}

	products := []struct {
		sku      string
		name     string
		price    decimal.Decimal
		cost     decimal.Decimal
		barcode  string
		category *uuid.UUID
	}{
		{"TEE-CLASSIC-M", "Classic Tee (M)", decimal.NewFromFloat(24.99), decimal.NewFromFloat(8.10), "0811000010017", &apparel.ID},
		{"TEE-CLASSIC-L", "Classic Tee (L)", decimal.NewFromFloat(24.99), decimal.NewFromFloat(8.10), "0811000010024", &apparel.ID},
		{"JKT-SHELL-01", "Rain Shell Jacket", decimal.NewFromFloat(129.00), decimal.NewFromFloat(52.40), "0811000010031", &apparel.ID},
		{"TENT-2P-ALPINE", "Alpine 2-Person Tent", decimal.NewFromFloat(349.00), decimal.NewFromFloat(167.00), "0811000010048", &gear.ID},
		{"STOVE-CANISTER", "Canister Camp Stove", decimal.NewFromFloat(59.95), decimal.NewFromFloat(21.30), "0811000010055", &gear.ID},
	}

	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		product, err := catalog.NewProduct(tenantID, p.sku, p.name, p.price)
		if err != nil {
			return nil, fmt.Errorf("creating product %s: %w", p.sku, err)
		}
		if err := product.SetCost(p.cost); err != nil {
			return nil, fmt.Errorf("setting cost on %s: %w", p.sku, err)
		}
		if err := product.SetBarcode(p.barcode); err != nil {
			return nil, fmt.Errorf("setting barcode on %s: %w", p.sku, err)
		}
		product.SetCategory(p.category)
		if err := productRepo.Save(ctx, product); err != nil {
			return nil, fmt.Errorf("saving product %s: %w", p.sku, err)
		}
		ids = append(ids, product.ID)
	}
	return ids, nil
}

func seedCustomers(ctx context.Context, db *persistence.Database, tenantID uuid.UUID) error {
	customerRepo := persistence.NewGormCustomerRepository(db.DB)

	customers := []struct {
		code    string
		company string
		tier    customer.Tier
	}{
		{"CUST-1001", "Summit Outfitters Co", customer.TierGold},
		{"CUST-1002", "Trailhead Retail", customer.TierSilver},
		{"CUST-1003", "Basecamp Wholesale", customer.TierPlatinum},
		{"CUST-1004", "Meadow General Store", customer.TierStandard},
	}

	for _, c := range customers {
		cust, err := customer.NewCustomer(tenantID, c.code, c.company)
		if err != nil {
			return fmt.Errorf("creating customer %s: %w", c.code, err)
		}
		if c.tier != customer.TierStandard {
			if err := cust.ChangeTier(c.tier); err != nil {
				return fmt.Errorf("setting tier on %s: %w", c.code, err)
			}
		}
		if err := customerRepo.Save(ctx, cust); err != nil {
			return fmt.Errorf("saving customer %s: %w", c.code, err)
		}
	}
	return nil
}

// seedInventory creates a warehouse and a storefront, stocks every
// product in both, and gives each level a reorder point so low-stock
// alerts have something to evaluate against.
func seedInventory(ctx context.Context, db *persistence.Database, tenantID uuid.UUID, productIDs []uuid.UUID) error {
	locationRepo := persistence.NewGormLocationRepository(db.DB)
	levelRepo := persistence.NewGormLevelRepository(db.DB)

	warehouse, err := inventory.NewLocation(tenantID, "WH-MAIN", "Main Warehouse", inventory.LocationTypeWarehouse)
	if err != nil {
		return fmt.Errorf("creating warehouse: %w", err)
	}
	store, err := inventory.NewLocation(tenantID, "STORE-01", "Downtown Store", inventory.LocationTypeStore)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	for _, loc := range []*inventory.Location{warehouse, store} {
		if err := locationRepo.Save(ctx, loc); err != nil {
			return fmt.Errorf("saving location %s: %w", loc.Code, err)
		}
	}

	stock := []struct {
		locationID uuid.UUID
		onHand     int64
	}{
		{warehouse.ID, 120},
		{store.ID, 18},
	}

	for _, productID := range productIDs {
		for _, s := range stock {
			level := inventory.NewInventoryLevel(tenantID, productID, s.locationID)
			if _, err := level.Adjust(s.onHand, inventory.ReasonManual, "initial seed", nil); err != nil {
				return fmt.Errorf("adjusting stock: %w", err)
			}
			if err := level.SetReorderPoint(10, 50); err != nil {
				return fmt.Errorf("setting reorder point: %w", err)
			}
			if err := levelRepo.Save(ctx, level); err != nil {
				return fmt.Errorf("saving inventory level: %w", err)
			}
		}
	}
	return nil
}

func seedPricingRules(ctx context.Context, db *persistence.Database, tenantID uuid.UUID) error {
	ruleRepo := persistence.NewGormRuleRepository(db.DB)

	goldTier := customer.TierGold
	minQty := int64(50)
	lowStock := int64(25)

	rules := []struct {
		name       string
		ruleType   pricing.RuleType
		priority   int
		adjustment decimal.Decimal
		conditions pricing.Conditions
	}{
		{
			name:       "Gold tier discount",
			ruleType:   pricing.RuleTypeCustomerTier,
			priority:   10,
			adjustment: decimal.NewFromFloat(-7.5),
			conditions: pricing.Conditions{CustomerTier: &goldTier},
		},
		{
			name:       "Volume break 50+",
			ruleType:   pricing.RuleTypeQuantityBreak,
			priority:   20,
			adjustment: decimal.NewFromFloat(-5),
			conditions: pricing.Conditions{MinQuantity: &minQty},
		},
		{
			name:       "Scarcity markup",
			ruleType:   pricing.RuleTypeInventoryLevel,
			priority:   30,
			adjustment: decimal.NewFromFloat(4),
			conditions: pricing.Conditions{MaxInventory: &lowStock},
		},
	}

	for _, r := range rules {
		rule, err := pricing.NewRule(tenantID, r.name, r.ruleType, r.priority, r.adjustment, r.conditions)
		if err != nil {
			return fmt.Errorf("creating pricing rule %q: %w", r.name, err)
		}
		if err := ruleRepo.Save(ctx, rule); err != nil {
			return fmt.Errorf("saving pricing rule %q: %w", r.name, err)
		}
	}
	return nil
}
