package event

import (
	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/bulk"
	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/identity"
	"github.com/truthsource/backend/internal/domain/insights"
	"github.com/truthsource/backend/internal/domain/integration"
	"github.com/truthsource/backend/internal/domain/inventory"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/pricing"
)

// RegisterAllEvents registers every concrete domain event type with the
// serializer. The outbox processor cannot deliver an event whose type is not
// registered here.
func RegisterAllEvents(serializer *EventSerializer) {
	// Identity
	serializer.Register(identity.EventTypeOrganizationRegistered, &identity.OrganizationRegisteredEvent{})
	serializer.Register(identity.EventTypeOrganizationSuspended, &identity.OrganizationSuspendedEvent{})
	serializer.Register(identity.EventTypeUserCreated, &identity.UserCreatedEvent{})
	serializer.Register(identity.EventTypeUserLoggedIn, &identity.UserLoggedInEvent{})

	// Catalog
	serializer.Register(catalog.EventTypeProductCreated, &catalog.ProductCreatedEvent{})
	serializer.Register(catalog.EventTypeProductUpdated, &catalog.ProductUpdatedEvent{})
	serializer.Register(catalog.EventTypeProductStatusChanged, &catalog.ProductStatusChangedEvent{})
	serializer.Register(catalog.EventTypeProductPriceChanged, &catalog.ProductPriceChangedEvent{})
	serializer.Register(catalog.EventTypeCategoryCreated, &catalog.CategoryCreatedEvent{})
	serializer.Register(catalog.EventTypeCategoryUpdated, &catalog.CategoryUpdatedEvent{})
	serializer.Register(catalog.EventTypeCategoryDeleted, &catalog.CategoryDeletedEvent{})

	// Inventory
	serializer.Register(inventory.EventTypeInventoryLevelChanged, &inventory.InventoryLevelChangedEvent{})

	// Customers
	serializer.Register(customer.EventTypeCustomerCreated, &customer.CustomerCreatedEvent{})
	serializer.Register(customer.EventTypeCustomerTierChanged, &customer.CustomerTierChangedEvent{})

	// Orders
	serializer.Register(order.EventTypeOrderIngested, &order.OrderIngestedEvent{})
	serializer.Register(order.EventTypeOrderStatusChanged, &order.OrderStatusChangedEvent{})

	// Pricing
	serializer.Register(pricing.EventTypeRuleChanged, &pricing.RuleChangedEvent{})

	// Integrations and sync
	serializer.Register(integration.EventTypeIntegrationConnected, &integration.IntegrationConnectedEvent{})
	serializer.Register(integration.EventTypeIntegrationPaused, &integration.IntegrationPausedEvent{})
	serializer.Register(integration.EventTypeIntegrationFailed, &integration.IntegrationFailedEvent{})
	serializer.Register(integration.EventTypeSyncCompleted, &integration.SyncCompletedEvent{})
	serializer.Register(integration.EventTypeSyncFailed, &integration.SyncFailedEvent{})
	serializer.Register(integration.EventTypeWebhookReceived, &integration.WebhookReceivedEvent{})
	serializer.Register(integration.EventTypeWebhookFailed, &integration.WebhookFailedEvent{})

	// Imports
	serializer.Register(bulk.EventTypeImportCompleted, &bulk.ImportCompletedEvent{})
	serializer.Register(bulk.EventTypeImportRolledBack, &bulk.ImportRolledBackEvent{})

	// Insights
	serializer.Register(insights.EventTypeAnomalyDetected, &insights.AnomalyDetectedEvent{})

	// Billing
	serializer.Register(billing.EventTypeSubscriptionProvisioned, &billing.SubscriptionProvisionedEvent{})
	serializer.Register(billing.EventTypeSubscriptionChanged, &billing.SubscriptionChangedEvent{})
}
