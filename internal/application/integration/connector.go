package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truthsource/backend/internal/domain/integration"
)

// RemoteProduct is a product record as a platform reports it
type RemoteProduct struct {
	ExternalID        string
	ExternalVariantID string
	SKU               string
	Name              string
	Description       string
	Price             decimal.Decimal
	Active            bool
	UpdatedAt         time.Time
}

// RemoteOrderItem is one line of a platform order
type RemoteOrderItem struct {
	SKU       string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// RemoteOrder is an order as a platform reports it, normalized to the common
// status vocabulary by the platform client.
type RemoteOrder struct {
	ExternalID        string
	OrderNumber       string
	CustomerEmail     string
	Status            string // normalized: pending|processing|shipped|delivered|cancelled
	RawStatus         string
	Currency          string
	Subtotal          decimal.Decimal
	ShippingTotal     decimal.Decimal
	TaxTotal          decimal.Decimal
	Total             decimal.Decimal
	PlacedAt          time.Time
	UpdatedAt         time.Time
	ShippingAddress   string
	Items             []RemoteOrderItem
}

// RemoteInventory is a stock level as a platform reports it
type RemoteInventory struct {
	ExternalProductID string
	ExternalVariantID string
	SKU               string
	Quantity          int64
	UpdatedAt         time.Time
}

// InventoryPush is one stock level to write back to a platform
type InventoryPush struct {
	ExternalProductID string
	ExternalVariantID string
	SKU               string
	Quantity          int64
}

// PricePush is one list price to write back to a platform
type PricePush struct {
	ExternalProductID string
	ExternalVariantID string
	SKU               string
	Price             decimal.Decimal
}

// Connector is a client for one commerce platform. Implementations live in
// the infrastructure layer; the sync engine only sees this interface.
type Connector interface {
	Platform() integration.Platform

	// Ping verifies the credentials with a cheap authenticated request
	Ping(ctx context.Context, creds integration.Credentials) error

	// PullProducts fetches products changed since the given time.
	// A zero time means fetch everything.
	PullProducts(ctx context.Context, creds integration.Credentials, since time.Time) ([]RemoteProduct, error)

	// PullInventory fetches stock levels changed since the given time.
	// A zero time means fetch everything.
	PullInventory(ctx context.Context, creds integration.Credentials, since time.Time) ([]RemoteInventory, error)

	// PullOrders fetches orders placed or updated inside the window
	PullOrders(ctx context.Context, creds integration.Credentials, from, to time.Time) ([]RemoteOrder, error)

	// PushInventory writes stock levels to the platform
	PushInventory(ctx context.Context, creds integration.Credentials, updates []InventoryPush) error

	// PushPrice writes list prices to the platform
	PushPrice(ctx context.Context, creds integration.Credentials, updates []PricePush) error

	// UpdateOrderStatus pushes a local status change to the origin order.
	// Platforms without a matching transition treat it as a no-op.
	UpdateOrderStatus(ctx context.Context, creds integration.Credentials, externalID, status string) error

	// ParseProductWebhook decodes a product change delivery. Platforms whose
	// product model has variants report one record per variant.
	ParseProductWebhook(payload []byte) ([]RemoteProduct, error)

	// ParseInventoryWebhook decodes a stock change delivery
	ParseInventoryWebhook(payload []byte) (*RemoteInventory, error)

	// ParseOrderWebhook decodes an order change delivery
	ParseOrderWebhook(payload []byte) (*RemoteOrder, error)
}

// ConnectorRegistry resolves the connector for a platform
type ConnectorRegistry interface {
	Connector(platform integration.Platform) (Connector, bool)
}
