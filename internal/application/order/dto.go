package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/truthsource/backend/internal/domain/order"
)

// IngestItemInput is one order line as delivered by a platform
type IngestItemInput struct {
	SKU       string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// IngestOrderInput contains a normalized order as delivered by a platform
// adapter. Status is the normalized status; RawPlatformStatus keeps the
// platform's original string for troubleshooting.
type IngestOrderInput struct {
	OrgID             uuid.UUID
	Platform          string
	ExternalID        string
	OrderNumber       string
	CustomerEmail     string
	Status            order.Status
	RawPlatformStatus string
	Currency          string
	Subtotal          decimal.Decimal
	ShippingTotal     decimal.Decimal
	TaxTotal          decimal.Decimal
	Total             decimal.Decimal
	PlacedAt          time.Time
	PlatformUpdatedAt time.Time
	ShippingAddress   string
	Items             []IngestItemInput
}

// IngestResult reports what ingestion did with a delivered order
type IngestResult struct {
	Order   OrderInfo
	Created bool
	Skipped bool // local copy was already as new as the delivered one
}

// UpdateStatusInput contains the input for a manual status change
type UpdateStatusInput struct {
	OrgID   uuid.UUID
	OrderID uuid.UUID
	Status  order.Status
}

// ItemInfo contains order line information returned by the API
type ItemInfo struct {
	ID        uuid.UUID
	ProductID *uuid.UUID
	SKU       string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// OrderInfo contains order information returned by the API
type OrderInfo struct {
	ID                uuid.UUID
	OrgID             uuid.UUID
	Platform          string
	ExternalID        string
	OrderNumber       string
	CustomerID        *uuid.UUID
	CustomerEmail     string
	Status            order.Status
	RawPlatformStatus string
	Currency          string
	Subtotal          decimal.Decimal
	ShippingTotal     decimal.Decimal
	TaxTotal          decimal.Decimal
	Total             decimal.Decimal
	PlacedAt          time.Time
	PlatformUpdatedAt time.Time
	Items             []ItemInfo
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func toOrderInfo(o *order.Order) OrderInfo {
	items := make([]ItemInfo, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemInfo{
			ID:        item.ID,
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}

	return OrderInfo{
		ID:                o.ID,
		OrgID:             o.TenantID,
		Platform:          o.Platform,
		ExternalID:        o.ExternalID,
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.CustomerID,
		CustomerEmail:     o.CustomerEmail,
		Status:            o.Status,
		RawPlatformStatus: o.RawPlatformStatus,
		Currency:          o.Currency,
		Subtotal:          o.Subtotal,
		ShippingTotal:     o.ShippingTotal,
		TaxTotal:          o.TaxTotal,
		Total:             o.Total,
		PlacedAt:          o.PlacedAt,
		PlatformUpdatedAt: o.PlatformUpdatedAt,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}
