package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	integrationapp "github.com/truthsource/backend/internal/application/integration"
	"github.com/truthsource/backend/internal/domain/integration"
)

const shopifyAPIVersion = "2024-01"

const shopifyPageSize = 250

// ShopifyConnector talks to the Shopify REST Admin API. Authentication is the
// private-app access token; list endpoints paginate with a page_info cursor
// carried in the Link response header.
type ShopifyConnector struct {
	client *platformClient
}

// NewShopifyConnector creates a Shopify connector
func NewShopifyConnector(hc *http.Client) *ShopifyConnector {
	return &ShopifyConnector{client: newPlatformClient(hc)}
}

// Platform returns the platform this connector serves
func (c *ShopifyConnector) Platform() integration.Platform {
	return integration.PlatformShopify
}

// Ping verifies the access token with a shop lookup
func (c *ShopifyConnector) Ping(ctx context.Context, creds integration.Credentials) error {
	if _, err := c.client.doJSON(ctx, http.MethodGet,
		c.endpoint(creds, "shop.json"), c.headers(creds), nil, nil); err != nil {
		return fmt.Errorf("shopify ping: %w", err)
	}
	return nil
}

type shopifyVariant struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	InventoryItemID   int64  `json:"inventory_item_id"`
	InventoryQuantity int64  `json:"inventory_quantity"`
}

type shopifyProduct struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	BodyHTML  string           `json:"body_html"`
	Status    string           `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
	Variants  []shopifyVariant `json:"variants"`
}

type shopifyProductList struct {
	Products []shopifyProduct `json:"products"`
}

// PullProducts fetches products changed since the given time. Each variant
// becomes its own record because mappings are per variant.
func (c *ShopifyConnector) PullProducts(ctx context.Context, creds integration.Credentials, since time.Time) ([]integrationapp.RemoteProduct, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(shopifyPageSize))
	if !since.IsZero() {
		params.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	}

	next := c.endpoint(creds, "products.json") + "?" + params.Encode()
	var products []integrationapp.RemoteProduct

	for next != "" {
		var page shopifyProductList
		header, err := c.client.doJSON(ctx, http.MethodGet, next, c.headers(creds), nil, &page)
		if err != nil {
			return nil, fmt.Errorf("shopify products: %w", err)
		}

		for _, p := range page.Products {
			products = append(products, shopifyRemoteProducts(p)...)
		}

		next = shopifyNextLink(header.Get("Link"))
	}

	return products, nil
}

// shopifyRemoteProducts flattens a product into one record per variant
func shopifyRemoteProducts(p shopifyProduct) []integrationapp.RemoteProduct {
	products := make([]integrationapp.RemoteProduct, 0, len(p.Variants))
	for _, v := range p.Variants {
		products = append(products, integrationapp.RemoteProduct{
			ExternalID:        strconv.FormatInt(p.ID, 10),
			ExternalVariantID: strconv.FormatInt(v.ID, 10),
			SKU:               v.SKU,
			Name:              variantName(p.Title, v.Title),
			Description:       p.BodyHTML,
			Price:             parseAmount(v.Price),
			Active:            p.Status == "active",
			UpdatedAt:         p.UpdatedAt,
		})
	}
	return products
}

// PullInventory reads stock through the product listing; each variant carries
// its total inventory_quantity, so no per-location lookup is needed.
func (c *ShopifyConnector) PullInventory(ctx context.Context, creds integration.Credentials, since time.Time) ([]integrationapp.RemoteInventory, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(shopifyPageSize))
	if !since.IsZero() {
		params.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	}

	next := c.endpoint(creds, "products.json") + "?" + params.Encode()
	var levels []integrationapp.RemoteInventory

	for next != "" {
		var page shopifyProductList
		header, err := c.client.doJSON(ctx, http.MethodGet, next, c.headers(creds), nil, &page)
		if err != nil {
			return nil, fmt.Errorf("shopify inventory: %w", err)
		}

		for _, p := range page.Products {
			for _, v := range p.Variants {
				levels = append(levels, integrationapp.RemoteInventory{
					ExternalProductID: strconv.FormatInt(p.ID, 10),
					ExternalVariantID: strconv.FormatInt(v.ID, 10),
					SKU:               v.SKU,
					Quantity:          v.InventoryQuantity,
					UpdatedAt:         p.UpdatedAt,
				})
			}
		}

		next = shopifyNextLink(header.Get("Link"))
	}

	return levels, nil
}

type shopifyLineItem struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
}

type shopifyOrder struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	Currency          string            `json:"currency"`
	SubtotalPrice     string            `json:"subtotal_price"`
	TotalShipping     string            `json:"total_shipping_price"`
	TotalTax          string            `json:"total_tax"`
	TotalPrice        string            `json:"total_price"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	LineItems         []shopifyLineItem `json:"line_items"`
}

type shopifyOrderList struct {
	Orders []shopifyOrder `json:"orders"`
}

// PullOrders fetches orders updated inside the window
func (c *ShopifyConnector) PullOrders(ctx context.Context, creds integration.Credentials, from, to time.Time) ([]integrationapp.RemoteOrder, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(shopifyPageSize))
	params.Set("status", "any")
	if !from.IsZero() {
		params.Set("updated_at_min", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		params.Set("updated_at_max", to.UTC().Format(time.RFC3339))
	}

	next := c.endpoint(creds, "orders.json") + "?" + params.Encode()
	var orders []integrationapp.RemoteOrder

	for next != "" {
		var page shopifyOrderList
		header, err := c.client.doJSON(ctx, http.MethodGet, next, c.headers(creds), nil, &page)
		if err != nil {
			return nil, fmt.Errorf("shopify orders: %w", err)
		}

		for _, o := range page.Orders {
			orders = append(orders, shopifyRemoteOrder(o))
		}

		next = shopifyNextLink(header.Get("Link"))
	}

	return orders, nil
}

func shopifyRemoteOrder(o shopifyOrder) integrationapp.RemoteOrder {
	items := make([]integrationapp.RemoteOrderItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		unit := parseAmount(li.Price)
		items = append(items, integrationapp.RemoteOrderItem{
			SKU:       li.SKU,
			Name:      li.Title,
			Quantity:  li.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(li.Quantity)),
		})
	}

	rawStatus := o.FinancialStatus
	if o.FulfillmentStatus != "" {
		rawStatus = o.FulfillmentStatus
	}
	return integrationapp.RemoteOrder{
		ExternalID:    strconv.FormatInt(o.ID, 10),
		OrderNumber:   o.Name,
		CustomerEmail: o.Email,
		Status:        shopifyOrderStatus(o),
		RawStatus:     rawStatus,
		Currency:      o.Currency,
		Subtotal:      parseAmount(o.SubtotalPrice),
		ShippingTotal: parseAmount(o.TotalShipping),
		TaxTotal:      parseAmount(o.TotalTax),
		Total:         parseAmount(o.TotalPrice),
		PlacedAt:      o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         items,
	}
}

// PushInventory writes absolute stock levels. Shopify sets inventory per
// inventory item, which the mapping stores as the variant ID.
func (c *ShopifyConnector) PushInventory(ctx context.Context, creds integration.Credentials, updates []integrationapp.InventoryPush) error {
	for _, u := range updates {
		payload := map[string]interface{}{
			"inventory_item_id": u.ExternalVariantID,
			"available":         u.Quantity,
		}
		if _, err := c.client.doJSON(ctx, http.MethodPost,
			c.endpoint(creds, "inventory_levels/set.json"),
			c.headers(creds), payload, nil); err != nil {
			return fmt.Errorf("shopify inventory set for %s: %w", u.SKU, err)
		}
	}
	return nil
}

// PushPrice updates variant prices one record at a time
func (c *ShopifyConnector) PushPrice(ctx context.Context, creds integration.Credentials, updates []integrationapp.PricePush) error {
	for _, u := range updates {
		payload := map[string]interface{}{
			"variant": map[string]interface{}{
				"id":    u.ExternalVariantID,
				"price": u.Price.StringFixed(2),
			},
		}
		if _, err := c.client.doJSON(ctx, http.MethodPut,
			c.endpoint(creds, "variants/"+u.ExternalVariantID+".json"),
			c.headers(creds), payload, nil); err != nil {
			return fmt.Errorf("shopify price update for %s: %w", u.SKU, err)
		}
	}
	return nil
}

// UpdateOrderStatus pushes the transitions Shopify models on the order record:
// cancellation and closing a delivered order. Shipment is reported through
// fulfillments the platform already tracks, so other statuses are no-ops.
func (c *ShopifyConnector) UpdateOrderStatus(ctx context.Context, creds integration.Credentials, externalID, status string) error {
	var action string
	switch status {
	case "cancelled":
		action = "cancel"
	case "delivered":
		action = "close"
	default:
		return nil
	}

	if _, err := c.client.doJSON(ctx, http.MethodPost,
		c.endpoint(creds, "orders/"+externalID+"/"+action+".json"),
		c.headers(creds), map[string]interface{}{}, nil); err != nil {
		return fmt.Errorf("shopify order %s for %s: %w", action, externalID, err)
	}
	return nil
}

// ParseProductWebhook decodes a products/create or products/update delivery;
// the payload is the product record itself
func (c *ShopifyConnector) ParseProductWebhook(payload []byte) ([]integrationapp.RemoteProduct, error) {
	var p shopifyProduct
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("shopify product webhook: %w", err)
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("shopify product webhook: missing product id")
	}
	return shopifyRemoteProducts(p), nil
}

type shopifyInventoryLevel struct {
	InventoryItemID int64     `json:"inventory_item_id"`
	Available       int64     `json:"available"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ParseInventoryWebhook decodes an inventory_levels/update delivery. The
// payload carries only the inventory item ID, which the mapping stores as
// the variant ID.
func (c *ShopifyConnector) ParseInventoryWebhook(payload []byte) (*integrationapp.RemoteInventory, error) {
	var lvl shopifyInventoryLevel
	if err := json.Unmarshal(payload, &lvl); err != nil {
		return nil, fmt.Errorf("shopify inventory webhook: %w", err)
	}
	if lvl.InventoryItemID == 0 {
		return nil, fmt.Errorf("shopify inventory webhook: missing inventory item id")
	}
	return &integrationapp.RemoteInventory{
		ExternalVariantID: strconv.FormatInt(lvl.InventoryItemID, 10),
		Quantity:          lvl.Available,
		UpdatedAt:         lvl.UpdatedAt,
	}, nil
}

// ParseOrderWebhook decodes an orders/create or orders/updated delivery
func (c *ShopifyConnector) ParseOrderWebhook(payload []byte) (*integrationapp.RemoteOrder, error) {
	var o shopifyOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("shopify order webhook: %w", err)
	}
	if o.ID == 0 {
		return nil, fmt.Errorf("shopify order webhook: missing order id")
	}
	remote := shopifyRemoteOrder(o)
	return &remote, nil
}

func (c *ShopifyConnector) endpoint(creds integration.Credentials, path string) string {
	domain := strings.TrimSuffix(strings.TrimPrefix(creds.ShopDomain, "https://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/%s", domain, shopifyAPIVersion, path)
}

func (c *ShopifyConnector) headers(creds integration.Credentials) map[string]string {
	return map[string]string{"X-Shopify-Access-Token": creds.AccessToken}
}

var shopifyLinkNext = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// shopifyNextLink extracts the next-page URL from a Link header, or ""
func shopifyNextLink(link string) string {
	if link == "" {
		return ""
	}
	m := shopifyLinkNext.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func shopifyOrderStatus(o shopifyOrder) string {
	switch {
	case o.CancelledAt != nil:
		return "cancelled"
	case o.FulfillmentStatus == "fulfilled":
		return "shipped"
	case o.FinancialStatus == "paid", o.FinancialStatus == "partially_paid":
		return "processing"
	default:
		return "pending"
	}
}

func variantName(productTitle, variantTitle string) string {
	if variantTitle == "" || variantTitle == "Default Title" {
		return productTitle
	}
	return productTitle + " - " + variantTitle
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
