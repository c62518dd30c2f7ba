package commerce

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	integrationapp "github.com/truthsource/backend/internal/application/integration"
	"github.com/truthsource/backend/internal/domain/integration"
)

const wooPageSize = 100

// WooCommerceConnector talks to the WooCommerce REST API v3. Authentication
// is consumer key/secret over basic auth; list endpoints use page-number
// pagination and report completeness by returning a short page.
type WooCommerceConnector struct {
	client *platformClient
}

// NewWooCommerceConnector creates a WooCommerce connector
func NewWooCommerceConnector(hc *http.Client) *WooCommerceConnector {
	return &WooCommerceConnector{client: newPlatformClient(hc)}
}

// Platform returns the platform this connector serves
func (c *WooCommerceConnector) Platform() integration.Platform {
	return integration.PlatformWooCommerce
}

// Ping verifies the consumer key pair with a system status read
func (c *WooCommerceConnector) Ping(ctx context.Context, creds integration.Credentials) error {
	if _, err := c.client.doJSON(ctx, http.MethodGet,
		c.endpoint(creds, "system_status"), c.headers(creds), nil, nil); err != nil {
		return fmt.Errorf("woocommerce ping: %w", err)
	}
	return nil
}

type wooProduct struct {
	ID               int64  `json:"id"`
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
	Price            string `json:"price"`
	Status           string `json:"status"`
	StockQuantity    *int64 `json:"stock_quantity"`
	DateModifiedGMT  string `json:"date_modified_gmt"`
}

// PullProducts fetches products changed since the given time
func (c *WooCommerceConnector) PullProducts(ctx context.Context, creds integration.Credentials, since time.Time) ([]integrationapp.RemoteProduct, error) {
	var products []integrationapp.RemoteProduct

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(wooPageSize))
		params.Set("page", strconv.Itoa(page))
		if !since.IsZero() {
			params.Set("modified_after", since.UTC().Format("2006-01-02T15:04:05"))
		}

		var batch []wooProduct
		if _, err := c.client.doJSON(ctx, http.MethodGet,
			c.endpoint(creds, "products")+"?"+params.Encode(),
			c.headers(creds), nil, &batch); err != nil {
			return nil, fmt.Errorf("woocommerce products: %w", err)
		}

		for _, p := range batch {
			products = append(products, wooRemoteProduct(p))
		}

		if len(batch) < wooPageSize {
			return products, nil
		}
	}
}

func wooRemoteProduct(p wooProduct) integrationapp.RemoteProduct {
	return integrationapp.RemoteProduct{
		ExternalID:  strconv.FormatInt(p.ID, 10),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.ShortDescription,
		Price:       parseAmount(p.Price),
		Active:      p.Status == "publish",
		UpdatedAt:   parseWooTime(p.DateModifiedGMT),
	}
}

// PullInventory reads stock through the product listing. Products without
// managed stock report a null quantity and are skipped.
func (c *WooCommerceConnector) PullInventory(ctx context.Context, creds integration.Credentials, since time.Time) ([]integrationapp.RemoteInventory, error) {
	var levels []integrationapp.RemoteInventory

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(wooPageSize))
		params.Set("page", strconv.Itoa(page))
		if !since.IsZero() {
			params.Set("modified_after", since.UTC().Format("2006-01-02T15:04:05"))
		}

		var batch []wooProduct
		if _, err := c.client.doJSON(ctx, http.MethodGet,
			c.endpoint(creds, "products")+"?"+params.Encode(),
			c.headers(creds), nil, &batch); err != nil {
			return nil, fmt.Errorf("woocommerce inventory: %w", err)
		}

		for _, p := range batch {
			if p.StockQuantity == nil {
				continue
			}
			levels = append(levels, integrationapp.RemoteInventory{
				ExternalProductID: strconv.FormatInt(p.ID, 10),
				SKU:               p.SKU,
				Quantity:          *p.StockQuantity,
				UpdatedAt:         parseWooTime(p.DateModifiedGMT),
			})
		}

		if len(batch) < wooPageSize {
			return levels, nil
		}
	}
}

type wooLineItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
	Total    string `json:"total"`
}

type wooOrder struct {
	ID              int64         `json:"id"`
	Number          string        `json:"number"`
	Status          string        `json:"status"`
	Currency        string        `json:"currency"`
	Total           string        `json:"total"`
	ShippingTotal   string        `json:"shipping_total"`
	TotalTax        string        `json:"total_tax"`
	DateCreatedGMT  string        `json:"date_created_gmt"`
	DateModifiedGMT string        `json:"date_modified_gmt"`
	Billing         wooBilling    `json:"billing"`
	LineItems       []wooLineItem `json:"line_items"`
}

type wooBilling struct {
	Email string `json:"email"`
}

// PullOrders fetches orders updated inside the window
func (c *WooCommerceConnector) PullOrders(ctx context.Context, creds integration.Credentials, from, to time.Time) ([]integrationapp.RemoteOrder, error) {
	var orders []integrationapp.RemoteOrder

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(wooPageSize))
		params.Set("page", strconv.Itoa(page))
		if !from.IsZero() {
			params.Set("modified_after", from.UTC().Format("2006-01-02T15:04:05"))
		}
		if !to.IsZero() {
			params.Set("modified_before", to.UTC().Format("2006-01-02T15:04:05"))
		}

		var batch []wooOrder
		if _, err := c.client.doJSON(ctx, http.MethodGet,
			c.endpoint(creds, "orders")+"?"+params.Encode(),
			c.headers(creds), nil, &batch); err != nil {
			return nil, fmt.Errorf("woocommerce orders: %w", err)
		}

		for _, o := range batch {
			orders = append(orders, wooRemoteOrder(o))
		}

		if len(batch) < wooPageSize {
			return orders, nil
		}
	}
}

func wooRemoteOrder(o wooOrder) integrationapp.RemoteOrder {
	var subtotal decimal.Decimal
	items := make([]integrationapp.RemoteOrderItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		lineTotal := parseAmount(li.Total)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, integrationapp.RemoteOrderItem{
			SKU:       li.SKU,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: parseAmount(li.Price),
			LineTotal: lineTotal,
		})
	}

	return integrationapp.RemoteOrder{
		ExternalID:    strconv.FormatInt(o.ID, 10),
		OrderNumber:   o.Number,
		CustomerEmail: o.Billing.Email,
		Status:        wooOrderStatus(o.Status),
		RawStatus:     o.Status,
		Currency:      o.Currency,
		Subtotal:      subtotal,
		ShippingTotal: parseAmount(o.ShippingTotal),
		TaxTotal:      parseAmount(o.TotalTax),
		Total:         parseAmount(o.Total),
		PlacedAt:      parseWooTime(o.DateCreatedGMT),
		UpdatedAt:     parseWooTime(o.DateModifiedGMT),
		Items:         items,
	}
}

// PushInventory writes stock quantities with the products/batch endpoint,
// 100 updates per request
func (c *WooCommerceConnector) PushInventory(ctx context.Context, creds integration.Credentials, updates []integrationapp.InventoryPush) error {
	for start := 0; start < len(updates); start += wooPageSize {
		end := start + wooPageSize
		if end > len(updates) {
			end = len(updates)
		}

		batch := make([]map[string]interface{}, 0, end-start)
		for _, u := range updates[start:end] {
			batch = append(batch, map[string]interface{}{
				"id":             u.ExternalProductID,
				"stock_quantity": u.Quantity,
				"manage_stock":   true,
			})
		}

		payload := map[string]interface{}{"update": batch}
		if _, err := c.client.doJSON(ctx, http.MethodPost,
			c.endpoint(creds, "products/batch"),
			c.headers(creds), payload, nil); err != nil {
			return fmt.Errorf("woocommerce inventory batch: %w", err)
		}
	}
	return nil
}

// PushPrice writes regular prices with the products/batch endpoint,
// 100 updates per request
func (c *WooCommerceConnector) PushPrice(ctx context.Context, creds integration.Credentials, updates []integrationapp.PricePush) error {
	for start := 0; start < len(updates); start += wooPageSize {
		end := start + wooPageSize
		if end > len(updates) {
			end = len(updates)
		}

		batch := make([]map[string]interface{}, 0, end-start)
		for _, u := range updates[start:end] {
			batch = append(batch, map[string]interface{}{
				"id":            u.ExternalProductID,
				"regular_price": u.Price.StringFixed(2),
			})
		}

		payload := map[string]interface{}{"update": batch}
		if _, err := c.client.doJSON(ctx, http.MethodPost,
			c.endpoint(creds, "products/batch"),
			c.headers(creds), payload, nil); err != nil {
			return fmt.Errorf("woocommerce price batch: %w", err)
		}
	}
	return nil
}

// UpdateOrderStatus writes the WooCommerce status closest to the local one.
// WooCommerce has no shipped state of its own; shipped and delivered both
// map to completed.
func (c *WooCommerceConnector) UpdateOrderStatus(ctx context.Context, creds integration.Credentials, externalID, status string) error {
	target := wooStatusFor(status)
	if target == "" {
		return nil
	}

	payload := map[string]interface{}{"status": target}
	if _, err := c.client.doJSON(ctx, http.MethodPut,
		c.endpoint(creds, "orders/"+externalID),
		c.headers(creds), payload, nil); err != nil {
		return fmt.Errorf("woocommerce order status for %s: %w", externalID, err)
	}
	return nil
}

// ParseProductWebhook decodes a product.created or product.updated delivery;
// the payload is the product record itself
func (c *WooCommerceConnector) ParseProductWebhook(payload []byte) ([]integrationapp.RemoteProduct, error) {
	var p wooProduct
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("woocommerce product webhook: %w", err)
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("woocommerce product webhook: missing product id")
	}
	return []integrationapp.RemoteProduct{wooRemoteProduct(p)}, nil
}

// ParseInventoryWebhook decodes a stock change delivery. WooCommerce has no
// dedicated inventory webhook; stock rides on the product payload, and
// products without managed stock report a null quantity.
func (c *WooCommerceConnector) ParseInventoryWebhook(payload []byte) (*integrationapp.RemoteInventory, error) {
	var p wooProduct
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("woocommerce inventory webhook: %w", err)
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("woocommerce inventory webhook: missing product id")
	}
	if p.StockQuantity == nil {
		return nil, fmt.Errorf("woocommerce inventory webhook: product %d does not manage stock", p.ID)
	}
	return &integrationapp.RemoteInventory{
		ExternalProductID: strconv.FormatInt(p.ID, 10),
		SKU:               p.SKU,
		Quantity:          *p.StockQuantity,
		UpdatedAt:         parseWooTime(p.DateModifiedGMT),
	}, nil
}

// ParseOrderWebhook decodes an order.created or order.updated delivery
func (c *WooCommerceConnector) ParseOrderWebhook(payload []byte) (*integrationapp.RemoteOrder, error) {
	var o wooOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("woocommerce order webhook: %w", err)
	}
	if o.ID == 0 {
		return nil, fmt.Errorf("woocommerce order webhook: missing order id")
	}
	remote := wooRemoteOrder(o)
	return &remote, nil
}

func (c *WooCommerceConnector) endpoint(creds integration.Credentials, path string) string {
	base := strings.TrimSuffix(creds.ShopDomain, "/")
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	return base + "/wp-json/wc/v3/" + path
}

func (c *WooCommerceConnector) headers(creds integration.Credentials) map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.APISecret))
	return map[string]string{"Authorization": "Basic " + token}
}

// wooStatusFor maps a local status onto WooCommerce's vocabulary, or ""
// when there is no counterpart
func wooStatusFor(status string) string {
	switch status {
	case "pending":
		return "pending"
	case "processing":
		return "processing"
	case "shipped", "delivered":
		return "completed"
	case "cancelled":
		return "cancelled"
	default:
		return ""
	}
}

func wooOrderStatus(status string) string {
	switch status {
	case "completed":
		return "delivered"
	case "processing", "on-hold":
		return "processing"
	case "cancelled", "refunded", "failed", "trash":
		return "cancelled"
	default:
		return "pending"
	}
}

func parseWooTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
