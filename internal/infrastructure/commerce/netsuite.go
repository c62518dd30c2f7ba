package commerce

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	integrationapp "github.com/truthsource/backend/internal/application/integration"
	"github.com/truthsource/backend/internal/domain/integration"
)

const netsuitePageSize = 100

// NetSuiteConnector talks to the SuiteTalk REST API. Requests are signed
// with OAuth 1.0a HMAC-SHA256 (token-based authentication); list endpoints
// paginate with limit/offset and a hasMore flag.
//
// Credentials mapping: APIKey/APISecret are the consumer pair; AccessToken
// holds the token ID and token secret joined by a colon; AccountID is the
// realm and the API host prefix.
type NetSuiteConnector struct {
	client *platformClient
}

// NewNetSuiteConnector creates a NetSuite connector
func NewNetSuiteConnector(hc *http.Client) *NetSuiteConnector {
	return &NetSuiteConnector{client: newPlatformClient(hc)}
}

// Platform returns the platform this connector serves
func (c *NetSuiteConnector) Platform() integration.Platform {
	return integration.PlatformNetSuite
}

// Ping verifies the token signature with a one-record item listing
func (c *NetSuiteConnector) Ping(ctx context.Context, creds integration.Credentials) error {
	params := url.Values{}
	params.Set("limit", "1")

	endpoint := c.endpoint(creds, "inventoryItem")
	if _, err := c.client.doJSON(ctx, http.MethodGet,
		endpoint+"?"+params.Encode(),
		c.signedHeaders(creds, http.MethodGet, endpoint, params), nil, nil); err != nil {
		return fmt.Errorf("netsuite ping: %w", err)
	}
	return nil
}

type netsuiteItem struct {
	ID            string  `json:"id"`
	ItemID        string  `json:"itemId"`
	DisplayName   string  `json:"displayName"`
	Description   string  `json:"salesDescription"`
	BasePrice     float64 `json:"basePrice"`
	QuantityAvail float64 `json:"quantityAvailable"`
	IsInactive    bool    `json:"isInactive"`
	LastModified  string  `json:"lastModifiedDate"`
}

type netsuiteList[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"hasMore"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
}

// PullProducts fetches inventory items changed since the given time
func (c *NetSuiteConnector) PullProducts(ctx context.Context, creds integration.Credentials, since time.Time) ([]integrationapp.RemoteProduct, error) {
	var products []integrationapp.RemoteProduct

	for offset := 0; ; offset += netsuitePageSize {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(netsuitePageSize))
		params.Set("offset", strconv.Itoa(offset))
		if !since.IsZero() {
			params.Set("q", fmt.Sprintf(`lastModifiedDate AFTER "%s"`, since.UTC().Format("01/02/2006 15:04:05")))
		}

		endpoint := c.endpoint(creds, "inventoryItem")
		var page netsuiteList[netsuiteItem]
		if _, err := c.client.doJSON(ctx, http.MethodGet,
			endpoint+"?"+params.Encode(),
			c.signedHeaders(creds, http.MethodGet, endpoint, params), nil, &page); err != nil {
			return nil, fmt.Errorf("netsuite items: %w", err)
		}

		for _, it := range page.Items {
			products = append(products, netsuiteRemoteProduct(it))
		}

		if !page.HasMore {
			return products, nil
		}
	}
}

func netsuiteRemoteProduct(it netsuiteItem) integrationapp.RemoteProduct {
	return integrationapp.RemoteProduct{
		ExternalID:  it.ID,
		SKU:         it.ItemID,
		Name:        it.DisplayName,
		Description: it.Description,
		Price:       decimal.NewFromFloat(it.BasePrice),
		Active:      !it.IsInactive,
		UpdatedAt:   parseNetSuiteTime(it.LastModified),
	}
}

// PullInventory reads available quantities from the same item listing the
// product pull uses
func (c *NetSuiteConnector) PullInventory(ctx context.Context, creds integration.Credentials, since time.Time) ([]integrationapp.RemoteInventory, error) {
	var levels []integrationapp.RemoteInventory

	for offset := 0; ; offset += netsuitePageSize {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(netsuitePageSize))
		params.Set("offset", strconv.Itoa(offset))
		if !since.IsZero() {
			params.Set("q", fmt.Sprintf(`lastModifiedDate AFTER "%s"`, since.UTC().Format("01/02/2006 15:04:05")))
		}

		endpoint := c.endpoint(creds, "inventoryItem")
		var page netsuiteList[netsuiteItem]
		if _, err := c.client.doJSON(ctx, http.MethodGet,
			endpoint+"?"+params.Encode(),
			c.signedHeaders(creds, http.MethodGet, endpoint, params), nil, &page); err != nil {
			return nil, fmt.Errorf("netsuite inventory: %w", err)
		}

		for _, it := range page.Items {
			levels = append(levels, integrationapp.RemoteInventory{
				ExternalProductID: it.ID,
				SKU:               it.ItemID,
				Quantity:          int64(it.QuantityAvail),
				UpdatedAt:         parseNetSuiteTime(it.LastModified),
			})
		}

		if !page.HasMore {
			return levels, nil
		}
	}
}

type netsuiteOrderItem struct {
	ItemRef  string  `json:"itemRef"`
	ItemName string  `json:"itemName"`
	Quantity int64   `json:"quantity"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
}

type netsuiteOrder struct {
	ID           string              `json:"id"`
	TranID       string              `json:"tranId"`
	Email        string              `json:"email"`
	Status       string              `json:"status"`
	Currency     string              `json:"currency"`
	Subtotal     float64             `json:"subtotal"`
	ShippingCost float64             `json:"shippingCost"`
	TaxTotal     float64             `json:"taxTotal"`
	Total        float64             `json:"total"`
	TranDate     string              `json:"tranDate"`
	LastModified string              `json:"lastModifiedDate"`
	Items        []netsuiteOrderItem `json:"item"`
}

// PullOrders fetches sales orders updated inside the window
func (c *NetSuiteConnector) PullOrders(ctx context.Context, creds integration.Credentials, from, to time.Time) ([]integrationapp.RemoteOrder, error) {
	var orders []integrationapp.RemoteOrder

	for offset := 0; ; offset += netsuitePageSize {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(netsuitePageSize))
		params.Set("offset", strconv.Itoa(offset))
		var clauses []string
		if !from.IsZero() {
			clauses = append(clauses, fmt.Sprintf(`lastModifiedDate AFTER "%s"`, from.UTC().Format("01/02/2006 15:04:05")))
		}
		if !to.IsZero() {
			clauses = append(clauses, fmt.Sprintf(`lastModifiedDate BEFORE "%s"`, to.UTC().Format("01/02/2006 15:04:05")))
		}
		if len(clauses) > 0 {
			params.Set("q", strings.Join(clauses, " AND "))
		}

		endpoint := c.endpoint(creds, "salesOrder")
		var page netsuiteList[netsuiteOrder]
		if _, err := c.client.doJSON(ctx, http.MethodGet,
			endpoint+"?"+params.Encode(),
			c.signedHeaders(creds, http.MethodGet, endpoint, params), nil, &page); err != nil {
			return nil, fmt.Errorf("netsuite orders: %w", err)
		}

		for _, o := range page.Items {
			orders = append(orders, netsuiteRemoteOrder(o))
		}

		if !page.HasMore {
			return orders, nil
		}
	}
}

func netsuiteRemoteOrder(o netsuiteOrder) integrationapp.RemoteOrder {
	items := make([]integrationapp.RemoteOrderItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, integrationapp.RemoteOrderItem{
			SKU:       li.ItemRef,
			Name:      li.ItemName,
			Quantity:  li.Quantity,
			UnitPrice: decimal.NewFromFloat(li.Rate),
			LineTotal: decimal.NewFromFloat(li.Amount),
		})
	}

	return integrationapp.RemoteOrder{
		ExternalID:    o.ID,
		OrderNumber:   o.TranID,
		CustomerEmail: o.Email,
		Status:        netsuiteOrderStatus(o.Status),
		RawStatus:     o.Status,
		Currency:      o.Currency,
		Subtotal:      decimal.NewFromFloat(o.Subtotal),
		ShippingTotal: decimal.NewFromFloat(o.ShippingCost),
		TaxTotal:      decimal.NewFromFloat(o.TaxTotal),
		Total:         decimal.NewFromFloat(o.Total),
		PlacedAt:      parseNetSuiteTime(o.TranDate),
		UpdatedAt:     parseNetSuiteTime(o.LastModified),
		Items:         items,
	}
}

// PushInventory patches item quantities one record at a time
func (c *NetSuiteConnector) PushInventory(ctx context.Context, creds integration.Credentials, updates []integrationapp.InventoryPush) error {
	for _, u := range updates {
		endpoint := c.endpoint(creds, "inventoryItem/"+u.ExternalProductID)
		payload := map[string]interface{}{"quantityAvailable": u.Quantity}
		if _, err := c.client.doJSON(ctx, http.MethodPatch, endpoint,
			c.signedHeaders(creds, http.MethodPatch, endpoint, nil), payload, nil); err != nil {
			return fmt.Errorf("netsuite inventory patch for %s: %w", u.SKU, err)
		}
	}
	return nil
}

// PushPrice patches item base prices one record at a time
func (c *NetSuiteConnector) PushPrice(ctx context.Context, creds integration.Credentials, updates []integrationapp.PricePush) error {
	for _, u := range updates {
		endpoint := c.endpoint(creds, "inventoryItem/"+u.ExternalProductID)
		payload := map[string]interface{}{"basePrice": u.Price.InexactFloat64()}
		if _, err := c.client.doJSON(ctx, http.MethodPatch, endpoint,
			c.signedHeaders(creds, http.MethodPatch, endpoint, nil), payload, nil); err != nil {
			return fmt.Errorf("netsuite price patch for %s: %w", u.SKU, err)
		}
	}
	return nil
}

// UpdateOrderStatus cancels the sales order record. Fulfillment and billing
// states are derived inside NetSuite and cannot be written, so every other
// status is a no-op.
func (c *NetSuiteConnector) UpdateOrderStatus(ctx context.Context, creds integration.Credentials, externalID, status string) error {
	if status != "cancelled" {
		return nil
	}

	endpoint := c.endpoint(creds, "salesOrder/"+externalID)
	payload := map[string]interface{}{"orderStatus": "Cancelled"}
	if _, err := c.client.doJSON(ctx, http.MethodPatch, endpoint,
		c.signedHeaders(creds, http.MethodPatch, endpoint, nil), payload, nil); err != nil {
		return fmt.Errorf("netsuite order cancel for %s: %w", externalID, err)
	}
	return nil
}

// ParseProductWebhook decodes an item change delivery. NetSuite does not
// webhook natively; a SuiteScript user event forwards the item record.
func (c *NetSuiteConnector) ParseProductWebhook(payload []byte) ([]integrationapp.RemoteProduct, error) {
	var it netsuiteItem
	if err := json.Unmarshal(payload, &it); err != nil {
		return nil, fmt.Errorf("netsuite item webhook: %w", err)
	}
	if it.ID == "" {
		return nil, fmt.Errorf("netsuite item webhook: missing item id")
	}
	return []integrationapp.RemoteProduct{netsuiteRemoteProduct(it)}, nil
}

// ParseInventoryWebhook decodes a stock change delivery; quantity rides on
// the same item record the product pull reads
func (c *NetSuiteConnector) ParseInventoryWebhook(payload []byte) (*integrationapp.RemoteInventory, error) {
	var it netsuiteItem
	if err := json.Unmarshal(payload, &it); err != nil {
		return nil, fmt.Errorf("netsuite inventory webhook: %w", err)
	}
	if it.ID == "" {
		return nil, fmt.Errorf("netsuite inventory webhook: missing item id")
	}
	return &integrationapp.RemoteInventory{
		ExternalProductID: it.ID,
		SKU:               it.ItemID,
		Quantity:          int64(it.QuantityAvail),
		UpdatedAt:         parseNetSuiteTime(it.LastModified),
	}, nil
}

// ParseOrderWebhook decodes a sales order change delivery
func (c *NetSuiteConnector) ParseOrderWebhook(payload []byte) (*integrationapp.RemoteOrder, error) {
	var o netsuiteOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, fmt.Errorf("netsuite order webhook: %w", err)
	}
	if o.ID == "" {
		return nil, fmt.Errorf("netsuite order webhook: missing order id")
	}
	remote := netsuiteRemoteOrder(o)
	return &remote, nil
}

func (c *NetSuiteConnector) endpoint(creds integration.Credentials, path string) string {
	base := strings.TrimSuffix(creds.ShopDomain, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.suitetalk.api.netsuite.com", strings.ToLower(creds.AccountID))
	} else if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	return base + "/services/rest/record/v1/" + path
}

// signedHeaders builds the OAuth 1.0a HMAC-SHA256 Authorization header
func (c *NetSuiteConnector) signedHeaders(creds integration.Credentials, method, endpoint string, query url.Values) map[string]string {
	tokenID, tokenSecret := splitToken(creds.AccessToken)

	oauth := map[string]string{
		"oauth_consumer_key":     creds.APIKey,
		"oauth_token":            tokenID,
		"oauth_signature_method": "HMAC-SHA256",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_nonce":            nonce(),
		"oauth_version":          "1.0",
	}

	// Signature base: method, URL, and every oauth + query parameter sorted
	params := url.Values{}
	for k, v := range oauth {
		params.Set(k, v)
	}
	for k, vs := range query {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	base := strings.ToUpper(method) + "&" + url.QueryEscape(endpoint) + "&" + url.QueryEscape(encodeSorted(params))
	key := url.QueryEscape(creds.APISecret) + "&" + url.QueryEscape(tokenSecret)

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("realm=%q", creds.AccountID))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, url.QueryEscape(oauth[k])))
	}

	return map[string]string{"Authorization": "OAuth " + strings.Join(parts, ", ")}
}

func encodeSorted(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

func splitToken(token string) (id, secret string) {
	if idx := strings.IndexByte(token, ':'); idx >= 0 {
		return token[:idx], token[idx+1:]
	}
	return token, ""
}

func nonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf)
}

func netsuiteOrderStatus(status string) string {
	switch status {
	case "Billed", "Closed":
		return "delivered"
	case "Pending Fulfillment", "Partially Fulfilled":
		return "processing"
	case "Pending Billing", "Pending Billing/Partially Fulfilled":
		return "shipped"
	case "Cancelled":
		return "cancelled"
	default:
		return "pending"
	}
}

func parseNetSuiteTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
