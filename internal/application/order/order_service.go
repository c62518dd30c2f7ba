package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/catalog"
	"github.com/truthsource/backend/internal/domain/customer"
	"github.com/truthsource/backend/internal/domain/order"
	"github.com/truthsource/backend/internal/domain/shared"
)

// ProductResolver maps order line SKUs to local products
type ProductResolver interface {
	FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]catalog.Product, error)
}

// CustomerResolver maps order emails to local customer records
type CustomerResolver interface {
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*customer.Customer, error)
}

// StockReservations puts order-line stock on hold while an order is open
// and returns it when the order is cancelled
type StockReservations interface {
	ReserveForOrder(ctx context.Context, tenantID, productID uuid.UUID, quantity int64) error
	ReleaseForOrder(ctx context.Context, tenantID, productID uuid.UUID, quantity int64) error
}

// PlatformNotifier pushes local order changes back to the origin platform
type PlatformNotifier interface {
	PushOrderStatus(ctx context.Context, tenantID uuid.UUID, platform, externalID, status string) error
}

// Service handles order ingestion from platforms and order management
type Service struct {
	orderRepo      order.Repository
	products       ProductResolver
	customers      CustomerResolver
	stock          StockReservations
	platform       PlatformNotifier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new order service
func NewService(
	orderRepo order.Repository,
	products ProductResolver,
	customers CustomerResolver,
	stock StockReservations,
	logger *zap.Logger,
) *Service {
	return &Service{
		orderRepo: orderRepo,
		products:  products,
		customers: customers,
		stock:     stock,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetPlatformNotifier enables pushing manual status changes to the order's
// origin platform
func (s *Service) SetPlatformNotifier(notifier PlatformNotifier) {
	s.platform = notifier
}

// Ingest upserts an order delivered by a platform. Repeated deliveries of the
// same (platform, external ID) update the local copy; deliveries older than
// the local copy are skipped.
func (s *Service) Ingest(ctx context.Context, input IngestOrderInput) (*IngestResult, error) {
	existing, err := s.orderRepo.FindByExternalID(ctx, input.OrgID, input.Platform, input.ExternalID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to look up order by external ID", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to ingest order")
	}

	created := existing == nil
	var prevStatus order.Status
	if existing != nil {
		prevStatus = existing.Status
	}
	var o *order.Order
	if created {
		o, err = order.NewOrder(input.OrgID, input.Platform, input.ExternalID, input.OrderNumber, input.PlacedAt)
		if err != nil {
			return nil, err
		}
	} else {
		if !input.PlatformUpdatedAt.IsZero() && existing.IsNewerThan(input.PlatformUpdatedAt) {
			info := toOrderInfo(existing)
			return &IngestResult{Order: info, Skipped: true}, nil
		}
		o = existing
	}

	if err := s.applyPayload(ctx, o, input); err != nil {
		return nil, err
	}
	o.MarkPlatformUpdated(input.PlatformUpdatedAt)

	if err := s.orderRepo.Save(ctx, o); err != nil {
		s.logger.Error("Failed to save ingested order",
			zap.String("platform", input.Platform),
			zap.String("external_id", input.ExternalID),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save order")
	}

	s.publishEvents(ctx, o.GetDomainEvents())
	o.ClearDomainEvents()
	s.syncReservations(ctx, o, prevStatus, created)

	s.logger.Info("Order ingested",
		zap.String("org_id", input.OrgID.String()),
		zap.String("platform", input.Platform),
		zap.String("order_number", o.OrderNumber),
		zap.Bool("created", created))

	info := toOrderInfo(o)
	return &IngestResult{Order: info, Created: created}, nil
}

func (s *Service) applyPayload(ctx context.Context, o *order.Order, input IngestOrderInput) error {
	if err := o.SetTotals(input.Currency, input.Subtotal, input.ShippingTotal, input.TaxTotal, input.Total); err != nil {
		return err
	}
	o.SetShippingAddress(input.ShippingAddress)

	items, err := s.resolveItems(ctx, o.TenantID, input.Items)
	if err != nil {
		return err
	}
	if err := o.ReplaceItems(items); err != nil {
		return err
	}

	s.linkCustomer(ctx, o, input.CustomerEmail)

	if input.Status != "" {
		s.applyPlatformStatus(o, input.Status, input.RawPlatformStatus)
	}

	return nil
}

// resolveItems builds order items and links each line to a local product when
// its SKU matches one.
func (s *Service) resolveItems(ctx context.Context, orgID uuid.UUID, inputs []IngestItemInput) ([]order.OrderItem, error) {
	skus := make([]string, 0, len(inputs))
	for _, in := range inputs {
		skus = append(skus, in.SKU)
	}

	bySKU := make(map[string]uuid.UUID)
	if len(skus) > 0 {
		products, err := s.products.FindBySKUs(ctx, orgID, skus)
		if err != nil {
			s.logger.Error("Failed to resolve order item SKUs", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to resolve order items")
		}
		for i := range products {
			bySKU[products[i].SKU] = products[i].ID
		}
	}

	items := make([]order.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		item := order.OrderItem{
			SKU:       in.SKU,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			LineTotal: in.LineTotal,
		}
		if productID, ok := bySKU[in.SKU]; ok {
			id := productID
			item.ProductID = &id
		}
		items = append(items, item)
	}

	return items, nil
}

func (s *Service) linkCustomer(ctx context.Context, o *order.Order, email string) {
	if email == "" {
		return
	}

	cust, err := s.customers.FindByEmail(ctx, o.TenantID, email)
	if err != nil {
		// unmatched emails are normal; the order keeps the raw address
		o.SetCustomer(nil, email)
		return
	}
	id := cust.ID
	o.SetCustomer(&id, email)
}

// applyPlatformStatus moves the order toward the platform's status. The one
// hop the transition table forbids but platforms routinely report is a jump
// straight to delivered; that goes through shipped. Anything else invalid is
// kept as a raw status only.
func (s *Service) applyPlatformStatus(o *order.Order, next order.Status, raw string) {
	err := o.UpdateStatus(next, raw)
	if err == nil {
		return
	}

	if next == order.StatusDelivered && o.Status.CanTransitionTo(order.StatusShipped) {
		if err := o.UpdateStatus(order.StatusShipped, raw); err == nil {
			if err := o.UpdateStatus(order.StatusDelivered, raw); err == nil {
				return
			}
		}
	}

	s.logger.Warn("Platform reported a status the order cannot move to",
		zap.String("order_number", o.OrderNumber),
		zap.String("current", string(o.Status)),
		zap.String("reported", string(next)),
		zap.String("raw", raw))
	o.RawPlatformStatus = raw
}

// Get returns an order with its items
func (s *Service) Get(ctx context.Context, orgID, orderID uuid.UUID) (*OrderInfo, error) {
	o, err := s.orderRepo.FindByIDForTenant(ctx, orgID, orderID)
	if err != nil {
		return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	}
	info := toOrderInfo(o)
	return &info, nil
}

// List returns the organization's orders
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (*shared.Paginated[OrderInfo], error) {
	orders, err := s.orderRepo.FindAllForTenant(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list orders")
	}

	total, err := s.orderRepo.CountForTenant(ctx, orgID, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count orders")
	}

	infos := make([]OrderInfo, 0, len(orders))
	for i := range orders {
		infos = append(infos, toOrderInfo(&orders[i]))
	}

	result := shared.NewPaginated(infos, total, filter.Page, filter.PageSize)
	return &result, nil
}

// UpdateStatus changes an order's status manually, enforcing the same
// transition rules as platform updates.
func (s *Service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderInfo, error) {
	o, err := s.orderRepo.FindByIDForTenant(ctx, input.OrgID, input.OrderID)
	if err != nil {
		return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	}

	prevStatus := o.Status
	if err := o.UpdateStatus(input.Status, string(input.Status)); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, o); err != nil {
		s.logger.Error("Failed to update order status", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update order")
	}

	s.publishEvents(ctx, o.GetDomainEvents())
	o.ClearDomainEvents()
	s.syncReservations(ctx, o, prevStatus, false)

	// the origin platform hears about the change too; a failed push never
	// rolls back the local update
	if s.platform != nil {
		if err := s.platform.PushOrderStatus(ctx, o.TenantID, o.Platform, o.ExternalID, string(o.Status)); err != nil {
			s.logger.Warn("Failed to push order status to platform",
				zap.String("order_number", o.OrderNumber),
				zap.String("platform", o.Platform),
				zap.Error(err))
		}
	}

	info := toOrderInfo(o)
	return &info, nil
}

// isOpen reports whether an order in this status still holds stock
func isOpen(st order.Status) bool {
	return st == order.StatusPending || st == order.StatusProcessing
}

// syncReservations keeps stock holds aligned with the order's lifecycle:
// newly ingested open orders hold their mapped lines, and a cancellation
// gives the hold back. Holds are best effort; a shortfall never fails the
// ingest, it is logged and the order keeps flowing.
func (s *Service) syncReservations(ctx context.Context, o *order.Order, previous order.Status, created bool) {
	if s.stock == nil {
		return
	}

	switch {
	case created && isOpen(o.Status):
		s.eachMappedItem(o, func(productID uuid.UUID, qty int64) error {
			return s.stock.ReserveForOrder(ctx, o.TenantID, productID, qty)
		}, "reserve")
	case !created && isOpen(previous) && o.Status == order.StatusCancelled:
		s.eachMappedItem(o, func(productID uuid.UUID, qty int64) error {
			return s.stock.ReleaseForOrder(ctx, o.TenantID, productID, qty)
		}, "release")
	}
}

func (s *Service) eachMappedItem(o *order.Order, fn func(productID uuid.UUID, qty int64) error, action string) {
	for i := range o.Items {
		item := &o.Items[i]
		if item.ProductID == nil || item.Quantity <= 0 {
			continue
		}
		if err := fn(*item.ProductID, item.Quantity); err != nil {
			s.logger.Warn("Stock hold out of step with order",
				zap.String("action", action),
				zap.String("order_number", o.OrderNumber),
				zap.String("product_id", item.ProductID.String()),
				zap.Int64("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
