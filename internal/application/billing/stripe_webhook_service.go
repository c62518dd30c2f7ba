package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/billing"
	"github.com/truthsource/backend/internal/domain/shared"
)

// StripeWebhookService applies Stripe lifecycle events to local subscriptions
type StripeWebhookService struct {
	subscriptionRepo billing.SubscriptionRepository
	webhookSecret    string
	eventPublisher   shared.EventPublisher
	logger           *zap.Logger
}

// NewStripeWebhookService creates a new Stripe webhook service
func NewStripeWebhookService(subscriptionRepo billing.SubscriptionRepository, webhookSecret string, logger *zap.Logger) *StripeWebhookService {
	return &StripeWebhookService{
		subscriptionRepo: subscriptionRepo,
		webhookSecret:    webhookSecret,
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for the service
func (s *StripeWebhookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// WebhookResult reports what a webhook delivery did
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies the signature and dispatches the event
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChange(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handlePaymentFailed(ctx, event)
	default:
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process Stripe webhook",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}
	return result, nil
}

func (s *StripeWebhookService) handleSubscriptionChange(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	sub, err := s.findByCustomer(ctx, customerID(stripeSub.Customer))
	if err != nil || sub == nil {
		return err
	}

	status, ok := mapStripeStatus(stripeSub.Status)
	if !ok {
		s.logger.Debug("Ignoring transitional subscription status",
			zap.String("status", string(stripeSub.Status)))
		return nil
	}

	return s.apply(ctx, sub, stripeSub.ID, status, periodEnd(stripeSub.CurrentPeriodEnd))
}

func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	sub, err := s.findByCustomer(ctx, customerID(stripeSub.Customer))
	if err != nil || sub == nil {
		return err
	}
	return s.apply(ctx, sub, stripeSub.ID, billing.SubscriptionCanceled, periodEnd(stripeSub.CurrentPeriodEnd))
}

func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	sub, err := s.findByCustomer(ctx, customerID(invoice.Customer))
	if err != nil || sub == nil {
		return err
	}
	if sub.Status == billing.SubscriptionActive {
		return nil
	}
	return s.apply(ctx, sub, "", billing.SubscriptionActive, sub.CurrentPeriodEnd)
}

func (s *StripeWebhookService) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	sub, err := s.findByCustomer(ctx, customerID(invoice.Customer))
	if err != nil || sub == nil {
		return err
	}
	if sub.Status == billing.SubscriptionCanceled {
		return nil
	}
	return s.apply(ctx, sub, "", billing.SubscriptionPastDue, sub.CurrentPeriodEnd)
}

// findByCustomer resolves the tenant's subscription. An unknown customer is
// acknowledged rather than errored so Stripe stops retrying; deliveries can
// arrive before provisioning finishes or for customers outside this system.
func (s *StripeWebhookService) findByCustomer(ctx context.Context, stripeCustomerID string) (*billing.Subscription, error) {
	if stripeCustomerID == "" {
		s.logger.Warn("Stripe event without customer ID, skipping")
		return nil, nil
	}
	sub, err := s.subscriptionRepo.FindByStripeCustomer(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No subscription for Stripe customer",
				zap.String("customer_id", stripeCustomerID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

func (s *StripeWebhookService) apply(ctx context.Context, sub *billing.Subscription, stripeSubID string, status billing.SubscriptionStatus, end *time.Time) error {
	if err := sub.ApplyStripeUpdate(stripeSubID, status, end); err != nil {
		return err
	}
	if err := s.subscriptionRepo.Save(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, billing.NewSubscriptionChangedEvent(sub))
	}

	s.logger.Info("Subscription updated from Stripe",
		zap.String("org_id", sub.TenantID.String()),
		zap.String("status", string(status)))
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func periodEnd(unix int64) *time.Time {
	if unix <= 0 {
		return nil
	}
	t := time.Unix(unix, 0)
	return &t
}

// mapStripeStatus folds Stripe's lifecycle states onto the four local ones.
// Transitional states (incomplete, paused) are skipped until Stripe settles.
func mapStripeStatus(status stripe.SubscriptionStatus) (billing.SubscriptionStatus, bool) {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return billing.SubscriptionTrialing, true
	case stripe.SubscriptionStatusActive:
		return billing.SubscriptionActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return billing.SubscriptionPastDue, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return billing.SubscriptionCanceled, true
	}
	return "", false
}
