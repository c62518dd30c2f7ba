package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	portalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/zap"

	"github.com/truthsource/backend/internal/domain/billing"
)

// StripeConfig holds the Stripe credentials and the plan-to-price mapping
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret verifies webhook deliveries (whsec_xxx)
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates the key must be a test key
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// PriceIDs maps plan codes to Stripe Price IDs
	PriceIDs map[string]string `json:"price_ids" mapstructure:"price_ids"`

	// CheckoutSuccessURL is where Checkout redirects after payment
	CheckoutSuccessURL string `json:"checkout_success_url" mapstructure:"checkout_success_url"`

	// CheckoutCancelURL is where Checkout redirects when the customer backs out
	CheckoutCancelURL string `json:"checkout_cancel_url" mapstructure:"checkout_cancel_url"`

	// PortalReturnURL is where the billing portal sends the customer back to
	PortalReturnURL string `json:"portal_return_url" mapstructure:"portal_return_url"`
}

// Validate checks the configuration is usable
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}
	for _, code := range []billing.PlanCode{billing.PlanStarter, billing.PlanGrowth, billing.PlanScale} {
		if c.PriceIDs[string(code)] == "" {
			return fmt.Errorf("stripe: price ID not set for plan: %s", code)
		}
	}
	return nil
}

// PriceID returns the Stripe Price ID for a plan
func (c *StripeConfig) PriceID(plan billing.PlanCode) (string, error) {
	priceID := c.PriceIDs[string(plan)]
	if priceID == "" {
		return "", fmt.Errorf("stripe: no price ID configured for plan: %s", plan)
	}
	return priceID, nil
}

// StripeGateway implements the subscription service's outbound Stripe port
type StripeGateway struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeGateway validates the config, sets the global API key, and
// returns the gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stripe.Key = config.SecretKey

	return &StripeGateway{config: config, logger: logger}, nil
}

// CreateCustomer creates the Stripe customer backing an organization
func (g *StripeGateway) CreateCustomer(ctx context.Context, orgID uuid.UUID, name, slug string) (string, error) {
	params := &stripe.CustomerParams{
		Name:        stripe.String(name),
		Description: stripe.String(fmt.Sprintf("organization %s", slug)),
		Metadata: map[string]string{
			"organization_id": orgID.String(),
			"slug":            slug,
		},
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		g.logger.Error("failed to create Stripe customer",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}

	g.logger.Info("created Stripe customer",
		zap.String("organization_id", orgID.String()),
		zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateSubscription starts a subscription on the plan's price
func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID string, plan billing.PlanCode) (string, error) {
	priceID, err := g.config.PriceID(plan)
	if err != nil {
		return "", err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		Metadata: map[string]string{
			"plan_code": string(plan),
		},
	}
	params.Context = ctx

	sub, err := subscription.New(params)
	if err != nil {
		g.logger.Error("failed to create Stripe subscription",
			zap.String("customer_id", customerID),
			zap.String("plan_code", string(plan)),
			zap.Error(err))
		return "", fmt.Errorf("stripe: create subscription: %w", err)
	}

	g.logger.Info("created Stripe subscription",
		zap.String("customer_id", customerID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))
	return sub.ID, nil
}

// ChangePlan moves an existing subscription to another plan's price,
// prorating the difference
func (g *StripeGateway) ChangePlan(ctx context.Context, subscriptionID string, plan billing.PlanCode) error {
	priceID, err := g.config.PriceID(plan)
	if err != nil {
		return err
	}

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := subscription.Get(subscriptionID, getParams)
	if err != nil {
		return fmt.Errorf("stripe: get subscription: %w", err)
	}
	if len(sub.Items.Data) == 0 {
		return fmt.Errorf("stripe: subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
		Metadata: map[string]string{
			"plan_code": string(plan),
		},
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		g.logger.Error("failed to change Stripe subscription plan",
			zap.String("subscription_id", subscriptionID),
			zap.String("plan_code", string(plan)),
			zap.Error(err))
		return fmt.Errorf("stripe: update subscription: %w", err)
	}

	g.logger.Info("changed Stripe subscription plan",
		zap.String("subscription_id", subscriptionID),
		zap.String("plan_code", string(plan)))
	return nil
}

// CreateCheckoutSession opens a hosted Checkout page for the plan's price and
// returns its URL
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID string, plan billing.PlanCode) (string, error) {
	if g.config.CheckoutSuccessURL == "" || g.config.CheckoutCancelURL == "" {
		return "", fmt.Errorf("stripe: checkout redirect URLs are not configured")
	}
	priceID, err := g.config.PriceID(plan)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(g.config.CheckoutSuccessURL),
		CancelURL:  stripe.String(g.config.CheckoutCancelURL),
		Metadata: map[string]string{
			"plan_code": string(plan),
		},
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		g.logger.Error("failed to create Stripe checkout session",
			zap.String("customer_id", customerID),
			zap.String("plan_code", string(plan)),
			zap.Error(err))
		return "", fmt.Errorf("stripe: create checkout session: %w", err)
	}

	g.logger.Info("created Stripe checkout session",
		zap.String("customer_id", customerID),
		zap.String("session_id", sess.ID))
	return sess.URL, nil
}

// CreatePortalSession opens a billing portal session so the customer can
// manage payment methods and invoices, and returns its URL
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	if g.config.PortalReturnURL == "" {
		return "", fmt.Errorf("stripe: portal return URL is not configured")
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.config.PortalReturnURL),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		g.logger.Error("failed to create Stripe portal session",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return "", fmt.Errorf("stripe: create portal session: %w", err)
	}

	g.logger.Info("created Stripe portal session",
		zap.String("customer_id", customerID))
	return sess.URL, nil
}

// CancelSubscription cancels at the end of the current billing period so the
// organization keeps access it already paid for
func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		g.logger.Error("failed to cancel Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return fmt.Errorf("stripe: cancel subscription: %w", err)
	}

	g.logger.Info("Stripe subscription set to cancel at period end",
		zap.String("subscription_id", subscriptionID))
	return nil
}
