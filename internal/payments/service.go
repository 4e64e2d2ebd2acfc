package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/agentdeck/agentdeck-backend/pkg/config"
	"github.com/agentdeck/agentdeck-backend/pkg/db/models"
	pkgerrors "github.com/agentdeck/agentdeck-backend/pkg/errors"
)

// PurchaseReason is the audit reason recorded when a webhook credits a
// completed checkout. The reconciler's keyword classifier depends on it
// containing a purchase keyword.
const PurchaseReason = "Credit purchase via Stripe checkout"

const centsPerDollar = 100

type tenantDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	AttachStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Tenants    tenantDirectory
	Stripe     StripeCheckoutClient
	Billing    config.BillingConfig
	SuccessURL string
	CancelURL  string
}

// Service starts checkout sessions for credit purchases. Crediting happens in
// the webhook handler once Stripe confirms payment.
type Service struct {
	tenants    tenantDirectory
	stripe     StripeCheckoutClient
	billing    config.BillingConfig
	successURL string
	cancelURL  string
}

// NewService builds a payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tenants == nil {
		return nil, errors.New("tenant directory is required")
	}
	if params.Stripe == nil {
		return nil, errors.New("stripe client is required")
	}
	return &Service{
		tenants:    params.Tenants,
		stripe:     params.Stripe,
		billing:    params.Billing,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
	}, nil
}

// StartCheckout creates a Stripe checkout session for one of the fixed
// dollar denominations and returns the redirect URL. The tenant's Stripe
// customer is created lazily on first checkout.
func (s *Service) StartCheckout(ctx context.Context, tenantID uuid.UUID, amountUSD int64) (string, error) {
	if tenantID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if !s.billing.AllowsCheckoutAmount(amountUSD) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Invalid amount")
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, tenant)
	if err != nil {
		return "", err
	}

	creditCents := amountUSD * centsPerDollar
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("AgentDeck credits ($%d)", amountUSD)),
					},
					UnitAmount: stripe.Int64(creditCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if s.successURL != "" {
		params.SuccessURL = stripe.String(s.successURL)
	}
	if s.cancelURL != "" {
		params.CancelURL = stripe.String(s.cancelURL)
	}
	params.AddMetadata("tenant_id", tenant.ID.String())
	params.AddMetadata("credit_cents", fmt.Sprintf("%d", creditCents))

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

func (s *Service) ensureCustomer(ctx context.Context, tenant *models.Tenant) (string, error) {
	if tenant.StripeCustomerID != nil && *tenant.StripeCustomerID != "" {
		return *tenant.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Name: stripe.String(tenant.Name),
	}
	params.AddMetadata("tenant_id", tenant.ID.String())

	created, err := s.stripe.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}
	if err := s.tenants.AttachStripeCustomer(ctx, tenant.ID, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}
