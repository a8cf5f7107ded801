package billing

import (
	"context"
	"fmt"
	"strings"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/models"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const DefaultUnlimitedPriceID = "price_unlimited"

type CustomerStatus int

const (
	CustomerActive CustomerStatus = iota
	CustomerDeleted
	CustomerMissing
)

// PaymentGateway is the outbound side of the payment processor.
type PaymentGateway interface {
	LookupCustomer(ctx context.Context, customerID string) (CustomerStatus, error)
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, userID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}

type StripeGateway struct {
	api        *client.API
	priceID    string
	successURL string
	cancelURL  string
	returnURL  string
}

func NewStripeGateway(secretKey, priceID, siteURL string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return newStripeGateway(api, priceID, siteURL)
}

func newStripeGateway(api *client.API, priceID, siteURL string) *StripeGateway {
	if priceID == "" {
		priceID = DefaultUnlimitedPriceID
	}
	site := strings.TrimRight(siteURL, "/")
	return &StripeGateway{
		api:        api,
		priceID:    priceID,
		successURL: site + "/dashboard?upgrade=success",
		cancelURL:  site + "/dashboard?canceled=true",
		returnURL:  site + "/dashboard/profile",
	}
}

func (g *StripeGateway) LookupCustomer(ctx context.Context, customerID string) (CustomerStatus, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	customer, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return CustomerMissing, nil
		}
		return 0, err
	}
	if customer.Deleted {
		return CustomerDeleted, nil
	}
	return CustomerActive, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(UserIDMetadataKey, userID)

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID, userID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata(UserIDMetadataKey, userID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.returnURL),
	}
	params.Context = ctx

	session, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

type CustomerStore interface {
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
}

// Sessions starts checkout and billing portal flows for a creator.
type Sessions struct {
	gateway   PaymentGateway
	customers CustomerStore
}

func NewSessions(gateway PaymentGateway, customers CustomerStore) *Sessions {
	return &Sessions{gateway: gateway, customers: customers}
}

// Checkout returns the hosted checkout URL for the unlimited plan.
func (s *Sessions) Checkout(ctx context.Context, profile *models.Profile) (string, error) {
	customerID, err := s.customer(ctx, profile, true)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, customerID, profile.ID)
	if err != nil {
		return "", &errors.ExternalServiceError{Service: "stripe", Err: err}
	}
	if url == "" {
		return "", &errors.ExternalServiceError{Service: "stripe", Err: fmt.Errorf("failed to create checkout session")}
	}
	return url, nil
}

// Portal returns the billing portal URL. Creators who never checked out have
// nothing to manage.
func (s *Sessions) Portal(ctx context.Context, profile *models.Profile) (string, error) {
	if profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		return "", errors.NewValidation("customer", "No Stripe customer found. Please contact support.")
	}

	customerID, err := s.customer(ctx, profile, false)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreatePortalSession(ctx, customerID)
	if err != nil {
		return "", &errors.ExternalServiceError{Service: "stripe", Err: err}
	}
	return url, nil
}

// customer resolves the processor customer for profile, creating one when the
// stored id is gone. A deleted customer is replaced only when replaceDeleted is set.
func (s *Sessions) customer(ctx context.Context, profile *models.Profile, replaceDeleted bool) (string, error) {
	if profile.StripeCustomerID != nil && *profile.StripeCustomerID != "" {
		id := *profile.StripeCustomerID
		status, err := s.gateway.LookupCustomer(ctx, id)
		if err != nil {
			return "", &errors.ExternalServiceError{Service: "stripe", Err: err}
		}
		switch {
		case status == CustomerActive:
			return id, nil
		case status == CustomerDeleted && !replaceDeleted:
			return "", errors.NewValidation("customer", "Stripe customer has been deleted. Please contact support.")
		}
		log.Info().Str("profile_id", profile.ID).Str("customer_id", id).Msg("stored customer unusable, creating a new one")
	}

	id, err := s.gateway.CreateCustomer(ctx, profile.Email, profile.ID)
	if err != nil {
		return "", &errors.ExternalServiceError{Service: "stripe", Err: err}
	}
	if err := s.customers.SetStripeCustomerID(ctx, profile.ID, id); err != nil {
		return "", fmt.Errorf("failed to store customer id: %w", err)
	}
	profile.StripeCustomerID = &id
	return id, nil
}
