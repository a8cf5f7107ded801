package billing

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// UserIDMetadataKey carries the identity-provider user id on processor objects.
const UserIDMetadataKey = "supabase_user_id"

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is the part of a processor event the tier transitions need.
type Event struct {
	ID                 string
	Type               string
	CustomerID         string
	SubscriptionID     string
	SubscriptionStatus string
	UserID             string
}

// EventVerifier authenticates a webhook body and decodes it.
type EventVerifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Verify(payload []byte, signature string) (*Event, error) {
	raw, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeEvent(raw)
}

func decodeEvent(raw stripe.Event) (*Event, error) {
	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if raw.Data == nil {
		return event, nil
	}

	switch event.Type {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		if session.Customer != nil {
			event.CustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			event.SubscriptionID = session.Subscription.ID
		}
		event.UserID = session.Metadata[UserIDMetadataKey]

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		if sub.Customer != nil {
			event.CustomerID = sub.Customer.ID
		}
		event.SubscriptionID = sub.ID
		event.SubscriptionStatus = string(sub.Status)
		event.UserID = sub.Metadata[UserIDMetadataKey]
	}

	return event, nil
}
