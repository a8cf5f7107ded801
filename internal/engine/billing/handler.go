package billing

import (
	"context"
	"fmt"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/pkg/metrics"
	"filedrop/internal/platform/models"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
)

type ProfileStore interface {
	ActivateSubscription(ctx context.Context, userID, subscriptionID, customerID string) (bool, error)
	SetTierByCustomer(ctx context.Context, customerID string, tier models.Tier) (bool, error)
	CancelSubscriptionByCustomer(ctx context.Context, customerID string) (bool, error)
}

// AuditLog records webhook deliveries.
type AuditLog interface {
	Received(ctx context.Context, eventID, eventType, customerID string) (int, error)
	Processed(ctx context.Context, eventID string, procErr error)
}

// Handler applies processor lifecycle events to profile tiers. Every
// transition sets fields to computed values, so redelivery is harmless.
type Handler struct {
	verifier EventVerifier
	profiles ProfileStore
	audit    AuditLog
	metrics  *metrics.Metrics
}

func NewHandler(verifier EventVerifier, profiles ProfileStore, audit AuditLog, m *metrics.Metrics) *Handler {
	return &Handler{verifier: verifier, profiles: profiles, audit: audit, metrics: m}
}

func (h *Handler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		h.metrics.BillingEvent("unknown", "rejected")
		return &errors.InvalidSignatureError{Missing: true}
	}

	event, err := h.verifier.Verify(payload, signature)
	if err != nil {
		h.metrics.BillingEvent("unknown", "rejected")
		log.Warn().Err(err).Msg("webhook signature verification failed")
		return &errors.InvalidSignatureError{Err: err}
	}

	logger := log.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	if h.audit != nil {
		deliveries, err := h.audit.Received(ctx, event.ID, event.Type, event.CustomerID)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to record billing event")
		} else if deliveries > 1 {
			logger.Info().Int("deliveries", deliveries).Msg("duplicate delivery, re-applying")
		}
	}

	outcome, err := h.apply(ctx, event)
	if h.audit != nil {
		h.audit.Processed(ctx, event.ID, err)
	}
	h.metrics.BillingEvent(event.Type, outcome)

	if err != nil {
		logger.Error().Err(err).Msg("failed to apply billing event")
		return &errors.ExternalServiceError{Service: "database", Err: err}
	}

	logger.Info().Str("customer_id", event.CustomerID).Str("outcome", outcome).Msg("billing event handled")
	return nil
}

// apply runs the tier transition and reports "applied", "ignored" or "failed".
func (h *Handler) apply(ctx context.Context, event *Event) (string, error) {
	var (
		matched bool
		err     error
	)

	switch event.Type {
	case EventCheckoutCompleted:
		if event.UserID == "" || event.SubscriptionID == "" {
			log.Info().Str("event_id", event.ID).Msg("checkout without user or subscription, ignoring")
			return "ignored", nil
		}
		matched, err = h.profiles.ActivateSubscription(ctx, event.UserID, event.SubscriptionID, event.CustomerID)

	case EventSubscriptionUpdated:
		tier := models.TierBasic
		if event.SubscriptionStatus == string(stripe.SubscriptionStatusActive) {
			tier = models.TierUnlimited
		}
		matched, err = h.profiles.SetTierByCustomer(ctx, event.CustomerID, tier)

	case EventSubscriptionDeleted:
		matched, err = h.profiles.CancelSubscriptionByCustomer(ctx, event.CustomerID)

	default:
		return "ignored", nil
	}

	if err != nil {
		return "failed", fmt.Errorf("%s: %w", event.Type, err)
	}
	if !matched {
		log.Warn().
			Str("event_id", event.ID).
			Str("customer_id", event.CustomerID).
			Str("user_id", event.UserID).
			Msg("no profile for billing event, ignoring")
		return "ignored", nil
	}
	return "applied", nil
}
