package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/audit"
	"filedrop/internal/platform/database/dbtest"
	"filedrop/internal/platform/models"
	"filedrop/internal/platform/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

type fixture struct {
	handler  *Handler
	profiles *repositories.ProfileRepository
	audit    *audit.Logger
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.New(t)
	f := &fixture{
		profiles: repositories.NewProfileRepository(db),
		audit:    audit.NewLogger(db),
	}
	f.handler = NewHandler(NewStripeVerifier(testSecret), f.profiles, f.audit, nil)
	return f
}

func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func eventJSON(id, eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2020-08-27",
		"type": %q,
		"data": {"object": %s}
	}`, id, eventType, object))
}

func (f *fixture) profile(t *testing.T, id string) *models.Profile {
	p, err := f.profiles.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func TestHandleWebhook_CheckoutCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.EnsureExists(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)

	payload := eventJSON("evt_checkout", EventCheckoutCompleted, `{
		"id": "cs_test_1",
		"object": "checkout.session",
		"customer": "cus_1",
		"subscription": "sub_1",
		"metadata": {"supabase_user_id": "user-1"}
	}`)
	require.NoError(t, f.handler.HandleWebhook(ctx, payload, sign(payload, testSecret)))

	p := f.profile(t, "user-1")
	assert.Equal(t, models.TierUnlimited, p.SubscriptionTier)
	assert.Equal(t, "sub_1", *p.StripeSubscriptionID)
	assert.Equal(t, "cus_1", *p.StripeCustomerID)

	event, err := f.audit.Get(ctx, "evt_checkout")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.NotNil(t, event.ProcessedAt)
	assert.Nil(t, event.Error)
}

func TestHandleWebhook_SubscriptionUpdated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.EnsureExists(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)
	_, err = f.profiles.ActivateSubscription(ctx, "user-1", "sub_1", "cus_1")
	require.NoError(t, err)

	tests := []struct {
		status string
		want   models.Tier
	}{
		{"past_due", models.TierBasic},
		{"active", models.TierUnlimited},
		{"canceled", models.TierBasic},
	}

	for i, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			payload := eventJSON(fmt.Sprintf("evt_upd_%d", i), EventSubscriptionUpdated, fmt.Sprintf(`{
				"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": %q
			}`, tt.status))
			require.NoError(t, f.handler.HandleWebhook(ctx, payload, sign(payload, testSecret)))
			assert.Equal(t, tt.want, f.profile(t, "user-1").SubscriptionTier)
		})
	}
}

func TestHandleWebhook_SubscriptionDeletedTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.EnsureExists(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)
	_, err = f.profiles.ActivateSubscription(ctx, "user-1", "sub_1", "cus_1")
	require.NoError(t, err)

	payload := eventJSON("evt_del", EventSubscriptionDeleted, `{
		"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "canceled"
	}`)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.handler.HandleWebhook(ctx, payload, sign(payload, testSecret)))

		p := f.profile(t, "user-1")
		assert.Equal(t, models.TierBasic, p.SubscriptionTier)
		assert.Nil(t, p.StripeSubscriptionID)
		assert.Equal(t, "cus_1", *p.StripeCustomerID)
	}

	event, err := f.audit.Get(ctx, "evt_del")
	require.NoError(t, err)
	assert.Equal(t, 2, event.Deliveries)
}

func TestHandleWebhook_UnknownCustomerIgnored(t *testing.T) {
	f := newFixture(t)
	payload := eventJSON("evt_unknown", EventSubscriptionDeleted, `{
		"id": "sub_9", "object": "subscription", "customer": "cus_nobody", "status": "canceled"
	}`)

	assert.NoError(t, f.handler.HandleWebhook(context.Background(), payload, sign(payload, testSecret)))
}

func TestHandleWebhook_UnrecognisedTypeIgnored(t *testing.T) {
	f := newFixture(t)
	payload := eventJSON("evt_invoice", "invoice.paid", `{"id": "in_1", "object": "invoice"}`)

	assert.NoError(t, f.handler.HandleWebhook(context.Background(), payload, sign(payload, testSecret)))
}

func TestHandleWebhook_SignatureFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.EnsureExists(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)
	_, err = f.profiles.ActivateSubscription(ctx, "user-1", "sub_1", "cus_1")
	require.NoError(t, err)

	payload := eventJSON("evt_forged", EventSubscriptionDeleted, `{
		"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "canceled"
	}`)

	tests := []struct {
		name      string
		signature string
		missing   bool
		message   string
	}{
		{"missing", "", true, "No signature"},
		{"wrong secret", sign(payload, "whsec_other"), false, "Invalid signature"},
		{"garbage", "t=1,v1=deadbeef", false, "Invalid signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.handler.HandleWebhook(ctx, payload, tt.signature)
			var sigErr *errors.InvalidSignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Equal(t, tt.missing, sigErr.Missing)
			assert.Equal(t, tt.message, sigErr.Error())
		})
	}

	p := f.profile(t, "user-1")
	assert.Equal(t, models.TierUnlimited, p.SubscriptionTier)

	event, err := f.audit.Get(ctx, "evt_forged")
	require.NoError(t, err)
	assert.Nil(t, event)
}
