package audit

import (
	"context"
	"errors"
	"testing"

	"filedrop/internal/platform/database/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_CountsDeliveries(t *testing.T) {
	l := NewLogger(dbtest.New(t))
	ctx := context.Background()

	n, err := l.Received(ctx, "evt_1", "customer.subscription.deleted", "cus_1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = l.Received(ctx, "evt_1", "customer.subscription.deleted", "cus_1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	event, err := l.Get(ctx, "evt_1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "customer.subscription.deleted", event.EventType)
	assert.Equal(t, "cus_1", *event.CustomerID)
	assert.Nil(t, event.ProcessedAt)
}

func TestLogger_Processed(t *testing.T) {
	l := NewLogger(dbtest.New(t))
	ctx := context.Background()

	_, err := l.Received(ctx, "evt_ok", "checkout.session.completed", "")
	require.NoError(t, err)
	_, err = l.Received(ctx, "evt_bad", "checkout.session.completed", "")
	require.NoError(t, err)

	l.Processed(ctx, "evt_ok", nil)
	l.Processed(ctx, "evt_bad", errors.New("db down"))

	ok, err := l.Get(ctx, "evt_ok")
	require.NoError(t, err)
	assert.NotNil(t, ok.ProcessedAt)
	assert.Nil(t, ok.Error)
	assert.Nil(t, ok.CustomerID)

	bad, err := l.Get(ctx, "evt_bad")
	require.NoError(t, err)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "db down", *bad.Error)

	missing, err := l.Get(ctx, "evt_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
