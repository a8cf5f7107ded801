package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeReconciler struct {
	n        int
	err      error
	deadline bool
}

func (f *fakeReconciler) ReconcileAll(ctx context.Context) (int, error) {
	_, f.deadline = ctx.Deadline()
	return f.n, f.err
}

func TestReconcileCounters(t *testing.T) {
	r := &fakeReconciler{n: 3}
	assert.NoError(t, ReconcileCounters(context.Background(), r, time.Minute))
	assert.True(t, r.deadline)
}

func TestReconcileCounters_NoTimeout(t *testing.T) {
	r := &fakeReconciler{}
	assert.NoError(t, ReconcileCounters(context.Background(), r, 0))
	assert.False(t, r.deadline)
}

func TestReconcileCounters_Error(t *testing.T) {
	boom := errors.New("db down")
	err := ReconcileCounters(context.Background(), &fakeReconciler{err: boom}, time.Minute)
	assert.ErrorIs(t, err, boom)
}
