package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditGateAllow(t *testing.T) {
	t.Run("first contact creates the account", func(t *testing.T) {
		gate := NewCreditGate(newFakeAccounts(20), 1)
		allowed, user, err := gate.Allow(context.Background(), "user-1", "en")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 20, user.Credits)
	})

	t.Run("empty balance refuses", func(t *testing.T) {
		gate := NewCreditGate(newFakeAccounts(0), 1)
		allowed, _, err := gate.Allow(context.Background(), "user-1", "en")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		accounts := newFakeAccounts(20)
		accounts.err = errBoom
		gate := NewCreditGate(accounts, 1)
		_, _, err := gate.Allow(context.Background(), "user-1", "en")
		assert.Error(t, err)
	})
}

func TestCreditGateConsumeFloorsAtZero(t *testing.T) {
	accounts := newFakeAccounts(1)
	gate := NewCreditGate(accounts, 5)
	_, _, err := gate.Allow(context.Background(), "user-1", "en")
	require.NoError(t, err)

	balance, err := gate.Consume(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	balance, err = gate.Consume(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestCreditGateTopUpIdempotent(t *testing.T) {
	accounts := newFakeAccounts(0)
	gate := NewCreditGate(accounts, 1)
	_, _, err := gate.Allow(context.Background(), "user-1", "en")
	require.NoError(t, err)

	balance, err := gate.TopUp(context.Background(), "user-1", 500, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, 500, balance)

	// Replaying the same payment id must not double-credit.
	balance, err = gate.TopUp(context.Background(), "user-1", 500, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, 500, balance)

	allowed, _, err := gate.Allow(context.Background(), "user-1", "en")
	require.NoError(t, err)
	assert.True(t, allowed)
}
