package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalOrderStatus(t *testing.T) {
	assert.False(t, IsTerminalOrderStatus(OrderStatusPending))
	assert.True(t, IsTerminalOrderStatus(OrderStatusConfirmed))
	assert.True(t, IsTerminalOrderStatus(OrderStatusCancelled))
	assert.True(t, IsTerminalOrderStatus(OrderStatusRefunded))
	assert.True(t, IsTerminalOrderStatus(OrderStatusOverdue))
	assert.False(t, IsTerminalOrderStatus("SOMETHING_ELSE"))
}

func TestCanTransitionOrderStatus(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusRefunded, true},
		{OrderStatusPending, OrderStatusOverdue, true},

		{OrderStatusConfirmed, OrderStatusRefunded, true},
		{OrderStatusConfirmed, OrderStatusPending, false},
		{OrderStatusConfirmed, OrderStatusCancelled, false},
		{OrderStatusConfirmed, OrderStatusOverdue, false},

		// Late PIX settlement after the due date.
		{OrderStatusOverdue, OrderStatusConfirmed, true},
		{OrderStatusOverdue, OrderStatusPending, false},
		{OrderStatusOverdue, OrderStatusRefunded, false},

		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusRefunded, OrderStatusConfirmed, false},
		{OrderStatusRefunded, OrderStatusPending, false},

		// Self transitions are never a change.
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusConfirmed, OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionOrderStatus(tt.from, tt.to))
		})
	}
}

func TestMaskedSecret(t *testing.T) {
	key := GatewayKey{Secret: "$aact_YTU5YTRlNTYtZjc1Zi00ODg2"}
	masked := key.MaskedSecret()
	assert.Equal(t, "$aact_YTU5...ODg2", masked)
	assert.NotContains(t, masked, "YTRlNTYt")

	short := GatewayKey{Secret: "abc"}
	assert.Equal(t, "***", short.MaskedSecret())
}

func TestHashSecretIsStableHex(t *testing.T) {
	a := HashSecret("admin-key")
	b := HashSecret("admin-key")
	c := HashSecret("other-key")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
