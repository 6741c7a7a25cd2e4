package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pagflow/pagflow/app/models"
)

func TestTransitionByGatewayPaymentIDConfirmsPendingOrder(t *testing.T) {
	order := pendingOrder(1)
	order.GatewayPaymentID = "pay_1"
	orders := newFakeOrderRepo(order)
	payments := &fakePaymentRepo{payments: []*models.Payment{{OrderID: 1, GatewayPaymentID: "pay_1", Status: models.OrderStatusPending}}}

	svc := NewStatusService(orders, payments)
	changed, err := svc.TransitionByGatewayPaymentID("pay_1", models.OrderStatusConfirmed, "webhook")
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := orders.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)

	// The payment record follows the order.
	payment, err := payments.GetByGatewayPaymentID("pay_1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, payment.Status)
}

func TestTransitionRejectsConfirmedBackToPending(t *testing.T) {
	order := pendingOrder(1)
	order.Status = models.OrderStatusConfirmed
	order.GatewayPaymentID = "pay_1"
	orders := newFakeOrderRepo(order)

	svc := NewStatusService(orders, &fakePaymentRepo{})
	changed, err := svc.TransitionByGatewayPaymentID("pay_1", models.OrderStatusPending, "webhook")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, changed)

	got, _ := orders.GetByID(1)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	order := pendingOrder(1)
	order.GatewayPaymentID = "pay_1"
	orders := newFakeOrderRepo(order)

	svc := NewStatusService(orders, &fakePaymentRepo{})
	changed, err := svc.TransitionByGatewayPaymentID("pay_1", models.OrderStatusPending, "watcher")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTransitionUnknownPaymentIDIsNotFound(t *testing.T) {
	svc := NewStatusService(newFakeOrderRepo(), &fakePaymentRepo{})
	_, err := svc.TransitionByGatewayPaymentID("pay_missing", models.OrderStatusConfirmed, "webhook")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestTransitionStaleGuardLosesSilently(t *testing.T) {
	order := pendingOrder(1)
	order.GatewayPaymentID = "pay_1"
	orders := newFakeOrderRepo(order)
	svc := NewStatusService(orders, &fakePaymentRepo{})

	// Another writer confirms between lookup and write: simulate by flipping
	// the stored status after the service captured the snapshot.
	snapshot, err := orders.GetByGatewayPaymentID("pay_1")
	require.NoError(t, err)
	_, err = orders.TransitionStatus(snapshot.ID, models.OrderStatusPending, models.OrderStatusCancelled)
	require.NoError(t, err)

	changed, err := svc.transition(snapshot, models.OrderStatusConfirmed, "webhook")
	require.NoError(t, err)
	assert.False(t, changed)

	got, _ := orders.GetByID(1)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
}

func TestTransitionOrderByID(t *testing.T) {
	orders := newFakeOrderRepo(pendingOrder(5))
	svc := NewStatusService(orders, &fakePaymentRepo{})

	changed, err := svc.TransitionOrder(5, models.OrderStatusCancelled, "admin")
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := orders.GetByID(5)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
}

func TestOverdueOrderCanStillConfirm(t *testing.T) {
	order := pendingOrder(1)
	order.Status = models.OrderStatusOverdue
	order.GatewayPaymentID = "pay_1"
	orders := newFakeOrderRepo(order)

	svc := NewStatusService(orders, &fakePaymentRepo{})
	changed, err := svc.TransitionByGatewayPaymentID("pay_1", models.OrderStatusConfirmed, "webhook")
	require.NoError(t, err)
	assert.True(t, changed)
}
