package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/internal/pkg/orchestrator"
	"github.com/pagflow/pagflow/internal/pkg/watcher"
)

func newStatusApp(orders *fakeOrderRepo, payments *fakePaymentRepo, fetch watcher.StatusFetcher, cache StatusCache) *fiber.App {
	app := fiber.New()
	svc := orchestrator.NewStatusService(orders, payments)
	ctl := NewStatusController(orders, payments, svc, fetch, cache)
	app.Get("/api/payments/status", ctl.HandleGetStatus)
	return app
}

func getStatus(t *testing.T, app *fiber.App, paymentID string) (int, map[string]interface{}) {
	t.Helper()
	url := "/api/payments/status"
	if paymentID != "" {
		url += "?paymentId=" + paymentID
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestStatusMissingPaymentIDAlwaysHTTP200(t *testing.T) {
	app := newStatusApp(newFakeOrderRepo(), &fakePaymentRepo{}, nil, nil)

	code, body := getStatus(t, app, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderStatusPending, body["status"])
	assert.Equal(t, "error", body["source"])
	assert.NotEmpty(t, body["error"])
}

func TestStatusTerminalOrderAnsweredFromDatabase(t *testing.T) {
	order := &models.Order{ID: 1, Status: models.OrderStatusConfirmed, GatewayPaymentID: "pay_1"}
	fetchCalled := false
	fetch := func(context.Context, string) (string, error) {
		fetchCalled = true
		return "", nil
	}
	app := newStatusApp(newFakeOrderRepo(order), &fakePaymentRepo{}, fetch, nil)

	code, body := getStatus(t, app, "pay_1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderStatusConfirmed, body["status"])
	assert.Equal(t, "database", body["source"])
	assert.NotEmpty(t, body["updatedAt"])
	// A terminal row never triggers a gateway call.
	assert.False(t, fetchCalled)
}

func TestStatusGatewayFailureIsHTTP200PendingWithErrorSource(t *testing.T) {
	order := &models.Order{ID: 1, Status: models.OrderStatusPending, GatewayPaymentID: "pay_1"}
	fetch := func(context.Context, string) (string, error) {
		return "", errors.New("connect timeout")
	}
	app := newStatusApp(newFakeOrderRepo(order), &fakePaymentRepo{}, fetch, nil)

	code, body := getStatus(t, app, "pay_1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderStatusPending, body["status"])
	assert.Equal(t, "error", body["source"])
	assert.NotEmpty(t, body["error"])
}

func TestStatusGatewayAnswerConfirmsOrder(t *testing.T) {
	order := &models.Order{ID: 1, Status: models.OrderStatusPending, GatewayPaymentID: "pay_1"}
	orders := newFakeOrderRepo(order)
	payments := &fakePaymentRepo{payments: []*models.Payment{{OrderID: 1, GatewayPaymentID: "pay_1", Status: models.OrderStatusPending}}}
	fetch := func(context.Context, string) (string, error) {
		return models.OrderStatusConfirmed, nil
	}
	app := newStatusApp(orders, payments, fetch, nil)

	code, body := getStatus(t, app, "pay_1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderStatusConfirmed, body["status"])
	assert.Equal(t, "api", body["source"])

	got, err := orders.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
}

func TestStatusCacheAbsorbsRepeatPolls(t *testing.T) {
	order := &models.Order{ID: 1, Status: models.OrderStatusPending, GatewayPaymentID: "pay_1"}
	cache := newMapCache()
	fetchCalls := 0
	fetch := func(context.Context, string) (string, error) {
		fetchCalls++
		return models.OrderStatusPending, nil
	}
	app := newStatusApp(newFakeOrderRepo(order), &fakePaymentRepo{}, fetch, cache)

	_, first := getStatus(t, app, "pay_1")
	assert.Equal(t, "api", first["source"])
	_, second := getStatus(t, app, "pay_1")
	assert.Equal(t, "api", second["source"])

	// The second poll is served from the cache.
	assert.Equal(t, 1, fetchCalls)
}

func TestStatusUnknownPaymentStillQueriesGateway(t *testing.T) {
	fetch := func(context.Context, string) (string, error) {
		return models.OrderStatusPending, nil
	}
	app := newStatusApp(newFakeOrderRepo(), &fakePaymentRepo{}, fetch, nil)

	code, body := getStatus(t, app, "pay_unknown")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.OrderStatusPending, body["status"])
	assert.Equal(t, "api", body["source"])
}
