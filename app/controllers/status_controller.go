package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/orchestrator"
	"github.com/pagflow/pagflow/internal/pkg/watcher"
	"gorm.io/gorm"
)

// statusCacheTTL keeps gateway answers around long enough to absorb a burst
// of UI polls without hammering the provider.
const statusCacheTTL = 10 * time.Second

// StatusCache is the optional short-lived cache in front of gateway lookups.
type StatusCache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, ttl time.Duration) error
}

// StatusController answers the polling endpoint. It always returns HTTP 200:
// the polling UI treats transport-level failures as fatal, so upstream
// trouble is reported in the body with source="error" instead.
type StatusController struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	status   *orchestrator.StatusService
	fetch    watcher.StatusFetcher
	cache    StatusCache
}

func NewStatusController(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	status *orchestrator.StatusService,
	fetch watcher.StatusFetcher,
	cache StatusCache,
) *StatusController {
	return &StatusController{
		orders:   orders,
		payments: payments,
		status:   status,
		fetch:    fetch,
		cache:    cache,
	}
}

// HandleGetStatus resolves the current status for a gateway payment id,
// preferring the database, then the gateway API.
func (ctl *StatusController) HandleGetStatus(c *fiber.Ctx) error {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": models.OrderStatusPending,
			"error":  "paymentId is required",
			"source": "error",
		})
	}

	order, err := ctl.orders.GetByGatewayPaymentID(paymentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("status: order lookup for %s failed: %v", paymentID, err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": models.OrderStatusPending,
			"error":  "status lookup failed",
			"source": "error",
		})
	}

	if order != nil && models.IsTerminalOrderStatus(order.Status) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    order.Status,
			"updatedAt": order.UpdatedAt.UTC().Format(time.RFC3339),
			"source":    "database",
		})
	}

	if cached := ctl.cachedStatus(paymentID); cached != "" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": cached,
			"source": "api",
		})
	}

	status, err := ctl.fetch(context.Background(), paymentID)
	if err != nil {
		log.Printf("status: gateway lookup for %s failed: %v", paymentID, err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": models.OrderStatusPending,
			"error":  "gateway status check failed",
			"source": "error",
		})
	}

	ctl.storeStatus(paymentID, status)
	if order != nil && models.IsTerminalOrderStatus(status) {
		if _, err := ctl.status.TransitionByGatewayPaymentID(paymentID, status, "status-endpoint"); err != nil {
			log.Printf("status: transition for %s to %s failed: %v", paymentID, status, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": status,
		"source": "api",
	})
}

func (ctl *StatusController) cachedStatus(paymentID string) string {
	if ctl.cache == nil {
		return ""
	}
	cached, err := ctl.cache.Get("status:" + paymentID)
	if err != nil {
		return ""
	}
	return cached
}

func (ctl *StatusController) storeStatus(paymentID, status string) {
	if ctl.cache == nil {
		return
	}
	if err := ctl.cache.Set("status:"+paymentID, status, statusCacheTTL); err != nil {
		log.Printf("status: cache write for %s failed: %v", paymentID, err)
	}
}
