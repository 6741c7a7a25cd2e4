package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/gateway"
	"github.com/pagflow/pagflow/internal/pkg/orchestrator"
	"gorm.io/gorm"
)

// WebhookController receives gateway push notifications and is the only
// inbound path that mutates order status besides the watcher.
type WebhookController struct {
	events   repository.WebhookEventRepository
	status   *orchestrator.StatusService
	provider string
	secret   string
}

func NewWebhookController(
	events repository.WebhookEventRepository,
	status *orchestrator.StatusService,
	provider, secret string,
) *WebhookController {
	return &WebhookController{
		events:   events,
		status:   status,
		provider: provider,
		secret:   secret,
	}
}

type webhookPayload struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
}

// HandlePaymentWebhook acknowledges fast and never retry-storms the sender:
// 400 only for unparseable bodies, 200 for parseable-but-irrelevant events.
func (ctl *WebhookController) HandlePaymentWebhook(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method_not_allowed"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	signature := firstHeaderValue(c, "X-Webhook-Signature", "X-Signature", "Asaas-Access-Token")
	signatureValid := gateway.VerifyWebhookSignature(rawBody, signature, ctl.secret)

	eventID := strings.TrimSpace(payload.ID)
	if eventID == "" {
		sum := sha256.Sum256(rawBody)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := ctl.events.CreateIfNotExists(&models.WebhookEvent{
		Provider:         ctl.provider,
		ProviderEventID:  eventID,
		EventType:        strings.TrimSpace(payload.Event),
		GatewayPaymentID: payload.Payment.ID,
		Status:           payload.Payment.Status,
		PayloadJSON:      string(rawBody),
		SignatureValid:   signatureValid,
	})
	if err != nil {
		log.Printf("webhook: event persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		ctl.markProcessed(stored.ID, "invalid webhook signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if !isPaymentEvent(payload.Event) || payload.Payment.ID == "" {
		ctl.markProcessed(stored.ID, "")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	newStatus := gateway.NormalizeStatus(payload.Payment.Status)
	changed, err := ctl.status.TransitionByGatewayPaymentID(payload.Payment.ID, newStatus, "webhook")
	switch {
	case err == nil:
		ctl.markProcessed(stored.ID, "")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "changed": changed})
	case errors.Is(err, gorm.ErrRecordNotFound):
		ctl.markProcessed(stored.ID, "no order for gateway payment id")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	case errors.Is(err, orchestrator.ErrInvalidTransition):
		// Acknowledge stale notifications; the terminal status stands.
		ctl.markProcessed(stored.ID, err.Error())
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	default:
		ctl.markProcessed(stored.ID, err.Error())
		log.Printf("webhook: status update for %s failed: %v", payload.Payment.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_update_failed"})
	}
}

func (ctl *WebhookController) markProcessed(eventID uint, processingError string) {
	if err := ctl.events.MarkProcessed(eventID, processingError); err != nil {
		log.Printf("webhook: mark processed for event %d failed: %v", eventID, err)
	}
}

type simulateWebhookRequest struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

// HandleSimulateWebhook lets operators replay a status notification without
// the real gateway. It writes the same audit log row a real delivery would
// and goes through the same guarded transition.
func (ctl *WebhookController) HandleSimulateWebhook(c *fiber.Ctx) error {
	var req simulateWebhookRequest
	if err := c.BodyParser(&req); err != nil || req.PaymentID == "" || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "paymentId and status are required"})
	}

	newStatus := gateway.NormalizeStatus(req.Status)
	payload, _ := json.Marshal(fiber.Map{
		"event":   "PAYMENT_" + newStatus,
		"payment": fiber.Map{"id": req.PaymentID, "status": newStatus},
	})

	_, stored, err := ctl.events.CreateIfNotExists(&models.WebhookEvent{
		Provider:         "simulator",
		ProviderEventID:  "sim:" + req.PaymentID + ":" + newStatus,
		EventType:        "PAYMENT_" + newStatus,
		GatewayPaymentID: req.PaymentID,
		Status:           newStatus,
		PayloadJSON:      string(payload),
		SignatureValid:   true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	changed, err := ctl.status.TransitionByGatewayPaymentID(req.PaymentID, newStatus, "simulator")
	if err != nil {
		ctl.markProcessed(stored.ID, err.Error())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No order for this payment id"})
		}
		if errors.Is(err, orchestrator.ErrInvalidTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invalid_transition", "message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_update_failed"})
	}
	ctl.markProcessed(stored.ID, "")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "changed": changed, "status": newStatus})
}

func isPaymentEvent(eventType string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(eventType)), "PAYMENT_")
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Get(k)); v != "" {
			return v
		}
	}
	return ""
}
