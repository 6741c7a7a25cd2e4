package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/internal/pkg/apperrors"
	"github.com/pagflow/pagflow/internal/pkg/gateway"
	"github.com/pagflow/pagflow/internal/pkg/keystore"
	"github.com/pagflow/pagflow/internal/pkg/orchestrator"
	"github.com/pagflow/pagflow/internal/pkg/watcher"
	"github.com/shopspring/decimal"
)

// PaymentController drives the orchestration for a checkout attempt and
// starts status watching for the resulting charge.
type PaymentController struct {
	orch     *orchestrator.Orchestrator
	watches  *watcher.Manager
	validate *validator.Validate
}

func NewPaymentController(orch *orchestrator.Orchestrator, watches *watcher.Manager) *PaymentController {
	return &PaymentController{
		orch:     orch,
		watches:  watches,
		validate: validator.New(),
	}
}

type createPaymentRequest struct {
	Name        string            `json:"name" validate:"required,min=2"`
	CpfCnpj     string            `json:"cpfCnpj" validate:"required,min=11"`
	Email       string            `json:"email" validate:"required,email"`
	Phone       string            `json:"phone" validate:"omitempty,min=8"`
	OrderID     uint              `json:"orderId" validate:"required"`
	Value       json.Number       `json:"value" validate:"required"`
	Description string            `json:"description"`
	UTMs        map[string]string `json:"utms"`
}

// HandleCreatePayment runs the full orchestration and returns the normalized
// PIX payload. Raw gateway error bodies never reach the client; they stay in
// server-side logs and diagnostics.
func (ctl *PaymentController) HandleCreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := ctl.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	amount, err := decimal.NewFromString(req.Value.String())
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "value must be a positive amount"})
	}

	result, err := ctl.orch.Orchestrate(c.Context(), orchestrator.Input{
		OrderID: req.OrderID,
		Profile: gateway.CustomerProfile{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
			TaxID: req.CpfCnpj,
		},
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		return ctl.renderOrchestrationError(c, err)
	}

	if ctl.watches != nil {
		ctl.watches.Start(result.PaymentID)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"customer": result.CustomerID,
		"payment": fiber.Map{
			"id":     result.PaymentID,
			"status": result.Status,
		},
		"pixQrCode":      result.QRPayload,
		"paymentData":    result.CopyPasteKey,
		"qrCodeImage":    result.QRImageBase64,
		"qrCode":         result.QRPayload,
		"copyPasteKey":   result.CopyPasteKey,
		"expirationDate": formatTimePtr(result.ExpirationDate),
		"paymentId":      result.PaymentID,
		"gateway":        result.Gateway,
	})
}

func (ctl *PaymentController) renderOrchestrationError(c *fiber.Ctx, err error) error {
	log.Printf("payment: orchestration failed: %v", err)

	if errors.Is(err, keystore.ErrNoActiveKey) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "configuration_error",
			"message": "Payment processing is not configured for this environment",
		})
	}

	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperrors.KindValidation:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": ae.Message})
		case apperrors.KindConfiguration:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "configuration_error",
				"message": "Payment processing is not configured correctly",
			})
		case apperrors.KindGateway, apperrors.KindNetwork:
			return c.Status(ae.HTTPStatus()).JSON(fiber.Map{
				"error":   "gateway_error",
				"message": "The payment provider could not process this charge, please try again",
			})
		case apperrors.KindPersistence:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "persistence_error",
				"message": "The charge was created but could not be recorded, support has been notified",
			})
		}
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_server_error",
		"message": "Payment could not be processed",
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
