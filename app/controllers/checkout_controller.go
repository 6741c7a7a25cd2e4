package controllers

import (
	"encoding/json"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/shopspring/decimal"
)

// CheckoutController handles order intake after the identification step.
type CheckoutController struct {
	orders   repository.OrderRepository
	validate *validator.Validate
}

func NewCheckoutController(orders repository.OrderRepository) *CheckoutController {
	return &CheckoutController{
		orders:   orders,
		validate: validator.New(),
	}
}

type createOrderRequest struct {
	Name      string            `json:"name" validate:"required,min=2"`
	CpfCnpj   string            `json:"cpfCnpj" validate:"required,min=11"`
	Email     string            `json:"email" validate:"required,email"`
	Phone     string            `json:"phone" validate:"omitempty,min=8"`
	ProductID string            `json:"productId" validate:"required"`
	Value     json.Number       `json:"value" validate:"required"`
	BumpIDs   []string          `json:"bumps"`
	UTMs      map[string]string `json:"utms"`
}

// HandleCreateOrder creates a PENDING order for a checkout attempt.
func (ctl *CheckoutController) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
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

	order := &models.Order{
		CustomerName:  req.Name,
		CustomerEmail: req.Email,
		CustomerPhone: req.Phone,
		CustomerTaxID: req.CpfCnpj,
		ProductID:     req.ProductID,
		Amount:        amount,
		Status:        models.OrderStatusPending,
		PaymentMethod: "PIX",
	}
	if len(req.BumpIDs) > 0 {
		if raw, err := json.Marshal(req.BumpIDs); err == nil {
			order.BumpIDs = string(raw)
		}
	}
	if len(req.UTMs) > 0 {
		if raw, err := json.Marshal(req.UTMs); err == nil {
			order.UTMJson = string(raw)
		}
	}

	if err := ctl.orders.Create(order); err != nil {
		log.Printf("checkout: order create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not create order"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"orderId": order.ID,
		"status":  order.Status,
		"amount":  order.Amount,
	})
}
