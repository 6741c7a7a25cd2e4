package controllers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/keystore"
	"gorm.io/gorm"
)

// AdminKeyController manages gateway credentials. Keys are deactivated, not
// deleted, so the audit history stays intact.
type AdminKeyController struct {
	keys     repository.GatewayKeyRepository
	validate *validator.Validate
}

func NewAdminKeyController(keys repository.GatewayKeyRepository) *AdminKeyController {
	return &AdminKeyController{
		keys:     keys,
		validate: validator.New(),
	}
}

type upsertKeyRequest struct {
	Label       string `json:"label" validate:"required,min=2"`
	Secret      string `json:"secret" validate:"required"`
	Environment string `json:"environment" validate:"required,oneof=sandbox production"`
	Active      *bool  `json:"active"`
	Priority    *int   `json:"priority"`
}

// HandleListKeys returns all keys with masked secrets and validation state.
func (ctl *AdminKeyController) HandleListKeys(c *fiber.Ctx) error {
	keys, err := ctl.keys.List()
	if err != nil {
		log.Printf("admin: key list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not list keys"})
	}

	out := make([]fiber.Map, 0, len(keys))
	for i := range keys {
		k := &keys[i]
		check := keystore.Validate(keystore.Sanitize(k.Secret))
		out = append(out, fiber.Map{
			"id":          k.ID,
			"label":       k.Label,
			"environment": k.Environment,
			"active":      k.Active,
			"priority":    k.Priority,
			"secret":      k.MaskedSecret(),
			"valid":       check.Valid,
			"reason":      check.Reason,
			"created_at":  k.CreatedAt,
			"updated_at":  k.UpdatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"keys": out})
}

// HandleCreateKey stores a new credential. The secret is sanitized before
// persisting; validation is advisory here so operators can stage keys.
func (ctl *AdminKeyController) HandleCreateKey(c *fiber.Ctx) error {
	var req upsertKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := ctl.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	key := &models.GatewayKey{
		Label:       req.Label,
		Secret:      keystore.Sanitize(req.Secret),
		Environment: req.Environment,
		Active:      true,
		Priority:    100,
	}
	if req.Active != nil {
		key.Active = *req.Active
	}
	if req.Priority != nil {
		key.Priority = *req.Priority
	}

	if err := ctl.keys.Create(key); err != nil {
		log.Printf("admin: key create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not create key"})
	}

	check := keystore.Validate(key.Secret)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     key.ID,
		"valid":  check.Valid,
		"reason": check.Reason,
	})
}

// HandleUpdateKey edits label, secret, environment, active flag or priority.
func (ctl *AdminKeyController) HandleUpdateKey(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid key id"})
	}

	key, err := ctl.keys.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Key not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Key lookup failed"})
	}

	var req upsertKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := ctl.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	key.Label = req.Label
	key.Secret = keystore.Sanitize(req.Secret)
	key.Environment = req.Environment
	if req.Active != nil {
		key.Active = *req.Active
	}
	if req.Priority != nil {
		key.Priority = *req.Priority
	}

	if err := ctl.keys.Update(key); err != nil {
		log.Printf("admin: key update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not update key"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleDeactivateKey takes a key out of routing without deleting it.
func (ctl *AdminKeyController) HandleDeactivateKey(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid key id"})
	}

	if err := ctl.keys.Deactivate(uint(id)); err != nil {
		log.Printf("admin: key deactivate failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not deactivate key"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
