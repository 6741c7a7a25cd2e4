package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/env"
	"github.com/pagflow/pagflow/internal/pkg/keystore"
)

// ConnectivityProbe reports reachability of one infrastructure dependency.
type ConnectivityProbe func() error

// DiagnosticController assembles the operational bundle: environment flags,
// masked key analysis, connectivity results and recent rows. Secrets never
// leave this endpoint unmasked.
type DiagnosticController struct {
	keys     repository.GatewayKeyRepository
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	events   repository.WebhookEventRepository
	probes   map[string]ConnectivityProbe
}

func NewDiagnosticController(
	keys repository.GatewayKeyRepository,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	events repository.WebhookEventRepository,
	probes map[string]ConnectivityProbe,
) *DiagnosticController {
	return &DiagnosticController{
		keys:     keys,
		orders:   orders,
		payments: payments,
		events:   events,
		probes:   probes,
	}
}

// HandleDiagnostics returns the full diagnostic bundle.
func (ctl *DiagnosticController) HandleDiagnostics(c *fiber.Ctx) error {
	environment := models.KeyEnvironmentSandbox
	if env.IsProduction() {
		environment = models.KeyEnvironmentProduction
	}

	bundle := fiber.Map{
		"environment": fiber.Map{
			"is_production":     env.IsProduction(),
			"active":            environment,
			"payment_provider":  env.GetEnv("PAYMENT_PROVIDER", models.GatewayAsaas),
			"validation_policy": string(keystore.PolicyFromEnv()),
			"use_temp_email":    env.GetBool("USE_TEMP_EMAIL", false),
		},
	}

	bundle["keys"] = ctl.keyAnalysis()
	bundle["connectivity"] = ctl.connectivity()
	bundle["recent"] = ctl.recentRows()

	return c.Status(fiber.StatusOK).JSON(bundle)
}

func (ctl *DiagnosticController) keyAnalysis() []fiber.Map {
	keys, err := ctl.keys.List()
	if err != nil {
		return []fiber.Map{{"error": err.Error()}}
	}

	analysis := make([]fiber.Map, 0, len(keys))
	for i := range keys {
		k := &keys[i]
		sanitized := keystore.Sanitize(k.Secret)
		check := keystore.Validate(sanitized)
		analysis = append(analysis, fiber.Map{
			"id":            k.ID,
			"label":         k.Label,
			"environment":   k.Environment,
			"active":        k.Active,
			"priority":      k.Priority,
			"secret":        k.MaskedSecret(),
			"length":        len(sanitized),
			"needs_rewrite": sanitized != k.Secret,
			"valid":         check.Valid,
			"reason":        check.Reason,
		})
	}
	return analysis
}

func (ctl *DiagnosticController) connectivity() fiber.Map {
	results := fiber.Map{}
	for name, probe := range ctl.probes {
		if probe == nil {
			continue
		}
		if err := probe(); err != nil {
			results[name] = fiber.Map{"ok": false, "error": err.Error()}
			continue
		}
		results[name] = fiber.Map{"ok": true}
	}
	return results
}

func (ctl *DiagnosticController) recentRows() fiber.Map {
	const limit = 5
	recent := fiber.Map{}

	if orders, err := ctl.orders.Recent(limit); err == nil {
		recent["orders"] = orders
	} else {
		recent["orders_error"] = err.Error()
	}
	if payments, err := ctl.payments.Recent(limit); err == nil {
		recent["payments"] = payments
	} else {
		recent["payments_error"] = err.Error()
	}
	if events, err := ctl.events.Recent(limit); err == nil {
		recent["webhook_events"] = events
	} else {
		recent["webhook_events_error"] = err.Error()
	}
	return recent
}
