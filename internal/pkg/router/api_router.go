package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/pagflow/pagflow/app/controllers"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/app/repository"
	"github.com/pagflow/pagflow/internal/pkg/cache"
	"github.com/pagflow/pagflow/internal/pkg/database"
	"github.com/pagflow/pagflow/internal/pkg/env"
	"github.com/pagflow/pagflow/internal/pkg/gateway"
	"github.com/pagflow/pagflow/internal/pkg/keystore"
	"github.com/pagflow/pagflow/internal/pkg/middleware"
	"github.com/pagflow/pagflow/internal/pkg/orchestrator"
	"github.com/pagflow/pagflow/internal/pkg/watcher"
)

// dependencies is the fully wired object graph behind the HTTP surface.
type dependencies struct {
	checkout   *controllers.CheckoutController
	payment    *controllers.PaymentController
	status     *controllers.StatusController
	webhook    *controllers.WebhookController
	adminKeys  *controllers.AdminKeyController
	diagnostic *controllers.DiagnosticController
	watches    *watcher.Manager
}

func buildDependencies() *dependencies {
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	selector := keystore.NewSelector(repos.GatewayKey)
	gw := selectGateway()
	policy := keystore.PolicyFromEnv()

	orch := orchestrator.New(gw, selector, repos.Order, repos.Payment, policy)
	statusService := orchestrator.NewStatusService(repos.Order, repos.Payment)

	// The watcher and the status endpoint share one gateway lookup path so
	// both answer from the same provider with the same credential.
	fetch := watcher.StatusFetcher(func(ctx context.Context, gatewayPaymentID string) (string, error) {
		credential, err := orch.ResolveCredential()
		if err != nil {
			return "", err
		}
		raw, err := orch.Gateway().PaymentStatus(ctx, credential, gatewayPaymentID)
		if err != nil {
			return "", err
		}
		return gateway.NormalizeStatus(raw), nil
	})

	watches := watcher.NewManager(watcher.New(fetch, statusService, cache.NewLockManager()))

	statusCache := &statusCacheAdapter{get: cache.Get, set: cache.Set}

	probes := map[string]controllers.ConnectivityProbe{
		"database": database.Ping,
		"cache":    cache.Ping,
		"gateway": func() error {
			// Credential resolution is the cheapest readiness signal that
			// does not create provider-side records.
			_, err := orch.ResolveCredential()
			return err
		},
	}

	return &dependencies{
		checkout: controllers.NewCheckoutController(repos.Order),
		payment:  controllers.NewPaymentController(orch, watches),
		status:   controllers.NewStatusController(repos.Order, repos.Payment, statusService, fetch, statusCache),
		webhook: controllers.NewWebhookController(
			repos.WebhookEvent,
			statusService,
			env.GetEnv("PAYMENT_PROVIDER", models.GatewayAsaas),
			env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
		),
		adminKeys:  controllers.NewAdminKeyController(repos.GatewayKey),
		diagnostic: controllers.NewDiagnosticController(repos.GatewayKey, repos.Order, repos.Payment, repos.WebhookEvent, probes),
		watches:    watches,
	}
}

// selectGateway picks the payment provider once at boot. Unknown values fall
// back to the primary provider rather than refusing to start.
func selectGateway() gateway.PaymentGateway {
	switch env.GetEnv("PAYMENT_PROVIDER", models.GatewayAsaas) {
	case models.GatewayPushinPay:
		return gateway.NewPushinPayGateway(gateway.NewPushinPayClientFromEnv())
	default:
		return gateway.NewAsaasGateway(gateway.NewAsaasClientFromEnv())
	}
}

func installApiRoutes(app *fiber.App, deps *dependencies) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))

	api.Post("/checkout/orders", deps.checkout.HandleCreateOrder)
	api.Post("/payments", deps.payment.HandleCreatePayment)
	api.Get("/payments/status", deps.status.HandleGetStatus)

	// Registered for every method; the handler answers 405 itself so the
	// gateway sees a deliberate response instead of fiber's default.
	api.All("/webhooks/payment", deps.webhook.HandlePaymentWebhook)

	api.Get("/diagnostics", middleware.AdminKeyMiddleware(), deps.diagnostic.HandleDiagnostics)

	admin := api.Group("/admin", middleware.AdminKeyMiddleware())
	admin.Post("/webhooks/simulate", deps.webhook.HandleSimulateWebhook)
	admin.Get("/keys", deps.adminKeys.HandleListKeys)
	admin.Post("/keys", deps.adminKeys.HandleCreateKey)
	admin.Put("/keys/:id", deps.adminKeys.HandleUpdateKey)
	admin.Post("/keys/:id/deactivate", deps.adminKeys.HandleDeactivateKey)
}
