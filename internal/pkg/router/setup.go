package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pagflow/pagflow/internal/pkg/watcher"
)

// InstallRouter wires the full dependency graph and registers all HTTP
// routes. The returned watcher manager must be stopped on shutdown so no
// poll goroutine outlives the server.
func InstallRouter(app *fiber.App) *watcher.Manager {
	deps := buildDependencies()
	installApiRoutes(app, deps)
	return deps.watches
}

// statusCacheAdapter exposes the redis wrapper behind the controller-facing
// cache interface so tests can swap it for a map.
type statusCacheAdapter struct {
	get func(key string) (string, error)
	set func(key string, value interface{}, ttl time.Duration) error
}

func (a *statusCacheAdapter) Get(key string) (string, error) {
	return a.get(key)
}

func (a *statusCacheAdapter) Set(key string, value interface{}, ttl time.Duration) error {
	return a.set(key, value, ttl)
}
