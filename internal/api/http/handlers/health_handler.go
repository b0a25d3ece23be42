package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voc-service/internal/observability"
)

// Pinger is a dependency that can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness, readiness and metrics probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies map[string]Pinger
	metrics      *observability.Metrics
	poolStats    func() map[string]int
}

// HealthDependencies bundles what the probes report on.
type HealthDependencies struct {
	ServiceName  string
	Version      string
	Dependencies map[string]Pinger
	Metrics      *observability.Metrics
	PoolStats    func() map[string]int
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		serviceName:  deps.ServiceName,
		version:      deps.Version,
		dependencies: deps.Dependencies,
		metrics:      deps.Metrics,
		poolStats:    deps.PoolStats,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			continue
		}
		depStatus[name] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Metrics GET /metrics returns request, error and bulk counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	body := fiber.Map{}
	if h.metrics != nil {
		body["http"] = h.metrics.Snapshot()
	}
	if h.poolStats != nil {
		body["workers"] = h.poolStats()
	}
	return c.JSON(body)
}
