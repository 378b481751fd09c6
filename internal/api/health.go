package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 3 * time.Second

func (s *Server) root(c *fiber.Ctx) error {
	return c.JSON(RootResponse{Status: "healthy", Service: ServiceName})
}

// healthCheck reports vector store connectivity: 200 when reachable, 503 otherwise.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	response := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.health == nil || s.health.Health(ctx) != nil {
		response.Status = "unhealthy"
		response.Qdrant = "disconnected"
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	response.Status = "healthy"
	response.Qdrant = "connected"
	return c.JSON(response)
}
