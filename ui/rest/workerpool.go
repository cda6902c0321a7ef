package rest

import (
	"github.com/AzielCF/az-juris/pkg/msgworker"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type PoolStatsSource interface {
	GetStats() msgworker.PoolStats
}

type WorkerPool struct {
	Pool PoolStatsSource
}

func InitRestWorkerPool(app fiber.Router, pool PoolStatsSource) WorkerPool {
	rest := WorkerPool{Pool: pool}
	app.Get("/workers/stats", rest.GetStats)
	return rest
}

// GetStats returns real-time auto-responder pool statistics.
func (h *WorkerPool) GetStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNAVAILABLE",
			Message: "Worker pool not initialized",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Worker pool stats",
		Results: h.Pool.GetStats(),
	})
}
