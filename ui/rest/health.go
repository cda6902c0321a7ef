package rest

import (
	"github.com/AzielCF/az-juris/domains/health"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Service health.IHealthUsecase
}

func InitRestHealth(app fiber.Router, service health.IHealthUsecase) Health {
	handler := Health{Service: service}
	app.Get("/health", handler.GetStatus)
	return handler
}

// GetStatus answers 503 when any component probe fails.
func (h *Health) GetStatus(c *fiber.Ctx) error {
	report := h.Service.Check(c.UserContext())
	if report.Status != health.StatusOk {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNHEALTHY",
			Message: "One or more components are failing",
			Results: report,
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: report,
	})
}
