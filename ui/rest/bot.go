package rest

import (
	domainBot "github.com/AzielCF/az-juris/domains/bot"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Bot struct {
	Service domainBot.IBotUsecase
}

func InitRestBot(app fiber.Router, service domainBot.IBotUsecase) Bot {
	rest := Bot{Service: service}

	app.Get("/instances/:name/bot", rest.Get)
	app.Put("/instances/:name/bot", rest.Save)

	return rest
}

func (handler *Bot) Get(c *fiber.Ctx) error {
	cfg, err := handler.Service.Get(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot config retrieved",
		Results: cfg,
	})
}

func (handler *Bot) Save(c *fiber.Ctx) error {
	var request domainBot.SaveConfigRequest
	parseBody(c, &request)

	cfg, err := handler.Service.Save(c.UserContext(), middleware.TenantID(c), c.Params("name"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bot config saved",
		Results: cfg,
	})
}
