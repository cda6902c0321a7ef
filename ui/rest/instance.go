package rest

import (
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Instance struct {
	Service domainInstance.IInstanceUsecase
}

func InitRestInstance(app fiber.Router, service domainInstance.IInstanceUsecase) Instance {
	rest := Instance{Service: service}

	app.Get("/instances", rest.List)
	app.Post("/instances", rest.Create)
	app.Get("/instances/:name/status", rest.Status)
	app.Post("/instances/:name/connect", rest.Connect)
	app.Post("/instances/:name/disconnect", rest.Disconnect)
	app.Post("/instances/:name/webhook", rest.ConfigureWebhook)
	app.Delete("/instances/:name", rest.Delete)

	return rest
}

func (handler *Instance) List(c *fiber.Ctx) error {
	instances, err := handler.Service.List(c.UserContext(), middleware.TenantID(c))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instances retrieved",
		Results: toInstanceResponses(instances),
	})
}

func (handler *Instance) Create(c *fiber.Ctx) error {
	var request domainInstance.CreateInstanceRequest
	parseBody(c, &request)

	inst, err := handler.Service.Create(c.UserContext(), middleware.TenantID(c), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  fiber.StatusCreated,
		Code:    "SUCCESS",
		Message: "Instance created",
		Results: toInstanceResponse(inst),
	})
}

func (handler *Instance) Status(c *fiber.Ctx) error {
	inst, err := handler.Service.Status(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance status",
		Results: toInstanceResponse(inst),
	})
}

func (handler *Instance) Connect(c *fiber.Ctx) error {
	res, err := handler.Service.Connect(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	message := "Scan the QR code to pair"
	if res.AlreadyConnected {
		message = "Instance already connected"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: map[string]any{
			"instance":          toInstanceResponse(res.Instance),
			"qr_code":           res.QRCode,
			"pairing_code":      res.PairingCode,
			"already_connected": res.AlreadyConnected,
		},
	})
}

func (handler *Instance) Disconnect(c *fiber.Ctx) error {
	inst, err := handler.Service.Disconnect(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Instance disconnected",
		Results: toInstanceResponse(inst),
	})
}

func (handler *Instance) Delete(c *fiber.Ctx) error {
	res, err := handler.Service.Delete(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	message := "Instance deleted"
	if !res.RemoteConfirmed {
		message = "Instance deleted locally; gateway did not confirm"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: res,
	})
}

func (handler *Instance) ConfigureWebhook(c *fiber.Ctx) error {
	inst, err := handler.Service.ConfigureWebhook(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Webhook configured",
		Results: toInstanceResponse(inst),
	})
}
