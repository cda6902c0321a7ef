package rest

import (
	domainCredential "github.com/AzielCF/az-juris/domains/credential"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Credential struct {
	Service domainCredential.ICredentialUsecase
}

func InitRestCredential(app fiber.Router, service domainCredential.ICredentialUsecase) Credential {
	rest := Credential{Service: service}
	app.Put("/credentials/gateway", rest.SetGatewayKey)
	return rest
}

func (h *Credential) SetGatewayKey(c *fiber.Ctx) error {
	var request domainCredential.SetGatewayKeyRequest
	parseBody(c, &request)

	cred, err := h.Service.SetGatewayKey(c.UserContext(), middleware.TenantID(c), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Gateway key saved",
		Results: cred,
	})
}
