package rest

import (
	"crypto/subtle"
	"encoding/json"
	"strings"

	domainWebhook "github.com/AzielCF/az-juris/domains/webhook"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const WebhookTokenHeader = "X-Webhook-Token"

// Webhook receives gateway deliveries. It sits outside the /api group: the
// gateway authenticates with the shared token, not basic auth.
type Webhook struct {
	Service domainWebhook.IWebhookUsecase
	Token   string
}

func InitRestWebhook(app fiber.Router, service domainWebhook.IWebhookUsecase, token string) Webhook {
	rest := Webhook{Service: service, Token: token}
	app.Post("/webhook/:tenant_id", rest.Receive)
	return rest
}

func (h *Webhook) Receive(c *fiber.Ctx) error {
	if !h.authorized(c) {
		utils.PanicIfNeeded(pkgError.UnauthorizedError("invalid webhook token"))
	}

	tenantID := strings.TrimSpace(c.Params("tenant_id"))
	if tenantID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("tenant_id: cannot be blank."))
	}

	var event domainWebhook.Event
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		logrus.WithError(err).Warnf("[WEBHOOK] Undecodable delivery for tenant %s", tenantID)
		utils.PanicIfNeeded(pkgError.WebhookError("invalid webhook payload"))
	}

	outcome := h.Service.Handle(c.UserContext(), tenantID, event)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Webhook received",
		Results: fiber.Map{
			"event":   domainWebhook.NormalizeEvent(event.Event),
			"outcome": outcome,
		},
	})
}

func (h *Webhook) authorized(c *fiber.Ctx) bool {
	if h.Token == "" {
		return true
	}
	got := c.Get(WebhookTokenHeader)
	if got == "" {
		got = c.Get("apikey")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) == 1
}
