package rest

import (
	domainChat "github.com/AzielCF/az-juris/domains/chat"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/AzielCF/az-juris/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

type Chat struct {
	Service domainChat.IChatUsecase
	Send    domainChat.ISendUsecase
}

func InitRestChat(app fiber.Router, service domainChat.IChatUsecase, send domainChat.ISendUsecase) Chat {
	rest := Chat{Service: service, Send: send}

	app.Get("/instances/:name/chats", rest.ListChats)
	app.Post("/instances/:name/send", rest.SendText)
	app.Get("/chats/:id/messages", rest.ListMessages)
	app.Post("/chats/:id/read", rest.MarkRead)

	return rest
}

func (handler *Chat) ListChats(c *fiber.Ctx) error {
	chats, err := handler.Service.ListChats(c.UserContext(), middleware.TenantID(c), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Chats retrieved",
		Results: chats,
	})
}

func (handler *Chat) ListMessages(c *fiber.Ctx) error {
	before, ok := parseBefore(c.Query("before"))
	if !ok {
		utils.PanicIfNeeded(pkgError.ValidationError("before: must be RFC 3339 or unix seconds."))
	}
	request := domainChat.ListMessagesRequest{
		Limit:  c.QueryInt("limit", domainChat.DefaultMessagePageSize),
		Before: before,
	}

	messages, err := handler.Service.ListMessages(c.UserContext(), middleware.TenantID(c), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Messages retrieved",
		Results: messages,
	})
}

func (handler *Chat) MarkRead(c *fiber.Ctx) error {
	err := handler.Service.MarkRead(c.UserContext(), middleware.TenantID(c), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Chat marked as read",
	})
}

func (handler *Chat) SendText(c *fiber.Ctx) error {
	var request domainChat.SendMessageRequest
	parseBody(c, &request)

	msg, err := handler.Send.SendText(c.UserContext(), middleware.TenantID(c), c.Params("name"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Message sent",
		Results: msg,
	})
}
