package middleware

import (
	"errors"
	"fmt"

	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery renders panics raised by utils.PanicIfNeeded as ResponseData.
// Typed errors keep their status and code; anything else is a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			res := utils.ResponseData{
				Status:  fiber.StatusInternalServerError,
				Code:    "INTERNAL_SERVER_ERROR",
				Message: fmt.Sprintf("%v", recovered),
			}

			var generic pkgError.GenericError
			if err, ok := recovered.(error); ok && errors.As(err, &generic) {
				res.Status = generic.StatusCode()
				res.Code = generic.ErrCode()
				res.Message = generic.Error()
			}

			if res.Status >= fiber.StatusInternalServerError {
				logrus.Errorf("[REST] %s %s: %s", ctx.Method(), ctx.Path(), res.Message)
			} else {
				logrus.Debugf("[REST] %s %s -> %d %s", ctx.Method(), ctx.Path(), res.Status, res.Code)
			}

			_ = ctx.Status(res.Status).JSON(res)
		}()

		return ctx.Next()
	}
}
