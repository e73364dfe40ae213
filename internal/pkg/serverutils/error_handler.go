package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors returned from handlers into the
// uniform JSON envelope. Validation and not-found style errors map to 4xx,
// everything else becomes a 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if fiberErr, ok := err.(*fiber.Error); ok {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		msg := err.Error()
		switch {
		case strings.Contains(msg, "validation failed"):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, msg))
		case strings.Contains(msg, "not found"), strings.Contains(msg, "access denied"):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(fiber.StatusNotFound, msg))
		case strings.Contains(msg, "invalid credentials"), strings.Contains(msg, "unauthorized"):
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, msg))
		case strings.Contains(msg, "already exists"), strings.Contains(msg, "already registered"):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(fiber.StatusBadRequest, msg))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, msg))
		}
	}
}
