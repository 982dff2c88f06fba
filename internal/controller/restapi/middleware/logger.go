package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/topautomaat/gallery-backend/pkg/logger"
)

// Logger writes one structured line per request.
func Logger(l logger.Interface) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()

		chainErr := ctx.Next()
		if chainErr != nil {
			// отрисовываем ошибку сейчас, чтобы залогировать итоговый статус
			if err := ctx.App().ErrorHandler(ctx, chainErr); err != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError)
			}
		}

		l.Infow("http request",
			"method", ctx.Method(),
			"path", ctx.Path(),
			"status", ctx.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", ctx.IP(),
		)

		return nil
	}
}
