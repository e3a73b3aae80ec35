package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with a generated request id
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.New().String()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)

		err := c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		})

		if claims, ok := c.Locals("claims").(*Claims); ok {
			entry = entry.WithField("user_id", claims.UserID)
		}

		if err != nil {
			entry.WithError(err).Error("Request failed")
		} else if c.Response().StatusCode() >= 500 {
			entry.Error("Request completed with server error")
		} else {
			entry.Info("Request completed")
		}

		return err
	}
}
