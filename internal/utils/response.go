package utils

import (
	"github.com/gofiber/fiber/v2"
)

// APIError is one entry in the response error list.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Respond writes the standard success envelope.
func Respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
		"errors":  []APIError{},
	})
}

// RespondError writes the standard failure envelope.
func RespondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
		"errors":  []APIError{{Code: code, Message: message}},
	})
}
