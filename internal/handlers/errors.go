package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-screener/internal/repositories"
	"alfredoptarigan/cv-screener/internal/services"
)

// ErrorHandler maps domain errors returned by handlers to HTTP responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	var verr *services.ValidationError
	var serr *repositories.StoreError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &verr):
		code = fiber.StatusBadRequest
	case errors.Is(err, repositories.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, services.ErrTalentPoolDisabled):
		code = fiber.StatusNotImplemented
	case errors.As(err, &serr):
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
