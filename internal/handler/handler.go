package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// parseID parses the :id path parameter.
func parseID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// respondError builds a deferred JSON error response, letting loaders hand
// the failure back to the handler that owns the echo context.
func respondError(status int, message string) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(status, echo.Map{"error": message})
	}
}
