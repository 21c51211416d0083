package http

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID returns the caller's X-Request-ID or a fresh one, and echoes it
// on the response.
func RequestID(c echo.Context) string {
	id := c.Request().Header.Get(echo.HeaderXRequestID)
	if id == "" {
		id = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	if id == "" {
		id = uuid.NewString()
	}
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}
