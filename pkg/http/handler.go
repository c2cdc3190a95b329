package http

import "github.com/labstack/echo/v4"

// Handler is anything that can attach its routes to the echo instance.
// The server accepts one and registers it before starting.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
