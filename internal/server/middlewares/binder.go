package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Methods whose handlers bind a JSON body.
var methodsWithBody = map[string]bool{
	http.MethodPost:  true,
	http.MethodPatch: true,
	http.MethodPut:   true,
}

type binder struct {
	echo.DefaultBinder
}

// NewBinder returns the default binder with an empty-body check in front,
// so handlers never bind zero values out of a missing payload.
func NewBinder() echo.Binder {
	return &binder{}
}

// Bind implements the echo.Binder interface.
func (b *binder) Bind(i interface{}, c echo.Context) error {
	if c.Request().ContentLength == 0 && methodsWithBody[c.Request().Method] {
		return echo.NewHTTPError(http.StatusBadRequest, "request body can't be empty")
	}
	return b.DefaultBinder.Bind(i, c)
}
