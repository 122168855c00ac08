package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/kumado/kumado/internal/kverror"
	"github.com/kumado/kumado/internal/server/serializer"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// HTTPErrorHandler is a middleware that formats rendered errors.
// Every error leaves the API wrapped in the response envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	switch err := err.(type) {
	case *echo.HTTPError:
		_ = c.JSON(err.Code, serializer.Failure(err.Code, fmt.Sprintf("%v", err.Message)))
	case *kverror.Error:
		status := kverror.StatusCode(err)
		if status < 500 {
			_ = c.JSON(status, serializer.Failure(status, err.Message))
			return
		}

		internal(err, c)
	default:
		internal(err, c)
	}
}

func internal(err error, c echo.Context) {
	id := uuid.Must(uuid.NewV4()).String()
	logrus.WithField("error_id", id).Error(err)

	_ = c.JSON(http.StatusInternalServerError, serializer.Failure(
		http.StatusInternalServerError,
		fmt.Sprintf("Unexpected error (id: %s)", id),
	))
}
