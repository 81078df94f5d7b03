// Package httperr turns coded service errors into JSON responses.
package httperr

import (
	"log/slog"
	"net/http"
	"strconv"

	"bookex/util/apperr"

	"github.com/labstack/echo/v4"
)

func Status(code apperr.Code) int {
	switch code {
	case apperr.BadInput:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.InsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Write responds with the mapped status. Uncoded errors are logged and
// reported as a bare internal error.
func Write(c echo.Context, log *slog.Logger, op string, err error) error {
	code := apperr.CodeOf(err)
	if code == "" {
		log.Error(op+" failed",
			"err", err,
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"path", c.Path(),
			"method", c.Request().Method,
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	body := echo.Map{"message": err.Error()}
	if r := apperr.ReasonOf(err); r != "" {
		body["reason"] = r
	}
	return c.JSON(Status(code), body)
}

func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": msg})
}

// ValidationError reports validator failures the way every controller does.
func ValidationError(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
}

// ParamID reads a positive int64 path parameter.
func ParamID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
