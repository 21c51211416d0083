package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONResponse writes v with the given status.
func JSONResponse(c echo.Context, status int, v interface{}) error {
	return c.JSON(status, v)
}

// ErrorResponse writes the error envelope.
func ErrorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorEnvelope{Status: StatusError, Message: message})
}

// ValidationErrorResponse writes a 400 envelope carrying per-field details.
func ValidationErrorResponse(c echo.Context, errs []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ErrorEnvelope{
		Status:  StatusError,
		Message: ValidationMessage(errs),
		Code:    "ERR_VALIDATION",
		Errors:  errs,
	})
}

// AppErrorResponse writes application error response. Errors that are not
// AppErrors become a generic 500 so internals never leak.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		env := ErrorEnvelope{Status: StatusError, Message: appErr.Message, Code: appErr.Code}
		if appErr.Field != "" {
			env.Errors = []ValidationError{{Code: appErr.Code, Field: appErr.Field, Message: appErr.Message, Params: appErr.Params}}
		}
		return c.JSON(appErr.Status, env)
	}
	return InternalServerErrorResponse(c)
}

func InternalServerErrorResponse(c echo.Context) error {
	return ErrorResponse(c, http.StatusInternalServerError, "Something went wrong")
}

func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// ErrorHandler renders echo's own errors (404, 405, bind failures) in the
// error envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = ErrorResponse(c, he.Code, msg)
		return
	}
	_ = AppErrorResponse(c, err)
}
