package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "transport-request-system/pkg/errors"
)

// HTTPStatusFor сопоставляет доменную ошибку HTTP-коду.
func HTTPStatusFor(err error) int {
	var httpErr *apperrors.HttpError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &echoErr):
		return echoErr.Code
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.IsValidation(err), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrTransitionNotAllowed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse отдаёт ошибку в общем конверте. Детали 500-х уходят только в лог.
func ErrorResponse(ctx echo.Context, err error, logger *zap.Logger) error {
	code := HTTPStatusFor(err)
	message := err.Error()
	var body interface{}

	var vErr *apperrors.ValidationError
	var httpErr *apperrors.HttpError
	switch {
	case errors.As(err, &vErr):
		message = vErr.Message
		body = vErr.Fields
	case errors.As(err, &httpErr):
		message = httpErr.Message
		body = httpErr.Details
	}

	if code >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("Внутренняя ошибка при обработке запроса",
				zap.String("uri", ctx.Request().RequestURI),
				zap.Error(err),
			)
		}
		message = "внутренняя ошибка сервера"
		body = nil
	}

	return ctx.JSON(code, &HttpResponse{
		Status:  false,
		Body:    body,
		Message: message,
	})
}
