package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"storefront/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const unexpectedMessage = "something went wrong, please try again"

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrProductNotFound), errors.Is(kind, service.ErrEmptyOrder):
		return http.StatusUnprocessableEntity
	case errors.Is(kind, service.ErrInsufficientStock), errors.Is(kind, service.ErrDuplicateSubmission), errors.Is(kind, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the reply for a failed operation. Unexpected errors are
// logged and answered with a generic message.
func respondError(c echo.Context, err error) error {
	var failure *service.Failure
	if errors.As(err, &failure) {
		return c.JSON(statusFor(failure.Kind), map[string]string{"error": failure.Message})
	}

	logger.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("Unexpected error")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": unexpectedMessage})
}
