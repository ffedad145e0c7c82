package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// APIError is the JSON error body returned by the auth and admin endpoints.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

var (
	errBadRequest = &APIError{Code: "BAD_REQUEST", Message: "invalid request body", Status: fiber.StatusBadRequest}
	errInternal   = &APIError{Code: "INTERNAL_ERROR", Message: "an internal error occurred", Status: fiber.StatusInternalServerError}
)

// toAPIError maps sentinel errors to their HTTP representation. Anything
// unrecognised becomes a 500 without leaking the underlying message.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *port.ValidationError
	if errors.As(err, &verr) {
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: "one or more fields failed validation",
			Status:  fiber.StatusBadRequest,
			Details: verr.Fields,
		}
	}

	switch {
	case errors.Is(err, port.ErrEmailExists):
		return &APIError{Code: "EMAIL_EXISTS", Message: port.ErrEmailExists.Error(), Status: fiber.StatusConflict}
	case errors.Is(err, port.ErrInvalidCredentials):
		return &APIError{Code: "INVALID_CREDENTIALS", Message: port.ErrInvalidCredentials.Error(), Status: fiber.StatusUnauthorized}
	case errors.Is(err, port.ErrUnauthorized),
		errors.Is(err, port.ErrTokenExpired),
		errors.Is(err, port.ErrTokenInvalid),
		errors.Is(err, port.ErrSessionNotFound),
		errors.Is(err, port.ErrSessionExpired):
		return &APIError{Code: "UNAUTHORIZED", Message: "authentication required", Status: fiber.StatusUnauthorized}
	case errors.Is(err, port.ErrUnknownProvider):
		return &APIError{Code: "UNKNOWN_PROVIDER", Message: port.ErrUnknownProvider.Error(), Status: fiber.StatusNotFound}
	case errors.Is(err, port.ErrGeneratorNotFound):
		return &APIError{Code: "NOT_FOUND", Message: port.ErrGeneratorNotFound.Error(), Status: fiber.StatusNotFound}
	case errors.Is(err, port.ErrUserNotFound):
		return &APIError{Code: "NOT_FOUND", Message: port.ErrUserNotFound.Error(), Status: fiber.StatusNotFound}
	case errors.Is(err, port.ErrProfileConflict):
		return &APIError{Code: "CONFLICT", Message: port.ErrProfileConflict.Error(), Status: fiber.StatusConflict}
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: "TIMEOUT", Message: "request timed out", Status: fiber.StatusGatewayTimeout}
	}
	return errInternal
}

// respondError writes err as an APIError body. 5xx errors are logged with the
// original cause.
func respondError(c fiber.Ctx, err error) error {
	apiErr := toAPIError(err)
	if apiErr.Status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(apiErr.Status).JSON(apiErr)
}

// currentUser returns the user set by the JWT middleware.
func currentUser(c fiber.Ctx) (*domain.UserContext, error) {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return nil, port.ErrUnauthorized
	}
	return uc, nil
}
