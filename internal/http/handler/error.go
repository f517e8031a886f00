package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"examia/internal/apperr"
	"examia/internal/http/middleware"
	"examia/internal/service"
)

// dataPayload is the success envelope. Every JSON response is either this or errorPayload.
type dataPayload struct {
	RequestID string `json:"request_id"`
	Data      any    `json:"data"`
}

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func writeData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(dataPayload{RequestID: requestIDFromCtx(c), Data: data})
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_YEAR", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeAppError maps a classified error onto status and code. The classified
// message is surfaced verbatim; anything unclassified is logged and hidden.
func writeAppError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		zap.L().Error("request failed",
			zap.String("request_id", requestIDFromCtx(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return writeError(c, fiber.StatusInternalServerError, apperr.CodeInternal, "internal server error")
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrAuthentication), errors.Is(err, apperr.ErrAuthorization):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrStore):
		status = fiber.StatusBadGateway
	case errors.Is(err, apperr.ErrUpload):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, apperr.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	if ae.Cause != nil {
		zap.L().Warn("request rejected",
			zap.String("request_id", requestIDFromCtx(c)),
			zap.String("code", apperr.Code(err)),
			zap.Error(ae.Cause),
		)
	}
	return writeError(c, status, apperr.Code(err), ae.Message)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, apperr.CodeNotFound, "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, apperr.CodeInternal, "internal server error")
		}
	}
}
