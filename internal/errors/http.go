package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FromStatus maps a non-2xx API status to an AppError. It returns nil for 2xx and 3xx.
func FromStatus(status int, message string) *AppError {
	if status < http.StatusBadRequest {
		return nil
	}
	if message == "" {
		message = http.StatusText(status)
	}
	e := &AppError{Message: message, Status: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Code = ErrCodeUnauthorized
	case status == http.StatusForbidden:
		e.Code = ErrCodeForbidden
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusConflict:
		e.Code = ErrCodeConflict
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Code = ErrCodeTimeout
	case status >= http.StatusInternalServerError:
		e.Code = ErrCodeUpstream
	default:
		e.Code = ErrCodeValidation
	}
	return e
}

// MapTransportError maps an error returned by an http.Client or RoundTripper.
// Context cancellation and deadlines keep their identity through the cause.
func MapTransportError(err error, op string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	code := ErrCodeInternal
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		code = ErrCodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code = ErrCodeTimeout
	}
	return &AppError{Code: code, Message: fmt.Sprintf("%s failed", op), Cause: err}
}
