package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "resource not found",
			},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}

	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeUpstream, "call %s", "refresh")
	if err.Message != "call refresh" || !errors.Is(err, cause) || !IsUpstream(err) {
		t.Errorf("Wrapf() = %+v", err)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if GetCode(wrapped) != ErrCodeUpstream {
		t.Errorf("GetCode() = %v, want %v", GetCode(wrapped), ErrCodeUpstream)
	}
	if GetCode(cause) != "" {
		t.Errorf("GetCode(plain) = %v, want empty", GetCode(cause))
	}
}

func TestConstructors(t *testing.T) {
	if err := Validation("bad"); !IsValidation(err) {
		t.Errorf("Validation() code = %v", err.Code)
	}
	if err := Validationf("bad %d", 1); err.Message != "bad 1" {
		t.Errorf("Validationf() message = %q", err.Message)
	}
	if err := Internal("oops"); err.Code != ErrCodeInternal {
		t.Errorf("Internal() code = %v", err.Code)
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusOK, ""},
		{http.StatusNoContent, ""},
		{http.StatusBadRequest, ErrCodeValidation},
		{http.StatusUnprocessableEntity, ErrCodeValidation},
		{http.StatusUnauthorized, ErrCodeUnauthorized},
		{http.StatusForbidden, ErrCodeForbidden},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusConflict, ErrCodeConflict},
		{http.StatusGatewayTimeout, ErrCodeTimeout},
		{http.StatusBadGateway, ErrCodeUpstream},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "")
			if tt.want == "" {
				if err != nil {
					t.Fatalf("FromStatus(%d) = %v, want nil", tt.status, err)
				}
				return
			}
			if err == nil || err.Code != tt.want || err.Status != tt.status {
				t.Fatalf("FromStatus(%d) = %+v, want code %v", tt.status, err, tt.want)
			}
			if err.Message != http.StatusText(tt.status) {
				t.Errorf("default message = %q", err.Message)
			}
		})
	}
}

func TestMapTransportError(t *testing.T) {
	if MapTransportError(nil, "get") != nil {
		t.Fatal("nil error should map to nil")
	}

	canceled := MapTransportError(&url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, "get")
	if !IsCanceled(canceled) || !errors.Is(canceled, context.Canceled) {
		t.Errorf("canceled mapping = %+v", canceled)
	}

	timeout := MapTransportError(context.DeadlineExceeded, "get")
	if !IsTimeout(timeout) {
		t.Errorf("deadline mapping = %+v", timeout)
	}

	existing := FromStatus(http.StatusForbidden, "nope")
	if got := MapTransportError(fmt.Errorf("wrap: %w", existing), "get"); got != existing {
		t.Errorf("existing AppError should be returned as-is, got %+v", got)
	}

	other := MapTransportError(errors.New("connection refused"), "get")
	if other.Code != ErrCodeInternal || other.Message != "get failed" {
		t.Errorf("plain mapping = %+v", other)
	}
}
