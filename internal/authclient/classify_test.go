package authclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		err  error
		want FailureKind
	}{
		{name: "ok", resp: &http.Response{StatusCode: http.StatusOK}, want: FailureNone},
		{name: "no content", resp: &http.Response{StatusCode: http.StatusNoContent}, want: FailureNone},
		{name: "redirect", resp: &http.Response{StatusCode: http.StatusFound}, want: FailureNone},
		{name: "unauthorized", resp: &http.Response{StatusCode: http.StatusUnauthorized}, want: FailureAuthExpired},
		{name: "forbidden", resp: &http.Response{StatusCode: http.StatusForbidden}, want: FailureOther},
		{name: "bad request", resp: &http.Response{StatusCode: http.StatusBadRequest}, want: FailureOther},
		{name: "server error", resp: &http.Response{StatusCode: http.StatusInternalServerError}, want: FailureOther},
		{name: "transport error", err: errors.New("connection refused"), want: FailureOther},
		{name: "nil response", want: FailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.resp, tt.err))
		})
	}
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "auth_expired", FailureAuthExpired.String())
	assert.Equal(t, "other", FailureOther.String())
	assert.Equal(t, "unknown", FailureKind(42).String())
}
