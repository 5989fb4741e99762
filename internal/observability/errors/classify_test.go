package errors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string { return fmt.Sprintf("status %d", e.code) }

func TestClassify(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Equal(t, "errors_errorstring", Classify(errors.New("boom")))
	assert.Equal(t, "errors_statuserr", Classify(fmt.Errorf("refresh: %w", &statusErr{code: 400})))
	assert.Equal(t, "context_deadlineexceedederror", Classify(&url.Error{Op: "Post", URL: "x", Err: context.DeadlineExceeded}))
}
