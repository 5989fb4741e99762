package authclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// RequestContext is an immutable snapshot of an outgoing request, sufficient to replay it.
// It lives for one failure/retry cycle and is never persisted.
type RequestContext struct {
	ID     string
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte

	// Generation is the coordinator's refresh generation when the request was first sent.
	Generation uint64
}

// Capture snapshots req, draining and closing its body.
func Capture(req *http.Request) (*RequestContext, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("capture request: nil request or URL")
	}

	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		closeErr := req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("close request body: %w", closeErr)
		}
		body = b
	}

	u := *req.URL
	return &RequestContext{
		ID:     uuid.NewString(),
		Method: req.Method,
		URL:    &u,
		Header: req.Header.Clone(),
		Body:   body,
	}, nil
}

// Build returns a fresh request carrying the snapshot. Each call yields an independent body;
// http.NewRequestWithContext sets ContentLength and GetBody for the bytes.Reader.
func (rc *RequestContext) Build(ctx context.Context) (*http.Request, error) {
	u := *rc.URL
	req, err := http.NewRequestWithContext(ctx, rc.Method, u.String(), rc.bodyReader())
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.URL = &u
	req.Header = rc.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	return req, nil
}

func (rc *RequestContext) bodyReader() io.Reader {
	if rc.Body == nil {
		return nil
	}
	return bytes.NewReader(rc.Body)
}
