package authclient

import "net/http"

// FailureKind is the pipeline's view of a round trip outcome.
type FailureKind int

const (
	// FailureNone is a response below 400.
	FailureNone FailureKind = iota
	// FailureAuthExpired is exactly HTTP 401.
	FailureAuthExpired
	// FailureOther is any other status >= 400 or a transport error. It is passed through unchanged.
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureAuthExpired:
		return "auth_expired"
	case FailureOther:
		return "other"
	default:
		return "unknown"
	}
}

// Classify inspects the result of a round trip.
func Classify(resp *http.Response, err error) FailureKind {
	if err != nil || resp == nil {
		return FailureOther
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return FailureAuthExpired
	case resp.StatusCode >= http.StatusBadRequest:
		return FailureOther
	default:
		return FailureNone
	}
}
