package authclient

import (
	"fmt"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// RequestAuthDecorator sends API-origin requests with credentials and JSON headers.
// Credentials are the cookies held in its jar: they are attached to every API-origin
// request and updated from every API-origin response. Requests to other origins pass
// through untouched.
type RequestAuthDecorator struct {
	origin *url.URL
	jar    http.CookieJar
	base   http.RoundTripper
}

// NewRequestAuthDecorator creates a decorator for the given API origin.
// A nil jar gets a public-suffix aware cookiejar; a nil base uses http.DefaultTransport.
func NewRequestAuthDecorator(origin string, jar http.CookieJar, base http.RoundTripper) (*RequestAuthDecorator, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("parse api origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api origin %q must include scheme and host", origin)
	}
	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &RequestAuthDecorator{
		origin: &url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host)},
		jar:    jar,
		base:   base,
	}, nil
}

// Origin returns the protected API origin.
func (d *RequestAuthDecorator) Origin() *url.URL {
	u := *d.origin
	return &u
}

// Jar exposes the credential jar shared by every request the decorator sends.
func (d *RequestAuthDecorator) Jar() http.CookieJar { return d.jar }

// Matches reports whether u targets the protected API origin.
func (d *RequestAuthDecorator) Matches(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, d.origin.Scheme) && strings.EqualFold(u.Host, d.origin.Host)
}

// Decorate returns a clone of req with credentials and content headers applied.
// The caller's request is never modified.
func (d *RequestAuthDecorator) Decorate(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	if !d.Matches(out.URL) {
		return out
	}

	for _, c := range d.jar.Cookies(out.URL) {
		if _, err := out.Cookie(c.Name); err == nil {
			continue
		}
		out.AddCookie(c)
	}

	if !isMultipartOrBinary(out.Header.Get("Content-Type")) {
		out.Header.Set("Content-Type", contentTypeJSON)
	}
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", contentTypeJSON)
	}
	return out
}

// RoundTrip decorates req, sends it through the base transport and records returned cookies.
func (d *RequestAuthDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	out := d.Decorate(req)
	resp, err := d.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if d.Matches(out.URL) {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			d.jar.SetCookies(out.URL, cookies)
		}
	}
	return resp, nil
}

// isMultipartOrBinary reports whether the transport must keep the caller's content type
// (multipart boundaries, raw uploads).
func isMultipartOrBinary(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.HasPrefix(mediaType, "multipart/") || mediaType == contentTypeBinary
}
