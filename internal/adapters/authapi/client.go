// Package authapi calls the portfolio API's authentication endpoints. Its requests go
// through the RequestAuthDecorator directly, never through the refresh pipeline.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	apperrors "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/errors"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

const maxErrorBody = 4 << 10

// Default endpoint paths.
const (
	DefaultRefreshPath = "/auth/refresh-token"
	DefaultLogoutPath  = "/auth/logout"
	DefaultLoginPath   = "/auth/login"
	DefaultMePath      = "/auth/me"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialRefresher = (*Client)(nil)
	_ ports.SessionTerminator   = (*Client)(nil)
	_ ports.Authenticator       = (*Client)(nil)
)

// Options configures the auth endpoint client.
type Options struct {
	BaseURL     string
	Transport   http.RoundTripper // the RequestAuthDecorator in production
	Timeout     time.Duration     // per call; 0 means 30s
	RefreshPath string
	LogoutPath  string
	LoginPath   string
	MePath      string
}

// Client talks to the auth endpoints of the API.
type Client struct {
	base        *url.URL
	http        *http.Client
	protected   *http.Client
	refreshPath string
	logoutPath  string
	loginPath   string
	mePath      string
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("authapi: base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("authapi: parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("authapi: base URL %q must include scheme and host", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:        base,
		http:        &http.Client{Transport: opts.Transport, Timeout: timeout},
		refreshPath: orDefault(opts.RefreshPath, DefaultRefreshPath),
		logoutPath:  orDefault(opts.LogoutPath, DefaultLogoutPath),
		loginPath:   orDefault(opts.LoginPath, DefaultLoginPath),
		mePath:      orDefault(opts.MePath, DefaultMePath),
	}, nil
}

// UseProtectedTransport routes Me through rt, normally the refreshing pipeline, so an
// expired session is renewed before the identity is read. Call it before serving requests.
func (c *Client) UseProtectedTransport(rt http.RoundTripper) {
	c.protected = &http.Client{Transport: rt, Timeout: c.http.Timeout}
}

// Paths returns the endpoint paths that must bypass refresh handling.
func (c *Client) Paths() []string {
	return []string{c.refreshPath, c.logoutPath, c.loginPath}
}

// Refresh calls POST refresh-token with an empty body. Any non-2xx answer or transport
// error is a failure.
func (c *Client) Refresh(ctx context.Context) error {
	resp, err := c.do(ctx, c.http, http.MethodPost, c.refreshPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "refresh rejected"); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

// Logout calls POST logout with an empty body.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, c.http, http.MethodPost, c.logoutPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return statusError(resp, "logout rejected")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts credentials and returns the identity the API reports.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (domainauth.UserIdentity, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return domainauth.UserIdentity{}, apperrors.Validation("email is required")
	}
	if in.Password == "" {
		return domainauth.UserIdentity{}, apperrors.Validation("password is required")
	}
	body, err := json.Marshal(loginRequest{Email: email, Password: in.Password})
	if err != nil {
		return domainauth.UserIdentity{}, fmt.Errorf("marshal login request: %w", err)
	}

	resp, err := c.do(ctx, c.http, http.MethodPost, c.loginPath, body)
	if err != nil {
		return domainauth.UserIdentity{}, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "login rejected"); err != nil {
		return domainauth.UserIdentity{}, err
	}
	return decodeIdentity(resp.Body)
}

// Me returns the identity bound to the current credentials.
func (c *Client) Me(ctx context.Context) (domainauth.UserIdentity, error) {
	hc := c.http
	if c.protected != nil {
		hc = c.protected
	}
	resp, err := c.do(ctx, hc, http.MethodGet, c.mePath, nil)
	if err != nil {
		return domainauth.UserIdentity{}, err
	}
	defer resp.Body.Close()
	if err := statusError(resp, "identity lookup rejected"); err != nil {
		return domainauth.UserIdentity{}, err
	}
	return decodeIdentity(resp.Body)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	target := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, apperrors.MapTransportError(err, method+" "+path)
	}
	return resp, nil
}

// identityEnvelope accepts both {"user": {...}} and a bare user object.
type identityEnvelope struct {
	User *domainauth.UserIdentity `json:"user"`
	domainauth.UserIdentity
}

func decodeIdentity(r io.Reader) (domainauth.UserIdentity, error) {
	var env identityEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return domainauth.UserIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "decode identity")
	}
	id := env.UserIdentity
	if env.User != nil {
		id = *env.User
	}
	if id.ID == "" {
		return domainauth.UserIdentity{}, &apperrors.AppError{
			Code:    apperrors.ErrCodeUpstream,
			Message: "identity response has no user id",
		}
	}
	return id, nil
}

func statusError(resp *http.Response, message string) error {
	appErr := apperrors.FromStatus(resp.StatusCode, message)
	if appErr == nil {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if msg := strings.TrimSpace(string(snippet)); msg != "" {
		appErr.Cause = errors.New(msg)
	}
	return appErr
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return v
}
