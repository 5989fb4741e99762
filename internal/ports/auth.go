package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"net/http"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
)

// CredentialRefresher renews expired credentials without user interaction.
// A nil error means the server accepted the refresh and updated the session cookie.
type CredentialRefresher interface {
	Refresh(ctx context.Context) error
}

// SessionTerminator notifies the API that the session is over.
// Implementations must be safe to call for an already-invalid session.
type SessionTerminator interface {
	Logout(ctx context.Context) error
}

// LoginInput carries credentials for an interactive login.
type LoginInput struct {
	Email    string
	Password string
}

// Authenticator exchanges credentials for an identity and reads the current one.
type Authenticator interface {
	Login(ctx context.Context, in LoginInput) (domainauth.UserIdentity, error)
	Me(ctx context.Context) (domainauth.UserIdentity, error)
}

// Navigator moves the user to another surface. The pipeline only ever asks for the login surface.
type Navigator interface {
	RedirectToLogin(ctx context.Context, reason string) error
}

// ErrSnapshotNotFound matches the error SnapshotStore.Load returns when nothing is stored.
var ErrSnapshotNotFound = errors.New("session snapshot not found")

// SnapshotStore persists the last committed session identity across process restarts.
type SnapshotStore interface {
	Save(ctx context.Context, user domainauth.UserIdentity) error
	Load(ctx context.Context) (domainauth.UserIdentity, error)
	Delete(ctx context.Context) error
}

// CookieStore persists API credentials between process runs. Cookies are identified
// by name and path and keep their attributes; SaveCookies replaces the stored set.
type CookieStore interface {
	SaveCookies(ctx context.Context, cookies []*http.Cookie) error
	LoadCookies(ctx context.Context) ([]*http.Cookie, error)
	ClearCookies(ctx context.Context) error
}
