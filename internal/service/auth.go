package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	apperrors "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/errors"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

// Messages recorded on the session when a foreground login fails.
const (
	InvalidCredentialsMessage = "invalid email or password"
	LoginFailedMessage        = "sign-in failed, please try again"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Authenticator ports.Authenticator
	Terminator    ports.SessionTerminator
	Snapshots     ports.SnapshotStore // optional
	Session       *SessionState
	Logger        *slog.Logger
}

// AuthService orchestrates the user-initiated session flows: login, logout, identity
// lookup and restoring a persisted session. Expiry handling lives in the request pipeline.
type AuthService struct {
	auth       ports.Authenticator
	terminator ports.SessionTerminator
	snapshots  ports.SnapshotStore
	session    *SessionState
	logger     *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Authenticator == nil {
		return nil, errors.New("auth service: authenticator is required")
	}
	if opts.Terminator == nil {
		return nil, errors.New("auth service: terminator is required")
	}
	if opts.Session == nil {
		return nil, errors.New("auth service: session state is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		auth:       opts.Authenticator,
		terminator: opts.Terminator,
		snapshots:  opts.Snapshots,
		session:    opts.Session,
		logger:     logger,
	}, nil
}

// Session returns the session state the service mutates.
func (s *AuthService) Session() *SessionState { return s.session }

// Login exchanges credentials for an identity and commits it.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (domainauth.UserIdentity, error) {
	s.session.BeginLoading()

	user, err := s.auth.Login(ctx, in)
	if err != nil {
		s.session.LoginFailed(loginFailureMessage(err))
		s.logger.WarnContext(ctx, "sign-in failed", "error", err, "error_code", apperrors.GetCode(err))
		return domainauth.UserIdentity{}, fmt.Errorf("login: %w", err)
	}

	s.session.Login(user)
	s.logger.InfoContext(ctx, "signed in", "user_id", user.ID, "roles", user.Roles)
	return user, nil
}

// Logout ends the session. Local state is cleared even when the API call fails;
// the API error is still returned.
func (s *AuthService) Logout(ctx context.Context) error {
	s.session.BeginLoading()
	err := s.terminator.Logout(ctx)
	s.session.Logout()
	s.session.EndLoading()

	if err != nil {
		s.logger.WarnContext(ctx, "logout call failed, local session cleared", "error", err)
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.InfoContext(ctx, "signed out")
	return nil
}

// Whoami asks the API for the current identity and commits it.
// An unauthorized answer clears the local session.
func (s *AuthService) Whoami(ctx context.Context) (domainauth.UserIdentity, error) {
	user, err := s.auth.Me(ctx)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			s.session.Logout()
		}
		return domainauth.UserIdentity{}, fmt.Errorf("whoami: %w", err)
	}
	s.session.Login(user)
	return user, nil
}

// Restore seeds the session from the persisted snapshot. It reports false when
// persistence is disabled or nothing is stored. The identity is a hint until the
// API confirms it.
func (s *AuthService) Restore(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}
	user, err := s.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrSnapshotNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load session snapshot: %w", err)
	}
	s.session.Login(user)
	s.logger.DebugContext(ctx, "session restored from snapshot", "user_id", user.ID)
	return true, nil
}

func loginFailureMessage(err error) string {
	var appErr *apperrors.AppError
	switch {
	case apperrors.IsUnauthorized(err):
		return InvalidCredentialsMessage
	case apperrors.IsValidation(err) && errors.As(err, &appErr):
		return appErr.Message
	default:
		return LoginFailedMessage
	}
}
