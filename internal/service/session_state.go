package service

import (
	"log/slog"
	"sync"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
)

// SessionExpiredMessage is recorded when a refresh fails for a previously authenticated user.
const SessionExpiredMessage = "session expired, please sign in again"

// SessionState is the single owner of the client session.
// All mutations go through its named operations; readers get copies via Snapshot
// or a subscription. It is safe for concurrent use.
type SessionState struct {
	mu      sync.RWMutex
	current domainauth.Session
	subs    map[uint64]chan domainauth.Session
	nextSub uint64
	logger  *slog.Logger
}

// NewSessionState creates a logged-out session state.
func NewSessionState(logger *slog.Logger) *SessionState {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionState{
		subs:   make(map[uint64]chan domainauth.Session),
		logger: logger,
	}
}

// Snapshot returns a copy of the latest committed session.
func (s *SessionState) Snapshot() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.current)
}

// IsAuthenticated reports whether a user is present.
func (s *SessionState) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.User != nil
}

// IsAdmin reports whether the current user holds the admin role.
func (s *SessionState) IsAdmin() bool {
	return s.HasRole(string(domainauth.RoleAdmin))
}

// HasRole reports whether the current user holds role, ignoring case.
func (s *SessionState) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.User.HasRole(role)
}

// Login replaces the identity and clears loading and error.
func (s *SessionState) Login(identity domainauth.UserIdentity) {
	s.mutate(func(cur *domainauth.Session) {
		cur.User = identity.Clone()
		cur.Error = ""
		cur.IsLoading = false
	})
	s.logger.Debug("session login", "user_id", identity.ID)
}

// Logout clears the identity and error. Calling it on a logged-out session is a no-op on data.
func (s *SessionState) Logout() {
	s.mutate(func(cur *domainauth.Session) {
		cur.User = nil
		cur.Error = ""
	})
}

// RefreshSucceeded keeps the identity and clears any stale error.
func (s *SessionState) RefreshSucceeded() {
	s.mutate(func(cur *domainauth.Session) {
		cur.Error = ""
	})
}

// RefreshFailed drops the identity. The error is only set when a user was present.
func (s *SessionState) RefreshFailed() {
	s.mutate(func(cur *domainauth.Session) {
		if cur.User != nil {
			cur.Error = SessionExpiredMessage
		}
		cur.User = nil
	})
}

// ClearError removes the last error.
func (s *SessionState) ClearError() {
	s.mutate(func(cur *domainauth.Session) {
		cur.Error = ""
	})
}

// BeginLoading marks a foreground operation (login, logout) as in progress.
func (s *SessionState) BeginLoading() {
	s.mutate(func(cur *domainauth.Session) {
		cur.IsLoading = true
	})
}

// EndLoading clears the loading flag without touching identity or error.
func (s *SessionState) EndLoading() {
	s.mutate(func(cur *domainauth.Session) {
		cur.IsLoading = false
	})
}

// LoginFailed ends a foreground login attempt and records msg.
func (s *SessionState) LoginFailed(msg string) {
	s.mutate(func(cur *domainauth.Session) {
		cur.IsLoading = false
		cur.Error = msg
	})
}

// Subscribe returns a channel receiving every committed snapshot and a cancel func.
// Delivery never blocks a mutation: when the buffer is full the oldest pending
// snapshot is dropped so the newest one always fits.
func (s *SessionState) Subscribe(buffer int) (<-chan domainauth.Session, func()) {
	_, ch, cancel := s.Watch(buffer)
	return ch, cancel
}

// Watch is Subscribe that also returns the session committed at registration.
// Every later commit reaches the channel, so nothing falls between the two.
func (s *SessionState) Watch(buffer int) (domainauth.Session, <-chan domainauth.Session, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domainauth.Session, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	current := cloneSession(s.current)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return current, ch, cancel
}

func (s *SessionState) mutate(fn func(cur *domainauth.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.current)
	snap := cloneSession(s.current)
	for _, ch := range s.subs {
		publishLatest(ch, cloneSession(snap))
	}
}

func publishLatest(ch chan domainauth.Session, snap domainauth.Session) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func cloneSession(in domainauth.Session) domainauth.Session {
	out := in
	out.User = in.User.Clone()
	return out
}
