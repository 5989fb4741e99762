package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialRefresher = (*StubRefresher)(nil)
	_ ports.SessionTerminator   = (*StubTerminator)(nil)
	_ ports.Authenticator       = (*StubAuthenticator)(nil)
	_ ports.Navigator           = (*RecordingNavigator)(nil)
	_ ports.SnapshotStore       = (*MemorySnapshotStore)(nil)
	_ ports.CookieStore         = (*MemoryCookieStore)(nil)
)

// StubRefresher counts refresh calls and delegates to RefreshFunc when set.
type StubRefresher struct {
	RefreshFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

func (s *StubRefresher) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.RefreshFunc != nil {
		return s.RefreshFunc(ctx)
	}
	return nil
}

// Calls returns how many times Refresh ran.
func (s *StubRefresher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StubTerminator counts logout calls.
type StubTerminator struct {
	Err error

	mu    sync.Mutex
	calls int
}

func (s *StubTerminator) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.Err
}

// Calls returns how many times Logout ran.
func (s *StubTerminator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StubAuthenticator answers Login and Me with a fixed user unless the Func fields are set.
type StubAuthenticator struct {
	LoginFunc func(ctx context.Context, in ports.LoginInput) (domainauth.UserIdentity, error)
	MeFunc    func(ctx context.Context) (domainauth.UserIdentity, error)

	User domainauth.UserIdentity
}

// NewStubAuthenticator creates a StubAuthenticator with a default admin user.
func NewStubAuthenticator() *StubAuthenticator {
	return &StubAuthenticator{
		User: domainauth.UserIdentity{
			ID:    "mock-user-1",
			Email: "mock.user@example.com",
			Roles: []string{string(domainauth.RoleAdmin)},
		},
	}
}

func (s *StubAuthenticator) Login(ctx context.Context, in ports.LoginInput) (domainauth.UserIdentity, error) {
	if s.LoginFunc != nil {
		return s.LoginFunc(ctx, in)
	}
	return s.User, nil
}

func (s *StubAuthenticator) Me(ctx context.Context) (domainauth.UserIdentity, error) {
	if s.MeFunc != nil {
		return s.MeFunc(ctx)
	}
	return s.User, nil
}

// RecordingNavigator remembers every redirect reason.
type RecordingNavigator struct {
	mu      sync.Mutex
	reasons []string
}

func (n *RecordingNavigator) RedirectToLogin(_ context.Context, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
	return nil
}

// Reasons returns the recorded reasons in call order.
func (n *RecordingNavigator) Reasons() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reasons...)
}

// Count returns how many redirects were requested.
func (n *RecordingNavigator) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reasons)
}

// MemorySnapshotStore is an in-memory snapshot store for unit tests.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	user *domainauth.UserIdentity
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (m *MemorySnapshotStore) Save(_ context.Context, user domainauth.UserIdentity) error {
	if user.ID == "" {
		return errors.New("snapshot user ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user.Clone()
	return nil
}

func (m *MemorySnapshotStore) Load(_ context.Context) (domainauth.UserIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return domainauth.UserIdentity{}, ErrNotFound
	}
	return *m.user.Clone(), nil
}

func (m *MemorySnapshotStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

// MemoryCookieStore keeps cookies in memory, keyed by name and path, and counts writes.
type MemoryCookieStore struct {
	mu      sync.Mutex
	cookies map[string]*http.Cookie
	saves   int
	clears  int
}

// NewMemoryCookieStore creates an empty cookie store.
func NewMemoryCookieStore() *MemoryCookieStore {
	return &MemoryCookieStore{cookies: make(map[string]*http.Cookie)}
}

func (m *MemoryCookieStore) SaveCookies(_ context.Context, cookies []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.cookies = make(map[string]*http.Cookie, len(cookies))
	for _, c := range cookies {
		cp := *c
		m.cookies[c.Name+";"+c.Path] = &cp
	}
	return nil
}

func (m *MemoryCookieStore) LoadCookies(context.Context) ([]*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.cookies))
	for k := range m.cookies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*http.Cookie, 0, len(keys))
	for _, k := range keys {
		cp := *m.cookies[k]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryCookieStore) ClearCookies(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.cookies = make(map[string]*http.Cookie)
	return nil
}

// Value returns the stored value for name at any path.
func (m *MemoryCookieStore) Value(name string) string {
	if c := m.Cookie(name); c != nil {
		return c.Value
	}
	return ""
}

// Cookie returns a copy of the stored cookie called name, or nil.
func (m *MemoryCookieStore) Cookie(name string) *http.Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cookies {
		if c.Name == name {
			cp := *c
			return &cp
		}
	}
	return nil
}

// Len returns how many cookies are stored.
func (m *MemoryCookieStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cookies)
}

// Saves returns how many times SaveCookies ran.
func (m *MemoryCookieStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Clears returns how many times ClearCookies ran.
func (m *MemoryCookieStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

// Is lets callers match ports.ErrSnapshotNotFound.
func (notFoundError) Is(target error) bool { return target == ports.ErrSnapshotNotFound }

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}
