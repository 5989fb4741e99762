package auth

// Package auth contains domain-level types for the client-side session.
// It is pure and free of transport/adapter concerns.

import "strings"

// Role names an authorization role granted by the API.
// Comparison is case-insensitive; the API may send "ADMIN" or "admin".
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// UserIdentity is the authenticated principal as reported by the API.
// It is replaced wholesale on login and cleared on logout.
type UserIdentity struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the identity carries role, ignoring case.
func (u *UserIdentity) HasRole(role string) bool {
	if u == nil {
		return false
	}
	want := strings.TrimSpace(role)
	if want == "" {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(strings.TrimSpace(r), want) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshots never share the roles slice.
func (u *UserIdentity) Clone() *UserIdentity {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

// Session is a read-only snapshot of the client session.
// A nil User means the client is unauthenticated. An empty Error means no error.
type Session struct {
	User      *UserIdentity `json:"user"`
	IsLoading bool          `json:"is_loading"`
	Error     string        `json:"error,omitempty"`
}

// IsAuthenticated reports whether a user is present.
func (s Session) IsAuthenticated() bool { return s.User != nil }

// IsAdmin reports whether the user holds the admin role.
func (s Session) IsAdmin() bool { return s.User.HasRole(string(RoleAdmin)) }

// HasRole reports whether the session user holds role, ignoring case.
func (s Session) HasRole(role string) bool { return s.User.HasRole(role) }
