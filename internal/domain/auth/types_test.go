package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserIdentity_HasRole(t *testing.T) {
	tests := []struct {
		name string
		user *UserIdentity
		role string
		want bool
	}{
		{name: "nil user", user: nil, role: "admin", want: false},
		{name: "exact match", user: &UserIdentity{Roles: []string{"admin"}}, role: "admin", want: true},
		{name: "upper case stored", user: &UserIdentity{Roles: []string{"ADMIN"}}, role: "admin", want: true},
		{name: "mixed case query", user: &UserIdentity{Roles: []string{"user"}}, role: "User", want: true},
		{name: "missing role", user: &UserIdentity{Roles: []string{"user"}}, role: "admin", want: false},
		{name: "empty role", user: &UserIdentity{Roles: []string{"admin"}}, role: "  ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasRole(tt.role))
		})
	}
}

func TestUserIdentity_CloneIsDeep(t *testing.T) {
	orig := &UserIdentity{ID: "u1", Email: "a@example.com", Roles: []string{"admin"}}
	cp := orig.Clone()
	cp.Roles[0] = "user"

	assert.Equal(t, "admin", orig.Roles[0])
	assert.Nil(t, (*UserIdentity)(nil).Clone())
}

func TestSession_DerivedFlags(t *testing.T) {
	anon := Session{}
	assert.False(t, anon.IsAuthenticated())
	assert.False(t, anon.IsAdmin())

	admin := Session{User: &UserIdentity{ID: "1", Roles: []string{"Admin"}}}
	assert.True(t, admin.IsAuthenticated())
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.HasRole("ADMIN"))
}
