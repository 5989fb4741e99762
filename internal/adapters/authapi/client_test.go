package authapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/authclient"
	apperrors "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/errors"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/testutil"
)

func newTestClient(t *testing.T, api *testutil.FakeAPI) (*Client, *authclient.RequestAuthDecorator) {
	t.Helper()
	dec, err := authclient.NewRequestAuthDecorator(api.URL(), nil, nil)
	require.NoError(t, err)
	c, err := New(Options{BaseURL: api.URL(), Transport: dec, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, dec
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{BaseURL: "localhost:3000"})
	require.Error(t, err)

	c, err := New(Options{BaseURL: "http://api.example.com/", LoginPath: "signin"})
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultRefreshPath, DefaultLogoutPath, "/signin"}, c.Paths())
}

func TestClient_LoginMeLogout(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c, dec := newTestClient(t, api)
	ctx := context.Background()

	user, err := c.Login(ctx, ports.LoginInput{Email: " admin@example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, api.User, user)
	require.NotEmpty(t, dec.Jar().Cookies(dec.Origin()), "login should store the session cookie")

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.User.ID, me.ID)

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, 1, api.Logouts())

	_, err = c.Me(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestClient_LoginRejected(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c, _ := newTestClient(t, api)

	_, err := c.Login(context.Background(), ports.LoginInput{Email: "admin@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestClient_LoginValidation(t *testing.T) {
	c, err := New(Options{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), ports.LoginInput{Password: "x"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = c.Login(context.Background(), ports.LoginInput{Email: "a@b.c"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestClient_Refresh(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c, dec := newTestClient(t, api)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, 1, api.Refreshes())
	require.Len(t, dec.Jar().Cookies(dec.Origin()), 1)

	api.SetRefreshStatus(http.StatusUnauthorized)
	err := c.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	api.SetRefreshStatus(http.StatusBadGateway)
	err = c.Refresh(ctx)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestClient_RefreshHonorsContext(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	release := api.HoldRefresh()
	defer release()
	c, _ := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestDecodeIdentity_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  string
		wantErr bool
	}{
		{name: "envelope", body: `{"user":{"id":"u1","email":"a@b.c","roles":["admin"]}}`, wantID: "u1"},
		{name: "bare", body: `{"id":"u2","email":"a@b.c"}`, wantID: "u2"},
		{name: "missing id", body: `{"user":{"email":"a@b.c"}}`, wantErr: true},
		{name: "malformed", body: `{"user":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New(Options{BaseURL: srv.URL})
			require.NoError(t, err)
			id, err := c.Me(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsUpstream(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id.ID)
		})
	}
}
