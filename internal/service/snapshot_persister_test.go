package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/mocks"
	doubles "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/mocks/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

func closePersister(t *testing.T, p *SnapshotPersister) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func TestSnapshotPersister_MirrorsLoginAndLogout(t *testing.T) {
	state := NewSessionState(nil)
	store := doubles.NewMemorySnapshotStore()
	p := StartSnapshotPersister(state, store, nil)

	user := domainauth.UserIdentity{ID: "user-1", Email: "admin@example.com"}
	state.Login(user)
	require.Eventually(t, func() bool {
		got, err := store.Load(context.Background())
		return err == nil && got.ID == "user-1"
	}, time.Second, time.Millisecond)

	state.RefreshFailed()
	closePersister(t, p)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestSnapshotPersister_CloseFlushesLatest(t *testing.T) {
	state := NewSessionState(nil)
	store := doubles.NewMemorySnapshotStore()
	p := StartSnapshotPersister(state, store, nil)

	state.Login(domainauth.UserIdentity{ID: "first"})
	state.Login(domainauth.UserIdentity{ID: "second"})
	closePersister(t, p)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", got.ID)
}

func TestSnapshotPersister_SkipsFlagOnlyChanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSnapshotStore(ctrl)
	user := domainauth.UserIdentity{ID: "user-1"}
	store.EXPECT().Save(gomock.Any(), user).Return(nil).Times(1)

	state := NewSessionState(nil)
	p := StartSnapshotPersister(state, store, nil)
	state.Login(user)
	closePersister(t, p)

	p = StartSnapshotPersister(state, store, nil)
	state.BeginLoading()
	state.EndLoading()
	state.ClearError()
	closePersister(t, p)
}

func TestSnapshotPersister_StartsFromCommittedSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSnapshotStore(ctrl)
	store.EXPECT().Delete(gomock.Any()).Return(nil).Times(1)

	state := NewSessionState(nil)
	state.Login(domainauth.UserIdentity{ID: "user-1"})

	p := StartSnapshotPersister(state, store, nil)
	state.Login(domainauth.UserIdentity{ID: "user-1"})
	state.Logout()
	closePersister(t, p)
}

func TestSnapshotPersister_WriteErrorRetriedOnNextChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSnapshotStore(ctrl)
	user := domainauth.UserIdentity{ID: "user-1"}
	failed := make(chan struct{})
	gomock.InOrder(
		store.EXPECT().Save(gomock.Any(), user).DoAndReturn(func(context.Context, domainauth.UserIdentity) error {
			close(failed)
			return errors.New("redis down")
		}),
		store.EXPECT().Save(gomock.Any(), user).Return(nil),
	)

	state := NewSessionState(nil)
	p := StartSnapshotPersister(state, store, nil)
	state.Login(user)
	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("first save never attempted")
	}

	// The identity is unchanged but was never stored, so any change writes it again.
	state.ClearError()
	closePersister(t, p)
}

func TestSameIdentity(t *testing.T) {
	a := &domainauth.UserIdentity{ID: "1", Roles: []string{"admin"}}
	b := &domainauth.UserIdentity{ID: "1", Roles: []string{"admin"}}
	c := &domainauth.UserIdentity{ID: "1", Roles: []string{"user"}}

	assert.True(t, sameIdentity(nil, nil))
	assert.True(t, sameIdentity(a, b))
	assert.False(t, sameIdentity(a, c))
	assert.False(t, sameIdentity(a, nil))
}
