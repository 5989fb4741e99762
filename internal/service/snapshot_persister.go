package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

const persistWriteTimeout = 2 * time.Second

// SnapshotPersister mirrors committed session identities into a SnapshotStore:
// a signed-in user is saved, a signed-out session deletes the snapshot.
type SnapshotPersister struct {
	store  ports.SnapshotStore
	logger *slog.Logger
	cancel func()
	done   chan struct{}
}

// StartSnapshotPersister subscribes to state and starts mirroring. Changes that only
// touch loading or error flags are not written.
func StartSnapshotPersister(state *SessionState, store ports.SnapshotStore, logger *slog.Logger) *SnapshotPersister {
	if logger == nil {
		logger = slog.Default()
	}
	current, ch, cancel := state.Watch(1)
	p := &SnapshotPersister{
		store:  store,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(ch, current.User)
	return p
}

func (p *SnapshotPersister) run(ch <-chan domainauth.Session, last *domainauth.UserIdentity) {
	defer close(p.done)
	for snap := range ch {
		if sameIdentity(last, snap.User) {
			continue
		}
		if p.write(snap.User) {
			last = snap.User
		}
	}
}

func (p *SnapshotPersister) write(user *domainauth.UserIdentity) bool {
	ctx, cancel := context.WithTimeout(context.Background(), persistWriteTimeout)
	defer cancel()

	var err error
	if user == nil {
		err = p.store.Delete(ctx)
	} else {
		err = p.store.Save(ctx, *user)
	}
	if err != nil {
		p.logger.WarnContext(ctx, "persist session snapshot failed", "error", err)
		return false
	}
	return true
}

// Close stops the subscription and waits until the latest snapshot is written or ctx ends.
func (p *SnapshotPersister) Close(ctx context.Context) error {
	p.cancel()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sameIdentity(a, b *domainauth.UserIdentity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Email == b.Email && slices.Equal(a.Roles, b.Roles)
}
