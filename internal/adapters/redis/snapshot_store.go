// Package redis provides Redis-based adapters for the portfolio client.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

// DefaultSnapshotKey is the key used when none is configured.
const DefaultSnapshotKey = "portfolio:session"

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore persists the committed session identity so a restarted process can
// restore it. The stored snapshot is a hint: callers must confirm it against the API.
type SnapshotStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// SnapshotStoreOptions configures a SnapshotStore.
type SnapshotStoreOptions struct {
	Key string
	// TTL bounds how long a snapshot survives without being rewritten. Zero keeps it
	// until deleted.
	TTL time.Duration
	Now func() time.Time
}

type snapshotRecord struct {
	User    domainauth.UserIdentity `json:"user"`
	SavedAt time.Time               `json:"saved_at"`
}

// NewSnapshotStore creates a Redis-backed snapshot store.
func NewSnapshotStore(client redis.UniversalClient, opts SnapshotStoreOptions) *SnapshotStore {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultSnapshotKey
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &SnapshotStore{client: client, key: key, ttl: ttl, now: now}
}

// Key returns the Redis key holding the snapshot.
func (s *SnapshotStore) Key() string { return s.key }

func (s *SnapshotStore) Save(ctx context.Context, user domainauth.UserIdentity) error {
	if user.ID == "" {
		return errors.New("snapshot user ID cannot be empty")
	}

	data, err := json.Marshal(snapshotRecord{User: user, SavedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *SnapshotStore) Load(ctx context.Context) (domainauth.UserIdentity, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.UserIdentity{}, ErrNotFound
		}
		return domainauth.UserIdentity{}, fmt.Errorf("redis get: %w", err)
	}

	var rec snapshotRecord
	if unmarshalErr := json.Unmarshal(data, &rec); unmarshalErr != nil {
		return domainauth.UserIdentity{}, fmt.Errorf("unmarshal snapshot: %w", unmarshalErr)
	}
	if rec.User.ID == "" {
		// Unusable record; drop it so the next load starts clean.
		if deleteErr := s.Delete(ctx); deleteErr != nil {
			return domainauth.UserIdentity{}, fmt.Errorf("cleanup invalid snapshot: %w", deleteErr)
		}
		return domainauth.UserIdentity{}, ErrNotFound
	}

	return rec.User, nil
}

func (s *SnapshotStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

type notFoundError struct{}

// Is lets callers match ports.ErrSnapshotNotFound.
func (notFoundError) Is(target error) bool { return target == ports.ErrSnapshotNotFound }

func (notFoundError) Error() string { return "session snapshot not found" }

// ErrNotFound is returned when no snapshot is stored. It matches ports.ErrSnapshotNotFound.
var ErrNotFound error = notFoundError{}
