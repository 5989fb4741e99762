package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

// DefaultCookieKey is the key used for stored credentials when none is configured.
const DefaultCookieKey = "portfolio:credentials"

var _ ports.CookieStore = (*CookieStore)(nil)

// CookieStore keeps the API session cookies in a single Redis hash. Each field is
// "name;path" and holds the cookie's value and attributes as JSON.
type CookieStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	now    func() time.Time
}

type cookieRecord struct {
	Value    string        `json:"value"`
	Domain   string        `json:"domain,omitempty"`
	Expires  time.Time     `json:"expires,omitzero"`
	Secure   bool          `json:"secure,omitempty"`
	HTTPOnly bool          `json:"http_only,omitempty"`
	SameSite http.SameSite `json:"same_site,omitempty"`
}

// NewCookieStore creates a Redis-backed cookie store. ttl <= 0 keeps entries until cleared.
func NewCookieStore(client redis.UniversalClient, key string, ttl time.Duration) *CookieStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultCookieKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CookieStore{client: client, key: key, ttl: ttl, now: time.Now}
}

// SaveCookies replaces the stored set atomically. Expired cookies are not written.
func (s *CookieStore) SaveCookies(ctx context.Context, cookies []*http.Cookie) error {
	now := s.now()
	values := make(map[string]any, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" || expired(c, now) {
			continue
		}
		data, err := json.Marshal(cookieRecord{
			Value:    c.Value,
			Domain:   c.Domain,
			Expires:  c.Expires.UTC(),
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: c.SameSite,
		})
		if err != nil {
			return fmt.Errorf("marshal cookie %s: %w", c.Name, err)
		}
		values[cookieField(c.Name, c.Path)] = data
	}
	if len(values) == 0 {
		return s.ClearCookies(ctx)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save cookies: %w", err)
	}
	return nil
}

// LoadCookies returns the stored, unexpired cookies ordered by path then name; an
// empty slice when none are stored.
func (s *CookieStore) LoadCookies(ctx context.Context) ([]*http.Cookie, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis load cookies: %w", err)
	}

	now := s.now()
	out := make([]*http.Cookie, 0, len(fields))
	for field, raw := range fields {
		name, path, _ := strings.Cut(field, ";")
		if path == "" {
			path = "/"
		}
		c := &http.Cookie{Name: name, Path: path}
		var rec cookieRecord
		if json.Unmarshal([]byte(raw), &rec) == nil {
			c.Value = rec.Value
			c.Domain = rec.Domain
			c.Expires = rec.Expires
			c.Secure = rec.Secure
			c.HttpOnly = rec.HTTPOnly
			c.SameSite = rec.SameSite
		} else {
			// Entries written as a bare value carry no attributes.
			c.Value = raw
		}
		if expired(c, now) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ClearCookies removes every stored cookie.
func (s *CookieStore) ClearCookies(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func cookieField(name, path string) string {
	if path == "" {
		path = "/"
	}
	return name + ";" + path
}

func expired(c *http.Cookie, now time.Time) bool {
	return c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now))
}
