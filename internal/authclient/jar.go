package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

const persistTimeout = 2 * time.Second

// PersistentJar is a cookie jar whose API-origin cookies survive restarts.
// Every Set-Cookie for the origin is merged into the stored set by name and path,
// with its attributes; a set left empty is cleared from the store.
type PersistentJar struct {
	inner  *cookiejar.Jar
	origin *url.URL
	store  ports.CookieStore
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	saved map[string]*http.Cookie
}

var _ http.CookieJar = (*PersistentJar)(nil)

// NewPersistentJar creates a jar for origin and seeds it from store.
func NewPersistentJar(ctx context.Context, origin string, store ports.CookieStore, logger *slog.Logger) (*PersistentJar, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse api origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api origin %q must include scheme and host", origin)
	}
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	j := &PersistentJar{
		inner:  inner,
		origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		store:  store,
		logger: logger,
		now:    time.Now,
		saved:  make(map[string]*http.Cookie),
	}

	if store != nil {
		cookies, loadErr := store.LoadCookies(ctx)
		if loadErr != nil {
			return nil, fmt.Errorf("load stored credentials: %w", loadErr)
		}
		j.seed(ctx, cookies)
	}
	return j, nil
}

// seed installs stored cookies, each against the origin at its own path so
// path-scoped credentials are sent where the server scoped them.
func (j *PersistentJar) seed(ctx context.Context, cookies []*http.Cookie) {
	now := j.now()
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		sc := persistable(c, c.Path, now)
		if sc == nil {
			continue
		}
		at := *j.origin
		at.Path = sc.Path
		j.inner.SetCookies(&at, []*http.Cookie{sc})
		j.saved[cookieKey(sc)] = sc
	}
	if len(j.saved) > 0 {
		j.logger.DebugContext(ctx, "restored credentials", "count", len(j.saved))
	}
}

// SetCookies implements http.CookieJar.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)
	if j.store == nil || !sameOrigin(u, j.origin) {
		return
	}

	now := j.now()
	changed := false
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		changed = true
		path := c.Path
		if path == "" || !strings.HasPrefix(path, "/") {
			path = defaultCookiePath(u.Path)
		}
		sc := persistable(c, path, now)
		if sc == nil {
			delete(j.saved, cookieName(c.Name, path))
			continue
		}
		j.saved[cookieKey(sc)] = sc
	}
	for key, c := range j.saved {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			delete(j.saved, key)
			changed = true
		}
	}
	if !changed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var err error
	if len(j.saved) == 0 {
		err = j.store.ClearCookies(ctx)
	} else {
		err = j.store.SaveCookies(ctx, j.savedLocked())
	}
	if err != nil {
		j.logger.WarnContext(ctx, "persist credentials failed", "error", err)
	}
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func (j *PersistentJar) savedLocked() []*http.Cookie {
	keys := make([]string, 0, len(j.saved))
	for k := range j.saved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*http.Cookie, 0, len(keys))
	for _, k := range keys {
		c := *j.saved[k]
		out = append(out, &c)
	}
	return out
}

// persistable returns the storable form of c at path, or nil when c deletes or has
// already expired. Max-Age is converted to an absolute expiry.
func persistable(c *http.Cookie, path string, now time.Time) *http.Cookie {
	if path == "" {
		path = "/"
	}
	expires := c.Expires
	switch {
	case c.MaxAge < 0:
		return nil
	case c.MaxAge > 0:
		expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	}
	if !expires.IsZero() && !expires.After(now) {
		return nil
	}
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     path,
		Domain:   c.Domain,
		Expires:  expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
}

// defaultCookiePath is the directory of the request path (RFC 6265 section 5.1.4).
func defaultCookiePath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func cookieKey(c *http.Cookie) string { return cookieName(c.Name, c.Path) }

func cookieName(name, path string) string { return name + ";" + path }

func sameOrigin(a, b *url.URL) bool {
	return a != nil && b != nil && strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
