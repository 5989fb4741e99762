package authclient

import (
	"net/url"
	"strings"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
)

// PublicRouteGuard decides when a 401 is routine: an anonymous visitor hitting an
// admin-guarded endpoint that the UI may still reach (prefetch, stale links).
type PublicRouteGuard struct {
	prefixes []string
}

// NewPublicRouteGuard builds a guard from URL path prefixes. Empty entries are ignored
// and a leading slash is enforced.
func NewPublicRouteGuard(prefixes []string) *PublicRouteGuard {
	g := &PublicRouteGuard{}
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		g.prefixes = append(g.prefixes, p)
	}
	return g
}

// Prefixes returns a copy of the configured prefixes.
func (g *PublicRouteGuard) Prefixes() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.prefixes...)
}

// ShouldAbsorb reports whether a 401 on target must be swallowed for session s.
func (g *PublicRouteGuard) ShouldAbsorb(target *url.URL, s domainauth.Session) bool {
	if g == nil || target == nil || s.User != nil {
		return false
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
