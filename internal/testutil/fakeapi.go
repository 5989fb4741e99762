package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
)

// SessionCookie is the cookie name the fake API issues.
const SessionCookie = "session"

// Echo is the body returned by protected and public data routes.
type Echo struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
	Token       string `json:"token"`
}

// FakeAPI is an httptest server that behaves like the portfolio API's auth surface:
// cookie sessions, refresh-token, login, logout and me, plus echo routes.
// Paths under /api/public/ never require a session.
type FakeAPI struct {
	Server *httptest.Server

	Email    string
	Password string
	User     domainauth.UserIdentity

	mu            sync.Mutex
	tokens        map[string]bool
	nextToken     int
	refreshStatus int
	refreshGate   chan struct{}
	refreshes     int
	logouts       int
	hits          map[string]int
	failures      map[string]int
}

// NewFakeAPI starts a fake API and closes it with the test.
func NewFakeAPI(t TestingTB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		Email:    "admin@example.com",
		Password: "secret",
		User: domainauth.UserIdentity{
			ID:    "user-1",
			Email: "admin@example.com",
			Roles: []string{string(domainauth.RoleAdmin)},
		},
		tokens:        make(map[string]bool),
		refreshStatus: http.StatusOK,
		hits:          make(map[string]int),
		failures:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", f.handleRefresh)
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("POST /auth/logout", f.handleLogout)
	mux.HandleFunc("GET /auth/me", f.handleMe)
	mux.HandleFunc("/api/", f.handleData)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the server.
func (f *FakeAPI) URL() string { return f.Server.URL }

// Expire invalidates every issued session token. The refresh endpoint keeps working.
func (f *FakeAPI) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]bool)
}

// SetRefreshStatus makes the refresh endpoint answer with status. 200 restores success.
func (f *FakeAPI) SetRefreshStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

// HoldRefresh blocks refresh requests until the returned release function is called.
func (f *FakeAPI) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.refreshGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.refreshGate == gate {
				f.refreshGate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Refreshes returns how many refresh requests arrived.
func (f *FakeAPI) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// Logouts returns how many logout requests arrived.
func (f *FakeAPI) Logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

// Hits returns how many requests reached path.
func (f *FakeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// Reject makes path answer 401 regardless of the session.
func (f *FakeAPI) Reject(path string) {
	f.Fail(path, http.StatusUnauthorized)
}

// Fail makes path answer status with FailureBody(path, status) for a valid session.
// 401 is answered regardless of the session.
func (f *FakeAPI) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = status
}

// FailureBody is the body served for a path configured with Fail.
func FailureBody(path string, status int) string {
	return fmt.Sprintf("%d %s: %s", status, http.StatusText(status), path)
}

// IssueToken creates a valid session token without a login round trip.
func (f *FakeAPI) IssueToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked()
}

func (f *FakeAPI) issueLocked() string {
	f.nextToken++
	tok := fmt.Sprintf("tok-%d", f.nextToken)
	f.tokens[tok] = true
	return tok
}

func (f *FakeAPI) valid(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return c.Value, f.tokens[c.Value]
}

func (f *FakeAPI) setCookie(w http.ResponseWriter, tok string) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: tok, Path: "/", HttpOnly: true})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.refreshes++
	gate := f.refreshGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	status := f.refreshStatus
	var tok string
	if status == http.StatusOK {
		tok = f.issueLocked()
	}
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, "refresh token invalid", status)
		return
	}
	f.setCookie(w, tok)
	w.WriteHeader(http.StatusOK)
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !strings.EqualFold(in.Email, f.Email) || in.Password != f.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	f.setCookie(w, f.IssueToken())
	writeJSON(w, map[string]any{"user": f.User})
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	tok, _ := f.valid(r)
	f.mu.Lock()
	f.logouts++
	delete(f.tokens, tok)
	f.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.valid(r); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, f.User)
}

func (f *FakeAPI) handleData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	failure := f.failures[r.URL.Path]
	f.mu.Unlock()

	tok, ok := f.valid(r)
	public := strings.HasPrefix(r.URL.Path, "/api/public/")
	if failure == http.StatusUnauthorized || (!ok && !public) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if failure != 0 {
		http.Error(w, FailureBody(r.URL.Path, failure), failure)
		return
	}
	body, _ := io.ReadAll(r.Body)
	writeJSON(w, Echo{
		Path:        r.URL.Path,
		Method:      r.Method,
		Body:        string(body),
		ContentType: r.Header.Get("Content-Type"),
		Token:       tok,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
