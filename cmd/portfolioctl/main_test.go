package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/config"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/metrics"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/testutil"
)

type cliHarness struct {
	t   *testing.T
	api *testutil.FakeAPI
	ctx *commandContext
	out *bytes.Buffer
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	client, _ := testutil.SetupTestRedis(t)

	cfg := config.AppConfig{
		API:      config.APIConfig{Origin: api.URL()},
		Pipeline: config.PipelineConfig{RefreshCooldown: -1},
		Session:  config.SessionConfig{Persist: true, Key: "cli-test"},
	}
	cfg.Sanitize()

	out := &bytes.Buffer{}
	return &cliHarness{
		t:   t,
		api: api,
		out: out,
		ctx: &commandContext{
			Ctx:    context.Background(),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Config: cfg,
			Out:    out,
			Redis:  client,
		},
	}
}

func (h *cliHarness) run(name string, args ...string) (string, error) {
	h.t.Helper()
	h.out.Reset()
	cmd, ok := commands()[name]
	require.True(h.t, ok, "unknown command %s", name)
	err := cmd.run(h.ctx, args)
	return h.out.String(), err
}

func TestCLI_SessionLifecycle(t *testing.T) {
	h := newCLIHarness(t)
	t.Setenv(passwordEnv, h.api.Password)

	out, err := h.run("login", h.api.Email)
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as admin@example.com")

	out, err = h.run("session")
	require.NoError(t, err)
	var sess struct {
		Authenticated bool `json:"authenticated"`
		Admin         bool `json:"admin"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sess))
	assert.True(t, sess.Authenticated)
	assert.True(t, sess.Admin)

	out, err = h.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "user-1"`)

	out, err = h.run("get", "/api/projects")
	require.NoError(t, err)
	assert.Contains(t, out, `"path":"/api/projects"`)

	_, err = h.run("logout")
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.Logouts())

	h.api.SetRefreshStatus(http.StatusUnauthorized)
	_, err = h.run("whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
}

func TestCLI_LoginRejected(t *testing.T) {
	h := newCLIHarness(t)
	h.ctx.In = strings.NewReader("wrong\n")
	t.Setenv(passwordEnv, "")

	_, err := h.run("login", h.api.Email)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
}

func TestCLI_ProbeSharesRefresh(t *testing.T) {
	h := newCLIHarness(t)
	t.Setenv(passwordEnv, h.api.Password)
	_, err := h.run("login", h.api.Email)
	require.NoError(t, err)

	h.api.Expire()

	out, err := h.run("probe", "-n", "4", "/api/projects", "/api/skills")
	require.NoError(t, err)
	assert.Contains(t, out, "8 requests, 0 failed")
	assert.Contains(t, out, "0 replays rejected")
	assert.GreaterOrEqual(t, h.api.Refreshes(), 1)
	assert.LessOrEqual(t, h.api.Hits("/api/skills"), 8, "each request is retried at most once")
}

func TestCLI_GetAbsorbedWhenAnonymous(t *testing.T) {
	h := newCLIHarness(t)
	h.ctx.Config.Pipeline.PublicSafePrefixes = []string{"/api/analytics"}

	out, err := h.run("get", "/api/analytics/summary")
	require.NoError(t, err)
	assert.Contains(t, out, "sign-in required")
	assert.Zero(t, h.api.Refreshes())
}

func TestReadPassword(t *testing.T) {
	t.Setenv(passwordEnv, "")

	pw, err := readPassword(strings.NewReader("hunter2\r\nextra"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	_, err = readPassword(strings.NewReader(""))
	require.Error(t, err)

	t.Setenv(passwordEnv, "from-env")
	pw, err = readPassword(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestPrintProbeResults_RecorderSummary(t *testing.T) {
	rec := statsd.NewRecorder()
	metrics.EmitRefreshCoalesced(rec)
	metrics.EmitRefreshCoalesced(rec)
	metrics.EmitAbsorbed(rec)
	metrics.EmitRetry(rec, metrics.ResultSuccess)
	metrics.EmitRetry(rec, metrics.ResultSuccess)
	metrics.EmitRetry(rec, metrics.ResultError)

	results := []fetchResult{
		{Path: "/api/projects", Status: http.StatusOK, Duration: 12 * time.Millisecond},
		{Path: "/api/analytics", Status: http.StatusNoContent, Absorbed: true},
		{Path: "/api/skills", Status: http.StatusOK},
	}

	var out bytes.Buffer
	require.NoError(t, printProbeResults(&out, results, 1, rec))
	assert.Contains(t, out.String(), "absorbed")
	assert.Contains(t, out.String(), "3 requests, 0 failed, 1 refresh calls")
	assert.Contains(t, out.String(), "2 coalesced, 1 absorbed, 2 replayed, 1 replays rejected")

	out.Reset()
	require.NoError(t, printProbeResults(&out, results, 1, nil))
	assert.NotContains(t, out.String(), "coalesced")
}

func TestParseProbeFlags(t *testing.T) {
	opts, paths, err := parseProbeFlags([]string{"-n", "0", "-rps", "2.5", "/a", "/b"})
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Repeat)
	assert.InDelta(t, 2.5, opts.RPS, 0.001)
	assert.Equal(t, []string{"/a", "/b"}, paths)

	_, _, err = parseProbeFlags(nil)
	require.Error(t, err)
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name := range commands() {
		assert.Contains(t, buf.String(), name)
	}
}

func TestCLI_SessionRequiresPersistence(t *testing.T) {
	h := newCLIHarness(t)
	h.ctx.Config.Session.Persist = false

	_, err := h.run("session")
	require.Error(t, err)
}
