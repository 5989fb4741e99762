package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/config"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/authclient"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/bootstrap"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/metrics"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/util"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader

	// Redis overrides the client dialed from Config.Redis.
	Redis redis.UniversalClient
}

const passwordEnv = "PORTFOLIO_PASSWORD"

const defaultCommandTimeout = 2 * time.Minute

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			slog.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
		In:     os.Stdin,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with <email>; the password comes from " + passwordEnv + " or stdin",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and clear stored credentials",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Print the identity the API reports for the current credentials",
			run:         runWhoami,
		},
		"get": {
			name:        "get",
			description: "GET <path> through the authenticated pipeline and print the body",
			run:         runGet,
		},
		"probe": {
			name:        "probe",
			description: "Issue concurrent GETs for <path>... and report how many refreshes ran",
			run:         runProbe,
		},
		"session": {
			name:        "session",
			description: "Print the locally stored session without calling the API",
			run:         runSession,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: portfolioctl <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-10s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// withPipeline builds the pipeline, runs fn and flushes the session on the way out.
type pipelineFn func(ctx context.Context, p *bootstrap.Pipeline) error

func withPipeline(cmdCtx *commandContext, fn pipelineFn) error {
	return withPipelineMetrics(cmdCtx, nil, fn)
}

// withPipelineMetrics builds the pipeline with sink as its metrics sink. A nil sink
// keeps the configured StatsD client, if any.
func withPipelineMetrics(cmdCtx *commandContext, sink statsd.Sink, fn pipelineFn) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	p, err := bootstrap.BuildPipeline(ctx, bootstrap.PipelineDeps{
		Config:  &cmdCtx.Config,
		Logger:  cmdCtx.Logger,
		Redis:   cmdCtx.Redis,
		Metrics: sink,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer closeCancel()
		if closeErr := p.Close(closeCtx); closeErr != nil {
			cmdCtx.Logger.Warn("pipeline close failed", "error", closeErr)
		}
	}()

	return fn(ctx, p)
}

func runLogin(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: portfolioctl login <email>")
	}
	email := fs.Arg(0)

	password, err := readPassword(cmdCtx.In)
	if err != nil {
		return err
	}

	return withPipeline(cmdCtx, func(ctx context.Context, p *bootstrap.Pipeline) error {
		user, err := p.Auth.Login(ctx, ports.LoginInput{Email: email, Password: password})
		if err != nil {
			if msg := p.Session.Snapshot().Error; msg != "" {
				return fmt.Errorf("%s: %w", msg, err)
			}
			return err
		}
		return writef(cmdCtx.Out, "signed in as %s (%s)\n", user.Email, strings.Join(user.Roles, ","))
	})
}

func readPassword(in io.Reader) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	if in == nil {
		return "", errors.New("password required: set " + passwordEnv + " or pipe it on stdin")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password required: set " + passwordEnv + " or pipe it on stdin")
	}
	return pw, nil
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	return withPipeline(cmdCtx, func(ctx context.Context, p *bootstrap.Pipeline) error {
		if err := p.Auth.Logout(ctx); err != nil {
			cmdCtx.Logger.WarnContext(ctx, "logout call failed, local session cleared", "error", err)
		}
		return writeln(cmdCtx.Out, "signed out")
	})
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	return withPipeline(cmdCtx, func(ctx context.Context, p *bootstrap.Pipeline) error {
		user, err := p.Auth.Whoami(ctx)
		if err != nil {
			if errors.Is(err, authclient.ErrAuthRefreshFailed) {
				return fmt.Errorf("session expired, run portfolioctl login: %w", err)
			}
			return err
		}
		return writeJSON(cmdCtx.Out, user)
	})
}

func runGet(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: portfolioctl get <path>")
	}

	return withPipeline(cmdCtx, func(ctx context.Context, p *bootstrap.Pipeline) error {
		res, err := fetch(ctx, p, args[0])
		if err != nil {
			return err
		}
		if res.Absorbed {
			return writeln(cmdCtx.Out, "(no content: sign-in required for this resource)")
		}
		if err := write(cmdCtx.Out, string(res.Body)); err != nil {
			return err
		}
		if res.Status >= http.StatusBadRequest {
			return fmt.Errorf("GET %s: %s", args[0], http.StatusText(res.Status))
		}
		return nil
	})
}

type probeOptions struct {
	Repeat int
	RPS    float64
}

func parseProbeFlags(args []string) (probeOptions, []string, error) {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := probeOptions{}
	fs.IntVar(&opts.Repeat, "n", 1, "requests per path")
	fs.Float64Var(&opts.RPS, "rps", 0, "maximum requests started per second (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if fs.NArg() == 0 {
		return opts, nil, errors.New("usage: portfolioctl probe [-n count] <path>...")
	}
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}
	return opts, fs.Args(), nil
}

func runProbe(cmdCtx *commandContext, args []string) error {
	opts, paths, err := parseProbeFlags(args)
	if err != nil {
		return err
	}

	// Without a StatsD endpoint the pipeline counters are kept in memory for the summary.
	var (
		rec  *statsd.Recorder
		sink statsd.Sink
	)
	if !cmdCtx.Config.Observability.Metrics.IsEnabled() {
		rec = statsd.NewRecorder()
		sink = rec
	}

	return withPipelineMetrics(cmdCtx, sink, func(ctx context.Context, p *bootstrap.Pipeline) error {
		targets := make([]string, 0, len(paths)*opts.Repeat)
		for _, path := range paths {
			for i := 0; i < opts.Repeat; i++ {
				targets = append(targets, path)
			}
		}

		limiter := rate.NewLimiter(rate.Inf, 1)
		if opts.RPS > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
		}

		results := make([]fetchResult, len(targets))
		g, gctx := errgroup.WithContext(ctx)
		for i, path := range targets {
			i, path := i, path
			g.Go(func() error {
				if err := limiter.Wait(gctx); err != nil {
					results[i] = fetchResult{Path: path, Err: err}
					return nil
				}
				res, err := fetch(gctx, p, path)
				if err != nil {
					res = fetchResult{Path: path, Err: err}
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		return printProbeResults(cmdCtx.Out, results, p.Coordinator.Calls(), rec)
	})
}

func printProbeResults(w io.Writer, results []fetchResult, refreshes int64, rec *statsd.Recorder) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "PATH\tSTATUS\tDURATION"); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		status := strconv.Itoa(r.Status)
		switch {
		case r.Err != nil:
			failed++
			status = "error: " + r.Err.Error()
		case r.Absorbed:
			status = "absorbed"
		}
		if err := writef(tw, "%s\t%s\t%s\n", r.Path, status, util.FormatDuration(r.Duration)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if err := writef(w, "\n%d requests, %d failed, %d refresh calls\n", len(results), failed, refreshes); err != nil {
		return err
	}
	if rec != nil {
		if err := writef(w, "%d coalesced, %d absorbed, %d replayed, %d replays rejected\n",
			rec.Counter(metrics.RefreshCoalesced),
			rec.Counter(metrics.Absorbed),
			rec.Counter(metrics.Retry+",result="+metrics.ResultSuccess),
			rec.Counter(metrics.Retry+",result="+metrics.ResultError),
		); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(results))
	}
	return nil
}

func runSession(cmdCtx *commandContext, _ []string) error {
	if !cmdCtx.Config.Session.Persist {
		return errors.New("session persistence is disabled; set SESSION_PERSIST=true")
	}
	return withPipeline(cmdCtx, func(_ context.Context, p *bootstrap.Pipeline) error {
		snap := p.Session.Snapshot()
		return writeJSON(cmdCtx.Out, struct {
			Authenticated bool `json:"authenticated"`
			Admin         bool `json:"admin"`
			User          any  `json:"user"`
		}{
			Authenticated: p.Session.IsAuthenticated(),
			Admin:         p.Session.IsAdmin(),
			User:          snap.User,
		})
	})
}

type fetchResult struct {
	Path     string
	Status   int
	Absorbed bool
	Body     []byte
	Duration time.Duration
	Err      error
}

const maxBody = 1 << 20

func fetch(ctx context.Context, p *bootstrap.Pipeline, path string) (fetchResult, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return fetchResult{}, fmt.Errorf("parse path %q: %w", path, err)
	}
	target := p.Decorator.Origin().ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := p.Client.Do(req)
	if err != nil {
		return fetchResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fetchResult{}, fmt.Errorf("read response: %w", err)
	}
	return fetchResult{
		Path:     path,
		Status:   resp.StatusCode,
		Absorbed: resp.Header.Get(authclient.AbsorbedHeader) == "true",
		Body:     body,
		Duration: time.Since(start),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
