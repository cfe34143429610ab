package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/erazemk/assetdesk/internal/api"
	"github.com/erazemk/assetdesk/internal/audit"
	"github.com/erazemk/assetdesk/internal/auth"
	"github.com/erazemk/assetdesk/internal/cache"
	"github.com/erazemk/assetdesk/internal/config"
	"github.com/erazemk/assetdesk/internal/db"
	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/notify"
	"github.com/erazemk/assetdesk/internal/store"
)

// Queue sizes of the background services.
const (
	eventQueueSize = 256
	auditQueueSize = 1024
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also appended to that file. The returned cleanup closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}
	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(&levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}))
	return cleanup, nil
}

type options struct {
	dbPath    string
	addr      string
	adminUser string
	logPath   string
	envPath   string
	reset     bool
	cacheTTL  time.Duration
}

func parseFlags(args []string, env config.Env) (*options, error) {
	fs := flag.NewFlagSet("assetdesk", flag.ContinueOnError)
	o := &options{}

	fs.StringVar(&o.dbPath, "db", "", "")
	fs.StringVar(&o.dbPath, "d", "", "")
	fs.StringVar(&o.addr, "addr", env.Addr, "")
	fs.StringVar(&o.addr, "a", env.Addr, "")
	fs.StringVar(&o.adminUser, "user", "admin", "")
	fs.StringVar(&o.adminUser, "u", "admin", "")
	fs.StringVar(&o.logPath, "log", "", "")
	fs.StringVar(&o.logPath, "l", "", "")
	fs.BoolVar(&o.reset, "reset", false, "")
	fs.DurationVar(&o.cacheTTL, "cache-ttl", env.CacheTTL, "")

	fs.Usage = func() {
		fmt.Fprintf(os.Stdout, `Usage: assetdesk [flags]

Flags:
  -d, -db <path>          SQLite database path (default: resolved from environment)
  -a, -addr <host:port>   listen address (default: %s)
  -u, -user <name>        admin username when no admin exists (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -reset                  drop and recreate all tables (destroys data)
  -cache-ttl <duration>   response cache lifetime (default: %s)
  -h, -help               show this help and exit

Environment (also read from .env):
  %s, %s, %s, %s
`, env.Addr, env.CacheTTL, config.EnvAddr, config.EnvNetworkPath, config.EnvResourcesPath, config.EnvCacheTTL)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return o, nil
}

func main() {
	env, err := config.LoadEnv(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], env)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(opts, env); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(opts *options, env config.Env) error {
	dbPath, err := config.Locator{}.DatabasePath(opts.dbPath, env)
	if err != nil {
		return fmt.Errorf("locating database: %w", err)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.reset {
		slog.Warn("resetting database", "path", dbPath)
	}
	err = db.EnsureSchema(ctx, database, db.Options{
		Reset:   opts.reset,
		OnReady: func() { slog.Info("database ready", "path", dbPath) },
	})
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	if err := ensureAdmin(ctx, database, opts.adminUser); err != nil {
		return err
	}

	jwtSecret, err := store.SigningKey(ctx, database)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}

	responseCache := cache.New(opts.cacheTTL)
	hub := notify.NewHub(eventQueueSize)
	auditLog := audit.New(database, auditQueueSize)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		auditLog.Run(ctx)
	}()

	server := &http.Server{
		Addr: opts.addr,
		Handler: api.NewRouter(api.Config{
			DB:        database,
			JWTSecret: jwtSecret,
			Cache:     responseCache,
			Hub:       hub,
			Audit:     auditLog,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", opts.addr, "cache_ttl", opts.cacheTTL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		wg.Wait()
		return fmt.Errorf("serving: %w", err)
	}

	// Let the audit logger drain before the database closes.
	wg.Wait()
	slog.Info("server stopped, closing database")
	return nil
}

// ensureAdmin creates an admin account with a generated password when the
// database has none. The password is printed once.
func ensureAdmin(ctx context.Context, database *sql.DB, name string) error {
	n, err := store.CountUsersByRole(ctx, database, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, name, hash, model.RoleAdmin, nil); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", name)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
	return nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
