// Command hostelbites-devserver serves an in-memory marketplace backend with
// demo accounts, for running the client without the production backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MrEthical07/hostelbites/internal/devserver"
	"github.com/MrEthical07/hostelbites/internal/rate"
)

type options struct {
	addr   string
	secret string
	// keyFile holds an Ed25519 PEM private key; it replaces secret.
	keyFile  string
	ttl      time.Duration
	issuer   string
	seed     bool
	verbose  bool
	shutdown time.Duration
	// redisAddr enables the login throttle.
	redisAddr   string
	maxAttempts int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "hostelbites-devserver",
		Short:        "Run an in-memory marketplace backend",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", ":8080", "listen address")
	f.StringVar(&opts.secret, "secret", os.Getenv("HOSTELBITES_DEV_SECRET"), "HS256 signing secret (default $HOSTELBITES_DEV_SECRET)")
	f.StringVar(&opts.keyFile, "ed25519-key", "", "PEM Ed25519 private key; signs with EdDSA instead of --secret")
	f.DurationVar(&opts.ttl, "token-ttl", 24*time.Hour, "issued token lifetime")
	f.StringVar(&opts.issuer, "issuer", "hostelbites-devserver", "iss claim")
	f.BoolVar(&opts.seed, "seed", true, "create the demo accounts and catalogue")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for login throttling (disabled when empty)")
	f.IntVar(&opts.maxAttempts, "max-login-attempts", rate.DefaultConfig().MaxAttempts, "failed logins allowed per window")
	f.DurationVar(&opts.shutdown, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func serve(ctx context.Context, opts options) error {
	var edKey []byte
	if opts.keyFile != "" {
		raw, err := os.ReadFile(opts.keyFile)
		if err != nil {
			return fmt.Errorf("read signing key: %w", err)
		}
		edKey = raw
	} else if opts.secret == "" {
		return errors.New("a signing secret is required: pass --secret, --ed25519-key or set HOSTELBITES_DEV_SECRET")
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	var limiter *rate.Limiter
	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", opts.redisAddr, err)
		}
		cfg := rate.DefaultConfig()
		cfg.MaxAttempts = opts.maxAttempts
		limiter = rate.New(rdb, cfg)
		logger.Info("login throttling enabled", zap.String("redis_addr", opts.redisAddr), zap.Int("max_attempts", cfg.MaxAttempts))
	}

	srv, err := devserver.New(devserver.Config{
		Secret:       []byte(opts.secret),
		Ed25519Key:   edKey,
		TokenTTL:     opts.ttl,
		Issuer:       opts.issuer,
		Logger:       logger,
		LoginLimiter: limiter,
	})
	if err != nil {
		return err
	}
	if opts.seed {
		demo, err := devserver.SeedDemo(srv)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		for username, email := range demo.Emails {
			logger.Info("demo account", zap.String("username", username), zap.String("email", email))
		}
		logger.Info("demo password", zap.String("password", devserver.DemoPassword))
	}

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", opts.addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
