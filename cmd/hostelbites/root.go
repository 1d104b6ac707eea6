package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/hostelbites"
	"github.com/MrEthical07/hostelbites/internal/settings"
	"github.com/MrEthical07/hostelbites/routes"
	"github.com/MrEthical07/hostelbites/storage"
)

var (
	errAccessDenied = errors.New("Access Denied") //nolint:staticcheck // printed verbatim
	errLoginNeeded  = errors.New("you are not logged in: run `hostelbites login`")
)

// cli holds what one invocation opens and must release.
type cli struct {
	env func(string) (string, bool)

	configPath string
	verbose    bool

	styles   styles
	settings *settings.File
	logger   *zap.Logger
	store    storage.Store
	app      *hostelbites.App
}

func newCLI(env func(string) (string, bool)) *cli {
	return &cli{
		env:    env,
		styles: newStyles(),
		logger: zap.NewNop(),
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hostelbites",
		Short: "Order snacks from hostel sellers",
		Long: `hostelbites talks to the marketplace backend on your behalf.

Your session and cart are kept between runs in the configured state store
(SQLite by default). Buyers browse, fill a single-seller cart and check out;
sellers manage listings, stock and incoming orders.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.open,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", settings.DefaultPath(), "path to config.yaml")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.productsCmd(),
		c.sellersCmd(),
		c.storefrontCmd(),
		c.cartCmd(),
		c.checkoutCmd(),
		c.ordersCmd(),
		c.profileCmd(),
		c.dashboardCmd(),
		c.sellerOrdersCmd(),
		c.metricsCmd(),
		c.configCmd(),
	)
	return root
}

// open loads settings, opens storage and starts the App. Every backend request
// of one invocation carries the same correlation id.
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	requestID := uuid.NewString()
	cmd.SetContext(hostelbites.WithRequestID(cmd.Context(), requestID))

	f, err := settings.Load(c.configPath)
	if err != nil {
		return err
	}
	f.ApplyEnv(c.env)
	c.settings = f

	logger, err := f.Logger(c.verbose)
	if err != nil {
		return err
	}
	c.logger = logger.With(zap.String("request_id", requestID))

	// config subcommands work without a reachable store
	if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
		return nil
	}

	cfg, err := f.Config()
	if err != nil {
		return err
	}
	store, err := f.OpenStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("open %s storage: %w", f.Storage.Backend, err)
	}
	c.store = store

	app, err := hostelbites.New().
		WithConfig(cfg).
		WithStorage(store).
		WithLogger(c.logger).
		WithEventSink(hostelbites.NewZapSink(c.logger)).
		Build()
	if err != nil {
		return err
	}
	c.app = app
	return app.Start(cmd.Context())
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("close storage", zap.Error(err))
		}
	}
	_ = c.logger.Sync()
}

// gate runs the route check a page at path would run before rendering.
func (c *cli) gate(cmd *cobra.Command, path string) error {
	switch v := c.app.Authorize(cmd.Context(), path); v {
	case routes.ViewAllowed:
		return nil
	case routes.ViewAccessDenied:
		return errAccessDenied
	case routes.ViewLogin:
		return errLoginNeeded
	default:
		return fmt.Errorf("session not ready (%s)", v)
	}
}

// gated wraps run so it only executes once path is allowed.
func (c *cli) gated(path string, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.gate(cmd, path); err != nil {
			return err
		}
		return run(cmd, args)
	}
}

func (c *cli) print(cmd *cobra.Command, s string) {
	writeln(cmd.OutOrStdout(), s)
}
