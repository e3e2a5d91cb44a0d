// Package cli implements the coursebook command-line front end.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/coursebook/internal/api"
	"github.com/me/coursebook/internal/apiclient"
	"github.com/me/coursebook/internal/config"
	"github.com/me/coursebook/internal/logging"
	"github.com/me/coursebook/internal/session"
	"github.com/me/coursebook/internal/storage"
)

type flags struct {
	server    string
	config    string
	storage   string
	stateDir  string
	debug     bool
	logLevel  string
	logFormat string
}

// app holds what commands share. It is populated in PersistentPreRunE.
type app struct {
	flags flags

	cfg     config.ClientConfig
	logger  *slog.Logger
	storage storage.Storage
	session *session.Store
	client  *apiclient.Client
	api     *api.API

	// injected by tests
	fixedStorage  storage.Storage
	clientOptions []apiclient.Option
	logWriter     io.Writer
}

// Option configures the root command.
type Option func(*app)

// WithStorage makes every command use st instead of the configured backend.
// The caller keeps ownership and must close it.
func WithStorage(st storage.Storage) Option {
	return func(a *app) {
		a.fixedStorage = st
	}
}

// WithClientOptions passes extra options to the API client.
func WithClientOptions(opts ...apiclient.Option) Option {
	return func(a *app) {
		a.clientOptions = append(a.clientOptions, opts...)
	}
}

// WithLogWriter sends log output to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(a *app) {
		a.logWriter = w
	}
}

// NewRootCmd creates the root cobra command for the coursebook CLI. The
// returned cleanup closes the session storage the command opened; call it
// once the command has run.
func NewRootCmd(opts ...Option) (*cobra.Command, func() error) {
	root, a := newRoot(opts...)
	return root, a.close
}

// Execute runs the CLI with os.Args and closes the session storage
// afterwards.
func Execute(ctx context.Context, opts ...Option) error {
	root, cleanup := NewRootCmd(opts...)
	err := root.ExecuteContext(ctx)
	if cerr := cleanup(); err == nil {
		err = cerr
	}
	return err
}

func newRoot(opts ...Option) (*cobra.Command, *app) {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "coursebook",
		Short: "coursebook - browse and book courses",
		Long:  "coursebook browses the course catalog, manages your enrollments and, for admins, the course back office.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.server, "server", "", "Course API URL (or COURSEBOOK_SERVER env)")
	pf.StringVar(&a.flags.config, "config", "", "Config file (default ~/.coursebook/config.yaml)")
	pf.StringVar(&a.flags.storage, "storage", "", "Session storage: file, sqlite, redis, memory (or COURSEBOOK_STORAGE env)")
	pf.StringVar(&a.flags.stateDir, "state-dir", "", "Directory for file and sqlite session storage")
	pf.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newDashboardCmd(a),
		newCoursesCmd(a),
		newProfileCmd(a),
		newUsersCmd(a),
		newAdminCmd(a),
	)

	return root, a
}

// setup builds config, logger, storage, session and client, in that order.
func (a *app) setup(cmd *cobra.Command) error {
	if a.session != nil {
		return nil
	}
	cfg, err := config.Load(a.flags.config)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	if a.logWriter != nil {
		a.logger = logging.NewWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, a.logWriter)
	} else {
		a.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if a.fixedStorage != nil {
		a.storage = a.fixedStorage
	} else {
		st, err := storage.Open(ctx, cfg, a.logger)
		if err != nil {
			return fmt.Errorf("open session storage: %w", err)
		}
		a.storage = st
	}

	a.session = session.NewStore(a.storage, nil, a.logger)
	a.session.Restore(ctx)

	a.client = apiclient.New(apiclient.Config{
		BaseURL: cfg.Server,
		Timeout: cfg.Timeout,
		Retry: apiclient.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			MaxDelay:   cfg.RetryMaxDelay,
		},
	}, a.session, a.logger, a.clientOptions...)
	a.api = api.New(a.client, a.session)
	a.session.SetAuthenticator(a.api.Auth)

	a.logger.Debug("client ready", "server", cfg.Server, "storage", cfg.Storage, "state", a.session.State())
	return nil
}

// applyFlags lets explicitly set flags override file and environment.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.ClientConfig) {
	changed := cmd.Flags().Changed
	if changed("server") {
		cfg.Server = a.flags.server
	}
	if changed("storage") {
		cfg.Storage = a.flags.storage
	}
	if changed("state-dir") {
		cfg.StateDir = a.flags.stateDir
	}
	if changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if a.flags.debug {
		cfg.LogLevel = "debug"
	}
}

func (a *app) close() error {
	if a.storage == nil || a.storage == a.fixedStorage {
		return nil
	}
	err := a.storage.Close()
	a.storage = nil
	return err
}
