// Package cli implements the rentledger command line on top of the core
// service. Every invocation opens a runtime, runs one command and closes it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"rentledger/internal/blob"
	"rentledger/internal/config"
	"rentledger/internal/core"
	"rentledger/internal/logging"

	"github.com/spf13/cobra"
)

// Runtime is what commands operate on.
type Runtime struct {
	Service  *core.Service
	Session  *core.Session
	Blobs    func(ctx context.Context) (blob.Store, error)
	Currency string
	Close    func() error
}

// Opener builds the runtime for one invocation.
type Opener func(ctx context.Context, cfg config.Config) (*Runtime, error)

// Loader returns the configuration for one invocation.
type Loader func() (config.Config, error)

type app struct {
	load Loader
	open Opener
	rt   *Runtime
}

func (a *app) start(ctx context.Context) error {
	if a.rt != nil {
		return nil
	}
	cfg, err := a.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rt, err := a.open(ctx, cfg)
	if err != nil {
		return err
	}
	if rt.Currency == "" {
		rt.Currency = cfg.Currency
	}
	a.rt = rt
	return nil
}

func (a *app) close() error {
	if a.rt == nil || a.rt.Close == nil {
		return nil
	}
	err := a.rt.Close()
	a.rt = nil
	return err
}

// authed wraps run so it only executes for a logged in user.
func (a *app) authed(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if _, err := a.rt.Session.Require(); err != nil {
			return fmt.Errorf("%w: run `rentledger user login` first", err)
		}
		return run(cmd, args)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rentledger",
		Short:         "Track rental properties, tenants and rent payments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.start(cmd.Context())
		},
	}
	root.AddCommand(
		propertyCmd(a),
		tenantCmd(a),
		paymentCmd(a),
		todoCmd(a),
		userCmd(a),
		summaryCmd(a),
		seedCmd(a),
		backupCmd(a),
	)
	return root
}

// Run executes the command line in args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, load Loader, open Opener) int {
	a := &app{load: load, open: open}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// DefaultOpener wires the service, session and blob store selected by cfg.
func DefaultOpener(ctx context.Context, cfg config.Config) (*Runtime, error) {
	logger := logging.New("rentledger", os.Stderr)
	if cfg.LogLevel != "" {
		logger.SetLevel(logging.ParseLevel(logger, cfg.LogLevel))
	}
	metrics, err := core.NewMetricsRecorder(cfg.Metrics, nil)
	if err != nil {
		return nil, err
	}
	svc := core.NewService(core.BackendOpenerFor(cfg),
		core.WithLogger(logging.Component(logger, "core")),
		core.WithMetricsRecorder(metrics),
	)
	sessions, closeSessions, err := core.OpenSessionStore(ctx, cfg)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	session, err := svc.StartSession(ctx, sessions)
	if err != nil {
		_ = closeSessions()
		_ = svc.Close()
		return nil, err
	}
	return &Runtime{
		Service:  svc,
		Session:  session,
		Currency: cfg.Currency,
		Blobs: func(ctx context.Context) (blob.Store, error) {
			return blob.Open(ctx, blobConfig(cfg))
		},
		Close: func() error { return errors.Join(closeSessions(), svc.Close()) },
	}, nil
}

func blobConfig(cfg config.Config) blob.Config {
	return blob.Config{
		Driver: blob.Driver(cfg.BlobDriver),
		FSRoot: cfg.BlobFSRoot,
		S3: blob.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			SessionToken:    cfg.S3SessionTok,
			PathStyle:       cfg.S3PathStyle,
		},
	}
}
