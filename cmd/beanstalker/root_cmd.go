package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/beanstalker/internal/shell/metrics"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

const pushTimeout = 10 * time.Second

// connectFunc opens the hosting and storage clients for a deployment target.
type connectFunc func(ctx context.Context, s platform.Settings, logger *slog.Logger) (platform.Hosting, platform.Storage, error)

type rootOpts struct {
	configPath string
	timeout    time.Duration

	stdout io.Writer
	stderr io.Writer

	cfg     *Config
	logger  *slog.Logger
	connect connectFunc
	now     func() time.Time
}

func newRoot(stdout, stderr io.Writer) *rootOpts {
	return &rootOpts{
		stdout:  stdout,
		stderr:  stderr,
		connect: connectAWS,
		now:     time.Now,
	}
}

var rootLongHelp = strings.TrimSpace(`
beanstalker deploys build artifacts to Elastic Beanstalk.

Workflow:
  beanstalker deploy --deployment production --version-label 1.4.0   # Upload, register, roll out, prune.
  beanstalker cleanup --application shop --dry-run                   # Which versions would be pruned?
  beanstalker cleanup --application shop --keep 10                   # Prune old versions now.
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "beanstalker",
		Long:              rootLongHelp,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.PersistentPreRunE,
	}
	cmd.SetOut(opts.stdout)
	cmd.SetErr(opts.stderr)

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "abort the run after this long (0 for no limit)")

	cmd.AddCommand(
		newDeploy(opts).Command(),
		newCleanup(opts).Command(),
		newVersion(opts).Command(),
	)

	return cmd
}

func (opts *rootOpts) PersistentPreRunE(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return &CommandError{Op: "load config", Err: err, ExitCode: ExitConfigError}
	}
	opts.cfg = cfg
	opts.logger = SetupLogger(cfg, opts.stderr)
	return nil
}

// runContext returns the run context, bounded by --timeout when set.
func (opts *rootOpts) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if opts.timeout > 0 {
		return context.WithTimeout(parent, opts.timeout)
	}
	return context.WithCancel(parent)
}

// pushMetrics sends the run's metrics when a Pushgateway is configured.
// Failures are logged by the pusher and otherwise ignored.
func (opts *rootOpts) pushMetrics(recorder *metrics.Recorder, application string) {
	pusher := metrics.NewPusher(opts.cfg.Metrics.PushgatewayURL, opts.cfg.Metrics.Job, opts.logger)
	if pusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	_ = pusher.Push(ctx, recorder, application)
}

func connectAWS(ctx context.Context, s platform.Settings, logger *slog.Logger) (platform.Hosting, platform.Storage, error) {
	creds, err := platform.NewCredentials(ctx, s.Region, s.Credentials)
	if err != nil {
		return nil, nil, err
	}
	clients, err := platform.NewClients(ctx, s, creds, logger)
	if err != nil {
		return nil, nil, err
	}
	return clients.Hosting, clients.Storage, nil
}

// =============================================================================
// version
// =============================================================================

type versionOpts struct {
	*rootOpts
}

func newVersion(parent *rootOpts) *versionOpts {
	return &versionOpts{rootOpts: parent}
}

func (opts *versionOpts) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit.",
		Args:  cobra.NoArgs,
		// Skips config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(opts.stdout, "beanstalker %s (built %s)\n", Version, BuildTime)
			return nil
		},
	}
}
