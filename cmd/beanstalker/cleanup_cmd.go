package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/artpar/beanstalker/internal/core/domain"
	coreprovider "github.com/artpar/beanstalker/internal/core/provider"
	"github.com/artpar/beanstalker/internal/core/retention"
	"github.com/artpar/beanstalker/internal/shell/deployer"
	"github.com/artpar/beanstalker/internal/shell/metrics"
)

var errApplicationRequired = errors.New("application is required")

type cleanupOpts struct {
	*rootOpts
	deployment  string
	application string
	keep        int
	dryRun      bool
	output      string
}

func newCleanup(parent *rootOpts) *cleanupOpts {
	return &cleanupOpts{rootOpts: parent}
}

func (opts *cleanupOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old application versions that no environment runs.",
		Example: `  beanstalker cleanup --application shop --dry-run
  beanstalker cleanup --deployment production --keep 10 --output json`,
		Args: cobra.NoArgs,
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.deployment, "deployment", "d", "", "named deployment from the config file")
	cmd.Flags().StringVarP(&opts.application, "application", "a", "", "application name")
	cmd.Flags().IntVarP(&opts.keep, "keep", "k", retention.DefaultKeep, "number of most recent versions to keep")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only report what would be removed")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}

func (opts *cleanupOpts) RunE(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(opts.output); err != nil {
		return commandError("cleanup", err)
	}

	target, err := opts.cfg.Deployment(opts.deployment)
	if err != nil {
		return commandError("cleanup", err)
	}
	application := coreprovider.Coalesce(opts.application, target.Application)
	if application == "" {
		return commandError("cleanup", errApplicationRequired)
	}

	sweep := opts.cfg.SweepConfig()
	if cmd.Flags().Changed("keep") {
		sweep.Keep = opts.keep
	}

	ctx, cancel := opts.runContext(cmd.Context())
	defer cancel()

	hosting, storage, err := opts.connect(ctx, opts.cfg.PlatformSettings(target), opts.logger)
	if err != nil {
		return commandError("connect", err)
	}

	recorder := metrics.NewRecorder()
	d := deployer.New(hosting, storage, deployer.Config{Sweep: sweep, Now: opts.now}, recorder, opts.logger)

	if opts.dryRun {
		decision, err := d.PlanCleanup(ctx, application)
		if err != nil {
			return commandError("plan cleanup", err)
		}
		return writeOutput(opts.stdout, opts.output, decision, func(w io.Writer) error {
			return writeDecision(w, decision)
		})
	}

	defer opts.pushMetrics(recorder, application)

	result, err := d.DeleteOldVersions(ctx, application)
	if err != nil {
		return commandError("cleanup", err)
	}

	if err := writeOutput(opts.stdout, opts.output, result, func(w io.Writer) error {
		return writeSweep(w, result)
	}); err != nil {
		return err
	}

	if failed := result.Err(); failed != nil {
		return &CommandError{
			Op:       "cleanup",
			Err:      fmt.Errorf("%d version(s) could not be removed: %w", len(result.Failures), failed),
			ExitCode: ExitCleanupFailures,
		}
	}
	return nil
}

func writeDecision(w io.Writer, decision *retention.Decision) error {
	out := newTabwriter(w)
	fmt.Fprintln(out, "VERSION\tUPDATED\tACTION")
	rows := []struct {
		action   string
		versions []domain.ApplicationVersion
	}{
		{"delete", decision.Delete},
		{"protected", decision.Protected},
		{"keep", decision.Keep},
	}
	for _, row := range rows {
		for _, v := range row.versions {
			fmt.Fprintf(out, "%s\t%s\t%s\n", v.VersionLabel, v.UpdatedAt.UTC().Format("2006-01-02 15:04:05"), row.action)
		}
	}
	return out.Flush()
}

func writeSweep(w io.Writer, result *deployer.SweepResult) error {
	out := newTabwriter(w)
	fmt.Fprintln(out, "VERSION\tOUTCOME")
	for _, label := range result.Removed {
		fmt.Fprintf(out, "%s\t%s\n", label, metrics.OutcomeRemoved)
	}
	for _, label := range result.Protected {
		fmt.Fprintf(out, "%s\t%s\n", label, metrics.OutcomeProtected)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "%s\t%s: %s\n", f.Label, metrics.OutcomeFailed, f.Error)
	}
	if err := out.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d versions were candidates in %s\n", result.Candidates, result.Total, result.Duration)
	return err
}
