package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/artpar/beanstalker/internal/core/deployment"
	coreprovider "github.com/artpar/beanstalker/internal/core/provider"
	"github.com/artpar/beanstalker/internal/shell/deployer"
	"github.com/artpar/beanstalker/internal/shell/metrics"
)

type deployOpts struct {
	*rootOpts
	deployment   string
	artifact     string
	application  string
	environment  string
	template     string
	versionLabel string
	output       string
}

func newDeploy(parent *rootOpts) *deployOpts {
	return &deployOpts{rootOpts: parent}
}

func (opts *deployOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload an artifact and roll it out to an environment.",
		Example: `  beanstalker deploy --deployment production --version-label 1.4.0
  beanstalker deploy --artifact build/shop.war --application shop --environment shop-prod --version-label 1.5-SNAPSHOT`,
		Args: cobra.NoArgs,
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.deployment, "deployment", "d", "", "named deployment from the config file")
	cmd.Flags().StringVarP(&opts.artifact, "artifact", "f", "", "path of the artifact to upload")
	cmd.Flags().StringVarP(&opts.application, "application", "a", "", "application name")
	cmd.Flags().StringVarP(&opts.environment, "environment", "e", "", "environment name")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "configuration template used when creating the environment")
	cmd.Flags().StringVarP(&opts.versionLabel, "version-label", "l", "", "version label; a -SNAPSHOT suffix is replaced by a timestamp")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	return cmd
}

func (opts *deployOpts) RunE(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(opts.output); err != nil {
		return commandError("deploy", err)
	}

	target, err := opts.cfg.Deployment(opts.deployment)
	if err != nil {
		return commandError("deploy", err)
	}

	req := deployer.Request{
		ArtifactPath: coreprovider.Coalesce(opts.artifact, target.Artifact),
		Application:  coreprovider.Coalesce(opts.application, target.Application),
		Environment:  coreprovider.Coalesce(opts.environment, target.Environment),
		Template:     coreprovider.Coalesce(opts.template, target.Template),
		VersionLabel: deployment.ResolveVersionLabel(opts.versionLabel, opts.now()),
	}
	if err := req.Validate(); err != nil {
		return commandError("deploy", err)
	}

	ctx, cancel := opts.runContext(cmd.Context())
	defer cancel()

	hosting, storage, err := opts.connect(ctx, opts.cfg.PlatformSettings(target), opts.logger)
	if err != nil {
		return commandError("connect", err)
	}

	recorder := metrics.NewRecorder()
	defer opts.pushMetrics(recorder, req.Application)

	cfg := deployer.Config{Sweep: opts.cfg.SweepConfig(), Now: opts.now}
	result, err := deployer.New(hosting, storage, cfg, recorder, opts.logger).Deploy(ctx, req)
	if err != nil {
		return commandError("deploy", err)
	}

	if cleanupErr := result.Cleanup.Err(); cleanupErr != nil {
		opts.logger.Warn("deployment succeeded but some old versions were not removed",
			"application", req.Application,
			"failures", len(result.Cleanup.Failures),
			"error", cleanupErr,
		)
	}

	return writeOutput(opts.stdout, opts.output, result, func(w io.Writer) error {
		fmt.Fprintf(w, "Deployed %s version %s to %s (%s)\n",
			req.Application, result.Version.VersionLabel, req.Environment, result.Environment.Action)
		fmt.Fprintf(w, "Source bundle: %s\n", result.Bundle.String())
		fmt.Fprintf(w, "Removed %d old version(s), skipped %d deployed, %d failed\n",
			len(result.Cleanup.Removed), len(result.Cleanup.Protected), len(result.Cleanup.Failures))
		return nil
	})
}
