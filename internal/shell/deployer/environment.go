package deployer

import (
	"context"
	"log/slog"

	"github.com/artpar/beanstalker/internal/core/deployment"
	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

// EnvironmentResult describes the request issued for an environment.
type EnvironmentResult struct {
	Action      deployment.EnvironmentAction `json:"action" yaml:"action"`
	Environment *domain.Environment          `json:"environment" yaml:"environment"`
}

// EnvironmentUpdater creates or updates the environment running a version.
type EnvironmentUpdater struct {
	hosting platform.Hosting
	logger  *slog.Logger
}

// NewEnvironmentUpdater creates an environment updater.
func NewEnvironmentUpdater(hosting platform.Hosting, logger *slog.Logger) *EnvironmentUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnvironmentUpdater{
		hosting: hosting,
		logger:  logger.With("component", "environment_updater"),
	}
}

// Apply points environment at version label. When no such environment exists
// for the application it is created from template; otherwise only its
// version is changed. The platform carries out the change asynchronously
// and Apply does not wait for it.
func (u *EnvironmentUpdater) Apply(ctx context.Context, application, environment, template, label string) (*EnvironmentResult, error) {
	u.logger.Debug("describing environments", "application", application, "environment", environment)

	existing, err := u.hosting.DescribeEnvironments(ctx, platform.EnvironmentFilter{
		Application: application,
		Names:       []string{environment},
	})
	if err != nil {
		return nil, err
	}

	action := deployment.DecideEnvironmentAction(existing, environment)
	result := &EnvironmentResult{Action: action}

	switch action {
	case deployment.ActionCreate:
		u.logger.Info("creating environment with uploaded version",
			"application", application,
			"environment", environment,
			"template", template,
			"version_label", label,
		)
		result.Environment, err = u.hosting.CreateEnvironment(ctx, platform.CreateEnvironmentRequest{
			Application:  application,
			Environment:  environment,
			TemplateName: template,
			VersionLabel: label,
		})
	default:
		u.logger.Info("updating environment with uploaded version",
			"application", application,
			"environment", environment,
			"version_label", label,
		)
		result.Environment, err = u.hosting.UpdateEnvironment(ctx, platform.UpdateEnvironmentRequest{
			Environment:  environment,
			VersionLabel: label,
		})
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}
