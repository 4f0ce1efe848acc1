package deployer

import (
	"context"
	"log/slog"

	"github.com/artpar/beanstalker/internal/shell/platform"
)

// Scanner finds the version labels currently assigned to environments.
type Scanner struct {
	hosting platform.Hosting
	logger  *slog.Logger
}

// NewScanner creates a deployed-version scanner.
func NewScanner(hosting platform.Hosting, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		hosting: hosting,
		logger:  logger.With("component", "scanner"),
	}
}

// DeployedLabels returns the set of labels assigned to any environment of
// the application. Environments without a label (still launching) are skipped.
func (s *Scanner) DeployedLabels(ctx context.Context, application string) (map[string]struct{}, error) {
	envs, err := s.hosting.DescribeEnvironments(ctx, platform.EnvironmentFilter{Application: application})
	if err != nil {
		return nil, err
	}

	deployed := make(map[string]struct{}, len(envs))
	for _, env := range envs {
		if !env.HasVersion() {
			continue
		}
		deployed[env.VersionLabel] = struct{}{}
	}

	s.logger.Debug("found deployed versions", "application", application, "environments", len(envs), "labels", len(deployed))
	return deployed, nil
}
