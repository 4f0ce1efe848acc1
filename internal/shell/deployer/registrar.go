package deployer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/beanstalker/internal/core/deployment"
	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

// Registrar registers uploaded bundles as application versions.
type Registrar struct {
	hosting platform.Hosting
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegistrar creates a version registrar. A nil now uses time.Now.
func NewRegistrar(hosting platform.Hosting, now func() time.Time, logger *slog.Logger) *Registrar {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		hosting: hosting,
		now:     now,
		logger:  logger.With("component", "registrar"),
	}
}

// Register creates version label of application from bundle, creating the
// application when needed. The returned version carries the label the
// platform actually assigned.
func (r *Registrar) Register(ctx context.Context, bundle domain.SourceBundleLocation, application, label string) (*domain.ApplicationVersion, error) {
	if err := deployment.ValidateVersionLabel(label); err != nil {
		return nil, fmt.Errorf("invalid version label %q: %w", label, err)
	}

	r.logger.Info("creating application version", "application", application, "version_label", label, "source_bundle", bundle.String())

	version, err := r.hosting.CreateApplicationVersion(ctx, platform.CreateVersionRequest{
		Application:           application,
		VersionLabel:          label,
		Description:           deployment.VersionDescription(application, r.now()),
		SourceBundle:          bundle,
		AutoCreateApplication: true,
	})
	if err != nil {
		return nil, err
	}

	if version.VersionLabel == "" {
		version.VersionLabel = label
	}
	if version.ApplicationName == "" {
		version.ApplicationName = application
	}

	r.logger.Info("registered application version", "application", application, "version_label", version.VersionLabel)
	return version, nil
}
