package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/core/retention"
	"github.com/artpar/beanstalker/internal/shell/metrics"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

// SweepConfig configures the cleanup sweep.
type SweepConfig struct {
	Keep              int
	Concurrency       int
	RequestsPerSecond float64 // 0 disables rate limiting
}

// DefaultSweepConfig returns default configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Keep:        retention.DefaultKeep,
		Concurrency: 1,
	}
}

// VersionFailure is a candidate whose deletion failed.
type VersionFailure struct {
	Label string `json:"label" yaml:"label"`
	Error string `json:"error" yaml:"error"`
	Err   error  `json:"-" yaml:"-"`
}

// SweepResult holds the outcome of one cleanup sweep.
type SweepResult struct {
	Application string           `json:"application" yaml:"application"`
	Total       int              `json:"total_versions" yaml:"total_versions"`
	Candidates  int              `json:"candidates" yaml:"candidates"`
	Removed     []string         `json:"removed" yaml:"removed"`
	Protected   []string         `json:"protected" yaml:"protected"`
	Failures    []VersionFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duration    time.Duration    `json:"duration" yaml:"duration"`
}

// Err joins the per-version failures, or returns nil when there were none.
func (r *SweepResult) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Sweeper prunes old application versions, sparing deployed ones.
type Sweeper struct {
	hosting  platform.Hosting
	scanner  *Scanner
	config   SweepConfig
	limiter  *rate.Limiter
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewSweeper creates a cleanup sweeper.
func NewSweeper(hosting platform.Hosting, config SweepConfig, recorder *metrics.Recorder, logger *slog.Logger) *Sweeper {
	if config.Keep < 0 {
		config.Keep = 0
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Sweeper{
		hosting:  hosting,
		scanner:  NewScanner(hosting, logger),
		config:   config,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger.With("component", "sweeper"),
	}
}

// Plan computes the retention decision for an application without deleting.
func (s *Sweeper) Plan(ctx context.Context, application string) (*retention.Decision, error) {
	versions, err := s.hosting.ListVersions(ctx, application)
	if err != nil {
		return nil, err
	}
	deployed, err := s.scanner.DeployedLabels(ctx, application)
	if err != nil {
		return nil, err
	}
	decision := retention.Plan(versions, s.config.Keep, deployed)
	return &decision, nil
}

// Sweep deletes the versions beyond the retention count together with their
// source bundles. Candidates still assigned to an environment are skipped and
// reported as protected. A failed deletion is recorded and does not stop the
// others; only listing failures abort the sweep.
func (s *Sweeper) Sweep(ctx context.Context, application string) (*SweepResult, error) {
	start := time.Now()
	result := &SweepResult{
		Application: application,
		Removed:     []string{},
		Protected:   []string{},
	}

	versions, err := s.hosting.ListVersions(ctx, application)
	if err != nil {
		return nil, err
	}
	result.Total = len(versions)

	candidates := retention.VersionsToRemove(versions, s.config.Keep)
	result.Candidates = len(candidates)

	s.logger.Info("removing oldest versions",
		"application", application,
		"candidates", len(candidates),
		"total", len(versions),
		"keep", s.config.Keep,
	)

	if len(candidates) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	deployed, err := s.scanner.DeployedLabels(ctx, application)
	if err != nil {
		return nil, err
	}

	var toDelete []domain.ApplicationVersion
	for _, v := range candidates {
		if retention.IsDeployed(v.VersionLabel, deployed) {
			s.logger.Info("not removing version because it is deployed", "application", application, "version_label", v.VersionLabel)
			result.Protected = append(result.Protected, v.VersionLabel)
			continue
		}
		toDelete = append(toDelete, v)
	}

	errs := s.deleteAll(ctx, application, toDelete)
	for i, v := range toDelete {
		if errs[i] != nil {
			result.Failures = append(result.Failures, VersionFailure{
				Label: v.VersionLabel,
				Error: errs[i].Error(),
				Err:   errs[i],
			})
			continue
		}
		result.Removed = append(result.Removed, v.VersionLabel)
	}

	s.recorder.AddVersions(metrics.OutcomeRemoved, len(result.Removed))
	s.recorder.AddVersions(metrics.OutcomeProtected, len(result.Protected))
	s.recorder.AddVersions(metrics.OutcomeFailed, len(result.Failures))

	result.Duration = time.Since(start)
	s.logger.Info("version cleanup completed",
		"application", application,
		"removed", len(result.Removed),
		"protected", len(result.Protected),
		"errors", len(result.Failures),
		"duration", result.Duration,
	)

	return result, nil
}

// deleteAll deletes versions with bounded concurrency. The returned slice
// holds one error (or nil) per version, in input order.
func (s *Sweeper) deleteAll(ctx context.Context, application string, versions []domain.ApplicationVersion) []error {
	errs := make([]error, len(versions))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.config.Concurrency)

	for i := range versions {
		label := versions[i].VersionLabel
		g.Go(func() error {
			err := s.deleteOne(ctx, application, label)
			mu.Lock()
			errs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func (s *Sweeper) deleteOne(ctx context.Context, application, label string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("failed to delete version %s: %w", label, err)
		}
	}

	s.logger.Info("deleting application version", "application", application, "version_label", label)

	if err := s.hosting.DeleteVersion(ctx, application, label, true); err != nil {
		s.logger.Error("failed to delete application version",
			"application", application,
			"version_label", label,
			"error", err,
		)
		return err
	}
	return nil
}
