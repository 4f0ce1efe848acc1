package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/core/retention"
	"github.com/artpar/beanstalker/internal/shell/metrics"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

// Step names, used as log fields and metric labels.
const (
	StepUpload      = "upload"
	StepRegister    = "register"
	StepEnvironment = "environment"
	StepCleanup     = "cleanup"
)

// ErrInvalidRequest is returned when a deploy request is missing a field.
var ErrInvalidRequest = errors.New("invalid deploy request")

// =============================================================================
// Configuration
// =============================================================================

// Config holds deployer configuration.
type Config struct {
	Sweep SweepConfig
	Now   func() time.Time // nil uses time.Now
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{Sweep: DefaultSweepConfig()}
}

// =============================================================================
// Request / Result
// =============================================================================

// Request describes one deployment.
type Request struct {
	ArtifactPath string
	Application  string
	Environment  string
	Template     string
	VersionLabel string
}

// Validate checks that every required field is set.
func (r Request) Validate() error {
	var missing []string
	if r.ArtifactPath == "" {
		missing = append(missing, "artifact")
	}
	if r.Application == "" {
		missing = append(missing, "application")
	}
	if r.Environment == "" {
		missing = append(missing, "environment")
	}
	if r.VersionLabel == "" {
		missing = append(missing, "version label")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Result is the outcome of a successful deployment.
type Result struct {
	RunID       string                      `json:"run_id" yaml:"run_id"`
	Bundle      domain.SourceBundleLocation `json:"source_bundle" yaml:"source_bundle"`
	Version     *domain.ApplicationVersion  `json:"version" yaml:"version"`
	Environment *EnvironmentResult          `json:"environment" yaml:"environment"`
	Cleanup     *SweepResult                `json:"cleanup" yaml:"cleanup"`
	Duration    time.Duration               `json:"duration" yaml:"duration"`
}

// =============================================================================
// Deployer
// =============================================================================

// Deployer runs the deployment sequence against the hosting platform.
type Deployer struct {
	uploader  *Uploader
	registrar *Registrar
	updater   *EnvironmentUpdater
	sweeper   *Sweeper
	recorder  *metrics.Recorder
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a deployer. recorder may be nil.
func New(hosting platform.Hosting, storage platform.Storage, cfg Config, recorder *metrics.Recorder, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Deployer{
		uploader:  NewUploader(storage, logger),
		registrar: NewRegistrar(hosting, now, logger),
		updater:   NewEnvironmentUpdater(hosting, logger),
		sweeper:   NewSweeper(hosting, cfg.Sweep, recorder, logger),
		recorder:  recorder,
		now:       now,
		logger:    logger.With("component", "deployer"),
	}
}

// Deploy uploads the artifact, registers it as a version, points the
// environment at it and prunes old versions. Steps run strictly in that
// order and the first failure stops the sequence. A successful Deploy means
// the environment change was accepted; it does not wait for the rollout.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log := d.logger.With("run_id", result.RunID, "application", req.Application, "environment", req.Environment)

	log.Info("starting deployment", "artifact", req.ArtifactPath, "version_label", req.VersionLabel)

	err := d.step(log, StepUpload, func() error {
		var err error
		result.Bundle, err = d.uploader.Upload(ctx, req.ArtifactPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = d.step(log, StepRegister, func() error {
		var err error
		result.Version, err = d.registrar.Register(ctx, result.Bundle, req.Application, req.VersionLabel)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = d.step(log, StepEnvironment, func() error {
		var err error
		result.Environment, err = d.updater.Apply(ctx, req.Application, req.Environment, req.Template, result.Version.VersionLabel)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = d.step(log, StepCleanup, func() error {
		var err error
		result.Cleanup, err = d.sweeper.Sweep(ctx, req.Application)
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	log.Info("deployment completed",
		"version_label", result.Version.VersionLabel,
		"action", result.Environment.Action,
		"removed_versions", len(result.Cleanup.Removed),
		"duration", result.Duration,
	)

	return result, nil
}

// DeleteOldVersions runs the cleanup sweep on its own.
func (d *Deployer) DeleteOldVersions(ctx context.Context, application string) (*SweepResult, error) {
	if application == "" {
		return nil, fmt.Errorf("%w: missing application", ErrInvalidRequest)
	}
	var result *SweepResult
	err := d.step(d.logger.With("application", application), StepCleanup, func() error {
		var err error
		result, err = d.sweeper.Sweep(ctx, application)
		return err
	})
	return result, err
}

// PlanCleanup reports what a sweep would do without deleting anything.
func (d *Deployer) PlanCleanup(ctx context.Context, application string) (*retention.Decision, error) {
	if application == "" {
		return nil, fmt.Errorf("%w: missing application", ErrInvalidRequest)
	}
	return d.sweeper.Plan(ctx, application)
}

func (d *Deployer) step(log *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	log.Debug("step started", "step", name)

	err := fn()
	elapsed := time.Since(start)
	d.recorder.ObserveStep(name, elapsed, err)

	if err != nil {
		log.Error("step failed", "step", name, "duration", elapsed, "error", err)
		return err
	}
	log.Debug("step completed", "step", name, "duration", elapsed)
	return nil
}
