// Package platform implements the hosting and object storage service clients.
// This is part of the Imperative Shell - handles I/O with the AWS APIs.
package platform

import (
	"context"
	"io"

	"github.com/artpar/beanstalker/internal/core/domain"
)

// EnvironmentFilter narrows DescribeEnvironments. Empty fields match all.
type EnvironmentFilter struct {
	Application string
	Names       []string
}

// CreateEnvironmentRequest contains parameters for launching an environment.
type CreateEnvironmentRequest struct {
	Application  string
	Environment  string
	TemplateName string
	VersionLabel string
}

// UpdateEnvironmentRequest reassigns the version of an existing environment.
// Name and template are left untouched on the platform side.
type UpdateEnvironmentRequest struct {
	Environment  string
	VersionLabel string
}

// CreateVersionRequest contains parameters for registering a version.
type CreateVersionRequest struct {
	Application           string
	VersionLabel          string
	Description           string
	SourceBundle          domain.SourceBundleLocation
	AutoCreateApplication bool
}

// Hosting defines the application hosting service used by the deployer.
type Hosting interface {
	// ListVersions returns every registered version of an application.
	ListVersions(ctx context.Context, application string) ([]domain.ApplicationVersion, error)

	// DeleteVersion deletes a version, optionally with its source bundle.
	DeleteVersion(ctx context.Context, application, label string, deleteSourceBundle bool) error

	// DescribeEnvironments returns the live environments matching the filter.
	DescribeEnvironments(ctx context.Context, filter EnvironmentFilter) ([]domain.Environment, error)

	// CreateEnvironment launches a new environment running a version.
	CreateEnvironment(ctx context.Context, req CreateEnvironmentRequest) (*domain.Environment, error)

	// UpdateEnvironment starts moving an environment to another version.
	UpdateEnvironment(ctx context.Context, req UpdateEnvironmentRequest) (*domain.Environment, error)

	// CreateApplicationVersion registers an uploaded bundle as a version.
	CreateApplicationVersion(ctx context.Context, req CreateVersionRequest) (*domain.ApplicationVersion, error)
}

// Storage defines the object storage service used for artifacts.
type Storage interface {
	// CreateOrGetBucket returns the bucket dedicated to deployment artifacts.
	CreateOrGetBucket(ctx context.Context) (string, error)

	// PutObject uploads size bytes from body under bucket/key.
	PutObject(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64) error
}
