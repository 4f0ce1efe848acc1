package deployer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/artpar/beanstalker/internal/core/deployment"
	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

// Uploader pushes local build artifacts to object storage.
type Uploader struct {
	storage platform.Storage
	logger  *slog.Logger
}

// NewUploader creates an artifact uploader.
func NewUploader(storage platform.Storage, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		storage: storage,
		logger:  logger.With("component", "uploader"),
	}
}

// Upload stores the artifact at artifactPath and returns where it went.
// A missing artifact fails with *domain.ArtifactNotFoundError before any
// call to the storage service.
func (u *Uploader) Upload(ctx context.Context, artifactPath string) (domain.SourceBundleLocation, error) {
	info, err := os.Stat(artifactPath)
	if err != nil || info.IsDir() {
		return domain.SourceBundleLocation{}, &domain.ArtifactNotFoundError{Path: artifactPath}
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return domain.SourceBundleLocation{}, fmt.Errorf("failed to open artifact %s: %w", artifactPath, err)
	}
	defer f.Close()

	bucket, err := u.storage.CreateOrGetBucket(ctx)
	if err != nil {
		return domain.SourceBundleLocation{}, err
	}

	loc := domain.SourceBundleLocation{
		Bucket: bucket,
		Key:    deployment.StorageKey(artifactPath),
	}

	u.logger.Info("uploading artifact", "artifact", artifactPath, "location", loc.String(), "size_bytes", info.Size())

	if err := u.storage.PutObject(ctx, loc.Bucket, loc.Key, f, info.Size()); err != nil {
		return domain.SourceBundleLocation{}, err
	}

	return loc, nil
}
