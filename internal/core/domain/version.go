package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// Source Bundle
// =============================================================================

// SourceBundleLocation points at uploaded artifact bytes in object storage.
type SourceBundleLocation struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Key    string `json:"key" yaml:"key"`
}

// String returns the location in s3://bucket/key form.
func (l SourceBundleLocation) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// IsZero reports whether the location is unset.
func (l SourceBundleLocation) IsZero() bool {
	return l.Bucket == "" && l.Key == ""
}

// =============================================================================
// Application Version
// =============================================================================

// ApplicationVersion is a registered, deployable build of an application.
// Labels are opaque and unique within an application.
type ApplicationVersion struct {
	ApplicationName string               `json:"application_name" yaml:"application_name"`
	VersionLabel    string               `json:"version_label" yaml:"version_label"`
	Description     string               `json:"description,omitempty" yaml:"description,omitempty"`
	SourceBundle    SourceBundleLocation `json:"source_bundle" yaml:"source_bundle"`
	CreatedAt       time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" yaml:"updated_at"`
}

// Labels returns the version labels of the given versions, in order.
func Labels(versions []ApplicationVersion) []string {
	labels := make([]string, 0, len(versions))
	for _, v := range versions {
		labels = append(labels, v.VersionLabel)
	}
	return labels
}
