package deployment

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// Version Labels
// =============================================================================

const (
	snapshotSuffix = "-SNAPSHOT"

	// SnapshotTimeLayout replaces SNAPSHOT in snapshot labels.
	SnapshotTimeLayout = "20060102.150405"

	// MaxVersionLabelLength is the platform's limit for version labels.
	MaxVersionLabelLength = 100
)

var (
	ErrEmptyVersionLabel   = errors.New("version label is required")
	ErrVersionLabelTooLong = errors.New("version label exceeds 100 characters")
)

// ResolveVersionLabel turns a build version into a unique version label.
// Snapshot versions (ending in -SNAPSHOT) get SNAPSHOT replaced by the
// given time so repeated snapshot deployments do not collide. Other
// versions are returned unchanged.
//
// Example:
//
//	ResolveVersionLabel("1.4-SNAPSHOT", t) // returns "1.4-20240301.120000"
//	ResolveVersionLabel("1.4", t)          // returns "1.4"
func ResolveVersionLabel(version string, now time.Time) string {
	if !strings.HasSuffix(version, snapshotSuffix) {
		return version
	}
	return strings.TrimSuffix(version, "SNAPSHOT") + now.Format(SnapshotTimeLayout)
}

// ValidateVersionLabel checks a label against the platform's constraints.
func ValidateVersionLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return ErrEmptyVersionLabel
	}
	if len(label) > MaxVersionLabelLength {
		return ErrVersionLabelTooLong
	}
	return nil
}
