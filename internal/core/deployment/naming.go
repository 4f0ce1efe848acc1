package deployment

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// =============================================================================
// Storage Naming Functions
// =============================================================================

// StorageKey derives the object key for an artifact from its file name.
// The base name is form-URL-encoded so the key only holds safe characters.
//
// Example:
//
//	StorageKey("/build/libs/shop.war")     // returns "shop.war"
//	StorageKey("/build/my app#1.war")      // returns "my+app%231.war"
func StorageKey(artifactPath string) string {
	return url.QueryEscape(filepath.Base(artifactPath))
}

// VersionDescription builds the audit description attached to a new version.
// Pattern: {applicationName} via beanstalker deployment on {RFC3339 UTC}
//
// Example:
//
//	VersionDescription("shop", t) // returns "shop via beanstalker deployment on 2024-03-01T12:00:00Z"
func VersionDescription(applicationName string, at time.Time) string {
	return fmt.Sprintf("%s via beanstalker deployment on %s", applicationName, at.UTC().Format(time.RFC3339))
}
