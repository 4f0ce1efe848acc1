package retention

import (
	"sort"

	"github.com/artpar/beanstalker/internal/core/domain"
)

// DefaultKeep is the number of versions kept per application.
const DefaultKeep = 20

// =============================================================================
// Retention Policy
// =============================================================================

// VersionsToRemove returns the oldest len(versions)-keep versions ordered by
// ascending UpdatedAt. Versions with equal timestamps keep their input order.
// The result is empty when there are keep or fewer versions.
//
// The input slice is never modified.
//
// Example:
//
//	// 25 versions, keep 20
//	VersionsToRemove(versions, 20) // returns the 5 least recently updated
func VersionsToRemove(versions []domain.ApplicationVersion, keep int) []domain.ApplicationVersion {
	if keep < 0 {
		keep = 0
	}
	n := len(versions) - keep
	if n <= 0 {
		return []domain.ApplicationVersion{}
	}

	sorted := make([]domain.ApplicationVersion, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})

	return sorted[:n]
}

// =============================================================================
// Retention Decision
// =============================================================================

// Decision partitions an application's versions for one cleanup run.
// It is derived on every run and never stored.
type Decision struct {
	Keep      []domain.ApplicationVersion `json:"keep" yaml:"keep"`
	Delete    []domain.ApplicationVersion `json:"delete" yaml:"delete"`
	Protected []domain.ApplicationVersion `json:"protected" yaml:"protected"`
}

// Plan applies VersionsToRemove and then moves every candidate whose label is
// in deployed to Protected. Candidates are computed before the deployed check,
// so a protected version does not make room for another deletion.
func Plan(versions []domain.ApplicationVersion, keep int, deployed map[string]struct{}) Decision {
	candidates := VersionsToRemove(versions, keep)

	candidateLabels := make(map[string]struct{}, len(candidates))
	decision := Decision{
		Keep:      []domain.ApplicationVersion{},
		Delete:    []domain.ApplicationVersion{},
		Protected: []domain.ApplicationVersion{},
	}

	for _, v := range candidates {
		candidateLabels[v.VersionLabel] = struct{}{}
		if IsDeployed(v.VersionLabel, deployed) {
			decision.Protected = append(decision.Protected, v)
		} else {
			decision.Delete = append(decision.Delete, v)
		}
	}

	for _, v := range versions {
		if _, ok := candidateLabels[v.VersionLabel]; !ok {
			decision.Keep = append(decision.Keep, v)
		}
	}

	return decision
}

// IsDeployed reports whether label is in the deployed set.
func IsDeployed(label string, deployed map[string]struct{}) bool {
	_, ok := deployed[label]
	return ok
}
