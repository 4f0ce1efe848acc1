// Package retention decides which application versions may be pruned.
//
// This package is part of the functional core: every function is pure and
// works on values only. The cleanup sweep in internal/shell/deployer fetches
// versions and deployed labels, asks this package for a decision and then
// performs the deletions.
//
// # Functions
//
//   - VersionsToRemove: the oldest versions beyond the retention count
//   - Plan: partitions versions into keep, delete and protected sets
//
// # Usage
//
//	candidates := retention.VersionsToRemove(versions, retention.DefaultKeep)
//	decision := retention.Plan(versions, retention.DefaultKeep, deployedLabels)
package retention
