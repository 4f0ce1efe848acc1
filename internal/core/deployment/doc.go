// Package deployment provides pure functions for deployment planning.
//
// This package contains the functional core logic that turns deployment
// inputs into the values the imperative shell sends to the hosting platform.
// All functions are pure (no I/O, no side effects); callers pass the clock
// in where time matters.
//
// # Functions
//
//   - Naming: Derive storage keys and version descriptions (StorageKey, VersionDescription)
//   - Labels: Resolve snapshot version labels (ResolveVersionLabel)
//   - Environment: Decide between create and update (DecideEnvironmentAction)
//
// # Usage
//
// The imperative shell (internal/shell/deployer) uses these pure functions
// to plan each step, then executes them via the platform adapters.
//
//	key := deployment.StorageKey("/build/libs/shop.war")
//	label := deployment.ResolveVersionLabel("1.4-SNAPSHOT", time.Now())
//	action := deployment.DecideEnvironmentAction(existing, "shop-prod")
package deployment
