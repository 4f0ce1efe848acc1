// Package deployer sequences a deployment against the hosting platform:
// upload the artifact, register it as an application version, create or
// update the environment, then prune old versions.
//
// This is part of the Imperative Shell. Decisions (labels, keys, which
// versions to prune, create vs update) come from the core packages; this
// package only performs the calls and reports what happened.
package deployer
