package deployment

import "github.com/artpar/beanstalker/internal/core/domain"

// =============================================================================
// Environment Action Decision
// =============================================================================

// EnvironmentAction is what the environment updater does with a new version.
type EnvironmentAction string

const (
	// ActionCreate creates a new environment running the version.
	ActionCreate EnvironmentAction = "create"
	// ActionUpdate reassigns the version of an existing environment.
	ActionUpdate EnvironmentAction = "update"
)

// DecideEnvironmentAction returns ActionUpdate when a live environment named
// name is among existing, ActionCreate otherwise. Terminated environments
// count as absent.
//
// Example:
//
//	DecideEnvironmentAction(nil, "shop-prod")                            // ActionCreate
//	DecideEnvironmentAction([]domain.Environment{{Name: "shop-prod"}}, "shop-prod") // ActionUpdate
func DecideEnvironmentAction(existing []domain.Environment, name string) EnvironmentAction {
	if _, ok := FindEnvironment(existing, name); ok {
		return ActionUpdate
	}
	return ActionCreate
}

// FindEnvironment returns the live environment called name, if any.
func FindEnvironment(existing []domain.Environment, name string) (domain.Environment, bool) {
	for _, env := range existing {
		if env.Name == name && env.IsLive() {
			return env, true
		}
	}
	return domain.Environment{}, false
}
