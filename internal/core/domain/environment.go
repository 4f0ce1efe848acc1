package domain

// =============================================================================
// Environment Status
// =============================================================================

// EnvironmentStatus mirrors the hosting platform's environment status values.
type EnvironmentStatus string

const (
	EnvironmentLaunching   EnvironmentStatus = "Launching"
	EnvironmentUpdating    EnvironmentStatus = "Updating"
	EnvironmentReady       EnvironmentStatus = "Ready"
	EnvironmentTerminating EnvironmentStatus = "Terminating"
	EnvironmentTerminated  EnvironmentStatus = "Terminated"
)

// =============================================================================
// Environment
// =============================================================================

// Environment is a named, running instance of an application.
// VersionLabel is empty while the environment is still launching.
type Environment struct {
	ID              string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string            `json:"name" yaml:"name"`
	ApplicationName string            `json:"application_name" yaml:"application_name"`
	VersionLabel    string            `json:"version_label,omitempty" yaml:"version_label,omitempty"`
	TemplateName    string            `json:"template_name,omitempty" yaml:"template_name,omitempty"`
	Status          EnvironmentStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// IsLive reports whether the environment still exists on the platform.
func (e Environment) IsLive() bool {
	return e.Status != EnvironmentTerminated
}

// HasVersion reports whether a version is currently assigned.
func (e Environment) HasVersion() bool {
	return e.VersionLabel != ""
}
